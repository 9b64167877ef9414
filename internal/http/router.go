package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/gestaodep/academico/internal/config"
	httpmiddleware "github.com/gestaodep/academico/internal/http/middleware"
	"github.com/gestaodep/academico/internal/service"
)

// Handler agrega as dependências das rotas do núcleo.
type Handler struct {
	cfg           *config.Config
	auth          *service.AuthService
	perm          *service.PermissionService
	coordenadores coordenadorRepository
	authLimiter   *httpmiddleware.RateLimiter
}

// NewRouter devolve o roteador configurado. Os decoradores Auth,
// RequireRole e RequirePermission são a superfície que os handlers de
// recurso (GraphQL/gRPC) consomem; aqui ficam as rotas do núcleo.
func NewRouter(cfg *config.Config, authService *service.AuthService, permService *service.PermissionService, coordRepo coordenadorRepository) http.Handler {
	h := &Handler{
		cfg:           cfg,
		auth:          authService,
		perm:          permService,
		coordenadores: coordRepo,
		authLimiter:   httpmiddleware.NewRateLimiter(cfg.RateLimitAuth.RequestsPerSecond, cfg.RateLimitAuth.Burst),
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(httpmiddleware.Logging)
	r.Use(httpmiddleware.Recover)
	r.Use(httpmiddleware.CORS(cfg.AllowOrigins))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Rotas públicas de autenticação, limitadas por IP.
	r.Group(func(r chi.Router) {
		r.Use(httpmiddleware.IPRateLimit(h.authLimiter))
		r.Post("/auth/login", h.handleLogin)
		r.Post("/auth/register", h.handleRegister)
		r.Post("/auth/refresh", h.handleRefresh)
		r.Post("/auth/setup-password", h.handleSetupPassword)
		r.Post("/auth/check-password-setup", h.handleCheckPasswordSetup)
	})

	// Rotas autenticadas.
	r.Group(func(r chi.Router) {
		r.Use(httpmiddleware.Auth(h.auth))
		r.Post("/auth/logout", h.handleLogout)
		r.Post("/auth/logout-all", h.handleLogoutAll)
		r.Get("/auth/me", h.handleMe)

		// Gestão de vínculos de coordenador: ground truth do motor de
		// permissões, restrita a quem pode gerir contas.
		r.Route("/coordenador-assignments/{id}", func(r chi.Router) {
			r.Use(httpmiddleware.RequirePermission(h.perm, service.AcaoUpdate, service.RecursoUsers, nil))
			r.Get("/", h.handleListAtribuicoes)
			r.Post("/", h.handleCriarAtribuicao)
			r.Delete("/", h.handleRemoverAtribuicao)
		})
	})

	return r
}
