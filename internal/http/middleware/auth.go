package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gestaodep/academico/internal/auth"
	"github.com/gestaodep/academico/internal/service"
)

type contextKey string

const (
	ContextKeySubject contextKey = "subject"
	ContextKeySessao  contextKey = "sessao"
	ContextKeyPapel   contextKey = "papel"
)

type tokenVerifier interface {
	VerifyAccess(ctx context.Context, token string) (*auth.Claims, error)
}

// Auth extrai o bearer token, valida assinatura + sessão + token_version
// e injeta as claims no contexto. Falha de autenticação responde 401;
// erro inesperado (ex.: banco indisponível) responde 500 sem detalhe.
func Auth(verifier tokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
				writeError(w, http.StatusUnauthorized, "AUTH", "token ausente")
				return
			}

			claims, err := verifier.VerifyAccess(r.Context(), parts[1])
			if err != nil {
				switch {
				case errors.Is(err, auth.ErrTokenExpirado),
					errors.Is(err, auth.ErrTokenInvalido),
					errors.Is(err, service.ErrSessionInvalid):
					writeError(w, http.StatusUnauthorized, "AUTH", "token inválido ou expirado")
				default:
					log.Error().Err(err).Msg("auth: erro inesperado na verificação")
					writeError(w, http.StatusInternalServerError, "INTERNAL", "erro interno")
				}
				return
			}

			usuarioID, err := claims.UsuarioID()
			if err != nil {
				writeError(w, http.StatusUnauthorized, "AUTH", "token inválido ou expirado")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeySubject, usuarioID)
			ctx = context.WithValue(ctx, ContextKeySessao, claims.SessaoID)
			ctx = context.WithValue(ctx, ContextKeyPapel, claims.Papel)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSubject recupera o id do usuário autenticado.
func GetSubject(ctx context.Context) uuid.UUID {
	val, _ := ctx.Value(ContextKeySubject).(uuid.UUID)
	return val
}

// GetSessao recupera o id da sessão autenticada.
func GetSessao(ctx context.Context) uuid.UUID {
	val, _ := ctx.Value(ContextKeySessao).(uuid.UUID)
	return val
}

// GetPapel recupera o papel autenticado.
func GetPapel(ctx context.Context) string {
	val, _ := ctx.Value(ContextKeyPapel).(string)
	return val
}

// RequireRole exige que o papel autenticado esteja no conjunto dado.
// Deve ser encadeado após Auth.
func RequireRole(papeis ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			papel := GetPapel(r.Context())
			if papel == "" {
				writeError(w, http.StatusUnauthorized, "AUTH", "token ausente")
				return
			}
			for _, candidato := range papeis {
				if papel == candidato {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, "FORBIDDEN", "permissões insuficientes")
		})
	}
}

// ContextExtractor constrói o contexto de decisão a partir da rota.
// Cada rota protegida fornece o extrator dos ids que sua regra exige.
type ContextExtractor func(*http.Request) service.Contexto

type permissionDecider interface {
	HasPermission(ctx context.Context, p service.Principal, acao service.Acao, recurso service.Recurso, c service.Contexto) (bool, error)
}

// RequirePermission consulta o motor de permissões para a ação/recurso.
// Negação responde 403 com mensagem genérica, sem revelar qual checagem
// falhou. Deve ser encadeado após Auth.
func RequirePermission(engine permissionDecider, acao service.Acao, recurso service.Recurso, extractor ContextExtractor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := GetSubject(r.Context())
			papel := GetPapel(r.Context())
			if subject == uuid.Nil || papel == "" {
				writeError(w, http.StatusUnauthorized, "AUTH", "token ausente")
				return
			}

			var c service.Contexto
			if extractor != nil {
				c = extractor(r)
			}

			allowed, err := engine.HasPermission(r.Context(), service.Principal{ID: subject, Papel: papel}, acao, recurso, c)
			if err != nil {
				log.Error().Err(err).Str("recurso", string(recurso)).Msg("permissão: erro inesperado")
				writeError(w, http.StatusInternalServerError, "INTERNAL", "erro interno")
				return
			}
			if !allowed {
				writeError(w, http.StatusForbidden, "FORBIDDEN", "permissões insuficientes")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"data": nil,
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}
