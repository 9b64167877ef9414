package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/gestaodep/academico/internal/auth"
	httpmiddleware "github.com/gestaodep/academico/internal/http/middleware"
	"github.com/gestaodep/academico/internal/repo"
	"github.com/gestaodep/academico/internal/service"
	"github.com/gestaodep/academico/internal/util"
)

type credenciaisRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type tokensResponse struct {
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken"`
	User         *usuarioPerfil `json:"user,omitempty"`
}

type usuarioPerfil struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Papel string `json:"role"`
	Ativo bool   `json:"ativo"`
}

func perfilDe(u repo.Usuario) *usuarioPerfil {
	return &usuarioPerfil{
		ID:    u.ID.String(),
		Email: u.Email,
		Papel: u.Papel,
		Ativo: u.Ativo,
	}
}

// handleLogin autentica por email/senha.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credenciaisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "corpo inválido", nil)
		return
	}
	if req.Email == "" || req.Password == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "email e senha são obrigatórios", nil)
		return
	}

	result, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeAuthError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, tokensResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		User:         perfilDe(result.Usuario),
	})
}

// handleRegister cria conta nova com auto-login.
func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credenciaisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "corpo inválido", nil)
		return
	}
	if err := util.ValidateEmail(req.Email); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}
	if err := util.ValidatePassword(req.Password); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}

	result, err := h.auth.Register(r.Context(), req.Email, req.Password, req.Role)
	if err != nil {
		h.writeAuthError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, tokensResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		User:         perfilDe(result.Usuario),
	})
}

// handleRefresh troca refresh token por par novo.
func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "corpo inválido", nil)
		return
	}
	if req.RefreshToken == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "refreshToken é obrigatório", nil)
		return
	}

	result, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.writeAuthError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, tokensResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
	})
}

// handleLogout revoga a sessão autenticada. Idempotente.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sessaoID := httpmiddleware.GetSessao(r.Context())
	usuarioID := httpmiddleware.GetSubject(r.Context())

	if err := h.auth.Logout(r.Context(), sessaoID, usuarioID); err != nil {
		h.writeAuthError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"message": "sessão encerrada"})
}

// handleLogoutAll derruba todas as sessões e access tokens do usuário.
func (h *Handler) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	usuarioID := httpmiddleware.GetSubject(r.Context())

	if err := h.auth.LogoutAll(r.Context(), usuarioID); err != nil {
		h.writeAuthError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"message": "todas as sessões encerradas"})
}

// handleSetupPassword define senha de conta em onboarding.
func (h *Handler) handleSetupPassword(w http.ResponseWriter, r *http.Request) {
	var req credenciaisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "corpo inválido", nil)
		return
	}
	if err := util.ValidateEmail(req.Email); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}
	if err := util.ValidatePassword(req.Password); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}

	if err := h.auth.SetupPassword(r.Context(), req.Email, req.Password); err != nil {
		h.writeAuthError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"message": "senha definida; faça login"})
}

// handleCheckPasswordSetup informa se a conta precisa definir senha.
func (h *Handler) handleCheckPasswordSetup(w http.ResponseWriter, r *http.Request) {
	var req credenciaisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "corpo inválido", nil)
		return
	}
	if req.Email == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "email é obrigatório", nil)
		return
	}

	precisa, err := h.auth.PrecisaDefinirSenha(r.Context(), req.Email)
	if err != nil {
		// Email desconhecido responde como conta já configurada para não
		// permitir enumeração.
		if errors.Is(err, repo.ErrNotFound) {
			WriteJSON(w, http.StatusOK, map[string]bool{"needsSetup": false})
			return
		}
		h.writeAuthError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]bool{"needsSetup": precisa})
}

// handleMe devolve o perfil do sujeito autenticado.
func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	usuarioID := httpmiddleware.GetSubject(r.Context())

	user, err := h.auth.Me(r.Context(), usuarioID)
	if err != nil {
		h.writeAuthError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, perfilDe(user))
}

// writeAuthError traduz a taxonomia de erros do núcleo em respostas HTTP.
// Erros inesperados viram 500 genérico com detalhe apenas no log.
func (h *Handler) writeAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrRefreshInvalid),
		errors.Is(err, service.ErrSessionInvalid),
		errors.Is(err, auth.ErrTokenExpirado),
		errors.Is(err, auth.ErrTokenInvalido):
		WriteError(w, http.StatusUnauthorized, "AUTH", err.Error(), nil)
	case errors.Is(err, service.ErrPapelInvalido),
		errors.Is(err, service.ErrSenhaJaDefinida):
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
	case errors.Is(err, repo.ErrConflict):
		WriteError(w, http.StatusConflict, "CONFLICT", "registro duplicado", nil)
	case errors.Is(err, repo.ErrNotFound):
		WriteError(w, http.StatusNotFound, "NOT_FOUND", "registro não encontrado", nil)
	default:
		log.Error().Err(err).Msg("auth: erro inesperado")
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
	}
}
