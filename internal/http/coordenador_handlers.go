package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gestaodep/academico/internal/repo"
	"github.com/gestaodep/academico/internal/service"
)

type coordenadorRepository interface {
	GetUsuarioByID(ctx context.Context, id uuid.UUID) (repo.Usuario, error)
	ListDepartamentosDoCoordenador(ctx context.Context, usuarioID uuid.UUID) ([]uuid.UUID, error)
	ListCursosDoCoordenador(ctx context.Context, usuarioID uuid.UUID) ([]uuid.UUID, error)
	AssignCoordenadorDepartamento(ctx context.Context, usuarioID, depID uuid.UUID) error
	AssignCoordenadorCurso(ctx context.Context, usuarioID, cursoID uuid.UUID) error
	RemoveCoordenadorDepartamento(ctx context.Context, usuarioID, depID uuid.UUID) error
	RemoveCoordenadorCurso(ctx context.Context, usuarioID, cursoID uuid.UUID) error
}

type atribuicaoRequest struct {
	Tipo      string `json:"type"`
	RecursoID string `json:"resourceId"`
}

type atribuicoesResponse struct {
	User          *usuarioPerfil `json:"user"`
	Departamentos []string       `json:"departments"`
	Cursos        []string       `json:"courses"`
}

// carregarCoordenador valida que o id aponta para conta de Coordenador.
func (h *Handler) carregarCoordenador(w http.ResponseWriter, r *http.Request) (repo.Usuario, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "id inválido", nil)
		return repo.Usuario{}, false
	}

	user, err := h.coordenadores.GetUsuarioByID(r.Context(), id)
	if err != nil {
		h.writeAuthError(w, err)
		return repo.Usuario{}, false
	}
	if user.Papel != service.PapelCoordenador {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "usuário não é coordenador", nil)
		return repo.Usuario{}, false
	}
	return user, true
}

// handleListAtribuicoes lista os vínculos de um coordenador.
func (h *Handler) handleListAtribuicoes(w http.ResponseWriter, r *http.Request) {
	user, ok := h.carregarCoordenador(w, r)
	if !ok {
		return
	}

	deps, err := h.coordenadores.ListDepartamentosDoCoordenador(r.Context(), user.ID)
	if err != nil {
		h.writeAuthError(w, err)
		return
	}
	cursos, err := h.coordenadores.ListCursosDoCoordenador(r.Context(), user.ID)
	if err != nil {
		h.writeAuthError(w, err)
		return
	}

	resp := atribuicoesResponse{
		User:          perfilDe(user),
		Departamentos: make([]string, 0, len(deps)),
		Cursos:        make([]string, 0, len(cursos)),
	}
	for _, id := range deps {
		resp.Departamentos = append(resp.Departamentos, id.String())
	}
	for _, id := range cursos {
		resp.Cursos = append(resp.Cursos, id.String())
	}

	WriteJSON(w, http.StatusOK, resp)
}

// handleCriarAtribuicao vincula o coordenador a departamento ou curso.
func (h *Handler) handleCriarAtribuicao(w http.ResponseWriter, r *http.Request) {
	user, ok := h.carregarCoordenador(w, r)
	if !ok {
		return
	}

	var req atribuicaoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "corpo inválido", nil)
		return
	}
	recursoID, err := uuid.Parse(req.RecursoID)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "resourceId inválido", nil)
		return
	}

	switch req.Tipo {
	case "department":
		err = h.coordenadores.AssignCoordenadorDepartamento(r.Context(), user.ID, recursoID)
	case "course":
		err = h.coordenadores.AssignCoordenadorCurso(r.Context(), user.ID, recursoID)
	default:
		WriteError(w, http.StatusBadRequest, "VALIDATION", "type deve ser department ou course", nil)
		return
	}
	if err != nil {
		h.writeAuthError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]string{"message": "vínculo criado"})
}

// handleRemoverAtribuicao remove vínculo de departamento ou curso.
func (h *Handler) handleRemoverAtribuicao(w http.ResponseWriter, r *http.Request) {
	user, ok := h.carregarCoordenador(w, r)
	if !ok {
		return
	}

	var req atribuicaoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "corpo inválido", nil)
		return
	}
	recursoID, err := uuid.Parse(req.RecursoID)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "resourceId inválido", nil)
		return
	}

	switch req.Tipo {
	case "department":
		err = h.coordenadores.RemoveCoordenadorDepartamento(r.Context(), user.ID, recursoID)
	case "course":
		err = h.coordenadores.RemoveCoordenadorCurso(r.Context(), user.ID, recursoID)
	default:
		WriteError(w, http.StatusBadRequest, "VALIDATION", "type deve ser department ou course", nil)
		return
	}
	if err != nil {
		h.writeAuthError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"message": "vínculo removido"})
}
