package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gestaodep/academico/internal/service"
)

// Extratores nomeados por recurso: cada um declara explicitamente quais
// ids a regra de permissão daquele recurso consome. Rotas novas escolhem
// (ou compõem) o extrator adequado em vez de montar contexto ad hoc.

// ExtratorDepartamento lê o id do departamento da rota ou query.
func ExtratorDepartamento(r *http.Request) service.Contexto {
	return service.Contexto{
		DepartamentoID: idFromRequest(r, "id_dep"),
	}
}

// ExtratorCurso lê o id do curso da rota ou query.
func ExtratorCurso(r *http.Request) service.Contexto {
	return service.Contexto{
		CursoID: idFromRequest(r, "id_curso"),
	}
}

// ExtratorUC lê o id da UC e, quando presente, o curso dono.
func ExtratorUC(r *http.Request) service.Contexto {
	return service.Contexto{
		UCID:    idFromRequest(r, "id_uc"),
		CursoID: queryID(r, "id_curso"),
	}
}

// ExtratorArea lê o id da área e, quando presente, o departamento dono.
func ExtratorArea(r *http.Request) service.Contexto {
	return service.Contexto{
		AreaID:         idFromRequest(r, "id_area"),
		DepartamentoID: queryID(r, "id_dep"),
	}
}

// ExtratorDocente lê o id do docente e os donos opcionais.
func ExtratorDocente(r *http.Request) service.Contexto {
	return service.Contexto{
		DocenteID:      idFromRequest(r, "id_doc"),
		AreaID:         queryID(r, "id_area"),
		DepartamentoID: queryID(r, "id_dep"),
	}
}

// idFromRequest tenta o parâmetro de rota "id", depois o parâmetro de
// rota nomeado e por fim a query string.
func idFromRequest(r *http.Request, nome string) uuid.UUID {
	if raw := chi.URLParam(r, "id"); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			return id
		}
	}
	if raw := chi.URLParam(r, nome); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			return id
		}
	}
	return queryID(r, nome)
}

func queryID(r *http.Request, nome string) uuid.UUID {
	raw := r.URL.Query().Get(nome)
	if raw == "" {
		return uuid.Nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil
	}
	return id
}
