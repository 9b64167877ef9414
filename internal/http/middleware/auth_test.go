package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/gestaodep/academico/internal/auth"
	"github.com/gestaodep/academico/internal/service"
)

// stubVerifier resolve tokens de teste para claims pré-montadas.
type stubVerifier struct {
	tokens map[string]*auth.Claims
}

func (s *stubVerifier) VerifyAccess(ctx context.Context, token string) (*auth.Claims, error) {
	if claims, ok := s.tokens[token]; ok {
		return claims, nil
	}
	return nil, auth.ErrTokenInvalido
}

func claimsDe(papel string) *auth.Claims {
	return &auth.Claims{
		SessaoID:     uuid.New(),
		TokenVersion: 1,
		Papel:        papel,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: uuid.NewString(),
		},
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthRejeitaTokenAusenteOuInvalido(t *testing.T) {
	verifier := &stubVerifier{tokens: map[string]*auth.Claims{}}
	handler := Auth(verifier)(okHandler())

	casos := []struct {
		nome   string
		header string
	}{
		{"sem header", ""},
		{"esquema errado", "Basic abc"},
		{"bearer vazio", "Bearer "},
		{"token desconhecido", "Bearer qualquer"},
	}

	for _, caso := range casos {
		t.Run(caso.nome, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if caso.header != "" {
				req.Header.Set("Authorization", caso.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, esperado 401", rec.Code)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	verifier := &stubVerifier{tokens: map[string]*auth.Claims{
		"token-admin":   claimsDe(service.PapelAdministrador),
		"token-docente": claimsDe(service.PapelDocente),
	}}

	handler := Auth(verifier)(RequireRole(service.PapelAdministrador)(okHandler()))

	casos := []struct {
		nome     string
		token    string
		esperado int
	}{
		{"papel compatível passa", "token-admin", http.StatusOK},
		{"papel incompatível nega", "token-docente", http.StatusForbidden},
		{"sem token nega antes do papel", "", http.StatusUnauthorized},
	}

	for _, caso := range casos {
		t.Run(caso.nome, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if caso.token != "" {
				req.Header.Set("Authorization", "Bearer "+caso.token)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != caso.esperado {
				t.Errorf("status = %d, esperado %d", rec.Code, caso.esperado)
			}
		})
	}
}

func TestRequireRoleAceitaQualquerDoConjunto(t *testing.T) {
	verifier := &stubVerifier{tokens: map[string]*auth.Claims{
		"token-coord": claimsDe(service.PapelCoordenador),
	}}

	handler := Auth(verifier)(RequireRole(service.PapelAdministrador, service.PapelCoordenador)(okHandler()))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer token-coord")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, esperado 200", rec.Code)
	}
}

// stubDecider registra a consulta recebida e devolve resposta fixa.
type stubDecider struct {
	allowed  bool
	contexto service.Contexto
	acao     service.Acao
	recurso  service.Recurso
}

func (s *stubDecider) HasPermission(ctx context.Context, p service.Principal, acao service.Acao, recurso service.Recurso, c service.Contexto) (bool, error) {
	s.acao = acao
	s.recurso = recurso
	s.contexto = c
	return s.allowed, nil
}

func TestRequirePermissionUsaExtrator(t *testing.T) {
	verifier := &stubVerifier{tokens: map[string]*auth.Claims{
		"token-coord": claimsDe(service.PapelCoordenador),
	}}
	decider := &stubDecider{allowed: true}

	cursoID := uuid.New()
	handler := Auth(verifier)(RequirePermission(decider, service.AcaoUpdate, service.RecursoCursos, ExtratorCurso)(okHandler()))

	req := requestComRota(t, "/cursos/"+cursoID.String(), map[string]string{"id": cursoID.String()})
	req.Header.Set("Authorization", "Bearer token-coord")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, esperado 200", rec.Code)
	}
	if decider.acao != service.AcaoUpdate || decider.recurso != service.RecursoCursos {
		t.Errorf("consulta = %s/%s, esperado update/courses", decider.acao, decider.recurso)
	}
	if decider.contexto.CursoID != cursoID {
		t.Errorf("contexto.CursoID = %s, esperado %s", decider.contexto.CursoID, cursoID)
	}

	decider.allowed = false
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("negação: status = %d, esperado 403", rec.Code)
	}
}

func TestRequireRoleSemAuthEncadeado(t *testing.T) {
	// Sem Auth na cadeia não há papel no contexto: nega como não
	// autenticado, nunca deixa passar.
	handler := RequireRole(service.PapelAdministrador)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, esperado 401", rec.Code)
	}
}
