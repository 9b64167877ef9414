package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestGenerateAndParseAccessToken(t *testing.T) {
	mgr := NewJWTManager(strings.Repeat("a", 32), 15*time.Minute)

	usuarioID := uuid.New()
	sessaoID := uuid.New()

	token, err := mgr.GenerateAccessToken(usuarioID, sessaoID, 3, "Docente")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := mgr.ParseAndValidate(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	sub, err := claims.UsuarioID()
	if err != nil {
		t.Fatalf("subject: %v", err)
	}
	if sub != usuarioID {
		t.Errorf("sub = %s, esperado %s", sub, usuarioID)
	}
	if claims.SessaoID != sessaoID {
		t.Errorf("sid = %s, esperado %s", claims.SessaoID, sessaoID)
	}
	if claims.TokenVersion != 3 {
		t.Errorf("tv = %d, esperado 3", claims.TokenVersion)
	}
	if claims.Papel != "Docente" {
		t.Errorf("role = %q, esperado Docente", claims.Papel)
	}
}

func TestParseTokenExpirado(t *testing.T) {
	mgr := NewJWTManager(strings.Repeat("a", 32), -time.Minute)

	token, err := mgr.GenerateAccessToken(uuid.New(), uuid.New(), 1, "Convidado")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := mgr.ParseAndValidate(token); !errors.Is(err, ErrTokenExpirado) {
		t.Fatalf("erro = %v, esperado ErrTokenExpirado", err)
	}
}

func TestParseTokenComSegredoErrado(t *testing.T) {
	emissor := NewJWTManager(strings.Repeat("a", 32), 15*time.Minute)
	verificador := NewJWTManager(strings.Repeat("b", 32), 15*time.Minute)

	token, err := emissor.GenerateAccessToken(uuid.New(), uuid.New(), 1, "Docente")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := verificador.ParseAndValidate(token); !errors.Is(err, ErrTokenInvalido) {
		t.Fatalf("erro = %v, esperado ErrTokenInvalido", err)
	}
}

func TestParseTokenMalformado(t *testing.T) {
	mgr := NewJWTManager(strings.Repeat("a", 32), 15*time.Minute)

	for _, lixo := range []string{"", "abc", "a.b.c"} {
		if _, err := mgr.ParseAndValidate(lixo); !errors.Is(err, ErrTokenInvalido) {
			t.Errorf("ParseAndValidate(%q) = %v, esperado ErrTokenInvalido", lixo, err)
		}
	}
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	raw, hash, err := GenerateRefreshToken()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if raw == "" || hash == "" {
		t.Fatal("token e hash não podem ser vazios")
	}
	if raw == hash {
		t.Fatal("hash não pode ser o token em claro")
	}

	if !VerifyRefreshToken(raw, hash) {
		t.Error("token recém-gerado deveria verificar contra o próprio hash")
	}
	if VerifyRefreshToken(uuid.NewString(), hash) {
		t.Error("token diferente não deveria verificar")
	}
	if VerifyRefreshToken(raw, "hash-invalido") {
		t.Error("hash malformado não deveria verificar")
	}
}
