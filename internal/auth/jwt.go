package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrTokenExpirado indica access token vencido.
	ErrTokenExpirado = errors.New("token expirado")
	// ErrTokenInvalido indica token malformado ou assinatura inválida.
	ErrTokenInvalido = errors.New("token inválido")
)

// Claims representa o conteúdo de um JWT de acesso: sujeito, sessão,
// snapshot de token_version e papel no momento da emissão.
type Claims struct {
	SessaoID     uuid.UUID `json:"sid"`
	TokenVersion int       `json:"tv"`
	Papel        string    `json:"role"`
	jwt.RegisteredClaims
}

// JWTManager encapsula geração e validação de tokens de acesso.
type JWTManager struct {
	secret    []byte
	accessTTL time.Duration
}

// NewJWTManager cria o gerenciador com segredo e TTL configurados.
func NewJWTManager(secret string, accessTTL time.Duration) *JWTManager {
	return &JWTManager{secret: []byte(secret), accessTTL: accessTTL}
}

// GenerateAccessToken cria um JWT HS256 curto amarrado à sessão.
func (m *JWTManager) GenerateAccessToken(usuarioID, sessaoID uuid.UUID, tokenVersion int, papel string) (string, error) {
	now := time.Now().UTC()

	claims := Claims{
		SessaoID:     sessaoID,
		TokenVersion: tokenVersion,
		Papel:        papel,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   usuarioID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ParseAndValidate verifica assinatura e expiração. Distingue token
// vencido de token inválido para a camada HTTP responder corretamente.
func (m *JWTManager) ParseAndValidate(tokenString string) (*Claims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	token, err := parser.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpirado
		}
		return nil, ErrTokenInvalido
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalido
	}

	return claims, nil
}

// UsuarioID devolve o id do usuário embutido no subject do token.
func (c *Claims) UsuarioID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}
