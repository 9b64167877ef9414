package repo

import (
	"time"

	"github.com/google/uuid"
)

// Usuario representa uma conta do backoffice académico.
// SenhaHash nula indica onboarding pendente (docente criado pelo
// administrador que ainda não definiu senha).
type Usuario struct {
	ID           uuid.UUID
	Email        string
	SenhaHash    *string
	Papel        string
	TokenVersion int
	Ativo        bool
	CriadoEm     time.Time
}

// Sessao representa um login; uma cadeia de rotações de refresh token
// partilha o mesmo FamiliaID.
type Sessao struct {
	ID         uuid.UUID
	UsuarioID  uuid.UUID
	FamiliaID  uuid.UUID
	ExpiraEm   time.Time
	RevogadaEm *time.Time
	CriadaEm   time.Time
}

// TokenRefresh modela a tabela de refresh tokens. O token em claro nunca
// é persistido, apenas o hash Argon2id.
type TokenRefresh struct {
	ID        uuid.UUID
	SessaoID  uuid.UUID
	TokenHash string
	ExpiraEm  time.Time
	Revogado  bool
	CriadoEm  time.Time
}

// TokenRefreshVivo agrega um refresh token utilizável com os dados da
// sessão necessários para a troca.
type TokenRefreshVivo struct {
	ID        uuid.UUID
	SessaoID  uuid.UUID
	TokenHash string
	UsuarioID uuid.UUID
	FamiliaID uuid.UUID
}

// InsertUsuarioParams agrupa os campos de criação de conta.
type InsertUsuarioParams struct {
	ID        uuid.UUID
	Email     string
	SenhaHash *string
	Papel     string
}

// InsertRefreshTokenParams agrupa os campos de inserção de refresh token.
type InsertRefreshTokenParams struct {
	ID        uuid.UUID
	SessaoID  uuid.UUID
	TokenHash string
	ExpiraEm  time.Time
}
