package auth

import (
	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
)

// Parâmetros Argon2id compartilhados por senhas e refresh tokens; ficam
// embutidos em cada hash, então podem ser endurecidos sem migração.
var hashParams = &argon2id.Params{
	Memory:      64 * 1024, // 64 MB
	Iterations:  3,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// Hash gera hash Argon2id da senha.
func Hash(senha string) (string, error) {
	return argon2id.CreateHash(senha, hashParams)
}

// Verify compara senha com hash Argon2id persistido.
func Verify(senha, encodedHash string) (bool, error) {
	return argon2id.ComparePasswordAndHash(senha, encodedHash)
}

// GenerateRefreshToken cria token opaco aleatório e seu hash persistível.
// O hash Argon2id carrega salt aleatório, portanto não serve para busca
// por igualdade: a verificação exige comparar o token apresentado contra
// cada hash vivo.
func GenerateRefreshToken() (raw string, hashed string, err error) {
	raw = uuid.NewString()
	hashed, err = HashRefreshToken(raw)
	if err != nil {
		return "", "", err
	}
	return raw, hashed, nil
}

// HashRefreshToken produz hash Argon2id do token em claro.
func HashRefreshToken(raw string) (string, error) {
	return argon2id.CreateHash(raw, hashParams)
}

// VerifyRefreshToken compara token em claro com um hash persistido.
// Hash malformado conta como não correspondência, nunca como erro.
func VerifyRefreshToken(raw, encodedHash string) bool {
	ok, err := argon2id.ComparePasswordAndHash(raw, encodedHash)
	return err == nil && ok
}
