package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gestaodep/academico/internal/db"
)

// Queries concentra o acesso SQL do núcleo de autenticação/autorização.
type Queries struct {
	pool *pgxpool.Pool
}

// New cria o repositório sobre o pool pgx.
func New(pool *pgxpool.Pool) *Queries {
	return &Queries{pool: pool}
}

const uniqueViolation = "23505"

func mapError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrConflict
	}
	return err
}

// GetUsuarioByEmail busca conta ativa ou não pelo email.
func (q *Queries) GetUsuarioByEmail(ctx context.Context, email string) (Usuario, error) {
	var u Usuario
	err := q.pool.QueryRow(ctx, `
        SELECT id, email, password_hash, role, token_version, ativo, criado_em
        FROM users
        WHERE email = $1
    `, email).Scan(&u.ID, &u.Email, &u.SenhaHash, &u.Papel, &u.TokenVersion, &u.Ativo, &u.CriadoEm)
	if err != nil {
		return Usuario{}, mapError(err)
	}
	return u, nil
}

// GetUsuarioByID busca conta pelo id.
func (q *Queries) GetUsuarioByID(ctx context.Context, id uuid.UUID) (Usuario, error) {
	var u Usuario
	err := q.pool.QueryRow(ctx, `
        SELECT id, email, password_hash, role, token_version, ativo, criado_em
        FROM users
        WHERE id = $1
    `, id).Scan(&u.ID, &u.Email, &u.SenhaHash, &u.Papel, &u.TokenVersion, &u.Ativo, &u.CriadoEm)
	if err != nil {
		return Usuario{}, mapError(err)
	}
	return u, nil
}

// InsertUsuario cria conta nova. Retorna ErrConflict para email duplicado.
func (q *Queries) InsertUsuario(ctx context.Context, arg InsertUsuarioParams) (Usuario, error) {
	var u Usuario
	err := q.pool.QueryRow(ctx, `
        INSERT INTO users (id, email, password_hash, role, token_version, ativo)
        VALUES ($1, $2, $3, $4, 1, TRUE)
        RETURNING id, email, password_hash, role, token_version, ativo, criado_em
    `, arg.ID, arg.Email, arg.SenhaHash, arg.Papel).
		Scan(&u.ID, &u.Email, &u.SenhaHash, &u.Papel, &u.TokenVersion, &u.Ativo, &u.CriadoEm)
	if err != nil {
		return Usuario{}, mapError(err)
	}
	return u, nil
}

// SetSenhaHash define a senha de uma conta (onboarding de docentes).
func (q *Queries) SetSenhaHash(ctx context.Context, id uuid.UUID, hash string) error {
	cmd, err := q.pool.Exec(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, hash)
	if err != nil {
		return mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// BumpTokenVersion incrementa token_version, invalidando todos os access
// tokens emitidos para o usuário.
func (q *Queries) BumpTokenVersion(ctx context.Context, usuarioID uuid.UUID) error {
	cmd, err := q.pool.Exec(ctx, `
        UPDATE users SET token_version = token_version + 1 WHERE id = $1
    `, usuarioID)
	if err != nil {
		return mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertSessao cria sessão nova.
func (q *Queries) InsertSessao(ctx context.Context, usuarioID, familiaID uuid.UUID, expiraEm time.Time) (Sessao, error) {
	var s Sessao
	err := q.pool.QueryRow(ctx, `
        INSERT INTO sessions (id, user_id, family_id, expires_at)
        VALUES ($1, $2, $3, $4)
        RETURNING id, user_id, family_id, expires_at, revoked_at, criado_em
    `, uuid.New(), usuarioID, familiaID, expiraEm).
		Scan(&s.ID, &s.UsuarioID, &s.FamiliaID, &s.ExpiraEm, &s.RevogadaEm, &s.CriadaEm)
	if err != nil {
		return Sessao{}, mapError(err)
	}
	return s, nil
}

// GetSessaoValida retorna a sessão apenas se não revogada e não expirada.
func (q *Queries) GetSessaoValida(ctx context.Context, id uuid.UUID) (Sessao, error) {
	var s Sessao
	err := q.pool.QueryRow(ctx, `
        SELECT id, user_id, family_id, expires_at, revoked_at, criado_em
        FROM sessions
        WHERE id = $1 AND revoked_at IS NULL AND expires_at > NOW()
    `, id).Scan(&s.ID, &s.UsuarioID, &s.FamiliaID, &s.ExpiraEm, &s.RevogadaEm, &s.CriadaEm)
	if err != nil {
		return Sessao{}, mapError(err)
	}
	return s, nil
}

// RevokeSessao revoga a sessão e todos os seus refresh tokens. Idempotente.
func (q *Queries) RevokeSessao(ctx context.Context, id uuid.UUID) error {
	return db.WithTx(ctx, q.pool, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
            UPDATE sessions SET revoked_at = NOW() WHERE id = $1 AND revoked_at IS NULL
        `, id); err != nil {
			return mapError(err)
		}
		if _, err := tx.Exec(ctx, `
            UPDATE refresh_tokens SET is_revoked = TRUE WHERE session_id = $1
        `, id); err != nil {
			return mapError(err)
		}
		return nil
	})
}

// RevokeSessoesDoUsuario revoga todas as sessões abertas do usuário.
func (q *Queries) RevokeSessoesDoUsuario(ctx context.Context, usuarioID uuid.UUID) error {
	return db.WithTx(ctx, q.pool, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
            UPDATE sessions SET revoked_at = NOW() WHERE user_id = $1 AND revoked_at IS NULL
        `, usuarioID); err != nil {
			return mapError(err)
		}
		if _, err := tx.Exec(ctx, `
            UPDATE refresh_tokens SET is_revoked = TRUE
            WHERE session_id IN (SELECT id FROM sessions WHERE user_id = $1)
        `, usuarioID); err != nil {
			return mapError(err)
		}
		return nil
	})
}

// RevokeFamilia revoga todas as sessões e refresh tokens de uma família.
// Usada na detecção de reuso de refresh token.
func (q *Queries) RevokeFamilia(ctx context.Context, familiaID uuid.UUID) error {
	return db.WithTx(ctx, q.pool, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
            UPDATE sessions SET revoked_at = NOW() WHERE family_id = $1 AND revoked_at IS NULL
        `, familiaID); err != nil {
			return mapError(err)
		}
		if _, err := tx.Exec(ctx, `
            UPDATE refresh_tokens SET is_revoked = TRUE
            WHERE session_id IN (SELECT id FROM sessions WHERE family_id = $1)
        `, familiaID); err != nil {
			return mapError(err)
		}
		return nil
	})
}

// InsertRefreshToken persiste o hash de um refresh token novo.
func (q *Queries) InsertRefreshToken(ctx context.Context, arg InsertRefreshTokenParams) (TokenRefresh, error) {
	var t TokenRefresh
	err := q.pool.QueryRow(ctx, `
        INSERT INTO refresh_tokens (id, session_id, token_hash, expires_at)
        VALUES ($1, $2, $3, $4)
        RETURNING id, session_id, token_hash, expires_at, is_revoked, criado_em
    `, arg.ID, arg.SessaoID, arg.TokenHash, arg.ExpiraEm).
		Scan(&t.ID, &t.SessaoID, &t.TokenHash, &t.ExpiraEm, &t.Revogado, &t.CriadoEm)
	if err != nil {
		return TokenRefresh{}, mapError(err)
	}
	return t, nil
}

// ListRefreshTokensVivos lista refresh tokens utilizáveis: não revogados,
// não expirados e com sessão aberta. O hash usa salt aleatório, portanto a
// verificação do token apresentado é feita varrendo esta lista.
func (q *Queries) ListRefreshTokensVivos(ctx context.Context) ([]TokenRefreshVivo, error) {
	rows, err := q.pool.Query(ctx, `
        SELECT rt.id, rt.session_id, rt.token_hash, s.user_id, s.family_id
        FROM refresh_tokens rt
        JOIN sessions s ON s.id = rt.session_id
        WHERE rt.is_revoked = FALSE
          AND rt.expires_at > NOW()
          AND s.revoked_at IS NULL
          AND s.expires_at > NOW()
    `)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var tokens []TokenRefreshVivo
	for rows.Next() {
		var t TokenRefreshVivo
		if err := rows.Scan(&t.ID, &t.SessaoID, &t.TokenHash, &t.UsuarioID, &t.FamiliaID); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tokens, nil
}

// ListRefreshTokensRevogadosRecentes lista tokens já revogados dentro da
// janela de expiração. Um token apresentado que casa aqui foi reusado.
func (q *Queries) ListRefreshTokensRevogadosRecentes(ctx context.Context) ([]TokenRefreshVivo, error) {
	rows, err := q.pool.Query(ctx, `
        SELECT rt.id, rt.session_id, rt.token_hash, s.user_id, s.family_id
        FROM refresh_tokens rt
        JOIN sessions s ON s.id = rt.session_id
        WHERE rt.is_revoked = TRUE
          AND rt.expires_at > NOW()
    `)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var tokens []TokenRefreshVivo
	for rows.Next() {
		var t TokenRefreshVivo
		if err := rows.Scan(&t.ID, &t.SessaoID, &t.TokenHash, &t.UsuarioID, &t.FamiliaID); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tokens, nil
}

// RotateRefreshToken revoga o token antigo e insere o novo na mesma
// transação. A sessão nunca fica com dois tokens válidos simultâneos.
func (q *Queries) RotateRefreshToken(ctx context.Context, antigoID uuid.UUID, novo InsertRefreshTokenParams) error {
	return db.WithTx(ctx, q.pool, func(ctx context.Context, tx pgx.Tx) error {
		cmd, err := tx.Exec(ctx, `
            UPDATE refresh_tokens SET is_revoked = TRUE WHERE id = $1 AND is_revoked = FALSE
        `, antigoID)
		if err != nil {
			return mapError(err)
		}
		if cmd.RowsAffected() == 0 {
			return ErrNotFound
		}
		if _, err := tx.Exec(ctx, `
            INSERT INTO refresh_tokens (id, session_id, token_hash, expires_at)
            VALUES ($1, $2, $3, $4)
        `, novo.ID, novo.SessaoID, novo.TokenHash, novo.ExpiraEm); err != nil {
			return mapError(err)
		}
		return nil
	})
}

// RevokeRefreshToken revoga um refresh token isolado.
func (q *Queries) RevokeRefreshToken(ctx context.Context, id uuid.UUID) error {
	cmd, err := q.pool.Exec(ctx, `
        UPDATE refresh_tokens SET is_revoked = TRUE WHERE id = $1
    `, id)
	if err != nil {
		return mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// IsCoordenadorDoDepartamento verifica vínculo coordenador↔departamento.
func (q *Queries) IsCoordenadorDoDepartamento(ctx context.Context, usuarioID, depID uuid.UUID) (bool, error) {
	var ok bool
	err := q.pool.QueryRow(ctx, `
        SELECT EXISTS(SELECT 1 FROM coordenador_departamento WHERE id_user = $1 AND id_dep = $2)
    `, usuarioID, depID).Scan(&ok)
	if err != nil {
		return false, mapError(err)
	}
	return ok, nil
}

// IsCoordenadorDoCurso verifica vínculo coordenador↔curso.
func (q *Queries) IsCoordenadorDoCurso(ctx context.Context, usuarioID, cursoID uuid.UUID) (bool, error) {
	var ok bool
	err := q.pool.QueryRow(ctx, `
        SELECT EXISTS(SELECT 1 FROM coordenador_curso WHERE id_user = $1 AND id_curso = $2)
    `, usuarioID, cursoID).Scan(&ok)
	if err != nil {
		return false, mapError(err)
	}
	return ok, nil
}

// DepartamentoDaArea resolve o departamento dono de uma área científica.
func (q *Queries) DepartamentoDaArea(ctx context.Context, areaID uuid.UUID) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.pool.QueryRow(ctx, `
        SELECT id_dep FROM area_cientifica WHERE id_area = $1
    `, areaID).Scan(&id)
	if err != nil {
		return uuid.Nil, mapError(err)
	}
	return id, nil
}

// CursoDaUC resolve o curso dono de uma unidade curricular.
func (q *Queries) CursoDaUC(ctx context.Context, ucID uuid.UUID) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.pool.QueryRow(ctx, `
        SELECT id_curso FROM uc WHERE id_uc = $1
    `, ucID).Scan(&id)
	if err != nil {
		return uuid.Nil, mapError(err)
	}
	return id, nil
}

// AreaDoDocente resolve a área científica de um docente.
func (q *Queries) AreaDoDocente(ctx context.Context, docenteID uuid.UUID) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.pool.QueryRow(ctx, `
        SELECT id_area FROM docente WHERE id_doc = $1
    `, docenteID).Scan(&id)
	if err != nil {
		return uuid.Nil, mapError(err)
	}
	return id, nil
}

// IsDocenteDoUsuario verifica se o registro de docente pertence à conta.
func (q *Queries) IsDocenteDoUsuario(ctx context.Context, usuarioID, docenteID uuid.UUID) (bool, error) {
	var ok bool
	err := q.pool.QueryRow(ctx, `
        SELECT EXISTS(SELECT 1 FROM docente WHERE id_doc = $1 AND id_user = $2)
    `, docenteID, usuarioID).Scan(&ok)
	if err != nil {
		return false, mapError(err)
	}
	return ok, nil
}

// ListDepartamentosDoCoordenador lista ids de departamentos atribuídos.
func (q *Queries) ListDepartamentosDoCoordenador(ctx context.Context, usuarioID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := q.pool.Query(ctx, `
        SELECT id_dep FROM coordenador_departamento WHERE id_user = $1
    `, usuarioID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListCursosDoCoordenador lista ids de cursos atribuídos.
func (q *Queries) ListCursosDoCoordenador(ctx context.Context, usuarioID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := q.pool.Query(ctx, `
        SELECT id_curso FROM coordenador_curso WHERE id_user = $1
    `, usuarioID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AssignCoordenadorDepartamento cria vínculo coordenador↔departamento.
func (q *Queries) AssignCoordenadorDepartamento(ctx context.Context, usuarioID, depID uuid.UUID) error {
	_, err := q.pool.Exec(ctx, `
        INSERT INTO coordenador_departamento (id_user, id_dep)
        VALUES ($1, $2) ON CONFLICT DO NOTHING
    `, usuarioID, depID)
	return mapErrorNil(err)
}

// AssignCoordenadorCurso cria vínculo coordenador↔curso.
func (q *Queries) AssignCoordenadorCurso(ctx context.Context, usuarioID, cursoID uuid.UUID) error {
	_, err := q.pool.Exec(ctx, `
        INSERT INTO coordenador_curso (id_user, id_curso)
        VALUES ($1, $2) ON CONFLICT DO NOTHING
    `, usuarioID, cursoID)
	return mapErrorNil(err)
}

// RemoveCoordenadorDepartamento remove vínculo coordenador↔departamento.
func (q *Queries) RemoveCoordenadorDepartamento(ctx context.Context, usuarioID, depID uuid.UUID) error {
	_, err := q.pool.Exec(ctx, `
        DELETE FROM coordenador_departamento WHERE id_user = $1 AND id_dep = $2
    `, usuarioID, depID)
	return mapErrorNil(err)
}

// RemoveCoordenadorCurso remove vínculo coordenador↔curso.
func (q *Queries) RemoveCoordenadorCurso(ctx context.Context, usuarioID, cursoID uuid.UUID) error {
	_, err := q.pool.Exec(ctx, `
        DELETE FROM coordenador_curso WHERE id_user = $1 AND id_curso = $2
    `, usuarioID, cursoID)
	return mapErrorNil(err)
}

// InsertAuditLog grava evento de auditoria.
func (q *Queries) InsertAuditLog(ctx context.Context, acao string, usuarioID *uuid.UUID, detalhes []byte) error {
	_, err := q.pool.Exec(ctx, `
        INSERT INTO audit_logs (action, user_id, details) VALUES ($1, $2, $3)
    `, acao, usuarioID, detalhes)
	return mapErrorNil(err)
}

func mapErrorNil(err error) error {
	if err == nil {
		return nil
	}
	return mapError(err)
}
