package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/gestaodep/academico/internal/audit"
	"github.com/gestaodep/academico/internal/auth"
	"github.com/gestaodep/academico/internal/repo"
)

var (
	// ErrInvalidCredentials indica falha de login. Email desconhecido,
	// conta desativada e senha errada produzem o mesmo erro para não
	// permitir enumeração de usuários.
	ErrInvalidCredentials = errors.New("credenciais inválidas")
	// ErrRefreshInvalid indica refresh token sem correspondência viva.
	ErrRefreshInvalid = errors.New("refresh token inválido ou expirado")
	// ErrSessionInvalid indica sessão revogada/expirada, conta inativa ou
	// token_version desatualizado.
	ErrSessionInvalid = errors.New("sessão inválida")
	// ErrSenhaJaDefinida indica tentativa de setup em conta com senha.
	ErrSenhaJaDefinida = errors.New("senha já definida")
	// ErrPapelInvalido indica papel fora do conjunto aceito no registro.
	ErrPapelInvalido = errors.New("papel inválido")
)

type authRepository interface {
	GetUsuarioByEmail(ctx context.Context, email string) (repo.Usuario, error)
	GetUsuarioByID(ctx context.Context, id uuid.UUID) (repo.Usuario, error)
	InsertUsuario(ctx context.Context, arg repo.InsertUsuarioParams) (repo.Usuario, error)
	SetSenhaHash(ctx context.Context, id uuid.UUID, hash string) error
	BumpTokenVersion(ctx context.Context, usuarioID uuid.UUID) error
	InsertSessao(ctx context.Context, usuarioID, familiaID uuid.UUID, expiraEm time.Time) (repo.Sessao, error)
	GetSessaoValida(ctx context.Context, id uuid.UUID) (repo.Sessao, error)
	RevokeSessao(ctx context.Context, id uuid.UUID) error
	RevokeSessoesDoUsuario(ctx context.Context, usuarioID uuid.UUID) error
	RevokeFamilia(ctx context.Context, familiaID uuid.UUID) error
	InsertRefreshToken(ctx context.Context, arg repo.InsertRefreshTokenParams) (repo.TokenRefresh, error)
	ListRefreshTokensVivos(ctx context.Context) ([]repo.TokenRefreshVivo, error)
	ListRefreshTokensRevogadosRecentes(ctx context.Context) ([]repo.TokenRefreshVivo, error)
	RotateRefreshToken(ctx context.Context, antigoID uuid.UUID, novo repo.InsertRefreshTokenParams) error
}

type redisCommander interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// AuthService concentra ciclo de vida de sessões, emissão e verificação
// de tokens de acesso.
type AuthService struct {
	repo       authRepository
	redis      redisCommander
	jwt        *auth.JWTManager
	audit      *audit.Service
	sessaoTTL  time.Duration
	refreshTTL time.Duration
}

// NewAuthService cria o serviço de autenticação.
func NewAuthService(r authRepository, redisClient redisCommander, jwtMgr *auth.JWTManager, auditor *audit.Service, sessaoTTL, refreshTTL time.Duration) *AuthService {
	return &AuthService{
		repo:       r,
		redis:      redisClient,
		jwt:        jwtMgr,
		audit:      auditor,
		sessaoTTL:  sessaoTTL,
		refreshTTL: refreshTTL,
	}
}

// LoginResult representa retorno padrão de autenticações.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	SessaoID     uuid.UUID
	Usuario      repo.Usuario
}

// Login autentica por email/senha e abre sessão nova com família própria.
func (s *AuthService) Login(ctx context.Context, email, senha string) (*LoginResult, error) {
	user, err := s.repo.GetUsuarioByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.audit.Record(ctx, "login_failed", nil, map[string]any{"email": email})
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.Ativo || user.SenhaHash == nil {
		s.audit.Record(ctx, "login_failed", &user.ID, map[string]any{"email": email})
		return nil, ErrInvalidCredentials
	}

	ok, err := auth.Verify(senha, *user.SenhaHash)
	if err != nil || !ok {
		s.audit.Record(ctx, "login_failed", &user.ID, map[string]any{"email": email})
		return nil, ErrInvalidCredentials
	}

	result, err := s.abrirSessao(ctx, user)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, "login_success", &user.ID, map[string]any{"sessao_id": result.SessaoID.String()})
	return result, nil
}

// Register cria conta nova e já devolve tokens (auto-login).
func (s *AuthService) Register(ctx context.Context, email, senha, papel string) (*LoginResult, error) {
	if papel == "" {
		papel = PapelConvidado
	}
	if !PapelValido(papel) {
		return nil, ErrPapelInvalido
	}

	hash, err := auth.Hash(senha)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.InsertUsuario(ctx, repo.InsertUsuarioParams{
		ID:        uuid.New(),
		Email:     strings.ToLower(strings.TrimSpace(email)),
		SenhaHash: &hash,
		Papel:     papel,
	})
	if err != nil {
		if errors.Is(err, repo.ErrConflict) {
			s.audit.Record(ctx, "register_failed", nil, map[string]any{"email": email, "motivo": "email duplicado"})
		}
		return nil, err
	}

	result, err := s.abrirSessao(ctx, user)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, "register_success", &user.ID, map[string]any{"email": user.Email, "papel": user.Papel})
	return result, nil
}

// Refresh troca refresh token por par novo, preservando sessão e família.
//
// O hash persistido usa salt aleatório, então não há busca por igualdade:
// o token apresentado é verificado contra cada hash vivo (O(n), aceitável
// na escala de sessões deste sistema). Reuso de token já revogado é
// tratado como sinal de comprometimento e revoga a família inteira.
func (s *AuthService) Refresh(ctx context.Context, rawToken string) (*LoginResult, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, ErrRefreshInvalid
	}

	vivos, err := s.repo.ListRefreshTokensVivos(ctx)
	if err != nil {
		return nil, err
	}

	var atual *repo.TokenRefreshVivo
	for i := range vivos {
		if auth.VerifyRefreshToken(rawToken, vivos[i].TokenHash) {
			atual = &vivos[i]
			break
		}
	}

	if atual == nil {
		return nil, s.tratarRefreshSemMatch(ctx, rawToken)
	}

	// Marcador secundário em Redis: revogação precisa constar nos dois
	// lados para o token continuar trocável.
	marcador := refreshMarkerKey(atual.ID)
	status, err := s.redis.Get(ctx, marcador).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	if errors.Is(err, redis.Nil) || status != "active" {
		s.audit.Record(ctx, "refresh_failed", &atual.UsuarioID, map[string]any{"motivo": "marcador ausente"})
		return nil, ErrRefreshInvalid
	}

	user, err := s.repo.GetUsuarioByID(ctx, atual.UsuarioID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrRefreshInvalid
		}
		return nil, err
	}
	if !user.Ativo {
		return nil, ErrRefreshInvalid
	}

	novoRaw, novoHash, err := auth.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	novo := repo.InsertRefreshTokenParams{
		ID:        uuid.New(),
		SessaoID:  atual.SessaoID,
		TokenHash: novoHash,
		ExpiraEm:  time.Now().UTC().Add(s.refreshTTL),
	}
	if err := s.repo.RotateRefreshToken(ctx, atual.ID, novo); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			// Corrida: outro pedido já trocou este token.
			return nil, ErrRefreshInvalid
		}
		return nil, err
	}

	if err := s.redis.Set(ctx, refreshMarkerKey(novo.ID), "active", s.refreshTTL).Err(); err != nil {
		log.Warn().Err(err).Msg("refresh: falha ao gravar marcador novo")
	}
	if err := s.redis.Del(ctx, marcador).Err(); err != nil && !errors.Is(err, redis.Nil) {
		log.Warn().Err(err).Msg("refresh: falha ao remover marcador antigo")
	}

	// Access token novo usa token_version e papel ATUAIS, não o snapshot
	// da emissão anterior.
	access, err := s.jwt.GenerateAccessToken(user.ID, atual.SessaoID, user.TokenVersion, user.Papel)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, "refresh_success", &user.ID, map[string]any{"sessao_id": atual.SessaoID.String()})

	return &LoginResult{
		AccessToken:  access,
		RefreshToken: novoRaw,
		SessaoID:     atual.SessaoID,
		Usuario:      user,
	}, nil
}

// tratarRefreshSemMatch distingue token desconhecido de token reusado.
// Reuso revoga a família inteira da sessão comprometida.
func (s *AuthService) tratarRefreshSemMatch(ctx context.Context, rawToken string) error {
	revogados, err := s.repo.ListRefreshTokensRevogadosRecentes(ctx)
	if err != nil {
		return err
	}

	for i := range revogados {
		if auth.VerifyRefreshToken(rawToken, revogados[i].TokenHash) {
			s.audit.Record(ctx, "refresh_reuse_detected", &revogados[i].UsuarioID, map[string]any{
				"sessao_id":  revogados[i].SessaoID.String(),
				"familia_id": revogados[i].FamiliaID.String(),
			})
			if err := s.repo.RevokeFamilia(ctx, revogados[i].FamiliaID); err != nil {
				return err
			}
			return ErrRefreshInvalid
		}
	}

	s.audit.Record(ctx, "refresh_failed", nil, map[string]any{"motivo": "token sem correspondência"})
	return ErrRefreshInvalid
}

// Logout revoga a sessão e seus refresh tokens. Idempotente.
func (s *AuthService) Logout(ctx context.Context, sessaoID uuid.UUID, usuarioID uuid.UUID) error {
	if err := s.repo.RevokeSessao(ctx, sessaoID); err != nil {
		return err
	}
	s.audit.Record(ctx, "logout_success", &usuarioID, map[string]any{"sessao_id": sessaoID.String()})
	return nil
}

// LogoutAll incrementa token_version (derruba todos os access tokens na
// hora, mesmo os não expirados) e revoga todas as sessões abertas.
func (s *AuthService) LogoutAll(ctx context.Context, usuarioID uuid.UUID) error {
	if err := s.repo.BumpTokenVersion(ctx, usuarioID); err != nil {
		return err
	}
	if err := s.repo.RevokeSessoesDoUsuario(ctx, usuarioID); err != nil {
		return err
	}
	s.audit.Record(ctx, "logout_all_success", &usuarioID, nil)
	return nil
}

// VerifyAccess valida um access token em três passos na ordem fixa:
// assinatura/expiração, sessão viva, usuário ativo com token_version
// igual ao snapshot. Um token roubado criptograficamente válido morre no
// instante em que a sessão é revogada ou a versão é incrementada.
func (s *AuthService) VerifyAccess(ctx context.Context, tokenString string) (*auth.Claims, error) {
	claims, err := s.jwt.ParseAndValidate(tokenString)
	if err != nil {
		return nil, err
	}

	usuarioID, err := claims.UsuarioID()
	if err != nil {
		return nil, auth.ErrTokenInvalido
	}

	sessao, err := s.repo.GetSessaoValida(ctx, claims.SessaoID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrSessionInvalid
		}
		return nil, err
	}
	if sessao.UsuarioID != usuarioID {
		return nil, ErrSessionInvalid
	}

	user, err := s.repo.GetUsuarioByID(ctx, usuarioID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrSessionInvalid
		}
		return nil, err
	}
	if !user.Ativo || user.TokenVersion != claims.TokenVersion {
		return nil, ErrSessionInvalid
	}

	return claims, nil
}

// SetupPassword define a senha de conta criada sem senha (onboarding de
// docentes feito pelo administrador).
func (s *AuthService) SetupPassword(ctx context.Context, email, senha string) error {
	user, err := s.repo.GetUsuarioByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return err
	}
	if user.SenhaHash != nil {
		return ErrSenhaJaDefinida
	}

	hash, err := auth.Hash(senha)
	if err != nil {
		return err
	}
	if err := s.repo.SetSenhaHash(ctx, user.ID, hash); err != nil {
		return err
	}

	s.audit.Record(ctx, "password_setup_success", &user.ID, map[string]any{"email": user.Email})
	return nil
}

// PrecisaDefinirSenha informa se a conta ainda não tem senha definida.
func (s *AuthService) PrecisaDefinirSenha(ctx context.Context, email string) (bool, error) {
	user, err := s.repo.GetUsuarioByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return false, err
	}
	return user.SenhaHash == nil, nil
}

// Me retorna a conta do sujeito autenticado.
func (s *AuthService) Me(ctx context.Context, usuarioID uuid.UUID) (repo.Usuario, error) {
	return s.repo.GetUsuarioByID(ctx, usuarioID)
}

// abrirSessao cria sessão, refresh token e access token para o usuário.
func (s *AuthService) abrirSessao(ctx context.Context, user repo.Usuario) (*LoginResult, error) {
	agora := time.Now().UTC()

	sessao, err := s.repo.InsertSessao(ctx, user.ID, uuid.New(), agora.Add(s.sessaoTTL))
	if err != nil {
		return nil, err
	}

	rawRefresh, refreshHash, err := auth.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	token, err := s.repo.InsertRefreshToken(ctx, repo.InsertRefreshTokenParams{
		ID:        uuid.New(),
		SessaoID:  sessao.ID,
		TokenHash: refreshHash,
		ExpiraEm:  agora.Add(s.refreshTTL),
	})
	if err != nil {
		return nil, err
	}

	if err := s.redis.Set(ctx, refreshMarkerKey(token.ID), "active", s.refreshTTL).Err(); err != nil {
		log.Warn().Err(err).Msg("sessão: falha ao gravar marcador de refresh")
	}

	access, err := s.jwt.GenerateAccessToken(user.ID, sessao.ID, user.TokenVersion, user.Papel)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		AccessToken:  access,
		RefreshToken: rawRefresh,
		SessaoID:     sessao.ID,
		Usuario:      user,
	}, nil
}

func refreshMarkerKey(tokenID uuid.UUID) string {
	return "refresh:" + tokenID.String()
}
