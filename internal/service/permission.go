package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/gestaodep/academico/internal/repo"
)

// Papéis aceitos pelo sistema.
const (
	PapelAdministrador = "Administrador"
	PapelCoordenador   = "Coordenador"
	PapelDocente       = "Docente"
	PapelConvidado     = "Convidado"
)

// PapelValido verifica pertencimento ao conjunto de papéis aceitos.
func PapelValido(papel string) bool {
	switch papel {
	case PapelAdministrador, PapelCoordenador, PapelDocente, PapelConvidado:
		return true
	}
	return false
}

// Acao identifica a operação pretendida sobre um recurso.
type Acao string

const (
	AcaoCreate Acao = "create"
	AcaoRead   Acao = "read"
	AcaoUpdate Acao = "update"
	AcaoDelete Acao = "delete"
)

// Recurso identifica o tipo de recurso alvo da decisão.
type Recurso string

const (
	RecursoUsers         Recurso = "users"
	RecursoDepartamentos Recurso = "departments"
	RecursoCursos        Recurso = "courses"
	RecursoAreas         Recurso = "areas"
	RecursoDocentes      Recurso = "professors"
	RecursoUCs           Recurso = "ucs"
	RecursoAnosLetivos   Recurso = "academic_years"
	RecursoHoras         Recurso = "hours"
	RecursoNotas         Recurso = "grades"
	RecursoHistoricoCV   Recurso = "cv_history"
	RecursoDSD           Recurso = "dsd"
)

// Contexto carrega as chaves estrangeiras opcionais extraídas da rota.
// uuid.Nil significa ausente; contexto obrigatório ausente nega.
type Contexto struct {
	DepartamentoID uuid.UUID
	CursoID        uuid.UUID
	UCID           uuid.UUID
	AreaID         uuid.UUID
	DocenteID      uuid.UUID
}

// Principal é o sujeito autenticado visto pelo motor de permissões.
type Principal struct {
	ID    uuid.UUID
	Papel string
}

type permissionRepository interface {
	IsCoordenadorDoDepartamento(ctx context.Context, usuarioID, depID uuid.UUID) (bool, error)
	IsCoordenadorDoCurso(ctx context.Context, usuarioID, cursoID uuid.UUID) (bool, error)
	DepartamentoDaArea(ctx context.Context, areaID uuid.UUID) (uuid.UUID, error)
	CursoDaUC(ctx context.Context, ucID uuid.UUID) (uuid.UUID, error)
	AreaDoDocente(ctx context.Context, docenteID uuid.UUID) (uuid.UUID, error)
	IsDocenteDoUsuario(ctx context.Context, usuarioID, docenteID uuid.UUID) (bool, error)
	ListDepartamentosDoCoordenador(ctx context.Context, usuarioID uuid.UUID) ([]uuid.UUID, error)
	ListCursosDoCoordenador(ctx context.Context, usuarioID uuid.UUID) ([]uuid.UUID, error)
}

type decisao func(ctx context.Context, usuarioID uuid.UUID, c Contexto) (bool, error)

// PermissionService decide "este sujeito pode executar esta ação sobre
// esta instância de recurso". Sem efeitos colaterais além das consultas
// de posse/vínculo. Política: negar por omissão — contexto obrigatório
// ausente nega, recurso sem handler nega, ancestral inexistente nega.
type PermissionService struct {
	repo permissionRepository

	// Tabela explícita (recurso → decisão) para mutações de Coordenador;
	// mantém a matriz de permissões auditável num único lugar.
	coordenadorMutacoes map[Recurso]decisao
	docenteLeituras     map[Recurso]decisao
}

// NewPermissionService monta o motor com as tabelas de despacho.
func NewPermissionService(r permissionRepository) *PermissionService {
	s := &PermissionService{repo: r}

	s.coordenadorMutacoes = map[Recurso]decisao{
		// Gestão de contas, departamentos, notas, CV e DSD exige
		// Administrador.
		RecursoUsers:         negar,
		RecursoDepartamentos: negar,
		RecursoNotas:         negar,
		RecursoHistoricoCV:   negar,
		RecursoDSD:           negar,

		RecursoCursos:      s.cursoAtribuido,
		RecursoUCs:         s.cursoDaUCAtribuido,
		RecursoHoras:       s.cursoDaUCAtribuido,
		RecursoAreas:       s.departamentoDaAreaAtribuido,
		RecursoDocentes:    s.departamentoDoDocenteAtribuido,
		RecursoAnosLetivos: s.coordenadorAtivo,
	}

	s.docenteLeituras = map[Recurso]decisao{
		// Catálogo público.
		RecursoCursos: permitir,
		RecursoUCs:    permitir,
		// DSD: a permissão grossa é livre; o endpoint filtra para as
		// atribuições do próprio docente.
		RecursoDSD: permitir,
		// Registros próprios, condicionados à posse do registro de
		// docente apontado pelo contexto.
		RecursoDocentes:    s.registroProprio,
		RecursoHoras:       s.registroProprio,
		RecursoHistoricoCV: s.registroProprio,
		RecursoNotas:       s.registroProprio,
	}

	return s
}

// HasPermission resolve a decisão de autorização para o principal.
func (s *PermissionService) HasPermission(ctx context.Context, p Principal, acao Acao, recurso Recurso, c Contexto) (bool, error) {
	switch p.Papel {
	case PapelAdministrador:
		return true, nil
	case PapelCoordenador:
		return s.decidirCoordenador(ctx, p.ID, acao, recurso, c)
	case PapelDocente:
		return s.decidirDocente(ctx, p.ID, acao, recurso, c)
	case PapelConvidado:
		return acao == AcaoRead && (recurso == RecursoCursos || recurso == RecursoUCs), nil
	default:
		return false, nil
	}
}

// decidirCoordenador: leitura ampla, escrita limitada aos vínculos.
func (s *PermissionService) decidirCoordenador(ctx context.Context, usuarioID uuid.UUID, acao Acao, recurso Recurso, c Contexto) (bool, error) {
	if acao == AcaoRead {
		return true, nil
	}

	handler, ok := s.coordenadorMutacoes[recurso]
	if !ok {
		return false, nil
	}
	return handler(ctx, usuarioID, c)
}

// decidirDocente: catálogo público e registros próprios; criação apenas
// de histórico de CV; atualização apenas do próprio registro/CV.
func (s *PermissionService) decidirDocente(ctx context.Context, usuarioID uuid.UUID, acao Acao, recurso Recurso, c Contexto) (bool, error) {
	switch acao {
	case AcaoRead:
		handler, ok := s.docenteLeituras[recurso]
		if !ok {
			return false, nil
		}
		return handler(ctx, usuarioID, c)
	case AcaoCreate:
		return recurso == RecursoHistoricoCV, nil
	case AcaoUpdate:
		if recurso == RecursoDocentes || recurso == RecursoHistoricoCV {
			return s.registroProprio(ctx, usuarioID, c)
		}
		return false, nil
	default:
		return false, nil
	}
}

func permitir(context.Context, uuid.UUID, Contexto) (bool, error) { return true, nil }
func negar(context.Context, uuid.UUID, Contexto) (bool, error)    { return false, nil }

// registroProprio confere se o registro de docente do contexto pertence
// à conta autenticada.
func (s *PermissionService) registroProprio(ctx context.Context, usuarioID uuid.UUID, c Contexto) (bool, error) {
	if c.DocenteID == uuid.Nil {
		return false, nil
	}
	return s.repo.IsDocenteDoUsuario(ctx, usuarioID, c.DocenteID)
}

// cursoAtribuido exige vínculo direto com o curso do contexto.
func (s *PermissionService) cursoAtribuido(ctx context.Context, usuarioID uuid.UUID, c Contexto) (bool, error) {
	if c.CursoID == uuid.Nil {
		return false, nil
	}
	return s.repo.IsCoordenadorDoCurso(ctx, usuarioID, c.CursoID)
}

// cursoDaUCAtribuido aceita curso direto ou resolve o curso dono da UC.
func (s *PermissionService) cursoDaUCAtribuido(ctx context.Context, usuarioID uuid.UUID, c Contexto) (bool, error) {
	if c.CursoID != uuid.Nil {
		return s.repo.IsCoordenadorDoCurso(ctx, usuarioID, c.CursoID)
	}
	if c.UCID == uuid.Nil {
		return false, nil
	}
	cursoID, err := s.repo.CursoDaUC(ctx, c.UCID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return s.repo.IsCoordenadorDoCurso(ctx, usuarioID, cursoID)
}

// departamentoDaAreaAtribuido aceita departamento direto ou resolve o
// departamento dono da área.
func (s *PermissionService) departamentoDaAreaAtribuido(ctx context.Context, usuarioID uuid.UUID, c Contexto) (bool, error) {
	if c.DepartamentoID != uuid.Nil {
		return s.repo.IsCoordenadorDoDepartamento(ctx, usuarioID, c.DepartamentoID)
	}
	if c.AreaID == uuid.Nil {
		return false, nil
	}
	depID, err := s.repo.DepartamentoDaArea(ctx, c.AreaID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return s.repo.IsCoordenadorDoDepartamento(ctx, usuarioID, depID)
}

// departamentoDoDocenteAtribuido caminha docente→área→departamento
// quando o departamento não vem direto no contexto.
func (s *PermissionService) departamentoDoDocenteAtribuido(ctx context.Context, usuarioID uuid.UUID, c Contexto) (bool, error) {
	if c.DepartamentoID != uuid.Nil {
		return s.repo.IsCoordenadorDoDepartamento(ctx, usuarioID, c.DepartamentoID)
	}

	areaID := c.AreaID
	if areaID == uuid.Nil {
		if c.DocenteID == uuid.Nil {
			return false, nil
		}
		var err error
		areaID, err = s.repo.AreaDoDocente(ctx, c.DocenteID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return false, nil
			}
			return false, err
		}
	}

	depID, err := s.repo.DepartamentoDaArea(ctx, areaID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return s.repo.IsCoordenadorDoDepartamento(ctx, usuarioID, depID)
}

// coordenadorAtivo: qualquer vínculo de departamento ou curso habilita
// mutações de ano letivo.
func (s *PermissionService) coordenadorAtivo(ctx context.Context, usuarioID uuid.UUID, _ Contexto) (bool, error) {
	deps, err := s.repo.ListDepartamentosDoCoordenador(ctx, usuarioID)
	if err != nil {
		return false, err
	}
	if len(deps) > 0 {
		return true, nil
	}
	cursos, err := s.repo.ListCursosDoCoordenador(ctx, usuarioID)
	if err != nil {
		return false, err
	}
	return len(cursos) > 0, nil
}
