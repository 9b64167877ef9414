package service

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/gestaodep/academico/internal/repo"
)

type stubPermissionRepo struct {
	depsDoCoordenador   map[uuid.UUID]map[uuid.UUID]bool
	cursosDoCoordenador map[uuid.UUID]map[uuid.UUID]bool
	depDaArea           map[uuid.UUID]uuid.UUID
	cursoDaUC           map[uuid.UUID]uuid.UUID
	areaDoDocente       map[uuid.UUID]uuid.UUID
	docentesDoUsuario   map[uuid.UUID]uuid.UUID // docenteID -> usuarioID
}

func (s *stubPermissionRepo) IsCoordenadorDoDepartamento(ctx context.Context, usuarioID, depID uuid.UUID) (bool, error) {
	return s.depsDoCoordenador[usuarioID][depID], nil
}

func (s *stubPermissionRepo) IsCoordenadorDoCurso(ctx context.Context, usuarioID, cursoID uuid.UUID) (bool, error) {
	return s.cursosDoCoordenador[usuarioID][cursoID], nil
}

func (s *stubPermissionRepo) DepartamentoDaArea(ctx context.Context, areaID uuid.UUID) (uuid.UUID, error) {
	if dep, ok := s.depDaArea[areaID]; ok {
		return dep, nil
	}
	return uuid.Nil, repo.ErrNotFound
}

func (s *stubPermissionRepo) CursoDaUC(ctx context.Context, ucID uuid.UUID) (uuid.UUID, error) {
	if curso, ok := s.cursoDaUC[ucID]; ok {
		return curso, nil
	}
	return uuid.Nil, repo.ErrNotFound
}

func (s *stubPermissionRepo) AreaDoDocente(ctx context.Context, docenteID uuid.UUID) (uuid.UUID, error) {
	if area, ok := s.areaDoDocente[docenteID]; ok {
		return area, nil
	}
	return uuid.Nil, repo.ErrNotFound
}

func (s *stubPermissionRepo) IsDocenteDoUsuario(ctx context.Context, usuarioID, docenteID uuid.UUID) (bool, error) {
	return s.docentesDoUsuario[docenteID] == usuarioID, nil
}

func (s *stubPermissionRepo) ListDepartamentosDoCoordenador(ctx context.Context, usuarioID uuid.UUID) ([]uuid.UUID, error) {
	var deps []uuid.UUID
	for dep := range s.depsDoCoordenador[usuarioID] {
		deps = append(deps, dep)
	}
	return deps, nil
}

func (s *stubPermissionRepo) ListCursosDoCoordenador(ctx context.Context, usuarioID uuid.UUID) ([]uuid.UUID, error) {
	var cursos []uuid.UUID
	for curso := range s.cursosDoCoordenador[usuarioID] {
		cursos = append(cursos, curso)
	}
	return cursos, nil
}

// Cenário compartilhado: coordenador vinculado a um departamento e um
// curso; docente dono de um registro; hierarquia área→departamento e
// uc→curso montada para os caminhos de ancestral.
type permFixture struct {
	svc *PermissionService

	coordenador uuid.UUID
	docenteUser uuid.UUID

	depAtribuido   uuid.UUID
	depAlheio      uuid.UUID
	cursoAtribuido uuid.UUID
	cursoAlheio    uuid.UUID
	areaDoDep      uuid.UUID
	ucDoCurso      uuid.UUID
	ucAlheia       uuid.UUID
	docenteProprio uuid.UUID
	docenteAlheio  uuid.UUID
}

func newPermFixture() *permFixture {
	f := &permFixture{
		coordenador:    uuid.New(),
		docenteUser:    uuid.New(),
		depAtribuido:   uuid.New(),
		depAlheio:      uuid.New(),
		cursoAtribuido: uuid.New(),
		cursoAlheio:    uuid.New(),
		areaDoDep:      uuid.New(),
		ucDoCurso:      uuid.New(),
		ucAlheia:       uuid.New(),
		docenteProprio: uuid.New(),
		docenteAlheio:  uuid.New(),
	}

	stub := &stubPermissionRepo{
		depsDoCoordenador: map[uuid.UUID]map[uuid.UUID]bool{
			f.coordenador: {f.depAtribuido: true},
		},
		cursosDoCoordenador: map[uuid.UUID]map[uuid.UUID]bool{
			f.coordenador: {f.cursoAtribuido: true},
		},
		depDaArea: map[uuid.UUID]uuid.UUID{
			f.areaDoDep: f.depAtribuido,
		},
		cursoDaUC: map[uuid.UUID]uuid.UUID{
			f.ucDoCurso: f.cursoAtribuido,
			f.ucAlheia:  f.cursoAlheio,
		},
		areaDoDocente: map[uuid.UUID]uuid.UUID{
			f.docenteProprio: f.areaDoDep,
			f.docenteAlheio:  f.areaDoDep,
		},
		docentesDoUsuario: map[uuid.UUID]uuid.UUID{
			f.docenteProprio: f.docenteUser,
			f.docenteAlheio:  uuid.New(),
		},
	}

	f.svc = NewPermissionService(stub)
	return f
}

func (f *permFixture) decide(t *testing.T, papel string, usuarioID uuid.UUID, acao Acao, recurso Recurso, c Contexto) bool {
	t.Helper()
	ok, err := f.svc.HasPermission(context.Background(), Principal{ID: usuarioID, Papel: papel}, acao, recurso, c)
	if err != nil {
		t.Fatalf("HasPermission(%s, %s, %s): %v", papel, acao, recurso, err)
	}
	return ok
}

func TestPermissaoAdministrador(t *testing.T) {
	f := newPermFixture()

	for _, recurso := range []Recurso{RecursoUsers, RecursoDepartamentos, RecursoNotas, RecursoDSD} {
		for _, acao := range []Acao{AcaoCreate, AcaoRead, AcaoUpdate, AcaoDelete} {
			if !f.decide(t, PapelAdministrador, uuid.New(), acao, recurso, Contexto{}) {
				t.Errorf("Administrador deveria poder %s em %s", acao, recurso)
			}
		}
	}
}

func TestPermissaoConvidado(t *testing.T) {
	f := newPermFixture()
	convidado := uuid.New()

	if !f.decide(t, PapelConvidado, convidado, AcaoRead, RecursoCursos, Contexto{}) {
		t.Error("Convidado deveria ler cursos")
	}
	if !f.decide(t, PapelConvidado, convidado, AcaoRead, RecursoUCs, Contexto{}) {
		t.Error("Convidado deveria ler UCs")
	}
	if f.decide(t, PapelConvidado, convidado, AcaoRead, RecursoDepartamentos, Contexto{}) {
		t.Error("Convidado não deveria ler departamentos")
	}
	if f.decide(t, PapelConvidado, convidado, AcaoCreate, RecursoCursos, Contexto{}) {
		t.Error("Convidado não deveria criar cursos")
	}
}

func TestPermissaoPapelDesconhecido(t *testing.T) {
	f := newPermFixture()
	if f.decide(t, "Reitor", uuid.New(), AcaoRead, RecursoCursos, Contexto{}) {
		t.Error("papel desconhecido deveria negar tudo")
	}
}

func TestPermissaoCoordenadorLeitura(t *testing.T) {
	f := newPermFixture()
	// Leitura é ampla inclusive sem contexto e sem vínculo.
	if !f.decide(t, PapelCoordenador, uuid.New(), AcaoRead, RecursoNotas, Contexto{}) {
		t.Error("Coordenador deveria ter leitura ampla")
	}
}

func TestPermissaoCoordenadorMutacoes(t *testing.T) {
	f := newPermFixture()

	casos := []struct {
		nome     string
		acao     Acao
		recurso  Recurso
		contexto Contexto
		esperado bool
	}{
		{"curso atribuído", AcaoUpdate, RecursoCursos, Contexto{CursoID: f.cursoAtribuido}, true},
		{"curso alheio", AcaoUpdate, RecursoCursos, Contexto{CursoID: f.cursoAlheio}, false},
		{"curso sem contexto", AcaoUpdate, RecursoCursos, Contexto{}, false},

		{"uc do curso atribuído", AcaoUpdate, RecursoUCs, Contexto{UCID: f.ucDoCurso}, true},
		{"uc de curso alheio", AcaoUpdate, RecursoUCs, Contexto{UCID: f.ucAlheia}, false},
		{"uc inexistente", AcaoUpdate, RecursoUCs, Contexto{UCID: uuid.New()}, false},
		{"uc com curso direto", AcaoCreate, RecursoUCs, Contexto{CursoID: f.cursoAtribuido}, true},

		{"horas via uc", AcaoUpdate, RecursoHoras, Contexto{UCID: f.ucDoCurso}, true},
		{"horas sem contexto", AcaoUpdate, RecursoHoras, Contexto{}, false},

		{"área do departamento atribuído", AcaoUpdate, RecursoAreas, Contexto{AreaID: f.areaDoDep}, true},
		{"área inexistente", AcaoUpdate, RecursoAreas, Contexto{AreaID: uuid.New()}, false},
		{"área com departamento direto", AcaoDelete, RecursoAreas, Contexto{DepartamentoID: f.depAtribuido}, true},
		{"área de departamento alheio", AcaoDelete, RecursoAreas, Contexto{DepartamentoID: f.depAlheio}, false},

		{"docente via área e departamento", AcaoUpdate, RecursoDocentes, Contexto{DocenteID: f.docenteProprio}, true},
		{"docente inexistente", AcaoUpdate, RecursoDocentes, Contexto{DocenteID: uuid.New()}, false},

		{"ano letivo com vínculo", AcaoCreate, RecursoAnosLetivos, Contexto{}, true},

		// Reservado ao Administrador mesmo com vínculos.
		{"usuários", AcaoUpdate, RecursoUsers, Contexto{}, false},
		{"departamentos", AcaoUpdate, RecursoDepartamentos, Contexto{DepartamentoID: f.depAtribuido}, false},
		{"notas", AcaoCreate, RecursoNotas, Contexto{CursoID: f.cursoAtribuido}, false},
		{"histórico de cv", AcaoUpdate, RecursoHistoricoCV, Contexto{}, false},
		{"dsd", AcaoCreate, RecursoDSD, Contexto{}, false},
	}

	for _, caso := range casos {
		t.Run(caso.nome, func(t *testing.T) {
			got := f.decide(t, PapelCoordenador, f.coordenador, caso.acao, caso.recurso, caso.contexto)
			if got != caso.esperado {
				t.Errorf("decisão = %v, esperado %v", got, caso.esperado)
			}
		})
	}
}

func TestPermissaoCoordenadorSemVinculos(t *testing.T) {
	f := newPermFixture()
	semVinculo := uuid.New()

	if f.decide(t, PapelCoordenador, semVinculo, AcaoCreate, RecursoAnosLetivos, Contexto{}) {
		t.Error("coordenador sem vínculos não deveria mexer em anos letivos")
	}
	if f.decide(t, PapelCoordenador, semVinculo, AcaoUpdate, RecursoCursos, Contexto{CursoID: f.cursoAtribuido}) {
		t.Error("curso de outro coordenador deveria negar")
	}
}

func TestPermissaoDocente(t *testing.T) {
	f := newPermFixture()

	casos := []struct {
		nome     string
		acao     Acao
		recurso  Recurso
		contexto Contexto
		esperado bool
	}{
		{"lê catálogo de cursos", AcaoRead, RecursoCursos, Contexto{}, true},
		{"lê catálogo de ucs", AcaoRead, RecursoUCs, Contexto{}, true},
		{"lê dsd", AcaoRead, RecursoDSD, Contexto{}, true},
		{"não lê usuários", AcaoRead, RecursoUsers, Contexto{}, false},

		{"lê o próprio registro", AcaoRead, RecursoDocentes, Contexto{DocenteID: f.docenteProprio}, true},
		{"não lê registro alheio", AcaoRead, RecursoDocentes, Contexto{DocenteID: f.docenteAlheio}, false},
		{"leitura própria sem contexto nega", AcaoRead, RecursoHoras, Contexto{}, false},
		{"lê as próprias notas", AcaoRead, RecursoNotas, Contexto{DocenteID: f.docenteProprio}, true},
		{"lê o próprio cv", AcaoRead, RecursoHistoricoCV, Contexto{DocenteID: f.docenteProprio}, true},

		{"cria entrada de cv", AcaoCreate, RecursoHistoricoCV, Contexto{}, true},
		{"não cria cursos", AcaoCreate, RecursoCursos, Contexto{}, false},

		{"atualiza o próprio registro", AcaoUpdate, RecursoDocentes, Contexto{DocenteID: f.docenteProprio}, true},
		{"não atualiza registro alheio", AcaoUpdate, RecursoDocentes, Contexto{DocenteID: f.docenteAlheio}, false},
		{"atualiza o próprio cv", AcaoUpdate, RecursoHistoricoCV, Contexto{DocenteID: f.docenteProprio}, true},
		{"não atualiza ucs", AcaoUpdate, RecursoUCs, Contexto{UCID: f.ucDoCurso}, false},
		{"não apaga nada", AcaoDelete, RecursoHistoricoCV, Contexto{DocenteID: f.docenteProprio}, false},
	}

	for _, caso := range casos {
		t.Run(caso.nome, func(t *testing.T) {
			got := f.decide(t, PapelDocente, f.docenteUser, caso.acao, caso.recurso, caso.contexto)
			if got != caso.esperado {
				t.Errorf("decisão = %v, esperado %v", got, caso.esperado)
			}
		})
	}
}
