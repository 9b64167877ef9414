package audit

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type logStore interface {
	InsertAuditLog(ctx context.Context, acao string, usuarioID *uuid.UUID, detalhes []byte) error
}

// Service grava eventos de auditoria. Escrita é fire-and-forget: falha de
// auditoria nunca derruba a operação auditada.
type Service struct {
	store logStore
}

// New cria o serviço sobre o armazenamento de logs.
func New(store logStore) *Service {
	return &Service{store: store}
}

// Record persiste o evento com detalhes serializados em JSON.
func (s *Service) Record(ctx context.Context, evento string, usuarioID *uuid.UUID, detalhes map[string]any) {
	if s == nil || s.store == nil {
		return
	}

	payload, err := json.Marshal(detalhes)
	if err != nil {
		log.Warn().Err(err).Str("evento", evento).Msg("auditoria: falha ao serializar detalhes")
		payload = []byte("{}")
	}

	if err := s.store.InsertAuditLog(ctx, evento, usuarioID, payload); err != nil {
		log.Warn().Err(err).Str("evento", evento).Msg("auditoria: falha ao gravar evento")
	}
}
