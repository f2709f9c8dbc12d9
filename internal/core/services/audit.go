package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"opsdeck/internal/core/contracts"
)

// AuditEntry is the stream payload; the worker turns it into a durable row.
type AuditEntry struct {
	ActorID   int64  `json:"actorId"`
	Action    string `json:"action"`
	Entity    string `json:"entity"`
	EntityID  int64  `json:"entityId"`
	VentureID int64  `json:"ventureId,omitempty"`
	Detail    string `json:"detail,omitempty"`
	At        int64  `json:"at"`
}

// AuditService publishes audit entries to the redis stream the trail worker
// drains. Enqueue failures are logged and swallowed: the audit trail must
// never fail the primary operation.
type AuditService struct {
	log    *slog.Logger
	queue  contracts.EventQueue
	stream string
}

func NewAuditService(log *slog.Logger, queue contracts.EventQueue, stream string) *AuditService {
	return &AuditService{log: log, queue: queue, stream: stream}
}

func (s *AuditService) Record(ctx context.Context, e AuditEntry) {
	e.At = time.Now().Unix()
	raw, err := json.Marshal(e)
	if err != nil {
		s.log.ErrorContext(ctx, "audit - record - marshal failed", "action", e.Action, "err", err)
		return
	}
	if err := s.queue.PublishToStream(ctx, s.stream, raw); err != nil {
		s.log.ErrorContext(ctx, "audit - record - publish failed", "action", e.Action, "entity", e.Entity, "err", err)
	}
}
