package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"opsdeck/internal/core/contracts"
	"opsdeck/internal/core/domain"
	"opsdeck/internal/core/services"
)

// AuditWorker drains the audit stream and turns entries into durable trail
// rows. It is the only writer of the audit table; producers never touch the
// database on the hot path.
type AuditWorker struct {
	log   *slog.Logger
	queue contracts.EventQueue
	repo  domain.AuditRepository
	group string
	topic string
}

func NewAuditWorker(
	log *slog.Logger,
	queue contracts.EventQueue,
	repo domain.AuditRepository,
	group string,
) contracts.AsyncWorker {
	return &AuditWorker{
		log:   log,
		queue: queue,
		repo:  repo,
		group: group,
	}
}

// Run blocks on the consumer-group read loop until ctx is cancelled.
func (w *AuditWorker) Run(ctx context.Context, topic string) error {
	w.topic = topic
	w.log.InfoContext(ctx, "worker - run - consuming audit stream", "topic", topic, "group", w.group)
	return w.queue.SubscribeToStream(ctx, topic, w.group, w.ProcessMessage)
}

func (w *AuditWorker) ProcessMessage(ctx context.Context, messageID string, raw []byte) error {
	var entry services.AuditEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		// Poison entries are acked so they never block the group.
		w.log.ErrorContext(ctx, "worker - process message - bad payload", "message_id", messageID, "err", err)
		_ = w.queue.AcknowledgeMessage(ctx, w.topic, w.group, messageID)
		_ = w.queue.DeleteMessage(ctx, w.topic, messageID)
		return nil
	}
	event := &domain.AuditEvent{
		ActorID:   entry.ActorID,
		Action:    entry.Action,
		Entity:    entry.Entity,
		EntityID:  entry.EntityID,
		VentureID: entry.VentureID,
		Detail:    entry.Detail,
		CreatedAt: time.Unix(entry.At, 0),
	}
	if err := w.repo.CreateAuditEvent(ctx, event); err != nil {
		// Leave the entry pending; the claim pass replays it on restart.
		w.log.ErrorContext(ctx, "worker - process message - persist failed", "message_id", messageID, "action", entry.Action, "err", err)
		return err
	}
	if err := w.queue.AcknowledgeMessage(ctx, w.topic, w.group, messageID); err != nil {
		w.log.ErrorContext(ctx, "worker - process message - acknowledge failed", "message_id", messageID, "err", err)
		return err
	}
	if err := w.queue.DeleteMessage(ctx, w.topic, messageID); err != nil {
		// Already processed and acked; trimming is best effort.
		w.log.WarnContext(ctx, "worker - process message - delete failed", "message_id", messageID, "err", err)
	}
	return nil
}
