package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opsdeck/internal/core/domain"
	"opsdeck/internal/core/services"
)

type fakeQueue struct {
	acked   []string
	deleted []string
}

func (f *fakeQueue) PublishToStream(context.Context, string, []byte) error { return nil }

func (f *fakeQueue) SubscribeToStream(ctx context.Context, _, _ string, _ func(context.Context, string, []byte) error) error {
	<-ctx.Done()
	return ctx.Err()
}

func (f *fakeQueue) AcknowledgeMessage(_ context.Context, _, _, messageID string) error {
	f.acked = append(f.acked, messageID)
	return nil
}

func (f *fakeQueue) DeleteMessage(_ context.Context, _, messageID string) error {
	f.deleted = append(f.deleted, messageID)
	return nil
}

type fakeAuditRepo struct {
	events []domain.AuditEvent
	err    error
}

func (f *fakeAuditRepo) CreateAuditEvent(_ context.Context, e *domain.AuditEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, *e)
	return nil
}

func (f *fakeAuditRepo) ListAuditEvents(context.Context, domain.UserScope, int) ([]domain.AuditEvent, error) {
	return f.events, nil
}

func newTestWorker(queue *fakeQueue, repo *fakeAuditRepo) *AuditWorker {
	w := NewAuditWorker(slog.New(slog.DiscardHandler), queue, repo, "audit-workers").(*AuditWorker)
	w.topic = "audit:events"
	return w
}

func TestProcessMessagePersistsAndAcks(t *testing.T) {
	t.Parallel()
	queue := &fakeQueue{}
	repo := &fakeAuditRepo{}
	w := newTestWorker(queue, repo)

	raw, err := json.Marshal(services.AuditEntry{
		ActorID:   9,
		Action:    "conversation.claim",
		Entity:    "conversation",
		EntityID:  5,
		VentureID: 1,
		At:        1750000000,
	})
	require.NoError(t, err)

	require.NoError(t, w.ProcessMessage(context.Background(), "1-0", raw))
	require.Len(t, repo.events, 1)
	e := repo.events[0]
	assert.Equal(t, "conversation.claim", e.Action)
	assert.Equal(t, int64(9), e.ActorID)
	assert.Equal(t, int64(1750000000), e.CreatedAt.Unix())
	assert.Equal(t, []string{"1-0"}, queue.acked)
	assert.Equal(t, []string{"1-0"}, queue.deleted)
}

func TestProcessMessagePoisonPayloadIsAckedAndSkipped(t *testing.T) {
	t.Parallel()
	queue := &fakeQueue{}
	repo := &fakeAuditRepo{}
	w := newTestWorker(queue, repo)

	require.NoError(t, w.ProcessMessage(context.Background(), "2-0", []byte("{not json")))
	assert.Empty(t, repo.events)
	assert.Equal(t, []string{"2-0"}, queue.acked)
}

func TestProcessMessagePersistFailureLeavesPending(t *testing.T) {
	t.Parallel()
	queue := &fakeQueue{}
	repo := &fakeAuditRepo{err: errors.New("db down")}
	w := newTestWorker(queue, repo)

	raw, _ := json.Marshal(services.AuditEntry{Action: "load.create"})
	err := w.ProcessMessage(context.Background(), "3-0", raw)
	assert.Error(t, err)
	assert.Empty(t, queue.acked, "failed entries must stay pending for retry")
}

func TestProcessMessageRetryAfterPersistFailureSucceeds(t *testing.T) {
	t.Parallel()
	queue := &fakeQueue{}
	repo := &fakeAuditRepo{err: errors.New("db down")}
	w := newTestWorker(queue, repo)

	raw, _ := json.Marshal(services.AuditEntry{ActorID: 4, Action: "venture.update", At: 1750000000})
	require.Error(t, w.ProcessMessage(context.Background(), "4-0", raw))
	require.Empty(t, queue.acked)

	// The entry stays pending and gets replayed once the database recovers,
	// the way the queue's claim pass redelivers it after a restart.
	repo.err = nil
	require.NoError(t, w.ProcessMessage(context.Background(), "4-0", raw))
	require.Len(t, repo.events, 1)
	assert.Equal(t, "venture.update", repo.events[0].Action)
	assert.Equal(t, []string{"4-0"}, queue.acked)
	assert.Equal(t, []string{"4-0"}, queue.deleted)
}
