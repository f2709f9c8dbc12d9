package registry

import (
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opsdeck/internal/core/domain"
)

// fakeSink records every write so tests can assert exact delivery.
type fakeSink struct {
	mu     sync.Mutex
	writes [][]byte
	err    error
	closed bool
}

func (s *fakeSink) Write(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	s.writes = append(s.writes, cp)
	return nil
}

func (s *fakeSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.writes)
}

func (s *fakeSink) last() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.writes) == 0 {
		return nil
	}
	return s.writes[len(s.writes)-1]
}

func newTestRegistry() *Registry {
	return NewRegistry(slog.New(slog.DiscardHandler))
}

func TestRegisterUnregisterMembership(t *testing.T) {
	t.Parallel()

	r := newTestRegistry()

	a := r.Register(1, 5, &fakeSink{})
	b := r.Register(1, 5, &fakeSink{})
	c := r.Register(2, 0, &fakeSink{})

	assert.Equal(t, 2, r.ConnectionsForUser(1), "user 1 keeps both tab connections")
	assert.Equal(t, 1, r.ConnectionsForUser(2))
	assert.Equal(t, 2, r.ConnectionsForVenture(5), "only venture-scoped connections join the broadcast set")

	r.Unregister(a)
	assert.Equal(t, 1, r.ConnectionsForUser(1))
	assert.Equal(t, 1, r.ConnectionsForVenture(5))

	r.Unregister(b)
	r.Unregister(c)
	assert.Zero(t, r.ConnectionsForUser(1))
	assert.Zero(t, r.ConnectionsForUser(2))
	assert.Zero(t, r.ConnectionsForVenture(5))
}

func TestUnregisterIsIdempotent(t *testing.T) {
	t.Parallel()

	r := newTestRegistry()
	conn := r.Register(1, 5, &fakeSink{})

	r.Unregister(conn)
	require.Zero(t, r.ConnectionsForUser(1))

	// Second removal and nil removal both leave the registry unchanged.
	assert.NotPanics(t, func() {
		r.Unregister(conn)
		r.Unregister(nil)
	})
	assert.Zero(t, r.ConnectionsForUser(1))
	assert.Zero(t, r.ConnectionsForVenture(5))
}

func TestUnregisterUnknownConnectionIsNoOp(t *testing.T) {
	t.Parallel()

	r := newTestRegistry()
	r.Register(1, 0, &fakeSink{})

	other := newTestRegistry()
	stray := other.Register(1, 0, &fakeSink{})

	assert.NotPanics(t, func() { r.Unregister(stray) })
	assert.Equal(t, 1, r.ConnectionsForUser(1))
}

func TestPushToUserNoConnections(t *testing.T) {
	t.Parallel()

	r := newTestRegistry()
	assert.NotPanics(t, func() {
		r.PushToUser(42, domain.DispatchNotification{Type: domain.EventNewMessage})
	})
}

func TestPushToUserWritesEveryConnectionIdentically(t *testing.T) {
	t.Parallel()

	r := newTestRegistry()
	sinks := []*fakeSink{{}, {}, {}}
	for _, s := range sinks {
		r.Register(7, 0, s)
	}

	r.PushToUser(7, domain.DispatchNotification{
		Type:           domain.EventNewMessage,
		ConversationID: 42,
		Message:        "rate confirmation received",
		Channel:        domain.ChannelSMS,
	})

	for i, s := range sinks {
		require.Equal(t, 1, s.count(), "sink %d should receive exactly one write", i)
	}
	assert.Equal(t, sinks[0].last(), sinks[1].last())
	assert.Equal(t, sinks[1].last(), sinks[2].last())
	assert.JSONEq(t,
		`{"type":"NEW_MESSAGE","conversationId":42,"message":"rate confirmation received","channel":"SMS"}`,
		string(sinks[0].last()))
}

func TestPushIsolatesFailingConnection(t *testing.T) {
	t.Parallel()

	r := newTestRegistry()
	ok1 := &fakeSink{}
	broken := &fakeSink{err: errors.New("client went away")}
	ok2 := &fakeSink{}
	r.Register(3, 0, ok1)
	r.Register(3, 0, broken)
	r.Register(3, 0, ok2)

	assert.NotPanics(t, func() {
		r.PushToUser(3, domain.DispatchNotification{Type: domain.EventConversationClaimed, ConversationID: 9})
	})

	assert.Equal(t, 1, ok1.count(), "healthy connections still receive the write")
	assert.Equal(t, 1, ok2.count())
	assert.Zero(t, broken.count())
}

func TestPushToVentureExactMembership(t *testing.T) {
	t.Parallel()

	r := newTestRegistry()
	inGroup := &fakeSink{}
	otherVenture := &fakeSink{}
	noVenture := &fakeSink{}
	r.Register(1, 5, inGroup)
	r.Register(2, 6, otherVenture)
	r.Register(3, 0, noVenture)

	r.PushToVenture(5, domain.DispatchNotification{Type: domain.EventNewConversation, ConversationID: 11})

	assert.Equal(t, 1, inGroup.count())
	assert.Zero(t, otherVenture.count(), "different tenant must not receive the broadcast")
	assert.Zero(t, noVenture.count(), "connections without a venture never join broadcast sets")
}

func TestVentureBroadcastThenDirectPush(t *testing.T) {
	t.Parallel()

	r := newTestRegistry()
	sinkA := &fakeSink{}
	sinkB := &fakeSink{}
	r.Register(1, 5, sinkA)
	r.Register(2, 5, sinkB)

	r.PushToVenture(5, domain.DispatchNotification{Type: domain.EventNewConversation, ConversationID: 42})

	require.Equal(t, 1, sinkA.count())
	require.Equal(t, 1, sinkB.count())
	assert.JSONEq(t, `{"type":"NEW_CONVERSATION","conversationId":42}`, string(sinkA.last()))
	assert.JSONEq(t, `{"type":"NEW_CONVERSATION","conversationId":42}`, string(sinkB.last()))

	r.PushToUser(1, domain.DispatchNotification{Type: domain.EventNewMessage, ConversationID: 42})

	assert.Equal(t, 2, sinkA.count(), "direct push reaches only user 1")
	assert.Equal(t, 1, sinkB.count())
}

func TestPushAfterUnregisterWritesNothing(t *testing.T) {
	t.Parallel()

	r := newTestRegistry()
	sink := &fakeSink{}
	conn := r.Register(1, 0, sink)
	r.Unregister(conn)

	assert.NotPanics(t, func() {
		r.PushToUser(1, domain.DispatchNotification{Type: domain.EventNewMessage})
	})
	assert.Zero(t, sink.count())
}

func TestPushUnreadCount(t *testing.T) {
	t.Parallel()

	r := newTestRegistry()
	sink := &fakeSink{}
	r.Register(4, 0, sink)

	r.PushUnreadCount(4, 3)
	require.Equal(t, 1, sink.count())
	assert.JSONEq(t, `{"type":"UNREAD_COUNT","count":3}`, string(sink.last()))

	// Zero is a meaningful counter value and must survive serialization.
	r.PushUnreadCount(4, 0)
	require.Equal(t, 2, sink.count())
	assert.JSONEq(t, `{"type":"UNREAD_COUNT","count":0}`, string(sink.last()))
}

func TestConcurrentRegisterPushUnregister(t *testing.T) {
	t.Parallel()

	r := newTestRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				conn := r.Register(userID, 5, &fakeSink{})
				r.PushToUser(userID, domain.DispatchNotification{Type: domain.EventNewMessage})
				r.PushToVenture(5, domain.DispatchNotification{Type: domain.EventNewConversation})
				r.Unregister(conn)
			}
		}(int64(i % 4))
	}
	wg.Wait()

	for userID := int64(0); userID < 4; userID++ {
		assert.Zero(t, r.ConnectionsForUser(userID))
	}
	assert.Zero(t, r.ConnectionsForVenture(5))
}
