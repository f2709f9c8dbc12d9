package registry

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"opsdeck/internal/core/contracts"
	"opsdeck/internal/core/domain"
)

// Connection is one open streaming channel to a client. It lives exactly as
// long as the transport's request handler holds it; it is never persisted.
type Connection struct {
	id        uuid.UUID
	userID    int64
	ventureID int64 // 0 = no broadcast-group membership
	sink      contracts.Sink
	openedAt  time.Time
}

func (c *Connection) ID() uuid.UUID    { return c.id }
func (c *Connection) UserID() int64    { return c.userID }
func (c *Connection) VentureID() int64 { return c.ventureID }

// Registry is the process-wide fan-out table: user id and venture id each map
// to the set of live connections. A connection appears in exactly the per-user
// set of its owner and, when it declares a venture, in that venture's
// broadcast set. Explicitly constructed and injected; never ambient state.
type Registry struct {
	mu        sync.RWMutex
	byUser    map[int64]map[*Connection]struct{}
	byVenture map[int64]map[*Connection]struct{}
	log       *slog.Logger
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		byUser:    make(map[int64]map[*Connection]struct{}),
		byVenture: make(map[int64]map[*Connection]struct{}),
		log:       log,
	}
}

// Register inserts a connection into the per-user set and, when ventureID is
// nonzero, the venture broadcast set. Registration always succeeds; the same
// user may register any number of connections (multiple tabs/devices). Both
// sets are updated under one critical section so a concurrent push can never
// observe a half-registered connection.
func (r *Registry) Register(userID, ventureID int64, sink contracts.Sink) *Connection {
	c := &Connection{
		id:        uuid.New(),
		userID:    userID,
		ventureID: ventureID,
		sink:      sink,
		openedAt:  time.Now(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byUser[userID] == nil {
		r.byUser[userID] = make(map[*Connection]struct{})
	}
	r.byUser[userID][c] = struct{}{}
	if ventureID != 0 {
		if r.byVenture[ventureID] == nil {
			r.byVenture[ventureID] = make(map[*Connection]struct{})
		}
		r.byVenture[ventureID][c] = struct{}{}
	}
	return c
}

// Unregister removes the connection from every set it was inserted into.
// Idempotent: repeated calls, or calls for a connection never registered, are
// silent no-ops.
func (r *Registry) Unregister(c *Connection) {
	if c == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if set := r.byUser[c.userID]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(r.byUser, c.userID)
		}
	}
	if c.ventureID != 0 {
		if set := r.byVenture[c.ventureID]; set != nil {
			delete(set, c)
			if len(set) == 0 {
				delete(r.byVenture, c.ventureID)
			}
		}
	}
}

// PushToUser delivers one envelope to every live connection of a user.
// Best effort: zero registered connections is a silent no-op, a write failure
// on one connection is logged and isolated from the rest, and nothing ever
// propagates back to the producer.
func (r *Registry) PushToUser(userID int64, n domain.DispatchNotification) {
	data, err := json.Marshal(n)
	if err != nil {
		r.log.Error("registry - push to user - marshal failed", "user_id", userID, "err", err)
		return
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for c := range r.byUser[userID] {
		if err := c.sink.Write(data); err != nil {
			r.log.Warn("registry - push to user - write failed", "user_id", userID, "conn_id", c.id.String(), "err", err)
		}
	}
}

// PushToVenture fans one envelope out to every connection registered under
// the venture broadcast set (all dispatchers watching that venture).
func (r *Registry) PushToVenture(ventureID int64, n domain.DispatchNotification) {
	data, err := json.Marshal(n)
	if err != nil {
		r.log.Error("registry - push to venture - marshal failed", "venture_id", ventureID, "err", err)
		return
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for c := range r.byVenture[ventureID] {
		if err := c.sink.Write(data); err != nil {
			r.log.Warn("registry - push to venture - write failed", "venture_id", ventureID, "conn_id", c.id.String(), "err", err)
		}
	}
}

// PushUnreadCount pushes the fixed unread-counter envelope to a user.
func (r *Registry) PushUnreadCount(userID int64, count int) {
	data, err := json.Marshal(domain.UnreadCountUpdate{Type: domain.EventUnreadCount, Count: count})
	if err != nil {
		r.log.Error("registry - push unread count - marshal failed", "user_id", userID, "err", err)
		return
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for c := range r.byUser[userID] {
		if err := c.sink.Write(data); err != nil {
			r.log.Warn("registry - push unread count - write failed", "user_id", userID, "conn_id", c.id.String(), "err", err)
		}
	}
}

// ConnectionsForUser reports the current number of live connections for a
// user; used by tests and the health surface.
func (r *Registry) ConnectionsForUser(userID int64) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID])
}

// ConnectionsForVenture reports the broadcast-set size for a venture.
func (r *Registry) ConnectionsForVenture(ventureID int64) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byVenture[ventureID])
}
