package contracts

import (
	"opsdeck/internal/core/domain"
)

// Sink is the transport-owned write handle the registry pushes serialized
// envelopes through. Implementations (SSE, WebSocket) own the underlying
// connection resource; the registry only borrows the handle.
type Sink interface {
	// Write delivers one serialized envelope. Best effort: implementations
	// may drop on backpressure and must never block indefinitely.
	Write(data []byte) error
	Close()
}

// Notifier decouples producers of domain events from the transport mechanics
// of pushing to zero or more live connections. Every method is fire-and-forget:
// it never blocks materially, never returns an error, and tolerates the
// common case that the target is not connected.
type Notifier interface {
	PushToUser(userID int64, n domain.DispatchNotification)
	PushToVenture(ventureID int64, n domain.DispatchNotification)
	PushUnreadCount(userID int64, count int)
}

// NopNotifier is substituted where the streaming feature is unavailable so
// producers never need runtime existence checks.
type NopNotifier struct{}

func (NopNotifier) PushToUser(int64, domain.DispatchNotification)    {}
func (NopNotifier) PushToVenture(int64, domain.DispatchNotification) {}
func (NopNotifier) PushUnreadCount(int64, int)                       {}
