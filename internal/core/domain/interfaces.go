package domain

import (
	"context"
)

// UserRepository handles persistent accounts.
type UserRepository interface {
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByID(ctx context.Context, id int64) (*User, error)
}

type VentureRepository interface {
	ListVentures(ctx context.Context, scope UserScope) ([]Venture, error)
	GetVentureByID(ctx context.Context, id int64) (*Venture, error)
	CreateVenture(ctx context.Context, v *Venture) (int64, error)
	UpdateVenture(ctx context.Context, v *Venture) error
	DeleteVenture(ctx context.Context, id int64) error
}

type OfficeRepository interface {
	ListOffices(ctx context.Context, scope UserScope) ([]Office, error)
	GetOfficeByID(ctx context.Context, id int64) (*Office, error)
	CreateOffice(ctx context.Context, o *Office) (int64, error)
	UpdateOffice(ctx context.Context, o *Office) error
	DeleteOffice(ctx context.Context, id int64) error
}

type CarrierRepository interface {
	ListCarriers(ctx context.Context, scope UserScope, q string) ([]Carrier, error)
	GetCarrierByID(ctx context.Context, id int64) (*Carrier, error)
	CreateCarrier(ctx context.Context, c *Carrier) (int64, error)
	UpdateCarrier(ctx context.Context, c *Carrier) error
	DeleteCarrier(ctx context.Context, id int64) error
}

// LoadFilter narrows ListLoads beyond the caller's scope.
type LoadFilter struct {
	VentureID int64
	OfficeID  int64
	Status    LoadStatus
	Query     string
	Page      int
	PageSize  int
}

type LoadRepository interface {
	ListLoads(ctx context.Context, scope UserScope, f LoadFilter) ([]Load, int, error)
	GetLoadByID(ctx context.Context, id int64) (*Load, error)
	CreateLoad(ctx context.Context, l *Load) (int64, error)
	UpdateLoad(ctx context.Context, l *Load) error
	// ListLoadDates returns creation timestamps for one shipper ordered
	// ascending; scoring derives frequency patterns from them.
	ListLoadDates(ctx context.Context, shipperID int64) ([]int64, error)
	// Aggregates feeding the intelligence report.
	LaneStats(ctx context.Context, ventureID int64) ([]LaneStat, error)
	CsrStats(ctx context.Context, ventureID int64) ([]CsrStat, error)
	ShipperStats(ctx context.Context, ventureID int64) ([]ShipperStat, error)
}

type IncidentRepository interface {
	ListIncidents(ctx context.Context, scope UserScope) ([]Incident, error)
	GetIncidentByID(ctx context.Context, id int64) (*Incident, error)
	CreateIncident(ctx context.Context, in *Incident) (int64, error)
	UpdateIncident(ctx context.Context, in *Incident) error
}

// ConversationFilter narrows the dispatch inbox listing.
type ConversationFilter struct {
	Status   string
	Channel  Channel
	Search   string
	Page     int
	PageSize int
}

type ConversationRepository interface {
	ListConversations(ctx context.Context, scope UserScope, f ConversationFilter) ([]Conversation, int, error)
	GetConversationByID(ctx context.Context, id int64) (*Conversation, error)
	// FindOpenByAddress locates a non-archived thread for a channel/address
	// pair, most recent first.
	FindOpenByAddress(ctx context.Context, ch Channel, address string) (*Conversation, error)
	CreateConversation(ctx context.Context, c *Conversation) (int64, error)
	// Claim atomically assigns an OPEN conversation; returns
	// ErrAlreadyClaimed when another dispatcher won the race.
	Claim(ctx context.Context, convID, userID int64) error
	// Release clears the assignment; only the holder may release.
	Release(ctx context.Context, convID, userID int64) error
	TouchLastMessage(ctx context.Context, convID int64, incrementUnread bool) error
	ResetUnread(ctx context.Context, convID int64) error
}

type MessageRepository interface {
	ListMessages(ctx context.Context, convID int64) ([]Message, error)
	CreateMessage(ctx context.Context, m *Message) (int64, error)
	// FindByExternalID dedupes webhook redeliveries.
	FindByExternalID(ctx context.Context, externalID string) (*Message, error)
}

type NotificationRepository interface {
	CreateNotification(ctx context.Context, n *Notification) (int64, error)
	ListNotifications(ctx context.Context, userID int64) ([]Notification, error)
	ListUnread(ctx context.Context, userID int64) ([]Notification, error)
	CountUnread(ctx context.Context, userID int64) (int, error)
	GetNotificationByID(ctx context.Context, id int64) (*Notification, error)
	MarkRead(ctx context.Context, id int64) error
	MarkAllRead(ctx context.Context, userID int64) error
}

type IncentiveRepository interface {
	ListRules(ctx context.Context, ventureID int64) ([]IncentiveRule, error)
	// ReplaceAwardsForDay deletes and reinserts one venture's awards for one
	// day; other ventures' rows for that day stay untouched. Callers run it
	// inside a transaction so recomputation is idempotent.
	ReplaceAwardsForDay(ctx context.Context, ventureID int64, day string, awards []IncentiveAward) error
	ListAwardsForDay(ctx context.Context, ventureID int64, day string) ([]IncentiveAward, error)
	ListAwardsForUser(ctx context.Context, userID int64, from, to string) ([]IncentiveAward, error)
}

// MetricRepository surfaces the per-user daily metric buckets the incentive
// engine consumes.
type MetricRepository interface {
	MetricsForDay(ctx context.Context, ventureID int64, day string) (map[int64]map[string]float64, error)
}

type AuditRepository interface {
	CreateAuditEvent(ctx context.Context, e *AuditEvent) error
	ListAuditEvents(ctx context.Context, scope UserScope, limit int) ([]AuditEvent, error)
}
