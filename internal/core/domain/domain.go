package domain

import (
	"time"
)

// SessionUser is the authenticated identity resolved from a JWT by the auth
// middleware. VentureIDs/OfficeIDs carry the assigned scope for roles that
// are not globally scoped.
type SessionUser struct {
	ID         int64
	Email      string
	FullName   string
	Role       Role
	VentureIDs []int64
	OfficeIDs  []int64
}

// Venture is a top-level business unit of the holding company.
type Venture struct {
	ID        int64
	Name      string
	Kind      VentureKind
	Active    bool
	CreatedAt time.Time
}

type VentureKind string

const (
	VentureFreight VentureKind = "FREIGHT"
	VentureHotel   VentureKind = "HOTEL"
	VentureBPO     VentureKind = "BPO"
)

type Office struct {
	ID        int64
	VentureID int64
	Name      string
	City      string
	State     string
	CreatedAt time.Time
}

type Carrier struct {
	ID        int64
	VentureID int64
	Name      string
	MCNumber  string
	Phone     string
	Email     string
	Active    bool
	CreatedAt time.Time
}

type LoadStatus string

const (
	LoadQuoted    LoadStatus = "QUOTED"
	LoadBooked    LoadStatus = "BOOKED"
	LoadCovered   LoadStatus = "COVERED"
	LoadDelivered LoadStatus = "DELIVERED"
	LoadLost      LoadStatus = "LOST"
)

type Load struct {
	ID           int64
	VentureID    int64
	OfficeID     int64
	CarrierID    int64
	ShipperID    int64
	Reference    string
	Status       LoadStatus
	PickupCity   string
	PickupState  string
	DropCity     string
	DropState    string
	RevenueCents int64
	MarginCents  int64
	PickupDate   time.Time
	CreatedByID  int64
	CreatedAt    time.Time
}

type IncidentStatus string

const (
	IncidentOpen           IncidentStatus = "OPEN"
	IncidentInProgress     IncidentStatus = "IN_PROGRESS"
	IncidentWaitingForInfo IncidentStatus = "WAITING_FOR_INFO"
	IncidentResolved       IncidentStatus = "RESOLVED"
	IncidentClosed         IncidentStatus = "CLOSED"
)

// Incident is an IT incident ticket scoped to a venture/office.
type Incident struct {
	ID           int64
	VentureID    int64
	OfficeID     int64
	Title        string
	Description  string
	Status       IncidentStatus
	Severity     string
	ReporterID   int64
	AssignedToID int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// StaleAfter is the open-incident age at which an incident is flagged stale.
const StaleAfter = 7 * 24 * time.Hour

// IsStale reports whether an open-ish incident has aged past StaleAfter.
func (i Incident) IsStale(now time.Time) bool {
	switch i.Status {
	case IncidentOpen, IncidentInProgress, IncidentWaitingForInfo:
		return now.Sub(i.CreatedAt) >= StaleAfter
	default:
		return false
	}
}

type Channel string

const (
	ChannelSMS   Channel = "SMS"
	ChannelEmail Channel = "EMAIL"
)

type AssignmentStatus string

const (
	AssignmentOpen    AssignmentStatus = "OPEN"
	AssignmentClaimed AssignmentStatus = "CLAIMED"
)

// Conversation is a dispatch inbox thread with a driver or carrier contact.
type Conversation struct {
	ID               int64
	VentureID        int64
	Channel          Channel
	ExternalAddress  string
	Subject          string
	Status           string // OPEN, CLOSED, ARCHIVED
	AssignmentStatus AssignmentStatus
	AssignedUserID   int64 // 0 = unassigned
	UnreadCount      int
	LastMessageAt    time.Time
	CreatedAt        time.Time
}

type Direction string

const (
	DirectionInbound  Direction = "INBOUND"
	DirectionOutbound Direction = "OUTBOUND"
)

type Message struct {
	ID             int64
	ConversationID int64
	Direction      Direction
	Channel        Channel
	FromAddress    string
	ToAddress      string
	Body           string
	ExternalID     string
	SentAt         time.Time
	CreatedAt      time.Time
}

// Notification is the durable record behind a real-time push. The fan-out
// layer never owns this; producers persist first, then push.
type Notification struct {
	ID        int64
	UserID    int64
	Type      string
	Title     string
	Body      string
	Read      bool
	ReadAt    time.Time
	CreatedAt time.Time
}

type CalcType string

const (
	CalcPercentOfMetric CalcType = "PERCENT_OF_METRIC"
	CalcFlatPerUnit     CalcType = "FLAT_PER_UNIT"
	CalcBonusOnTarget   CalcType = "BONUS_ON_TARGET"
)

// IncentiveRule awards money against a daily metric bucket.
type IncentiveRule struct {
	ID        int64
	VentureID int64
	MetricKey string
	CalcType  CalcType
	Rate      float64
	// BONUS_ON_TARGET only.
	ThresholdMetricKey string
	ThresholdValue     float64
	BonusAmountCents   int64
	Active             bool
}

// IncentiveAward is one user's computed amount for one rule on one UTC day.
type IncentiveAward struct {
	ID          int64
	VentureID   int64
	UserID      int64
	RuleID      int64
	Day         string // YYYY-MM-DD
	AmountCents int64
	CreatedAt   time.Time
}

// AuditEvent is the durable trail row written by the audit worker.
type AuditEvent struct {
	ID        int64
	ActorID   int64
	Action    string
	Entity    string
	EntityID  int64
	VentureID int64
	Detail    string
	CreatedAt time.Time
}

// User is the persisted account record.
type User struct {
	ID           int64
	Email        string
	FullName     string
	Role         Role
	PasswordHash string
	Active       bool
	VentureIDs   []int64
	OfficeIDs    []int64
	CreatedAt    time.Time
}
