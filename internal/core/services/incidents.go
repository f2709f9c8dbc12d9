package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"opsdeck/internal/core/domain"
)

// IncidentService handles IT incident tickets. Employee-like roles only see
// incidents they reported or are assigned to; staleness is flagged on reads.
type IncidentService struct {
	log           *slog.Logger
	incidentRepo  domain.IncidentRepository
	notifications *NotificationService
	audit         *AuditService
}

func NewIncidentService(
	log *slog.Logger,
	incidentRepo domain.IncidentRepository,
	notifications *NotificationService,
	audit *AuditService,
) *IncidentService {
	return &IncidentService{
		log:           log,
		incidentRepo:  incidentRepo,
		notifications: notifications,
		audit:         audit,
	}
}

// IncidentView is an incident plus its derived staleness flag.
type IncidentView struct {
	domain.Incident
	Stale bool `json:"stale"`
}

func (s *IncidentService) List(ctx context.Context, user domain.SessionUser) ([]IncidentView, error) {
	incidents, err := s.incidentRepo.ListIncidents(ctx, domain.ScopeFor(user))
	if err != nil {
		return nil, err
	}
	now := time.Now()
	views := make([]IncidentView, 0, len(incidents))
	for _, in := range incidents {
		if !s.canSee(user, in) {
			continue
		}
		views = append(views, IncidentView{Incident: in, Stale: in.IsStale(now)})
	}
	return views, nil
}

func (s *IncidentService) Get(ctx context.Context, user domain.SessionUser, id int64) (*IncidentView, error) {
	in, err := s.incidentRepo.GetIncidentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !domain.ScopeFor(user).CanAccessVenture(in.VentureID) || !s.canSee(user, *in) {
		return nil, domain.ErrForbidden
	}
	return &IncidentView{Incident: *in, Stale: in.IsStale(time.Now())}, nil
}

func (s *IncidentService) Create(ctx context.Context, user domain.SessionUser, in *domain.Incident) (int64, error) {
	if !domain.ScopeFor(user).CanAccessVenture(in.VentureID) {
		return 0, domain.ErrForbidden
	}
	if strings.TrimSpace(in.Title) == "" {
		return 0, errors.New("incident title is required")
	}
	in.ReporterID = user.ID
	if in.Status == "" {
		in.Status = domain.IncidentOpen
	}
	id, err := s.incidentRepo.CreateIncident(ctx, in)
	if err != nil {
		s.log.ErrorContext(ctx, "incidents - create - failed", "venture_id", in.VentureID, "err", err)
		return 0, err
	}
	s.audit.Record(ctx, AuditEntry{ActorID: user.ID, Action: "incident.create", Entity: "incident", EntityID: id, VentureID: in.VentureID})
	if in.AssignedToID != 0 && in.AssignedToID != user.ID {
		if err := s.notifications.Notify(ctx, in.AssignedToID, "INCIDENT_ASSIGNED", "Incident assigned to you", in.Title); err != nil {
			s.log.WarnContext(ctx, "incidents - create - notify assignee failed", "incident_id", id, "err", err)
		}
	}
	return id, nil
}

func (s *IncidentService) Update(ctx context.Context, user domain.SessionUser, in *domain.Incident) error {
	existing, err := s.incidentRepo.GetIncidentByID(ctx, in.ID)
	if err != nil {
		return err
	}
	if !domain.ScopeFor(user).CanAccessVenture(existing.VentureID) || !s.canSee(user, *existing) {
		return domain.ErrForbidden
	}
	if err := validateIncidentStatus(in.Status); err != nil {
		return err
	}
	if err := s.incidentRepo.UpdateIncident(ctx, in); err != nil {
		return err
	}
	s.audit.Record(ctx, AuditEntry{ActorID: user.ID, Action: "incident.update", Entity: "incident", EntityID: in.ID, VentureID: existing.VentureID})
	if in.AssignedToID != 0 && in.AssignedToID != existing.AssignedToID && in.AssignedToID != user.ID {
		if err := s.notifications.Notify(ctx, in.AssignedToID, "INCIDENT_ASSIGNED", "Incident assigned to you", existing.Title); err != nil {
			s.log.WarnContext(ctx, "incidents - update - notify assignee failed", "incident_id", in.ID, "err", err)
		}
	}
	return nil
}

// canSee restricts employee-like roles to their own tickets.
func (s *IncidentService) canSee(user domain.SessionUser, in domain.Incident) bool {
	if !domain.IsEmployeeLike(user.Role) {
		return true
	}
	return in.ReporterID == user.ID || in.AssignedToID == user.ID
}

func validateIncidentStatus(st domain.IncidentStatus) error {
	switch st {
	case domain.IncidentOpen, domain.IncidentInProgress, domain.IncidentWaitingForInfo,
		domain.IncidentResolved, domain.IncidentClosed:
		return nil
	default:
		return errors.New("unknown incident status")
	}
}
