package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"opsdeck/internal/core/domain"
)

const (
	defaultPageSize = 25
	maxPageSize     = 200
)

// LoadService owns freight load CRUD with scope-filtered, paged listings.
type LoadService struct {
	log      *slog.Logger
	loadRepo domain.LoadRepository
	audit    *AuditService
}

func NewLoadService(log *slog.Logger, loadRepo domain.LoadRepository, audit *AuditService) *LoadService {
	return &LoadService{log: log, loadRepo: loadRepo, audit: audit}
}

// List returns a page of loads plus the total count. Page size is clamped
// to 200.
func (s *LoadService) List(ctx context.Context, user domain.SessionUser, f domain.LoadFilter) ([]domain.Load, int, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = defaultPageSize
	}
	if f.PageSize > maxPageSize {
		f.PageSize = maxPageSize
	}
	return s.loadRepo.ListLoads(ctx, domain.ScopeFor(user), f)
}

func (s *LoadService) Get(ctx context.Context, user domain.SessionUser, id int64) (*domain.Load, error) {
	l, err := s.loadRepo.GetLoadByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !domain.ScopeFor(user).CanAccessVenture(l.VentureID) {
		return nil, domain.ErrForbidden
	}
	return l, nil
}

func (s *LoadService) Create(ctx context.Context, user domain.SessionUser, l *domain.Load) (int64, error) {
	if !domain.ScopeFor(user).CanAccessVenture(l.VentureID) {
		return 0, domain.ErrForbidden
	}
	if err := validateLoad(l); err != nil {
		return 0, err
	}
	l.CreatedByID = user.ID
	id, err := s.loadRepo.CreateLoad(ctx, l)
	if err != nil {
		s.log.ErrorContext(ctx, "loads - create - failed", "venture_id", l.VentureID, "reference", l.Reference, "err", err)
		return 0, err
	}
	s.audit.Record(ctx, AuditEntry{ActorID: user.ID, Action: "load.create", Entity: "load", EntityID: id, VentureID: l.VentureID})
	return id, nil
}

func (s *LoadService) Update(ctx context.Context, user domain.SessionUser, l *domain.Load) error {
	existing, err := s.loadRepo.GetLoadByID(ctx, l.ID)
	if err != nil {
		return err
	}
	if !domain.ScopeFor(user).CanAccessVenture(existing.VentureID) {
		return domain.ErrForbidden
	}
	if err := validateLoad(l); err != nil {
		return err
	}
	if err := s.loadRepo.UpdateLoad(ctx, l); err != nil {
		return err
	}
	s.audit.Record(ctx, AuditEntry{ActorID: user.ID, Action: "load.update", Entity: "load", EntityID: l.ID, VentureID: existing.VentureID})
	return nil
}

func validateLoad(l *domain.Load) error {
	if strings.TrimSpace(l.Reference) == "" {
		return errors.New("load reference is required")
	}
	switch l.Status {
	case domain.LoadQuoted, domain.LoadBooked, domain.LoadCovered, domain.LoadDelivered, domain.LoadLost:
		return nil
	default:
		return errors.New("unknown load status")
	}
}
