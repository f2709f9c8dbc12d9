package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"opsdeck/internal/core/domain"
)

// AdminService covers the directory entities: ventures, offices, carriers.
// Reads are scope-filtered; writes require management roles and go through
// the audit trail.
type AdminService struct {
	log         *slog.Logger
	ventureRepo domain.VentureRepository
	officeRepo  domain.OfficeRepository
	carrierRepo domain.CarrierRepository
	auditRepo   domain.AuditRepository
	audit       *AuditService
}

func NewAdminService(
	log *slog.Logger,
	ventureRepo domain.VentureRepository,
	officeRepo domain.OfficeRepository,
	carrierRepo domain.CarrierRepository,
	auditRepo domain.AuditRepository,
	audit *AuditService,
) *AdminService {
	return &AdminService{
		log:         log,
		ventureRepo: ventureRepo,
		officeRepo:  officeRepo,
		carrierRepo: carrierRepo,
		auditRepo:   auditRepo,
		audit:       audit,
	}
}

// AuditTrail exposes the durable trail to leadership.
func (s *AdminService) AuditTrail(ctx context.Context, user domain.SessionUser, limit int) ([]domain.AuditEvent, error) {
	if !domain.IsLeadership(user.Role) {
		return nil, domain.ErrForbidden
	}
	if limit < 1 || limit > maxPageSize {
		limit = 100
	}
	return s.auditRepo.ListAuditEvents(ctx, domain.ScopeFor(user), limit)
}

func (s *AdminService) ListVentures(ctx context.Context, user domain.SessionUser) ([]domain.Venture, error) {
	return s.ventureRepo.ListVentures(ctx, domain.ScopeFor(user))
}

func (s *AdminService) GetVenture(ctx context.Context, user domain.SessionUser, id int64) (*domain.Venture, error) {
	if !domain.ScopeFor(user).CanAccessVenture(id) {
		return nil, domain.ErrForbidden
	}
	return s.ventureRepo.GetVentureByID(ctx, id)
}

func (s *AdminService) CreateVenture(ctx context.Context, user domain.SessionUser, v *domain.Venture) (int64, error) {
	if !domain.IsGlobalAdmin(user.Role) {
		return 0, domain.ErrForbidden
	}
	if err := validateVenture(v); err != nil {
		return 0, err
	}
	id, err := s.ventureRepo.CreateVenture(ctx, v)
	if err != nil {
		s.log.ErrorContext(ctx, "admin - create venture - failed", "name", v.Name, "err", err)
		return 0, err
	}
	s.audit.Record(ctx, AuditEntry{ActorID: user.ID, Action: "venture.create", Entity: "venture", EntityID: id})
	return id, nil
}

func (s *AdminService) UpdateVenture(ctx context.Context, user domain.SessionUser, v *domain.Venture) error {
	if !domain.IsGlobalAdmin(user.Role) {
		return domain.ErrForbidden
	}
	if err := validateVenture(v); err != nil {
		return err
	}
	if err := s.ventureRepo.UpdateVenture(ctx, v); err != nil {
		return err
	}
	s.audit.Record(ctx, AuditEntry{ActorID: user.ID, Action: "venture.update", Entity: "venture", EntityID: v.ID})
	return nil
}

func (s *AdminService) DeleteVenture(ctx context.Context, user domain.SessionUser, id int64) error {
	if !domain.IsGlobalAdmin(user.Role) {
		return domain.ErrForbidden
	}
	if err := s.ventureRepo.DeleteVenture(ctx, id); err != nil {
		return err
	}
	s.audit.Record(ctx, AuditEntry{ActorID: user.ID, Action: "venture.delete", Entity: "venture", EntityID: id})
	return nil
}

func (s *AdminService) ListOffices(ctx context.Context, user domain.SessionUser) ([]domain.Office, error) {
	return s.officeRepo.ListOffices(ctx, domain.ScopeFor(user))
}

func (s *AdminService) GetOffice(ctx context.Context, user domain.SessionUser, id int64) (*domain.Office, error) {
	o, err := s.officeRepo.GetOfficeByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !domain.ScopeFor(user).CanAccessOffice(o.ID) && !domain.ScopeFor(user).CanAccessVenture(o.VentureID) {
		return nil, domain.ErrForbidden
	}
	return o, nil
}

func (s *AdminService) CreateOffice(ctx context.Context, user domain.SessionUser, o *domain.Office) (int64, error) {
	if !domain.IsManagerLike(user.Role) {
		return 0, domain.ErrForbidden
	}
	if !domain.ScopeFor(user).CanAccessVenture(o.VentureID) {
		return 0, domain.ErrForbidden
	}
	if strings.TrimSpace(o.Name) == "" {
		return 0, errors.New("office name is required")
	}
	id, err := s.officeRepo.CreateOffice(ctx, o)
	if err != nil {
		s.log.ErrorContext(ctx, "admin - create office - failed", "venture_id", o.VentureID, "err", err)
		return 0, err
	}
	s.audit.Record(ctx, AuditEntry{ActorID: user.ID, Action: "office.create", Entity: "office", EntityID: id, VentureID: o.VentureID})
	return id, nil
}

func (s *AdminService) UpdateOffice(ctx context.Context, user domain.SessionUser, o *domain.Office) error {
	if !domain.IsManagerLike(user.Role) {
		return domain.ErrForbidden
	}
	if !domain.ScopeFor(user).CanAccessVenture(o.VentureID) {
		return domain.ErrForbidden
	}
	if err := s.officeRepo.UpdateOffice(ctx, o); err != nil {
		return err
	}
	s.audit.Record(ctx, AuditEntry{ActorID: user.ID, Action: "office.update", Entity: "office", EntityID: o.ID, VentureID: o.VentureID})
	return nil
}

func (s *AdminService) DeleteOffice(ctx context.Context, user domain.SessionUser, id int64) error {
	o, err := s.officeRepo.GetOfficeByID(ctx, id)
	if err != nil {
		return err
	}
	if !domain.IsManagerLike(user.Role) || !domain.ScopeFor(user).CanAccessVenture(o.VentureID) {
		return domain.ErrForbidden
	}
	if err := s.officeRepo.DeleteOffice(ctx, id); err != nil {
		return err
	}
	s.audit.Record(ctx, AuditEntry{ActorID: user.ID, Action: "office.delete", Entity: "office", EntityID: id, VentureID: o.VentureID})
	return nil
}

func (s *AdminService) ListCarriers(ctx context.Context, user domain.SessionUser, q string) ([]domain.Carrier, error) {
	return s.carrierRepo.ListCarriers(ctx, domain.ScopeFor(user), q)
}

func (s *AdminService) GetCarrier(ctx context.Context, user domain.SessionUser, id int64) (*domain.Carrier, error) {
	c, err := s.carrierRepo.GetCarrierByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !domain.ScopeFor(user).CanAccessVenture(c.VentureID) {
		return nil, domain.ErrForbidden
	}
	return c, nil
}

func (s *AdminService) CreateCarrier(ctx context.Context, user domain.SessionUser, c *domain.Carrier) (int64, error) {
	if !domain.ScopeFor(user).CanAccessVenture(c.VentureID) {
		return 0, domain.ErrForbidden
	}
	if strings.TrimSpace(c.Name) == "" {
		return 0, errors.New("carrier name is required")
	}
	id, err := s.carrierRepo.CreateCarrier(ctx, c)
	if err != nil {
		s.log.ErrorContext(ctx, "admin - create carrier - failed", "venture_id", c.VentureID, "err", err)
		return 0, err
	}
	s.audit.Record(ctx, AuditEntry{ActorID: user.ID, Action: "carrier.create", Entity: "carrier", EntityID: id, VentureID: c.VentureID})
	return id, nil
}

func (s *AdminService) UpdateCarrier(ctx context.Context, user domain.SessionUser, c *domain.Carrier) error {
	if !domain.ScopeFor(user).CanAccessVenture(c.VentureID) {
		return domain.ErrForbidden
	}
	if err := s.carrierRepo.UpdateCarrier(ctx, c); err != nil {
		return err
	}
	s.audit.Record(ctx, AuditEntry{ActorID: user.ID, Action: "carrier.update", Entity: "carrier", EntityID: c.ID, VentureID: c.VentureID})
	return nil
}

func (s *AdminService) DeleteCarrier(ctx context.Context, user domain.SessionUser, id int64) error {
	c, err := s.carrierRepo.GetCarrierByID(ctx, id)
	if err != nil {
		return err
	}
	if !domain.IsManagerLike(user.Role) || !domain.ScopeFor(user).CanAccessVenture(c.VentureID) {
		return domain.ErrForbidden
	}
	if err := s.carrierRepo.DeleteCarrier(ctx, id); err != nil {
		return err
	}
	s.audit.Record(ctx, AuditEntry{ActorID: user.ID, Action: "carrier.delete", Entity: "carrier", EntityID: id, VentureID: c.VentureID})
	return nil
}

func validateVenture(v *domain.Venture) error {
	if strings.TrimSpace(v.Name) == "" {
		return errors.New("venture name is required")
	}
	switch v.Kind {
	case domain.VentureFreight, domain.VentureHotel, domain.VentureBPO:
		return nil
	default:
		return errors.New("unknown venture kind")
	}
}
