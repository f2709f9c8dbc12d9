package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"opsdeck/internal/core/domain"
)

type CarrierRepo struct {
	db *sql.DB
}

func NewCarrierRepo(db *sql.DB) *CarrierRepo {
	return &CarrierRepo{db: db}
}

func (r *CarrierRepo) ListCarriers(ctx context.Context, scope domain.UserScope, q string) ([]domain.Carrier, error) {
	args := []any{}
	query := `
		SELECT id, venture_id, name, mc_number, phone, email, active, created_at
		FROM carriers WHERE TRUE` + ventureFilter(scope, "venture_id", &args)
	if q != "" {
		args = append(args, "%"+q+"%")
		query += fmt.Sprintf(" AND (name ILIKE $%d OR mc_number ILIKE $%d)", len(args), len(args))
	}
	query += ` ORDER BY name`
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Carrier
	for rows.Next() {
		var c domain.Carrier
		if err := rows.Scan(&c.ID, &c.VentureID, &c.Name, &c.MCNumber, &c.Phone, &c.Email, &c.Active, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *CarrierRepo) GetCarrierByID(ctx context.Context, id int64) (*domain.Carrier, error) {
	var c domain.Carrier
	query := `
		SELECT id, venture_id, name, mc_number, phone, email, active, created_at
		FROM carriers WHERE id = $1`
	exec := GetExecutor(ctx, r.db)
	err := exec.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.VentureID, &c.Name, &c.MCNumber, &c.Phone, &c.Email, &c.Active, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCarrierNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *CarrierRepo) CreateCarrier(ctx context.Context, c *domain.Carrier) (int64, error) {
	query := `
		INSERT INTO carriers (venture_id, name, mc_number, phone, email, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	exec := GetExecutor(ctx, r.db)
	var id int64
	err := exec.QueryRowContext(ctx, query, c.VentureID, c.Name, c.MCNumber, c.Phone, c.Email, c.Active).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *CarrierRepo) UpdateCarrier(ctx context.Context, c *domain.Carrier) error {
	query := `
		UPDATE carriers
		SET name = $2, mc_number = $3, phone = $4, email = $5, active = $6
		WHERE id = $1`
	exec := GetExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx, query, c.ID, c.Name, c.MCNumber, c.Phone, c.Email, c.Active)
	if err != nil {
		return err
	}
	return requireRow(result, domain.ErrCarrierNotFound)
}

func (r *CarrierRepo) DeleteCarrier(ctx context.Context, id int64) error {
	query := `DELETE FROM carriers WHERE id = $1`
	exec := GetExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return requireRow(result, domain.ErrCarrierNotFound)
}
