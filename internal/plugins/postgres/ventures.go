package postgres

import (
	"context"
	"database/sql"
	"errors"

	"opsdeck/internal/core/domain"
)

type VentureRepo struct {
	db *sql.DB
}

func NewVentureRepo(db *sql.DB) *VentureRepo {
	return &VentureRepo{db: db}
}

func (r *VentureRepo) ListVentures(ctx context.Context, scope domain.UserScope) ([]domain.Venture, error) {
	args := []any{}
	query := `
		SELECT id, name, kind, active, created_at
		FROM ventures WHERE TRUE` + ventureFilter(scope, "id", &args) + `
		ORDER BY name`
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Venture
	for rows.Next() {
		var v domain.Venture
		var kind string
		if err := rows.Scan(&v.ID, &v.Name, &kind, &v.Active, &v.CreatedAt); err != nil {
			return nil, err
		}
		v.Kind = domain.VentureKind(kind)
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *VentureRepo) GetVentureByID(ctx context.Context, id int64) (*domain.Venture, error) {
	if id <= 0 {
		return nil, domain.ErrInvalidVentureID
	}
	var v domain.Venture
	var kind string
	query := `SELECT id, name, kind, active, created_at FROM ventures WHERE id = $1`
	exec := GetExecutor(ctx, r.db)
	err := exec.QueryRowContext(ctx, query, id).Scan(&v.ID, &v.Name, &kind, &v.Active, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrVentureNotFound
		}
		return nil, err
	}
	v.Kind = domain.VentureKind(kind)
	return &v, nil
}

func (r *VentureRepo) CreateVenture(ctx context.Context, v *domain.Venture) (int64, error) {
	query := `
		INSERT INTO ventures (name, kind, active)
		VALUES ($1, $2, $3)
		RETURNING id`
	exec := GetExecutor(ctx, r.db)
	var id int64
	if err := exec.QueryRowContext(ctx, query, v.Name, string(v.Kind), v.Active).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *VentureRepo) UpdateVenture(ctx context.Context, v *domain.Venture) error {
	query := `UPDATE ventures SET name = $2, kind = $3, active = $4 WHERE id = $1`
	exec := GetExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx, query, v.ID, v.Name, string(v.Kind), v.Active)
	if err != nil {
		return err
	}
	return requireRow(result, domain.ErrVentureNotFound)
}

func (r *VentureRepo) DeleteVenture(ctx context.Context, id int64) error {
	query := `DELETE FROM ventures WHERE id = $1`
	exec := GetExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return requireRow(result, domain.ErrVentureNotFound)
}

// requireRow maps zero affected rows to the entity's not-found sentinel.
func requireRow(result sql.Result, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
