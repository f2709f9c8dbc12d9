package postgres

import (
	"context"
	"database/sql"
	"errors"

	"opsdeck/internal/core/domain"
)

type OfficeRepo struct {
	db *sql.DB
}

func NewOfficeRepo(db *sql.DB) *OfficeRepo {
	return &OfficeRepo{db: db}
}

func (r *OfficeRepo) ListOffices(ctx context.Context, scope domain.UserScope) ([]domain.Office, error) {
	args := []any{}
	query := `
		SELECT id, venture_id, name, city, state, created_at
		FROM offices WHERE TRUE` + ventureFilter(scope, "venture_id", &args) + `
		ORDER BY name`
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Office
	for rows.Next() {
		var o domain.Office
		if err := rows.Scan(&o.ID, &o.VentureID, &o.Name, &o.City, &o.State, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *OfficeRepo) GetOfficeByID(ctx context.Context, id int64) (*domain.Office, error) {
	var o domain.Office
	query := `SELECT id, venture_id, name, city, state, created_at FROM offices WHERE id = $1`
	exec := GetExecutor(ctx, r.db)
	err := exec.QueryRowContext(ctx, query, id).Scan(&o.ID, &o.VentureID, &o.Name, &o.City, &o.State, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOfficeNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (r *OfficeRepo) CreateOffice(ctx context.Context, o *domain.Office) (int64, error) {
	query := `
		INSERT INTO offices (venture_id, name, city, state)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	exec := GetExecutor(ctx, r.db)
	var id int64
	if err := exec.QueryRowContext(ctx, query, o.VentureID, o.Name, o.City, o.State).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *OfficeRepo) UpdateOffice(ctx context.Context, o *domain.Office) error {
	query := `UPDATE offices SET name = $2, city = $3, state = $4 WHERE id = $1`
	exec := GetExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx, query, o.ID, o.Name, o.City, o.State)
	if err != nil {
		return err
	}
	return requireRow(result, domain.ErrOfficeNotFound)
}

func (r *OfficeRepo) DeleteOffice(ctx context.Context, id int64) error {
	query := `DELETE FROM offices WHERE id = $1`
	exec := GetExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return requireRow(result, domain.ErrOfficeNotFound)
}
