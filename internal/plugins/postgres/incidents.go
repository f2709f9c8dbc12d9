package postgres

import (
	"context"
	"database/sql"
	"errors"

	"opsdeck/internal/core/domain"
)

type IncidentRepo struct {
	db *sql.DB
}

func NewIncidentRepo(db *sql.DB) *IncidentRepo {
	return &IncidentRepo{db: db}
}

const incidentColumns = `
	id, venture_id, office_id, title, description, status, severity,
	reporter_id, assigned_to_id, created_at, updated_at`

func (r *IncidentRepo) ListIncidents(ctx context.Context, scope domain.UserScope) ([]domain.Incident, error) {
	args := []any{}
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE TRUE` +
		ventureFilter(scope, "venture_id", &args) + ` ORDER BY created_at DESC`
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Incident
	for rows.Next() {
		in, err := scanIncident(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *in)
	}
	return out, rows.Err()
}

func (r *IncidentRepo) GetIncidentByID(ctx context.Context, id int64) (*domain.Incident, error) {
	exec := GetExecutor(ctx, r.db)
	row := exec.QueryRowContext(ctx, `SELECT `+incidentColumns+` FROM incidents WHERE id = $1`, id)
	in, err := scanIncident(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrIncidentNotFound
		}
		return nil, err
	}
	return in, nil
}

func (r *IncidentRepo) CreateIncident(ctx context.Context, in *domain.Incident) (int64, error) {
	query := `
		INSERT INTO incidents (
			venture_id, office_id, title, description, status, severity,
			reporter_id, assigned_to_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	exec := GetExecutor(ctx, r.db)
	var id int64
	err := exec.QueryRowContext(ctx, query,
		in.VentureID, in.OfficeID, in.Title, in.Description, string(in.Status),
		in.Severity, in.ReporterID, in.AssignedToID,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *IncidentRepo) UpdateIncident(ctx context.Context, in *domain.Incident) error {
	query := `
		UPDATE incidents SET
			title = $2, description = $3, status = $4, severity = $5,
			assigned_to_id = $6, updated_at = now()
		WHERE id = $1`
	exec := GetExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx, query,
		in.ID, in.Title, in.Description, string(in.Status), in.Severity, in.AssignedToID)
	if err != nil {
		return err
	}
	return requireRow(result, domain.ErrIncidentNotFound)
}

func scanIncident(row scanner) (*domain.Incident, error) {
	var in domain.Incident
	var status string
	err := row.Scan(&in.ID, &in.VentureID, &in.OfficeID, &in.Title, &in.Description,
		&status, &in.Severity, &in.ReporterID, &in.AssignedToID, &in.CreatedAt, &in.UpdatedAt)
	if err != nil {
		return nil, err
	}
	in.Status = domain.IncidentStatus(status)
	return &in, nil
}
