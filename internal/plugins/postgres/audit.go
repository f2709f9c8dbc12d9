package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"opsdeck/internal/core/domain"
)

type AuditRepo struct {
	db *sql.DB
}

func NewAuditRepo(db *sql.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

func (r *AuditRepo) CreateAuditEvent(ctx context.Context, e *domain.AuditEvent) error {
	query := `
		INSERT INTO audit_events (actor_id, action, entity, entity_id, venture_id, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	exec := GetExecutor(ctx, r.db)
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := exec.ExecContext(ctx, query,
		e.ActorID, e.Action, e.Entity, e.EntityID, e.VentureID, e.Detail, createdAt)
	return err
}

func (r *AuditRepo) ListAuditEvents(ctx context.Context, scope domain.UserScope, limit int) ([]domain.AuditEvent, error) {
	args := []any{}
	query := `
		SELECT id, actor_id, action, entity, entity_id, venture_id, detail, created_at
		FROM audit_events WHERE TRUE` + ventureFilter(scope, "venture_id", &args)
	args = append(args, limit)
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(args))
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.AuditEvent
	for rows.Next() {
		var e domain.AuditEvent
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.Entity,
			&e.EntityID, &e.VentureID, &e.Detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
