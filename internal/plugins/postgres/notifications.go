package postgres

import (
	"context"
	"database/sql"
	"errors"

	"opsdeck/internal/core/domain"
)

type NotificationRepo struct {
	db *sql.DB
}

func NewNotificationRepo(db *sql.DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

const notificationColumns = `
	id, user_id, type, title, body, read, COALESCE(read_at, 'epoch'::timestamptz), created_at`

func (r *NotificationRepo) CreateNotification(ctx context.Context, n *domain.Notification) (int64, error) {
	query := `
		INSERT INTO notifications (user_id, type, title, body)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	exec := GetExecutor(ctx, r.db)
	var id int64
	if err := exec.QueryRowContext(ctx, query, n.UserID, n.Type, n.Title, n.Body).Scan(&id); err != nil {
		return 0, err
	}
	n.ID = id
	return id, nil
}

func (r *NotificationRepo) ListNotifications(ctx context.Context, userID int64) ([]domain.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 100`
	return r.query(ctx, query, userID)
}

func (r *NotificationRepo) ListUnread(ctx context.Context, userID int64) ([]domain.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications WHERE user_id = $1 AND NOT read
		ORDER BY created_at DESC`
	return r.query(ctx, query, userID)
}

func (r *NotificationRepo) CountUnread(ctx context.Context, userID int64) (int, error) {
	exec := GetExecutor(ctx, r.db)
	var count int
	err := exec.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND NOT read`, userID).Scan(&count)
	return count, err
}

func (r *NotificationRepo) GetNotificationByID(ctx context.Context, id int64) (*domain.Notification, error) {
	exec := GetExecutor(ctx, r.db)
	row := exec.QueryRowContext(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id)
	n, err := scanNotification(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotificationNotFound
		}
		return nil, err
	}
	return n, nil
}

func (r *NotificationRepo) MarkRead(ctx context.Context, id int64) error {
	query := `UPDATE notifications SET read = TRUE, read_at = now() WHERE id = $1 AND NOT read`
	exec := GetExecutor(ctx, r.db)
	if _, err := exec.ExecContext(ctx, query, id); err != nil {
		return err
	}
	return nil
}

func (r *NotificationRepo) MarkAllRead(ctx context.Context, userID int64) error {
	query := `UPDATE notifications SET read = TRUE, read_at = now() WHERE user_id = $1 AND NOT read`
	exec := GetExecutor(ctx, r.db)
	if _, err := exec.ExecContext(ctx, query, userID); err != nil {
		return err
	}
	return nil
}

func (r *NotificationRepo) query(ctx context.Context, query string, args ...any) ([]domain.Notification, error) {
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

func scanNotification(row scanner) (*domain.Notification, error) {
	var n domain.Notification
	err := row.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Body, &n.Read, &n.ReadAt, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &n, nil
}
