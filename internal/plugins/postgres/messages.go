package postgres

import (
	"context"
	"database/sql"

	"opsdeck/internal/core/domain"
)

type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

const messageColumns = `
	id, conversation_id, direction, channel, from_address, to_address,
	body, external_id, sent_at, created_at`

func (r *MessageRepo) ListMessages(ctx context.Context, convID int64) ([]domain.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE conversation_id = $1 ORDER BY sent_at ASC`
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, query, convID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func (r *MessageRepo) CreateMessage(ctx context.Context, m *domain.Message) (int64, error) {
	query := `
		INSERT INTO messages (
			conversation_id, direction, channel, from_address, to_address,
			body, external_id, sent_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	exec := GetExecutor(ctx, r.db)
	var id int64
	err := exec.QueryRowContext(ctx, query,
		m.ConversationID, string(m.Direction), string(m.Channel),
		m.FromAddress, m.ToAddress, m.Body, m.ExternalID, m.SentAt,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *MessageRepo) FindByExternalID(ctx context.Context, externalID string) (*domain.Message, error) {
	if externalID == "" {
		return nil, sql.ErrNoRows
	}
	query := `SELECT ` + messageColumns + ` FROM messages WHERE external_id = $1`
	exec := GetExecutor(ctx, r.db)
	m, err := scanMessage(exec.QueryRowContext(ctx, query, externalID))
	if err != nil {
		return nil, err
	}
	return m, nil
}

func scanMessage(row scanner) (*domain.Message, error) {
	var m domain.Message
	var direction, channel string
	err := row.Scan(&m.ID, &m.ConversationID, &direction, &channel,
		&m.FromAddress, &m.ToAddress, &m.Body, &m.ExternalID, &m.SentAt, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	m.Direction = domain.Direction(direction)
	m.Channel = domain.Channel(channel)
	return &m, nil
}
