package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"opsdeck/internal/core/domain"
)

type ConversationRepo struct {
	db *sql.DB
}

func NewConversationRepo(db *sql.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

const conversationColumns = `
	id, venture_id, channel, external_address, subject, status,
	assignment_status, assigned_user_id, unread_count, last_message_at, created_at`

func (r *ConversationRepo) ListConversations(ctx context.Context, scope domain.UserScope, f domain.ConversationFilter) ([]domain.Conversation, int, error) {
	args := []any{}
	where := `WHERE TRUE` + ventureFilter(scope, "venture_id", &args)
	if f.Status != "" {
		args = append(args, f.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if f.Channel != "" {
		args = append(args, string(f.Channel))
		where += fmt.Sprintf(" AND channel = $%d", len(args))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		where += fmt.Sprintf(" AND (external_address ILIKE $%d OR subject ILIKE $%d)", len(args), len(args))
	}

	exec := GetExecutor(ctx, r.db)
	var total int
	if err := exec.QueryRowContext(ctx, `SELECT COUNT(*) FROM conversations `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 || f.PageSize > 200 {
		f.PageSize = 50
	}
	args = append(args, f.PageSize, (f.Page-1)*f.PageSize)
	query := fmt.Sprintf(`SELECT %s FROM conversations %s ORDER BY last_message_at DESC LIMIT $%d OFFSET $%d`,
		conversationColumns, where, len(args)-1, len(args))
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []domain.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *c)
	}
	return out, total, rows.Err()
}

func (r *ConversationRepo) GetConversationByID(ctx context.Context, id int64) (*domain.Conversation, error) {
	exec := GetExecutor(ctx, r.db)
	row := exec.QueryRowContext(ctx, `SELECT `+conversationColumns+` FROM conversations WHERE id = $1`, id)
	c, err := scanConversation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrConversationNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *ConversationRepo) FindOpenByAddress(ctx context.Context, ch domain.Channel, address string) (*domain.Conversation, error) {
	exec := GetExecutor(ctx, r.db)
	query := `
		SELECT ` + conversationColumns + `
		FROM conversations
		WHERE channel = $1 AND external_address = $2 AND status != 'ARCHIVED'
		ORDER BY last_message_at DESC
		LIMIT 1`
	row := exec.QueryRowContext(ctx, query, string(ch), address)
	c, err := scanConversation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrConversationNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *ConversationRepo) CreateConversation(ctx context.Context, c *domain.Conversation) (int64, error) {
	query := `
		INSERT INTO conversations (
			venture_id, channel, external_address, subject, status,
			assignment_status, assigned_user_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	exec := GetExecutor(ctx, r.db)
	var id int64
	err := exec.QueryRowContext(ctx, query,
		c.VentureID, string(c.Channel), c.ExternalAddress, c.Subject, c.Status,
		string(c.AssignmentStatus), c.AssignedUserID,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Claim flips an OPEN conversation to CLAIMED in one statement so two
// dispatchers can never both win.
func (r *ConversationRepo) Claim(ctx context.Context, convID, userID int64) error {
	query := `
		UPDATE conversations
		SET assignment_status = 'CLAIMED', assigned_user_id = $2
		WHERE id = $1 AND assignment_status = 'OPEN'`
	exec := GetExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx, query, convID, userID)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Disambiguate a missing row from a lost race.
		if _, err := r.GetConversationByID(ctx, convID); err != nil {
			return err
		}
		return domain.ErrAlreadyClaimed
	}
	return nil
}

func (r *ConversationRepo) Release(ctx context.Context, convID, userID int64) error {
	query := `
		UPDATE conversations
		SET assignment_status = 'OPEN', assigned_user_id = 0
		WHERE id = $1 AND assignment_status = 'CLAIMED' AND assigned_user_id = $2`
	exec := GetExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx, query, convID, userID)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := r.GetConversationByID(ctx, convID); err != nil {
			return err
		}
		return domain.ErrNotClaimedByUser
	}
	return nil
}

func (r *ConversationRepo) TouchLastMessage(ctx context.Context, convID int64, incrementUnread bool) error {
	query := `
		UPDATE conversations
		SET last_message_at = now(),
		    unread_count = unread_count + CASE WHEN $2 THEN 1 ELSE 0 END
		WHERE id = $1`
	exec := GetExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx, query, convID, incrementUnread)
	if err != nil {
		return err
	}
	return requireRow(result, domain.ErrConversationNotFound)
}

func (r *ConversationRepo) ResetUnread(ctx context.Context, convID int64) error {
	query := `UPDATE conversations SET unread_count = 0 WHERE id = $1`
	exec := GetExecutor(ctx, r.db)
	result, err := exec.ExecContext(ctx, query, convID)
	if err != nil {
		return err
	}
	return requireRow(result, domain.ErrConversationNotFound)
}

func scanConversation(row scanner) (*domain.Conversation, error) {
	var c domain.Conversation
	var channel, assignment string
	err := row.Scan(&c.ID, &c.VentureID, &channel, &c.ExternalAddress, &c.Subject,
		&c.Status, &assignment, &c.AssignedUserID, &c.UnreadCount, &c.LastMessageAt, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	c.Channel = domain.Channel(channel)
	c.AssignmentStatus = domain.AssignmentStatus(assignment)
	return &c, nil
}
