package postgres

import (
	"context"
	"database/sql"
	"errors"

	"opsdeck/internal/core/domain"
)

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	if email == "" {
		return nil, domain.ErrUserNotFound
	}
	query := `
		SELECT id, email, full_name, role, password_hash, active,
		       venture_ids, office_ids, created_at
		FROM users WHERE email = $1`
	exec := GetExecutor(ctx, r.db)
	return scanUser(exec.QueryRowContext(ctx, query, email))
}

func (r *UserRepo) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	if id <= 0 {
		return nil, domain.ErrInvalidUserID
	}
	query := `
		SELECT id, email, full_name, role, password_hash, active,
		       venture_ids, office_ids, created_at
		FROM users WHERE id = $1`
	exec := GetExecutor(ctx, r.db)
	return scanUser(exec.QueryRowContext(ctx, query, id))
}

func scanUser(row *sql.Row) (*domain.User, error) {
	var u domain.User
	var role string
	var ventureIDs, officeIDs []byte
	err := row.Scan(&u.ID, &u.Email, &u.FullName, &role, &u.PasswordHash,
		&u.Active, &ventureIDs, &officeIDs, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	u.Role = domain.Role(role)
	if u.VentureIDs, err = parseInt64Array(ventureIDs); err != nil {
		return nil, err
	}
	if u.OfficeIDs, err = parseInt64Array(officeIDs); err != nil {
		return nil, err
	}
	return &u, nil
}
