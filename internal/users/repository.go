package users

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/launchpad-web/launchpad/internal/platform/httpx"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListUsers returns one page of users ordered by email and the total count.
func (r *Repository) ListUsers(ctx context.Context, limit, offset int) ([]User, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT u.id::text, u.email,
	COALESCE(NULLIF(p.display_name, ''), trim(concat_ws(' ', p.first_name, p.last_name)), ''),
	u.is_enabled, u.is_admin, u.created_at
FROM users u
LEFT JOIN user_profiles p ON p.user_id = u.id
ORDER BY u.email
LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	users, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (User, error) {
		var u User
		err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.Enabled, &u.Admin, &u.CreatedAt)
		return u, err
	})
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// SetEnabled updates the enabled flag.
func (r *Repository) SetEnabled(ctx context.Context, userID string, enabled bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET is_enabled = $2, updated_at = NOW() WHERE id = $1`, userID, enabled)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}
