package roles

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/launchpad-web/launchpad/internal/identity"
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

// ListRoles returns all roles ordered by name.
func (r *Repository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, description, permissions, created_at FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Role, error) {
		var (
			role  Role
			perms string
		)
		err := row.Scan(&role.ID, &role.Name, &role.Description, &perms, &role.CreatedAt)
		role.Permissions = identity.SplitPermissions(perms)
		return role, err
	})
}

// CreateRole inserts a role. Permissions are stored comma-joined.
func (r *Repository) CreateRole(ctx context.Context, role Role) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO roles (id, name, description, permissions, created_at) VALUES ($1, $2, $3, $4, $5)`,
		role.ID, role.Name, role.Description, identity.JoinPermissions(role.Permissions), role.CreatedAt)
	return mapError(err)
}

// AssignRole inserts a membership.
func (r *Repository) AssignRole(ctx context.Context, userID, roleID string, from, to *time.Time) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO user_roles (user_id, role_id, active_from, active_to) VALUES ($1, $2, $3, $4)`,
		userID, roleID, from, to)
	return mapError(err)
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return httpx.ErrDuplicate
		case "23503":
			return httpx.ErrNotFound
		}
	}
	return err
}
