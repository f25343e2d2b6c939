package notes

import (
	"context"
	"errors"

	"github.com/google/uuid"
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

const noteColumns = `id, owner_id::text, title, body, created_at, updated_at`

// List returns the owner's notes, newest first.
func (r *Repository) List(ctx context.Context, ownerID string) ([]Note, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+noteColumns+` FROM notes WHERE owner_id = $1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanNote)
}

// Get returns one note of the owner.
func (r *Repository) Get(ctx context.Context, ownerID string, id uuid.UUID) (*Note, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+noteColumns+` FROM notes WHERE owner_id = $1 AND id = $2`, ownerID, id)
	if err != nil {
		return nil, err
	}
	note, err := pgx.CollectExactlyOneRow(rows, scanNote)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	return &note, nil
}

// Insert stores a new note.
func (r *Repository) Insert(ctx context.Context, note Note) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO notes (id, owner_id, title, body, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		note.ID, note.OwnerID, note.Title, note.Body, note.CreatedAt, note.UpdatedAt)
	return err
}

// Update rewrites title and body of an owned note.
func (r *Repository) Update(ctx context.Context, note Note) error {
	tag, err := r.pool.Exec(ctx, `UPDATE notes SET title = $3, body = $4, updated_at = $5 WHERE owner_id = $1 AND id = $2`,
		note.OwnerID, note.ID, note.Title, note.Body, note.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

// Delete removes an owned note.
func (r *Repository) Delete(ctx context.Context, ownerID string, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM notes WHERE owner_id = $1 AND id = $2`, ownerID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func scanNote(row pgx.CollectableRow) (Note, error) {
	var n Note
	err := row.Scan(&n.ID, &n.OwnerID, &n.Title, &n.Body, &n.CreatedAt, &n.UpdatedAt)
	return n, err
}
