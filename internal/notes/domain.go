package notes

import (
	"time"

	"github.com/google/uuid"
)

// Note is a private note owned by one user.
type Note struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreateInput is the payload of note.create.
type CreateInput struct {
	Title string `json:"title" validate:"required,max=200"`
	Body  string `json:"body" validate:"max=10000"`
}

// UpdateInput is the payload of note.update.
type UpdateInput struct {
	ID    uuid.UUID `json:"id" validate:"required"`
	Title string    `json:"title" validate:"required,max=200"`
	Body  string    `json:"body" validate:"max=10000"`
}

// ByID addresses a single note.
type ByID struct {
	ID uuid.UUID `json:"id" validate:"required"`
}

// ListResult is returned by note.list.
type ListResult struct {
	Notes   []Note `json:"notes"`
	Summary string `json:"summary,omitempty"`
}
