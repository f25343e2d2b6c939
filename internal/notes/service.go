package notes

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/launchpad-web/launchpad/internal/platform/httpx"
)

// RepositoryPort defines data access methods for notes.
type RepositoryPort interface {
	List(ctx context.Context, ownerID string) ([]Note, error)
	Get(ctx context.Context, ownerID string, id uuid.UUID) (*Note, error)
	Insert(ctx context.Context, note Note) error
	Update(ctx context.Context, note Note) error
	Delete(ctx context.Context, ownerID string, id uuid.UUID) error
}

// Service handles note business logic. Every operation is scoped to the owner.
type Service struct {
	repo RepositoryPort
	now  func() time.Time
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, now: time.Now}
}

// List returns the owner's notes.
func (s *Service) List(ctx context.Context, ownerID string) ([]Note, error) {
	notes, err := s.repo.List(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("notes: list: %w", err)
	}
	if notes == nil {
		notes = []Note{}
	}
	return notes, nil
}

// Get returns one note.
func (s *Service) Get(ctx context.Context, ownerID string, id uuid.UUID) (*Note, error) {
	note, err := s.repo.Get(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("notes: get %s: %w", id, err)
	}
	return note, nil
}

// Create stores a new note for ownerID.
func (s *Service) Create(ctx context.Context, ownerID string, in CreateInput) (*Note, error) {
	title, err := cleanTitle(in.Title)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	note := Note{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Title:     title,
		Body:      in.Body,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, note); err != nil {
		return nil, fmt.Errorf("notes: create: %w", err)
	}
	return &note, nil
}

// Update rewrites a note.
func (s *Service) Update(ctx context.Context, ownerID string, in UpdateInput) (*Note, error) {
	title, err := cleanTitle(in.Title)
	if err != nil {
		return nil, err
	}
	note, err := s.Get(ctx, ownerID, in.ID)
	if err != nil {
		return nil, err
	}
	note.Title = title
	note.Body = in.Body
	note.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, *note); err != nil {
		return nil, fmt.Errorf("notes: update %s: %w", in.ID, err)
	}
	return note, nil
}

// Delete removes a note.
func (s *Service) Delete(ctx context.Context, ownerID string, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, ownerID, id); err != nil {
		return fmt.Errorf("notes: delete %s: %w", id, err)
	}
	return nil
}

func cleanTitle(raw string) (string, error) {
	title := strings.TrimSpace(raw)
	if title == "" {
		return "", fmt.Errorf("%w: title must not be blank", httpx.ErrValidation)
	}
	return title, nil
}
