package users

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/launchpad-web/launchpad/internal/platform/httpx"
	"github.com/launchpad-web/launchpad/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context, limit, offset int) ([]User, int, error)
	SetEnabled(ctx context.Context, userID string, enabled bool) error
}

// AuditRecorder stores administrative actions.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles user business logic.
type Service struct {
	repo   RepositoryPort
	audit  AuditRecorder
	logger *slog.Logger
}

// NewService builds Service instance. audit may be nil.
func NewService(repo RepositoryPort, audit AuditRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger}
}

// ListUsers returns one page of users.
func (s *Service) ListUsers(ctx context.Context, in ListInput) (ListResult, error) {
	page := shared.NewPagination(in.Page, in.PerPage, 0)
	users, total, err := s.repo.ListUsers(ctx, page.PerPage, page.Offset())
	if err != nil {
		return ListResult{}, fmt.Errorf("users: list: %w", err)
	}
	if users == nil {
		users = []User{}
	}
	return ListResult{Users: users, Pagination: shared.NewPagination(page.Page, page.PerPage, total)}, nil
}

// SetEnabled enables or disables an account. Admins cannot disable themselves.
func (s *Service) SetEnabled(ctx context.Context, actorID string, in SetEnabledInput) error {
	target := in.UserID.String()
	if target == actorID && !in.Enabled {
		return fmt.Errorf("%w: cannot disable your own account", httpx.ErrValidation)
	}
	if err := s.repo.SetEnabled(ctx, target, in.Enabled); err != nil {
		return fmt.Errorf("users: set enabled %s: %w", target, err)
	}
	if s.audit != nil {
		if err := s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "user.set_enabled",
			Entity:   "user",
			EntityID: target,
			Meta:     map[string]any{"enabled": in.Enabled},
		}); err != nil {
			s.logger.Warn("audit user.set_enabled", slog.Any("error", err))
		}
	}
	return nil
}
