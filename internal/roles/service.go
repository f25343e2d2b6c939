package roles

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/launchpad-web/launchpad/internal/ability"
	"github.com/launchpad-web/launchpad/internal/platform/httpx"
	"github.com/launchpad-web/launchpad/internal/shared"
)

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	ListRoles(ctx context.Context) ([]Role, error)
	CreateRole(ctx context.Context, role Role) error
	AssignRole(ctx context.Context, userID, roleID string, from, to *time.Time) error
}

// AuditRecorder stores administrative actions.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles role business logic.
type Service struct {
	repo   RepositoryPort
	audit  AuditRecorder
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds Service instance. audit may be nil.
func NewService(repo RepositoryPort, audit AuditRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger, now: time.Now}
}

// ListRoles returns all roles.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	roles, err := s.repo.ListRoles(ctx)
	if err != nil {
		return nil, fmt.Errorf("roles: list: %w", err)
	}
	if roles == nil {
		roles = []Role{}
	}
	return roles, nil
}

// CreateRole stores a role after checking its permissions are known.
func (s *Service) CreateRole(ctx context.Context, actorID string, in CreateInput) (*Role, error) {
	known := make(map[string]struct{})
	for _, p := range ability.AllPermissions() {
		known[p] = struct{}{}
	}
	var perms []string
	seen := make(map[string]struct{}, len(in.Permissions))
	for _, p := range in.Permissions {
		p = strings.TrimSpace(p)
		if _, ok := known[p]; !ok {
			return nil, fmt.Errorf("%w: unknown permission %q", httpx.ErrValidation, p)
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		perms = append(perms, p)
	}
	role := Role{
		ID:          uuid.New(),
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Permissions: perms,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repo.CreateRole(ctx, role); err != nil {
		return nil, fmt.Errorf("roles: create %q: %w", role.Name, err)
	}
	s.record(ctx, shared.AuditLog{ActorID: actorID, Action: "role.create", Entity: "role", EntityID: role.ID.String(), Meta: map[string]any{"permissions": perms}})
	return &role, nil
}

// AssignRole grants a role to a user within an optional window.
func (s *Service) AssignRole(ctx context.Context, actorID string, in AssignInput) error {
	if in.ActiveFrom != nil && in.ActiveTo != nil && !in.ActiveTo.After(*in.ActiveFrom) {
		return fmt.Errorf("%w: activeTo must be after activeFrom", httpx.ErrValidation)
	}
	if err := s.repo.AssignRole(ctx, in.UserID.String(), in.RoleID.String(), in.ActiveFrom, in.ActiveTo); err != nil {
		return fmt.Errorf("roles: assign %s to %s: %w", in.RoleID, in.UserID, err)
	}
	s.record(ctx, shared.AuditLog{ActorID: actorID, Action: "role.assign", Entity: "user", EntityID: in.UserID.String(), Meta: map[string]any{"role": in.RoleID.String()}})
	return nil
}

func (s *Service) record(ctx context.Context, log shared.AuditLog) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, log); err != nil {
		s.logger.Warn("audit "+log.Action, slog.Any("error", err))
	}
}
