package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchpad-web/launchpad/internal/platform/httpx"
	"github.com/launchpad-web/launchpad/internal/shared"
)

type stubRepo struct {
	limit, offset int
	total         int
	enabled       map[string]bool
}

func (s *stubRepo) ListUsers(_ context.Context, limit, offset int) ([]User, int, error) {
	s.limit, s.offset = limit, offset
	return []User{{ID: "u1", Email: "a@launchpad.local"}}, s.total, nil
}

func (s *stubRepo) SetEnabled(_ context.Context, userID string, enabled bool) error {
	if _, ok := s.enabled[userID]; !ok {
		return httpx.ErrNotFound
	}
	s.enabled[userID] = enabled
	return nil
}

type stubAudit struct{ logs []shared.AuditLog }

func (s *stubAudit) Record(_ context.Context, log shared.AuditLog) error {
	s.logs = append(s.logs, log)
	return nil
}

func TestListUsersPaginates(t *testing.T) {
	repo := &stubRepo{total: 45}
	svc := NewService(repo, nil, nil)

	res, err := svc.ListUsers(context.Background(), ListInput{Page: 2, PerPage: 20})
	require.NoError(t, err)
	assert.Equal(t, 20, repo.limit)
	assert.Equal(t, 20, repo.offset)
	assert.Equal(t, 3, res.Pagination.TotalPages)
	assert.Len(t, res.Users, 1)
}

func TestSetEnabledAudits(t *testing.T) {
	target := uuid.New()
	repo := &stubRepo{enabled: map[string]bool{target.String(): true}}
	audit := &stubAudit{}
	svc := NewService(repo, audit, nil)

	require.NoError(t, svc.SetEnabled(context.Background(), "admin", SetEnabledInput{UserID: target, Enabled: false}))
	assert.False(t, repo.enabled[target.String()])
	require.Len(t, audit.logs, 1)
	assert.Equal(t, "user.set_enabled", audit.logs[0].Action)
	assert.Equal(t, "admin", audit.logs[0].ActorID)
}

func TestSetEnabledRejectsSelfDisable(t *testing.T) {
	self := uuid.New()
	svc := NewService(&stubRepo{enabled: map[string]bool{self.String(): true}}, nil, nil)
	err := svc.SetEnabled(context.Background(), self.String(), SetEnabledInput{UserID: self})
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestSetEnabledUnknownUser(t *testing.T) {
	svc := NewService(&stubRepo{enabled: map[string]bool{}}, nil, nil)
	err := svc.SetEnabled(context.Background(), "admin", SetEnabledInput{UserID: uuid.New(), Enabled: true})
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}
