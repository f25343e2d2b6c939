package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSessions struct {
	subject string
	err     error
}

func (s stubSessions) SubjectFromRequest(ctx context.Context, r *http.Request) (string, bool, error) {
	if s.err != nil {
		return "", false, s.err
	}
	return s.subject, s.subject != "", nil
}

type stubStore struct {
	record *Record
	err    error
	asOf   time.Time
	calls  int
}

func (s *stubStore) FindRecord(ctx context.Context, subjectID string, asOf time.Time) (*Record, error) {
	s.calls++
	s.asOf = asOf
	if s.err != nil {
		return nil, s.err
	}
	return s.record, nil
}

var now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

func at(t time.Time) *time.Time { return &t }

func completeRecord() *Record {
	return &Record{
		ID:            "u-1",
		Email:         "matko@example.com",
		EmailVerified: true,
		Enabled:       true,
		Profile:       &ProfileRecord{FirstName: "matko", LastName: "bulić"},
		Preferences:   &Preferences{Locale: "hr", Timezone: "Europe/Zagreb", FirstDayOfWeek: 1, AccentColor: "blue", ColorScheme: "auto"},
	}
}

func request() *http.Request {
	return httptest.NewRequest(http.MethodGet, "/", nil)
}

func TestResolveAnonymousWithoutSession(t *testing.T) {
	store := &stubStore{}
	resolver := NewResolver(stubSessions{}, store, clock)

	id, err := resolver.Resolve(context.Background(), request())
	require.NoError(t, err)
	assert.Nil(t, id)
	assert.Zero(t, store.calls, "store must not be consulted without a session")
}

func TestResolveSessionErrorPropagates(t *testing.T) {
	boom := errors.New("redis down")
	resolver := NewResolver(stubSessions{err: boom}, &stubStore{}, clock)

	_, err := resolver.Resolve(context.Background(), request())
	require.ErrorIs(t, err, boom)
}

func TestResolveDeletedUserIsFatal(t *testing.T) {
	resolver := NewResolver(stubSessions{subject: "u-1"}, &stubStore{err: ErrNotFound}, clock)

	id, err := resolver.Resolve(context.Background(), request())
	require.ErrorIs(t, err, ErrInconsistent)
	assert.Nil(t, id)
}

func TestResolveMissingProfileOrPreferencesIsFatal(t *testing.T) {
	noProfile := completeRecord()
	noProfile.Profile = nil
	noPrefs := completeRecord()
	noPrefs.Preferences = nil

	for name, record := range map[string]*Record{"profile": noProfile, "preferences": noPrefs} {
		t.Run(name, func(t *testing.T) {
			resolver := NewResolver(stubSessions{subject: "u-1"}, &stubStore{record: record}, clock)
			_, err := resolver.Resolve(context.Background(), request())
			require.ErrorIs(t, err, ErrInconsistent)
			assert.Contains(t, err.Error(), name)
		})
	}
}

func TestResolveBuildsProfile(t *testing.T) {
	store := &stubStore{record: completeRecord()}
	resolver := NewResolver(stubSessions{subject: "u-1"}, store, clock)

	id, err := resolver.Resolve(context.Background(), request())
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, now, store.asOf)
	assert.Equal(t, "u-1", id.ID)
	assert.Equal(t, "matko bulić", id.Profile.DisplayName)
	assert.Equal(t, "MB", id.Profile.Initials)
	assert.Equal(t, "hr", id.Preferences.Locale)
	assert.True(t, id.Enabled)
	assert.False(t, id.Admin)
	assert.Empty(t, id.Permissions)
}

func TestResolvePrefersStoredDisplayName(t *testing.T) {
	record := completeRecord()
	name := "The Developer"
	record.Profile.DisplayName = &name

	id, err := Build(record, now)
	require.NoError(t, err)
	assert.Equal(t, "The Developer", id.Profile.DisplayName)
}

func TestMembershipValidityWindow(t *testing.T) {
	record := completeRecord()
	record.Memberships = []Membership{
		{RoleID: "open", Permissions: []string{"profile:read"}},
		{RoleID: "future", Permissions: []string{"note:create"}, ActiveFrom: at(now.Add(time.Hour))},
		{RoleID: "expired", Permissions: []string{"note:delete"}, ActiveTo: at(now.Add(-time.Hour))},
		{RoleID: "current", Permissions: []string{"note:read", "profile:read"}, ActiveFrom: at(now.Add(-time.Hour)), ActiveTo: at(now.Add(time.Hour))},
		{RoleID: "until-now", Permissions: []string{"preferences:read"}, ActiveTo: at(now)},
	}

	id, err := Build(record, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"profile:read", "note:read", "preferences:read"}, id.Permissions)
	assert.False(t, id.HasPermission("note:create"))
	assert.False(t, id.HasPermission("note:delete"))
}

func TestSplitPermissions(t *testing.T) {
	assert.Nil(t, SplitPermissions(""))
	assert.Equal(t, []string{"note:read", "note:create"}, SplitPermissions(" note:read, ,note:create "))
	assert.Equal(t, "a,b", JoinPermissions([]string{"a", "b"}))
}

func TestInitialsHandleEmptyNames(t *testing.T) {
	assert.Equal(t, "A", initials("ana", ""))
	assert.Equal(t, "", initials("", ""))
}
