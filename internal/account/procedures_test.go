package account_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchpad-web/launchpad/internal/ability"
	"github.com/launchpad-web/launchpad/internal/account"
	"github.com/launchpad-web/launchpad/internal/identity"
	"github.com/launchpad-web/launchpad/internal/reqctx"
	"github.com/launchpad-web/launchpad/internal/rpc"
)

type memoryStore struct {
	saved map[string]identity.Preferences
}

func (m *memoryStore) UpdatePreferences(_ context.Context, userID string, prefs identity.Preferences) error {
	m.saved[userID] = prefs
	return nil
}

type envelope struct {
	Result *struct {
		Data json.RawMessage `json:"data"`
	} `json:"result"`
	Error *rpc.Failure `json:"error"`
}

func invoke(t *testing.T, store account.PreferencesStore, id *identity.Identity, method, name, body string) envelope {
	t.Helper()
	server := rpc.NewServer(nil, nil)
	server.MustRegister(account.Procedures(store)...)
	router := chi.NewRouter()
	router.Route("/api/rpc", server.MountRoutes)

	req := httptest.NewRequest(method, "/api/rpc/"+name, strings.NewReader(body))
	rc := &reqctx.Context{Identity: id, Ability: ability.Default().Build(id)}
	req = req.WithContext(reqctx.WithContext(req.Context(), rc))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var out envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func member() *identity.Identity {
	return &identity.Identity{
		ID:          "u1",
		Enabled:     true,
		Profile:     identity.Profile{DisplayName: "Matko Bulić", Initials: "MB"},
		Permissions: []string{ability.PermProfileRead, ability.PermPreferencesRead, ability.PermPreferencesUpdate},
	}
}

func TestMeIsPublic(t *testing.T) {
	out := invoke(t, &memoryStore{}, nil, http.MethodGet, "account.me", "")
	require.Nil(t, out.Error)
	assert.JSONEq(t, `{"user":null,"rules":[],"locale":""}`, string(out.Result.Data))
}

func TestProfileRequiresCapability(t *testing.T) {
	out := invoke(t, &memoryStore{}, member(), http.MethodGet, "account.profile", "")
	require.Nil(t, out.Error)
	assert.Contains(t, string(out.Result.Data), `"initials":"MB"`)

	stranger := &identity.Identity{ID: "u2", Enabled: true}
	out = invoke(t, &memoryStore{}, stranger, http.MethodGet, "account.profile", "")
	require.NotNil(t, out.Error)
	assert.Equal(t, rpc.CodeForbidden, out.Error.Code)
}

func TestUpdatePreferences(t *testing.T) {
	store := &memoryStore{saved: map[string]identity.Preferences{}}
	body := `{"locale":"hr-HR","timezone":"Europe/Zagreb","firstDayOfWeek":1,"accentColor":"#ff8800","colorScheme":"dark"}`
	out := invoke(t, store, member(), http.MethodPost, "account.updatePreferences", body)
	require.Nil(t, out.Error)
	assert.Equal(t, "hr", store.saved["u1"].Locale)
	assert.Equal(t, 1, store.saved["u1"].FirstDayOfWeek)

	bad := `{"locale":"en","timezone":"Mars/Olympus","firstDayOfWeek":9,"colorScheme":"neon"}`
	out = invoke(t, store, member(), http.MethodPost, "account.updatePreferences", bad)
	require.NotNil(t, out.Error)
	assert.Equal(t, rpc.CodeBadRequest, out.Error.Code)
}
