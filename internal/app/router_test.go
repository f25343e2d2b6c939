package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchpad-web/launchpad/internal/ability"
	"github.com/launchpad-web/launchpad/internal/app"
	"github.com/launchpad-web/launchpad/internal/auth"
	"github.com/launchpad-web/launchpad/internal/identity"
	"github.com/launchpad-web/launchpad/internal/intl"
	"github.com/launchpad-web/launchpad/internal/observability"
	"github.com/launchpad-web/launchpad/internal/pages"
	"github.com/launchpad-web/launchpad/internal/reqctx"
	"github.com/launchpad-web/launchpad/internal/rpc"
	"github.com/launchpad-web/launchpad/internal/shared"
	_ "github.com/launchpad-web/launchpad/testing"
	"github.com/launchpad-web/launchpad/web"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type noUsers struct{}

func (noUsers) FindByEmail(context.Context, string) (*auth.User, error) {
	return nil, errors.New("not found")
}

func (noUsers) CreateSession(context.Context, auth.SessionRecord) error         { return nil }
func (noUsers) DeleteSession(context.Context, string) error                     { return nil }
func (noUsers) DeleteExpiredSessions(context.Context, time.Time) (int64, error) { return 0, nil }

type anonymous struct{}

func (anonymous) Resolve(context.Context, *http.Request) (*identity.Identity, error) {
	return nil, nil
}

func newRouter(t *testing.T, checks map[string]app.Pinger) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cfg := &app.Config{AppEnv: "test", AppRequestTimeout: 5 * time.Second, SignInPath: "/auth/sign-in", RedirectKey: "redirect"}
	sessions := shared.NewSessionManager(client, "launchpad_session", "secret", time.Hour, false)
	csrf := shared.NewCSRFManager("csrf")
	metrics := observability.NewMetrics()

	server := rpc.NewServer(nil, metrics)
	server.MustRegister(rpc.Procedure{
		Name: "echo",
		Kind: rpc.Mutation,
		Handle: func(_ context.Context, _ *reqctx.Context, input json.RawMessage) (any, error) {
			return input, nil
		},
	})

	return app.NewRouter(app.RouterParams{
		Config:         cfg,
		SessionManager: sessions,
		CSRFManager:    csrf,
		Assembler: &reqctx.Assembler{
			Identities: anonymous{},
			Locales:    intl.NewCatalog(web.Locales, "locales"),
			Abilities:  ability.Default(),
		},
		AuthHandler:  auth.NewHandler(nil, auth.NewService(noUsers{}), sessions, csrf, "redirect", 100),
		RPCServer:    server,
		PagesHandler: pages.NewHandler(nil, metrics, "/auth/sign-in", "redirect"),
		Metrics:      metrics,
		Checks:       checks,
	})
}

func TestHealthz(t *testing.T) {
	ok := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("refused") })

	rec := httptest.NewRecorder()
	newRouter(t, map[string]app.Pinger{"postgres": ok}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","postgres":"up"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	newRouter(t, map[string]app.Pinger{"postgres": ok, "redis": down}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"degraded","postgres":"up","redis":"down"}`, rec.Body.String())
}

func TestUnknownAPIRouteIsJSON404(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter(t, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"API Route Not Found!"}`, rec.Body.String())
}

func TestAnonymousDashboardRedirectsToSignIn(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter(t, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Location"), "/auth/sign-in?redirect="))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestMutationRequiresCSRFToken(t *testing.T) {
	router := newRouter(t, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/rpc/echo", strings.NewReader(`{"a":1}`)))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/csrf", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var issued struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &issued))
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodPost, "/api/rpc/echo", strings.NewReader(`{"a":1}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(shared.CSRFHeader, issued.Token)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"result":{"data":{"a":1}}}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	router := newRouter(t, nil)
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "launchpad_guard_outcomes_total")
}
