package rpc_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchpad-web/launchpad/internal/ability"
	"github.com/launchpad-web/launchpad/internal/guard"
	"github.com/launchpad-web/launchpad/internal/identity"
	"github.com/launchpad-web/launchpad/internal/observability"
	"github.com/launchpad-web/launchpad/internal/platform/cache"
	"github.com/launchpad-web/launchpad/internal/platform/httpx"
	"github.com/launchpad-web/launchpad/internal/reqctx"
	"github.com/launchpad-web/launchpad/internal/rpc"
	"github.com/launchpad-web/launchpad/internal/shared"
)

type echoInput struct {
	Title string `json:"title" validate:"required,max=10"`
}

type wire struct {
	Result *struct {
		Data json.RawMessage `json:"data"`
	} `json:"result"`
	Error *rpc.Failure `json:"error"`
}

func newServer(t *testing.T, calls *int32) *rpc.Server {
	t.Helper()
	server := rpc.NewServer(nil, nil)
	server.MustRegister(
		rpc.Procedure{
			Name: "ping",
			Handle: func(context.Context, *reqctx.Context, json.RawMessage) (any, error) {
				if calls != nil {
					atomic.AddInt32(calls, 1)
				}
				return "pong", nil
			},
		},
		rpc.Procedure{
			Name:    "note.create",
			Kind:    rpc.Mutation,
			Access:  rpc.Protected,
			Ability: guard.Can(ability.ActionCreate, ability.SubjectNote),
			Handle: rpc.Typed(func(_ context.Context, _ *reqctx.Context, in echoInput) (echoInput, error) {
				return in, nil
			}),
		},
		rpc.Procedure{
			Name:   "admin.only",
			Access: rpc.Admin,
			Handle: func(context.Context, *reqctx.Context, json.RawMessage) (any, error) { return true, nil },
		},
		rpc.Procedure{
			Name: "explode",
			Handle: func(context.Context, *reqctx.Context, json.RawMessage) (any, error) {
				return nil, errors.New("pq: relation \"secrets\" does not exist")
			},
		},
		rpc.Procedure{
			Name: "missing",
			Handle: func(context.Context, *reqctx.Context, json.RawMessage) (any, error) {
				return nil, httpx.ErrNotFound
			},
		},
	)
	return server
}

func router(server *rpc.Server, id *identity.Identity) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			rc := &reqctx.Context{Identity: id, Ability: ability.Default().Build(id), Queries: cache.NewQuery()}
			next.ServeHTTP(w, req.WithContext(reqctx.WithContext(req.Context(), rc)))
		})
	})
	r.Route("/api/rpc", server.MountRoutes)
	return r
}

func call(t *testing.T, h http.Handler, method, target, body string) (int, wire) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var out wire
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec.Code, out
}

func writer() *identity.Identity {
	return &identity.Identity{ID: "u1", Enabled: true, Permissions: []string{ability.PermNoteCreate}}
}

func TestPublicQuery(t *testing.T) {
	code, out := call(t, router(newServer(t, nil), nil), http.MethodGet, "/api/rpc/ping", "")
	assert.Equal(t, http.StatusOK, code)
	require.NotNil(t, out.Result)
	assert.JSONEq(t, `"pong"`, string(out.Result.Data))
}

func TestErrorMappingIsUniform(t *testing.T) {
	server := newServer(t, nil)
	cases := []struct {
		name   string
		id     *identity.Identity
		method string
		target string
		body   string
		status int
		code   string
	}{
		{"anonymous", nil, http.MethodPost, "/api/rpc/note.create", `{"title":"a"}`, http.StatusUnauthorized, rpc.CodeUnauthorized},
		{"disabled", &identity.Identity{ID: "u1", Permissions: []string{ability.PermNoteCreate}}, http.MethodPost, "/api/rpc/note.create", `{"title":"a"}`, http.StatusForbidden, rpc.CodeForbidden},
		{"lacks capability", &identity.Identity{ID: "u1", Enabled: true}, http.MethodPost, "/api/rpc/note.create", `{"title":"a"}`, http.StatusForbidden, rpc.CodeForbidden},
		{"not admin", writer(), http.MethodGet, "/api/rpc/admin.only", "", http.StatusForbidden, rpc.CodeForbidden},
		{"invalid input", writer(), http.MethodPost, "/api/rpc/note.create", `{"title":""}`, http.StatusBadRequest, rpc.CodeBadRequest},
		{"malformed input", writer(), http.MethodPost, "/api/rpc/note.create", `{"title":`, http.StatusBadRequest, rpc.CodeBadRequest},
		{"unknown field", writer(), http.MethodPost, "/api/rpc/note.create", `{"title":"a","x":1}`, http.StatusBadRequest, rpc.CodeBadRequest},
		{"unknown procedure", writer(), http.MethodGet, "/api/rpc/nope", "", http.StatusNotFound, ""},
		{"not found", writer(), http.MethodGet, "/api/rpc/missing", "", http.StatusNotFound, ""},
		{"mutation over GET", writer(), http.MethodGet, "/api/rpc/note.create", "", http.StatusMethodNotAllowed, ""},
		{"unclassified", writer(), http.MethodGet, "/api/rpc/explode", "", http.StatusInternalServerError, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, out := call(t, router(server, tc.id), tc.method, tc.target, tc.body)
			assert.Equal(t, tc.status, status)
			require.NotNil(t, out.Error)
			assert.Nil(t, out.Result)
			assert.Equal(t, tc.code, out.Error.Code)
			assert.Equal(t, tc.status, out.Error.HTTPStatus)
		})
	}
}

func TestUnclassifiedFailureHidesDetail(t *testing.T) {
	_, out := call(t, router(newServer(t, nil), writer()), http.MethodGet, "/api/rpc/explode", "")
	require.NotNil(t, out.Error)
	assert.Equal(t, "internal server error", out.Error.Message)
	assert.Equal(t, "explode", out.Error.Path)
}

func TestTypedMutationRoundTrip(t *testing.T) {
	status, out := call(t, router(newServer(t, nil), writer()), http.MethodPost, "/api/rpc/note.create", `{"title":"hello"}`)
	assert.Equal(t, http.StatusOK, status)
	require.NotNil(t, out.Result)
	assert.JSONEq(t, `{"title":"hello"}`, string(out.Result.Data))
}

func TestQueryInputFromURL(t *testing.T) {
	server := rpc.NewServer(nil, nil)
	server.MustRegister(rpc.Procedure{
		Name: "echo",
		Handle: rpc.Typed(func(_ context.Context, _ *reqctx.Context, in echoInput) (string, error) {
			return in.Title, nil
		}),
	})
	target := "/api/rpc/echo?input=" + url.QueryEscape(`{"title":"hi"}`)
	_, out := call(t, router(server, nil), http.MethodGet, target, "")
	require.NotNil(t, out.Result)
	assert.JSONEq(t, `"hi"`, string(out.Result.Data))
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	server := rpc.NewServer(nil, nil)
	p := rpc.Procedure{Name: "ping", Handle: func(context.Context, *reqctx.Context, json.RawMessage) (any, error) { return nil, nil }}
	require.NoError(t, server.Register(p))
	assert.Error(t, server.Register(p))
	assert.Error(t, server.Register(rpc.Procedure{Name: "empty"}))
	assert.Equal(t, []string{"ping"}, server.Procedures())
}

func TestClassify(t *testing.T) {
	assert.Equal(t, rpc.CodeUnauthorized, rpc.Classify("p", httpx.Unauthorized("X")).Code)
	assert.Equal(t, rpc.CodeForbidden, rpc.Classify("p", httpx.Forbidden(guard.CodeUserNotEnabled)).Code)
	assert.Equal(t, rpc.CodeBadRequest, rpc.Classify("p", httpx.ErrValidation).Code)

	generic := rpc.Classify("p", httpx.Internal(reqctx.CodeUserNotProvided))
	assert.Equal(t, http.StatusInternalServerError, generic.HTTPStatus)
	assert.Empty(t, generic.Code)
	assert.Equal(t, "internal server error", generic.Message)
}

func TestClientForwardsHeadersAndMemoizes(t *testing.T) {
	var calls int32
	server := newServer(t, &calls)
	var seenCookie, seenLang atomic.Value
	inner := router(server, writer())
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenCookie.Store(r.Header.Get("Cookie"))
		seenLang.Store(r.Header.Get("Accept-Language"))
		inner.ServeHTTP(w, r)
	}))
	defer upstream.Close()

	inbound := httptest.NewRequest(http.MethodGet, "/", nil)
	inbound.Header.Set("Cookie", "launchpad_session=abc")
	inbound.Header.Set("Accept-Language", "hr")
	queries := cache.NewQuery()
	client := rpc.NewClientFactory(upstream.URL, upstream.Client())(inbound, queries)

	var got string
	require.NoError(t, client.Query(context.Background(), "ping", nil, &got))
	require.NoError(t, client.Query(context.Background(), "ping", nil, &got))
	assert.Equal(t, "pong", got)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, "launchpad_session=abc", seenCookie.Load())
	assert.Equal(t, "hr", seenLang.Load())

	var created echoInput
	require.NoError(t, client.Mutate(context.Background(), "note.create", echoInput{Title: "x"}, &created))
	assert.Equal(t, "x", created.Title)
	assert.Equal(t, 0, queries.Len())

	require.NoError(t, client.Query(context.Background(), "ping", nil, &got))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClientSurfacesRemoteErrors(t *testing.T) {
	upstream := httptest.NewServer(router(newServer(t, nil), nil))
	defer upstream.Close()

	client := rpc.NewClient(upstream.URL, upstream.Client(), nil, nil)
	err := client.Mutate(context.Background(), "note.create", echoInput{Title: "x"}, nil)

	var remote *rpc.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, rpc.CodeUnauthorized, remote.Code)
	assert.ErrorIs(t, err, httpx.ErrUnauthorized)
	assert.NotErrorIs(t, err, httpx.ErrForbidden)
}

func TestIdempotentMutationRunsOnce(t *testing.T) {
	mr := miniredis.RunT(t)
	store := shared.NewIdempotencyStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Hour)

	var runs int32
	fail := true
	server := rpc.NewServer(nil, nil)
	server.UseIdempotency(store)
	server.MustRegister(rpc.Procedure{
		Name: "note.touch",
		Kind: rpc.Mutation,
		Handle: func(context.Context, *reqctx.Context, json.RawMessage) (any, error) {
			atomic.AddInt32(&runs, 1)
			if fail {
				return nil, errors.New("transient")
			}
			return "ok", nil
		},
	})
	h := router(server, writer())

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/rpc/note.touch", strings.NewReader(`{}`))
		req.Header.Set(shared.IdempotencyHeader, "k-1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusInternalServerError, send())
	fail = false
	assert.Equal(t, http.StatusOK, send())
	assert.Equal(t, http.StatusConflict, send())
	assert.Equal(t, int32(2), atomic.LoadInt32(&runs))
}

func TestAnonymousMutationsAreNotDeduplicated(t *testing.T) {
	mr := miniredis.RunT(t)
	store := shared.NewIdempotencyStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Hour)

	var runs int32
	server := rpc.NewServer(nil, nil)
	server.UseIdempotency(store)
	server.MustRegister(rpc.Procedure{
		Name: "feedback.send",
		Kind: rpc.Mutation,
		Handle: func(context.Context, *reqctx.Context, json.RawMessage) (any, error) {
			atomic.AddInt32(&runs, 1)
			return "ok", nil
		},
	})
	h := router(server, nil)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/rpc/feedback.send", strings.NewReader(`{}`))
		req.Header.Set(shared.IdempotencyHeader, "shared-key")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&runs))
	assert.Empty(t, mr.Keys())
}

func TestUnregisteredNamesShareOneMetricLabel(t *testing.T) {
	metrics := observability.NewMetrics()
	server := rpc.NewServer(nil, metrics)
	server.MustRegister(rpc.Procedure{
		Name:   "ping",
		Handle: func(context.Context, *reqctx.Context, json.RawMessage) (any, error) { return "pong", nil },
	})
	h := router(server, nil)

	code, _ := call(t, h, http.MethodGet, "/api/rpc/ping", "")
	require.Equal(t, http.StatusOK, code)
	for i := 0; i < 50; i++ {
		code, _ := call(t, h, http.MethodGet, fmt.Sprintf("/api/rpc/junk%d", i), "")
		require.Equal(t, http.StatusNotFound, code)
	}

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var series []string
	for _, line := range strings.Split(rec.Body.String(), "\n") {
		if strings.HasPrefix(line, "launchpad_rpc_calls_total{") {
			series = append(series, line)
		}
	}
	require.Len(t, series, 2)
	body := rec.Body.String()
	assert.Contains(t, body, `launchpad_rpc_calls_total{procedure="unknown",status="404"} 50`)
	assert.Contains(t, body, `launchpad_rpc_calls_total{procedure="ping",status="200"} 1`)
	assert.NotContains(t, body, "junk")
}
