package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T) (*SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewSessionManager(client, "sid", "secret", time.Hour, false), mr
}

func requestWith(cookie *http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return req
}

func TestAnonymousSessionIsNotPersistedUntilWritten(t *testing.T) {
	sm, mr := newManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, requestWith(nil))
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, requestWith(nil), sess))
	assert.Empty(t, rec.Result().Cookies())
	assert.Empty(t, mr.Keys())

	sess.Set("k", "v")
	rec = httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, requestWith(nil), sess))
	require.Len(t, rec.Result().Cookies(), 1)
	assert.True(t, mr.Exists("launchpad:session:"+sess.ID))
}

func TestUnknownCookieIsNotAdopted(t *testing.T) {
	sm, _ := newManager(t)
	sess, err := sm.Load(context.Background(), requestWith(&http.Cookie{Name: "sid", Value: "attacker-chosen"}))
	require.NoError(t, err)
	assert.NotEqual(t, "attacker-chosen", sess.ID)
	assert.Empty(t, sess.User())
}

func TestSignInRotatesID(t *testing.T) {
	sm, mr := newManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, requestWith(nil))
	require.NoError(t, err)
	sess.Set(CSRFSessionKey, "token")
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), requestWith(nil), sess))
	anonymousID := sess.ID

	loaded, err := sm.Load(ctx, requestWith(&http.Cookie{Name: "sid", Value: anonymousID}))
	require.NoError(t, err)
	sm.SignIn(loaded, "user-1")
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), requestWith(nil), loaded))

	assert.NotEqual(t, anonymousID, loaded.ID)
	assert.False(t, mr.Exists("launchpad:session:"+anonymousID))

	again, err := sm.Load(ctx, requestWith(&http.Cookie{Name: "sid", Value: loaded.ID}))
	require.NoError(t, err)
	assert.Equal(t, "user-1", again.User())
	assert.Equal(t, "token", again.Get(CSRFSessionKey))
	assert.False(t, again.SignedInAt().IsZero())
}

func TestDestroyRemovesSession(t *testing.T) {
	sm, mr := newManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, requestWith(nil))
	require.NoError(t, err)
	sm.SignIn(sess, "user-1")
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), requestWith(nil), sess))

	sm.Destroy(sess)
	assert.Empty(t, sess.User())
	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, requestWith(nil), sess))
	assert.False(t, mr.Exists("launchpad:session:"+sess.ID))
	require.Len(t, rec.Result().Cookies(), 1)
	assert.Equal(t, -1, rec.Result().Cookies()[0].MaxAge)
}

func TestCSRFTokens(t *testing.T) {
	sm, _ := newManager(t)
	csrf := NewCSRFManager("csrf")
	sess, err := sm.Load(context.Background(), requestWith(nil))
	require.NoError(t, err)

	token, err := csrf.EnsureToken(context.Background(), sess)
	require.NoError(t, err)
	again, err := csrf.EnsureToken(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, token, again)

	assert.NoError(t, csrf.VerifyToken(context.Background(), sess, token))
	assert.ErrorIs(t, csrf.VerifyToken(context.Background(), sess, "nope"), ErrCSRFTokenMismatch)
	assert.ErrorIs(t, csrf.VerifyToken(context.Background(), sess, ""), ErrCSRFTokenMissing)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(CSRFHeader, token)
	assert.Equal(t, token, TokenFromRequest(req))
}

func TestPagination(t *testing.T) {
	p := NewPagination(3, 10, 41)
	assert.Equal(t, 5, p.TotalPages)
	assert.Equal(t, 20, p.Offset())
	assert.Equal(t, 20, NewPagination(0, 0, 0).PerPage)
}
