package auth

import (
	"context"
	"net/http"

	"github.com/launchpad-web/launchpad/internal/shared"
)

// SessionValidator reports the signed-in user of a request from its Redis session.
type SessionValidator struct {
	sessions *shared.SessionManager
}

// NewSessionValidator constructs a SessionValidator.
func NewSessionValidator(sessions *shared.SessionManager) *SessionValidator {
	return &SessionValidator{sessions: sessions}
}

// SubjectFromRequest prefers the session already loaded by the middleware stack.
func (v *SessionValidator) SubjectFromRequest(ctx context.Context, r *http.Request) (string, bool, error) {
	sess := shared.SessionFromContext(ctx)
	if sess == nil {
		loaded, err := v.sessions.Load(ctx, r)
		if err != nil {
			return "", false, err
		}
		sess = loaded
	}
	if id := sess.User(); id != "" {
		return id, true, nil
	}
	return "", false, nil
}
