// Package guard holds the composable checks that let a request through,
// redirect it, or reject it with a classified error.
package guard

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/launchpad-web/launchpad/internal/ability"
	"github.com/launchpad-web/launchpad/internal/platform/httpx"
	"github.com/launchpad-web/launchpad/internal/reqctx"
)

// Stable rejection codes.
const (
	CodeUnauthorized   = "UNAUTHORIZED"
	CodeForbidden      = "FORBIDDEN"
	CodeUserNotEnabled = "USER_NOT_ENABLED"
	CodeUserNotAdmin   = "USER_NOT_ADMIN"
)

// DefaultRedirectKey is the query parameter carrying the return-to target.
const DefaultRedirectKey = "redirect"

type kind uint8

const (
	kindContinue kind = iota
	kindRedirect
	kindReject
)

// Outcome is the result of a guard: continue, redirect or reject.
type Outcome struct {
	kind     kind
	location string
	err      *httpx.Error
}

// Continue lets the chain proceed.
func Continue() Outcome { return Outcome{} }

// Redirect ends the chain with a redirect to location.
func Redirect(location string) Outcome {
	return Outcome{kind: kindRedirect, location: location}
}

// Reject ends the chain with err.
func Reject(err *httpx.Error) Outcome {
	if err == nil {
		err = httpx.Internal("GUARD_REJECTED")
	}
	return Outcome{kind: kindReject, err: err}
}

// Continues reports whether the chain may proceed.
func (o Outcome) Continues() bool { return o.kind == kindContinue }

// Location returns the redirect target, if any.
func (o Outcome) Location() (string, bool) {
	return o.location, o.kind == kindRedirect
}

// Err returns the rejection, if any.
func (o Outcome) Err() *httpx.Error {
	if o.kind != kindReject {
		return nil
	}
	return o.err
}

// Label names the outcome for logs and metrics.
func (o Outcome) Label() string {
	switch o.kind {
	case kindRedirect:
		return "redirect"
	case kindReject:
		return o.err.Code
	default:
		return "continue"
	}
}

// Guard inspects the published request context. r is only read by the
// redirecting guards.
type Guard func(r *http.Request, rc *reqctx.Context) Outcome

// Evaluate runs guards in order and returns the first outcome that does not continue.
func Evaluate(r *http.Request, rc *reqctx.Context, guards ...Guard) Outcome {
	for _, g := range guards {
		if g == nil {
			continue
		}
		if out := g(r, rc); !out.Continues() {
			return out
		}
	}
	return Continue()
}

// RequireAuthenticated redirects anonymous callers to signInPath with the full
// request URL under key.
func RequireAuthenticated(signInPath, key string) Guard {
	if key == "" {
		key = DefaultRedirectKey
	}
	return func(r *http.Request, rc *reqctx.Context) Outcome {
		if rc != nil && rc.Identity != nil {
			return Continue()
		}
		return Redirect(withQuery(signInPath, key, requestURL(r)))
	}
}

// RequireAnonymous redirects signed-in callers to the return-to target under
// key, or to defaultTo when it is missing or points at another host.
func RequireAnonymous(defaultTo, key string) Guard {
	if key == "" {
		key = DefaultRedirectKey
	}
	return func(r *http.Request, rc *reqctx.Context) Outcome {
		if rc == nil || rc.Identity == nil {
			return Continue()
		}
		return Redirect(ReturnTo(r, key, defaultTo))
	}
}

// ReturnTo reads the return-to target under key, falling back when it is
// missing or leaves the current host.
func ReturnTo(r *http.Request, key, fallback string) string {
	if key == "" {
		key = DefaultRedirectKey
	}
	if target := r.URL.Query().Get(key); sameOrigin(r, target) {
		return target
	}
	return fallback
}

// RequireEnabled rejects disabled identities. It must follow RequireAuthenticated.
func RequireEnabled() Guard {
	return func(_ *http.Request, rc *reqctx.Context) Outcome {
		user, err := rc.User()
		if err != nil {
			return Reject(asHTTPError(err))
		}
		if !user.Enabled {
			return Reject(httpx.Forbidden(CodeUserNotEnabled))
		}
		return Continue()
	}
}

// RequireAdmin rejects identities without the admin flag. It must follow RequireAuthenticated.
func RequireAdmin() Guard {
	return func(_ *http.Request, rc *reqctx.Context) Outcome {
		user, err := rc.User()
		if err != nil {
			return Reject(asHTTPError(err))
		}
		if !user.Admin {
			return Reject(httpx.Forbidden(CodeUserNotAdmin))
		}
		return Continue()
	}
}

// RequireIdentity is the procedure-level counterpart of RequireAuthenticated:
// it rejects instead of redirecting.
func RequireIdentity() Guard {
	return func(_ *http.Request, rc *reqctx.Context) Outcome {
		if rc == nil || rc.Identity == nil {
			return Reject(httpx.Unauthorized(CodeUnauthorized))
		}
		return Continue()
	}
}

// RequireCapability rejects when allowed returns false for the request's ability set.
func RequireCapability(allowed func(*ability.Set) bool) Guard {
	return func(_ *http.Request, rc *reqctx.Context) Outcome {
		var set *ability.Set
		if rc != nil {
			set = rc.Ability
		}
		if allowed == nil || !allowed(set) {
			return Reject(httpx.Forbidden(CodeForbidden))
		}
		return Continue()
	}
}

// Can is the common RequireCapability predicate.
func Can(action ability.Action, subject ability.Subject) func(*ability.Set) bool {
	return func(set *ability.Set) bool {
		return set.Can(action, subject)
	}
}

func asHTTPError(err error) *httpx.Error {
	var httpErr *httpx.Error
	if errors.As(err, &httpErr) {
		return httpErr
	}
	return httpx.Internal(reqctx.CodeUserNotProvided)
}

func requestURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	} else if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.ToLower(strings.TrimSpace(strings.Split(proto, ",")[0]))
	}
	host := r.Host
	if host == "" {
		host = r.URL.Host
	}
	return scheme + "://" + host + r.URL.RequestURI()
}

func withQuery(path, key, value string) string {
	u, err := url.Parse(path)
	if err != nil {
		return path + "?" + url.Values{key: {value}}.Encode()
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}

func sameOrigin(r *http.Request, target string) bool {
	if target == "" {
		return false
	}
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	if u.IsAbs() || u.Host != "" {
		return (u.Scheme == "http" || u.Scheme == "https") && strings.EqualFold(u.Host, r.Host)
	}
	return strings.HasPrefix(u.Path, "/") && !strings.HasPrefix(target, "//") && !strings.HasPrefix(target, "/\\")
}
