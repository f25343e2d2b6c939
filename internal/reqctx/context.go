// Package reqctx assembles and publishes the per-request bundle of identity,
// abilities, locale resources and request scoped clients.
package reqctx

import (
	"context"
	"errors"

	"github.com/launchpad-web/launchpad/internal/ability"
	"github.com/launchpad-web/launchpad/internal/identity"
	"github.com/launchpad-web/launchpad/internal/intl"
	"github.com/launchpad-web/launchpad/internal/platform/cache"
	"github.com/launchpad-web/launchpad/internal/platform/httpx"
)

// CodeUserNotProvided marks a route reached without an identity that required one.
const CodeUserNotProvided = "USER_NOT_PROVIDED"

// ErrNotAssembled is returned when the bundle is read before the assembler ran.
var ErrNotAssembled = errors.New("reqctx: request context not assembled")

// Caller invokes RPC procedures on behalf of the current request.
type Caller interface {
	Query(ctx context.Context, procedure string, input, out any) error
	Mutate(ctx context.Context, procedure string, input, out any) error
}

// Context is the read-only bundle for one request. Identity is nil for anonymous callers.
type Context struct {
	Identity *identity.Identity
	Ability  *ability.Set
	Intl     *intl.Intl
	Queries  *cache.Query
	RPC      Caller
}

// User returns the identity or a 500 USER_NOT_PROVIDED error when absent.
// Reaching this without an identity means authentication middleware is missing upstream.
func (c *Context) User() (*identity.Identity, error) {
	if c == nil || c.Identity == nil {
		return nil, httpx.Internal(CodeUserNotProvided)
	}
	return c.Identity, nil
}

type contextKey struct{}

// WithContext publishes rc on ctx.
func WithContext(ctx context.Context, rc *Context) context.Context {
	return context.WithValue(ctx, contextKey{}, rc)
}

// From retrieves the published bundle.
func From(ctx context.Context) (*Context, error) {
	rc, ok := ctx.Value(contextKey{}).(*Context)
	if !ok || rc == nil {
		return nil, ErrNotAssembled
	}
	return rc, nil
}

// MustFrom is From for code paths where a missing bundle is a wiring bug.
func MustFrom(ctx context.Context) *Context {
	rc, err := From(ctx)
	if err != nil {
		panic(err)
	}
	return rc
}
