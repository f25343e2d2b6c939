package reqctx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/launchpad-web/launchpad/internal/ability"
	"github.com/launchpad-web/launchpad/internal/identity"
	"github.com/launchpad-web/launchpad/internal/intl"
	"github.com/launchpad-web/launchpad/internal/platform/cache"
	"github.com/launchpad-web/launchpad/internal/platform/httpx"
)

// IdentityResolver resolves the caller of a request; nil means anonymous.
type IdentityResolver interface {
	Resolve(ctx context.Context, r *http.Request) (*identity.Identity, error)
}

// LocaleLoader returns the formatting handle for a user's preferences.
type LocaleLoader interface {
	Load(ctx context.Context, prefs *identity.Preferences) (*intl.Intl, error)
}

// ClientFactory builds the RPC client for one request.
type ClientFactory func(r *http.Request, queries *cache.Query) Caller

// Assembler builds the request bundle. Its collaborators must be safe for concurrent use.
type Assembler struct {
	Identities IdentityResolver
	Locales    LocaleLoader
	Abilities  *ability.Builder
	Clients    ClientFactory
	Logger     *slog.Logger
}

// Assemble resolves identity, loads locale resources, builds abilities and
// creates request clients, in that order. A cancelled request yields its
// context error and no bundle.
func (a *Assembler) Assemble(r *http.Request) (*Context, error) {
	ctx := r.Context()

	id, err := a.Identities.Resolve(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("reqctx: resolve identity: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var prefs *identity.Preferences
	if id != nil {
		prefs = &id.Preferences
	}
	locale, err := a.Locales.Load(ctx, prefs)
	if err != nil {
		return nil, fmt.Errorf("reqctx: load locale: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	builder := a.Abilities
	if builder == nil {
		builder = ability.Default()
	}
	rc := &Context{
		Identity: id,
		Ability:  builder.Build(id),
		Intl:     locale,
		Queries:  cache.NewQuery(),
	}
	if a.Clients != nil {
		rc.RPC = a.Clients(r, rc.Queries)
	}
	return rc, nil
}

// Middleware assembles the bundle before any route logic and publishes it on
// the request context. Assembly failures end the request with a generic 500.
func (a *Assembler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc, err := a.Assemble(r)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				a.logger().Debug("request context abandoned", slog.String("path", r.URL.Path), slog.Any("error", err))
				return
			}
			a.logger().Error("assemble request context", slog.String("path", r.URL.Path), slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), rc)))
	})
}

func (a *Assembler) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}
