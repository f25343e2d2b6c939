package app

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/launchpad-web/launchpad/internal/auth"
	"github.com/launchpad-web/launchpad/internal/observability"
	"github.com/launchpad-web/launchpad/internal/pages"
	"github.com/launchpad-web/launchpad/internal/platform/httpx"
	"github.com/launchpad-web/launchpad/internal/reqctx"
	"github.com/launchpad-web/launchpad/internal/rpc"
	"github.com/launchpad-web/launchpad/internal/shared"
)

// Pinger is satisfied by pgxpool.Pool and the redis client wrapper used in health checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

type redisPinger struct{ client *redis.Client }

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// RedisPinger adapts a redis client to Pinger.
func RedisPinger(client *redis.Client) Pinger {
	return redisPinger{client: client}
}

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Assembler      *reqctx.Assembler
	AuthHandler    *auth.Handler
	RPCServer      *rpc.Server
	PagesHandler   *pages.Handler
	Metrics        *observability.Metrics
	Checks         map[string]Pinger
}

// NewRouter constructs the chi.Router with Launchpad defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", healthz(params.Logger, params.Checks))
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		for _, mw := range MiddlewareStack(MiddlewareConfig{
			Logger:         params.Logger,
			Config:         params.Config,
			SessionManager: params.SessionManager,
			CSRFManager:    params.CSRFManager,
			Assembler:      params.Assembler,
			Metrics:        params.Metrics,
		}) {
			r.Use(mw)
		}

		r.Route("/api", func(r chi.Router) {
			if params.AuthHandler != nil {
				r.Route("/auth", params.AuthHandler.MountRoutes)
			}
			if params.RPCServer != nil {
				r.Route("/rpc", params.RPCServer.MountRoutes)
			}
			r.NotFound(pages.APINotFound)
		})
		if params.PagesHandler != nil {
			params.PagesHandler.MountRoutes(r)
		}
	})

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		if strings.HasPrefix(req.URL.Path, "/api/") {
			pages.APINotFound(w, req)
			return
		}
		http.NotFound(w, req)
	})
	return r
}

func healthz(logger *slog.Logger, checks map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		report := map[string]string{"status": "ok"}
		for name, check := range checks {
			if check == nil {
				continue
			}
			if err := check.Ping(r.Context()); err != nil {
				if logger != nil {
					logger.Warn("health check failed", slog.String("check", name), slog.Any("error", err))
				}
				status = http.StatusServiceUnavailable
				report["status"] = "degraded"
				report[name] = "down"
				continue
			}
			report[name] = "up"
		}
		httpx.JSON(w, status, report)
	}
}
