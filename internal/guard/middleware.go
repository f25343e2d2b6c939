package guard

import (
	"log/slog"
	"net/http"

	"github.com/launchpad-web/launchpad/internal/observability"
	"github.com/launchpad-web/launchpad/internal/platform/httpx"
	"github.com/launchpad-web/launchpad/internal/reqctx"
)

// Middleware adapts guards to a chi middleware. Redirects use 302 and
// rejections are written as problem documents carrying the code.
func Middleware(logger *slog.Logger, metrics *observability.Metrics, guards ...Guard) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rc, err := reqctx.From(r.Context())
			if err != nil {
				logger.Error("guard without request context", slog.String("path", r.URL.Path))
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
				return
			}
			out := Evaluate(r, rc, guards...)
			if out.Continues() {
				next.ServeHTTP(w, r)
				return
			}
			metrics.ObserveGuard(r, out.Label())
			if location, ok := out.Location(); ok {
				http.Redirect(w, r, location, http.StatusFound)
				return
			}
			rejection := out.Err()
			if rejection.Status >= http.StatusInternalServerError {
				logger.Error("guard rejected request", slog.String("path", r.URL.Path), slog.String("code", rejection.Code))
			} else {
				logger.Debug("guard rejected request", slog.String("path", r.URL.Path), slog.String("code", rejection.Code))
			}
			httpx.RespondError(w, rejection)
		})
	}
}
