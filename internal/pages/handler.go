// Package pages serves the JSON page loaders behind route-level guards.
package pages

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/launchpad-web/launchpad/internal/ability"
	"github.com/launchpad-web/launchpad/internal/account"
	"github.com/launchpad-web/launchpad/internal/guard"
	"github.com/launchpad-web/launchpad/internal/identity"
	"github.com/launchpad-web/launchpad/internal/intl"
	"github.com/launchpad-web/launchpad/internal/notes"
	"github.com/launchpad-web/launchpad/internal/observability"
	"github.com/launchpad-web/launchpad/internal/platform/httpx"
	"github.com/launchpad-web/launchpad/internal/reqctx"
	"github.com/launchpad-web/launchpad/internal/users"
)

// Handler serves page data for the web client.
type Handler struct {
	logger      *slog.Logger
	metrics     *observability.Metrics
	signInPath  string
	redirectKey string
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, metrics *observability.Metrics, signInPath, redirectKey string) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if signInPath == "" {
		signInPath = "/auth/sign-in"
	}
	if redirectKey == "" {
		redirectKey = guard.DefaultRedirectKey
	}
	return &Handler{logger: logger, metrics: metrics, signInPath: signInPath, redirectKey: redirectKey}
}

// Page is the envelope of every loader response.
type Page struct {
	Title  string `json:"title"`
	App    string `json:"app"`
	Locale string `json:"locale"`
	Data   any    `json:"data,omitempty"`
}

// MountRoutes registers the page routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(guard.Middleware(h.logger, h.metrics, guard.RequireAnonymous("/", h.redirectKey)))
		r.Get("/auth/sign-in", h.signIn)
	})

	signedIn := []guard.Guard{
		guard.RequireAuthenticated(h.signInPath, h.redirectKey),
		guard.RequireEnabled(),
	}
	r.Group(func(r chi.Router) {
		r.Use(guard.Middleware(h.logger, h.metrics, signedIn...))
		r.With(guard.Middleware(h.logger, h.metrics, guard.RequireCapability(guard.Can(ability.ActionSee, ability.SubjectDashboardPage)))).
			Get("/", h.dashboard)
		r.With(guard.Middleware(h.logger, h.metrics, guard.RequireCapability(guard.Can(ability.ActionSee, ability.SubjectUserProfilePage)))).
			Get("/profile", h.profile)
		r.With(guard.Middleware(h.logger, h.metrics, guard.RequireCapability(guard.Can(ability.ActionSee, ability.SubjectUserPreferencesPage)))).
			Get("/preferences", h.preferences)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(guard.Middleware(h.logger, h.metrics,
			guard.RequireAuthenticated(h.signInPath, h.redirectKey),
			guard.RequireEnabled(),
			guard.RequireAdmin(),
			guard.RequireCapability(guard.Can(ability.ActionSee, ability.SubjectAdminPage)),
		))
		r.Get("/", h.admin)
		r.Get("/*", h.notFound)
	})
}

// APINotFound answers unknown /api/* routes.
func APINotFound(w http.ResponseWriter, _ *http.Request) {
	httpx.JSON(w, http.StatusNotFound, map[string]string{"message": "API Route Not Found!"})
}

func (h *Handler) render(w http.ResponseWriter, rc *reqctx.Context, titleKey, fallback string, data any) {
	page := Page{Data: data, Title: fallback, App: "Launchpad"}
	if rc.Intl != nil {
		page.Title = rc.Intl.Message(titleKey, fallback)
		page.App = rc.Intl.Message("document.app", "Launchpad")
		page.Locale = rc.Intl.Locale()
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("page loader", slog.String("path", r.URL.Path), slog.Any("error", err))
	httpx.RespondError(w, err)
}

func (h *Handler) signIn(w http.ResponseWriter, r *http.Request) {
	rc := reqctx.MustFrom(r.Context())
	h.render(w, rc, "document.sign-in", "Sign in", map[string]string{
		"redirect": guard.ReturnTo(r, h.redirectKey, "/"),
	})
}

type dashboardData struct {
	User  *identity.Identity `json:"user"`
	Notes *notes.ListResult  `json:"notes,omitempty"`
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	rc := reqctx.MustFrom(r.Context())
	user, err := rc.User()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	data := dashboardData{User: user}
	if rc.Ability.Can(ability.ActionRead, ability.SubjectNote) && rc.RPC != nil {
		var list notes.ListResult
		if err := rc.RPC.Query(r.Context(), "note.list", nil, &list); err != nil {
			h.fail(w, r, err)
			return
		}
		data.Notes = &list
	}
	h.render(w, rc, "document.dashboard", "Dashboard", data)
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) {
	rc := reqctx.MustFrom(r.Context())
	user, err := rc.User()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, rc, "document.profile", "Profile", map[string]any{
		"profile":   user.Profile,
		"email":     user.Email,
		"canUpdate": rc.Ability.Can(ability.ActionUpdate, ability.SubjectProfile),
	})
}

func (h *Handler) preferences(w http.ResponseWriter, r *http.Request) {
	rc := reqctx.MustFrom(r.Context())
	user, err := rc.User()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	locales := make([]string, 0, len(intl.SupportedLocales()))
	for _, tag := range intl.SupportedLocales() {
		locales = append(locales, tag.String())
	}
	h.render(w, rc, "document.preferences", "Preferences", map[string]any{
		"preferences": user.Preferences,
		"locales":     locales,
		"canUpdate":   rc.Ability.Can(ability.ActionUpdate, ability.SubjectPreferences),
	})
}

func (h *Handler) admin(w http.ResponseWriter, r *http.Request) {
	rc := reqctx.MustFrom(r.Context())
	var data struct {
		Users *users.ListResult `json:"users,omitempty"`
		Me    account.Session   `json:"me"`
	}
	if rc.RPC != nil {
		var list users.ListResult
		if err := rc.RPC.Query(r.Context(), "admin.users.list", users.ListInput{Page: 1, PerPage: 20}, &list); err != nil {
			h.fail(w, r, err)
			return
		}
		data.Users = &list
	}
	data.Me = account.Session{User: rc.Identity, Rules: rc.Ability.Rules()}
	h.render(w, rc, "document.admin", "Admin", data)
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	rc := reqctx.MustFrom(r.Context())
	title := "Page Not Found"
	if rc.Intl != nil {
		title = rc.Intl.Message("document.not-found", title)
	}
	httpx.Write(w, httpx.ProblemDetail{Title: title, Status: http.StatusNotFound})
}
