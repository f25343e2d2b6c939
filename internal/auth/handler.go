package auth

import (
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/launchpad-web/launchpad/internal/guard"
	"github.com/launchpad-web/launchpad/internal/platform/httpx"
	"github.com/launchpad-web/launchpad/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	validator      *validator.Validate
	redirectKey    string
	signInLimit    int
}

// NewHandler constructs a Handler instance. signInLimit caps sign-in attempts per IP per minute.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, csrf *shared.CSRFManager, redirectKey string, signInLimit int) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if signInLimit <= 0 {
		signInLimit = 10
	}
	return &Handler{
		logger:         logger,
		service:        service,
		sessionManager: sessions,
		csrfManager:    csrf,
		validator:      validator.New(),
		redirectKey:    redirectKey,
		signInLimit:    signInLimit,
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/csrf", h.csrfToken)
	r.With(httprate.LimitByIP(h.signInLimit, time.Minute)).Post("/sign-in", h.signIn)
	r.Post("/sign-out", h.signOut)
}

type signInForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type signInResponse struct {
	UserID   string `json:"userId"`
	Redirect string `json:"redirect"`
}

func (h *Handler) csrfToken(w http.ResponseWriter, r *http.Request) {
	token, err := h.csrfManager.EnsureToken(r.Context(), shared.SessionFromContext(r.Context()))
	if err != nil {
		h.logger.Error("issue csrf token", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"token": token})
}

func (h *Handler) signIn(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during sign-in")
		httpx.RespondError(w, httpx.ErrInternal)
		return
	}

	form, err := h.decodeForm(r)
	if err != nil {
		httpx.RespondError(w, httpx.NewError(http.StatusBadRequest, "BAD_REQUEST", "malformed sign-in request", httpx.ErrValidation))
		return
	}
	if err := h.validator.Struct(form); err != nil {
		var fieldErrs validator.ValidationErrors
		detail := "invalid sign-in request"
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			detail = fieldErrs[0].Field() + " is invalid"
		}
		httpx.RespondError(w, httpx.NewError(http.StatusBadRequest, "BAD_REQUEST", detail, httpx.ErrValidation))
		return
	}

	user, err := h.service.Authenticate(r.Context(), form.Email, form.Password)
	if err != nil {
		httpx.RespondError(w, httpx.NewError(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", httpx.ErrUnauthorized))
		return
	}

	h.sessionManager.SignIn(sess, user.ID)
	if err := h.service.RegisterSession(r.Context(), sess.ID, user.ID, h.sessionManager.TTL(), r.RemoteAddr, r.UserAgent()); err != nil {
		h.logger.Warn("register session", slog.Any("error", err))
	}
	httpx.JSON(w, http.StatusOK, signInResponse{
		UserID:   user.ID,
		Redirect: guard.ReturnTo(r, h.redirectKey, "/"),
	})
}

func (h *Handler) signOut(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if sess.User() != "" {
			if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
				h.logger.Warn("remove session", slog.Any("error", err))
			}
		}
		h.sessionManager.Destroy(sess)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decodeForm(r *http.Request) (signInForm, error) {
	var form signInForm
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/x-www-form-urlencoded" {
		if err := r.ParseForm(); err != nil {
			return form, err
		}
		form.Email = r.PostFormValue("email")
		form.Password = r.PostFormValue("password")
		return form, nil
	}
	err := httpx.DecodeJSON(r, &form)
	return form, err
}
