package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/launchpad-web/launchpad/internal/guard"
	"github.com/launchpad-web/launchpad/internal/observability"
	"github.com/launchpad-web/launchpad/internal/platform/httpx"
	"github.com/launchpad-web/launchpad/internal/reqctx"
	"github.com/launchpad-web/launchpad/internal/shared"
)

const (
	maxInputBytes = 1 << 20
	// unknownLabel replaces unregistered names in metric labels.
	unknownLabel = "unknown"
)

// ErrMethodNotAllowed rejects mutations sent over GET.
var ErrMethodNotAllowed = httpx.NewError(http.StatusMethodNotAllowed, "", "mutations require POST", nil)

type envelope struct {
	Result *result  `json:"result,omitempty"`
	Error  *Failure `json:"error,omitempty"`
}

type result struct {
	Data any `json:"data"`
}

// Server dispatches procedure calls. Registration happens at startup; the
// procedure table is read-only afterwards.
type Server struct {
	procedures map[string]Procedure
	logger     *slog.Logger
	metrics    *observability.Metrics
	keys       KeyStore
}

// KeyStore claims idempotency keys for mutations.
type KeyStore interface {
	Claim(ctx context.Context, key, scope string) error
	Release(ctx context.Context, key, scope string) error
}

// UseIdempotency makes mutations carrying an Idempotency-Key header run at most
// once per caller and key. Anonymous calls are not deduplicated.
func (s *Server) UseIdempotency(keys KeyStore) {
	s.keys = keys
}

// NewServer constructs an empty server.
func NewServer(logger *slog.Logger, metrics *observability.Metrics) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{procedures: make(map[string]Procedure), logger: logger, metrics: metrics}
}

// Register adds procedures, rejecting duplicate or incomplete definitions.
func (s *Server) Register(procs ...Procedure) error {
	for _, p := range procs {
		if p.Name == "" || p.Handle == nil {
			return fmt.Errorf("rpc: procedure %q is incomplete", p.Name)
		}
		if _, exists := s.procedures[p.Name]; exists {
			return fmt.Errorf("rpc: procedure %q registered twice", p.Name)
		}
		s.procedures[p.Name] = p
	}
	return nil
}

// MustRegister is Register that panics, for wiring at startup.
func (s *Server) MustRegister(procs ...Procedure) {
	if err := s.Register(procs...); err != nil {
		panic(err)
	}
}

// Procedures lists registered names in order.
func (s *Server) Procedures() []string {
	names := make([]string, 0, len(s.procedures))
	for name := range s.procedures {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call runs the access guards for the named procedure and then its handler.
func (s *Server) Call(r *http.Request, rc *reqctx.Context, name string, input json.RawMessage) (any, error) {
	proc, ok := s.procedures[name]
	if !ok {
		return nil, fmt.Errorf("rpc: procedure %q: %w", name, httpx.ErrNotFound)
	}
	if proc.Kind == Mutation && r.Method != http.MethodPost {
		return nil, ErrMethodNotAllowed
	}
	if out := guard.Evaluate(r, rc, proc.guards()...); !out.Continues() {
		if rejection := out.Err(); rejection != nil {
			return nil, rejection
		}
		return nil, httpx.Unauthorized(guard.CodeUnauthorized)
	}
	if err := r.Context().Err(); err != nil {
		return nil, err
	}
	if proc.Kind == Mutation && s.keys != nil && rc != nil && rc.Identity != nil {
		if key := r.Header.Get(shared.IdempotencyHeader); key != "" {
			return s.callOnce(r.Context(), rc, proc, rc.Identity.ID+":"+key, input)
		}
	}
	return proc.Handle(r.Context(), rc, input)
}

func (s *Server) callOnce(ctx context.Context, rc *reqctx.Context, proc Procedure, key string, input json.RawMessage) (any, error) {
	if err := s.keys.Claim(ctx, key, proc.Name); err != nil {
		return nil, err
	}
	out, err := proc.Handle(ctx, rc, input)
	if err != nil {
		if releaseErr := s.keys.Release(context.WithoutCancel(ctx), key, proc.Name); releaseErr != nil {
			s.logger.Warn("release idempotency key", slog.String("procedure", proc.Name), slog.Any("error", releaseErr))
		}
	}
	return out, err
}

// MountRoutes registers the procedure endpoint.
func (s *Server) MountRoutes(r chi.Router) {
	r.Get("/{procedure}", s.ServeHTTP)
	r.Post("/{procedure}", s.ServeHTTP)
}

// ServeHTTP handles GET (input from ?input=) and POST (input from body).
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	name := chi.URLParam(r, "procedure")
	label := name
	if _, ok := s.procedures[name]; !ok {
		label = unknownLabel
	}

	data, err := s.dispatch(w, r, name)
	if err != nil {
		failure := Classify(name, err)
		if failure.HTTPStatus >= http.StatusInternalServerError {
			s.logger.Error("rpc call failed", slog.String("procedure", name), slog.Any("error", err))
		} else {
			s.logger.Debug("rpc call rejected", slog.String("procedure", name), slog.Int("status", failure.HTTPStatus), slog.String("code", failure.Code))
		}
		s.metrics.ObserveRPC(label, failure.HTTPStatus, time.Since(start))
		httpx.JSON(w, failure.HTTPStatus, envelope{Error: &failure})
		return
	}
	s.metrics.ObserveRPC(label, http.StatusOK, time.Since(start))
	httpx.JSON(w, http.StatusOK, envelope{Result: &result{Data: data}})
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, name string) (any, error) {
	rc, err := reqctx.From(r.Context())
	if err != nil {
		return nil, err
	}
	var input json.RawMessage
	switch r.Method {
	case http.MethodGet:
		if raw := r.URL.Query().Get("input"); raw != "" {
			input = json.RawMessage(raw)
		}
	default:
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxInputBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return nil, fmt.Errorf("%w: input exceeds %d bytes", httpx.ErrValidation, tooLarge.Limit)
			}
			return nil, fmt.Errorf("rpc: read input: %w", err)
		}
		input = body
	}
	return s.Call(r, rc, name, input)
}
