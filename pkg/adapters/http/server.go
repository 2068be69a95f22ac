package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aretw0/bluegreen/internal/logging"
	"github.com/aretw0/bluegreen/pkg/deploy"
	"github.com/aretw0/bluegreen/pkg/domain"
	"github.com/aretw0/bluegreen/pkg/ports"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Rotator runs deployment runs. *deploy.Deployer implements it.
type Rotator interface {
	Run(ctx context.Context, version int, build deploy.Builder) (*deploy.Result, error)
	Key() string
}

// Server exposes the rotation state over HTTP.
type Server struct {
	Store    ports.StateStore
	Rotator  Rotator
	Builder  deploy.Builder
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithBuilder sets the builder used by POST /rotations. By default slots are only recorded.
func WithBuilder(build deploy.Builder) Option {
	return func(s *Server) {
		s.Builder = build
	}
}

// WithGatherer exposes gatherer on GET /metrics.
func WithGatherer(gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.Gatherer = gatherer
	}
}

// WithLogger configures a logger for the Server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.Logger = logger
	}
}

// NewHandler creates the HTTP handler.
func NewHandler(store ports.StateStore, rotator Rotator, opts ...Option) http.Handler {
	s := &Server{
		Store:   store,
		Rotator: rotator,
		Builder: recordOnly,
		Logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/state", s.GetState)
	r.Post("/rotations", s.PostRotation)
	if s.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// recordOnly is the default builder: the caller deploys elsewhere and only needs the decision.
func recordOnly(slot domain.Slot, version int) (deploy.Handle, error) {
	return version, nil
}

// StateResponse is the body of GET /state and POST /rotations.
type StateResponse struct {
	Key        string                `json:"key"`
	State      domain.RotationState  `json:"state"`
	Assignment domain.SlotAssignment `json:"assignment"`
	Rotated    *bool                 `json:"rotated,omitempty"`
	Outcome    string                `json:"outcome,omitempty"`
}

// RotationRequest is the body of POST /rotations.
type RotationRequest struct {
	Version *int `json:"version"`
}

type errorResponse struct {
	Error string `json:"error"`
	Phase string `json:"phase,omitempty"`
}

// GetState handles GET /state.
func (s *Server) GetState(w http.ResponseWriter, r *http.Request) {
	key := s.Rotator.Key()
	state, err := s.Store.Load(r.Context(), key)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrStateNotFound):
			writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		case errors.Is(err, domain.ErrCorruptState):
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
		default:
			s.Logger.Error("GetState: load failed", "err", err)
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		}
		return
	}

	writeJSON(w, http.StatusOK, StateResponse{
		Key:        key,
		State:      *state,
		Assignment: state.Assignment(),
	})
}

// PostRotation handles POST /rotations.
func (s *Server) PostRotation(w http.ResponseWriter, r *http.Request) {
	var body RotationRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Version == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "body must be {\"version\": <integer>}"})
		return
	}

	res, err := s.Rotator.Run(r.Context(), *body.Version, s.Builder)
	if err != nil {
		phase, _ := deploy.FailedPhase(err)
		s.Logger.Warn("PostRotation: run failed", "phase", string(phase), "err", err)
		writeJSON(w, statusFor(err), errorResponse{Error: err.Error(), Phase: string(phase)})
		return
	}

	rotated := res.Rotated()
	writeJSON(w, http.StatusOK, StateResponse{
		Key:        res.Key,
		State:      res.Next,
		Assignment: res.Assignment,
		Rotated:    &rotated,
		Outcome:    res.Outcome.String(),
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrConcurrentModification):
		return http.StatusConflict
	case errors.Is(err, domain.ErrCorruptState):
		return http.StatusUnprocessableEntity
	case domain.IsRetrievalError(err), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
