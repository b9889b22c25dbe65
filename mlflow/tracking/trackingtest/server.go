// Package trackingtest serves the MLflow tracking REST API from a
// tracking.Store, for tests that want a real HTTP round trip without an
// MLflow server.
//
//	srv := trackingtest.NewServer(memstore.New())
//	defer srv.Close()
//	client, _ := mlflow.NewClient(mlflow.WithTrackingURI(srv.URL), mlflow.WithInsecure())
package trackingtest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	apierrors "github.com/opendatahub-io/mlflow-tracking-go/internal/errors"
	"github.com/opendatahub-io/mlflow-tracking-go/internal/mlflowapi"
	"github.com/opendatahub-io/mlflow-tracking-go/mlflow/tracking"
)

// Error codes the handler writes besides the ones the client interprets.
const (
	codeInternalError    = "INTERNAL_ERROR"
	codeNotImplemented   = "NOT_IMPLEMENTED"
	codeUnauthenticated  = "UNAUTHENTICATED"
	codeEndpointNotFound = "ENDPOINT_NOT_FOUND"
)

// Optional Store extensions. Stores without them answer 501.
type (
	experimentSearcher interface {
		SearchExperiments(ctx context.Context, opts ...tracking.SearchExperimentsOption) (*tracking.ExperimentList, error)
	}
	experimentTagger interface {
		SetExperimentTag(ctx context.Context, id tracking.ExperimentID, key, value string) error
	}
	tagDeleter interface {
		DeleteTag(ctx context.Context, runID tracking.RunID, key string) error
	}
)

type config struct {
	token  string
	logger *slog.Logger
}

// Option configures the handler.
type Option func(*config)

// WithToken requires every request to carry "Authorization: Bearer <token>".
func WithToken(token string) Option {
	return func(c *config) {
		c.token = token
	}
}

// WithLogger logs failed requests at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// Server is an httptest.Server backed by a tracking.Store.
type Server struct {
	*httptest.Server
	handler *handler
}

// NewServer starts a Server over store. Callers must Close it.
func NewServer(store tracking.Store, opts ...Option) *Server {
	h := newHandler(store, opts)
	return &Server{
		Server:  httptest.NewServer(h.routes()),
		handler: h,
	}
}

// Requests returns the number of requests served so far.
func (s *Server) Requests() int64 {
	return s.handler.requests.Load()
}

// Handler returns an http.Handler serving the tracking API under /api.
func Handler(store tracking.Store, opts ...Option) http.Handler {
	return newHandler(store, opts).routes()
}

type handler struct {
	store    tracking.Store
	cfg      config
	requests atomic.Int64
}

func newHandler(store tracking.Store, opts []Option) *handler {
	h := &handler{store: store}
	for _, opt := range opts {
		opt(&h.cfg)
	}
	if h.cfg.logger == nil {
		h.cfg.logger = slog.New(slog.DiscardHandler)
	}
	return h
}

func (h *handler) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(h.count)
	r.Use(h.authenticate)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, codeEndpointNotFound, "endpoint not found")
	})

	r.Route("/api/2.0/mlflow", func(r chi.Router) {
		r.Route("/experiments", func(r chi.Router) {
			r.Post("/create", h.createExperiment)
			r.Get("/get", h.getExperiment)
			r.Get("/get-by-name", h.getExperimentByName)
			r.Get("/list", h.listExperiments)
			r.Post("/search", h.searchExperiments)
			r.Post("/update", h.updateExperiment)
			r.Post("/delete", h.deleteExperiment)
			r.Post("/set-experiment-tag", h.setExperimentTag)
		})
		r.Route("/runs", func(r chi.Router) {
			r.Post("/create", h.createRun)
			r.Get("/get", h.getRun)
			r.Post("/delete", h.deleteRun)
			r.Post("/update", h.updateRun)
			r.Post("/search", h.searchRuns)
			r.Post("/log-parameter", h.logParam)
			r.Post("/log-metric", h.logMetric)
			r.Post("/log-batch", h.logBatch)
			r.Post("/set-tag", h.setTag)
			r.Post("/delete-tag", h.deleteTag)
		})
		r.Get("/metrics/get-history", h.getMetricHistory)
	})

	return r
}

func (h *handler) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.requests.Add(1)
		next.ServeHTTP(w, r)
	})
}

func (h *handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.cfg.token != "" && r.Header.Get("Authorization") != "Bearer "+h.cfg.token {
			writeError(w, http.StatusUnauthorized, codeUnauthenticated, "missing or invalid credentials")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// fail writes err in the MLflow error envelope.
func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	h.cfg.logger.Debug("request failed", "path", r.URL.Path, "status", status, "error", err)
	writeError(w, status, code, err.Error())
}

// classify maps a Store error to an HTTP status and MLflow error code.
func classify(err error) (int, string) {
	switch {
	case tracking.IsAlreadyExists(err):
		return http.StatusBadRequest, string(apierrors.CodeResourceAlreadyExists)
	case tracking.IsDoesNotExist(err):
		return http.StatusNotFound, string(apierrors.CodeResourceDoesNotExist)
	case tracking.IsBatchLimit(err), errors.Is(err, tracking.ErrInvalidArgument):
		return http.StatusBadRequest, string(apierrors.CodeInvalidParameterValue)
	default:
		return http.StatusInternalServerError, codeInternalError
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(mlflowapi.ErrorResponse{ErrorCode: code, Message: message})
}

// decode reads a JSON body into v, writing a 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, string(apierrors.CodeInvalidParameterValue), "malformed request body: "+err.Error())
		return false
	}
	return true
}

// query returns a required query parameter, writing a 400 when absent.
func query(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		writeError(w, http.StatusBadRequest, string(apierrors.CodeInvalidParameterValue), "missing value for required parameter '"+name+"'")
		return "", false
	}
	return v, true
}

func notImplemented(w http.ResponseWriter, what string) {
	writeError(w, http.StatusNotImplemented, codeNotImplemented, what+" is not supported by this store")
}
