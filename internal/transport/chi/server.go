// Package chi exposes the query pipeline over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/spigell/resume-query/internal/metrics"
	"github.com/spigell/resume-query/internal/pipeline"
)

const (
	maxBodyBytes  = 64 << 10
	healthTimeout = 5 * time.Second
)

type Executor interface {
	Execute(ctx context.Context, query string) *pipeline.Result
}

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// QueryRequest is the body of POST /v1/query.
type QueryRequest struct {
	Query string `json:"query"`
}

// QueryResponse is returned for every processed query, including aborted runs.
type QueryResponse struct {
	RunID      string   `json:"run_id"`
	Answer     string   `json:"answer"`
	State      string   `json:"state"`
	Keywords   []string `json:"keywords"`
	Candidates int      `json:"candidates"`
	Relevant   int      `json:"relevant"`
	Degraded   []string `json:"degraded,omitempty"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Server serves the query API.
type Server struct {
	pipeline Executor
	store    Pinger
	logger   *zap.Logger
}

// NewServer creates a server. store may be nil when the store has no health check.
func NewServer(p Executor, store Pinger, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{pipeline: p, store: store, logger: logger}
}

// Router wires middleware and routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(s.requestLog)
	r.Use(metrics.Middleware())

	r.Post("/v1/query", s.Query)
	r.Get("/healthz", s.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

// Query handles POST /v1/query.
func (s *Server) Query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "Query is required")
		return
	}

	res := s.pipeline.Execute(r.Context(), req.Query)
	if errors.Is(r.Context().Err(), context.Canceled) {
		s.logger.Info("client went away", zap.String("run_id", res.RunID))
		return
	}

	writeJSON(w, http.StatusOK, toResponse(res))
}

// Health handles GET /healthz.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		if err := s.store.Ping(ctx); err != nil {
			s.logger.Warn("store health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "store": err.Error()})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func toResponse(res *pipeline.Result) QueryResponse {
	resp := QueryResponse{
		RunID:      res.RunID,
		Answer:     res.Answer,
		State:      string(res.State),
		Keywords:   res.Keywords,
		Candidates: len(res.Retrieved),
		Relevant:   len(res.Relevant),
	}
	if resp.Keywords == nil {
		resp.Keywords = []string{}
	}
	for _, err := range res.Degraded {
		resp.Degraded = append(resp.Degraded, err.Error())
	}
	return resp
}

// requestLog emits one line per request with the chi request id.
func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := chiMiddleware.GetReqID(r.Context())
		if requestID != "" {
			w.Header().Set("X-Request-ID", requestID)
		}

		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("http request",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
