// Package server exposes the solve pipeline over HTTP.
//
// Routes:
//
//	POST /v1/solve        solve a problem (TOML body, or JSON with Content-Type: application/json)
//	GET  /v1/runs         list archived runs (?problem=<hash>&limit=<n>)
//	GET  /v1/runs/{id}    fetch one archived run
//	GET  /v1/version      build information
//	GET  /healthz         liveness check
package server

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/floorsolve/pkg/archive"
	"github.com/matzehuels/floorsolve/pkg/buildinfo"
	"github.com/matzehuels/floorsolve/pkg/errors"
	"github.com/matzehuels/floorsolve/pkg/observability"
	"github.com/matzehuels/floorsolve/pkg/pipeline"
	"github.com/matzehuels/floorsolve/pkg/problem"
)

// =============================================================================
// Configuration
// =============================================================================

const (
	// DefaultAddr is the listen address.
	DefaultAddr = ":8080"

	// DefaultSolveTimeout bounds one solve request.
	DefaultSolveTimeout = 60 * time.Second

	// DefaultMaxBody is the largest accepted problem document.
	DefaultMaxBody = 1 << 20

	// shutdownTimeout bounds graceful shutdown.
	shutdownTimeout = 10 * time.Second
)

// Config configures a Server.
type Config struct {
	Addr         string
	SolveTimeout time.Duration
	MaxBody      int64
}

// SetDefaults fills zero fields with defaults.
func (c *Config) SetDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.SolveTimeout <= 0 {
		c.SolveTimeout = DefaultSolveTimeout
	}
	if c.MaxBody <= 0 {
		c.MaxBody = DefaultMaxBody
	}
}

// =============================================================================
// Server
// =============================================================================

// Server serves the HTTP API.
type Server struct {
	cfg    Config
	runner *pipeline.Runner
	store  archive.Store
	logger *log.Logger
}

// New creates a server. Finished runs are archived in store, which also
// backs the /v1/runs routes; a nil store uses an in-memory archive.
func New(cfg Config, runner *pipeline.Runner, store archive.Store, logger *log.Logger) *Server {
	cfg.SetDefaults()
	if store == nil {
		store = archive.NewMemoryStore()
	}
	if logger == nil {
		logger = log.Default()
	}
	runner.Archive = store
	return &Server{cfg: cfg, runner: runner, store: store, logger: logger}
}

// Handler returns the HTTP handler with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/version", s.handleVersion)
		r.Post("/solve", s.handleSolve)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
	})
	return r
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// instrument reports requests to the HTTP hooks and logs them.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		observability.HTTP().OnRequest(r.Context(), r.Method, route)
		observability.HTTP().OnResponse(r.Context(), r.Method, route, status, time.Since(start))
		s.logger.Debug("request",
			"method", r.Method,
			"route", route,
			"status", status,
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// =============================================================================
// Handlers
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"version": buildinfo.Version,
		"commit":  buildinfo.Commit,
		"date":    buildinfo.Date,
	})
}

// solveResponse is the run output plus the rendered artifacts, which JSON
// encodes as base64.
type solveResponse struct {
	*pipeline.Result
	Artifacts map[string][]byte `json:"artifacts,omitempty"`
}

func (s *Server) handleSolve(w http.ResponseWriter, r *http.Request) {
	p, err := s.decodeProblem(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	q := r.URL.Query()
	opts := pipeline.Options{
		Problem:  p,
		NoRefine: q.Get("refine") == "false",
		Refresh:  q.Get("refresh") == "true",
		Format:   q.Get("format"),
	}
	if a := q.Get("artifacts"); a != "" {
		opts.Artifacts = strings.Split(a, ",")
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "%v", err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.SolveTimeout)
	defer cancel()
	res, err := s.runner.Execute(ctx, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, solveResponse{Result: res, Artifacts: res.Artifacts})
}

func (s *Server) decodeProblem(w http.ResponseWriter, r *http.Request) (*problem.Problem, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBody))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read body")
	}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var p problem.Problem
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&p); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode problem")
		}
		return &p, nil
	}
	return problem.Parse(body)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	opts := archive.ListOptions{ProblemHash: r.URL.Query().Get("problem")}
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "invalid limit %q", l))
			return
		}
		opts.Limit = n
	}
	runs, err := s.store.List(r.Context(), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if runs == nil {
		runs = []archive.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// =============================================================================
// Responses
// =============================================================================

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	route := r.URL.Path
	if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
		route = rc.RoutePattern()
	}
	observability.HTTP().OnError(r.Context(), r.Method, route, err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "route", route, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: errors.UserMessage(err), Code: string(errors.GetCode(err))})
}

// statusOf maps an error to an HTTP status code.
func statusOf(err error) int {
	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case stderrors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	}
	switch errors.GetCode(err) {
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidFormat, errors.ErrCodeInvalidOptions:
		return http.StatusBadRequest
	case errors.ErrCodeInvalidGeometry, errors.ErrCodeInvalidConstraint,
		errors.ErrCodeUnknownAsset, errors.ErrCodeUnknownAnchor, errors.ErrCodeConstraintEvaluation:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
