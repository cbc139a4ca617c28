// Package httpapi exposes a local, read-only status/health surface over
// the orchestrator's last run and the circuit breakers guarding the
// market data provider. It deliberately does not expose the CRUD façade
// over stored entities (out of scope per spec §1).
package httpapi

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/hoangnph/vnquant/internal/net/circuit"
	"github.com/hoangnph/vnquant/internal/telemetry"
)

// Config configures the server (spec §5 "one HTTP client per process"
// applies to outbound calls; this is the inbound status surface).
type Config struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultConfig binds to localhost only — this surface is operational,
// not public.
func DefaultConfig() Config {
	return Config{
		Host: "127.0.0.1", Port: 8090,
		ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, IdleTimeout: 60 * time.Second,
	}
}

// Server is the read-only status/health/metrics HTTP surface.
type Server struct {
	router   *mux.Router
	server   *http.Server
	log      zerolog.Logger
	config   Config
	breakers *circuit.Manager
	reports  *ReportStore
}

// NewServer builds a Server wired to a metrics registry, circuit breaker
// manager, and the in-memory last-run report store.
func NewServer(cfg Config, log zerolog.Logger, metrics *telemetry.Registry, breakers *circuit.Manager, reports *ReportStore) (*Server, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("httpapi: port %d busy: %w", cfg.Port, err)
	}
	ln.Close()

	reg := prometheus.NewRegistry()
	metrics.MustRegister(reg)

	s := &Server{router: mux.NewRouter(), log: log, config: cfg, breakers: breakers, reports: reports}
	s.setupRoutes(reg)
	s.server = &http.Server{
		Addr: addr, Handler: s.router,
		ReadTimeout: cfg.ReadTimeout, WriteTimeout: cfg.WriteTimeout, IdleTimeout: cfg.IdleTimeout,
	}
	return s, nil
}

func (s *Server) setupRoutes(reg *prometheus.Registry) {
	s.router.Use(s.requestIDMiddleware, s.loggingMiddleware, s.timeoutMiddleware, s.corsMiddleware)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	s.router.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
}

type requestIDKey struct{}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.New().String()[:8]
		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		s.log.Info().
			Str("request_id", fmt.Sprint(r.Context().Value(requestIDKey{}))).
			Str("method", r.Method).Str("path", r.URL.Path).
			Int("status", sw.status).Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func (s *Server) timeoutMiddleware(next http.Handler) http.Handler {
	return http.TimeoutHandler(next, 5*time.Second, `{"error":"request timeout"}`)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1") {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
}

// Start serves until the process exits or Shutdown is called.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("starting status http server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
