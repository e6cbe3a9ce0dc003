// Package httpapi exposes the inbound HTTP routes from spec §6:
// start_session, converse, session lookup/deletion, health, and the
// Prometheus /metrics exposition.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/omkarlalla-code/kiosk-project/internal/logger"
	"github.com/omkarlalla-code/kiosk-project/internal/pipeline"
	"github.com/omkarlalla-code/kiosk-project/internal/session"
)

// defaultReadHeaderTimeout guards against Slowloris-style slow-header attacks.
const defaultReadHeaderTimeout = 10 * time.Second

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithAddr sets the TCP listen address.
func WithAddr(addr string) ServerOption {
	return func(s *Server) { s.addr = addr }
}

// WithRegisterer swaps the Prometheus registry /metrics serves from the
// default global one.
func WithRegisterer(reg *prometheus.Registry) ServerOption {
	return func(s *Server) { s.registerer = reg }
}

// Server is the kiosk HTTP front door.
type Server struct {
	sessions *session.Registry
	pipe     *pipeline.Pipeline

	addr       string
	liveKitURL string
	registerer *prometheus.Registry
	httpSrv    *http.Server
}

// NewServer constructs a Server.
func NewServer(sessions *session.Registry, pipe *pipeline.Pipeline, opts ...ServerOption) *Server {
	s := &Server{
		sessions: sessions,
		pipe:     pipe,
		addr:     ":8080",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the http.Handler implementing every route in spec §6.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /start_session", s.handleStartSession)
	mux.HandleFunc("POST /converse", s.handleConverse)
	mux.HandleFunc("DELETE /session/{id}", s.handleEndSession)
	mux.HandleFunc("GET /session/{id}", s.handleGetSession)
	mux.HandleFunc("GET /health", s.handleHealth)

	if s.registerer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.registerer, promhttp.HandlerOpts{}))
	} else {
		mux.Handle("GET /metrics", promhttp.Handler())
	}
	return mux
}

// ListenAndServe starts the HTTP server on the configured address.
func (s *Server) ListenAndServe() error {
	s.httpSrv = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: defaultReadHeaderTimeout,
	}
	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully drains in-flight HTTP requests. It does not stop the
// session registry's background timers; the registry is closed separately.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("httpapi: failed to encode response", "error", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, kind string) {
	writeJSON(w, status, errorBody{Error: kind})
}

func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return errors.New("httpapi: empty body")
	}
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
