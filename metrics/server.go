package metrics

import (
	"context"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server serves Prometheus metrics and a liveness endpoint.
type Server struct {
	server *http.Server
}

// NewServer creates a new metrics HTTP server listening on addr.
func NewServer(addr, path string, g prometheus.Gatherer) *Server {
	return &Server{
		server: &http.Server{
			Addr:    addr,
			Handler: Handler(path, g),
		},
	}
}

// Handler returns the mux served by Server.
func Handler(path string, g prometheus.Gatherer) http.Handler {
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// Start begins serving metrics. It blocks until the server stops.
func (s *Server) Start() error {
	zap.S().Infow("starting metrics server", "addr", s.server.Addr)
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return errors.Wrap(err, "metrics server failed")
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
