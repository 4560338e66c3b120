package metrics

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server serves the prometheus metrics and a health endpoint. Please use
// the constructor [NewServer].
type Server struct {
	registry   *prometheus.Registry
	httpServer *http.Server
	startTime  time.Time
}

// healthStatus is the health endpoint's response body.
type healthStatus struct {
	Status string  `json:"status"`
	Uptime float64 `json:"uptime_seconds"`
}

// NewServer creates a metrics server with its own registry, so collectors
// never pollute the global one.
func NewServer(listen string, collectors ...prometheus.Collector) *Server {
	registry := prometheus.NewRegistry()
	for _, c := range collectors {
		registry.MustRegister(c)
	}

	s := &Server{
		registry:  registry,
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", s.handleHealth)
	s.httpServer = &http.Server{
		Addr:    listen,
		Handler: mux,
	}
	return s
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(healthStatus{
		Status: "ok",
		Uptime: time.Since(s.startTime).Seconds(),
	})
}

// Registry returns the server's registry, mainly for tests.
func (s *Server) Registry() *prometheus.Registry {
	return s.registry
}

// ListenAndServe blocks serving HTTP until Shutdown is called.
func (s *Server) ListenAndServe() error {
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
