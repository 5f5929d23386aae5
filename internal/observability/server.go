// Package observability provides the metrics server and HTTP request
// instrumentation.
package observability

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Server serves /metrics, /healthz and /readyz on a port separate from the
// IVR-facing router so scrapes never compete with webhooks.
type Server struct {
	server *http.Server
	addr   string
}

// NewServer creates a metrics server backed by the default Prometheus
// registry. ready may be nil, in which case /readyz always succeeds.
func NewServer(addr string, ready func() bool) *Server {
	return &Server{
		addr: addr,
		server: &http.Server{
			Addr:         addr,
			Handler:      Handler(prometheus.DefaultGatherer, ready),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Handler returns the observability mux for the given gatherer.
func Handler(g prometheus.Gatherer, ready func() bool) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if ready != nil && !ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("not ready"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
	})

	return mux
}

// Start serves in a goroutine. Listen errors are logged, not returned.
func (s *Server) Start() {
	go func() {
		log.Info().Str("addr", s.addr).Msg("Starting metrics server")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Str("addr", s.addr).Msg("Metrics server stopped")
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Str("addr", s.addr).Msg("Shutting down metrics server")
	return s.server.Shutdown(ctx)
}
