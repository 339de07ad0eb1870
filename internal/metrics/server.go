package metrics

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lowaak/smart-trainer/form-trainer-app/internal/go_func_utils"
)

// Server exposes a registry on /metrics
type Server struct {
	logger *log.Logger
	server *http.Server
	wg     sync.WaitGroup
	once   sync.Once
}

// NewServer creates a metrics server listening on addr
func NewServer(logger *log.Logger, addr string, gatherer prometheus.Gatherer) *Server {
	if logger == nil {
		panic("MetricsServer: logger cannot be nil")
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return &Server{
		logger: logger,
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start serves in the background
func (s *Server) Start() {
	go_func_utils.SafeGoWG(&s.wg, s.logger, func() {
		s.logger.Printf("MetricsServer: Listening on %s", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Printf("MetricsServer: %v", err)
		}
	})
}

// Shutdown stops the server and waits for the serve goroutine
func (s *Server) Shutdown() error {
	var err error
	s.once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		err = s.server.Shutdown(ctx)
		s.wg.Wait()
	})
	return err
}
