package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/witnessnet/witnessnet/module/component"
	"github.com/witnessnet/witnessnet/module/irrecoverable"
)

const shutdownTimeout = 5 * time.Second

// Server serves the /metrics endpoint for prometheus. It runs as a component.
type Server struct {
	*component.ComponentManager
	log    zerolog.Logger
	addr   string
	server *http.Server
}

func NewServer(log zerolog.Logger, addr string, gatherer prometheus.Gatherer) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	s := &Server{
		log:  log.With().Str("component", "metrics_server").Logger(),
		addr: addr,
		server: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
	s.ComponentManager = component.NewComponentManagerBuilder().
		AddWorker(s.serve).
		Build()
	return s
}

func (s *Server) serve(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
	l, err := net.Listen("tcp", s.addr)
	if err != nil {
		ctx.Throw(fmt.Errorf("could not listen on %s: %w", s.addr, err))
	}
	s.log.Info().Str("address", l.Addr().String()).Msg("metrics server started")
	ready()

	go func() {
		err := s.server.Serve(l)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Err(err).Msg("metrics server failed")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.log.Warn().Err(err).Msg("metrics server did not shut down gracefully")
	}
}
