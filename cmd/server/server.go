package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"imposter/internal/catalog"
	"imposter/internal/config"
	"imposter/internal/handlers"
	"imposter/internal/metrics"
	"imposter/internal/rooms"
	"imposter/internal/store"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
)

// Server is the wired application: store, room service and HTTP router
type Server struct {
	cfg     *config.ServerConfig
	log     zerolog.Logger
	store   store.Store
	service *rooms.Service
	handler http.Handler
}

// SetupServer opens the configured store and wires the service and router
// on top of it
func SetupServer(ctx context.Context, cfg *config.ServerConfig, log zerolog.Logger) (*Server, error) {
	st, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Store.Backend, err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	svc := rooms.NewService(st, catalog.Default(), cfg.Game,
		rooms.WithLogger(log.With().Str("component", "rooms").Logger()),
		rooms.WithMetrics(metrics.New(reg)),
	)

	h := handlers.New(svc, st, cfg, log)
	router := handlers.SetupRouter(h, cfg, &handlers.RouterOptions{Gatherer: reg})

	return &Server{
		cfg:     cfg,
		log:     log,
		store:   st,
		service: svc,
		handler: router,
	}, nil
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully. The janitor runs for as long as the server does.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	go s.service.RunJanitor(janitorCtx, s.cfg.Game.JanitorInterval)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().
			Str("addr", ln.Addr().String()).
			Str("store", s.cfg.Store.Backend).
			Msg("starting server")
		errCh <- server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	s.log.Info().Msg("server gracefully stopped")
	return nil
}

// ListenAndServe listens on the configured address and serves until ctx is
// cancelled
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Server.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Server.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Close releases the store
func (s *Server) Close() error {
	return s.store.Close()
}
