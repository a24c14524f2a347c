package server

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/BioHazard786/rendezvous/internal/config"
	"github.com/BioHazard786/rendezvous/internal/signaling"
)

// Server wires the hub to an HTTP listener.
type Server struct {
	cfg  *config.Config
	hub  *signaling.Hub
	mux  *http.ServeMux
	http *http.Server
	log  zerolog.Logger
}

// New creates a Server and its Hub from cfg.
func New(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	hub, err := signaling.NewHub(signaling.Options{
		PasswordDigits: cfg.PasswordDigits,
		SendQueue:      cfg.SendQueue,
		MaxMessageSize: cfg.MaxMessageBytes,
		PingInterval:   cfg.PingInterval,
		PongWait:       cfg.PongWait,
		Logger:         logger.With().Str("component", "hub").Logger(),
	})
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg: cfg,
		hub: hub,
		mux: http.NewServeMux(),
		log: logger,
	}

	s.mux.HandleFunc("/health", healthCheckHandler)
	s.mux.HandleFunc("/stats", statsHandler(hub))
	s.mux.Handle("/metrics", hub.Metrics().Handler())
	s.mux.HandleFunc(cfg.WSPath, ServeWs(hub, newUpgrader(cfg.AllowedOrigins), logger))

	s.http = &http.Server{
		Addr:    cfg.Addr,
		Handler: s.mux,
	}
	return s, nil
}

// Handler returns the HTTP handler with every route registered.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Hub returns the server's hub.
func (s *Server) Hub() *signaling.Hub {
	return s.hub
}

// ListenAndServe listens on the configured address and serves until ctx is
// cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts the
// HTTP server down and closes every signaling client.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", ln.Addr().String()).Str("ws_path", s.cfg.WSPath).Msg("starting signaling server")
		errCh <- s.http.Serve(ln)
	}()

	select {
	case err := <-errCh:
		s.hub.Shutdown()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	// Hijacked websocket connections are not tracked by http.Server, so the
	// hub closes them itself.
	s.hub.Shutdown()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
