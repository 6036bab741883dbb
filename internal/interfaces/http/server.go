package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/medregula/casetrack/internal/config"
	"github.com/medregula/casetrack/internal/infrastructure/monitoring/logging"
)

// Server wraps the standard http.Server with lifecycle logging.
type Server struct {
	srv *http.Server
	log logging.Logger
	cfg config.ServerConfig
}

// NewServer constructs a Server over the given handler.
func NewServer(cfg config.ServerConfig, handler http.Handler, log logging.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:         cfg.Addr(),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		log: log.Named("http"),
		cfg: cfg,
	}
}

// Start blocks serving requests until Shutdown is called or the listener
// fails.  A clean shutdown returns nil.
func (s *Server) Start() error {
	s.log.Info("server listening", logging.String("addr", s.cfg.Addr()))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests within the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("server shutting down")
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
