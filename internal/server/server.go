package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	config *Config
	server *http.Server
	svc    *Services
}

func New(ctx context.Context, config *Config) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	svc, err := NewServices(ctx, config)
	if err != nil {
		return nil, err
	}

	return &Server{
		config: config,
		svc:    svc,
		server: &http.Server{
			Addr:              config.HTTP.Addr,
			Handler:           SetupRoutes(config, svc),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       config.HTTP.ReadTimeout,
			IdleTimeout:       config.HTTP.IdleTimeout,
		},
	}, nil
}

// Start serves HTTP and runs the session reaper until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	slog.Info("songbox server start", "addr", s.config.HTTP.Addr, "dataDir", s.config.DataDir)

	if err := s.svc.Start(ctx); err != nil {
		return err
	}

	listener, err := net.Listen("tcp", s.config.HTTP.Addr)
	if err != nil {
		_ = s.svc.Shutdown(ctx)
		return fmt.Errorf("listen: %w", err)
	}

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		if err := s.serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		return s.svc.Upload.Run(egCtx)
	})

	eg.Go(func() error {
		<-egCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.Stop(shutdownCtx)
	})

	err = eg.Wait()

	// the index is released only once no request or reaper pass can use it
	if svcErr := s.svc.Shutdown(context.Background()); svcErr != nil {
		err = errors.Join(err, svcErr)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("songbox server failure", "error", err)
		return err
	}

	slog.Info("songbox server stop")
	return nil
}

// Stop drains in-flight requests and closes the listener
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) serve(listener net.Listener) error {
	if s.config.HTTP.TLSEnabled() {
		slog.Info("http server start tls", "addr", listener.Addr(), "cert", s.config.HTTP.CertFile, "key", s.config.HTTP.KeyFile)
		return s.server.ServeTLS(listener, s.config.HTTP.CertFile, s.config.HTTP.KeyFile)
	}
	slog.Info("http server start", "addr", listener.Addr())
	return s.server.Serve(listener)
}
