package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/upb/ip-registry/config"
	"go.uber.org/zap"
)

// Run listens on cfg.Address() and serves handler until ctx is done
func Run(ctx context.Context, name string, cfg config.ServerConfig, handler http.Handler, logger *zap.Logger) error {
	ln, err := net.Listen("tcp", cfg.Address())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Address(), err)
	}
	return Serve(ctx, ln, name, cfg, handler, logger)
}

// Serve serves handler on ln until ctx is done, then drains in-flight
// requests for at most cfg.ShutdownTimeout.
func Serve(ctx context.Context, ln net.Listener, name string, cfg config.ServerConfig, handler http.Handler, logger *zap.Logger) error {
	logger = logger.With(zap.String("service", name))

	srv := &http.Server{
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		ErrorLog:     zap.NewStdLog(logger),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("%s server error: %w", name, err)
	case <-ctx.Done():
	}

	logger.Info("shutting down server", zap.Duration("timeout", cfg.ShutdownTimeout))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("%s shutdown failed: %w", name, err)
	}

	logger.Info("server stopped")
	return nil
}
