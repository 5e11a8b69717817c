package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"

	"skmf.evalgo.org/common"
)

// SetupFunc is a function that sets up routes and handlers on an Echo instance
type SetupFunc func(*echo.Echo) error

// RunServer builds the server, lets setup add routes and serves until ctx is
// done or SIGINT/SIGTERM arrives, then shuts down gracefully.
func RunServer(ctx context.Context, config ServerConfig, logger *common.ContextLogger, setup SetupFunc) error {
	if logger == nil {
		logger = common.ServiceLogger("http")
	}

	e := NewEchoServer(config)
	if setup != nil {
		if err := setup(e); err != nil {
			return fmt.Errorf("setup function failed: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:         config.Address,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Starting server on %s", config.Address)
		errCh <- e.StartServer(server)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Error during shutdown")
		return err
	}

	logger.Info("Server stopped")
	return nil
}
