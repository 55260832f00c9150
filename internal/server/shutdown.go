package server

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// GracefulShutdown waits for ctx to end, then gives srv timeout to finish the
// requests it is currently handling.
func GracefulShutdown(ctx context.Context, srv *http.Server, timeout time.Duration, logger *zap.Logger, done chan<- bool) {
	// Listen for the interrupt signal
	<-ctx.Done()
	logger.Info("Shutting down gracefully, press Ctrl+C again to force")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}
