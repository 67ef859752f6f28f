package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Shutdown gracefully shuts down the application. An in-flight fill is
// awaited; its submit timeout bounds the wait.
func (a *App) Shutdown() error {
	a.logger.Info("application-shutting-down")

	a.healthChecker.SetReady(false)

	// Cancel context to signal all components
	a.cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Shutdown HTTP server
	err := a.httpServer.Shutdown(shutdownCtx)
	if err != nil {
		a.logger.Error("http-server-shutdown-error", zap.Error(err))
	}

	// Wait for scheduler and tracker
	a.wg.Wait()

	a.closeResources(shutdownCtx)

	a.logger.Info("application-shutdown-complete")

	return nil
}

// closeResources flushes notifications and releases connections. It is safe
// on a partially built App.
func (a *App) closeResources(ctx context.Context) {
	if a.notifier != nil {
		a.notifier.Close(ctx)
	}

	if a.journal != nil {
		err := a.journal.Close()
		if err != nil {
			a.logger.Error("journal-close-error", zap.Error(err))
		}
	}

	if a.tokenCache != nil {
		a.tokenCache.Close()
	}

	if a.ethClient != nil {
		a.ethClient.Close()
	}
}
