// internal/bot/runner.go
package bot

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/pumpbundle/internal/license"
)

// Runner serves the HTTP command surface until ctx is cancelled.
type Runner struct {
	app      *App
	logger   *zap.Logger
	shutdown *ShutdownHandler
	gate     *license.Gate
}

func NewRunner(app *App, logger *zap.Logger) *Runner {
	cfg := app.Config
	r := &Runner{
		app:      app,
		logger:   logger.Named("runner"),
		shutdown: NewShutdownHandler(logger, 30*time.Second),
		gate: license.NewGate(license.Config{
			Key:          cfg.License.Key,
			AccountID:    cfg.License.AccountID,
			ProductID:    cfg.License.ProductID,
			ProductToken: cfg.License.ProductToken,
		}, logger),
	}

	// закрываются в обратном порядке: HTTP, планировщик, кошельки, шина
	r.shutdown.Add("event_bus", app.Bus.Shutdown)
	r.shutdown.AddCloser("wallet_store", app.Store)
	r.shutdown.AddCloser("scheduler", app.Scheduler)
	r.shutdown.Add("http", app.API.Shutdown)
	return r
}

// Run validates the license, then serves until ctx is done or the server fails.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.gate.Check(ctx); err != nil {
		return fmt.Errorf("license validation failed: %w", err)
	}
	if url := r.app.Config.API.PublicURL; url != "" {
		r.logger.Info("Public address", zap.String("url", url))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(r.app.API.Start)
	g.Go(func() error {
		<-gctx.Done()
		r.logger.Info("Bot shutting down gracefully")
		return r.shutdown.Shutdown(context.Background())
	})
	return g.Wait()
}
