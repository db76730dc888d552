package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"strap/internal/config"
	"strap/internal/logger"
	"strap/internal/metrics"
)

const readHeaderTimeout = 10 * time.Second

type App struct {
	httpServer    *http.Server
	metricsServer *http.Server
	cleanup       func() error
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	router, cleanup, err := setupHTTP(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// net/http reports connection-level errors through a *log.Logger.
	errorLog := zap.NewStdLog(logger.Get())

	a := &App{
		httpServer: &http.Server{
			Addr:              ":" + cfg.AppPort,
			Handler:           router,
			ReadHeaderTimeout: readHeaderTimeout,
			ErrorLog:          errorLog,
		},
		cleanup: cleanup,
	}

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		a.metricsServer = &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: readHeaderTimeout,
			ErrorLog:          errorLog,
		}
	}

	return a, nil
}

// Run serves until Shutdown. The metrics listener, when configured, runs
// alongside; its failure is logged but does not stop the main server.
func (a *App) Run() error {
	if a.metricsServer != nil {
		go func() {
			logger.Info("metrics listening", map[string]any{
				"addr": a.metricsServer.Addr,
			})
			if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", map[string]any{
					"error": err.Error(),
				})
			}
		}()
	}

	if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *App) Shutdown(ctx context.Context) error {
	var errs []error

	if a.metricsServer != nil {
		errs = append(errs, a.metricsServer.Shutdown(ctx))
	}
	errs = append(errs, a.httpServer.Shutdown(ctx))
	if a.cleanup != nil {
		errs = append(errs, a.cleanup())
	}

	return errors.Join(errs...)
}
