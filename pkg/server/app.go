package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	domrepo "OptiFeed/internal/domain/repository"
	"OptiFeed/internal/usecase"
	"OptiFeed/pkg/config"
	xhttp "OptiFeed/pkg/http"
	applogger "OptiFeed/pkg/logger"
)

// App encapsulates the entire application lifecycle: the monitor loop, the
// HTTP API, and the downstream sinks.
type App struct {
	cfg     *config.Config
	log     *applogger.Logger
	monitor *usecase.Monitor
	handler xhttp.Handler
	sinks   []domrepo.SnapshotSink

	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	monitor *usecase.Monitor,
	handler xhttp.Handler,
	sinks []domrepo.SnapshotSink,
) *App {
	return &App{
		cfg:     cfg,
		log:     log,
		monitor: monitor,
		handler: handler,
		sinks:   sinks,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithLogger(a.log, time.Second),
	)

	if err := a.monitor.Start(ctx); err != nil {
		return err
	}
	a.log.Info("monitor running",
		applogger.Strings("underlyings", a.cfg.Monitor.Underlyings),
		applogger.Duration("interval", a.cfg.Monitor.Interval),
	)

	if err := a.httpServer.Start(); err != nil {
		a.monitor.Stop()
		return err
	}
	a.log.Info("http api listening", applogger.Int("port", a.cfg.Server.Port))

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	a.monitor.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	for _, sink := range a.sinks {
		if err := sink.Close(); err != nil {
			a.log.Warn("sink close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
