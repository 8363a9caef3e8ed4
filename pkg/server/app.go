package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/usecase"
	"github.com/sudipta6891/OC-Chain-System-ver-01/pkg/config"
	xhttp "github.com/sudipta6891/OC-Chain-System-ver-01/pkg/http"
	pkgkafka "github.com/sudipta6891/OC-Chain-System-ver-01/pkg/kafka"
	applogger "github.com/sudipta6891/OC-Chain-System-ver-01/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	httpServer *xhttp.Server
	scheduler  *usecase.Scheduler
	consumer   *pkgkafka.Consumer
	kh         pkgkafka.MessageHandler
	l          *applogger.Logger

	wg sync.WaitGroup
}

// New creates a new App instance. The scheduler and consumer may be nil.
func New(
	cfg *config.Config,
	httpServer *xhttp.Server,
	scheduler *usecase.Scheduler,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	l *applogger.Logger,
) *App {
	if l == nil {
		l = applogger.Nop()
	}
	return &App{
		cfg:        cfg,
		httpServer: httpServer,
		scheduler:  scheduler,
		consumer:   consumer,
		kh:         kh,
		l:          l,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext starts every component and blocks until ctx is done.
func (a *App) RunContext(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}

	if a.scheduler != nil && a.cfg.Scheduler.Enabled {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := a.scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.l.Error("scheduler error", applogger.Error(err))
			}
		}()
	}

	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		if err := a.consumer.Start(); err != nil {
			a.l.Error("kafka consumer error", applogger.Error(err))
		} else {
			a.l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
		}
	}

	<-ctx.Done()
	a.l.Info("shutdown signal received")
	return a.shutdown()
}

// shutdown gracefully stops all services. Infrastructure clients are closed
// by the DI cleanup afterwards.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.httpServer.Stop(ctx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
		errs = append(errs, err)
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.l.Warn("kafka consumer stop error", applogger.Error(err))
			errs = append(errs, err)
		}
	}

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.l.Warn("scheduler did not stop before the shutdown timeout")
	}

	a.l.Info("shutdown complete")
	return errors.Join(errs...)
}
