// Package mathengine wires the scheduling engine, its buses, persistence and
// the HTTP surface into one runnable application.
package mathengine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Deepreo/mathengine/calc"
	"github.com/Deepreo/mathengine/config"
	"github.com/Deepreo/mathengine/core"
	"github.com/Deepreo/mathengine/engine"
	"github.com/Deepreo/mathengine/errors"
	"github.com/Deepreo/mathengine/modules/auth"
	"github.com/Deepreo/mathengine/modules/command"
	"github.com/Deepreo/mathengine/modules/event"
	"github.com/Deepreo/mathengine/modules/metrics"
	"github.com/Deepreo/mathengine/modules/notifier"
	"github.com/Deepreo/mathengine/modules/query"
	"github.com/Deepreo/mathengine/modules/scheduler"
	"github.com/Deepreo/mathengine/modules/servers"
	"github.com/Deepreo/mathengine/modules/store"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

type Application struct {
	cfg    *config.Config
	logger *slog.Logger
	clock  clockwork.Clock

	executor   *scheduler.Executor
	engine     *engine.Engine
	status     *notifier.Status
	commandBus core.CommandBus
	queryBus   core.QueryBus
	eventBus   *event.InMemory
	server     *servers.HttpServer

	store    store.Store
	recorder *store.Recorder
	restore  []calc.Record
}

type Option func(*Application)

func WithClock(clock clockwork.Clock) Option {
	return func(a *Application) { a.clock = clock }
}

// New builds every component and loads persisted state. Nothing runs until
// Run is called.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (_ *Application, err error) {
	app := &Application{cfg: cfg, logger: logger, clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(app)
	}
	defer func() {
		if err != nil {
			app.closeResources()
		}
	}()

	app.executor, err = scheduler.NewExecutor(
		scheduler.WithConfig(cfg.Scheduler),
		scheduler.WithClock(app.clock),
		scheduler.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	var snapshot store.Snapshot
	app.store, err = store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	if app.store != nil {
		if snapshot, err = app.store.Load(ctx); err != nil {
			return nil, err
		}
		app.restore = snapshot.Pending
		app.recorder = store.NewRecorder(app.store, logger)
	}

	app.status = notifier.NewStatus(app.clock)
	notifiers := notifier.Multi{app.status, notifier.NewLog(logger)}
	var prom *metrics.Notifier
	if cfg.Metrics.Enabled {
		prom = metrics.New(cfg.Metrics.Namespace)
		notifiers = append(notifiers, prom)
	}

	app.engine = engine.New(app.executor,
		engine.WithClock(app.clock),
		engine.WithLogger(logger),
		engine.WithNotifier(notifiers),
		engine.WithResults(snapshot.Results),
	)

	commands := command.NewInMemory()
	commands.Use(command.LoggingMiddleware(logger), command.OTelMiddleware)
	queries := query.NewInMemory()
	queries.Use(query.LoggingMiddleware(logger), query.OTelMiddleware)
	if err = engine.RegisterHandlers(app.engine, commands, queries); err != nil {
		return nil, err
	}
	app.commandBus, app.queryBus = commands, queries
	app.status.Bind(engine.BusCanceller{Commands: commands})

	if cfg.Events.Enabled {
		if app.eventBus, err = event.NewInMemory(logger); err != nil {
			return nil, err
		}
		if cfg.Events.Audit {
			if err = event.RegisterAudit(app.eventBus, logger); err != nil {
				return nil, err
			}
		}
	}

	app.server, err = servers.NewHttpServer(logger, servers.WithConfig(&cfg.Server))
	if err != nil {
		return nil, err
	}
	if cfg.Auth.Enabled {
		app.server.Use(auth.Guard(auth.NewJWTTokenProvider(cfg.Auth, app.clock)))
	}

	api := servers.API{
		Commands:        commands,
		Queries:         queries,
		Status:          app.status,
		Feed:            app.engine,
		Clock:           app.clock,
		StreamBuffer:    cfg.Stream.Buffer,
		StreamHeartbeat: cfg.Stream.Heartbeat,
	}
	if prom != nil {
		api.Metrics, api.MetricsPath = prom.Handler(), cfg.Metrics.Path
	}
	servers.RegisterRoutes(app.server, api)

	return app, nil
}

func (a *Application) Engine() *engine.Engine { return a.engine }

func (a *Application) Server() *servers.HttpServer { return a.server }

// Run starts the engine, resubmits stored work and serves until ctx is
// cancelled or a component fails.
func (a *Application) Run(ctx context.Context) error {
	if err := a.engine.Start(ctx); err != nil {
		return err
	}

	if _, err := store.Restore(ctx, a.engine, a.restore, a.clock.Now(), a.logger); err != nil {
		a.logger.WarnContext(ctx, "some stored operations were not restored", "error", err)
	}
	a.restore = nil
	if a.recorder != nil {
		a.recorder.Attach(a.engine)
	}

	g, gctx := errgroup.WithContext(ctx)

	if a.eventBus != nil {
		g.Go(func() error { return a.eventBus.Run(gctx) })
		select {
		case <-a.eventBus.Running():
			a.engine.AddSubscriber(event.NewBridge(a.eventBus, a.clock, a.logger))
		case <-gctx.Done():
		}
	}

	g.Go(func() error {
		if err := a.server.Run(); err != nil {
			return errors.InfraError(fmt.Errorf("http server: %w", err))
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		return a.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Shutdown stops accepting requests, stops the engine so the last state
// reaches the store, then releases everything else.
func (a *Application) Shutdown(ctx context.Context) error {
	var errs []error
	if err := a.server.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := a.engine.Stop(); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, a.closeResources())
	a.logger.InfoContext(ctx, "application stopped")
	return errors.Join(errs...)
}

func (a *Application) closeResources() error {
	var errs []error
	if a.executor != nil {
		if err := a.executor.Shutdown(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.eventBus != nil {
		if err := a.eventBus.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
