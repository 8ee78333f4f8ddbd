package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Deepreo/mathengine/core"
	"github.com/Deepreo/mathengine/errors"
	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const (
	DefaultTag         = "arithmetic"
	DefaultStopTimeout = 5 * time.Second
)

type Config struct {
	Tag         string        `mapstructure:"tag"`
	StopTimeout time.Duration `mapstructure:"stop_timeout"`
}

// Executor is a core.Executor backed by gocron one-time jobs. Every job is
// tagged so CancelAll can drop all of them in one call.
type Executor struct {
	scheduler   gocron.Scheduler
	clock       clockwork.Clock
	tag         string
	logger      *slog.Logger
	jobs        map[string]uuid.UUID
	middlewares []core.ExecutorMiddleware
	mu          sync.RWMutex
}

type Option func(*options)

type options struct {
	cfg    Config
	clock  clockwork.Clock
	logger *slog.Logger
}

func WithConfig(cfg Config) Option {
	return func(o *options) {
		if cfg.Tag != "" {
			o.cfg.Tag = cfg.Tag
		}
		if cfg.StopTimeout > 0 {
			o.cfg.StopTimeout = cfg.StopTimeout
		}
	}
}

// WithClock is mostly useful in tests; gocron and the executor share it.
func WithClock(clock clockwork.Clock) Option {
	return func(o *options) { o.clock = clock }
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func NewExecutor(opts ...Option) (*Executor, error) {
	o := &options{
		cfg:    Config{Tag: DefaultTag, StopTimeout: DefaultStopTimeout},
		clock:  clockwork.NewRealClock(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	s, err := gocron.NewScheduler(
		gocron.WithClock(o.clock),
		gocron.WithLogger(o.logger),
		gocron.WithStopTimeout(o.cfg.StopTimeout),
	)
	if err != nil {
		return nil, errors.InfraError(err).WithCode(errors.CodeExecutorFailure)
	}
	return &Executor{
		scheduler: s,
		clock:     o.clock,
		tag:       o.cfg.Tag,
		logger:    o.logger,
		jobs:      make(map[string]uuid.UUID),
	}, nil
}

func (e *Executor) Start() {
	e.scheduler.Start()
}

func (e *Executor) Shutdown() error {
	return e.scheduler.Shutdown()
}

func (e *Executor) Use(middleware ...core.ExecutorMiddleware) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.middlewares = append(e.middlewares, middleware...)
}

func (e *Executor) applyMiddlewares(fn core.JobFunc) core.JobFunc {
	chain := fn
	for i := len(e.middlewares) - 1; i >= 0; i-- {
		chain = e.middlewares[i](chain)
	}
	return chain
}

// Schedule arms a one-time job that runs fn after delay. A zero delay runs
// the job as soon as the scheduler picks it up, still on a scheduler
// goroutine.
func (e *Executor) Schedule(name string, delay time.Duration, fn core.JobFunc) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.jobs[name]; exists {
		return fmt.Errorf("job with name %s already exists", name)
	}

	startAt := gocron.OneTimeJobStartImmediately()
	if delay > 0 {
		startAt = gocron.OneTimeJobStartDateTime(e.clock.Now().Add(delay))
	}

	wrappedFn := e.applyMiddlewares(fn)

	job, err := e.scheduler.NewJob(
		gocron.OneTimeJob(startAt),
		gocron.NewTask(func() {
			e.forget(name)
			if err := wrappedFn(context.Background()); err != nil {
				e.logger.Warn("delayed job failed", "job", name, "error", err)
			}
		}),
		gocron.WithName(name),
		gocron.WithTags(e.tag),
		gocron.WithLimitedRuns(1),
	)
	if err != nil {
		return errors.InfraError(fmt.Errorf("schedule %s: %w", name, err)).WithCode(errors.CodeExecutorFailure)
	}

	e.jobs[name] = job.ID()
	return nil
}

// CancelAll drops every job that has not started yet.
func (e *Executor) CancelAll() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.scheduler.RemoveByTags(e.tag)
	clear(e.jobs)
	return nil
}

// Pending returns the number of jobs armed but not yet started.
func (e *Executor) Pending() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.jobs)
}

func (e *Executor) forget(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.jobs, name)
}
