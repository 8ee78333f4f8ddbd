package core

import (
	"context"
	"time"
)

// JobFunc is the function signature for delayed jobs.
type JobFunc func(ctx context.Context) error

// ExecutorMiddleware wraps a JobFunc to add cross-cutting concerns.
type ExecutorMiddleware func(next JobFunc) JobFunc

// Executor runs callbacks once after a delay.
//
// Implementations must run fn asynchronously, never on the goroutine that
// called Schedule, and at most once per Schedule call. CancelAll is best
// effort: a job that has already started cannot be stopped.
type Executor interface {
	Start()
	Shutdown() error
	Schedule(name string, delay time.Duration, fn JobFunc) error
	CancelAll() error
	Use(middleware ...ExecutorMiddleware)
}
