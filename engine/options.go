package engine

import (
	"log/slog"
	"slices"

	"github.com/Deepreo/mathengine/calc"
	"github.com/jonboulle/clockwork"
)

// Solver computes the answer for a question inside the executor job. A
// returned error or a panic marks the operation as failed.
type Solver func(q calc.Question) (calc.Answer, error)

func defaultSolver(q calc.Question) (calc.Answer, error) {
	return calc.Solve(q), nil
}

type Option func(*Engine)

func WithNotifier(n Notifier) Option {
	return func(e *Engine) {
		if n != nil {
			e.notifier = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClock sets the clock used to stamp operation start and end times.
func WithClock(clock clockwork.Clock) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithResults seeds the results list, typically with answers restored from
// a store.
func WithResults(results []calc.Answer) Option {
	return func(e *Engine) {
		e.results = slices.Clone(results)
	}
}

func WithSolver(solve Solver) Option {
	return func(e *Engine) {
		if solve != nil {
			e.solve = solve
		}
	}
}
