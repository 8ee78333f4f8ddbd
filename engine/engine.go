// Package engine owns the pending and results collections, arms the work
// executor for every submitted question and tells subscribers and the
// notifier about every change.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/Deepreo/mathengine/calc"
	"github.com/Deepreo/mathengine/core"
	"github.com/Deepreo/mathengine/errors"
	"github.com/jonboulle/clockwork"
)

var ErrNotRunning = errors.New("engine is not running")

// Stats is a point in time summary of the engine.
type Stats struct {
	Pending   int  `json:"pending"`
	Results   int  `json:"results"`
	Completed int  `json:"completed"`
	Failed    int  `json:"failed"`
	Cancelled int  `json:"cancelled"`
	Running   bool `json:"running"`
}

type Engine struct {
	executor core.Executor
	notifier Notifier
	logger   *slog.Logger
	clock    clockwork.Clock
	solve    Solver

	// mu guards the collections below. Every mutation queues its
	// notifications before releasing it, so delivery order matches
	// mutation order.
	mu        sync.RWMutex
	running   bool
	pending   []calc.Operation
	results   []calc.Answer
	completed int
	failed    int
	cancelled int

	dispatcher   *dispatcher
	executorOnce sync.Once

	subMu       sync.Mutex
	subscribers []Subscriber
}

func New(executor core.Executor, opts ...Option) *Engine {
	e := &Engine{
		executor: executor,
		notifier: noopNotifier{},
		logger:   slog.Default(),
		clock:    clockwork.NewRealClock(),
		solve:    defaultSolver,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "engine")
	e.dispatcher = newDispatcher(e.logger)
	return e
}

// Start makes the engine accept submissions. Calling it on a running engine
// does nothing.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return nil
	}
	e.executorOnce.Do(e.executor.Start)
	if e.dispatcher == nil {
		e.dispatcher = newDispatcher(e.logger)
	}
	e.dispatcher.start()
	e.running = true

	pending, results := len(e.pending), len(e.results)
	notifier := e.notifier
	e.dispatcher.enqueue(func() { notifier.Update(pending, results) })

	e.logger.InfoContext(ctx, "engine started", "results", results)
	return nil
}

// Stop cancels every armed job and delivers the notifications still queued.
// Pending operations are dropped from memory without notifying anyone, so a
// persisted copy of the last pending state survives for the next start. Stop
// must not be called from a subscriber callback.
func (e *Engine) Stop() error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return nil
	}
	e.running = false
	dropped := len(e.pending)
	e.pending = nil
	err := e.executor.CancelAll()
	d := e.dispatcher
	e.dispatcher = nil
	e.mu.Unlock()

	d.close()
	e.logger.Info("engine stopped", "dropped_pending", dropped)
	if err != nil {
		return errors.InfraError(fmt.Errorf("cancel armed jobs: %w", err)).WithCode(errors.CodeExecutorFailure)
	}
	return nil
}

// Submit records q as pending and arms the executor with its delay. It
// returns as soon as the job is armed.
func (e *Engine) Submit(ctx context.Context, q calc.Question) (string, error) {
	if err := calc.Validate(q); err != nil {
		return "", err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return "", errors.AppError(fmt.Errorf("submit %s: %w", q, ErrNotRunning)).WithCode(errors.CodeEngineNotRunning)
	}

	op := calc.NewOperation(q, e.clock.Now())
	if err := e.executor.Schedule(op.ID, q.Delay(), e.job(op)); err != nil {
		return "", errors.InfraError(err).WithCode(errors.CodeExecutorFailure)
	}
	e.pending = append(e.pending, op)

	e.logger.DebugContext(ctx, "operation submitted",
		"id", op.ID,
		"question", q.String(),
		"delay", q.Delay(),
	)

	pending, results := cloneOrEmpty(e.pending), len(e.results)
	e.broadcastLocked(func(s Subscriber) {
		s.PendingChanged(cloneOrEmpty(pending))
	}, func(n Notifier) {
		n.Update(len(pending), results)
	})
	return op.ID, nil
}

func (e *Engine) job(op calc.Operation) core.JobFunc {
	return func(ctx context.Context) error {
		answer, err := e.compute(op.Question)
		e.complete(op.ID, answer, err)
		return nil
	}
}

func (e *Engine) compute(q calc.Question) (answer calc.Answer, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("computation panicked: %v", r)
		}
	}()
	return e.solve(q)
}

// complete applies the outcome of an executor job. Ids that are no longer
// pending were cancelled and are ignored.
func (e *Engine) complete(id string, answer calc.Answer, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		e.logger.Debug("completion after stop ignored", "id", id)
		return
	}
	idx := slices.IndexFunc(e.pending, func(op calc.Operation) bool { return op.ID == id })
	if idx < 0 {
		e.logger.Debug("completion for unknown operation ignored", "id", id)
		return
	}
	e.pending = slices.Delete(e.pending, idx, idx+1)
	pending := cloneOrEmpty(e.pending)

	if err != nil {
		e.failed++
		e.logger.Error("operation failed", "id", id, "error", err)
		results := len(e.results)
		e.broadcastLocked(func(s Subscriber) {
			s.PendingChanged(cloneOrEmpty(pending))
		}, func(n Notifier) {
			n.Update(len(pending), results)
			if fn, ok := n.(FailureNotifier); ok {
				fn.Failed(id, err)
			}
		})
		return
	}

	e.completed++
	e.results = append(e.results, answer)
	results := cloneOrEmpty(e.results)
	e.logger.Info("operation completed", "id", id, "answer", answer.Text)

	e.broadcastLocked(func(s Subscriber) {
		s.ResultsChanged(cloneOrEmpty(results))
		s.PendingChanged(cloneOrEmpty(pending))
	}, func(n Notifier) {
		n.Update(len(pending), len(results))
	})
}

// CancelAll drops every pending operation and cancels their jobs. Answers
// already produced stay. It returns how many operations were cancelled.
func (e *Engine) CancelAll(ctx context.Context) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := len(e.pending)
	e.pending = nil
	e.cancelled += n
	err := e.executor.CancelAll()

	e.logger.InfoContext(ctx, "cancelled all pending operations", "count", n)

	e.broadcastLocked(func(s Subscriber) {
		s.CancelledAll()
		s.PendingChanged([]calc.Operation{})
	}, func(n Notifier) {
		n.SetIdle()
	})

	if err != nil {
		return n, errors.InfraError(fmt.Errorf("cancel armed jobs: %w", err)).WithCode(errors.CodeExecutorFailure)
	}
	return n, nil
}

// ClearResults empties the results list. Pending operations are untouched.
func (e *Engine) ClearResults(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.results = nil
	pending := len(e.pending)
	e.logger.InfoContext(ctx, "results cleared")

	e.broadcastLocked(func(s Subscriber) {
		s.ResultsChanged([]calc.Answer{})
	}, func(n Notifier) {
		n.Update(pending, 0)
	})
}

func (e *Engine) PendingSnapshot() []calc.Operation {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return cloneOrEmpty(e.pending)
}

func (e *Engine) ResultsSnapshot() []calc.Answer {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return cloneOrEmpty(e.results)
}

func (e *Engine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Stats{
		Pending:   len(e.pending),
		Results:   len(e.results),
		Completed: e.completed,
		Failed:    e.failed,
		Cancelled: e.cancelled,
		Running:   e.running,
	}
}

func (e *Engine) Running() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.running
}

// AddSubscriber registers s and returns the current state. s receives every
// change made after that state; nothing earlier is replayed. Adding a
// subscriber twice has no effect.
func (e *Engine) AddSubscriber(s Subscriber) ([]calc.Operation, []calc.Answer) {
	// The write lock keeps mutations out until s is registered, so the
	// returned state and the first notification line up.
	e.mu.Lock()
	defer e.mu.Unlock()

	e.subMu.Lock()
	if !slices.Contains(e.subscribers, s) {
		e.subscribers = append(e.subscribers, s)
	}
	e.subMu.Unlock()

	return cloneOrEmpty(e.pending), cloneOrEmpty(e.results)
}

// RemoveSubscriber unregisters s. Notifications queued for s but not yet
// delivered are dropped.
func (e *Engine) RemoveSubscriber(s Subscriber) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	e.subscribers = slices.DeleteFunc(e.subscribers, func(x Subscriber) bool { return x == s })
}

// Flush waits until every notification queued before the call has been
// delivered. It must not be called from a subscriber callback.
func (e *Engine) Flush(ctx context.Context) error {
	e.mu.RLock()
	d := e.dispatcher
	e.mu.RUnlock()
	if d == nil {
		return nil
	}
	return d.flush(ctx)
}

func (e *Engine) subscribed(s Subscriber) bool {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	return slices.Contains(e.subscribers, s)
}

// broadcastLocked queues one notification for the subscribers registered
// right now and the notifier. Callers hold e.mu.
func (e *Engine) broadcastLocked(deliver func(Subscriber), status func(Notifier)) {
	if e.dispatcher == nil {
		return
	}
	e.subMu.Lock()
	subs := slices.Clone(e.subscribers)
	e.subMu.Unlock()

	notifier := e.notifier
	e.dispatcher.enqueue(func() {
		for _, s := range subs {
			if e.subscribed(s) {
				e.safely("subscriber", func() { deliver(s) })
			}
		}
		e.safely("notifier", func() { status(notifier) })
	})
}

func (e *Engine) safely(target string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("notification callback panicked", "target", target, "panic", r)
		}
	}()
	fn()
}

func cloneOrEmpty[T any](s []T) []T {
	out := make([]T, len(s))
	copy(out, s)
	return out
}
