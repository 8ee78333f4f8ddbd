package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Deepreo/mathengine/calc"
	"github.com/Deepreo/mathengine/engine"
)

const defaultSaveTimeout = 5 * time.Second

// Recorder is an engine subscriber that writes every state change to a
// Store. A failed save is logged; the next change writes the full list
// again.
type Recorder struct {
	store   Store
	logger  *slog.Logger
	timeout time.Duration

	// mu orders the attach-time write against live notifications.
	mu         sync.Mutex
	sawPending bool
	sawResults bool
}

func NewRecorder(store Store, logger *slog.Logger) *Recorder {
	return &Recorder{store: store, logger: logger.With("component", "recorder"), timeout: defaultSaveTimeout}
}

// Attach subscribes the recorder to e and writes the state e returned on
// attach, unless a newer notification got there first.
func (r *Recorder) Attach(e *engine.Engine) {
	pending, results := e.AddSubscriber(r)

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.sawPending {
		r.savePending(pending)
	}
	if !r.sawResults {
		r.saveResults(results)
	}
}

func (r *Recorder) PendingChanged(pending []calc.Operation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sawPending = true
	r.savePending(pending)
}

func (r *Recorder) ResultsChanged(results []calc.Answer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sawResults = true
	r.saveResults(results)
}

// CancelledAll needs no write of its own; the engine follows it with an
// empty pending list.
func (r *Recorder) CancelledAll() {}

func (r *Recorder) savePending(pending []calc.Operation) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.store.SavePending(ctx, calc.NewRecords(pending)); err != nil {
		r.logger.Error("failed to save pending operations", "count", len(pending), "error", err)
	}
}

func (r *Recorder) saveResults(results []calc.Answer) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.store.SaveResults(ctx, results); err != nil {
		r.logger.Error("failed to save results", "count", len(results), "error", err)
	}
}
