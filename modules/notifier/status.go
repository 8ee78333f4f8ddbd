// Package notifier holds engine.Notifier adapters: the status surface served
// over HTTP, a log writer and a fan-out.
package notifier

import (
	"context"
	"sync"
	"time"

	"github.com/Deepreo/mathengine/engine"
	"github.com/jonboulle/clockwork"
)

// StatusView is the rendered state of the status surface.
type StatusView struct {
	Text      string    `json:"text"`
	Pending   int       `json:"pending"`
	Finished  int       `json:"finished"`
	Failed    int       `json:"failed"`
	Idle      bool      `json:"idle"`
	CanCancel bool      `json:"can_cancel"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Canceller is the one action the status surface offers.
type Canceller interface {
	CancelAll(ctx context.Context) (int, error)
}

// Status keeps the latest summary pushed by the engine and exposes a single
// cancel-all affordance.
type Status struct {
	clock clockwork.Clock

	mu        sync.RWMutex
	view      StatusView
	canceller Canceller
}

func NewStatus(clock clockwork.Clock) *Status {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Status{
		clock: clock,
		view:  StatusView{Text: engine.StatusText(0, 0), Idle: true, UpdatedAt: clock.Now()},
	}
}

// Bind attaches the target of the cancel affordance.
func (s *Status) Bind(c Canceller) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.canceller = c
}

func (s *Status) Update(pending, results int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.Pending = pending
	s.view.Finished = results
	s.view.Text = engine.StatusText(pending, results)
	s.view.Idle = pending == 0
	s.view.CanCancel = pending > 0
	s.view.UpdatedAt = s.clock.Now()
}

func (s *Status) SetIdle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.Pending = 0
	s.view.Text = engine.StatusText(0, s.view.Finished)
	s.view.Idle = true
	s.view.CanCancel = false
	s.view.UpdatedAt = s.clock.Now()
}

func (s *Status) Failed(id string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.Failed++
}

func (s *Status) View() StatusView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

// Cancel activates the cancel-all affordance. Without a bound canceller it
// does nothing.
func (s *Status) Cancel(ctx context.Context) (int, error) {
	s.mu.RLock()
	c := s.canceller
	s.mu.RUnlock()
	if c == nil {
		return 0, nil
	}
	return c.CancelAll(ctx)
}
