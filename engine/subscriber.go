package engine

import "github.com/Deepreo/mathengine/calc"

// Subscriber observes engine state. Every callback receives its own copy of
// the state after the triggering mutation. Callbacks run one at a time on
// the engine's notification goroutine and may call back into the engine,
// except Stop and Flush.
//
// Subscribers are compared by identity, so use pointer types.
type Subscriber interface {
	PendingChanged(pending []calc.Operation)
	ResultsChanged(results []calc.Answer)
	CancelledAll()
}

// Notifier drives a persistent status surface. It is called after every
// mutation on the same goroutine as subscribers.
type Notifier interface {
	Update(pending, results int)
	SetIdle()
}

// FailureNotifier is optionally implemented by a Notifier that wants to know
// which operation failed to compute.
type FailureNotifier interface {
	Failed(id string, err error)
}

type noopNotifier struct{}

func (noopNotifier) Update(int, int) {}
func (noopNotifier) SetIdle()        {}

// SubscriberFuncs adapts plain functions to a Subscriber. Nil fields are
// skipped.
type SubscriberFuncs struct {
	OnPending   func([]calc.Operation)
	OnResults   func([]calc.Answer)
	OnCancelled func()
}

func (f *SubscriberFuncs) PendingChanged(pending []calc.Operation) {
	if f.OnPending != nil {
		f.OnPending(pending)
	}
}

func (f *SubscriberFuncs) ResultsChanged(results []calc.Answer) {
	if f.OnResults != nil {
		f.OnResults(results)
	}
}

func (f *SubscriberFuncs) CancelledAll() {
	if f.OnCancelled != nil {
		f.OnCancelled()
	}
}
