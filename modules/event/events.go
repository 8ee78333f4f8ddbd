package event

import (
	"time"

	"github.com/Deepreo/mathengine/calc"
)

const (
	PendingChangedEvent = "engine.pending_changed"
	ResultsChangedEvent = "engine.results_changed"
	CancelledAllEvent   = "engine.cancelled_all"
)

type PendingChanged struct {
	ID         string           `json:"id"`
	Operations []calc.Operation `json:"operations"`
	At         time.Time        `json:"at"`
}

func (e *PendingChanged) EventID() string       { return e.ID }
func (e *PendingChanged) EventName() string     { return PendingChangedEvent }
func (e *PendingChanged) OccurredOn() time.Time { return e.At }

type ResultsChanged struct {
	ID      string        `json:"id"`
	Results []calc.Answer `json:"results"`
	At      time.Time     `json:"at"`
}

func (e *ResultsChanged) EventID() string       { return e.ID }
func (e *ResultsChanged) EventName() string     { return ResultsChangedEvent }
func (e *ResultsChanged) OccurredOn() time.Time { return e.At }

type CancelledAll struct {
	ID string    `json:"id"`
	At time.Time `json:"at"`
}

func (e *CancelledAll) EventID() string       { return e.ID }
func (e *CancelledAll) EventName() string     { return CancelledAllEvent }
func (e *CancelledAll) OccurredOn() time.Time { return e.At }
