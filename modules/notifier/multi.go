package notifier

import "github.com/Deepreo/mathengine/engine"

// Multi forwards every call to each notifier in order. Failed is forwarded
// only to notifiers that implement engine.FailureNotifier.
type Multi []engine.Notifier

func (m Multi) Update(pending, results int) {
	for _, n := range m {
		n.Update(pending, results)
	}
}

func (m Multi) SetIdle() {
	for _, n := range m {
		n.SetIdle()
	}
}

func (m Multi) Failed(id string, err error) {
	for _, n := range m {
		if fn, ok := n.(engine.FailureNotifier); ok {
			fn.Failed(id, err)
		}
	}
}
