package engine

import (
	"context"
	"log/slog"
	"sync"
)

// dispatcher runs queued notifications one after another on a single
// goroutine, in the order they were queued. The queue is unbounded so that
// enqueueing under the engine lock never blocks.
type dispatcher struct {
	logger *slog.Logger

	mu      sync.Mutex
	queue   []func()
	started bool
	closed  bool

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

func newDispatcher(logger *slog.Logger) *dispatcher {
	return &dispatcher{
		logger: logger,
		wake:   make(chan struct{}, 1),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func (d *dispatcher) start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true
	go d.run()
}

// enqueue reports false once the dispatcher is closed.
func (d *dispatcher) enqueue(fn func()) bool {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return false
	}
	d.queue = append(d.queue, fn)
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
	return true
}

func (d *dispatcher) run() {
	defer close(d.done)
	for {
		d.mu.Lock()
		batch := d.queue
		d.queue = nil
		closed := d.closed
		d.mu.Unlock()

		for _, fn := range batch {
			d.deliver(fn)
		}
		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}
		select {
		case <-d.wake:
		case <-d.stop:
		}
	}
}

func (d *dispatcher) deliver(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("notification panicked", "panic", r)
		}
	}()
	fn()
}

// flush waits until everything queued before the call has been delivered.
func (d *dispatcher) flush(ctx context.Context) error {
	d.mu.Lock()
	started := d.started
	d.mu.Unlock()
	if !started {
		return nil
	}

	delivered := make(chan struct{})
	if !d.enqueue(func() { close(delivered) }) {
		return nil
	}
	select {
	case <-delivered:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close delivers whatever is still queued and stops the goroutine.
func (d *dispatcher) close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	started := d.started
	d.mu.Unlock()

	close(d.stop)
	if started {
		<-d.done
	}
}
