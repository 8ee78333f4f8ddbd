package servers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Deepreo/mathengine/calc"
	"github.com/Deepreo/mathengine/engine"
	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"
)

const (
	DefaultStreamBuffer    = 64
	DefaultStreamHeartbeat = 15 * time.Second

	EventPending   = "pending"
	EventResults   = "results"
	EventCancelled = "cancelled"
)

// Feed is the subscription side of the engine.
type Feed interface {
	AddSubscriber(s engine.Subscriber) ([]calc.Operation, []calc.Answer)
	RemoveSubscriber(s engine.Subscriber)
}

// Stream serves engine changes as server-sent events. Every connection is
// its own engine subscriber: it receives the current lists first and then
// every change.
type Stream struct {
	feed      Feed
	clock     clockwork.Clock
	done      <-chan struct{}
	logger    *slog.Logger
	buffer    int
	heartbeat time.Duration
}

func NewStream(feed Feed, clock clockwork.Clock, done <-chan struct{}, logger *slog.Logger) *Stream {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Stream{
		feed:      feed,
		clock:     clock,
		done:      done,
		logger:    logger,
		buffer:    DefaultStreamBuffer,
		heartbeat: DefaultStreamHeartbeat,
	}
}

type streamEvent struct {
	name string
	data any
}

// streamClient is the engine.Subscriber behind one connection. Callbacks
// never block the engine: a client that falls a whole buffer behind is
// dropped and has to reconnect for a fresh snapshot.
type streamClient struct {
	events chan streamEvent

	mu   sync.Mutex
	gone chan struct{}
	shut bool
}

func newStreamClient(buffer int) *streamClient {
	return &streamClient{
		events: make(chan streamEvent, buffer),
		gone:   make(chan struct{}),
	}
}

func (c *streamClient) PendingChanged(pending []calc.Operation) {
	c.push(streamEvent{name: EventPending, data: pending})
}

func (c *streamClient) ResultsChanged(results []calc.Answer) {
	c.push(streamEvent{name: EventResults, data: results})
}

func (c *streamClient) CancelledAll() {
	c.push(streamEvent{name: EventCancelled, data: struct{}{}})
}

func (c *streamClient) push(ev streamEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.shut {
		return
	}
	select {
	case c.events <- ev:
	default:
		c.shut = true
		close(c.gone)
	}
}

func (s *Stream) Handle(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	client := newStreamClient(s.buffer)
	pending, results := s.feed.AddSubscriber(client)

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer s.feed.RemoveSubscriber(client)
		if err := s.serve(w, client, pending, results); err != nil {
			s.logger.Debug("stream closed", "error", err)
		}
	})
	return nil
}

func (s *Stream) serve(w *bufio.Writer, client *streamClient, pending []calc.Operation, results []calc.Answer) error {
	if err := s.write(w, streamEvent{name: EventPending, data: pending}); err != nil {
		return err
	}
	if err := s.write(w, streamEvent{name: EventResults, data: results}); err != nil {
		return err
	}

	ticker := s.clock.NewTicker(s.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case ev := <-client.events:
			if err := s.write(w, ev); err != nil {
				return err
			}
		case <-ticker.Chan():
			if _, err := w.WriteString(": ping\n\n"); err != nil {
				return err
			}
			if err := w.Flush(); err != nil {
				return err
			}
		case <-client.gone:
			return fmt.Errorf("client fell behind")
		case <-s.done:
			return nil
		}
	}
}

func (s *Stream) write(w *bufio.Writer, ev streamEvent) error {
	data := ev.data
	if ops, ok := data.([]calc.Operation); ok {
		data = NewPendingViews(ops, s.clock.Now())
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.name, payload); err != nil {
		return err
	}
	return w.Flush()
}
