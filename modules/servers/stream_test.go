package servers

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Deepreo/mathengine/calc"
	"github.com/Deepreo/mathengine/engine"
	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type fakeFeed struct {
	mu      sync.Mutex
	added   []engine.Subscriber
	removed []engine.Subscriber
	pending []calc.Operation
}

func (f *fakeFeed) AddSubscriber(s engine.Subscriber) ([]calc.Operation, []calc.Answer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, s)
	return f.pending, []calc.Answer{}
}

func (f *fakeFeed) RemoveSubscriber(s engine.Subscriber) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, s)
}

func (f *fakeFeed) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.added), len(f.removed)
}

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestStreamServe(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(now)
	done := make(chan struct{})
	stream := NewStream(&fakeFeed{}, clock, done, quietLogger)

	op := calc.NewOperation(calc.Question{FirstOperand: 1, SecondOperand: 2, Operator: calc.Add, DelaySeconds: 65}, now)
	client := newStreamClient(8)
	out := &syncBuffer{}

	finished := make(chan error, 1)
	go func() {
		finished <- stream.serve(bufio.NewWriter(out), client, []calc.Operation{op}, []calc.Answer{})
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "event: results\ndata: []\n\n")
	}, time.Second, 5*time.Millisecond)
	assert.Contains(t, out.String(), "event: pending\n")
	assert.Contains(t, out.String(), `"remaining":"00:01:05"`)

	client.ResultsChanged([]calc.Answer{{Text: "1.00 + 2.00 = 3.00"}})
	client.CancelledAll()
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "event: cancelled\ndata: {}\n\n")
	}, time.Second, 5*time.Millisecond)
	assert.Contains(t, out.String(), `data: [{"text":"1.00 + 2.00 = 3.00"}]`)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(DefaultStreamHeartbeat)
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), ": ping\n\n")
	}, time.Second, 5*time.Millisecond)

	close(done)
	select {
	case err := <-finished:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("stream did not stop")
	}
}

func TestStreamClientOverflow(t *testing.T) {
	client := newStreamClient(1)
	client.CancelledAll()
	client.CancelledAll()

	select {
	case <-client.gone:
	default:
		t.Fatal("client should be dropped once its buffer is full")
	}
	client.CancelledAll()

	stream := NewStream(&fakeFeed{}, clockwork.NewFakeClock(), make(chan struct{}), quietLogger)
	for len(client.events) > 0 {
		<-client.events
	}
	err := stream.serve(bufio.NewWriter(io.Discard), client, nil, nil)
	assert.ErrorContains(t, err, "fell behind")
}

func TestStreamHandle(t *testing.T) {
	feed := &fakeFeed{}
	done := make(chan struct{})
	close(done)

	app := fiber.New()
	app.Get(StreamPath, NewStream(feed, clockwork.NewFakeClock(), done, quietLogger).Handle)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, StreamPath, nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, "text/event-stream", resp.Header.Get(fiber.HeaderContentType))
	assert.Contains(t, string(body), "event: pending\ndata: []\n\n")
	assert.Contains(t, string(body), "event: results\ndata: []\n\n")

	added, removed := feed.counts()
	assert.Equal(t, 1, added)
	assert.Equal(t, 1, removed)
}
