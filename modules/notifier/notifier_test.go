package notifier_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/Deepreo/mathengine/engine"
	"github.com/Deepreo/mathengine/modules/notifier"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ engine.Notifier        = (*notifier.Status)(nil)
	_ engine.FailureNotifier = (*notifier.Status)(nil)
	_ engine.FailureNotifier = (*notifier.Log)(nil)
	_ engine.FailureNotifier = notifier.Multi{}
)

type fakeCanceller struct{ calls int }

func (c *fakeCanceller) CancelAll(ctx context.Context) (int, error) {
	c.calls++
	return 4, nil
}

func TestStatus(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	s := notifier.NewStatus(clock)

	t.Run("Starts idle", func(t *testing.T) {
		v := s.View()
		assert.Equal(t, "0 pending, 0 finished", v.Text)
		assert.True(t, v.Idle)
		assert.False(t, v.CanCancel)
	})

	t.Run("Update", func(t *testing.T) {
		clock.Advance(time.Minute)
		s.Update(2, 5)
		v := s.View()
		assert.Equal(t, "2 pending, 5 finished", v.Text)
		assert.False(t, v.Idle)
		assert.True(t, v.CanCancel)
		assert.Equal(t, clock.Now(), v.UpdatedAt)
	})

	t.Run("SetIdle keeps finished count", func(t *testing.T) {
		s.SetIdle()
		v := s.View()
		assert.Equal(t, "0 pending, 5 finished", v.Text)
		assert.True(t, v.Idle)
		assert.False(t, v.CanCancel)
	})

	t.Run("Failed", func(t *testing.T) {
		s.Failed("op-1", errors.New("boom"))
		assert.Equal(t, 1, s.View().Failed)
	})

	t.Run("Cancel affordance", func(t *testing.T) {
		n, err := s.Cancel(context.Background())
		require.NoError(t, err)
		assert.Zero(t, n, "unbound surface does nothing")

		c := &fakeCanceller{}
		s.Bind(c)
		n, err = s.Cancel(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 4, n)
		assert.Equal(t, 1, c.calls)
	})
}

type plainNotifier struct{ updates, idles int }

func (p *plainNotifier) Update(int, int) { p.updates++ }
func (p *plainNotifier) SetIdle()        { p.idles++ }

func TestMulti(t *testing.T) {
	plain := &plainNotifier{}
	status := notifier.NewStatus(nil)
	m := notifier.Multi{plain, status}

	m.Update(1, 0)
	m.SetIdle()
	m.Failed("op", errors.New("boom"))

	assert.Equal(t, 1, plain.updates)
	assert.Equal(t, 1, plain.idles)
	assert.Equal(t, 1, status.View().Failed)
}

func TestLog(t *testing.T) {
	var buf bytes.Buffer
	l := notifier.NewLog(slog.New(slog.NewTextHandler(&buf, nil)))

	l.Update(3, 1)
	l.SetIdle()
	l.Failed("op-9", errors.New("boom"))

	out := buf.String()
	assert.Contains(t, out, `msg="3 pending, 1 finished"`)
	assert.Contains(t, out, "msg=idle")
	assert.Contains(t, out, "id=op-9")
}
