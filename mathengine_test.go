package mathengine_test

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/Deepreo/mathengine"
	"github.com/Deepreo/mathengine/calc"
	"github.com/Deepreo/mathengine/config"
	"github.com/Deepreo/mathengine/modules/scheduler"
	"github.com/Deepreo/mathengine/modules/servers"
	"github.com/Deepreo/mathengine/modules/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Log: config.LogConfig{Level: "error", Format: "text"},
		Server: servers.HttpServerConfig{
			Host: "127.0.0.1",
			Port: "0",
		},
		Scheduler: scheduler.Config{Tag: "test", StopTimeout: time.Second},
		Store: store.Config{
			Driver: store.DriverSQLite,
			SQLite: store.SQLiteConfig{Path: filepath.Join(t.TempDir(), "engine.db"), BusyTimeout: time.Second},
		},
		Events:          config.EventsConfig{Enabled: true, Audit: true},
		ShutdownTimeout: 5 * time.Second,
	}
}

func TestApplication_RestoresAndPersists(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	seed, err := store.NewSQLite(ctx, cfg.Store.SQLite)
	require.NoError(t, err)
	overdue := calc.NewOperation(calc.Question{FirstOperand: 6, SecondOperand: 3, Operator: calc.Divide, DelaySeconds: 1}, time.Now().Add(-time.Minute))
	require.NoError(t, seed.SavePending(ctx, []calc.Record{calc.NewRecord(overdue)}))
	require.NoError(t, seed.SaveResults(ctx, []calc.Answer{{Text: "1.00 + 1.00 = 2.00"}}))
	require.NoError(t, seed.Close())

	app, err := mathengine.New(ctx, cfg, logger)
	require.NoError(t, err)
	assert.Len(t, app.Engine().ResultsSnapshot(), 1, "stored answers seed the results list")

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- app.Run(runCtx) }()

	require.Eventually(t, func() bool {
		return len(app.Engine().ResultsSnapshot()) == 2
	}, 5*time.Second, 20*time.Millisecond, "overdue operation should run right after restore")
	assert.Equal(t, []calc.Answer{
		{Text: "1.00 + 1.00 = 2.00"},
		{Text: "6.00 / 3.00 = 2.00"},
	}, app.Engine().ResultsSnapshot())

	id, err := app.Engine().Submit(ctx, calc.Question{FirstOperand: 1, SecondOperand: 1, Operator: calc.Add, DelaySeconds: 3600})
	require.NoError(t, err)
	require.NoError(t, app.Engine().Flush(ctx))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("application did not stop")
	}

	reopened, err := store.NewSQLite(ctx, cfg.Store.SQLite)
	require.NoError(t, err)
	defer reopened.Close()
	snapshot, err := reopened.Load(ctx)
	require.NoError(t, err)

	assert.Len(t, snapshot.Results, 2)
	require.Len(t, snapshot.Pending, 1, "pending work survives a stop")
	assert.Equal(t, id, snapshot.Pending[0].ID)
}

func TestApplication_NoStore(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Driver = store.DriverNone
	cfg.Events.Enabled = false

	app, err := mathengine.New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	require.Eventually(t, app.Engine().Running, time.Second, 10*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("application did not stop")
	}
	assert.False(t, app.Engine().Running())
}
