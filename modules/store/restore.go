package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Deepreo/mathengine/calc"
	"github.com/Deepreo/mathengine/errors"
)

// Submitter is the engine entry point used to redeliver stored work.
type Submitter interface {
	Submit(ctx context.Context, q calc.Question) (string, error)
}

// Restore resubmits stored pending records as ordinary submissions. Each
// record waits only for what was left of its delay at now; records whose end
// time already passed run right away. Records that fail to resubmit are
// skipped and reported together.
func Restore(ctx context.Context, engine Submitter, records []calc.Record, now time.Time, logger *slog.Logger) (int, error) {
	var (
		restored int
		errs     []error
	)
	for _, r := range records {
		q := r.Resume(now)
		id, err := engine.Submit(ctx, q)
		if err != nil {
			errs = append(errs, fmt.Errorf("resubmit %s: %w", r.ID, err))
			continue
		}
		restored++
		logger.DebugContext(ctx, "operation restored", "previous_id", r.ID, "id", id, "delay", q.Delay())
	}
	if len(records) > 0 {
		logger.InfoContext(ctx, "restored pending operations", "restored", restored, "stored", len(records))
	}
	return restored, errors.Join(errs...)
}
