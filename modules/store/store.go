// Package store persists engine state so a restarted process can pick up
// where the previous one stopped.
package store

import (
	"context"
	"fmt"

	"github.com/Deepreo/mathengine/calc"
	"github.com/Deepreo/mathengine/errors"
)

const (
	DriverNone     = "none"
	DriverSQLite   = "sqlite"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// Snapshot is everything a store keeps: the pending records in submission
// order and the answers in completion order.
type Snapshot struct {
	Pending []calc.Record
	Results []calc.Answer
}

// Store replaces the stored pending list or results list as a whole.
type Store interface {
	SavePending(ctx context.Context, records []calc.Record) error
	SaveResults(ctx context.Context, results []calc.Answer) error
	Load(ctx context.Context) (Snapshot, error)
	Close() error
}

func storeError(op string, err error) error {
	return errors.InfraError(fmt.Errorf("store %s: %w", op, err)).WithCode(errors.CodeStoreFailure)
}
