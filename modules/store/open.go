package store

import (
	"context"
	"fmt"

	"github.com/Deepreo/mathengine/modules/database"
)

type Config struct {
	Driver   string          `mapstructure:"driver" validate:"oneof=none sqlite redis postgres"`
	SQLite   SQLiteConfig    `mapstructure:"sqlite"`
	Redis    RedisConfig     `mapstructure:"redis"`
	Postgres database.Config `mapstructure:"postgres"`
}

// Open returns the store selected by cfg.Driver, or nil for DriverNone.
func Open(ctx context.Context, cfg Config) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case "", DriverNone:
		return nil, nil
	case DriverSQLite:
		s, err = NewSQLite(ctx, cfg.SQLite)
	case DriverRedis:
		s, err = NewRedis(ctx, &cfg.Redis)
	case DriverPostgres:
		s, err = NewPostgres(ctx, &cfg.Postgres)
	default:
		return nil, storeError("open", fmt.Errorf("unknown driver %q", cfg.Driver))
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}
