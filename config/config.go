// Package config loads the application configuration from an optional YAML
// file, a .env file and MATHENGINE_ environment variables.
package config

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Deepreo/mathengine/errors"
	"github.com/Deepreo/mathengine/modules/auth"
	"github.com/Deepreo/mathengine/modules/metrics"
	"github.com/Deepreo/mathengine/modules/scheduler"
	"github.com/Deepreo/mathengine/modules/servers"
	"github.com/Deepreo/mathengine/modules/store"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "MATHENGINE"

type Config struct {
	Log             LogConfig                `mapstructure:"log"`
	Server          servers.HttpServerConfig `mapstructure:"server"`
	Stream          StreamConfig             `mapstructure:"stream"`
	Scheduler       scheduler.Config         `mapstructure:"scheduler"`
	Store           store.Config             `mapstructure:"store"`
	Auth            auth.Config              `mapstructure:"auth"`
	Metrics         metrics.Config           `mapstructure:"metrics"`
	Events          EventsConfig             `mapstructure:"events"`
	ShutdownTimeout time.Duration            `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

type StreamConfig struct {
	Buffer    int           `mapstructure:"buffer" validate:"gte=0"`
	Heartbeat time.Duration `mapstructure:"heartbeat" validate:"gte=0"`
}

// EventsConfig controls the event bus that mirrors engine changes.
type EventsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Audit   bool `mapstructure:"audit"`
}

// defaults doubles as the list of keys environment variables can override.
var defaults = map[string]any{
	"log.level":                             "info",
	"log.format":                            "text",
	"server.read_timeout":                   servers.DefaultReadTimeout,
	"server.write_timeout":                  time.Duration(0),
	"server.server_header":                  servers.DefaultServerHeader,
	"server.body_limit":                     servers.DefaultBodyLimit,
	"server.port":                           servers.DefaultPort,
	"server.host":                           servers.DefaultHost,
	"server.allowed_origins":                servers.DefaultAllowedOrigins,
	"server.features.request_id.enabled":    true,
	"server.features.proxy.enabled":         false,
	"server.features.proxy.proxy_header":    "",
	"server.features.proxy.trusted_proxies": []string{},
	"server.features.rate_limit.enabled":    false,
	"server.features.rate_limit.max":        60,
	"server.features.rate_limit.expiration": servers.DefaultRateLimitWindow,
	"server.features.health_check.enabled":  true,
	"server.features.etag.enabled":          false,
	"server.features.elastic_apm.enabled":   false,
	"server.features.swagger_ui.enabled":    false,
	"server.features.swagger_ui.path":       servers.DefaultSwaggerUIPath,
	"stream.buffer":                         servers.DefaultStreamBuffer,
	"stream.heartbeat":                      servers.DefaultStreamHeartbeat,
	"scheduler.tag":                         scheduler.DefaultTag,
	"scheduler.stop_timeout":                scheduler.DefaultStopTimeout,
	"store.driver":                          store.DriverSQLite,
	"store.sqlite.path":                     "data/mathengine.db",
	"store.sqlite.busy_timeout":             5 * time.Second,
	"store.redis.host":                      "localhost",
	"store.redis.port":                      "6379",
	"store.redis.password":                  "",
	"store.redis.db":                        0,
	"store.redis.prefix":                    "mathengine:",
	"store.postgres.url":                    "",
	"store.postgres.host":                   "localhost",
	"store.postgres.port":                   "5432",
	"store.postgres.user":                   "postgres",
	"store.postgres.password":               "",
	"store.postgres.dbname":                 "mathengine",
	"store.postgres.sslmode":                "disable",
	"store.postgres.max_conns":              4,
	"store.postgres.connect_timeout":        5 * time.Second,
	"auth.enabled":                          false,
	"auth.secret_key":                       "",
	"auth.issuer":                           "mathengine",
	"auth.token_ttl":                        24 * time.Hour,
	"metrics.enabled":                       true,
	"metrics.namespace":                     "mathengine",
	"metrics.path":                          "/metrics",
	"events.enabled":                        true,
	"events.audit":                          true,
	"shutdown_timeout":                      servers.DefaultShutdownTimeout,
}

// Load reads .env (when present), then path (when set), then the
// environment. Later sources win.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(fs.ErrNotExist, err) {
		return nil, errors.AppError(fmt.Errorf("load .env: %w", err))
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.AppError(fmt.Errorf("read config %s: %w", path, err))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.AppError(fmt.Errorf("decode config: %w", err))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.ValidationError(fmt.Errorf("invalid config: %w", err))
	}
	if err := c.Auth.Validate(); err != nil {
		return errors.ValidationError(fmt.Errorf("invalid auth config: %w", err))
	}
	return nil
}

// NewLogger builds the process logger. Output goes to w, or stderr when w
// is nil.
func (c LogConfig) NewLogger(w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: c.level()}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func (c LogConfig) level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}
