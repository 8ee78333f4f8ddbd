package store

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/Deepreo/mathengine/calc"
	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// RedisStore keeps each list as one JSON value so a save is a single SET.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedis(ctx context.Context, cfg *RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, storeError("open", fmt.Errorf("failed to ping redis: %w", err))
	}
	return NewRedisWithClient(client, cfg.Prefix), nil
}

func NewRedisWithClient(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) pendingKey() string { return s.prefix + "pending" }
func (s *RedisStore) resultsKey() string { return s.prefix + "results" }

func (s *RedisStore) SavePending(ctx context.Context, records []calc.Record) error {
	if err := s.set(ctx, s.pendingKey(), records); err != nil {
		return storeError("save pending", err)
	}
	return nil
}

func (s *RedisStore) SaveResults(ctx context.Context, results []calc.Answer) error {
	if err := s.set(ctx, s.resultsKey(), results); err != nil {
		return storeError("save results", err)
	}
	return nil
}

func (s *RedisStore) set(ctx context.Context, key string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, payload, 0).Err()
}

func (s *RedisStore) Load(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	if err := s.get(ctx, s.pendingKey(), &snap.Pending); err != nil {
		return Snapshot{}, storeError("load pending", err)
	}
	if err := s.get(ctx, s.resultsKey(), &snap.Results); err != nil {
		return Snapshot{}, storeError("load results", err)
	}
	return snap, nil
}

func (s *RedisStore) get(ctx context.Context, key string, v any) error {
	payload, err := s.client.Get(ctx, key).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(payload, v)
}

func (s *RedisStore) HealthCheck(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
