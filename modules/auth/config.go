package auth

import (
	"errors"
	"time"
)

// ScopeWrite is required by every request that changes engine state.
const ScopeWrite = "operations:write"

type Config struct {
	Enabled   bool          `mapstructure:"enabled" json:"enabled"`
	SecretKey string        `mapstructure:"secret_key" json:"-"`
	Issuer    string        `mapstructure:"issuer" json:"issuer"`
	TokenTTL  time.Duration `mapstructure:"token_ttl" json:"token_ttl"`
}

func DefaultConfig() Config {
	return Config{
		Issuer:   "mathengine",
		TokenTTL: 24 * time.Hour,
	}
}

func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if len(c.SecretKey) < 32 {
		return errors.New("JWT secret key must be at least 32 characters")
	}
	if c.TokenTTL <= 0 {
		return errors.New("token ttl must be positive")
	}
	return nil
}
