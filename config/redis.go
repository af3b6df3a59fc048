package config

import (
	"strings"
	"time"
)

// RedisConfig contains the connection settings for the snapshot state
// store. Persistence is optional: with no address configured, the
// scheduler runs purely in memory.
type RedisConfig struct {
	Address  string `env:"ADDRESS"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB"       envDefault:"0"`

	// StateKey overrides the key the scheduler state blob lives under.
	StateKey string `env:"STATE_KEY"`

	// StateTTL expires stale snapshots. Zero keeps them forever.
	StateTTL time.Duration `env:"STATE_TTL"`
}

// Sanitize normalises the redis configuration values.
func (c *RedisConfig) Sanitize() {
	c.Address = strings.TrimSpace(c.Address)
	c.StateKey = strings.TrimSpace(c.StateKey)
	if c.StateTTL < 0 {
		c.StateTTL = 0
	}
}

// Enabled reports whether a redis endpoint is configured.
func (c *RedisConfig) Enabled() bool {
	return c.Address != ""
}
