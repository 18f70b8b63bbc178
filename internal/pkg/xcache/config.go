package xcache

import (
	"time"
)

// Mode selects the cache backend.
//   - memory: process local
//   - redis: shared redis
//   - two-level: memory in front of redis
//
// Anything else, including empty, disables caching.
const (
	ModeMemory   = "memory"
	ModeRedis    = "redis"
	ModeTwoLevel = "two-level"
)

type Config struct {
	Mode   string       `conf:"mode" yaml:"mode" json:"mode"`
	Memory MemoryConfig `conf:"memory" yaml:"memory" json:"memory"`
	Redis  RedisConfig  `conf:"redis" yaml:"redis" json:"redis"`
}

type MemoryConfig struct {
	Expiration      time.Duration `conf:"expiration" yaml:"expiration" json:"expiration"`
	CleanupInterval time.Duration `conf:"cleanup_interval" yaml:"cleanup_interval" json:"cleanup_interval"`
}

// RedisConfig configures the redis layer. The connection itself is the shared client.
type RedisConfig struct {
	Expiration time.Duration `conf:"expiration" yaml:"expiration" json:"expiration"`
	KeyPrefix  string        `conf:"key_prefix" yaml:"key_prefix" json:"key_prefix"`
}

func (c Config) UsesRedis() bool {
	return c.Mode == ModeRedis || c.Mode == ModeTwoLevel
}
