package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// RedisConfig is optional: an empty Addr disables the cache, sweep lock and redis sink.
type RedisConfig struct {
	Addr         string        `env:"REDIS_ADDR"`
	Password     string        `env:"REDIS_PASSWORD"`
	DB           int           `env:"REDIS_DB" envDefault:"0"`
	PoolCacheTTL time.Duration `env:"REDIS_POOL_CACHE_TTL" envDefault:"5s"`
	SweepLockTTL time.Duration `env:"REDIS_SWEEP_LOCK_TTL" envDefault:"30s"`
}

func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

func LoadRedis() (RedisConfig, error) {
	var cfg RedisConfig
	err := env.Parse(&cfg)
	return cfg, err
}
