package config

import (
	"errors"

	"github.com/caarlos0/env/v11"
)

type TestConfig struct {
	TestPostgresDSN string `env:"TEST_POSTGRES_DSN,required,notEmpty"`
}

func LoadTest() (TestConfig, error) {
	var cfg TestConfig
	err := env.Parse(&cfg)
	return cfg, err
}

type TestRedisConfig struct {
	Addr string `env:"TEST_REDIS_ADDR"`
}

func LoadTestRedis() (TestRedisConfig, error) {
	var cfg TestRedisConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, err
	}
	if cfg.Addr == "" {
		return cfg, errors.New("TEST_REDIS_ADDR is not set")
	}
	return cfg, nil
}
