package config

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type ServerConfig struct {
	StoreDriver string `env:"STORE_DRIVER" envDefault:"postgres"`
	PostgresDSN string `env:"POSTGRES_DSN"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`

	AdminAPIKey string `env:"ADMIN_API_KEY"`
	// APIKeys maps a bearer key to the principal it authenticates as.
	APIKeys map[string]string `env:"API_KEYS" envSeparator:"," envKeyValSeparator:":"`

	OperatorPrincipal string        `env:"OPERATOR_PRINCIPAL"`
	LockSweepInterval time.Duration `env:"LOCK_SWEEP_INTERVAL" envDefault:"30s"`
}

func LoadServer() (ServerConfig, error) {
	var cfg ServerConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c ServerConfig) Validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.PostgresDSN == "" {
			return errors.New("POSTGRES_DSN is required when STORE_DRIVER=postgres")
		}
	case StoreDriverMemory:
	default:
		return errors.New("STORE_DRIVER must be postgres or memory")
	}
	if c.LockSweepInterval <= 0 {
		return errors.New("LOCK_SWEEP_INTERVAL must be positive")
	}
	return nil
}
