package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type NotifyConfig struct {
	KafkaBrokers []string `env:"NOTIFY_KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"NOTIFY_KAFKA_TOPIC" envDefault:"pool_events"`
	RedisChannel string   `env:"NOTIFY_REDIS_CHANNEL"`

	WebhookURLs    []string      `env:"NOTIFY_WEBHOOK_URLS" envSeparator:","`
	WebhookSecret  string        `env:"NOTIFY_WEBHOOK_SECRET"`
	WebhookTimeout time.Duration `env:"NOTIFY_WEBHOOK_TIMEOUT" envDefault:"5s"`

	Workers        int           `env:"NOTIFY_WORKERS" envDefault:"2"`
	RetryMax       int           `env:"NOTIFY_RETRY_MAX" envDefault:"5"`
	RetryBase      time.Duration `env:"NOTIFY_RETRY_BASE" envDefault:"200ms"`
	DispatchBuffer int           `env:"NOTIFY_DISPATCH_BUFFER" envDefault:"1024"`
	ReplayBuffer   int           `env:"NOTIFY_REPLAY_BUFFER" envDefault:"500"`
}

func LoadNotify() (NotifyConfig, error) {
	var cfg NotifyConfig
	err := env.Parse(&cfg)
	return cfg, err
}
