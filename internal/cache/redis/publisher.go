package redis

import (
	"context"
	"encoding/json"

	"prediction-pool/internal/notify"

	"github.com/redis/go-redis/v9"
)

// Publisher is a notify sink that PUBLISHes envelopes as JSON on one channel.
type Publisher struct {
	rdb     *redis.Client
	channel string
}

func NewPublisher(c *Client, channel string) *Publisher {
	return &Publisher{rdb: c.Underlying(), channel: channel}
}

func (p *Publisher) Name() string { return "redis" }

func (p *Publisher) Send(ctx context.Context, env notify.Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, p.channel, payload).Err()
}

var _ notify.Sink = (*Publisher)(nil)
