package notify

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

// LogSink writes every envelope to the structured log.
type LogSink struct{}

func (LogSink) Name() string { return "log" }

func (LogSink) Send(_ context.Context, env Envelope) error {
	log.Info().Str("event_id", env.EventID).Str("event", string(env.Event)).
		Uint64("pool_id", env.PoolID).Interface("data", env.Data).Msg("pool event")
	return nil
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes envelopes as JSON keyed by pool id, so one pool's events stay
// ordered within a partition.
type KafkaSink struct {
	w messageWriter
}

func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

func NewKafkaSink(w messageWriter) *KafkaSink {
	return &KafkaSink{w: w}
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Send(ctx context.Context, env Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return s.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatUint(env.PoolID, 10)),
		Value: payload,
		Time:  time.UnixMilli(env.ServerTS),
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(env.Event)},
			{Key: "event_id", Value: []byte(env.EventID)},
		},
	})
}

func (s *KafkaSink) Close() error {
	return s.w.Close()
}
