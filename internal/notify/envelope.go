// Package notify fans committed pool events out to stream subscribers and external sinks.
package notify

import (
	"time"

	"prediction-pool/internal/ids"
	"prediction-pool/internal/pool"
)

// Envelope is the wire form of a pool event. EventID is a monotonic ULID, so ids sort
// in emission order.
type Envelope struct {
	EventID  string         `json:"event_id"`
	Event    pool.EventType `json:"event"`
	PoolID   uint64         `json:"pool_id"`
	ServerTS int64          `json:"server_ts"`
	Data     any            `json:"data"`
}

func NewEnvelope(ev pool.Event, now time.Time) Envelope {
	return Envelope{
		EventID:  ids.NewAt(now),
		Event:    ev.Type,
		PoolID:   ev.PoolID,
		ServerTS: now.UnixMilli(),
		Data:     ev.Data,
	}
}
