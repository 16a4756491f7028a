package pool

import "context"

type EventType string

const (
	EventPoolCreated     EventType = "pool_created"
	EventEntryCreated    EventType = "entry_created"
	EventPoolLocked      EventType = "pool_locked"
	EventPoolResolved    EventType = "pool_resolved"
	EventWinningsClaimed EventType = "winnings_claimed"
)

// Event is emitted after an operation commits.
type Event struct {
	Type   EventType
	PoolID uint64
	Data   any
}

type PoolCreatedData struct {
	Pool      uint64    `json:"pool"`
	Authority Principal `json:"authority"`
	StartTS   int64     `json:"start_ts"`
	LockTS    int64     `json:"lock_ts"`
	EndTS     int64     `json:"end_ts"`
	LineBps   int16     `json:"line_bps"`
	AICommit  Hash32    `json:"ai_commit"`
}

// EntryCreatedData carries the net amount credited, not the gross stake.
type EntryCreatedData struct {
	Pool   uint64    `json:"pool"`
	User   Principal `json:"user"`
	Side   Side      `json:"side"`
	Amount uint64    `json:"amount"`
	Fee    uint64    `json:"fee"`
}

type PoolLockedData struct {
	Pool uint64 `json:"pool"`
}

type PoolResolvedData struct {
	Pool      uint64 `json:"pool"`
	Winner    Winner `json:"winner"`
	ProofHash Hash32 `json:"proof_hash"`
}

type WinningsClaimedData struct {
	Pool   uint64    `json:"pool"`
	User   Principal `json:"user"`
	Amount uint64    `json:"amount"`
}

// Notifier receives committed events. Implementations must not block the caller for long;
// delivery failures are theirs to handle.
type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

type NotifierFunc func(ctx context.Context, ev Event)

func (f NotifierFunc) Notify(ctx context.Context, ev Event) { f(ctx, ev) }

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Event) {}
