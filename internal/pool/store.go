package pool

import (
	"context"

	"prediction-pool/internal/ledger"
)

type PoolFilter struct {
	Statuses []Status
	// ByVolume orders by combined totals, largest first. The default order is pool id.
	ByVolume bool
	Limit    int
	Offset   int
}

// Store is the durable record store for pools and entries.
//
// Atomic runs fn as one unit of work scoped to a single pool. Records read through the
// Tx stay locked against other units on the same pool until fn returns; record writes
// and ledger postings made through the Tx commit together only when fn returns nil.
// Units on different pools do not block each other.
type Store interface {
	InsertPool(ctx context.Context, p Pool) error
	GetPool(ctx context.Context, poolID uint64) (Pool, error)
	GetEntry(ctx context.Context, poolID uint64, user Principal) (Entry, error)
	ListEntries(ctx context.Context, poolID uint64, limit, offset int) ([]Entry, error)
	ListPools(ctx context.Context, f PoolFilter) ([]Pool, error)
	Atomic(ctx context.Context, poolID uint64, fn func(tx Tx) error) error
}

// Tx is the view of one pool inside Store.Atomic.
//
// PutPool and PutEntry expect the record's Version to be exactly one more than the
// stored version (1 for a new entry) and fail with ErrConflict otherwise.
type Tx interface {
	Pool() (Pool, error)
	Entry(user Principal) (Entry, bool, error)
	PutPool(p Pool) error
	PutEntry(e Entry) error
	Post(p ledger.Posting) error
}
