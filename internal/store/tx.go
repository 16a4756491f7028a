package store

import (
	"context"

	"prediction-pool/internal/ledger"
	"prediction-pool/internal/pool"

	"github.com/jackc/pgx/v5"
)

// Atomic locks the pool row for the whole transaction. Entry rows and account rows are
// locked as the unit touches them and every write commits or rolls back together.
func (s *Store) Atomic(ctx context.Context, poolID uint64, fn func(tx pool.Tx) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	p, err := getPool(ctx, tx, poolID, true)
	if err != nil {
		return err
	}
	if err := fn(&pgTx{ctx: ctx, tx: tx, pool: p}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type pgTx struct {
	ctx  context.Context
	tx   pgx.Tx
	pool pool.Pool
}

func (t *pgTx) Pool() (pool.Pool, error) {
	return t.pool, nil
}

func (t *pgTx) Entry(user pool.Principal) (pool.Entry, bool, error) {
	return getEntry(t.ctx, t.tx, t.pool.PoolID, user, true)
}

func (t *pgTx) PutPool(p pool.Pool) error {
	if p.PoolID != t.pool.PoolID {
		return pool.ErrConflict
	}
	if err := updatePool(t.ctx, t.tx, p); err != nil {
		return err
	}
	t.pool = p
	return nil
}

func (t *pgTx) PutEntry(e pool.Entry) error {
	if e.PoolID != t.pool.PoolID {
		return pool.ErrConflict
	}
	return putEntry(t.ctx, t.tx, e)
}

func (t *pgTx) Post(p ledger.Posting) error {
	return applyPosting(t.ctx, t.tx, p)
}
