package store

import (
	"context"
	"errors"

	"prediction-pool/internal/pool"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const entryColumns = `pool_id, user_id, side, amount, fee_paid, claimed, version`

func scanEntry(row pgx.Row) (pool.Entry, error) {
	var (
		e               pool.Entry
		id, amount, fee pgtype.Numeric
		user            string
		side            int16
		version         int64
	)
	if err := row.Scan(&id, &user, &side, &amount, &fee, &e.Claimed, &version); err != nil {
		return pool.Entry{}, err
	}
	var err error
	if e.PoolID, err = numericVal(id); err != nil {
		return pool.Entry{}, err
	}
	if e.Amount, err = numericVal(amount); err != nil {
		return pool.Entry{}, err
	}
	if e.FeePaid, err = numericVal(fee); err != nil {
		return pool.Entry{}, err
	}
	e.User = pool.Principal(user)
	e.Side = pool.Side(side)
	e.Version = uint64(version)
	if !e.Side.Valid() {
		return pool.Entry{}, pool.ErrInvalidRecord
	}
	return e, nil
}

func (s *Store) GetEntry(ctx context.Context, poolID uint64, user pool.Principal) (pool.Entry, error) {
	e, found, err := getEntry(ctx, s.Pool, poolID, user, false)
	if err != nil {
		return pool.Entry{}, err
	}
	if !found {
		return pool.Entry{}, pool.ErrEntryNotFound
	}
	return e, nil
}

func getEntry(ctx context.Context, q querier, poolID uint64, user pool.Principal, forUpdate bool) (pool.Entry, bool, error) {
	sql := `SELECT ` + entryColumns + ` FROM entries WHERE pool_id = $1 AND user_id = $2`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	e, err := scanEntry(q.QueryRow(ctx, sql, numericParam(poolID), string(user)))
	if errors.Is(err, pgx.ErrNoRows) {
		return pool.Entry{}, false, nil
	}
	if err != nil {
		return pool.Entry{}, false, err
	}
	return e, true, nil
}

// putEntry inserts version 1 or updates from Version-1; anything else is a conflict.
func putEntry(ctx context.Context, q querier, e pool.Entry) error {
	if e.Version == 1 {
		tag, err := q.Exec(ctx, `INSERT INTO entries (`+entryColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7) ON CONFLICT (pool_id, user_id) DO NOTHING`,
			numericParam(e.PoolID), string(e.User), int16(e.Side), numericParam(e.Amount),
			numericParam(e.FeePaid), e.Claimed, int64(e.Version))
		if err != nil {
			return err
		}
		if tag.RowsAffected() != 1 {
			return pool.ErrConflict
		}
		return nil
	}
	tag, err := q.Exec(ctx, `UPDATE entries SET side = $3, amount = $4, fee_paid = $5, claimed = $6,
		version = $7, updated_at = now()
		WHERE pool_id = $1 AND user_id = $2 AND version = $8`,
		numericParam(e.PoolID), string(e.User), int16(e.Side), numericParam(e.Amount),
		numericParam(e.FeePaid), e.Claimed, int64(e.Version), int64(e.Version)-1)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return pool.ErrConflict
	}
	return nil
}

func (s *Store) ListEntries(ctx context.Context, poolID uint64, limit, offset int) ([]pool.Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.Pool.Query(ctx, `SELECT `+entryColumns+` FROM entries
		WHERE pool_id = $1 ORDER BY seq ASC LIMIT $2 OFFSET $3`, numericParam(poolID), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []pool.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
