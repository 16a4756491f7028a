package store

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"prediction-pool/internal/pool"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const poolColumns = `pool_id, authority, start_ts, lock_ts, end_ts, line_bps, status,
	total_over, total_under, ai_commit, winner, proof_hash, version`

func scanPool(row pgx.Row) (pool.Pool, error) {
	var (
		p                   pool.Pool
		id, over, under     pgtype.Numeric
		status, winner      int16
		aiCommit, proofHash []byte
		version             int64
		authority           string
	)
	if err := row.Scan(&id, &authority, &p.StartTS, &p.LockTS, &p.EndTS, &p.LineBps, &status,
		&over, &under, &aiCommit, &winner, &proofHash, &version); err != nil {
		return pool.Pool{}, err
	}
	var err error
	if p.PoolID, err = numericVal(id); err != nil {
		return pool.Pool{}, err
	}
	if p.TotalOver, err = numericVal(over); err != nil {
		return pool.Pool{}, err
	}
	if p.TotalUnder, err = numericVal(under); err != nil {
		return pool.Pool{}, err
	}
	if p.AICommit, err = hashVal(aiCommit); err != nil {
		return pool.Pool{}, err
	}
	if p.ProofHash, err = hashVal(proofHash); err != nil {
		return pool.Pool{}, err
	}
	p.Authority = pool.Principal(authority)
	p.Status = pool.Status(status)
	p.Winner = pool.Winner(winner)
	p.Version = uint64(version)
	if !p.Status.Valid() || !p.Winner.Valid() {
		return pool.Pool{}, pool.ErrInvalidRecord
	}
	return p, nil
}

func (s *Store) InsertPool(ctx context.Context, p pool.Pool) error {
	_, err := s.Pool.Exec(ctx, `INSERT INTO pools (`+poolColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		numericParam(p.PoolID), string(p.Authority), p.StartTS, p.LockTS, p.EndTS, p.LineBps, int16(p.Status),
		numericParam(p.TotalOver), numericParam(p.TotalUnder), p.AICommit[:], int16(p.Winner), p.ProofHash[:], int64(p.Version))
	if isUniqueViolation(err) {
		return pool.ErrPoolExists
	}
	return err
}

func (s *Store) GetPool(ctx context.Context, poolID uint64) (pool.Pool, error) {
	return getPool(ctx, s.Pool, poolID, false)
}

func getPool(ctx context.Context, q querier, poolID uint64, forUpdate bool) (pool.Pool, error) {
	sql := `SELECT ` + poolColumns + ` FROM pools WHERE pool_id = $1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	p, err := scanPool(q.QueryRow(ctx, sql, numericParam(poolID)))
	if errors.Is(err, pgx.ErrNoRows) {
		return pool.Pool{}, pool.ErrPoolNotFound
	}
	return p, err
}

// updatePool writes p only if the stored version is p.Version-1.
func updatePool(ctx context.Context, q querier, p pool.Pool) error {
	tag, err := q.Exec(ctx, `UPDATE pools SET status = $2, total_over = $3, total_under = $4,
		winner = $5, proof_hash = $6, version = $7, updated_at = now()
		WHERE pool_id = $1 AND version = $8`,
		numericParam(p.PoolID), int16(p.Status), numericParam(p.TotalOver), numericParam(p.TotalUnder),
		int16(p.Winner), p.ProofHash[:], int64(p.Version), int64(p.Version)-1)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return pool.ErrConflict
	}
	return nil
}

func (s *Store) ListPools(ctx context.Context, f pool.PoolFilter) ([]pool.Pool, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(`SELECT ` + poolColumns + ` FROM pools`)
	if len(f.Statuses) > 0 {
		statuses := make([]int16, 0, len(f.Statuses))
		for _, st := range f.Statuses {
			statuses = append(statuses, int16(st))
		}
		args = append(args, statuses)
		sb.WriteString(` WHERE status = ANY($1)`)
	}
	if f.ByVolume {
		sb.WriteString(` ORDER BY (total_over + total_under) DESC, pool_id ASC`)
	} else {
		sb.WriteString(` ORDER BY pool_id ASC`)
	}
	args = append(args, f.Limit, f.Offset)
	sb.WriteString(` LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args)))

	rows, err := s.Pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []pool.Pool{}
	for rows.Next() {
		p, err := scanPool(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
