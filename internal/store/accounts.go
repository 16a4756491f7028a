package store

import (
	"context"
	"errors"
	"sort"

	"prediction-pool/internal/ids"
	"prediction-pool/internal/ledger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

func lockAccount(ctx context.Context, q querier, a ledger.Account) (uint64, error) {
	if _, err := q.Exec(ctx, `INSERT INTO accounts (account, balance) VALUES ($1, 0)
		ON CONFLICT (account) DO NOTHING`, string(a)); err != nil {
		return 0, err
	}
	var bal pgtype.Numeric
	if err := q.QueryRow(ctx, `SELECT balance FROM accounts WHERE account = $1 FOR UPDATE`, string(a)).Scan(&bal); err != nil {
		return 0, err
	}
	return numericVal(bal)
}

func setBalance(ctx context.Context, q querier, a ledger.Account, bal uint64) error {
	_, err := q.Exec(ctx, `UPDATE accounts SET balance = $2, updated_at = now() WHERE account = $1`,
		string(a), numericParam(bal))
	return err
}

func insertRecord(ctx context.Context, q querier, a ledger.Account, credit bool, amount uint64, memo ledger.Memo, refType, refID string) error {
	_, err := q.Exec(ctx, `INSERT INTO ledger_entries (id, account, memo, credit, amount, ref_type, ref_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		ids.New(), string(a), string(memo), credit, numericParam(amount), refType, refID)
	return err
}

// applyPosting moves funds inside an open transaction. Account rows are locked in
// name order so concurrent units touching the same accounts cannot deadlock.
func applyPosting(ctx context.Context, q querier, p ledger.Posting) error {
	if err := p.Validate(); err != nil {
		return err
	}
	names := []ledger.Account{p.From, p.To}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	bals := map[ledger.Account]uint64{}
	for _, a := range names {
		bal, err := lockAccount(ctx, q, a)
		if err != nil {
			return err
		}
		bals[a] = bal
	}
	from, to := bals[p.From], bals[p.To]
	if from < p.Amount {
		return ledger.ErrInsufficientFunds
	}
	if to+p.Amount < to {
		return ledger.ErrBalanceOverflow
	}
	if err := setBalance(ctx, q, p.From, from-p.Amount); err != nil {
		return err
	}
	if err := setBalance(ctx, q, p.To, to+p.Amount); err != nil {
		return err
	}
	if err := insertRecord(ctx, q, p.From, false, p.Amount, p.Memo, p.RefType, p.RefID); err != nil {
		return err
	}
	return insertRecord(ctx, q, p.To, true, p.Amount, p.Memo, p.RefType, p.RefID)
}

// Deposit credits funds from outside the system.
func (s *Store) Deposit(ctx context.Context, a ledger.Account, amount uint64, refID string) (uint64, error) {
	if a == "" || amount == 0 {
		return 0, ledger.ErrInvalidPosting
	}
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	bal, err := lockAccount(ctx, tx, a)
	if err != nil {
		return 0, err
	}
	if bal+amount < bal {
		return 0, ledger.ErrBalanceOverflow
	}
	bal += amount
	if err := setBalance(ctx, tx, a, bal); err != nil {
		return 0, err
	}
	if err := insertRecord(ctx, tx, a, true, amount, ledger.MemoDeposit, "deposit", refID); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return bal, nil
}

func (s *Store) Balance(ctx context.Context, a ledger.Account) (uint64, error) {
	var bal pgtype.Numeric
	err := s.Pool.QueryRow(ctx, `SELECT balance FROM accounts WHERE account = $1`, string(a)).Scan(&bal)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return numericVal(bal)
}

// Records lists audit records, newest first. An empty account matches all.
func (s *Store) Records(ctx context.Context, a ledger.Account, limit, offset int) ([]ledger.Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.Pool.Query(ctx, `SELECT id, account, memo, credit, amount, ref_type, ref_id, created_at
		FROM ledger_entries
		WHERE ($1::text = '' OR account = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`, string(a), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []ledger.Record{}
	for rows.Next() {
		var (
			r       ledger.Record
			account string
			memo    string
			amount  pgtype.Numeric
		)
		if err := rows.Scan(&r.ID, &account, &memo, &r.Credit, &amount, &r.RefType, &r.RefID, &r.CreatedAt); err != nil {
			return nil, err
		}
		if r.Amount, err = numericVal(amount); err != nil {
			return nil, err
		}
		r.Account = ledger.Account(account)
		r.Memo = ledger.Memo(memo)
		out = append(out, r)
	}
	return out, rows.Err()
}
