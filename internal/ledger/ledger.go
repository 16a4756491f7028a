package ledger

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInsufficientFunds = errors.New("insufficient_funds")
	ErrInvalidPosting    = errors.New("invalid_posting")
	ErrBalanceOverflow   = errors.New("balance_overflow")
)

// Account names a balance holder. Custody accounts hold a pool's funds and are only
// moved by stakes (credit) and payouts (debit).
type Account string

const (
	custodyPrefix = "vault:"
	userPrefix    = "user:"
)

// CustodyAccount derives the custody account of a pool from its id.
func CustodyAccount(poolID uint64) Account {
	return Account(custodyPrefix + strconv.FormatUint(poolID, 10))
}

func UserAccount(principal string) Account {
	return Account(userPrefix + principal)
}

func (a Account) IsCustody() bool {
	return strings.HasPrefix(string(a), custodyPrefix)
}

type Memo string

const (
	MemoStake   Memo = "stake"
	MemoPayout  Memo = "payout"
	MemoDeposit Memo = "deposit"
)

// Posting moves Amount from one account to another.
type Posting struct {
	From    Account
	To      Account
	Amount  uint64
	Memo    Memo
	RefType string
	RefID   string
}

func (p Posting) Validate() error {
	if p.From == "" || p.To == "" || p.From == p.To || p.Amount == 0 {
		return ErrInvalidPosting
	}
	return nil
}

// Stake moves a participant's gross stake into pool custody.
func Stake(poolID uint64, user string, amount uint64) Posting {
	return Posting{
		From:    UserAccount(user),
		To:      CustodyAccount(poolID),
		Amount:  amount,
		Memo:    MemoStake,
		RefType: "pool",
		RefID:   strconv.FormatUint(poolID, 10),
	}
}

// Payout moves winnings out of pool custody. The custody account is the source, so
// the transfer is authorized by the pool, never by the claimant.
func Payout(poolID uint64, user string, amount uint64) Posting {
	return Posting{
		From:    CustodyAccount(poolID),
		To:      UserAccount(user),
		Amount:  amount,
		Memo:    MemoPayout,
		RefType: "pool",
		RefID:   strconv.FormatUint(poolID, 10),
	}
}

// Record is one side of an applied posting, as kept in the audit trail.
type Record struct {
	ID        string    `json:"id"`
	Account   Account   `json:"account"`
	Memo      Memo      `json:"memo"`
	Credit    bool      `json:"credit"`
	Amount    uint64    `json:"amount"`
	RefType   string    `json:"ref_type"`
	RefID     string    `json:"ref_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Funds is the account-facing side of custody: deposits from outside and balance queries.
type Funds interface {
	Deposit(ctx context.Context, a Account, amount uint64, refID string) (uint64, error)
	Balance(ctx context.Context, a Account) (uint64, error)
	Records(ctx context.Context, a Account, limit, offset int) ([]Record, error)
}
