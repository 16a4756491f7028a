package ledger

import (
	"sync"
	"time"

	"prediction-pool/internal/ids"
)

// Book is an in-memory set of balances.
type Book struct {
	mu       sync.Mutex
	balances map[Account]uint64
	records  []Record
	now      func() time.Time
}

func NewBook() *Book {
	return &Book{balances: map[Account]uint64{}, now: time.Now}
}

func (b *Book) Balance(a Account) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balances[a]
}

// Deposit credits funds from outside the system.
func (b *Book) Deposit(a Account, amount uint64, refID string) (uint64, error) {
	if a == "" || amount == 0 {
		return 0, ErrInvalidPosting
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	bal := b.balances[a]
	if bal+amount < bal {
		return 0, ErrBalanceOverflow
	}
	bal += amount
	b.balances[a] = bal
	b.records = append(b.records, Record{
		ID: ids.New(), Account: a, Memo: MemoDeposit, Credit: true, Amount: amount,
		RefType: "deposit", RefID: refID, CreatedAt: b.now(),
	})
	return bal, nil
}

// Apply commits all postings or none of them.
func (b *Book) Apply(postings ...Posting) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	next := map[Account]uint64{}
	get := func(a Account) uint64 {
		if v, ok := next[a]; ok {
			return v
		}
		return b.balances[a]
	}
	for _, p := range postings {
		if err := p.Validate(); err != nil {
			return err
		}
		from := get(p.From)
		if from < p.Amount {
			return ErrInsufficientFunds
		}
		to := get(p.To)
		if to+p.Amount < to {
			return ErrBalanceOverflow
		}
		next[p.From] = from - p.Amount
		next[p.To] = to + p.Amount
	}
	for a, v := range next {
		b.balances[a] = v
	}
	now := b.now()
	for _, p := range postings {
		b.records = append(b.records,
			Record{ID: ids.NewAt(now), Account: p.From, Memo: p.Memo, Amount: p.Amount, RefType: p.RefType, RefID: p.RefID, CreatedAt: now},
			Record{ID: ids.NewAt(now), Account: p.To, Memo: p.Memo, Credit: true, Amount: p.Amount, RefType: p.RefType, RefID: p.RefID, CreatedAt: now},
		)
	}
	return nil
}

// Records lists audit records, newest first. An empty account matches all.
func (b *Book) Records(a Account, limit, offset int) []Record {
	if limit <= 0 {
		limit = 50
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Record, 0, limit)
	skipped := 0
	for i := len(b.records) - 1; i >= 0 && len(out) < limit; i-- {
		r := b.records[i]
		if a != "" && r.Account != a {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		out = append(out, r)
	}
	return out
}
