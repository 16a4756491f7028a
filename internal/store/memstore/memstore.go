// Package memstore keeps pools, entries and balances in process memory.
package memstore

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"prediction-pool/internal/ledger"
	"prediction-pool/internal/lock"
	"prediction-pool/internal/pool"
)

type Store struct {
	mu      sync.RWMutex
	pools   map[uint64]pool.Pool
	entries map[uint64]map[pool.Principal]pool.Entry
	order   map[uint64][]pool.Principal

	book  *ledger.Book
	locks *lock.Keyed
}

func New(book *ledger.Book) *Store {
	if book == nil {
		book = ledger.NewBook()
	}
	return &Store{
		pools:   map[uint64]pool.Pool{},
		entries: map[uint64]map[pool.Principal]pool.Entry{},
		order:   map[uint64][]pool.Principal{},
		book:    book,
		locks:   lock.NewKeyed(),
	}
}

func (s *Store) Book() *ledger.Book {
	return s.book
}

func lockKey(poolID uint64) string {
	return "pool:" + strconv.FormatUint(poolID, 10)
}

func (s *Store) InsertPool(_ context.Context, p pool.Pool) error {
	unlock := s.locks.Lock(lockKey(p.PoolID))
	defer unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pools[p.PoolID]; ok {
		return pool.ErrPoolExists
	}
	s.pools[p.PoolID] = p
	s.entries[p.PoolID] = map[pool.Principal]pool.Entry{}
	return nil
}

func (s *Store) GetPool(_ context.Context, poolID uint64) (pool.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pools[poolID]
	if !ok {
		return pool.Pool{}, pool.ErrPoolNotFound
	}
	return p, nil
}

func (s *Store) GetEntry(_ context.Context, poolID uint64, user pool.Principal) (pool.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[poolID][user]
	if !ok {
		return pool.Entry{}, pool.ErrEntryNotFound
	}
	return e, nil
}

func (s *Store) ListEntries(_ context.Context, poolID uint64, limit, offset int) ([]pool.Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := s.order[poolID]
	out := []pool.Entry{}
	for i := offset; i < len(users) && len(out) < limit; i++ {
		out = append(out, s.entries[poolID][users[i]])
	}
	return out, nil
}

func (s *Store) ListPools(_ context.Context, f pool.PoolFilter) ([]pool.Pool, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	s.mu.RLock()
	all := make([]pool.Pool, 0, len(s.pools))
	for _, p := range s.pools {
		if matchStatus(p.Status, f.Statuses) {
			all = append(all, p)
		}
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if f.ByVolume {
			vi, vj := volume(all[i]), volume(all[j])
			if vi != vj {
				return vi > vj
			}
		}
		return all[i].PoolID < all[j].PoolID
	})
	if f.Offset >= len(all) {
		return []pool.Pool{}, nil
	}
	all = all[f.Offset:]
	if len(all) > f.Limit {
		all = all[:f.Limit]
	}
	return all, nil
}

func matchStatus(s pool.Status, want []pool.Status) bool {
	if len(want) == 0 {
		return true
	}
	for _, w := range want {
		if s == w {
			return true
		}
	}
	return false
}

// volume saturates instead of wrapping; it only drives ordering.
func volume(p pool.Pool) uint64 {
	v, err := p.Total()
	if err != nil {
		return ^uint64(0)
	}
	return v
}

// Atomic holds the pool's key lock for the whole unit. Writes are staged on the tx and
// applied only after the ledger accepts every posting.
func (s *Store) Atomic(ctx context.Context, poolID uint64, fn func(tx pool.Tx) error) error {
	unlock := s.locks.Lock(lockKey(poolID))
	defer unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.GetPool(ctx, poolID)
	if err != nil {
		return err
	}
	tx := &memTx{store: s, pool: p, entries: map[pool.Principal]pool.Entry{}}
	if err := fn(tx); err != nil {
		return err
	}
	if err := s.book.Apply(tx.postings...); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tx.poolDirty {
		s.pools[poolID] = tx.pool
	}
	for user, e := range tx.entries {
		if _, ok := s.entries[poolID][user]; !ok {
			s.order[poolID] = append(s.order[poolID], user)
		}
		s.entries[poolID][user] = e
	}
	return nil
}

type memTx struct {
	store     *Store
	pool      pool.Pool
	poolDirty bool
	entries   map[pool.Principal]pool.Entry
	postings  []ledger.Posting
}

func (t *memTx) Pool() (pool.Pool, error) {
	return t.pool, nil
}

func (t *memTx) Entry(user pool.Principal) (pool.Entry, bool, error) {
	if e, ok := t.entries[user]; ok {
		return e, true, nil
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	e, ok := t.store.entries[t.pool.PoolID][user]
	return e, ok, nil
}

func (t *memTx) PutPool(p pool.Pool) error {
	if p.PoolID != t.pool.PoolID || p.Version != t.pool.Version+1 {
		return pool.ErrConflict
	}
	t.pool = p
	t.poolDirty = true
	return nil
}

func (t *memTx) PutEntry(e pool.Entry) error {
	if e.PoolID != t.pool.PoolID {
		return pool.ErrConflict
	}
	cur, found, _ := t.Entry(e.User)
	var want uint64 = 1
	if found {
		want = cur.Version + 1
	}
	if e.Version != want {
		return pool.ErrConflict
	}
	t.entries[e.User] = e
	return nil
}

func (t *memTx) Post(p ledger.Posting) error {
	if err := p.Validate(); err != nil {
		return err
	}
	t.postings = append(t.postings, p)
	return nil
}

// Funds exposes the book through ledger.Funds.
type Funds struct {
	Book *ledger.Book
}

func (f Funds) Deposit(_ context.Context, a ledger.Account, amount uint64, refID string) (uint64, error) {
	return f.Book.Deposit(a, amount, refID)
}

func (f Funds) Balance(_ context.Context, a ledger.Account) (uint64, error) {
	return f.Book.Balance(a), nil
}

func (f Funds) Records(_ context.Context, a ledger.Account, limit, offset int) ([]ledger.Record, error) {
	return f.Book.Records(a, limit, offset), nil
}

var (
	_ pool.Store   = (*Store)(nil)
	_ ledger.Funds = Funds{}
)
