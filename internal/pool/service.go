package pool

import (
	"context"
	"time"

	"prediction-pool/internal/ledger"

	"github.com/rs/zerolog/log"
)

// Service runs the pool operations against a Store. Every operation is one Store.Atomic
// unit; events go to the Notifier only after the unit commits.
type Service struct {
	Store     Store
	Notifier  Notifier
	Authorize Authorizer
	Now       func() time.Time
}

func NewService(st Store, n Notifier) *Service {
	if n == nil {
		n = nopNotifier{}
	}
	return &Service{
		Store:     st,
		Notifier:  n,
		Authorize: SamePrincipal,
		Now:       time.Now,
	}
}

type StakeReceipt struct {
	Entry Entry  `json:"entry"`
	Fee   uint64 `json:"fee"`
	Net   uint64 `json:"net"`
}

type ClaimReceipt struct {
	Entry  Entry  `json:"entry"`
	Payout uint64 `json:"payout"`
}

func (s *Service) now() int64 {
	return s.Now().Unix()
}

// CreatePool opens a new pool with caller as its authority.
func (s *Service) CreatePool(ctx context.Context, caller Principal, c CreateParams) (Pool, error) {
	p, err := NewPool(caller, c)
	if err != nil {
		return Pool{}, err
	}
	if err := s.Store.InsertPool(ctx, p); err != nil {
		return Pool{}, err
	}
	log.Info().Uint64("pool_id", p.PoolID).Str("authority", string(caller)).
		Int64("lock_ts", p.LockTS).Int64("end_ts", p.EndTS).Msg("pool created")
	s.Notifier.Notify(ctx, Event{Type: EventPoolCreated, PoolID: p.PoolID, Data: PoolCreatedData{
		Pool:      p.PoolID,
		Authority: p.Authority,
		StartTS:   p.StartTS,
		LockTS:    p.LockTS,
		EndTS:     p.EndTS,
		LineBps:   p.LineBps,
		AICommit:  p.AICommit,
	}})
	return p, nil
}

// EnterPool stakes amount for participant. The gross amount moves into custody; the fee
// stays in custody as part of the pool while only the net amount counts toward totals.
func (s *Service) EnterPool(ctx context.Context, poolID uint64, participant Principal, amount uint64, side Side) (StakeReceipt, error) {
	var res stakeResult
	err := s.Store.Atomic(ctx, poolID, func(tx Tx) error {
		p, err := tx.Pool()
		if err != nil {
			return err
		}
		e, found, err := tx.Entry(participant)
		if err != nil {
			return err
		}
		res, err = applyStake(p, e, found, participant, amount, side, s.now())
		if err != nil {
			return err
		}
		if err := tx.Post(ledger.Stake(poolID, string(participant), amount)); err != nil {
			return err
		}
		if err := tx.PutPool(res.pool); err != nil {
			return err
		}
		return tx.PutEntry(res.entry)
	})
	if err != nil {
		return StakeReceipt{}, err
	}
	if res.entry.Side != side {
		log.Warn().Uint64("pool_id", poolID).Str("user", string(participant)).
			Str("requested_side", side.String()).Str("entry_side", res.entry.Side.String()).
			Msg("stake credited to existing entry side")
	}
	log.Debug().Uint64("pool_id", poolID).Str("user", string(participant)).
		Uint64("net", res.net).Uint64("fee", res.fee).Msg("stake accepted")
	s.Notifier.Notify(ctx, Event{Type: EventEntryCreated, PoolID: poolID, Data: EntryCreatedData{
		Pool:   poolID,
		User:   participant,
		Side:   res.entry.Side,
		Amount: res.net,
		Fee:    res.fee,
	}})
	return StakeReceipt{Entry: res.entry, Fee: res.fee, Net: res.net}, nil
}

// LockPool closes a pool to new entries once lock_ts has passed.
func (s *Service) LockPool(ctx context.Context, poolID uint64, caller Principal) (Pool, error) {
	var out Pool
	err := s.Store.Atomic(ctx, poolID, func(tx Tx) error {
		p, err := tx.Pool()
		if err != nil {
			return err
		}
		out, err = lockPool(p, s.now(), caller, s.Authorize)
		if err != nil {
			return err
		}
		return tx.PutPool(out)
	})
	if err != nil {
		return Pool{}, err
	}
	log.Info().Uint64("pool_id", poolID).Msg("pool locked")
	s.Notifier.Notify(ctx, Event{Type: EventPoolLocked, PoolID: poolID, Data: PoolLockedData{Pool: poolID}})
	return out, nil
}

// ResolvePool records the outcome. No funds move here; each winner claims separately.
func (s *Service) ResolvePool(ctx context.Context, poolID uint64, caller Principal, winner Winner, proof Hash32) (Pool, error) {
	var out Pool
	err := s.Store.Atomic(ctx, poolID, func(tx Tx) error {
		p, err := tx.Pool()
		if err != nil {
			return err
		}
		out, err = resolvePool(p, s.now(), caller, s.Authorize, winner, proof)
		if err != nil {
			return err
		}
		return tx.PutPool(out)
	})
	if err != nil {
		return Pool{}, err
	}
	log.Info().Uint64("pool_id", poolID).Str("winner", winner.String()).
		Uint64("total_over", out.TotalOver).Uint64("total_under", out.TotalUnder).Msg("pool resolved")
	s.Notifier.Notify(ctx, Event{Type: EventPoolResolved, PoolID: poolID, Data: PoolResolvedData{
		Pool:      poolID,
		Winner:    winner,
		ProofHash: proof,
	}})
	return out, nil
}

// ClaimWinnings pays owner's entry once. caller must be authorized as the owner.
func (s *Service) ClaimWinnings(ctx context.Context, poolID uint64, owner, caller Principal) (ClaimReceipt, error) {
	var out ClaimReceipt
	err := s.Store.Atomic(ctx, poolID, func(tx Tx) error {
		p, err := tx.Pool()
		if err != nil {
			return err
		}
		if p.Status != StatusResolved {
			return ErrPoolNotResolved
		}
		e, found, err := tx.Entry(owner)
		if err != nil {
			return err
		}
		if !found {
			return ErrEntryNotFound
		}
		claimed, payout, err := applyClaim(p, e, caller, s.Authorize)
		if err != nil {
			return err
		}
		if payout > 0 {
			if err := tx.Post(ledger.Payout(poolID, string(claimed.User), payout)); err != nil {
				return err
			}
		}
		if err := tx.PutEntry(claimed); err != nil {
			return err
		}
		out = ClaimReceipt{Entry: claimed, Payout: payout}
		return nil
	})
	if err != nil {
		return ClaimReceipt{}, err
	}
	log.Info().Uint64("pool_id", poolID).Str("user", string(owner)).Uint64("payout", out.Payout).Msg("winnings claimed")
	s.Notifier.Notify(ctx, Event{Type: EventWinningsClaimed, PoolID: poolID, Data: WinningsClaimedData{
		Pool:   poolID,
		User:   owner,
		Amount: out.Payout,
	}})
	return out, nil
}

// Quote previews what ClaimWinnings would pay owner right now, without claiming.
func (s *Service) Quote(ctx context.Context, poolID uint64, owner Principal) (uint64, error) {
	p, err := s.Store.GetPool(ctx, poolID)
	if err != nil {
		return 0, err
	}
	e, err := s.Store.GetEntry(ctx, poolID, owner)
	if err != nil {
		return 0, err
	}
	if e.Claimed {
		return 0, ErrAlreadyClaimed
	}
	return Payout(p, e)
}

func (s *Service) Pool(ctx context.Context, poolID uint64) (Pool, error) {
	return s.Store.GetPool(ctx, poolID)
}

func (s *Service) Entry(ctx context.Context, poolID uint64, user Principal) (Entry, error) {
	return s.Store.GetEntry(ctx, poolID, user)
}

func (s *Service) Entries(ctx context.Context, poolID uint64, limit, offset int) ([]Entry, error) {
	if _, err := s.Store.GetPool(ctx, poolID); err != nil {
		return nil, err
	}
	return s.Store.ListEntries(ctx, poolID, limit, offset)
}

func (s *Service) Pools(ctx context.Context, f PoolFilter) ([]Pool, error) {
	return s.Store.ListPools(ctx, f)
}

// EffectiveStatus reports how a pool behaves at now: an Open pool past its lock time
// no longer takes entries and reads as Locked until someone locks or resolves it.
func EffectiveStatus(p Pool, now time.Time) Status {
	if p.Status == StatusOpen && now.Unix() >= p.LockTS {
		return StatusLocked
	}
	return p.Status
}
