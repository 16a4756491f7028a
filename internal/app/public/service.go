package public

import (
	"context"
	"errors"
	"strings"

	"prediction-pool/internal/pool"

	"github.com/rs/zerolog/log"
)

// PoolCache is an optional read-through cache for single pool lookups.
type PoolCache interface {
	Get(ctx context.Context, poolID uint64) (pool.Pool, bool, error)
	Set(ctx context.Context, p pool.Pool) error
}

type Service struct {
	pools *pool.Service
	cache PoolCache
}

const maxPageSize = 200

func NewService(pools *pool.Service, cache PoolCache) *Service {
	return &Service{pools: pools, cache: cache}
}

func (s *Service) item(p pool.Pool) PoolItem {
	total, err := p.Total()
	if err != nil {
		total = ^uint64(0)
	}
	return PoolItem{Pool: p, EffectiveStatus: pool.EffectiveStatus(p, s.pools.Now()), TotalVolume: total}
}

func (s *Service) Pool(ctx context.Context, poolID uint64) (*PoolItem, error) {
	if s.cache != nil {
		p, ok, err := s.cache.Get(ctx, poolID)
		if err != nil {
			log.Warn().Err(err).Uint64("pool_id", poolID).Msg("pool cache read failed")
		} else if ok {
			it := s.item(p)
			return &it, nil
		}
	}
	p, err := s.pools.Pool(ctx, poolID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, p); err != nil {
			log.Warn().Err(err).Uint64("pool_id", poolID).Msg("pool cache write failed")
		}
	}
	it := s.item(p)
	return &it, nil
}

// Pools lists pools by volume, largest first. statuses is a comma separated list of
// stored statuses; empty means all.
func (s *Service) Pools(ctx context.Context, statuses string, limit, offset int) (*PoolsResponse, error) {
	f := pool.PoolFilter{ByVolume: true, Limit: clampLimit(limit), Offset: offset}
	for _, raw := range strings.Split(statuses, ",") {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		st, err := pool.ParseStatus(raw)
		if err != nil {
			return nil, ErrInvalidStatus
		}
		f.Statuses = append(f.Statuses, st)
	}
	items, err := s.pools.Pools(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]PoolItem, 0, len(items))
	for _, p := range items {
		out = append(out, s.item(p))
	}
	return &PoolsResponse{Items: out, Limit: f.Limit, Offset: offset}, nil
}

func (s *Service) Entries(ctx context.Context, poolID uint64, limit, offset int) (*EntriesResponse, error) {
	limit = clampLimit(limit)
	items, err := s.pools.Entries(ctx, poolID, limit, offset)
	if err != nil {
		return nil, err
	}
	return &EntriesResponse{Items: items, Limit: limit, Offset: offset}, nil
}

func (s *Service) Entry(ctx context.Context, poolID uint64, user pool.Principal) (*pool.Entry, error) {
	if err := user.Validate(); err != nil {
		return nil, err
	}
	e, err := s.pools.Entry(ctx, poolID, user)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Quote reports what a claim would pay now. Conditions that would make the claim fail
// are reported in Reason instead of as errors; missing records still error.
func (s *Service) Quote(ctx context.Context, poolID uint64, user pool.Principal) (*QuoteResponse, error) {
	e, err := s.Entry(ctx, poolID, user)
	if err != nil {
		return nil, err
	}
	out := &QuoteResponse{PoolID: poolID, User: user, Side: e.Side, Amount: e.Amount, Claimed: e.Claimed}
	payout, err := s.pools.Quote(ctx, poolID, user)
	switch {
	case err == nil:
		out.Claimable = true
		out.Payout = payout
	case errors.Is(err, pool.ErrAlreadyClaimed), errors.Is(err, pool.ErrPoolNotResolved), errors.Is(err, pool.ErrNotWinner):
		out.Reason = err.Error()
	default:
		return nil, err
	}
	return out, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}
