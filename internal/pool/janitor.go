package pool

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
)

// LeaderLock elects a single sweeper across replicas. Acquire returns an error when
// another holder owns key.
type LeaderLock interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

const (
	sweepLockKey  = "pool:lock-sweep"
	sweepPageSize = 200
)

// Janitor locks Open pools whose lock time has passed, acting as Operator. Only pools
// whose authority accepts Operator are touched.
type Janitor struct {
	Service  *Service
	Operator Principal
	Leader   LeaderLock
	Interval time.Duration

	// LockTTL bounds how long a crashed leader blocks the others; defaults to Interval.
	LockTTL time.Duration
}

func NewJanitor(svc *Service, operator Principal, interval time.Duration) *Janitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Janitor{Service: svc, Operator: operator, Interval: interval}
}

// Run sweeps every Interval until ctx is done.
func (j *Janitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n, err := j.Sweep(ctx); err != nil {
				log.Error().Err(err).Msg("lock sweep failed")
			} else if n > 0 {
				log.Info().Int("locked", n).Msg("lock sweep")
			}
		}
	}
}

// Sweep runs one pass and returns how many pools it locked.
func (j *Janitor) Sweep(ctx context.Context) (int, error) {
	if j.Operator == "" {
		return 0, nil
	}
	if j.Leader != nil {
		ttl := j.LockTTL
		if ttl <= 0 {
			ttl = j.Interval
		}
		release, err := j.Leader.Acquire(ctx, sweepLockKey, ttl)
		if err != nil {
			log.Debug().Err(err).Msg("lock sweep skipped")
			return 0, nil
		}
		defer release()
	}
	now := j.Service.Now()
	var due []uint64
	for offset := 0; ; offset += sweepPageSize {
		page, err := j.Service.Pools(ctx, PoolFilter{Statuses: []Status{StatusOpen}, Limit: sweepPageSize, Offset: offset})
		if err != nil {
			return 0, err
		}
		for _, p := range page {
			if EffectiveStatus(p, now) == StatusLocked && j.Service.Authorize(j.Operator, p.Authority) {
				due = append(due, p.PoolID)
			}
		}
		if len(page) < sweepPageSize {
			break
		}
	}
	locked := 0
	for _, id := range due {
		_, err := j.Service.LockPool(ctx, id, j.Operator)
		switch {
		case err == nil:
			locked++
		case errors.Is(err, ErrPoolNotOpen):
			// resolved or locked by someone else since the listing
		default:
			log.Warn().Err(err).Uint64("pool_id", id).Msg("auto lock failed")
		}
	}
	return locked, nil
}
