package pool_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"prediction-pool/internal/pool"
)

type fakeLeader struct {
	held bool
	ttl  time.Duration
	n    int
}

func (l *fakeLeader) Acquire(_ context.Context, _ string, ttl time.Duration) (func(), error) {
	l.n++
	l.ttl = ttl
	if l.held {
		return nil, errors.New("held")
	}
	return func() {}, nil
}

func TestJanitorLocksDueOperatorPools(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.create(t, 1)
	h.create(t, 2)
	if _, err := h.svc.CreatePool(ctx, "someone", pool.CreateParams{PoolID: 3, StartTS: 0, LockTS: 100, EndTS: 200}); err != nil {
		t.Fatal(err)
	}
	if _, err := h.svc.CreatePool(ctx, "oracle", pool.CreateParams{PoolID: 4, StartTS: 0, LockTS: 500, EndTS: 600}); err != nil {
		t.Fatal(err)
	}

	leader := &fakeLeader{}
	j := pool.NewJanitor(h.svc, "oracle", time.Minute)
	j.Leader = leader
	j.LockTTL = 5 * time.Second

	h.at(150)
	n, err := j.Sweep(ctx)
	if err != nil || n != 2 {
		t.Fatalf("sweep locked %d err=%v", n, err)
	}
	if leader.ttl != 5*time.Second {
		t.Fatalf("leader ttl %s", leader.ttl)
	}
	for id, want := range map[uint64]pool.Status{1: pool.StatusLocked, 2: pool.StatusLocked, 3: pool.StatusOpen, 4: pool.StatusOpen} {
		p, _ := h.svc.Pool(ctx, id)
		if p.Status != want {
			t.Fatalf("pool %d status %s, want %s", id, p.Status, want)
		}
	}
	if n, _ := j.Sweep(ctx); n != 0 {
		t.Fatalf("second sweep locked %d", n)
	}
}

func TestJanitorSkipsWithoutLeadership(t *testing.T) {
	h := newHarness(t)
	h.create(t, 1)
	h.at(150)
	j := pool.NewJanitor(h.svc, "oracle", time.Minute)
	j.Leader = &fakeLeader{held: true}
	if n, err := j.Sweep(context.Background()); err != nil || n != 0 {
		t.Fatalf("sweep without leadership locked %d err=%v", n, err)
	}
	p, _ := h.svc.Pool(context.Background(), 1)
	if p.Status != pool.StatusOpen {
		t.Fatalf("pool locked without leadership")
	}
}

func TestJanitorRunStopsWithContext(t *testing.T) {
	h := newHarness(t)
	j := pool.NewJanitor(h.svc, "", 10*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := j.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
}
