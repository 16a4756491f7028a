package redis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"prediction-pool/internal/config"
	"prediction-pool/internal/notify"
	"prediction-pool/internal/pool"
)

func openClient(t *testing.T) *Client {
	t.Helper()
	cfg, err := config.LoadTestRedis()
	if err != nil {
		t.Skipf("skip test redis: %v", err)
	}
	c, err := New(context.Background(), ClientConfig{Addr: cfg.Addr, DB: 15})
	if err != nil {
		t.Fatalf("connect redis: %v", err)
	}
	t.Cleanup(func() {
		_ = c.Underlying().FlushDB(context.Background()).Err()
		_ = c.Close()
	})
	return c
}

func TestLockManagerExcludesSecondHolder(t *testing.T) {
	c := openClient(t)
	lm := NewLockManager(c)
	ctx := context.Background()

	release, err := lm.Acquire(ctx, "pool:lock-sweep", time.Minute)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if _, err := lm.Acquire(ctx, "pool:lock-sweep", time.Minute); !errors.Is(err, ErrLockHeld) {
		t.Fatalf("expected ErrLockHeld, got %v", err)
	}
	release()
	release()
	again, err := lm.Acquire(ctx, "pool:lock-sweep", time.Minute)
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	again()
}

func TestPoolCacheRoundTripAndInvalidate(t *testing.T) {
	c := openClient(t)
	pc := NewPoolCache(c, time.Minute)
	ctx := context.Background()

	if _, ok, err := pc.Get(ctx, 5); ok || err != nil {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
	p := pool.Pool{Authority: "oracle", PoolID: 5, StartTS: 1, LockTS: 2, EndTS: 3, Status: pool.StatusLocked, TotalOver: 10, Version: 3}
	if err := pc.Set(ctx, p); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, ok, err := pc.Get(ctx, 5)
	if err != nil || !ok || got != p {
		t.Fatalf("unexpected cached pool %+v ok=%v err=%v", got, ok, err)
	}
	if err := (Invalidator{Cache: pc}).Send(ctx, notify.Envelope{PoolID: 5}); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, ok, _ := pc.Get(ctx, 5); ok {
		t.Fatal("expected miss after invalidation")
	}
}

func TestPublisherPublishesEnvelope(t *testing.T) {
	c := openClient(t)
	ctx := context.Background()
	sub := c.Underlying().Subscribe(ctx, "pool-events-test")
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	env := notify.NewEnvelope(pool.Event{Type: pool.EventPoolLocked, PoolID: 8}, time.Now())
	if err := NewPublisher(c, "pool-events-test").Send(ctx, env); err != nil {
		t.Fatalf("publish: %v", err)
	}
	select {
	case msg := <-sub.Channel():
		var got notify.Envelope
		if err := json.Unmarshal([]byte(msg.Payload), &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.EventID != env.EventID || got.PoolID != 8 {
			t.Fatalf("unexpected envelope %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}
