package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"prediction-pool/internal/pool"
)

func TestWebhookSinkSignsPayload(t *testing.T) {
	var (
		gotSig  string
		gotBody []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get("X-Pool-Signature")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewWebhookSink(WebhookConfig{URL: srv.URL, Secret: "s3cret"})
	env := NewEnvelope(pool.Event{Type: pool.EventPoolLocked, PoolID: 4, Data: pool.PoolLockedData{Pool: 4}}, time.Unix(100, 0))
	if err := sink.Send(context.Background(), env); err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotSig != Sign("s3cret", gotBody) {
		t.Fatalf("signature %q does not match body", gotSig)
	}
	var decoded Envelope
	if err := json.Unmarshal(gotBody, &decoded); err != nil || decoded.EventID != env.EventID || decoded.PoolID != 4 {
		t.Fatalf("unexpected body %s err=%v", gotBody, err)
	}
}

func TestWebhookSinkOpensCircuit(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	now := time.Unix(1_000, 0)
	sink := NewWebhookSink(WebhookConfig{URL: srv.URL, FailureThreshold: 2, CircuitOpenDuration: time.Minute})
	sink.now = func() time.Time { return now }
	env := NewEnvelope(pool.Event{Type: pool.EventPoolCreated, PoolID: 1}, now)

	for i := 0; i < 2; i++ {
		if err := sink.Send(context.Background(), env); err == nil {
			t.Fatal("expected upstream failure")
		}
	}
	if err := sink.Send(context.Background(), env); !errors.Is(err, errCircuitOpen) {
		t.Fatalf("expected open circuit, got %v", err)
	}
	if hits.Load() != 2 {
		t.Fatalf("open circuit still hit upstream: %d", hits.Load())
	}
	now = now.Add(2 * time.Minute)
	if err := sink.Send(context.Background(), env); err == nil || errors.Is(err, errCircuitOpen) {
		t.Fatalf("expected half-open attempt to reach upstream, got %v", err)
	}
	if hits.Load() != 3 {
		t.Fatalf("expected third upstream hit, got %d", hits.Load())
	}
}
