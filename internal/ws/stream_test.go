package ws

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"prediction-pool/internal/notify"
	"prediction-pool/internal/pool"

	"github.com/gorilla/websocket"
)

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) notify.Envelope {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env notify.Envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read: %v", err)
	}
	return env
}

func TestStreamReplaysThenDeliversLive(t *testing.T) {
	buf := notify.NewBuffer(10)
	now := time.Unix(1_700_000_000, 0)
	first := notify.NewEnvelope(pool.Event{Type: pool.EventPoolCreated, PoolID: 1}, now)
	second := notify.NewEnvelope(pool.Event{Type: pool.EventPoolCreated, PoolID: 2}, now)
	buf.Append(first)
	buf.Append(second)

	srv := httptest.NewServer(Handler(buf))
	defer srv.Close()

	conn := dial(t, srv, "?last_event_id="+first.EventID)
	if got := readEnvelope(t, conn); got.EventID != second.EventID {
		t.Fatalf("expected replay of %s, got %s", second.EventID, got.EventID)
	}

	live := notify.NewEnvelope(pool.Event{Type: pool.EventPoolLocked, PoolID: 1}, now.Add(time.Second))
	buf.Append(live)
	if got := readEnvelope(t, conn); got.EventID != live.EventID || got.Event != pool.EventPoolLocked {
		t.Fatalf("unexpected live envelope %+v", got)
	}
}

func TestStreamHonorsSubscriptions(t *testing.T) {
	buf := notify.NewBuffer(10)
	srv := httptest.NewServer(Handler(buf))
	defer srv.Close()

	conn := dial(t, srv, "")
	if err := conn.WriteJSON(ControlMessage{Action: "subscribe", PoolIDs: []uint64{7}}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	// the control message races the first append; give the read pump a moment
	time.Sleep(50 * time.Millisecond)

	now := time.Unix(1_700_000_000, 0)
	buf.Append(notify.NewEnvelope(pool.Event{Type: pool.EventPoolCreated, PoolID: 3}, now))
	want := notify.NewEnvelope(pool.Event{Type: pool.EventPoolCreated, PoolID: 7}, now)
	buf.Append(want)

	if got := readEnvelope(t, conn); got.PoolID != 7 || got.EventID != want.EventID {
		t.Fatalf("expected only pool 7, got %+v", got)
	}
}

func TestStreamDeliversLiveEnvelopesOutOfIDOrder(t *testing.T) {
	buf := notify.NewBuffer(10)
	now := time.Unix(1_700_000_000, 0)
	seed := notify.NewEnvelope(pool.Event{Type: pool.EventPoolCreated, PoolID: 1}, now)
	buf.Append(seed)

	srv := httptest.NewServer(Handler(buf))
	defer srv.Close()

	conn := dial(t, srv, "")
	if got := readEnvelope(t, conn); got.EventID != seed.EventID {
		t.Fatalf("expected replay of %s, got %s", seed.EventID, got.EventID)
	}

	older := notify.NewEnvelope(pool.Event{Type: pool.EventEntryCreated, PoolID: 1}, now.Add(time.Second))
	newer := notify.NewEnvelope(pool.Event{Type: pool.EventEntryCreated, PoolID: 1}, now.Add(2*time.Second))
	buf.Append(newer)
	buf.Append(older)
	for _, want := range []string{newer.EventID, older.EventID} {
		if got := readEnvelope(t, conn); got.EventID != want {
			t.Fatalf("expected %s, got %s", want, got.EventID)
		}
	}
}
