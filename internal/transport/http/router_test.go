package httptransport

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	apppublic "prediction-pool/internal/app/public"
	"prediction-pool/internal/ledger"
	"prediction-pool/internal/pool"
	"prediction-pool/internal/store/memstore"
)

const adminKey = "admin-secret"

type testServer struct {
	router http.Handler
	book   *ledger.Book
	now    time.Time
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{book: ledger.NewBook(), now: time.Unix(50, 0)}
	for _, u := range []string{"alice", "bob"} {
		if _, err := ts.book.Deposit(ledger.UserAccount(u), 10_000, "seed"); err != nil {
			t.Fatal(err)
		}
	}
	svc := pool.NewService(memstore.New(ts.book), nil)
	svc.Now = func() time.Time { return ts.now }
	ts.router = NewRouter(RouterDeps{
		Pools:  svc,
		Public: apppublic.NewService(svc, nil),
		Funds:  memstore.Funds{Book: ts.book},
		Keys: NewKeyDirectory(map[string]string{
			"k-oracle": "oracle",
			"k-alice":  "alice",
			"k-bob":    "bob",
		}),
		AdminAPIKey: adminKey,
	})
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, key, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("expected %d, got %d body=%s", want, w.Code, w.Body.String())
	}
}

func expectError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	expectStatus(t, w, status)
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body["error"] != code {
		t.Fatalf("expected error %q, got %v", code, body["error"])
	}
}

const createBody = `{"pool_id":7,"start_ts":0,"lock_ts":100,"end_ts":200,"line_bps":250}`

func TestPoolLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	expectStatus(t, ts.do(t, http.MethodPost, "/api/pools", "k-oracle", createBody), http.StatusCreated)

	w := ts.do(t, http.MethodPost, "/api/pools/7/entries", "k-alice", `{"amount":1000,"side":"over"}`)
	expectStatus(t, w, http.StatusOK)
	var receipt pool.StakeReceipt
	if err := json.Unmarshal(w.Body.Bytes(), &receipt); err != nil {
		t.Fatalf("decode receipt: %v", err)
	}
	if receipt.Fee != 7 || receipt.Net != 993 || receipt.Entry.Side != pool.SideOver {
		t.Fatalf("unexpected receipt %+v", receipt)
	}
	expectStatus(t, ts.do(t, http.MethodPost, "/api/pools/7/entries", "k-bob", `{"amount":1000,"side":"under"}`), http.StatusOK)

	ts.now = time.Unix(150, 0)
	expectError(t, ts.do(t, http.MethodPost, "/api/pools/7/entries", "k-bob", `{"amount":10,"side":"under"}`),
		http.StatusConflict, "pool_locked")
	expectError(t, ts.do(t, http.MethodPost, "/api/pools/7/lock", "k-alice", ""), http.StatusForbidden, "unauthorized")
	expectStatus(t, ts.do(t, http.MethodPost, "/api/pools/7/lock", "k-oracle", ""), http.StatusOK)

	expectError(t, ts.do(t, http.MethodPost, "/api/pools/7/resolve", "k-oracle", `{"winner":"over"}`),
		http.StatusConflict, "pool_not_ended")
	ts.now = time.Unix(250, 0)
	proof := strings.Repeat("ab", 32)
	expectStatus(t, ts.do(t, http.MethodPost, "/api/pools/7/resolve", "k-oracle",
		`{"winner":"over","proof_hash":"`+proof+`"}`), http.StatusOK)

	w = ts.do(t, http.MethodGet, "/api/pools/7/entries/alice/quote", "", "")
	expectStatus(t, w, http.StatusOK)
	var quote apppublic.QuoteResponse
	if err := json.Unmarshal(w.Body.Bytes(), &quote); err != nil {
		t.Fatalf("decode quote: %v", err)
	}
	if !quote.Claimable || quote.Payout != 1986 {
		t.Fatalf("unexpected quote %+v", quote)
	}

	expectError(t, ts.do(t, http.MethodPost, "/api/pools/7/claim", "k-bob", ""), http.StatusConflict, "not_winner")
	expectError(t, ts.do(t, http.MethodPost, "/api/pools/7/claim", "k-bob", `{"owner":"alice"}`),
		http.StatusForbidden, "unauthorized")
	w = ts.do(t, http.MethodPost, "/api/pools/7/claim", "k-alice", "")
	expectStatus(t, w, http.StatusOK)
	var claim pool.ClaimReceipt
	if err := json.Unmarshal(w.Body.Bytes(), &claim); err != nil {
		t.Fatalf("decode claim: %v", err)
	}
	if claim.Payout != 1986 || !claim.Entry.Claimed {
		t.Fatalf("unexpected claim %+v", claim)
	}
	expectError(t, ts.do(t, http.MethodPost, "/api/pools/7/claim", "k-alice", ""), http.StatusConflict, "already_claimed")

	w = ts.do(t, http.MethodGet, "/api/me/balance", "k-alice", "")
	expectStatus(t, w, http.StatusOK)
	var bal struct {
		Balance uint64 `json:"balance"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &bal); err != nil {
		t.Fatalf("decode balance: %v", err)
	}
	if bal.Balance != 10_986 {
		t.Fatalf("expected alice balance 10986, got %d", bal.Balance)
	}
	if got := ts.book.Balance(ledger.CustodyAccount(7)); got != 14 {
		t.Fatalf("expected custody to keep 14 in fees, got %d", got)
	}
}

func TestMutationsRequirePrincipal(t *testing.T) {
	ts := newTestServer(t)
	cases := []struct {
		name string
		key  string
	}{
		{"missing key", ""},
		{"unknown key", "k-mallory"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			expectError(t, ts.do(t, http.MethodPost, "/api/pools", tc.key, createBody), http.StatusUnauthorized, "unauthorized")
		})
	}
}

func TestRequestValidation(t *testing.T) {
	ts := newTestServer(t)
	expectStatus(t, ts.do(t, http.MethodPost, "/api/pools", "k-oracle", createBody), http.StatusCreated)

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"bad pool id", http.MethodGet, "/api/pools/abc", "", http.StatusBadRequest, "invalid_pool_id"},
		{"unknown pool", http.MethodGet, "/api/pools/99", "", http.StatusNotFound, "pool_not_found"},
		{"unknown entry", http.MethodGet, "/api/pools/7/entries/zed", "", http.StatusNotFound, "entry_not_found"},
		{"duplicate pool", http.MethodPost, "/api/pools", createBody, http.StatusBadRequest, "pool_exists"},
		{"bad timestamps", http.MethodPost, "/api/pools", `{"pool_id":8,"start_ts":5,"lock_ts":5,"end_ts":9}`, http.StatusBadRequest, "invalid_timestamps"},
		{"bad side", http.MethodPost, "/api/pools/7/entries", `{"amount":5,"side":"sideways"}`, http.StatusBadRequest, "invalid_side"},
		{"missing side", http.MethodPost, "/api/pools/7/entries", `{"amount":1000}`, http.StatusBadRequest, "invalid_side"},
		{"zero amount", http.MethodPost, "/api/pools/7/entries", `{"amount":0,"side":"over"}`, http.StatusBadRequest, "invalid_amount"},
		{"insufficient funds", http.MethodPost, "/api/pools/7/entries", `{"amount":20000,"side":"over"}`, http.StatusPaymentRequired, "insufficient_funds"},
		{"bad status filter", http.MethodGet, "/api/pools?status=bogus", "", http.StatusBadRequest, "invalid_status"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			expectError(t, ts.do(t, tc.method, tc.path, "k-alice", tc.body), tc.status, tc.code)
		})
	}
}

func TestPublicListings(t *testing.T) {
	ts := newTestServer(t)
	expectStatus(t, ts.do(t, http.MethodPost, "/api/pools", "k-oracle", createBody), http.StatusCreated)
	expectStatus(t, ts.do(t, http.MethodPost, "/api/pools", "k-oracle",
		`{"pool_id":8,"start_ts":0,"lock_ts":40,"end_ts":90}`), http.StatusCreated)
	expectStatus(t, ts.do(t, http.MethodPost, "/api/pools/7/entries", "k-alice", `{"amount":400,"side":"under"}`), http.StatusOK)

	w := ts.do(t, http.MethodGet, "/api/pools?status=open", "", "")
	expectStatus(t, w, http.StatusOK)
	var pools apppublic.PoolsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &pools); err != nil {
		t.Fatalf("decode pools: %v", err)
	}
	if len(pools.Items) != 2 || pools.Items[0].PoolID != 7 || pools.Items[0].TotalVolume != 397 {
		t.Fatalf("unexpected volume order %+v", pools.Items)
	}
	if pools.Items[1].Status != pool.StatusOpen || pools.Items[1].EffectiveStatus != pool.StatusLocked {
		t.Fatalf("pool past lock_ts should read as locked: %+v", pools.Items[1])
	}

	w = ts.do(t, http.MethodGet, "/api/pools?status=resolved", "", "")
	expectStatus(t, w, http.StatusOK)
	if err := json.Unmarshal(w.Body.Bytes(), &pools); err != nil {
		t.Fatalf("decode pools: %v", err)
	}
	if len(pools.Items) != 0 {
		t.Fatalf("expected no resolved pools, got %+v", pools.Items)
	}

	w = ts.do(t, http.MethodGet, "/api/pools/7/entries?limit=10", "", "")
	expectStatus(t, w, http.StatusOK)
	var entries apppublic.EntriesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode entries: %v", err)
	}
	if len(entries.Items) != 1 || entries.Items[0].User != "alice" || entries.Limit != 10 {
		t.Fatalf("unexpected entries %+v", entries)
	}
}

func TestAdminRoutes(t *testing.T) {
	ts := newTestServer(t)

	expectError(t, ts.do(t, http.MethodPost, "/api/topup", "", `{"principal":"carol","amount":50}`),
		http.StatusUnauthorized, "unauthorized")
	expectError(t, ts.do(t, http.MethodPost, "/api/topup", adminKey, `{"principal":"","amount":50}`),
		http.StatusBadRequest, "invalid_request")

	w := ts.do(t, http.MethodPost, "/api/topup", adminKey, `{"principal":"carol","amount":50}`)
	expectStatus(t, w, http.StatusOK)
	if got := ts.book.Balance(ledger.UserAccount("carol")); got != 50 {
		t.Fatalf("expected carol balance 50, got %d", got)
	}

	w = ts.do(t, http.MethodGet, "/api/ledger?principal=carol", adminKey, "")
	expectStatus(t, w, http.StatusOK)
	var resp struct {
		Items []ledger.Record `json:"items"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode ledger: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].Amount != 50 || resp.Items[0].Memo != ledger.MemoDeposit {
		t.Fatalf("unexpected ledger %+v", resp.Items)
	}
	expectError(t, ts.do(t, http.MethodGet, "/api/ledger?pool_id=x", adminKey, ""),
		http.StatusBadRequest, "invalid_pool_id")
}

func TestAdminRoutesDisabledWithoutKey(t *testing.T) {
	svc := pool.NewService(memstore.New(nil), nil)
	r := NewRouter(RouterDeps{Pools: svc, Public: apppublic.NewService(svc, nil), Funds: memstore.Funds{Book: ledger.NewBook()}})
	req := httptest.NewRequest(http.MethodGet, "/api/ledger", nil)
	req.Header.Set("X-Admin-Key", "")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	expectStatus(t, w, http.StatusUnauthorized)
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodGet, "/healthz", "", "")
	expectStatus(t, w, http.StatusOK)
	if !strings.Contains(w.Body.String(), `"ok":true`) {
		t.Fatalf("unexpected health body %s", w.Body.String())
	}
}
