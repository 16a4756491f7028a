package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"prediction-pool/internal/ledger"
	"prediction-pool/internal/pool"
)

type HealthFunc func(ctx context.Context) error

type AdminHandlers struct {
	funds  ledger.Funds
	health HealthFunc
}

func NewAdminHandlers(funds ledger.Funds, health HealthFunc) *AdminHandlers {
	return &AdminHandlers{funds: funds, health: health}
}

func (h *AdminHandlers) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.health != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := h.health(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false, "store": "down"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "store": "up"})
	}
}

// Ledger lists audit records. ?principal= narrows to a user account and ?pool_id= to a
// pool's custody account.
func (h *AdminHandlers) Ledger() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset := ParsePagination(r)
		var account ledger.Account
		q := r.URL.Query()
		switch {
		case q.Get("principal") != "":
			account = ledger.UserAccount(q.Get("principal"))
		case q.Get("pool_id") != "":
			id, err := strconv.ParseUint(q.Get("pool_id"), 10, 64)
			if err != nil {
				WriteHTTPError(w, http.StatusBadRequest, "invalid_pool_id")
				return
			}
			account = ledger.CustodyAccount(id)
		}
		items, err := h.funds.Records(r.Context(), account, limit, offset)
		if err != nil {
			writePoolError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "limit": limit, "offset": offset})
	}
}

func (h *AdminHandlers) Topup() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Principal pool.Principal `json:"principal"`
			Amount    uint64         `json:"amount"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		if body.Principal.Validate() != nil || body.Amount == 0 {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		refID := strconv.FormatInt(time.Now().UnixNano(), 10)
		bal, err := h.funds.Deposit(r.Context(), ledger.UserAccount(string(body.Principal)), body.Amount, refID)
		if err != nil {
			if errors.Is(err, ledger.ErrBalanceOverflow) {
				WriteHTTPError(w, http.StatusUnprocessableEntity, "balance_overflow")
				return
			}
			writePoolError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "balance": bal})
	}
}

// Balance reports the authenticated principal's spendable balance.
func (h *AdminHandlers) Balance() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := callerFrom(w, r)
		if !ok {
			return
		}
		bal, err := h.funds.Balance(r.Context(), ledger.UserAccount(string(caller)))
		if err != nil {
			writePoolError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"principal": caller, "balance": bal})
	}
}
