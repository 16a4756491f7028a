package httptransport

import (
	"encoding/json"
	"net/http"
	"strconv"

	"prediction-pool/internal/pool"

	"github.com/go-chi/chi/v5"
)

// PoolHandlers serve the state-changing pool operations. Every route runs as the
// principal resolved by PrincipalAuthMiddleware.
type PoolHandlers struct {
	svc *pool.Service
}

func NewPoolHandlers(svc *pool.Service) *PoolHandlers {
	return &PoolHandlers{svc: svc}
}

func poolIDParam(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "pool_id"), 10, 64)
	if err != nil {
		WriteHTTPError(w, http.StatusBadRequest, "invalid_pool_id")
		return 0, false
	}
	return id, true
}

func callerFrom(w http.ResponseWriter, r *http.Request) (pool.Principal, bool) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		WriteHTTPError(w, http.StatusUnauthorized, "unauthorized")
	}
	return p, ok
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
		return false
	}
	return true
}

func (h *PoolHandlers) Create() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := callerFrom(w, r)
		if !ok {
			return
		}
		var body pool.CreateParams
		if !decodeBody(w, r, &body) {
			return
		}
		p, err := h.svc.CreatePool(r.Context(), caller, body)
		observeOp("create_pool", err)
		if err != nil {
			writePoolError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, p)
	}
}

func (h *PoolHandlers) Enter() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := callerFrom(w, r)
		if !ok {
			return
		}
		poolID, ok := poolIDParam(w, r)
		if !ok {
			return
		}
		var body struct {
			Amount uint64 `json:"amount"`
			Side   string `json:"side"`
		}
		if !decodeBody(w, r, &body) {
			return
		}
		// a missing side must not fall through to the zero value
		side, err := pool.ParseSide(body.Side)
		if err != nil {
			writePoolError(w, r, err)
			return
		}
		receipt, err := h.svc.EnterPool(r.Context(), poolID, caller, body.Amount, side)
		observeOp("enter_pool", err)
		if err != nil {
			writePoolError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, receipt)
	}
}

func (h *PoolHandlers) Lock() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := callerFrom(w, r)
		if !ok {
			return
		}
		poolID, ok := poolIDParam(w, r)
		if !ok {
			return
		}
		p, err := h.svc.LockPool(r.Context(), poolID, caller)
		observeOp("lock_pool", err)
		if err != nil {
			writePoolError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func (h *PoolHandlers) Resolve() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := callerFrom(w, r)
		if !ok {
			return
		}
		poolID, ok := poolIDParam(w, r)
		if !ok {
			return
		}
		var body struct {
			Winner    pool.Winner `json:"winner"`
			ProofHash pool.Hash32 `json:"proof_hash"`
		}
		if !decodeBody(w, r, &body) {
			return
		}
		p, err := h.svc.ResolvePool(r.Context(), poolID, caller, body.Winner, body.ProofHash)
		observeOp("resolve_pool", err)
		if err != nil {
			writePoolError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

// Claim pays the caller's own entry unless the body names another owner the caller is
// authorized for.
func (h *PoolHandlers) Claim() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := callerFrom(w, r)
		if !ok {
			return
		}
		poolID, ok := poolIDParam(w, r)
		if !ok {
			return
		}
		var body struct {
			Owner pool.Principal `json:"owner"`
		}
		if r.ContentLength != 0 && !decodeBody(w, r, &body) {
			return
		}
		owner := body.Owner
		if owner == "" {
			owner = caller
		}
		receipt, err := h.svc.ClaimWinnings(r.Context(), poolID, owner, caller)
		observeOp("claim_winnings", err)
		if err != nil {
			writePoolError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, receipt)
	}
}
