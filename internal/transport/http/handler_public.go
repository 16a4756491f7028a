package httptransport

import (
	"errors"
	"net/http"

	apppublic "prediction-pool/internal/app/public"
	"prediction-pool/internal/pool"

	"github.com/go-chi/chi/v5"
)

type PublicHandlers struct {
	publicSvc *apppublic.Service
}

func NewPublicHandlers(publicSvc *apppublic.Service) *PublicHandlers {
	return &PublicHandlers{publicSvc: publicSvc}
}

func writePublicError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, apppublic.ErrInvalidStatus):
		WriteHTTPError(w, http.StatusBadRequest, "invalid_status")
	case errors.Is(err, apppublic.ErrInvalidRequest):
		WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
	default:
		writePoolError(w, r, err)
	}
}

func (h *PublicHandlers) Pools() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset := ParsePagination(r)
		resp, err := h.publicSvc.Pools(r.Context(), r.URL.Query().Get("status"), limit, offset)
		if err != nil {
			writePublicError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (h *PublicHandlers) Pool() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		poolID, ok := poolIDParam(w, r)
		if !ok {
			return
		}
		resp, err := h.publicSvc.Pool(r.Context(), poolID)
		if err != nil {
			writePublicError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (h *PublicHandlers) Entries() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		poolID, ok := poolIDParam(w, r)
		if !ok {
			return
		}
		limit, offset := ParsePagination(r)
		resp, err := h.publicSvc.Entries(r.Context(), poolID, limit, offset)
		if err != nil {
			writePublicError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (h *PublicHandlers) Entry() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		poolID, ok := poolIDParam(w, r)
		if !ok {
			return
		}
		resp, err := h.publicSvc.Entry(r.Context(), poolID, pool.Principal(chi.URLParam(r, "user")))
		if err != nil {
			writePublicError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (h *PublicHandlers) Quote() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		poolID, ok := poolIDParam(w, r)
		if !ok {
			return
		}
		resp, err := h.publicSvc.Quote(r.Context(), poolID, pool.Principal(chi.URLParam(r, "user")))
		if err != nil {
			writePublicError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
