package httptransport

import (
	"net/http"
	"strconv"
	"time"

	"prediction-pool/internal/ids"
	"prediction-pool/internal/notify"
)

var ssePingInterval = 15 * time.Second

// EventsSSEHandler streams committed pool events. Clients resume with Last-Event-ID and
// may narrow the stream to one pool with ?pool_id=.
func EventsSSEHandler(buf *notify.Buffer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			filter    uint64
			hasFilter bool
		)
		if v := r.URL.Query().Get("pool_id"); v != "" {
			id, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				WriteHTTPError(w, http.StatusBadRequest, "invalid_pool_id")
				return
			}
			filter, hasFilter = id, true
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			WriteHTTPError(w, http.StatusInternalServerError, "stream_not_supported")
			return
		}
		match := func(env notify.Envelope) bool {
			return !hasFilter || env.PoolID == filter
		}

		metricSSEActive.Inc()
		defer metricSSEActive.Dec()

		// subscribe before replay so nothing committed in between is lost
		ch := buf.Subscribe()
		defer buf.Unsubscribe(ch)

		SetSSEHeaders(w)
		w.WriteHeader(http.StatusOK)
		lastEventID := r.Header.Get("Last-Event-ID")
		if !ids.Valid(lastEventID) {
			lastEventID = ""
		}
		// anything appended between Subscribe and ReplayAfter arrives twice
		replayed := map[string]struct{}{}
		for _, env := range buf.ReplayAfter(lastEventID) {
			replayed[env.EventID] = struct{}{}
			if !match(env) {
				continue
			}
			if err := WriteSSE(w, env.EventID, string(env.Event), env); err != nil {
				return
			}
		}
		flusher.Flush()

		ticker := time.NewTicker(ssePingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-r.Context().Done():
				return
			case env, ok := <-ch:
				if !ok {
					return
				}
				if _, dup := replayed[env.EventID]; dup {
					delete(replayed, env.EventID)
					continue
				}
				if !match(env) {
					continue
				}
				if err := WriteSSE(w, env.EventID, string(env.Event), env); err != nil {
					return
				}
				flusher.Flush()
			case <-ticker.C:
				if err := WriteSSE(w, "", "ping", map[string]any{"ts": time.Now().UnixMilli()}); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}
