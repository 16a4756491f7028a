// Package ws streams committed pool events over WebSocket. It carries the same envelopes
// as the SSE endpoint and lets a client change its pool subscription without reconnecting.
package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"prediction-pool/internal/ids"
	"prediction-pool/internal/notify"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// ControlMessage changes which pools a connection receives. An empty subscription set
// receives every pool.
type ControlMessage struct {
	Action  string   `json:"action"`
	PoolIDs []uint64 `json:"pool_ids"`
}

type client struct {
	conn *websocket.Conn
	mu   sync.RWMutex
	subs map[uint64]bool
}

func (c *client) wants(poolID uint64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subs) == 0 || c.subs[poolID]
}

func (c *client) apply(msg ControlMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch msg.Action {
	case "subscribe":
		for _, id := range msg.PoolIDs {
			c.subs[id] = true
		}
	case "unsubscribe":
		for _, id := range msg.PoolIDs {
			delete(c.subs, id)
		}
	}
}

// Handler upgrades the request and streams envelopes from buf. ?last_event_id= replays
// buffered envelopes newer than that id before live delivery starts.
func Handler(buf *notify.Buffer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lastEventID := r.URL.Query().Get("last_event_id")
		if !ids.Valid(lastEventID) {
			lastEventID = ""
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Debug().Err(err).Msg("ws upgrade failed")
			return
		}
		c := &client{conn: conn, subs: map[uint64]bool{}}
		ch := buf.Subscribe()
		done := make(chan struct{})
		go func() {
			defer close(done)
			c.readPump()
		}()
		c.writePump(buf, ch, lastEventID, done)
		buf.Unsubscribe(ch)
		_ = conn.Close()
		<-done
	}
}

func (c *client) readPump() {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("ws unexpected close")
			}
			return
		}
		var msg ControlMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		c.apply(msg)
	}
}

func (c *client) writePump(buf *notify.Buffer, ch chan notify.Envelope, lastEventID string, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	send := func(env notify.Envelope) bool {
		if !c.wants(env.PoolID) {
			return true
		}
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		return c.conn.WriteJSON(env) == nil
	}
	// anything appended between Subscribe and ReplayAfter arrives twice
	replayed := map[string]struct{}{}
	for _, env := range buf.ReplayAfter(lastEventID) {
		replayed[env.EventID] = struct{}{}
		if !send(env) {
			return
		}
	}
	for {
		select {
		case <-done:
			return
		case env, ok := <-ch:
			if !ok {
				_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
				return
			}
			if _, dup := replayed[env.EventID]; dup {
				delete(replayed, env.EventID)
				continue
			}
			if !send(env) {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
