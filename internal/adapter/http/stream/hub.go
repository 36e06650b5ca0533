// Package stream pushes wallet state to websocket subscribers.
package stream

import (
	"net/http"
	"sync"
	"time"

	"storefront-wallet/internal/core/domain"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 8
)

// Message is one pushed wallet snapshot.
type Message struct {
	Type            string                  `json:"type"`
	Balance         int64                   `json:"balance"`
	IsProcessing    bool                    `json:"isProcessing"`
	LastTransaction *domain.LastTransaction `json:"lastTransaction,omitempty"`
}

func newMessage(st domain.WalletState) Message {
	return Message{Type: "wallet", Balance: st.Balance, IsProcessing: st.IsProcessing, LastTransaction: st.LastTransaction}
}

type subscriber struct {
	clientID string
	conn     *websocket.Conn
	send     chan Message
	once     sync.Once
	done     chan struct{}
}

func (s *subscriber) stop() {
	s.once.Do(func() { close(s.done) })
}

// Hub fans wallet updates out to every open connection of a client. It
// implements ports.BalanceNotifier.
type Hub struct {
	upgrader websocket.Upgrader
	log      zerolog.Logger

	mu   sync.RWMutex
	subs map[string]map[*subscriber]struct{}
}

// NewHub creates a hub accepting upgrades from allowedOrigins. "*" allows
// any origin; requests without an Origin header are always accepted.
func NewHub(allowedOrigins []string, log zerolog.Logger) *Hub {
	h := &Hub{log: log, subs: make(map[string]map[*subscriber]struct{})}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range allowedOrigins {
				if allowed == "*" || allowed == origin {
					return true
				}
			}
			return false
		},
	}
	return h
}

// Publish queues state for clientID's connections. Slow connections skip
// the update; every message carries the full state.
func (h *Hub) Publish(clientID string, state domain.WalletState) {
	msg := newMessage(state)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs[clientID] {
		select {
		case sub.send <- msg:
		default:
			h.log.Debug().Str("client_id", clientID).Msg("subscriber lagging, update skipped")
		}
	}
}

// Subscribers returns the number of open connections for clientID.
func (h *Hub) Subscribers(clientID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[clientID])
}

// Serve upgrades the request and streams clientID's wallet until the peer
// goes away. load is called after the subscription is registered so no
// update between the snapshot and the subscription is lost.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, clientID string, load func() (domain.WalletState, error)) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	sub := &subscriber{
		clientID: clientID,
		conn:     conn,
		send:     make(chan Message, sendBuffer),
		done:     make(chan struct{}),
	}
	h.register(sub)

	st, err := load()
	if err != nil {
		h.log.Error().Err(err).Str("client_id", clientID).Msg("load wallet for stream")
		h.unregister(sub)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "wallet unavailable"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}

	go h.writePump(sub)
	select {
	case sub.send <- newMessage(st):
	case <-sub.done:
	}
	go h.readPump(sub)
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	all := h.subs
	h.subs = make(map[string]map[*subscriber]struct{})
	h.mu.Unlock()

	for _, set := range all {
		for sub := range set {
			sub.stop()
		}
	}
}

func (h *Hub) register(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[sub.clientID]
	if !ok {
		set = make(map[*subscriber]struct{})
		h.subs[sub.clientID] = set
	}
	set[sub] = struct{}{}
}

func (h *Hub) unregister(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[sub.clientID]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.subs, sub.clientID)
		}
	}
	sub.stop()
}

// readPump discards client frames and keeps the connection alive via pongs.
func (h *Hub) readPump(sub *subscriber) {
	defer h.unregister(sub)

	sub.conn.SetReadLimit(maxMessageSize)
	_ = sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	sub.conn.SetPongHandler(func(string) error {
		return sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug().Err(err).Str("client_id", sub.clientID).Msg("websocket read")
			}
			return
		}
	}
}

// writePump owns all writes to the connection.
func (h *Hub) writePump(sub *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = sub.conn.Close()
	}()

	for {
		select {
		case msg := <-sub.send:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteJSON(msg); err != nil {
				h.unregister(sub)
				return
			}
		case <-ticker.C:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.unregister(sub)
				return
			}
		case <-sub.done:
			_ = sub.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}
