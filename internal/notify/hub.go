package notify

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"stock_go/internal/domain"
	"stock_go/internal/infra"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

const writeTimeout = 5 * time.Second

// pushMessage is the wire shape of a server → client notification.
type pushMessage struct {
	Type string   `json:"type"`
	Item pushItem `json:"item"`
}

type pushItem struct {
	Symbol   string          `json:"symbol"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int64           `json:"quantity"`
}

// session is one live websocket for an owner. The write mutex
// serializes publishes so an owner's events keep their order.
type session struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// Hub fans match events out to each owner's live sessions. Delivery is
// best-effort and at-most-once: events for disconnected owners are
// dropped, never queued; a reconnecting client re-fetches holdings.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string][]*session
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{sessions: make(map[string][]*session)}
}

// Publish sends ev to every live session of owner. Returns ErrNoChannel
// when the owner has none; callers treat that as a silent drop.
func (h *Hub) Publish(owner string, ev *domain.MatchEvent) error {
	h.mu.RLock()
	targets := make([]*session, len(h.sessions[owner]))
	copy(targets, h.sessions[owner])
	h.mu.RUnlock()

	if len(targets) == 0 {
		return domain.ErrNoChannel
	}

	payload, err := json.Marshal(pushMessage{
		Type: string(ev.Type),
		Item: pushItem{
			Symbol:   ev.Symbol,
			Name:     ev.Name,
			Price:    ev.Price,
			Quantity: ev.Quantity,
		},
	})
	if err != nil {
		return err
	}

	for _, s := range targets {
		s.mu.Lock()
		s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		err := s.conn.WriteMessage(websocket.TextMessage, payload)
		s.mu.Unlock()
		if err != nil {
			// A broken session is dropped; the owner's other sessions
			// still receive the event.
			slog.Debug("Dropping dead session", slog.String("owner", owner), slog.Any("error", err))
			h.remove(owner, s)
			s.conn.Close()
		}
	}
	return nil
}

// Serve owns conn for its lifetime: registers it, drains client reads
// (no client payload is expected beyond connection establishment), and
// unregisters on disconnect.
func (h *Hub) Serve(owner string, conn *websocket.Conn) {
	s := &session{conn: conn}

	h.mu.Lock()
	h.sessions[owner] = append(h.sessions[owner], s)
	h.mu.Unlock()
	infra.GlobalMetrics.IncrementConnections()

	defer func() {
		h.remove(owner, s)
		conn.Close()
		infra.GlobalMetrics.DecrementConnections()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) remove(owner string, target *session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	kept := h.sessions[owner][:0]
	for _, s := range h.sessions[owner] {
		if s != target {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		delete(h.sessions, owner)
	} else {
		h.sessions[owner] = kept
	}
}

// HasListeners reports whether the owner has at least one live session.
func (h *Hub) HasListeners(owner string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[owner]) > 0
}

// NullPublisher drops every event. It stands in for the hub when push
// delivery is disabled, so callers never special-case "no channel".
type NullPublisher struct{}

// Publish discards the event.
func (NullPublisher) Publish(string, *domain.MatchEvent) error { return nil }

var (
	_ domain.EventPublisher = (*Hub)(nil)
	_ domain.EventPublisher = NullPublisher{}
)
