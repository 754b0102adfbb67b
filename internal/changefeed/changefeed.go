// Package changefeed implements the coordination store's push path: a
// websocket hub that lets trough-sync-master broadcast assignment-table
// deltas to subscribed local controllers as they happen, instead of
// every host polling the full assignments table on every sync tick. See
// doc.go for complete package documentation.
package changefeed

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Delta describes one change to the assignments table: a segment was
// placed on, or removed from, a host.
type Delta struct {
	Segment    string    `json:"segment"`
	Host       string    `json:"host"`
	RemotePath string    `json:"remote_path,omitempty"`
	Bytes      int64     `json:"bytes,omitempty"`
	Removed    bool      `json:"removed,omitempty"`
	At         time.Time `json:"at"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Hub fans deltas out to every connected subscriber. The zero value is
// not usable; construct with NewHub and run Run in its own goroutine.
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan Delta
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mu         sync.RWMutex
	log        zerolog.Logger
}

// NewHub returns a Hub ready to have Run started.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan Delta, 256),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		log:        logger.With().Str("component", "changefeed").Logger(),
	}
}

// Run drives the hub's register/unregister/broadcast loop until ctx is
// canceled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				client.Close()
			}
			h.mu.Unlock()
			return
		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = true
			h.mu.Unlock()
		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			h.mu.Unlock()
		case d := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if err := client.WriteJSON(d); err != nil {
					h.log.Warn().Err(err).Msg("changefeed write failed, dropping client")
					client.Close()
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Publish enqueues d for delivery to every connected subscriber. The
// send is non-blocking: a full queue drops the delta rather than
// stalling the caller, since a dropped push delta is recovered by the
// next poll-based sync tick.
func (h *Hub) Publish(d Delta) {
	select {
	case h.broadcast <- d:
	default:
		h.log.Warn().Str("segment", d.Segment).Msg("changefeed queue full, delta dropped")
	}
}

// ServeWS upgrades req to a websocket and registers the connection with
// the hub. It blocks until the client disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, req *http.Request) error {
	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		return fmt.Errorf("changefeed: upgrade: %w", err)
	}
	h.register <- conn

	defer func() { h.unregister <- conn }()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return nil
		}
	}
}

// Subscriber is a local controller's read-only connection to a Hub.
type Subscriber struct {
	conn *websocket.Conn
}

// Dial connects to a Hub's ServeWS endpoint at url (a ws:// or wss://
// URL).
func Dial(ctx context.Context, url string) (*Subscriber, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("changefeed: dial %s: %w", url, err)
	}
	return &Subscriber{conn: conn}, nil
}

// Next blocks until the next Delta arrives or the connection fails.
func (s *Subscriber) Next() (Delta, error) {
	var d Delta
	if err := s.conn.ReadJSON(&d); err != nil {
		return Delta{}, fmt.Errorf("changefeed: read: %w", err)
	}
	return d, nil
}

// Close releases the underlying connection.
func (s *Subscriber) Close() error {
	return s.conn.Close()
}
