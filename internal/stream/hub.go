// Package stream serves the avatar's state to display clients over
// WebSocket: morph target weights, the active clip, captions, products,
// and log lines go out; user queries come back in.
package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Frame is one outbound message. Only the fields for its type are set.
type Frame struct {
	Type       string             `json:"type"`
	Timestamp  string             `json:"timestamp,omitempty"`
	Weights    map[string]float32 `json:"weights,omitempty"`
	Clip       string             `json:"clip,omitempty"`
	Expression string             `json:"expression,omitempty"`
	Caption    string             `json:"caption,omitempty"`
	Visible    bool               `json:"visible,omitempty"`
	Products   json.RawMessage    `json:"products,omitempty"`
	Log        string             `json:"log,omitempty"`
	Level      string             `json:"level,omitempty"`
	Meshes     []MeshPlacement    `json:"meshes,omitempty"`
}

// MeshPlacement is one mesh's local-to-world transform, column-major.
// Sent in the scene frame so clients can place meshes before the first
// weights frame arrives.
type MeshPlacement struct {
	Name   string      `json:"name"`
	Matrix [16]float32 `json:"matrix"`
}

// QueryMessage is an inbound user query from a display client.
type QueryMessage struct {
	Type  string `json:"type"`
	Query string `json:"query"`
}

const (
	FrameScene    = "scene"
	FrameWeights  = "weights"
	FrameCaption  = "caption"
	FrameProducts = "products"
	FrameLog      = "log"

	writeWait = 5 * time.Second
)

type subscriber struct {
	conn *websocket.Conn
	send chan Frame
}

// Hub accepts display client connections and fans frames out to them.
// A subscriber that cannot keep up has frames dropped rather than
// stalling the broadcast.
type Hub struct {
	addr       string
	sendBuffer int
	logger     zerolog.Logger
	upgrader   websocket.Upgrader

	mu          sync.RWMutex
	subscribers map[*subscriber]struct{}
	server      *http.Server
	hello       *Frame

	onQuery func(query string)
}

// NewHub creates a hub listening on addr once Run is called.
func NewHub(addr string, sendBuffer int, logger zerolog.Logger) *Hub {
	if sendBuffer <= 0 {
		sendBuffer = 64
	}
	return &Hub{
		addr:       addr,
		sendBuffer: sendBuffer,
		logger:     logger.With().Str("component", "stream-hub").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		subscribers: make(map[*subscriber]struct{}),
	}
}

// SetHelloFrame sets a frame sent to every client right after it
// connects, ahead of any broadcast. Used for the scene layout.
func (h *Hub) SetHelloFrame(f Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hello = &f
}

// SetQueryHandler sets the callback for inbound user queries.
func (h *Hub) SetQueryHandler(fn func(query string)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onQuery = fn
}

// Run serves until the context is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.handleWS)

	h.mu.Lock()
	h.server = &http.Server{Addr: h.addr, Handler: mux}
	srv := h.server
	h.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		h.logger.Info().Str("addr", h.addr).Msg("stream hub listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), writeWait)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		h.closeAll()
		return ctx.Err()
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// Broadcast queues a frame for every connected client.
func (h *Hub) Broadcast(f Frame) {
	if f.Timestamp == "" {
		f.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subscribers {
		select {
		case sub.send <- f:
		default:
			// Slow client. Drop the frame, keep the connection.
		}
	}
}

// Subscribers reports the number of connected clients.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	sub := &subscriber{conn: conn, send: make(chan Frame, h.sendBuffer)}

	h.mu.Lock()
	h.subscribers[sub] = struct{}{}
	count := len(h.subscribers)
	if h.hello != nil {
		hello := *h.hello
		if hello.Timestamp == "" {
			hello.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
		}
		sub.send <- hello
	}
	h.mu.Unlock()

	h.logger.Info().Str("remote", conn.RemoteAddr().String()).Int("subscribers", count).Msg("client connected")

	go h.writeLoop(sub)
	h.readLoop(sub)
}

func (h *Hub) writeLoop(sub *subscriber) {
	for f := range sub.send {
		_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := sub.conn.WriteJSON(f); err != nil {
			h.logger.Debug().Err(err).Msg("write failed, dropping client")
			sub.conn.Close()
			return
		}
	}
}

func (h *Hub) readLoop(sub *subscriber) {
	defer h.remove(sub)

	for {
		_, data, err := sub.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg QueryMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.logger.Debug().Err(err).Msg("ignoring malformed client message")
			continue
		}
		if msg.Type != "query" || msg.Query == "" {
			continue
		}

		h.mu.RLock()
		handler := h.onQuery
		h.mu.RUnlock()
		if handler != nil {
			handler(msg.Query)
		}
	}
}

func (h *Hub) remove(sub *subscriber) {
	h.mu.Lock()
	if _, ok := h.subscribers[sub]; ok {
		delete(h.subscribers, sub)
		close(sub.send)
	}
	count := len(h.subscribers)
	h.mu.Unlock()

	sub.conn.Close()
	h.logger.Info().Int("subscribers", count).Msg("client disconnected")
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subscribers {
		close(sub.send)
		sub.conn.Close()
		delete(h.subscribers, sub)
	}
}
