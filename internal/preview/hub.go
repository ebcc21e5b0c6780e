// Package preview serves frames and diagnostics to browsers over websockets.
package preview

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/rainbowmatrix/internal/diagnostics"
	"github.com/coreman2200/rainbowmatrix/internal/frame"
)

const writeWait = 200 * time.Millisecond

// Hub fans frames out to /ws clients and diagnostics out to /diag clients.
// It satisfies transport.Sender, bridge.Sink and diagnostics.Reporter.
type Hub struct {
	mu          sync.RWMutex
	frames      uint64
	last        []byte
	startTime   time.Time
	clients     map[*websocket.Conn]bool
	diagClients map[*websocket.Conn]bool
	recent      []diagnostics.Diagnostic
	upgrader    websocket.Upgrader
}

// keep this many diagnostics for clients that connect late
const recentDiags = 32

func NewHub() *Hub {
	return &Hub{
		startTime:   time.Now(),
		clients:     map[*websocket.Conn]bool{},
		diagClients: map[*websocket.Conn]bool{},
		upgrader:    websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
}

// Handler routes /ws, /diag and /health.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.HandleFramesWS)
	mux.HandleFunc("/diag", h.HandleDiagWS)
	mux.HandleFunc("/health", h.HandleHealth)
	return mux
}

// HandleFramesWS streams every frame as one binary message. A new client
// gets the latest frame straight away.
func (h *Hub) HandleFramesWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	h.mu.Lock()
	h.clients[conn] = true
	if h.last != nil {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = conn.WriteMessage(websocket.BinaryMessage, h.last)
	}
	h.mu.Unlock()
	go h.drain(conn, h.clients)
}

// HandleDiagWS streams diagnostics as JSON text messages, starting with the
// most recent ones.
func (h *Hub) HandleDiagWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	h.mu.Lock()
	h.diagClients[conn] = true
	for _, d := range h.recent {
		b, _ := json.Marshal(d)
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = conn.WriteMessage(websocket.TextMessage, b)
	}
	h.mu.Unlock()
	go h.drain(conn, h.diagClients)
}

// drain reads until the client goes away, then forgets it.
func (h *Hub) drain(conn *websocket.Conn, set map[*websocket.Conn]bool) {
	defer func() {
		h.mu.Lock()
		delete(set, conn)
		h.mu.Unlock()
		conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Health is the /health payload.
type Health struct {
	Frames  uint64  `json:"frames"`
	UptimeS float64 `json:"uptime_s"`
	Clients int     `json:"clients"`
}

func (h *Hub) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	resp := Health{
		Frames:  h.frames,
		UptimeS: time.Since(h.startTime).Seconds(),
		Clients: len(h.clients),
	}
	h.mu.RUnlock()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// Send broadcasts a packed frame.
func (h *Hub) Send(p frame.Packed) error {
	return h.SendBytes(p[:])
}

// SendBytes broadcasts b as it is. Slow or gone clients never fail the call.
func (h *Hub) SendBytes(b []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.frames++
	h.last = append(h.last[:0], b...)
	for c := range h.clients {
		c.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.WriteMessage(websocket.BinaryMessage, h.last); err != nil {
			log.Debug().Err(err).Msg("write frame")
		}
	}
	return nil
}

// Report broadcasts d to /diag clients.
func (h *Hub) Report(d diagnostics.Diagnostic) {
	b, err := json.Marshal(d)
	if err != nil {
		log.Debug().Err(err).Str("code", d.Code).Msg("encode diagnostic")
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.recent = append(h.recent, d)
	if len(h.recent) > recentDiags {
		h.recent = h.recent[len(h.recent)-recentDiags:]
	}
	for c := range h.diagClients {
		c.SetWriteDeadline(time.Now().Add(writeWait))
		_ = c.WriteMessage(websocket.TextMessage, b)
	}
}

// Close disconnects every client.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.Close()
	}
	for c := range h.diagClients {
		c.Close()
	}
	return nil
}

func (h *Hub) String() string { return "preview" }
