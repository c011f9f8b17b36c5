package events

import (
	"bufio"
	"encoding/json"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const defaultHistorySize = 50

type room struct {
	connections map[*websocket.Conn]struct{}
	history     []Event
}

// Hub fans review events out to per-pair WebSocket rooms and to the
// global TCP feed. Each room keeps a bounded history replayed to late
// joiners so a reloaded editor catches up.
type Hub struct {
	mu          sync.Mutex
	rooms       map[string]*room
	historySize int
	tcpClients  map[net.Conn]struct{}
}

type Stats struct {
	Rooms      int `json:"rooms"`
	WSClients  int `json:"ws_clients"`
	TCPClients int `json:"tcp_clients"`
}

func NewHub(historySize int) *Hub {
	if historySize <= 0 {
		historySize = defaultHistorySize
	}
	return &Hub{
		rooms:       make(map[string]*room),
		historySize: historySize,
		tcpClients:  make(map[net.Conn]struct{}),
	}
}

// Join subscribes a WebSocket client to one pair's room and returns
// the room history for replay.
func (h *Hub) Join(pairID string, ws *websocket.Conn) []Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	r := h.roomLocked(pairID)
	r.connections[ws] = struct{}{}
	return append([]Event(nil), r.history...)
}

func (h *Hub) Leave(pairID string, ws *websocket.Conn) {
	h.mu.Lock()
	if r, ok := h.rooms[pairID]; ok {
		delete(r.connections, ws)
	}
	h.mu.Unlock()
	_ = ws.Close()
}

// Publish records the event in its pair's history and broadcasts it to
// the pair's room and every TCP client.
func (h *Hub) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	r := h.roomLocked(ev.PairID)
	r.history = append(r.history, ev)
	if len(r.history) > h.historySize {
		r.history = r.history[len(r.history)-h.historySize:]
	}

	for ws := range r.connections {
		if err := ws.WriteMessage(websocket.TextMessage, payload); err != nil {
			_ = ws.Close()
			delete(r.connections, ws)
		}
	}

	line := append(payload, '\n')
	for c := range h.tcpClients {
		_ = c.SetWriteDeadline(time.Now().Add(2 * time.Second))
		w := bufio.NewWriter(c)
		if _, err := w.Write(line); err != nil {
			_ = c.Close()
			delete(h.tcpClients, c)
			continue
		}
		if err := w.Flush(); err != nil {
			_ = c.Close()
			delete(h.tcpClients, c)
		}
	}
}

func (h *Hub) History(pairID string) []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	if r, ok := h.rooms[pairID]; ok {
		return append([]Event(nil), r.history...)
	}
	return nil
}

func (h *Hub) AddTCP(conn net.Conn) {
	h.mu.Lock()
	h.tcpClients[conn] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) RemoveTCP(conn net.Conn) {
	h.mu.Lock()
	delete(h.tcpClients, conn)
	h.mu.Unlock()
	_ = conn.Close()
}

func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := Stats{Rooms: len(h.rooms), TCPClients: len(h.tcpClients)}
	for _, r := range h.rooms {
		s.WSClients += len(r.connections)
	}
	return s
}

func (h *Hub) roomLocked(pairID string) *room {
	r, ok := h.rooms[pairID]
	if !ok {
		r = &room{connections: make(map[*websocket.Conn]struct{})}
		h.rooms[pairID] = r
	}
	return r
}
