package webui

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// clientBuffer bounds the events queued for a slow client before new ones are dropped.
const clientBuffer = 16

type event struct {
	name string
	data []byte
}

// hub fans events out to the connected windows.
type hub struct {
	clients map[uuid.UUID]chan event
	// idle fires when the last client has been gone for the grace period.
	idle   *time.Timer
	onIdle func()
	grace  time.Duration
	mu     sync.Mutex
}

func newHub(grace time.Duration, onIdle func()) *hub {
	return &hub{
		clients: make(map[uuid.UUID]chan event),
		grace:   grace,
		onIdle:  onIdle,
	}
}

func (h *hub) subscribe() (uuid.UUID, <-chan event) {
	id := uuid.New()
	ch := make(chan event, clientBuffer)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[id] = ch
	if h.idle != nil {
		h.idle.Stop()
		h.idle = nil
	}
	slog.Debug("[IPC] Window connected", "client", id, "clients", len(h.clients))
	return id, ch
}

// unsubscribe removes a client. When none remain, onIdle runs after the grace period
// unless another client connects first; page reloads reconnect within it.
func (h *hub) unsubscribe(id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch, ok := h.clients[id]
	if !ok {
		return
	}
	delete(h.clients, id)
	close(ch)
	slog.Debug("[IPC] Window disconnected", "client", id, "clients", len(h.clients))

	if len(h.clients) == 0 && h.onIdle != nil {
		if h.idle != nil {
			h.idle.Stop()
		}
		h.idle = time.AfterFunc(h.grace, h.fireIdle)
	}
}

func (h *hub) fireIdle() {
	h.mu.Lock()
	idle := len(h.clients) == 0
	onIdle := h.onIdle
	h.idle = nil
	h.mu.Unlock()

	if idle && onIdle != nil {
		slog.Info("[IPC] Last window gone")
		onIdle()
	}
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *hub) broadcast(name string, data []byte) {
	ev := event{name: name, data: data}

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.clients {
		select {
		case ch <- ev:
		default:
			slog.Warn("[IPC] Client too slow, dropping event", "client", id, "event", name)
		}
	}
}

func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.idle != nil {
		h.idle.Stop()
		h.idle = nil
	}
	h.onIdle = nil
	for id, ch := range h.clients {
		delete(h.clients, id)
		close(ch)
	}
}
