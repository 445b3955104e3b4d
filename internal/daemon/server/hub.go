package server

import "sync"

// hub is a store listener that forwards wakes to streaming clients. Damage
// runs on the host loop thread and never blocks: each client has a
// one-slot channel and a pending wake absorbs later ones.
type hub struct {
	mu      sync.Mutex
	clients map[chan struct{}]struct{}
	wakes   uint64
}

func newHub() *hub {
	return &hub{clients: make(map[chan struct{}]struct{})}
}

// Damage implements store.Listener.
func (h *hub) Damage() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.wakes++
	for ch := range h.clients {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (h *hub) subscribe() chan struct{} {
	ch := make(chan struct{}, 1)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *hub) unsubscribe(ch chan struct{}) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
}

func (h *hub) stats() (clients int, wakes uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients), h.wakes
}
