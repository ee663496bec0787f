package delivery

import (
	"context"
	"fmt"
	"sync"
)

// Hub maps connection tokens to locally attached clients and implements
// Channel over them. It mirrors the sockets terminated by this process only;
// which connections belong to a chat is the registry's business, not the
// hub's.
type Hub struct {
	mu      sync.Mutex
	clients map[string]*Client
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]*Client)}
}

func (h *Hub) Attach(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.ConnectionID] = c
}

func (h *Hub) Detach(connectionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, connectionID)
}

func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Push enqueues the payload for one connection. An unknown token or a closed
// client yields ErrGone; a send buffer that stays full until ctx expires
// yields a transient error so one slow reader cannot stall a fan-out.
func (h *Hub) Push(ctx context.Context, connectionID string, payload []byte) error {
	h.mu.Lock()
	c, ok := h.clients[connectionID]
	h.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrGone, connectionID)
	}

	select {
	case c.send <- payload:
		return nil
	case <-c.done:
		return fmt.Errorf("%w: %s", ErrGone, connectionID)
	case <-ctx.Done():
		return fmt.Errorf("push to %s: %w", connectionID, ctx.Err())
	}
}
