package broadcast

import (
	"encoding/json"
	"fmt"
	"iter"
	"sync"

	"github.com/go-monolith/mono/pkg/types"
)

// Connection is one live client session held by this process.
// Identity attributes are fixed when the connection is accepted.
type Connection interface {
	ID() string
	UserID() string
	Username() string
	ChatID() string
	// Send queues a text frame. It must not block.
	Send(data []byte) error
	Close() error
}

// Hub is the process-local connection registry.
//
// byConn and byUser are guarded by a single mutex so that Add and Remove
// update both indexes atomically with respect to readers.
type Hub struct {
	byConn map[string]Connection // connID -> Connection
	byUser map[string]string     // userID -> most recent connID
	mu     sync.RWMutex
	logger types.Logger
}

// NewHub creates an empty Hub.
func NewHub(logger types.Logger) *Hub {
	return &Hub{
		byConn: make(map[string]Connection),
		byUser: make(map[string]string),
		logger: logger,
	}
}

// Add registers conn. A previous connection for the same user stays
// registered but is no longer the one returned by ConnectionForUser.
func (h *Hub) Add(conn Connection) {
	h.mu.Lock()
	h.byConn[conn.ID()] = conn
	h.byUser[conn.UserID()] = conn.ID()
	h.mu.Unlock()

	h.logger.Debug("Connection registered",
		"connID", conn.ID(), "userID", conn.UserID(), "chatID", conn.ChatID())
}

// Remove unregisters the connection with connID. The user index entry is
// cleared only if it still points at connID, so a newer connection for the
// same user keeps its mapping.
func (h *Hub) Remove(connID string) (Connection, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn, ok := h.byConn[connID]
	if !ok {
		return nil, false
	}
	delete(h.byConn, connID)
	if h.byUser[conn.UserID()] == connID {
		delete(h.byUser, conn.UserID())
	}
	return conn, true
}

// ConnectionsInRoom yields the connections currently registered with chatID.
// The set is captured when iteration starts; connections added or removed
// during iteration are not reflected.
func (h *Hub) ConnectionsInRoom(chatID string) iter.Seq[Connection] {
	return func(yield func(Connection) bool) {
		h.mu.RLock()
		members := make([]Connection, 0, len(h.byConn))
		for _, conn := range h.byConn {
			if conn.ChatID() == chatID {
				members = append(members, conn)
			}
		}
		h.mu.RUnlock()

		for _, conn := range members {
			if !yield(conn) {
				return
			}
		}
	}
}

// ConnectionForUser returns the most recently added connection for userID.
func (h *Hub) ConnectionForUser(userID string) (Connection, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	connID, ok := h.byUser[userID]
	if !ok {
		return nil, false
	}
	conn, ok := h.byConn[connID]
	return conn, ok
}

// DeliverLocally serializes payload once and sends it to every local
// connection in chatID. A failed send is logged and does not stop delivery
// to the remaining connections. It returns the number of successful sends.
func (h *Hub) DeliverLocally(chatID string, payload any) int {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Warn("Failed to marshal event for delivery", "chatID", chatID, "error", err)
		return 0
	}

	delivered := 0
	for conn := range h.ConnectionsInRoom(chatID) {
		if err := conn.Send(data); err != nil {
			h.logger.Warn("Local delivery failed",
				"chatID", chatID,
				"connID", conn.ID(),
				"error", fmt.Errorf("%w: %w", ErrDelivery, err))
			continue
		}
		delivered++
	}

	h.logger.Debug("Delivered event locally", "chatID", chatID, "recipients", delivered)
	return delivered
}

// Count returns the number of registered connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byConn)
}

// Stats returns the number of occupied rooms and registered connections.
func (h *Hub) Stats() (rooms, connections int) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, conn := range h.byConn {
		seen[conn.ChatID()] = struct{}{}
	}
	return len(seen), len(h.byConn)
}

// Snapshot returns every registered connection.
func (h *Hub) Snapshot() []Connection {
	h.mu.RLock()
	defer h.mu.RUnlock()

	conns := make([]Connection, 0, len(h.byConn))
	for _, conn := range h.byConn {
		conns = append(conns, conn)
	}
	return conns
}

// CloseAll closes every registered connection. Connections stay registered
// until their handlers observe the close and call Remove.
func (h *Hub) CloseAll() int {
	conns := h.Snapshot()
	for _, conn := range conns {
		if err := conn.Close(); err != nil {
			h.logger.Debug("Failed to close connection", "connID", conn.ID(), "error", err)
		}
	}
	return len(conns)
}
