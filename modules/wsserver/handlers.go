package wsserver

import (
	"context"
	"errors"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Aryan20apr/PulseChat/domain/chat"
	"github.com/Aryan20apr/PulseChat/modules/relay"
)

// defaultTriggerUsername is used by the admin typing trigger when no username is given.
const defaultTriggerUsername = "Test User"

// StatsProvider reports local room and connection counts.
type StatsProvider interface {
	Stats() (rooms, connections int)
}

// HealthChecker reports the health of a dependency.
type HealthChecker interface {
	Health(ctx context.Context) mono.HealthStatus
}

// Handlers contains HTTP and WebSocket handlers.
type Handlers struct {
	connHandler    *ConnectionHandler
	publisher      EventPublisher
	stats          StatsProvider
	relayHealth    HealthChecker
	sendBuffer     int
	maxMessageSize int64
	logger         types.Logger
}

// HandleWebSocket serves one client connection from handshake to close.
func (h *Handlers) HandleWebSocket(c *websocket.Conn) {
	connID := uuid.New().String()
	ident := ResolveIdentity(
		func(key string) string { return c.Query(key) },
		func(key string) any { return c.Locals(key) },
		connID,
	)

	conn := newWSConn(connID, ident, c, h.sendBuffer)
	conn.startWriter()
	session := h.connHandler.Open(conn)

	ctx := context.Background()
	err := conn.readPump(h.maxMessageSize, func(data []byte) {
		_ = session.HandleFrame(ctx, data)
	})
	if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
		h.logger.Warn("WebSocket read error", "connID", connID, "error", err)
	}

	session.Close(ctx)
	_ = conn.Close()
	conn.wait()
}

// TriggerTyping publishes a typing event for a room as if a client had sent it.
//
//	POST /api/chat/:chatId/typing?userId=U&type=typing_start|typing_stop[&username=N]
func (h *Handlers) TriggerTyping(c *fiber.Ctx) error {
	chatID := c.Params("chatId")
	userID := c.Query("userId")
	eventType := c.Query("type")
	username := c.Query("username", defaultTriggerUsername)

	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "userId is required",
		})
	}
	if !chat.IsTypingType(eventType) {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "type must be typing_start or typing_stop",
		})
	}

	event := chat.NewTypingEvent(chatID, userID, username, eventType)
	if err := h.publisher.Publish(c.UserContext(), event); err != nil {
		h.logger.Warn("Admin typing trigger failed", "chatID", chatID, "userID", userID, "error", err)
		code := "publish_failed"
		if errors.Is(err, relay.ErrBusUnavailable) {
			code = "relay_unavailable"
		}
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error:   code,
			Message: err.Error(),
		})
	}

	return c.JSON(TypingTriggerResponse{
		Status: "sent",
		ChatID: chatID,
		UserID: userID,
		Type:   eventType,
	})
}

// HealthCheck reports relay connectivity and local connection counts.
func (h *Handlers) HealthCheck(c *fiber.Ctx) error {
	rooms, conns := h.stats.Stats()
	details := map[string]any{
		"rooms":       rooms,
		"connections": conns,
	}

	status := "healthy"
	code := fiber.StatusOK
	if h.relayHealth != nil {
		relayStatus := h.relayHealth.Health(c.UserContext())
		details["relay"] = relayStatus.Message
		if !relayStatus.Healthy {
			status = "degraded"
			code = fiber.StatusServiceUnavailable
		}
	}

	return c.Status(code).JSON(HealthResponse{
		Status:  status,
		Details: details,
	})
}

// GetStats returns local room and connection counts.
func (h *Handlers) GetStats(c *fiber.Ctx) error {
	rooms, conns := h.stats.Stats()
	return c.JSON(StatsResponse{
		Rooms:       rooms,
		Connections: conns,
	})
}
