package wsserver

import (
	"context"
	"fmt"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/Aryan20apr/PulseChat/modules/broadcast"
)

// Config holds the server settings.
type Config struct {
	Addr           string
	AllowedOrigins string
	RatePerSecond  float64
	RateBurst      int
	SendBuffer     int
	MaxMessageSize int64
}

// Module implements the WebSocket server module using Fiber framework.
type Module struct {
	cfg         Config
	app         *fiber.App
	handlers    *Handlers
	hub         *broadcast.Hub
	publisher   EventPublisher
	relayHealth HealthChecker
	logger      types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a new WebSocket server module. Connections are
// registered in hub and events are published through publisher;
// relayHealth is reported by /health and may be nil.
func NewModule(cfg Config, hub *broadcast.Hub, publisher EventPublisher, relayHealth HealthChecker, moduleLogger types.Logger) *Module {
	m := &Module{
		cfg:         cfg,
		hub:         hub,
		publisher:   publisher,
		relayHealth: relayHealth,
		logger:      moduleLogger,
	}
	m.handlers = &Handlers{
		connHandler:    NewConnectionHandler(hub, publisher, cfg.RatePerSecond, cfg.RateBurst, moduleLogger),
		publisher:      publisher,
		stats:          hub,
		relayHealth:    relayHealth,
		sendBuffer:     cfg.SendBuffer,
		maxMessageSize: cfg.MaxMessageSize,
		logger:         moduleLogger,
	}
	m.app = m.newApp()
	return m
}

// Name returns the module name.
func (m *Module) Name() string {
	return "ws-server"
}

func (m *Module) newApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "PulseChat",
		DisableStartupMessage: true,
		ErrorHandler:          m.errorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} ${method} ${path} ${latency}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: m.cfg.AllowedOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type,Authorization",
	}))

	app.Get("/health", m.handlers.HealthCheck)

	app.Use("/ws", upgradeMiddleware)
	app.Get("/ws", websocket.New(m.handlers.HandleWebSocket))

	api := app.Group("/api")
	api.Get("/stats", m.handlers.GetStats)
	api.Post("/chat/:chatId/typing", m.handlers.TriggerTyping)

	return app
}

// Start starts the HTTP and WebSocket server.
func (m *Module) Start(_ context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := m.app.Listen(m.cfg.Addr); err != nil {
			errCh <- err
		}
	}()

	// Wait briefly to catch immediate startup errors
	select {
	case err := <-errCh:
		return fmt.Errorf("WebSocket server failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
	}

	m.logger.Info("WebSocket server started", "addr", m.cfg.Addr)
	return nil
}

// Stop closes any remaining connections, then shuts down the server.
func (m *Module) Stop(ctx context.Context) error {
	closed := m.CloseConnections(ctx)

	if err := m.app.ShutdownWithContext(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	m.logger.Info("WebSocket server stopped", "closedConnections", closed)
	return nil
}

// CloseConnections closes every local connection and waits until each has
// unregistered and published its typing_stop, or until ctx is done. Call it
// while the relay is still running.
func (m *Module) CloseConnections(ctx context.Context) int {
	closed := m.hub.CloseAll()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for m.hub.Count() > 0 {
		select {
		case <-ctx.Done():
			m.logger.Warn("Connections still open at shutdown", "connections", m.hub.Count())
			return closed
		case <-ticker.C:
		}
	}
	return closed
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	rooms, conns := m.hub.Stats()
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"addr":        m.cfg.Addr,
			"rooms":       rooms,
			"connections": conns,
		},
	}
}

// App returns the underlying Fiber app.
func (m *Module) App() *fiber.App {
	return m.app
}

// errorHandler handles errors globally.
func (m *Module) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	if code >= fiber.StatusInternalServerError {
		m.logger.Error("HTTP error", "code", code, "message", message, "error", err)
	}

	return c.Status(code).JSON(ErrorResponse{
		Error:   message,
		Message: err.Error(),
	})
}
