package wsserver

import (
	"context"
	"errors"
	"sync"

	"github.com/go-monolith/mono/pkg/types"
	"golang.org/x/time/rate"

	"github.com/Aryan20apr/PulseChat/domain/chat"
	"github.com/Aryan20apr/PulseChat/modules/broadcast"
)

// EventPublisher publishes an event to its room channel on the relay bus.
type EventPublisher interface {
	Publish(ctx context.Context, event chat.Event) error
}

// Registry tracks the connections held by this process.
type Registry interface {
	Add(conn broadcast.Connection)
	Remove(connID string) (broadcast.Connection, bool)
}

// ConnectionHandler runs the per-connection state machine. It never writes
// events to connections directly: every event, including one sent by a local
// client, reaches local connections through the relay bus listener.
type ConnectionHandler struct {
	registry  Registry
	publisher EventPublisher
	logger    types.Logger
	rateLimit rate.Limit
	rateBurst int
}

// NewConnectionHandler creates a ConnectionHandler. Each session may handle
// perSecond frames per second on average with bursts of up to burst frames.
func NewConnectionHandler(registry Registry, publisher EventPublisher, perSecond float64, burst int, logger types.Logger) *ConnectionHandler {
	return &ConnectionHandler{
		registry:  registry,
		publisher: publisher,
		logger:    logger,
		rateLimit: rate.Limit(perSecond),
		rateBurst: burst,
	}
}

// Session is an open connection.
type Session struct {
	h         *ConnectionHandler
	conn      broadcast.Connection
	limiter   *rate.Limiter
	closeOnce sync.Once
}

// Open registers conn and returns its session.
func (h *ConnectionHandler) Open(conn broadcast.Connection) *Session {
	h.registry.Add(conn)
	h.logger.Info("WebSocket connected",
		"connID", conn.ID(), "userID", conn.UserID(), "chatID", conn.ChatID())

	return &Session{
		h:       h,
		conn:    conn,
		limiter: rate.NewLimiter(h.rateLimit, h.rateBurst),
	}
}

func (s *Session) sender() chat.Sender {
	return chat.Sender{
		ChatID:   s.conn.ChatID(),
		UserID:   s.conn.UserID(),
		Username: s.conn.Username(),
	}
}

// HandleFrame decodes one inbound frame and publishes the resulting event.
// Errors are logged and returned; none of them ends the session.
func (s *Session) HandleFrame(ctx context.Context, data []byte) error {
	err := s.handleFrame(ctx, data)
	if err != nil {
		s.logFrameError(err)
	}
	return err
}

func (s *Session) handleFrame(ctx context.Context, data []byte) error {
	if !s.limiter.Allow() {
		return ErrRateLimited
	}

	frame, err := chat.DecodeFrame(data)
	if err != nil {
		return err
	}

	event, err := frame.Event(s.sender())
	if err != nil {
		return err
	}

	return s.h.publisher.Publish(ctx, event)
}

func (s *Session) logFrameError(err error) {
	args := []any{"connID", s.conn.ID(), "userID", s.conn.UserID(), "chatID", s.conn.ChatID(), "error", err}
	if errors.Is(err, chat.ErrUnknownType) {
		s.h.logger.Debug("Ignoring frame", args...)
		return
	}
	s.h.logger.Warn("Dropping frame", args...)
}

// Close unregisters the connection and publishes a typing_stop event for its
// room so peers clear the user's typing indicator. Only the first call has
// any effect.
func (s *Session) Close(ctx context.Context) {
	s.closeOnce.Do(func() {
		s.h.registry.Remove(s.conn.ID())

		stop := chat.NewTypingEvent(s.conn.ChatID(), s.conn.UserID(), s.conn.Username(), chat.TypeTypingStop)
		if err := s.h.publisher.Publish(ctx, stop); err != nil {
			s.h.logger.Warn("Failed to publish typing_stop on disconnect",
				"connID", s.conn.ID(), "chatID", s.conn.ChatID(), "error", err)
		}

		s.h.logger.Info("WebSocket disconnected",
			"connID", s.conn.ID(), "userID", s.conn.UserID(), "chatID", s.conn.ChatID())
	})
}
