package relay

import (
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono/pkg/types"
)

// Deliverer writes an event to the connections this process holds for a room.
type Deliverer interface {
	DeliverLocally(chatID string, payload any) int
}

// Listener routes bus messages to local connections.
//
// Payloads are decoded into a generic field map; the listener only needs the
// channel to route and forwards the fields untouched.
type Listener struct {
	deliverer Deliverer
	logger    types.Logger
}

// NewListener creates a Listener delivering to d.
func NewListener(d Deliverer, logger types.Logger) *Listener {
	return &Listener{
		deliverer: d,
		logger:    logger,
	}
}

// Handle is a Handler. Malformed channels and payloads are logged and dropped.
func (l *Listener) Handle(channel string, payload []byte) {
	chatID, err := ChatIDFromChannel(channel)
	if err != nil {
		l.logger.Warn("Dropping relay message", "channel", channel, "error", err)
		return
	}

	var fields map[string]any
	if err := json.Unmarshal(payload, &fields); err != nil {
		l.logger.Warn("Dropping relay message",
			"channel", channel,
			"error", fmt.Errorf("%w: %w", ErrListenerDecode, err))
		return
	}
	if fields == nil {
		l.logger.Warn("Dropping relay message",
			"channel", channel,
			"error", fmt.Errorf("%w: null payload", ErrListenerDecode))
		return
	}

	n := l.deliverer.DeliverLocally(chatID, fields)
	l.logger.Debug("Relayed event", "chatID", chatID, "type", fields["type"], "recipients", n)
}
