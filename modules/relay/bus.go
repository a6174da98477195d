package relay

import (
	"context"
	"fmt"

	"github.com/go-monolith/mono/pkg/types"
)

// Handler receives one bus message with the channel it was published to.
type Handler func(channel string, payload []byte)

// Bus is a publish/subscribe transport shared by every server process.
type Bus interface {
	// Publish sends payload to channel. It returns once the transport has
	// accepted the message and does not wait for subscribers.
	Publish(ctx context.Context, channel string, payload []byte) error
	// Subscribe invokes handler for every message whose channel matches pattern.
	// Messages from one subscription are delivered sequentially.
	Subscribe(ctx context.Context, pattern string, handler Handler) error
	// Ping reports whether the transport is reachable.
	Ping(ctx context.Context) error
	Close() error
}

// safeHandle runs handler and logs a panic instead of ending the receive loop.
func safeHandle(logger types.Logger, handler Handler, channel string, payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Relay handler panic", "channel", channel, "error", fmt.Errorf("%v", r))
		}
	}()
	handler(channel, payload)
}
