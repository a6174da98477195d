package relay

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-monolith/mono/pkg/types"
	"github.com/nats-io/nats.go"
)

const (
	subjectPrefix   = "chat."
	subjectSuffix   = ".events"
	subjectWildcard = subjectPrefix + "*" + subjectSuffix

	// flushTimeout bounds a server round trip when the caller's context has no deadline.
	flushTimeout = 5 * time.Second
)

// DialNATS connects to a NATS server.
func DialNATS(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return nc, nil
}

// NATSBus relays messages over core NATS subjects.
//
// NATS subjects use '.' as the token separator and reserve '*' and '>', so a
// room channel maps to "chat.<base64url chatID>.events" and ChannelPattern
// maps to the single-token wildcard "chat.*.events".
type NATSBus struct {
	nc     *nats.Conn
	logger types.Logger

	mu   sync.Mutex
	subs []*nats.Subscription
}

// NewNATSBus creates a bus on top of an existing connection. The bus takes
// ownership of the connection and closes it in Close.
func NewNATSBus(nc *nats.Conn, logger types.Logger) *NATSBus {
	return &NATSBus{
		nc:     nc,
		logger: logger,
	}
}

func channelToSubject(channel string) (string, error) {
	chatID, err := ChatIDFromChannel(channel)
	if err != nil {
		return "", err
	}
	return subjectPrefix + base64.RawURLEncoding.EncodeToString([]byte(chatID)) + subjectSuffix, nil
}

func subjectToChannel(subject string) (string, error) {
	token, ok := strings.CutPrefix(subject, subjectPrefix)
	if ok {
		token, ok = strings.CutSuffix(token, subjectSuffix)
	}
	if !ok {
		return "", fmt.Errorf("%w: subject %q", ErrInvalidChannel, subject)
	}
	chatID, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("%w: subject %q: %w", ErrInvalidChannel, subject, err)
	}
	return RoomChannel(string(chatID)), nil
}

// Publish sends payload to the subject for channel.
func (b *NATSBus) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	subject, err := channelToSubject(channel)
	if err != nil {
		return err
	}
	return b.nc.Publish(subject, payload)
}

// Subscribe supports ChannelPattern only. NATS runs the callback for one
// subscription on a single goroutine, so messages arrive in order.
func (b *NATSBus) Subscribe(ctx context.Context, pattern string, handler Handler) error {
	if pattern != ChannelPattern {
		return fmt.Errorf("%w: unsupported pattern %q", ErrInvalidChannel, pattern)
	}

	sub, err := b.nc.Subscribe(subjectWildcard, func(msg *nats.Msg) {
		channel, err := subjectToChannel(msg.Subject)
		if err != nil {
			b.logger.Warn("Dropping message on unexpected subject", "subject", msg.Subject, "error", err)
			return
		}
		safeHandle(b.logger, handler, channel, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subjectWildcard, err)
	}

	// Make sure the server has registered interest before returning.
	if err := b.flush(ctx); err != nil {
		_ = sub.Unsubscribe()
		return fmt.Errorf("subscribe %s: %w", subjectWildcard, err)
	}

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	b.logger.Info("Subscribed to NATS subjects", "subject", subjectWildcard)
	return nil
}

// Ping round-trips to the server.
func (b *NATSBus) Ping(ctx context.Context) error {
	if !b.nc.IsConnected() {
		return ErrBusUnavailable
	}
	return b.flush(ctx)
}

// flush round-trips to the server. FlushWithContext rejects contexts without
// a deadline, so one is added when missing.
func (b *NATSBus) flush(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, flushTimeout)
		defer cancel()
	}
	return b.nc.FlushWithContext(ctx)
}

// Close unsubscribes and closes the connection.
func (b *NATSBus) Close() error {
	b.mu.Lock()
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()

	for _, sub := range subs {
		if err := sub.Unsubscribe(); err != nil && b.nc.IsConnected() {
			b.logger.Warn("Error unsubscribing", "subject", sub.Subject, "error", err)
		}
	}
	b.nc.Close()
	return nil
}
