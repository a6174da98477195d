package relay

import (
	"context"
	"strings"
	"sync"

	"github.com/go-monolith/mono/pkg/types"
)

type memoryMessage struct {
	channel string
	payload []byte
}

type memorySubscription struct {
	pattern string
	handler Handler
}

// MemoryBus is an in-process bus for single-process deployments and tests.
// Messages are dispatched in publish order by a single goroutine.
type MemoryBus struct {
	logger types.Logger
	queue  chan memoryMessage
	done   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup

	mu   sync.RWMutex
	subs []memorySubscription
}

// NewMemoryBus creates and starts a MemoryBus.
func NewMemoryBus(logger types.Logger) *MemoryBus {
	b := &MemoryBus{
		logger: logger,
		queue:  make(chan memoryMessage, 1024),
		done:   make(chan struct{}),
	}
	b.wg.Add(1)
	go b.run()
	return b
}

func (b *MemoryBus) run() {
	defer b.wg.Done()
	for {
		select {
		case <-b.done:
			return
		case msg := <-b.queue:
			b.dispatch(msg)
		}
	}
}

func (b *MemoryBus) dispatch(msg memoryMessage) {
	b.mu.RLock()
	subs := b.subs
	b.mu.RUnlock()

	for _, sub := range subs {
		if globMatch(sub.pattern, msg.channel) {
			safeHandle(b.logger, sub.handler, msg.channel, msg.payload)
		}
	}
}

// Publish queues payload for dispatch. It blocks only while the queue is full.
func (b *MemoryBus) Publish(ctx context.Context, channel string, payload []byte) error {
	select {
	case <-b.done:
		return ErrBusUnavailable
	default:
	}

	msg := memoryMessage{channel: channel, payload: append([]byte(nil), payload...)}
	select {
	case b.queue <- msg:
		return nil
	case <-b.done:
		return ErrBusUnavailable
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe registers handler for channels matching pattern. '*' in the
// pattern matches any run of characters, as in Redis PSUBSCRIBE.
func (b *MemoryBus) Subscribe(_ context.Context, pattern string, handler Handler) error {
	select {
	case <-b.done:
		return ErrBusUnavailable
	default:
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	// Copy on write so dispatch can iterate without holding the lock.
	subs := make([]memorySubscription, len(b.subs), len(b.subs)+1)
	copy(subs, b.subs)
	b.subs = append(subs, memorySubscription{pattern: pattern, handler: handler})
	return nil
}

// Ping reports ErrBusUnavailable after Close.
func (b *MemoryBus) Ping(_ context.Context) error {
	select {
	case <-b.done:
		return ErrBusUnavailable
	default:
		return nil
	}
}

// Close stops dispatching. Queued messages that were not yet dispatched are dropped.
func (b *MemoryBus) Close() error {
	b.once.Do(func() {
		close(b.done)
		b.wg.Wait()
	})
	return nil
}

// globMatch reports whether s matches pattern, where '*' matches any
// sequence of characters and every other byte matches itself.
func globMatch(pattern, s string) bool {
	parts := strings.Split(pattern, "*")
	if len(parts) == 1 {
		return pattern == s
	}

	rest, ok := strings.CutPrefix(s, parts[0])
	if !ok {
		return false
	}
	last := parts[len(parts)-1]
	for _, part := range parts[1 : len(parts)-1] {
		i := strings.Index(rest, part)
		if i < 0 {
			return false
		}
		rest = rest[i+len(part):]
	}
	return len(rest) >= len(last) && strings.HasSuffix(rest, last)
}
