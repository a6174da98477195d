package relay

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder collects messages delivered to a Handler.
type recorder struct {
	mu       sync.Mutex
	channels []string
	payloads []string
}

func (r *recorder) handle(channel string, payload []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels = append(r.channels, channel)
	r.payloads = append(r.payloads, string(payload))
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.channels)
}

func (r *recorder) snapshot() ([]string, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.channels...), append([]string(nil), r.payloads...)
}

func TestMemoryBus_PublishSubscribe(t *testing.T) {
	bus := NewMemoryBus(&mockLogger{})
	defer bus.Close()
	ctx := context.Background()

	first, second := &recorder{}, &recorder{}
	require.NoError(t, bus.Subscribe(ctx, ChannelPattern, first.handle))
	require.NoError(t, bus.Subscribe(ctx, RoomChannel("general"), second.handle))

	require.NoError(t, bus.Publish(ctx, RoomChannel("general"), []byte(`{"n":1}`)))
	require.NoError(t, bus.Publish(ctx, RoomChannel("other"), []byte(`{"n":2}`)))
	require.NoError(t, bus.Publish(ctx, "unrelated", []byte(`{"n":3}`)))

	require.Eventually(t, func() bool { return first.len() == 2 && second.len() == 1 },
		time.Second, 5*time.Millisecond)

	channels, payloads := first.snapshot()
	assert.Equal(t, []string{RoomChannel("general"), RoomChannel("other")}, channels)
	assert.Equal(t, []string{`{"n":1}`, `{"n":2}`}, payloads)
}

func TestMemoryBus_PreservesPublishOrder(t *testing.T) {
	bus := NewMemoryBus(&mockLogger{})
	defer bus.Close()
	ctx := context.Background()

	rec := &recorder{}
	require.NoError(t, bus.Subscribe(ctx, ChannelPattern, rec.handle))

	const n = 100
	for i := 0; i < n; i++ {
		require.NoError(t, bus.Publish(ctx, RoomChannel("r"), []byte(fmt.Sprint(i))))
	}

	require.Eventually(t, func() bool { return rec.len() == n }, time.Second, 5*time.Millisecond)
	_, payloads := rec.snapshot()
	for i, p := range payloads {
		assert.Equal(t, fmt.Sprint(i), p)
	}
}

func TestMemoryBus_HandlerPanicDoesNotStopDispatch(t *testing.T) {
	bus := NewMemoryBus(&mockLogger{})
	defer bus.Close()
	ctx := context.Background()

	rec := &recorder{}
	require.NoError(t, bus.Subscribe(ctx, ChannelPattern, func(channel string, payload []byte) {
		if string(payload) == "boom" {
			panic("boom")
		}
		rec.handle(channel, payload)
	}))

	require.NoError(t, bus.Publish(ctx, RoomChannel("r"), []byte("boom")))
	require.NoError(t, bus.Publish(ctx, RoomChannel("r"), []byte("ok")))

	require.Eventually(t, func() bool { return rec.len() == 1 }, time.Second, 5*time.Millisecond)
}

func TestMemoryBus_Closed(t *testing.T) {
	bus := NewMemoryBus(&mockLogger{})
	ctx := context.Background()

	require.NoError(t, bus.Ping(ctx))
	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close(), "Close should be idempotent")

	assert.ErrorIs(t, bus.Publish(ctx, RoomChannel("r"), []byte("x")), ErrBusUnavailable)
	assert.ErrorIs(t, bus.Subscribe(ctx, ChannelPattern, func(string, []byte) {}), ErrBusUnavailable)
	assert.ErrorIs(t, bus.Ping(ctx), ErrBusUnavailable)
}
