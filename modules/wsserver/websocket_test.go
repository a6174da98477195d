package wsserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	fws "github.com/fasthttp/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aryan20apr/PulseChat/domain/chat"
	"github.com/Aryan20apr/PulseChat/modules/broadcast"
	"github.com/Aryan20apr/PulseChat/modules/relay"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func startServer(t *testing.T) (*Module, *broadcast.Hub, string) {
	t.Helper()

	bus := relay.NewMemoryBus(&mockLogger{})
	t.Cleanup(func() { _ = bus.Close() })

	hub := broadcast.NewHub(&mockLogger{})
	rm := relay.NewModuleWithBus(bus, hub, &mockLogger{})
	require.NoError(t, rm.Start(context.Background()))

	cfg := testConfig()
	cfg.Addr = freeAddr(t)
	m := NewModule(cfg, hub, rm, rm, &mockLogger{})
	require.NoError(t, m.Start(context.Background()))

	return m, hub, cfg.Addr
}

func dial(t *testing.T, addr, query string) *fws.Conn {
	t.Helper()
	conn, _, err := fws.DefaultDialer.Dial(fmt.Sprintf("ws://%s/ws?%s", addr, query), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *fws.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev map[string]any
	require.NoError(t, json.Unmarshal(data, &ev))
	return ev
}

func TestWebSocket_EndToEnd(t *testing.T) {
	m, hub, addr := startServer(t)

	alice := dial(t, addr, "userId=alice&username=Alice&chatId=R")
	bob := dial(t, addr, "userId=bob&username=Bob&chatId=R")
	require.Eventually(t, func() bool { return hub.Count() == 2 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, alice.WriteMessage(fws.TextMessage, []byte(`garbage`)))
	require.NoError(t, alice.WriteMessage(fws.TextMessage, []byte(`{"type":"typing_start"}`)))

	for _, c := range []*fws.Conn{alice, bob} {
		ev := readEvent(t, c)
		assert.Equal(t, chat.TypeTypingStart, ev["type"])
		assert.Equal(t, "alice", ev["userId"])
		assert.Equal(t, "Alice", ev["username"])
		assert.Equal(t, "R", ev["chatId"])
	}

	require.NoError(t, alice.WriteMessage(fws.TextMessage, []byte(`{"type":"message","content":"hello"}`)))
	ev := readEvent(t, bob)
	assert.Equal(t, chat.TypeMessage, ev["type"])
	assert.Equal(t, "hello", ev["content"])

	// Alice disconnects; Bob sees her typing indicator cleared.
	require.NoError(t, alice.Close())
	ev = readEvent(t, bob)
	assert.Equal(t, chat.TypeTypingStop, ev["type"])
	assert.Equal(t, "alice", ev["userId"])
	require.Eventually(t, func() bool { return hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.Stop(ctx))
	assert.Zero(t, hub.Count())

	require.NoError(t, bob.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := bob.ReadMessage()
	assert.True(t, fws.IsCloseError(err, fws.CloseGoingAway), "expected going-away close, got %v", err)
}

func TestWebSocket_DefaultIdentity(t *testing.T) {
	m, hub, addr := startServer(t)
	defer m.Stop(context.Background())

	dial(t, addr, "")
	require.Eventually(t, func() bool { return hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	conns := hub.Snapshot()
	require.Len(t, conns, 1)
	assert.Equal(t, "general", conns[0].ChatID())
	assert.Equal(t, "Anonymous", conns[0].Username())
	assert.Equal(t, "anonymous_"+conns[0].ID(), conns[0].UserID())
}

func TestWebSocket_LargeValidMessageKeepsConnectionOpen(t *testing.T) {
	m, hub, addr := startServer(t)
	defer m.Stop(context.Background())

	alice := dial(t, addr, "userId=alice&chatId=R")
	require.Eventually(t, func() bool { return hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	content := strings.Repeat("a", 4500)
	frame, err := json.Marshal(map[string]string{"type": chat.TypeMessage, "content": content})
	require.NoError(t, err)
	require.NoError(t, alice.WriteMessage(fws.TextMessage, frame))

	ev := readEvent(t, alice)
	assert.Equal(t, chat.TypeMessage, ev["type"])
	assert.Equal(t, content, ev["content"])
	assert.Equal(t, 1, hub.Count())

	// The connection is still usable afterwards.
	require.NoError(t, alice.WriteMessage(fws.TextMessage, []byte(`{"type":"typing_start"}`)))
	assert.Equal(t, chat.TypeTypingStart, readEvent(t, alice)["type"])
}
