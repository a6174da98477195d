package wsserver

import (
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"

	"github.com/Aryan20apr/PulseChat/modules/broadcast"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// wsConn adapts a Fiber WebSocket connection to broadcast.Connection.
// Outbound frames go through a bounded buffer drained by writePump, which is
// the only goroutine writing to the socket.
type wsConn struct {
	id    string
	ident Identity
	ws    *websocket.Conn

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	writerWg  sync.WaitGroup
}

var _ broadcast.Connection = (*wsConn)(nil)

func newWSConn(id string, ident Identity, ws *websocket.Conn, sendBuffer int) *wsConn {
	return &wsConn{
		id:    id,
		ident: ident,
		ws:    ws,
		send:  make(chan []byte, sendBuffer),
		done:  make(chan struct{}),
	}
}

func (c *wsConn) ID() string       { return c.id }
func (c *wsConn) UserID() string   { return c.ident.UserID }
func (c *wsConn) Username() string { return c.ident.Username }
func (c *wsConn) ChatID() string   { return c.ident.ChatID }

// Send queues data without blocking.
func (c *wsConn) Send(data []byte) error {
	select {
	case <-c.done:
		return broadcast.ErrConnectionClosed
	default:
	}

	select {
	case c.send <- data:
		return nil
	default:
		return broadcast.ErrSendBufferFull
	}
}

// Close stops the writer, which sends a close frame and closes the socket.
// The blocked reader then returns with an error.
func (c *wsConn) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

func (c *wsConn) startWriter() {
	c.writerWg.Add(1)
	go c.writePump()
}

// wait blocks until writePump has exited. The Fiber handler must not return
// before that, since the underlying connection is released afterwards.
func (c *wsConn) wait() {
	c.writerWg.Wait()
}

func (c *wsConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
		c.writerWg.Done()
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		}
	}
}

// readPump feeds inbound text frames to handle until the socket fails or closes.
func (c *wsConn) readPump(maxMessageSize int64, handle func([]byte)) error {
	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, data, err := c.ws.ReadMessage()
		if err != nil {
			return err
		}
		if msgType != websocket.TextMessage {
			continue
		}
		handle(data)
	}
}
