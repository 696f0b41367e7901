package ws

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ashenvale/coop/internal/gameserver"
	"github.com/ashenvale/coop/internal/protocol"
)

const (
	// reliableQueueSize must absorb a full scene catch-up burst.
	reliableQueueSize = 256
	// unreliableQueueSize stays small: stale ticks are better dropped.
	unreliableQueueSize = 64

	writeTimeout = 10 * time.Second
	maxFrameSize = 64 * 1024
)

func errUnknownConn(connID string) error {
	return fmt.Errorf("connection %q not found", connID)
}

// conn is one WebSocket connection with its two outbound queues. A single
// writer goroutine drains both, preferring the reliable queue, which keeps
// reliable frames ordered per connection.
type conn struct {
	id     string
	sock   *websocket.Conn
	server *Server
	logger *zap.Logger

	reliable   chan []byte
	unreliable chan []byte
	done       chan struct{}
	closeOnce  sync.Once
}

func newConn(id string, sock *websocket.Conn, server *Server) *conn {
	return &conn{
		id:         id,
		sock:       sock,
		server:     server,
		logger:     server.logger.With(zap.String("conn_id", id)),
		reliable:   make(chan []byte, reliableQueueSize),
		unreliable: make(chan []byte, unreliableQueueSize),
		done:       make(chan struct{}),
	}
}

// readLoop decodes inbound frames into envelopes until the socket errors or
// closes. A malformed frame is skipped, not fatal. Blocking on Deliver is
// deliberate: a full dispatcher inbox backpressures the client instead of
// dropping its events.
func (c *conn) readLoop() {
	defer c.teardown()

	c.sock.SetReadLimit(maxFrameSize)
	for {
		_, data, err := c.sock.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("read failed", zap.Error(err))
			}
			return
		}

		evt, err := protocol.DecodeInbound(data)
		if err != nil {
			c.logger.Warn("malformed frame skipped", zap.Error(err))
			continue
		}
		c.server.sink.Deliver(gameserver.Envelope{ConnID: c.id, Event: evt})
	}
}

// writeLoop drains both queues onto the socket, reliable first.
func (c *conn) writeLoop() {
	for {
		// Prefer reliable frames when both queues have data.
		select {
		case data := <-c.reliable:
			if !c.write(data) {
				return
			}
			continue
		default:
		}

		select {
		case <-c.done:
			return
		case data := <-c.reliable:
			if !c.write(data) {
				return
			}
		case data := <-c.unreliable:
			if !c.write(data) {
				return
			}
		}
	}
}

func (c *conn) write(data []byte) bool {
	_ = c.sock.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.sock.WriteMessage(websocket.TextMessage, data); err != nil {
		c.logger.Debug("write failed", zap.Error(err))
		c.teardown()
		return false
	}
	return true
}

// enqueueReliable queues a must-not-lose frame. Overflow means the client
// cannot keep up with guaranteed traffic, so the connection is torn down.
func (c *conn) enqueueReliable(data []byte) error {
	select {
	case <-c.done:
		return fmt.Errorf("connection %q closed", c.id)
	default:
	}

	select {
	case c.reliable <- data:
		return nil
	case <-c.done:
		return fmt.Errorf("connection %q closed", c.id)
	default:
		c.teardown()
		return fmt.Errorf("connection %q reliable queue full", c.id)
	}
}

// enqueueUnreliable queues a loss-tolerant frame, dropping it silently when
// the queue is full.
func (c *conn) enqueueUnreliable(data []byte) {
	select {
	case c.unreliable <- data:
	case <-c.done:
	default:
	}
}

// teardown closes the connection exactly once: the socket is closed, the
// connection unregistered, and a Disconnect envelope synthesized so the
// dispatcher runs its normal removal path. The delivery is asynchronous
// because teardown can run on the dispatcher's own goroutine mid-fan-out.
func (c *conn) teardown() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.sock != nil {
			_ = c.sock.Close()
		}
		if c.server == nil {
			return
		}
		c.server.dropConn(c.id)
		go c.server.sink.Deliver(gameserver.Envelope{ConnID: c.id, Event: protocol.Disconnect{}})
		c.logger.Info("connection closed")
	})
}
