// Package testutil provides test helpers including a WebSocket test client
// for integration testing the transport.
package testutil

import (
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ashenvale/coop/internal/protocol"
)

// WSClient is a WebSocket test client speaking the sync protocol.
type WSClient struct {
	conn *websocket.Conn
	t    *testing.T
}

// DialWS connects to the given HTTP URL's /ws endpoint and returns a test
// client. An http:// or https:// prefix is rewritten to the ws scheme.
//
// Precondition: url must point at a running server.
// Postcondition: Returns a connected WSClient or fails the test.
func DialWS(t *testing.T, url string) *WSClient {
	t.Helper()
	start := time.Now()

	wsURL := strings.Replace(url, "http", "ws", 1) + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dialing %s: %v [%s]", wsURL, err, time.Since(start))
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	t.Cleanup(func() {
		_ = conn.Close()
	})

	return &WSClient{conn: conn, t: t}
}

// Send encodes and writes one inbound event.
//
// Postcondition: The event frame is written, or the test fails.
func (c *WSClient) Send(evt protocol.Inbound) {
	c.t.Helper()
	data, err := protocol.EncodeInbound(evt)
	if err != nil {
		c.t.Fatalf("encoding %T: %v", evt, err)
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		c.t.Fatalf("sending %T: %v", evt, err)
	}
}

// Recv reads and decodes one outbound event, failing the test on timeout.
func (c *WSClient) Recv(timeout time.Duration) protocol.Outbound {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(timeout))
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		c.t.Fatalf("reading frame: %v", err)
	}
	evt, err := protocol.DecodeOutbound(data)
	if err != nil {
		c.t.Fatalf("decoding frame %q: %v", data, err)
	}
	return evt
}

// RecvUntil reads events until match returns true or the timeout elapses,
// returning the matching event. Events that do not match are discarded,
// which lets tests skip interleaved unreliable traffic.
func (c *WSClient) RecvUntil(timeout time.Duration, match func(protocol.Outbound) bool) protocol.Outbound {
	c.t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			c.t.Fatalf("no matching event within %s", timeout)
		}
		evt := c.Recv(remaining)
		if match(evt) {
			return evt
		}
	}
}

// Close closes the connection from the client side.
func (c *WSClient) Close() {
	_ = c.conn.Close()
}
