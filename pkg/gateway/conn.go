package gateway

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/echogatelabs/echogate/pkg/frames"
)

// frameSource yields inbound frames in arrival order. Implementations
// map transport read failures to a Disconnect frame; the distinction
// between a clean close and a dropped connection does not matter to the
// session, both end it benignly.
type frameSource interface {
	NextFrame() frames.InboundFrame
}

// messageSink delivers one outbound message to the client, blocking
// until the transport has accepted it. A returned error means the
// connection can no longer take writes.
type messageSink interface {
	WriteMessage(frames.OutboundMessage) error
}

// clientConn is the orchestrator's view of one client connection.
type clientConn interface {
	frameSource
	messageSink
	Close() error
}

// wsConn adapts a gorilla websocket connection to clientConn. The
// forwarder is the only reader and the relay the only steady-state
// writer, which matches gorilla's one-reader/one-writer rule; the
// orchestrator's terminal error message is written only after the relay
// has returned.
type wsConn struct {
	conn        *websocket.Conn
	idleTimeout time.Duration
}

func (c *wsConn) NextFrame() frames.InboundFrame {
	for {
		if c.idleTimeout > 0 {
			_ = c.conn.SetReadDeadline(time.Now().Add(c.idleTimeout))
		}
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			// Covers client close, network failure, and an expired
			// idle deadline alike.
			return frames.NewDisconnectFrame()
		}
		switch msgType {
		case websocket.BinaryMessage:
			return frames.NewBinaryFrame(data)
		case websocket.TextMessage:
			return frames.NewTextFrame(string(data))
		}
	}
}

func (c *wsConn) WriteMessage(msg frames.OutboundMessage) error {
	return c.conn.WriteJSON(msg)
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}
