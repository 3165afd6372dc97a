package gateway

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/echogatelabs/echogate/pkg/adapters/stt"
	"github.com/echogatelabs/echogate/pkg/frames"
	"github.com/echogatelabs/echogate/pkg/metrics"
	"github.com/echogatelabs/echogate/pkg/providers/mock"
	"github.com/echogatelabs/echogate/pkg/session"
)

// fakeConn is an in-memory clientConn. The forwarder reads frames from
// one goroutine while the relay writes messages from another, so all
// state sits behind one mutex.
type fakeConn struct {
	mu       sync.Mutex
	frames   []frames.InboundFrame
	next     int
	messages []frames.OutboundMessage
	closed   bool
}

func (c *fakeConn) NextFrame() frames.InboundFrame {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.next >= len(c.frames) {
		return frames.NewDisconnectFrame()
	}
	f := c.frames[c.next]
	c.next++
	return f
}

func (c *fakeConn) WriteMessage(msg frames.OutboundMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("write on closed conn")
	}
	c.messages = append(c.messages, msg)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) sent() []frames.OutboundMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]frames.OutboundMessage, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *fakeConn) framesRead() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.next
}

func sessionConfig() session.Config {
	return session.Config{LanguageCode: "fr-FR", SampleRateHz: 16000, Encoding: "pcm"}
}

func TestOrchestratorHappyPath(t *testing.T) {
	chunk := make([]byte, 320)
	conn := &fakeConn{frames: []frames.InboundFrame{
		frames.NewBinaryFrame(chunk),
		frames.NewBinaryFrame(chunk),
		frames.NewBinaryFrame(chunk),
		frames.NewTextFrame("END"),
	}}
	stream := mock.NewSTT(mock.STTConfig{Script: []stt.Recognition{
		partialRec("bon"),
		finalRec("bonjour"),
	}}, stt.Config{SessionID: "s1"})
	obs := metrics.NewMemoryObserver()

	o := newSessionOrchestrator("s1", conn, stream, sessionConfig(), slog.Default(), obs)
	o.run(context.Background())

	got := conn.sent()
	if len(got) != 2 {
		t.Fatalf("messages = %d, want 2", len(got))
	}
	if got[0].Type != frames.TypePartial || got[0].Text != "bon" {
		t.Fatalf("first message = %+v", got[0])
	}
	if got[1].Type != frames.TypeFinal || got[1].Text != "bonjour" {
		t.Fatalf("second message = %+v", got[1])
	}
	if o.stats.FramesIn != 3 || o.stats.BytesIn != 960 || o.stats.PartialsOut != 1 || o.stats.FinalsOut != 1 {
		t.Fatalf("stats = %+v", o.stats)
	}
	if calls := stream.CloseSendCalls(); calls != 1 {
		t.Fatalf("close send calls = %d, want 1", calls)
	}

	var names []string
	for _, ev := range obs.Snapshot() {
		names = append(names, ev.Name)
	}
	if names[0] != metrics.EventSessionStart || names[len(names)-1] != metrics.EventSessionEnd {
		t.Fatalf("metrics events = %v", names)
	}
}

func TestOrchestratorStartFailure(t *testing.T) {
	conn := &fakeConn{frames: []frames.InboundFrame{
		frames.NewBinaryFrame(make([]byte, 320)),
	}}
	stream := mock.NewSTT(mock.STTConfig{StartErr: errors.New("dial refused")}, stt.Config{SessionID: "s2"})
	obs := metrics.NewMemoryObserver()

	o := newSessionOrchestrator("s2", conn, stream, sessionConfig(), slog.Default(), obs)
	o.run(context.Background())

	got := conn.sent()
	if len(got) != 1 || got[0].Type != frames.TypeError {
		t.Fatalf("messages = %+v, want one error message", got)
	}
	if conn.framesRead() != 0 {
		t.Fatalf("frames read = %d, want 0", conn.framesRead())
	}

	var sawError bool
	for _, ev := range obs.Snapshot() {
		if ev.Name == metrics.EventSessionError {
			sawError = true
		}
	}
	if !sawError {
		t.Fatal("missing session_error metrics event")
	}
}

func TestOrchestratorDisconnectIsSilent(t *testing.T) {
	conn := &fakeConn{frames: []frames.InboundFrame{
		frames.NewBinaryFrame(make([]byte, 320)),
	}}
	stream := mock.NewSTT(mock.STTConfig{}, stt.Config{SessionID: "s3"})

	o := newSessionOrchestrator("s3", conn, stream, sessionConfig(), slog.Default(), nil)
	o.run(context.Background())

	if got := conn.sent(); len(got) != 0 {
		t.Fatalf("messages = %+v, want none", got)
	}
	if o.stats.FramesIn != 1 {
		t.Fatalf("frames in = %d, want 1", o.stats.FramesIn)
	}
}

func TestOrchestratorUpstreamFailure(t *testing.T) {
	conn := &fakeConn{frames: []frames.InboundFrame{
		frames.NewBinaryFrame(make([]byte, 320)),
		frames.NewTextFrame("END"),
	}}
	stream := mock.NewSTT(mock.STTConfig{StreamErr: errors.New("vendor went away")}, stt.Config{SessionID: "s4"})

	o := newSessionOrchestrator("s4", conn, stream, sessionConfig(), slog.Default(), nil)
	o.run(context.Background())

	got := conn.sent()
	if len(got) != 1 || got[0].Type != frames.TypeError {
		t.Fatalf("messages = %+v, want one error message", got)
	}
	conn.mu.Lock()
	closed := conn.closed
	conn.mu.Unlock()
	if !closed {
		t.Fatal("connection not closed after upstream failure")
	}
}
