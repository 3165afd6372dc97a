package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/echogatelabs/echogate/pkg/adapters/stt"
)

// STTConfig scripts a fake recognition stream. Script events are flushed
// once the audio input is closed, mirroring how a real vendor buffers
// trailing results until end-of-audio.
type STTConfig struct {
	SessionID string
	Script    []stt.Recognition
	StartErr  error
	SendErr   error
	StreamErr error
}

// Stream is a scripted stt.Stream used in tests and as the "mock" vendor
// in development configs.
type Stream struct {
	cfg stt.Config
	mk  STTConfig
	out chan stt.Recognition

	mu             sync.Mutex
	started        bool
	flushed        bool
	closeSendCalls int
	sentFrames     int
	sentBytes      int
	streamErr      error
}

func NewSTT(mk STTConfig, cfg stt.Config) *Stream {
	return &Stream{
		cfg: cfg,
		mk:  mk,
		out: make(chan stt.Recognition, 16),
	}
}

func (s *Stream) Name() string { return "mock_stt" }

func (s *Stream) Start(ctx context.Context) error {
	if s.mk.StartErr != nil {
		return s.mk.StartErr
	}
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()
	return nil
}

func (s *Stream) Send(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return errors.New("not started")
	}
	if s.mk.SendErr != nil {
		return s.mk.SendErr
	}
	s.sentFrames++
	s.sentBytes += len(chunk)
	return nil
}

// CloseSend flushes the scripted events and closes the output. Extra
// calls only bump the counter so tests can assert close-exactly-once.
func (s *Stream) CloseSend() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeSendCalls++
	if s.flushed {
		return nil
	}
	s.flushed = true
	for _, rec := range s.mk.Script {
		s.out <- rec
	}
	s.streamErr = s.mk.StreamErr
	close(s.out)
	return nil
}

func (s *Stream) Events() <-chan stt.Recognition { return s.out }

func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamErr
}

func (s *Stream) Close() error { return nil }

// FailStream closes the event channel with an error immediately, as a
// vendor would mid-session. Test hook.
func (s *Stream) FailStream(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.flushed {
		return
	}
	s.flushed = true
	s.streamErr = err
	close(s.out)
}

// CloseSendCalls reports how many times CloseSend was invoked.
func (s *Stream) CloseSendCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeSendCalls
}

// SentFrames reports how many audio chunks reached the sink.
func (s *Stream) SentFrames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sentFrames
}

// SentBytes reports the total audio bytes that reached the sink.
func (s *Stream) SentBytes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sentBytes
}

var _ stt.Stream = (*Stream)(nil)
