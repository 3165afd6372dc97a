package deepgram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/echogatelabs/echogate/pkg/adapters/stt"
	"github.com/echogatelabs/echogate/pkg/logging"

	msginterfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket/interfaces"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	client "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
)

// Config selects the Deepgram model and audio format for one stream.
type Config struct {
	APIKey     string
	Model      string
	SessionID  string
	Language   string
	SampleRate int
	Encoding   string
	Interim    bool
}

// Stream adapts the Deepgram live-transcription websocket client to the
// stt.Stream contract. Audio flows through an io.Pipe into the SDK;
// transcripts come back through a callback and are re-shaped into
// stt.Recognition events.
type Stream struct {
	cfg        Config
	dgClient   *client.WSCallback
	out        chan stt.Recognition
	ctx        context.Context
	cancel     context.CancelFunc
	pipeReader *io.PipeReader
	pipeWriter *io.PipeWriter
	logger     *slog.Logger

	closeSend sync.Once
	finish    sync.Once
	stop      sync.Once

	mu        sync.Mutex
	streamErr error
}

// New builds an unstarted stream. Missing sample rate defaults to 16000
// and the model to nova-2.
func New(cfg Config) *Stream {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Model == "" {
		cfg.Model = "nova-2"
	}
	logger := logging.NewComponentLogger(slog.Default(), "deepgram_stt")
	return &Stream{
		cfg:    cfg,
		out:    make(chan stt.Recognition, 256),
		logger: logger,
	}
}

func (s *Stream) Name() string { return "deepgram_streaming" }

// mapEncoding translates the gateway's wire encodings onto Deepgram's.
func mapEncoding(encoding string) string {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "ogg-opus":
		return "opus"
	default:
		return "linear16"
	}
}

func (s *Stream) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.pipeReader, s.pipeWriter = io.Pipe()

	clientOptions := &interfaces.ClientOptions{
		EnableKeepAlive: true,
	}
	transcriptOptions := &interfaces.LiveTranscriptionOptions{
		Model:          s.cfg.Model,
		Language:       s.cfg.Language,
		Encoding:       mapEncoding(s.cfg.Encoding),
		SampleRate:     s.cfg.SampleRate,
		InterimResults: s.cfg.Interim,
		SmartFormat:    true,
	}

	s.logger.Info("initializing deepgram connection",
		slog.String("session_id", s.cfg.SessionID),
		slog.String("model", s.cfg.Model),
		slog.String("language", s.cfg.Language),
		slog.Int("sample_rate", s.cfg.SampleRate),
		slog.String("encoding", transcriptOptions.Encoding))

	cb := &callback{parent: s}
	dgClient, err := client.NewWSUsingCallback(s.ctx, s.cfg.APIKey, clientOptions, transcriptOptions, cb)
	if err != nil {
		s.logger.Error("deepgram_client_create_error",
			slog.String("error", err.Error()),
			slog.String("session_id", s.cfg.SessionID))
		return err
	}
	s.dgClient = dgClient

	if connected := s.dgClient.Connect(); !connected {
		s.logger.Error("deepgram_connect_failed",
			slog.String("session_id", s.cfg.SessionID))
		return fmt.Errorf("deepgram connection failed")
	}

	s.logger.Info("deepgram_connected",
		slog.String("session_id", s.cfg.SessionID),
		slog.String("model", s.cfg.Model))

	go func() {
		if err := s.dgClient.Stream(s.pipeReader); err != nil && s.ctx.Err() == nil {
			s.logger.Error("deepgram_stream_error",
				slog.String("error", err.Error()),
				slog.String("session_id", s.cfg.SessionID))
		}
	}()

	return nil
}

func (s *Stream) Send(chunk []byte) error {
	if s.pipeWriter == nil {
		return fmt.Errorf("not started")
	}
	_, err := s.pipeWriter.Write(chunk)
	if err != nil {
		s.logger.Error("failed to send audio to deepgram",
			slog.String("error", err.Error()),
			slog.String("session_id", s.cfg.SessionID))
	}
	return err
}

// CloseSend ends the audio input so Deepgram flushes buffered results.
// Safe to call repeatedly and from any exit path.
func (s *Stream) CloseSend() error {
	var err error
	s.closeSend.Do(func() {
		if s.pipeWriter != nil {
			err = s.pipeWriter.Close()
		}
		s.logger.Info("audio input closed",
			slog.String("session_id", s.cfg.SessionID))
	})
	return err
}

func (s *Stream) Events() <-chan stt.Recognition { return s.out }

// Err reports the failure that ended the event stream, if any. Only
// meaningful once Events has been closed.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamErr
}

// Close tears down the websocket client. Idempotent; callers may ignore
// the (always nil) error.
func (s *Stream) Close() error {
	s.stop.Do(func() {
		s.logger.Info("closing deepgram connection",
			slog.String("session_id", s.cfg.SessionID))
		if s.cancel != nil {
			s.cancel()
		}
		_ = s.CloseSend()
		if s.dgClient != nil {
			s.dgClient.Stop()
		}
		s.finishStream(nil)
	})
	return nil
}

// finishStream records the terminal error (first one wins) and closes
// the event channel exactly once.
func (s *Stream) finishStream(err error) {
	s.finish.Do(func() {
		if err != nil {
			s.mu.Lock()
			s.streamErr = err
			s.mu.Unlock()
		}
		close(s.out)
	})
}

// emit delivers one recognition in order, blocking under downstream
// back-pressure. The channel buffer bounds how far the relay may lag
// before Deepgram's own reads slow down.
func (s *Stream) emit(rec stt.Recognition) {
	select {
	case s.out <- rec:
	case <-s.ctx.Done():
	}
}

// --- Callback Implementation ---

type callback struct {
	parent *Stream
}

func (c *callback) Open(or *msginterfaces.OpenResponse) error {
	c.parent.logger.Info("deepgram_connection_opened",
		slog.String("session_id", c.parent.cfg.SessionID))
	return nil
}

func (c *callback) Message(mr *msginterfaces.MessageResponse) error {
	if len(mr.Channel.Alternatives) == 0 {
		return nil
	}
	isFinal := mr.IsFinal || mr.SpeechFinal
	result := stt.Result{IsPartial: !isFinal}
	for _, alt := range mr.Channel.Alternatives {
		result.Alternatives = append(result.Alternatives, stt.Alternative{Transcript: alt.Transcript})
	}
	c.parent.emit(stt.Recognition{Results: []stt.Result{result}})
	return nil
}

func (c *callback) Metadata(md *msginterfaces.MetadataResponse) error {
	c.parent.logger.Debug("deepgram_metadata_received",
		slog.String("session_id", c.parent.cfg.SessionID),
		slog.String("request_id", md.RequestID))
	return nil
}

func (c *callback) SpeechStarted(ssr *msginterfaces.SpeechStartedResponse) error {
	return nil
}

func (c *callback) UtteranceEnd(ur *msginterfaces.UtteranceEndResponse) error {
	return nil
}

func (c *callback) Close(cr *msginterfaces.CloseResponse) error {
	c.parent.logger.Info("deepgram_connection_closed",
		slog.String("session_id", c.parent.cfg.SessionID))
	c.parent.finishStream(nil)
	return nil
}

func (c *callback) Error(er *msginterfaces.ErrorResponse) error {
	c.parent.logger.Error("deepgram_error",
		slog.String("session_id", c.parent.cfg.SessionID),
		slog.String("error_code", er.ErrCode),
		slog.String("error_message", er.ErrMsg))
	c.parent.finishStream(fmt.Errorf("deepgram stream error %s: %s", er.ErrCode, er.ErrMsg))
	return nil
}

func (c *callback) UnhandledEvent(byData []byte) error {
	c.parent.logger.Debug("deepgram_unhandled_event",
		slog.String("session_id", c.parent.cfg.SessionID),
		slog.String("data", string(byData)))
	return nil
}

var _ stt.Stream = (*Stream)(nil)
