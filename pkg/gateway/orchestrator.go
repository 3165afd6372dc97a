package gateway

import (
	"context"
	"log/slog"
	"time"

	"github.com/echogatelabs/echogate/pkg/adapters/stt"
	"github.com/echogatelabs/echogate/pkg/errorsx"
	"github.com/echogatelabs/echogate/pkg/frames"
	"github.com/echogatelabs/echogate/pkg/metrics"
	"github.com/echogatelabs/echogate/pkg/session"
)

// sessionOrchestrator owns one client connection from accept to close.
// It opens the upstream stream, runs the audio forwarder and transcript
// relay together, and guarantees the upstream is released however the
// session ends. Client disconnects end the session silently; anything
// else triggers one best-effort error message before teardown.
type sessionOrchestrator struct {
	sessionID string
	conn      clientConn
	stream    stt.Stream
	cfg       session.Config
	stats     session.Stats
	logger    *slog.Logger
	obs       metrics.Observer
}

func newSessionOrchestrator(sessionID string, conn clientConn, stream stt.Stream, cfg session.Config, logger *slog.Logger, obs metrics.Observer) *sessionOrchestrator {
	if obs == nil {
		obs = metrics.NoopObserver{}
	}
	return &sessionOrchestrator{
		sessionID: sessionID,
		conn:      conn,
		stream:    stream,
		cfg:       cfg,
		logger:    logger,
		obs:       obs,
	}
}

func (o *sessionOrchestrator) run(ctx context.Context) {
	o.logger.Info("session_started",
		slog.String("session_id", o.sessionID),
		slog.String("language", o.cfg.LanguageCode),
		slog.Int("sample_rate", o.cfg.SampleRateHz),
		slog.String("encoding", o.cfg.Encoding),
		slog.String("provider", o.stream.Name()))
	o.record(metrics.EventSessionStart, nil)

	if err := o.stream.Start(ctx); err != nil {
		err = errorsx.Wrap(err, errorsx.ReasonSTTConnect)
		o.logger.Error("stt_connect_failed",
			slog.String("session_id", o.sessionID),
			slog.String("reason_code", string(errorsx.Reason(err))),
			slog.String("error", err.Error()))
		o.record(metrics.EventSessionError, map[string]any{"error": err.Error()})
		o.notifyError(err.Error())
		o.closeConn()
		return
	}
	defer func() {
		// Unconditional upstream teardown; Close is idempotent and its
		// failures are not the session's problem.
		_ = o.stream.Close()
	}()

	forwarder := &audioForwarder{
		sessionID: o.sessionID,
		source:    o.conn,
		sink:      o.stream,
		stats:     &o.stats,
		logger:    o.logger,
	}
	relay := &transcriptRelay{
		sessionID: o.sessionID,
		source:    o.stream,
		sink:      o.conn,
		language:  o.cfg.LanguageCode,
		stats:     &o.stats,
		logger:    o.logger,
		obs:       o.obs,
	}

	// Forwarder runs aside; the relay runs here. The relay terminates
	// once the upstream closes its output, which the forwarder's
	// deferred CloseSend guarantees on every one of its exit paths.
	forwardDone := make(chan error, 1)
	go func() {
		forwardDone <- forwarder.run()
	}()

	relayErr := relay.run()
	if relayErr != nil {
		// Upstream stream failure. Notify while the relay is no longer
		// writing, then close the connection to unblock the forwarder's
		// pending read.
		o.notifyError(relayErr.Error())
		o.closeConn()
	}
	forwardErr := <-forwardDone
	if relayErr == nil && forwardErr != nil {
		o.notifyError(forwardErr.Error())
	}

	sessionErr := relayErr
	if sessionErr == nil {
		sessionErr = forwardErr
	}

	attrs := []slog.Attr{
		slog.String("session_id", o.sessionID),
		slog.Int64("frames_in", o.stats.FramesIn),
		slog.Int64("bytes_in", o.stats.BytesIn),
		slog.Int64("partials_out", o.stats.PartialsOut),
		slog.Int64("finals_out", o.stats.FinalsOut),
	}
	if sessionErr != nil {
		attrs = append(attrs,
			slog.String("reason_code", string(errorsx.Reason(sessionErr))),
			slog.String("error", sessionErr.Error()))
	}
	o.logger.LogAttrs(ctx, slog.LevelInfo, "session_closed", attrs...)
	o.record(metrics.EventSessionEnd, map[string]any{
		"frames_in":    o.stats.FramesIn,
		"bytes_in":     o.stats.BytesIn,
		"partials_out": o.stats.PartialsOut,
		"finals_out":   o.stats.FinalsOut,
	})
}

// notifyError makes one attempt to tell the client why the session is
// ending. A failed attempt is logged and forgotten.
func (o *sessionOrchestrator) notifyError(message string) {
	if err := o.conn.WriteMessage(frames.ErrorMessage(message)); err != nil {
		o.logger.Debug("error_notification_failed",
			slog.String("session_id", o.sessionID),
			slog.String("error", err.Error()))
	}
}

func (o *sessionOrchestrator) closeConn() {
	if err := o.conn.Close(); err != nil {
		o.logger.Debug("conn_close_error",
			slog.String("session_id", o.sessionID),
			slog.String("error", err.Error()))
	}
}

func (o *sessionOrchestrator) record(name string, fields map[string]any) {
	o.obs.RecordEvent(metrics.MetricsEvent{
		Name:   name,
		Time:   time.Now(),
		Tags:   map[string]string{"session_id": o.sessionID, "language": o.cfg.LanguageCode},
		Fields: fields,
	})
}
