package gateway

import (
	"log/slog"
	"strings"

	"github.com/echogatelabs/echogate/pkg/errorsx"
	"github.com/echogatelabs/echogate/pkg/frames"
	"github.com/echogatelabs/echogate/pkg/session"
)

// endSignal is the text control frame a client sends to mark
// end-of-audio. Matched case-insensitively after trimming.
const endSignal = "END"

// frameLogEvery throttles the forwarding trace to every Nth frame.
const frameLogEvery = 50

// audioSink is the write side of the upstream recognition stream.
type audioSink interface {
	Send(chunk []byte) error
	CloseSend() error
}

// audioForwarder drains inbound frames from the client and pushes audio
// chunks to the upstream sink, in order, until the client disconnects,
// signals END, or a push fails. Whatever ends the loop, the sink is
// closed exactly once so the upstream flushes its buffered results.
type audioForwarder struct {
	sessionID string
	source    frameSource
	sink      audioSink
	stats     *session.Stats
	logger    *slog.Logger
}

func (f *audioForwarder) run() error {
	defer func() {
		if cerr := f.sink.CloseSend(); cerr != nil {
			// Best-effort cleanup; a close failure must not take the
			// session down.
			f.logger.Debug("audio_sink_close_error",
				slog.String("session_id", f.sessionID),
				slog.String("error", cerr.Error()))
		}
		f.logger.Info("audio_input_closed",
			slog.String("session_id", f.sessionID),
			slog.Int64("frames_in", f.stats.FramesIn),
			slog.Int64("bytes_in", f.stats.BytesIn))
	}()

	for {
		frame := f.source.NextFrame()
		switch frame.Kind() {
		case frames.KindDisconnect:
			f.logger.Info("client_disconnected",
				slog.String("session_id", f.sessionID))
			return nil
		case frames.KindBinary:
			chunk := frame.Data()
			count := f.stats.CountFrame(len(chunk))
			if count%frameLogEvery == 0 {
				f.logger.Debug("audio_forwarded",
					slog.String("session_id", f.sessionID),
					slog.Int64("frames_in", count),
					slog.Int64("bytes_in", f.stats.BytesIn))
			}
			if err := f.sink.Send(chunk); err != nil {
				return errorsx.Wrap(err, errorsx.ReasonSTTSend)
			}
		case frames.KindText:
			signal := strings.TrimSpace(frame.Text())
			f.logger.Debug("control_frame_received",
				slog.String("session_id", f.sessionID),
				slog.String("signal", signal))
			if strings.EqualFold(signal, endSignal) {
				f.logger.Info("end_signal_received",
					slog.String("session_id", f.sessionID))
				return nil
			}
			// Unrecognized control strings are ignored.
		}
	}
}
