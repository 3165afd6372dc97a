package gateway

import (
	"log/slog"
	"strings"
	"time"

	"github.com/echogatelabs/echogate/pkg/adapters/stt"
	"github.com/echogatelabs/echogate/pkg/errorsx"
	"github.com/echogatelabs/echogate/pkg/frames"
	"github.com/echogatelabs/echogate/pkg/metrics"
	"github.com/echogatelabs/echogate/pkg/redact"
	"github.com/echogatelabs/echogate/pkg/session"
)

// partialLogEvery throttles the partial-transcript trace to every Nth.
const partialLogEvery = 10

// eventSource is the read side of the upstream recognition stream.
type eventSource interface {
	Events() <-chan stt.Recognition
	Err() error
}

// transcriptRelay drains recognition events from the upstream stream and
// sends each non-blank alternative to the client as a partial or final
// message. Sends are awaited one at a time, so a slow client naturally
// throttles how fast upstream events are consumed.
type transcriptRelay struct {
	sessionID string
	source    eventSource
	sink      messageSink
	language  string
	stats     *session.Stats
	logger    *slog.Logger
	obs       metrics.Observer
}

func (r *transcriptRelay) run() error {
	for rec := range r.source.Events() {
		for _, result := range rec.Results {
			isFinal := !result.IsPartial
			for _, alt := range result.Alternatives {
				text := strings.TrimSpace(alt.Transcript)
				if text == "" {
					continue
				}
				var msg frames.OutboundMessage
				if isFinal {
					msg = frames.FinalMessage(text, r.language)
				} else {
					msg = frames.PartialMessage(text, r.language)
				}
				if err := r.sink.WriteMessage(msg); err != nil {
					// The client stopped reading; that ends the relay
					// but is not a session failure.
					r.logger.Info("client_write_failed",
						slog.String("session_id", r.sessionID),
						slog.String("error", err.Error()))
					return nil
				}
				if isFinal {
					count := r.stats.CountFinal()
					r.logger.Debug("final_transcript",
						slog.String("session_id", r.sessionID),
						slog.Int64("seq", count),
						slog.String("text", clipText(redact.Text(text))))
					r.record(metrics.EventFinal)
				} else {
					count := r.stats.CountPartial()
					if count%partialLogEvery == 0 {
						r.logger.Debug("partial_transcript",
							slog.String("session_id", r.sessionID),
							slog.Int64("seq", count),
							slog.String("text", clipText(redact.Text(text))))
					}
					r.record(metrics.EventPartial)
				}
			}
		}
	}
	if err := r.source.Err(); err != nil {
		return errorsx.Wrap(err, errorsx.ReasonSTTStream)
	}
	return nil
}

func (r *transcriptRelay) record(name string) {
	if r.obs == nil {
		return
	}
	r.obs.RecordEvent(metrics.MetricsEvent{
		Name: name,
		Time: time.Now(),
		Tags: map[string]string{"session_id": r.sessionID, "language": r.language},
	})
}

func clipText(text string) string {
	text = strings.TrimSpace(text)
	if len(text) <= 120 {
		return text
	}
	return text[:120] + "..."
}
