package metrics

import "time"

// Event names recorded by the gateway.
const (
	EventSessionStart = "session_start"
	EventSessionEnd   = "session_end"
	EventSessionError = "session_error"
	EventPartial      = "transcript_partial"
	EventFinal        = "transcript_final"
	EventChatRequest  = "chat_request"
	EventRateLimit    = "rate_limit"
)

type MetricsEvent struct {
	Name   string
	Time   time.Time
	Value  float64
	Tags   map[string]string
	Fields map[string]any
}

type Observer interface {
	RecordEvent(ev MetricsEvent)
}

type Flusher interface {
	Flush() error
}

type NoopObserver struct{}

func (NoopObserver) RecordEvent(MetricsEvent) {}
