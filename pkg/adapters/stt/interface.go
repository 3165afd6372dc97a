package stt

import "context"

// Alternative is one transcription hypothesis for an audio segment.
type Alternative struct {
	Transcript string
}

// Result groups the alternatives for one audio segment. IsPartial marks
// an interim hypothesis the upstream service may still revise.
type Result struct {
	IsPartial    bool
	Alternatives []Alternative
}

// Recognition is one event produced by the upstream recognizer. Results
// and their alternatives keep upstream ordering.
type Recognition struct {
	Results []Result
}

// Config contains vendor-agnostic streaming session parameters.
type Config struct {
	SessionID  string
	Language   string
	SampleRate int
	Encoding   string
}

// Stream is one live recognition session against an upstream STT vendor.
//
// Send pushes one audio chunk. CloseSend signals end-of-audio so the
// vendor flushes buffered results; it is safe to call from error paths
// and from multiple exits. Events yields recognitions until the vendor
// closes its output; Err reports the stream failure, if any, once Events
// is closed. Close releases every remaining resource and is idempotent.
type Stream interface {
	Name() string
	Start(ctx context.Context) error
	Send(chunk []byte) error
	CloseSend() error
	Events() <-chan Recognition
	Err() error
	Close() error
}

// Factory opens a new upstream stream for one client session.
type Factory func(cfg Config) Stream
