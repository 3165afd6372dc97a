package session

// Stats holds the per-session counters. Each counter has exactly one
// writer: FramesIn and BytesIn belong to the audio forwarder, PartialsOut
// and FinalsOut to the transcript relay. Reading all four together is
// only safe after both have finished, which is when the orchestrator
// logs its session summary.
type Stats struct {
	FramesIn    int64
	BytesIn     int64
	PartialsOut int64
	FinalsOut   int64
}

// CountFrame records one inbound binary frame of n bytes and returns the
// updated frame count so the caller can throttle its trace logging.
func (s *Stats) CountFrame(n int) int64 {
	s.FramesIn++
	s.BytesIn += int64(n)
	return s.FramesIn
}

// CountPartial records one partial transcript sent downstream.
func (s *Stats) CountPartial() int64 {
	s.PartialsOut++
	return s.PartialsOut
}

// CountFinal records one final transcript sent downstream.
func (s *Stats) CountFinal() int64 {
	s.FinalsOut++
	return s.FinalsOut
}
