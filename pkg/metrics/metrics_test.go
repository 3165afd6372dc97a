package metrics

import (
	"testing"
	"time"
)

func TestMemoryObserverRecords(t *testing.T) {
	obs := NewMemoryObserver()
	obs.RecordEvent(MetricsEvent{Name: EventSessionStart, Time: time.Now()})
	obs.RecordEvent(MetricsEvent{Name: EventSessionEnd, Time: time.Now()})
	events := obs.Snapshot()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Name != EventSessionStart || events[1].Name != EventSessionEnd {
		t.Fatalf("unexpected event order: %v", events)
	}
}

func TestAsyncObserverDelivers(t *testing.T) {
	inner := NewMemoryObserver()
	async := NewAsyncObserver(inner, 8)
	async.RecordEvent(MetricsEvent{Name: EventPartial})
	async.Close()

	deadline := time.After(time.Second)
	for {
		if len(inner.Snapshot()) == 1 {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("event never delivered")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestAsyncObserverRecordAfterClose(t *testing.T) {
	async := NewAsyncObserver(NewMemoryObserver(), 1)
	async.Close()
	async.RecordEvent(MetricsEvent{Name: EventFinal}) // must not panic
}

func TestSamplingObserverRate(t *testing.T) {
	inner := NewMemoryObserver()
	sampler := NewSamplingObserver(inner, 0.5)
	for i := 0; i < 10; i++ {
		sampler.RecordEvent(MetricsEvent{Name: EventPartial})
	}
	if got := len(inner.Snapshot()); got != 5 {
		t.Fatalf("expected 5 sampled events, got %d", got)
	}
}

func TestMultiObserverFansOut(t *testing.T) {
	a := NewMemoryObserver()
	b := NewMemoryObserver()
	multi := NewMultiObserver(a, nil, b)
	multi.RecordEvent(MetricsEvent{Name: EventSessionError})
	if len(a.Snapshot()) != 1 || len(b.Snapshot()) != 1 {
		t.Fatalf("expected both observers to record the event")
	}
}
