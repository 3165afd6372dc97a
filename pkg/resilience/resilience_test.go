package resilience

import (
	"errors"
	"testing"
	"time"
)

func TestRetrySucceedsAfterFailures(t *testing.T) {
	policy := NewRetryPolicy(2, time.Millisecond)
	attempts := 0
	err := policy.Do(func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetryGivesUp(t *testing.T) {
	policy := NewRetryPolicy(1, time.Millisecond)
	err := policy.Do(func() error { return errors.New("still broken") })
	if err == nil {
		t.Fatalf("expected error after retries exhausted")
	}
}

func TestCircuitBreakerOpensOnRateLimits(t *testing.T) {
	breaker := NewCircuitBreaker(2, time.Minute)
	if !breaker.Allow() {
		t.Fatalf("breaker should start closed")
	}
	breaker.OnError(RateLimitError{Provider: "chat"})
	breaker.OnError(RateLimitError{Provider: "chat"})
	if breaker.Allow() {
		t.Fatalf("breaker should be open after threshold rate limits")
	}
	breaker.OnSuccess()
	if !breaker.Allow() {
		t.Fatalf("breaker should close after success")
	}
}

func TestCircuitBreakerIgnoresOtherErrors(t *testing.T) {
	breaker := NewCircuitBreaker(1, time.Minute)
	breaker.OnError(errors.New("not a rate limit"))
	if !breaker.Allow() {
		t.Fatalf("non rate-limit errors must not open the breaker")
	}
}
