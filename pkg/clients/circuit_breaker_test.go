package clients

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	fsCircuitbreaker "github.com/failsafe-go/failsafe-go/circuitbreaker"
)

func TestCircuitBreaker_StartsInClosedState(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig())
	if cb.State() != StateClosed {
		t.Fatalf("expected circuit breaker to start in CLOSED state, got %s", cb.State().String())
	}
}

func TestCircuitBreaker_DoesNotTripBelowFailureThreshold(t *testing.T) {
	cfg := CircuitBreakerConfig{
		Name:         "test-below-threshold",
		MinRequests:  10,
		FailureRatio: 0.5,
		Timeout:      100 * time.Millisecond,
	}
	cb := NewCircuitBreaker(cfg)

	for i := 0; i < 4; i++ {
		_ = cb.Call(func() error { return errors.New("fail") })
	}
	for i := 0; i < 6; i++ {
		_ = cb.Call(func() error { return nil })
	}

	if cb.State() != StateClosed {
		t.Fatalf("expected CLOSED state when below failure threshold, got %s", cb.State().String())
	}
}

func TestCircuitBreaker_TripsWhenFailureRatioExceeded(t *testing.T) {
	var stateChanges []string
	cfg := CircuitBreakerConfig{
		Name:         "test-trip",
		MinRequests:  5,
		FailureRatio: 0.5,
		Timeout:      100 * time.Millisecond,
		OnStateChange: func(name string, from, to CircuitBreakerState) {
			stateChanges = append(stateChanges, to.String())
		},
	}
	cb := NewCircuitBreaker(cfg)

	for i := 0; i < 5; i++ {
		_ = cb.Call(func() error { return errors.New("fail") })
	}

	if cb.State() != StateOpen {
		t.Fatalf("expected OPEN state after failure ratio exceeded, got %s", cb.State().String())
	}
	if len(stateChanges) == 0 || stateChanges[0] != "open" {
		t.Fatalf("expected OnStateChange callback to record 'open', got %v", stateChanges)
	}
}

func TestCircuitBreaker_RejectsCallsWhenOpen(t *testing.T) {
	cfg := CircuitBreakerConfig{
		Name:         "test-reject",
		MinRequests:  3,
		FailureRatio: 0.5,
		Timeout:      time.Second,
	}
	cb := NewCircuitBreaker(cfg)

	for i := 0; i < 3; i++ {
		_ = cb.Call(func() error { return errors.New("fail") })
	}
	if cb.State() != StateOpen {
		t.Fatalf("expected OPEN state, got %s", cb.State().String())
	}

	err := cb.Call(func() error { return nil })
	if err == nil || !errors.Is(err, fsCircuitbreaker.ErrOpen) {
		t.Fatalf("expected circuit breaker open error, got %v", err)
	}
}

func TestCircuitBreaker_TransitionsToHalfOpenThenClosed(t *testing.T) {
	cfg := CircuitBreakerConfig{
		Name:         "test-half-open",
		MinRequests:  3,
		FailureRatio: 0.5,
		Timeout:      50 * time.Millisecond,
	}
	cb := NewCircuitBreaker(cfg)

	for i := 0; i < 3; i++ {
		_ = cb.Call(func() error { return errors.New("fail") })
	}
	time.Sleep(60 * time.Millisecond)

	if err := cb.Call(func() error { return nil }); err != nil {
		t.Fatalf("expected call to succeed in half-open, got %v", err)
	}
	if cb.State() != StateClosed {
		t.Fatalf("expected CLOSED state after successful half-open call, got %s", cb.State().String())
	}
}

func TestCircuitBreaker_Execute(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig())
	result, err := cb.Execute(func() (any, error) { return "success", nil })
	if err != nil || result != "success" {
		t.Fatalf("expected success, got %v %v", result, err)
	}
}

func TestCircuitBreaker_ConcurrentAccess(t *testing.T) {
	cfg := CircuitBreakerConfig{
		Name:         "test-concurrent",
		MinRequests:  1000,
		FailureRatio: 0.5,
		Timeout:      100 * time.Millisecond,
	}
	cb := NewCircuitBreaker(cfg)

	var successCount int64
	done := make(chan bool, 100)
	for i := 0; i < 100; i++ {
		go func() {
			if err := cb.Call(func() error { return nil }); err == nil {
				atomic.AddInt64(&successCount, 1)
			}
			done <- true
		}()
	}
	for i := 0; i < 100; i++ {
		<-done
	}
	if successCount != 100 {
		t.Fatalf("expected 100 successful calls, got %d", successCount)
	}
}
