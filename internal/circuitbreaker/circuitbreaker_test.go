package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func fail(context.Context) error    { return errBoom }
func succeed(context.Context) error { return nil }

// TestCircuitBreaker_OpensAfterThreshold verifies consecutive failures open the
// circuit and further calls are rejected without running fn.
func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb := New(Config{FailureThreshold: 3, Timeout: time.Minute, Component: "weather"})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := cb.Call(ctx, fail); !errors.Is(err, errBoom) {
			t.Fatalf("Call() #%d error = %v, want errBoom", i, err)
		}
	}
	if cb.State() != StateOpen {
		t.Fatalf("State() = %v, want open", cb.State())
	}

	ran := false
	err := cb.Call(ctx, func(context.Context) error { ran = true; return nil })
	if !errors.Is(err, ErrOpen) {
		t.Errorf("Call() error = %v, want ErrOpen", err)
	}
	if ran {
		t.Error("Call() ran fn while open")
	}
}

// TestCircuitBreaker_HalfOpenRecovery verifies that after the timeout the
// breaker probes and closes after SuccessThreshold successes.
func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	var transitions []string
	cb := New(Config{
		FailureThreshold: 1,
		SuccessThreshold: 2,
		Timeout:          time.Second,
		Component:        "llm_primary",
		OnStateChange: func(component string, from, to State) {
			transitions = append(transitions, component+":"+from.String()+"->"+to.String())
		},
	})
	now := time.Unix(1_700_000_000, 0)
	cb.now = func() time.Time { return now }
	ctx := context.Background()

	_ = cb.Call(ctx, fail)
	if cb.State() != StateOpen {
		t.Fatalf("State() = %v, want open", cb.State())
	}

	now = now.Add(2 * time.Second)
	if err := cb.Call(ctx, succeed); err != nil {
		t.Fatalf("Call() probe error = %v", err)
	}
	if cb.State() != StateHalfOpen {
		t.Fatalf("State() = %v, want half_open after one success", cb.State())
	}
	if err := cb.Call(ctx, succeed); err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if cb.State() != StateClosed {
		t.Fatalf("State() = %v, want closed", cb.State())
	}

	want := []string{
		"llm_primary:closed->open",
		"llm_primary:open->half_open",
		"llm_primary:half_open->closed",
	}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transitions[%d] = %q, want %q", i, transitions[i], want[i])
		}
	}
}

// TestCircuitBreaker_HalfOpenFailureReopens verifies a failed probe reopens immediately.
func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := New(Config{FailureThreshold: 5, Timeout: time.Second})
	now := time.Unix(1_700_000_000, 0)
	cb.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_ = cb.Call(ctx, fail)
	}
	now = now.Add(2 * time.Second)
	_ = cb.Call(ctx, fail)
	if cb.State() != StateOpen {
		t.Errorf("State() = %v, want open after failed probe", cb.State())
	}
}

// TestCircuitBreaker_CanceledNotCounted verifies caller cancellation does not trip the breaker.
func TestCircuitBreaker_CanceledNotCounted(t *testing.T) {
	cb := New(Config{FailureThreshold: 1})
	err := cb.Call(context.Background(), func(context.Context) error { return context.Canceled })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Call() error = %v, want context.Canceled", err)
	}
	if cb.State() != StateClosed {
		t.Errorf("State() = %v, want closed", cb.State())
	}
}

func TestCircuitBreaker_NilAdmitsAll(t *testing.T) {
	var cb *CircuitBreaker
	if err := cb.Call(context.Background(), succeed); err != nil {
		t.Errorf("nil Call() error = %v", err)
	}
	if cb.State() != StateClosed {
		t.Errorf("nil State() = %v, want closed", cb.State())
	}
}
