package circuitbreaker

import (
	"errors"
	"testing"
	"time"
)

var errUpstream = errors.New("upstream down")

func TestExecuteTripsOpenAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(3, 1, time.Minute)

	for i := 0; i < 3; i++ {
		if err := cb.Execute(func() error { return errUpstream }); !errors.Is(err, errUpstream) {
			t.Fatalf("call %d: got %v, want upstream error", i+1, err)
		}
	}
	if cb.GetState() != StateOpen {
		t.Fatalf("state = %v, want open", cb.GetState())
	}

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	if !errors.Is(err, ErrOpen) {
		t.Fatalf("open breaker returned %v, want ErrOpen", err)
	}
	if called {
		t.Fatal("open breaker must not call through")
	}
}

func TestExecuteReclosesAfterTimeout(t *testing.T) {
	cb := NewCircuitBreaker(1, 2, 10*time.Millisecond)

	if err := cb.Execute(func() error { return errUpstream }); err == nil {
		t.Fatal("expected failure to propagate")
	}
	if cb.GetState() != StateOpen {
		t.Fatalf("state = %v, want open", cb.GetState())
	}

	time.Sleep(20 * time.Millisecond)

	// Two successful probes close the breaker again.
	for i := 0; i < 2; i++ {
		if err := cb.Execute(func() error { return nil }); err != nil {
			t.Fatalf("probe %d failed: %v", i+1, err)
		}
	}
	if cb.GetState() != StateClosed {
		t.Fatalf("state = %v, want closed", cb.GetState())
	}
}

func TestFailedProbeReopens(t *testing.T) {
	cb := NewCircuitBreaker(1, 2, 10*time.Millisecond)
	_ = cb.Execute(func() error { return errUpstream })

	time.Sleep(20 * time.Millisecond)

	if err := cb.Execute(func() error { return errUpstream }); !errors.Is(err, errUpstream) {
		t.Fatalf("probe returned %v", err)
	}
	if cb.GetState() != StateOpen {
		t.Fatalf("state = %v, want open after failed probe", cb.GetState())
	}
}
