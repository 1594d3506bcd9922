package circuitbreaker

import (
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")
var errMissing = errors.New("missing")

func TestBreakerOpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(2, 1, time.Minute)
	fail := func() error { return errBoom }

	_ = cb.Execute(fail, nil)
	if cb.GetState() != StateClosed {
		t.Fatalf("expected closed after one failure")
	}
	_ = cb.Execute(fail, nil)
	if cb.GetState() != StateOpen {
		t.Fatalf("expected open after threshold, got %s", cb.GetState())
	}

	called := false
	err := cb.Execute(func() error { called = true; return nil }, nil)
	if !errors.Is(err, ErrOpen) || called {
		t.Fatalf("expected fast failure, got err=%v called=%v", err, called)
	}
}

func TestIgnoredErrorsDoNotTrip(t *testing.T) {
	cb := NewCircuitBreaker(1, 1, time.Minute)
	ignore := func(err error) bool { return errors.Is(err, errMissing) }

	for i := 0; i < 5; i++ {
		if err := cb.Execute(func() error { return errMissing }, ignore); !errors.Is(err, errMissing) {
			t.Fatalf("expected errMissing passthrough, got %v", err)
		}
	}
	if cb.GetState() != StateClosed {
		t.Fatalf("ignored errors must keep breaker closed")
	}
}

func TestHalfOpenRecovers(t *testing.T) {
	now := time.Unix(1000, 0)
	cb := NewCircuitBreaker(1, 1, time.Second)
	cb.now = func() time.Time { return now }

	var transitions []string
	cb.SetStateChangeCallback(func(from, to State) {
		transitions = append(transitions, from.String()+"->"+to.String())
	})

	_ = cb.Execute(func() error { return errBoom }, nil)
	now = now.Add(2 * time.Second)

	if err := cb.Execute(func() error { return nil }, nil); err != nil {
		t.Fatalf("expected trial request to pass, got %v", err)
	}
	if cb.GetState() != StateClosed {
		t.Fatalf("expected closed, got %s", cb.GetState())
	}

	want := []string{"closed->open", "open->half_open", "half_open->closed"}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v", transitions)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Fatalf("transitions = %v, want %v", transitions, want)
		}
	}
}
