package breaker

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestBreaker(threshold int, reset time.Duration) (*Breaker, *fakeClock) {
	clk := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	b := New(threshold, reset)
	b.now = clk.now
	return b, clk
}

func TestBreaker_OpensAtThreshold(t *testing.T) {
	b, _ := newTestBreaker(3, time.Minute)

	for i := 0; i < 2; i++ {
		b.RecordFailure()
		if !b.Allow() {
			t.Fatalf("breaker rejected after %d failures", i+1)
		}
	}
	b.RecordFailure()
	if b.State() != Open {
		t.Fatalf("state = %v, want open", b.State())
	}
	if b.Allow() {
		t.Error("open breaker admitted a request")
	}
}

func TestBreaker_SuccessResetsCount(t *testing.T) {
	b, _ := newTestBreaker(2, time.Minute)
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	if b.State() != Closed {
		t.Errorf("state = %v, want closed", b.State())
	}
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	b, clk := newTestBreaker(1, 10*time.Second)
	b.RecordFailure()

	clk.t = clk.t.Add(10 * time.Second)
	if !b.Allow() {
		t.Fatal("expected probe after reset timeout")
	}
	if b.State() != HalfOpen {
		t.Fatalf("state = %v, want half-open", b.State())
	}
	if b.Allow() {
		t.Error("second request admitted while probe in flight")
	}

	b.RecordFailure()
	if b.State() != Open {
		t.Fatalf("failed probe: state = %v, want open", b.State())
	}

	clk.t = clk.t.Add(10 * time.Second)
	if !b.Allow() {
		t.Fatal("expected second probe")
	}
	b.RecordSuccess()
	if b.State() != Closed || !b.Allow() {
		t.Errorf("successful probe: state = %v, want closed", b.State())
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		s    State
		want string
	}{
		{Closed, "closed"},
		{Open, "open"},
		{HalfOpen, "half-open"},
		{State(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.s, got, tt.want)
		}
	}
}

func TestBreaker_ReleaseReturnsProbe(t *testing.T) {
	b, clk := newTestBreaker(1, time.Minute)
	b.RecordFailure()
	clk.t = clk.t.Add(time.Minute)

	if !b.Allow() {
		t.Fatal("probe rejected after reset timeout")
	}
	b.Release()
	if b.State() != Open {
		t.Fatalf("state = %v, want open", b.State())
	}
	if !b.Allow() {
		t.Error("released probe slot not available again")
	}

	c, _ := newTestBreaker(1, time.Minute)
	c.Release()
	if c.State() != Closed {
		t.Errorf("release on closed breaker changed state to %v", c.State())
	}
}
