package retry

import (
	"context"
	"testing"
	"time"
)

// TestDelayBounds tests that every delay stays within the jittered window
func TestDelayBounds(t *testing.T) {
	p := NewPolicy(1.0)

	tests := []struct {
		cat  Category
		base time.Duration
		max  time.Duration
	}{
		{RateLimited, 1 * time.Second, 30 * time.Second},
		{GenericNetwork, 2 * time.Second, 30 * time.Second},
		{ConnectionReset, 5 * time.Second, 60 * time.Second},
		{TLSHandshake, 15 * time.Second, 2 * time.Minute},
		{Timeout, 20 * time.Second, 2 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.cat.String(), func(t *testing.T) {
			for attempt := 1; attempt <= 8; attempt++ {
				d := p.Delay(tt.cat, attempt)
				min := time.Duration(float64(tt.base) * jitterMin)
				if d < min {
					t.Errorf("attempt %d: delay %v below minimum %v", attempt, d, min)
				}
				if d > tt.max {
					t.Errorf("attempt %d: delay %v above cap %v", attempt, d, tt.max)
				}
			}
		})
	}
}

// TestDelayGrows tests exponential growth between consecutive attempts.
// Jitter spans [0.75, 1.25], so a doubled base always exceeds the
// previous attempt's jittered maximum until the cap is reached.
func TestDelayGrows(t *testing.T) {
	p := NewPolicy(1.0)

	for attempt := 1; attempt < 4; attempt++ {
		for i := 0; i < 20; i++ {
			cur := p.Delay(RateLimited, attempt)
			next := p.Delay(RateLimited, attempt+1)
			if next <= cur {
				t.Fatalf("delay did not grow: attempt %d = %v, attempt %d = %v",
					attempt, cur, attempt+1, next)
			}
		}
	}
}

// TestDelayPermanent tests that permanent failures never wait
func TestDelayPermanent(t *testing.T) {
	p := NewPolicy(1.0)
	if d := p.Delay(Permanent, 1); d != 0 {
		t.Errorf("Delay(Permanent, 1) = %v, want 0", d)
	}
}

// TestDelayScale tests the operator-configured scale factor
func TestDelayScale(t *testing.T) {
	p := NewPolicy(0.001)
	d := p.Delay(RateLimited, 1)
	if d > 2*time.Millisecond {
		t.Errorf("scaled delay = %v, want around 1ms", d)
	}

	// scale <= 0 falls back to 1.0
	fallback := NewPolicy(-5)
	d = fallback.Delay(RateLimited, 1)
	if d < time.Duration(float64(time.Second)*jitterMin) {
		t.Errorf("coerced scale delay = %v, want at least %v", d,
			time.Duration(float64(time.Second)*jitterMin))
	}
}

// TestDelayAttemptFloor tests that attempts below 1 are treated as 1
func TestDelayAttemptFloor(t *testing.T) {
	p := NewPolicy(1.0)
	d := p.Delay(RateLimited, 0)
	if d > time.Duration(float64(time.Second)*jitterMax) {
		t.Errorf("Delay(_, 0) = %v, want first-attempt range", d)
	}
}

// TestWaitCancelled tests that backoff sleeps honor cancellation
func TestWaitCancelled(t *testing.T) {
	p := NewPolicy(1.0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := p.Wait(ctx, TLSHandshake, 3)
	if err != context.Canceled {
		t.Errorf("Wait() = %v, want context.Canceled", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Wait() took %v after cancel, want immediate return", elapsed)
	}
}

// TestWaitCompletes tests a short wait runs to completion
func TestWaitCompletes(t *testing.T) {
	p := NewPolicy(0.001)
	if err := p.Wait(context.Background(), RateLimited, 1); err != nil {
		t.Errorf("Wait() = %v, want nil", err)
	}
}
