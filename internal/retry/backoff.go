package retry

import (
	"context"
	"math/rand"
	"time"
)

// window bounds the backoff for one category
type window struct {
	base time.Duration
	max  time.Duration
}

// Per-category backoff windows. Throttling and generic network blips
// clear quickly; TLS and timeout failures usually indicate sustained
// interference and get long bases so workers stop hammering the link.
var windows = map[Category]window{
	RateLimited:     {base: 1 * time.Second, max: 30 * time.Second},
	GenericNetwork:  {base: 2 * time.Second, max: 30 * time.Second},
	ConnectionReset: {base: 5 * time.Second, max: 60 * time.Second},
	TLSHandshake:    {base: 15 * time.Second, max: 2 * time.Minute},
	Timeout:         {base: 20 * time.Second, max: 2 * time.Minute},
}

const (
	jitterMin = 0.75
	jitterMax = 1.25
)

// Policy computes category-aware exponential backoff delays. Safe for
// concurrent use by transfer workers.
type Policy struct {
	// scale multiplies every base delay; configured from
	// retry_base_delay_seconds so operators can stretch or shrink the
	// whole table at once
	scale float64
}

// NewPolicy creates a backoff policy. A scale of 1.0 uses the built-in
// windows as-is; scale <= 0 is coerced to 1.0.
func NewPolicy(scale float64) *Policy {
	if scale <= 0 {
		scale = 1.0
	}
	return &Policy{scale: scale}
}

// Delay returns the wait before retry number attempt (1-based: attempt 1
// is the delay after the first failure). Delay grows as base * 2^(n-1)
// with uniform jitter, capped at the category max. Jitter keeps workers
// that failed together from retrying in lockstep.
func (p *Policy) Delay(cat Category, attempt int) time.Duration {
	if !cat.Retryable() {
		return 0
	}
	w, ok := windows[cat]
	if !ok {
		w = windows[GenericNetwork]
	}
	if attempt < 1 {
		attempt = 1
	}

	d := float64(w.base) * p.scale
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= float64(w.max) {
			break
		}
	}

	jitter := jitterMin + rand.Float64()*(jitterMax-jitterMin)
	d *= jitter

	if d > float64(w.max) {
		d = float64(w.max)
	}
	return time.Duration(d)
}

// Wait sleeps for the computed delay, returning early with ctx.Err() if
// the run is cancelled. Backoff sleeps are the only non-I/O suspension
// points in the engine, so they must honor cancellation too.
func (p *Policy) Wait(ctx context.Context, cat Category, attempt int) error {
	d := p.Delay(cat, attempt)
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
