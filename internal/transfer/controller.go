package transfer

import "sync"

// minWorkers is the floor the adaptive controller never drops below
const minWorkers = 2

// failureThreshold is the error streak that triggers a worker decrement
const failureThreshold = 3

// controller owns the effective worker count. Under sustained failure it
// sheds one worker per three consecutive errors; successes re-add workers
// one at a time, never jumping straight back to the maximum. The count
// stays inside [minWorkers, max] (or exactly max when max < minWorkers).
type controller struct {
	mu       sync.Mutex
	adaptive bool
	workers  int
	max      int

	// errStreak counts failures since the last success or decrement
	errStreak int
}

func newController(max int, adaptive bool) *controller {
	if max < 1 {
		max = 1
	}
	return &controller{
		adaptive: adaptive,
		workers:  max,
		max:      max,
	}
}

// Workers returns the current effective worker count. Sampled at batch
// formation only; mid-batch outcomes just feed the counters.
func (c *controller) Workers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.workers
}

// OnSuccess records a successful task
func (c *controller) OnSuccess() {
	if !c.adaptive {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.errStreak > 0 {
		c.errStreak--
	}
	if c.errStreak == 0 && c.workers < c.max {
		c.workers++
	}
}

// OnFailure records a failed task
func (c *controller) OnFailure() {
	if !c.adaptive {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.errStreak++
	if c.errStreak >= failureThreshold {
		floor := minWorkers
		if c.max < floor {
			floor = c.max
		}
		if c.workers > floor {
			c.workers--
		}
		// Re-arm the window so the next decrement needs three fresh failures
		c.errStreak = 0
	}
}
