package transfer

import "testing"

// TestControllerStartsAtMax tests the initial worker count
func TestControllerStartsAtMax(t *testing.T) {
	c := newController(8, true)
	if got := c.Workers(); got != 8 {
		t.Errorf("Workers() = %d, want 8", got)
	}
}

// TestControllerDecrementOnStreak tests that three consecutive failures
// shed exactly one worker and re-arm the window
func TestControllerDecrementOnStreak(t *testing.T) {
	c := newController(8, true)

	c.OnFailure()
	c.OnFailure()
	if got := c.Workers(); got != 8 {
		t.Errorf("after 2 failures Workers() = %d, want 8", got)
	}

	c.OnFailure()
	if got := c.Workers(); got != 7 {
		t.Errorf("after 3 failures Workers() = %d, want 7", got)
	}

	// window re-armed: two more failures are not enough
	c.OnFailure()
	c.OnFailure()
	if got := c.Workers(); got != 7 {
		t.Errorf("after streak reset Workers() = %d, want 7", got)
	}
	c.OnFailure()
	if got := c.Workers(); got != 6 {
		t.Errorf("after second streak Workers() = %d, want 6", got)
	}
}

// TestControllerFloor tests that the count never drops below two
func TestControllerFloor(t *testing.T) {
	c := newController(3, true)
	for i := 0; i < 30; i++ {
		c.OnFailure()
	}
	if got := c.Workers(); got != minWorkers {
		t.Errorf("Workers() = %d, want floor %d", got, minWorkers)
	}
}

// TestControllerFloorSmallMax tests a configured maximum below the floor
func TestControllerFloorSmallMax(t *testing.T) {
	c := newController(1, true)
	for i := 0; i < 10; i++ {
		c.OnFailure()
	}
	if got := c.Workers(); got != 1 {
		t.Errorf("Workers() = %d, want 1", got)
	}
}

// TestControllerRecovery tests gradual worker restoration on success
func TestControllerRecovery(t *testing.T) {
	c := newController(8, true)
	for i := 0; i < 6; i++ {
		c.OnFailure()
	}
	if got := c.Workers(); got != 6 {
		t.Fatalf("Workers() = %d, want 6", got)
	}

	c.OnSuccess()
	if got := c.Workers(); got != 7 {
		t.Errorf("after success Workers() = %d, want 7", got)
	}
	c.OnSuccess()
	if got := c.Workers(); got != 8 {
		t.Errorf("after second success Workers() = %d, want 8", got)
	}

	// never exceeds the configured maximum
	c.OnSuccess()
	if got := c.Workers(); got != 8 {
		t.Errorf("Workers() = %d, want cap 8", got)
	}
}

// TestControllerSuccessDrainsStreak tests that a success inside a streak
// eats one failure instead of restoring a worker
func TestControllerSuccessDrainsStreak(t *testing.T) {
	c := newController(8, true)
	for i := 0; i < 3; i++ {
		c.OnFailure()
	}
	c.OnFailure()
	c.OnFailure() // streak = 2

	c.OnSuccess() // streak = 1, no increment
	if got := c.Workers(); got != 7 {
		t.Errorf("Workers() = %d, want 7", got)
	}
	c.OnSuccess() // streak = 0, no increment yet
	if got := c.Workers(); got != 7 {
		t.Errorf("Workers() = %d, want 7", got)
	}
	c.OnSuccess() // streak already 0, increment
	if got := c.Workers(); got != 8 {
		t.Errorf("Workers() = %d, want 8", got)
	}
}

// TestControllerDisabled tests fixed concurrency when adaptation is off
func TestControllerDisabled(t *testing.T) {
	c := newController(4, false)
	for i := 0; i < 20; i++ {
		c.OnFailure()
	}
	if got := c.Workers(); got != 4 {
		t.Errorf("Workers() = %d, want 4", got)
	}
	c.OnSuccess()
	if got := c.Workers(); got != 4 {
		t.Errorf("Workers() = %d, want 4", got)
	}
}
