package sketch

import "time"

// Clock supplies monotonic timestamps for pointer events, gesture
// deadlines and animations. All of them must come from the same Clock.
type Clock interface {
	Now() time.Duration
}

// systemClock measures time since its creation on the monotonic clock.
type systemClock struct {
	epoch time.Time
}

func newSystemClock() *systemClock {
	return &systemClock{epoch: time.Now()}
}

func (c *systemClock) Now() time.Duration {
	return time.Since(c.epoch)
}

// deadline is a one-shot timeout checked against event timestamps.
type deadline struct {
	at    time.Duration
	armed bool
}

func (d *deadline) arm(now, timeout time.Duration) {
	d.at = now + timeout
	d.armed = true
}

func (d *deadline) disarm() {
	d.armed = false
}

// expired reports whether the deadline is armed and has passed.
func (d *deadline) expired(now time.Duration) bool {
	return d.armed && now >= d.at
}
