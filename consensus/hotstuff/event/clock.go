package event

// Clock is the Driver-owned simulated wall clock. Time never moves
// backward: Advance only ever raises it to max(current, t) (spec.md
// §4.1).
type Clock struct {
	nowMs int64
}

// NewClock returns a clock starting at simulated time 0.
func NewClock() *Clock {
	return &Clock{}
}

// Now returns the current simulated time in milliseconds.
func (c *Clock) Now() int64 {
	return c.nowMs
}

// Advance moves the clock forward to t if t is later than the current
// time; a t in the past is a no-op.
func (c *Clock) Advance(t int64) {
	if t > c.nowMs {
		c.nowMs = t
	}
}
