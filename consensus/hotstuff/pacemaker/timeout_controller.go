package pacemaker

// timeoutController tracks the exponentially-weighted moving average of
// observed commit latencies and the consecutive-timeout back-off
// multiplier that together determine Adaptive's current timeout
// (spec.md §4.6). Split out from Adaptive the way the teacher splits
// consensus/hotstuff/pacemaker/timeout.Controller out from the
// pacemaker proper.
type timeoutController struct {
	alpha         float64 // EMA smoothing factor
	k             float64 // timeout = k * emaLatency, floored at deltaMin
	deltaMinMs    int64
	deltaMaxMs    int64
	backoffFactor float64

	emaLatencyMs float64
	backoff      float64 // consecutive-timeout multiplier, reset to 1 on commit
}

func newTimeoutController(alpha, k float64, deltaMinMs, deltaMaxMs int64, backoffFactor float64) *timeoutController {
	return &timeoutController{
		alpha:         alpha,
		k:             k,
		deltaMinMs:    deltaMinMs,
		deltaMaxMs:    deltaMaxMs,
		backoffFactor: backoffFactor,
		emaLatencyMs:  float64(deltaMinMs) / k,
		backoff:       1,
	}
}

// onCommit feeds a newly observed commit latency into the EMA and
// resets the back-off multiplier (spec.md §4.6: "a successful commit
// resets back-off").
func (t *timeoutController) onCommit(latencyMs int64) {
	t.emaLatencyMs = t.alpha*float64(latencyMs) + (1-t.alpha)*t.emaLatencyMs
	t.backoff = 1
}

// onTimeout grows the back-off multiplier, capped so that the resulting
// timeout never exceeds deltaMaxMs.
func (t *timeoutController) onTimeout() {
	t.backoff *= t.backoffFactor
	base := t.baseTimeoutMs()
	if base <= 0 {
		return
	}
	maxBackoff := float64(t.deltaMaxMs) / base
	if t.backoff > maxBackoff {
		t.backoff = maxBackoff
	}
}

// baseTimeoutMs is max(deltaMin, k*emaLatency), before back-off.
func (t *timeoutController) baseTimeoutMs() float64 {
	v := t.k * t.emaLatencyMs
	if v < float64(t.deltaMinMs) {
		v = float64(t.deltaMinMs)
	}
	return v
}

// currentTimeoutMs is the base timeout scaled by the current back-off
// multiplier, capped at deltaMaxMs.
func (t *timeoutController) currentTimeoutMs() int64 {
	v := t.baseTimeoutMs() * t.backoff
	if v > float64(t.deltaMaxMs) {
		v = float64(t.deltaMaxMs)
	}
	return int64(v)
}
