package pacemaker

import "github.com/dapperlabs/hotstuff-sim/consensus/hotstuff/model"

// AdaptiveConfig carries the tunables for the Adaptive pacemaker variant
// (spec.md §4.6), with the spec's documented defaults.
type AdaptiveConfig struct {
	Alpha         float64 // EMA smoothing factor, default 0.3
	K             float64 // timeout = k * emaLatency, default 3
	DeltaMinMs    int64   // floor on the timeout, default 50ms in scenario 3
	DeltaMaxMs    int64
	BackoffFactor float64 // default 1.5
}

// DefaultAdaptiveConfig returns the spec's documented defaults, with the
// caller expected to set DeltaMinMs/DeltaMaxMs for their run.
func DefaultAdaptiveConfig() AdaptiveConfig {
	return AdaptiveConfig{
		Alpha:         0.3,
		K:             3,
		BackoffFactor: 1.5,
	}
}

// Adaptive is the EMA-tuned Pacemaker variant (spec.md §4.6). Each
// replica runs its own Adaptive instance and therefore its own EMA,
// which diverges from its peers' - this is expected, since it reflects
// that replica's local view of network latency (spec.md §9).
type Adaptive struct {
	replica     model.ReplicaId
	scheduler   Scheduler
	controller  *timeoutController
	currentView model.ViewNumber
}

// NewAdaptive returns an Adaptive pacemaker for replica.
func NewAdaptive(replica model.ReplicaId, scheduler Scheduler, cfg AdaptiveConfig) *Adaptive {
	return &Adaptive{
		replica:    replica,
		scheduler:  scheduler,
		controller: newTimeoutController(cfg.Alpha, cfg.K, cfg.DeltaMinMs, cfg.DeltaMaxMs, cfg.BackoffFactor),
	}
}

func (a *Adaptive) OnEnterView(view model.ViewNumber, nowMs int64) {
	a.scheduler.CancelTimeoutsBefore(a.replica, view)
	a.currentView = view
	a.scheduler.ScheduleTimeout(a.replica, view, nowMs+a.controller.currentTimeoutMs())
}

func (a *Adaptive) OnCommit(latencyMs int64) {
	a.controller.onCommit(latencyMs)
}

func (a *Adaptive) OnTimeout() model.ViewNumber {
	a.controller.onTimeout()
	return a.currentView + 1
}

func (a *Adaptive) CurrentTimeoutMs() int64 {
	return a.controller.currentTimeoutMs()
}

func (a *Adaptive) CurrentView() model.ViewNumber {
	return a.currentView
}

var _ Pacemaker = (*Adaptive)(nil)
