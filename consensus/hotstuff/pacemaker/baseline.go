package pacemaker

import "github.com/dapperlabs/hotstuff-sim/consensus/hotstuff/model"

// Baseline is the fixed-timeout Pacemaker variant (spec.md §4.6): every
// view gets the same Δ timeout regardless of observed latency.
type Baseline struct {
	replica     model.ReplicaId
	scheduler   Scheduler
	deltaMs     int64
	currentView model.ViewNumber
}

// NewBaseline returns a Baseline pacemaker for replica, with fixed
// per-view timeout delta.
func NewBaseline(replica model.ReplicaId, scheduler Scheduler, deltaMs int64) *Baseline {
	return &Baseline{replica: replica, scheduler: scheduler, deltaMs: deltaMs}
}

func (b *Baseline) OnEnterView(view model.ViewNumber, nowMs int64) {
	b.scheduler.CancelTimeoutsBefore(b.replica, view)
	b.currentView = view
	b.scheduler.ScheduleTimeout(b.replica, view, nowMs+b.deltaMs)
}

func (b *Baseline) OnCommit(latencyMs int64) {
	// Baseline does not track latency (spec.md §4.6).
}

func (b *Baseline) OnTimeout() model.ViewNumber {
	return b.currentView + 1
}

func (b *Baseline) CurrentTimeoutMs() int64 {
	return b.deltaMs
}

func (b *Baseline) CurrentView() model.ViewNumber {
	return b.currentView
}

var _ Pacemaker = (*Baseline)(nil)
