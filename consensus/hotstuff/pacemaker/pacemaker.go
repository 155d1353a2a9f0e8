// Package pacemaker implements HotStuff's view-synchronization and
// timeout-tuning liveness layer (spec.md §4.6): a Baseline fixed-timeout
// variant and an Adaptive EMA-tuned variant behind a common interface,
// grounded on the teacher's consensus/hotstuff/pacemaker split between a
// timeout controller and the pacemaker proper (see timeout_controller.go)
// and on vikstrous2-flow-go's AdrenalinePaceMaker for the
// view-advance/timer-cancellation idiom.
package pacemaker

import "github.com/dapperlabs/hotstuff-sim/consensus/hotstuff/model"

// Scheduler is the subset of the Driver's event queue a Pacemaker needs:
// scheduling its own timeout timer and cancelling stale ones. Pacemakers
// never touch the event queue directly (spec.md §5: it is exclusively
// owned by the Driver).
type Scheduler interface {
	ScheduleTimeout(replica model.ReplicaId, view model.ViewNumber, atMs int64)
	CancelTimeoutsBefore(replica model.ReplicaId, view model.ViewNumber)
}

// Pacemaker is the common interface both variants implement (spec.md
// §4.6).
type Pacemaker interface {
	// OnEnterView is called when the owning replica advances to view v.
	// It schedules a single Timeout event at clock+CurrentTimeoutMs(),
	// cancelling any outstanding timer for a prior view.
	OnEnterView(view model.ViewNumber, nowMs int64)
	// OnCommit reports a commit latency observed by the owning replica
	// (time from proposal receipt to its own Decide). Baseline ignores
	// it; Adaptive feeds it into the EMA.
	OnCommit(latencyMs int64)
	// OnTimeout handles a fired timer and returns the view to advance to.
	OnTimeout() model.ViewNumber
	// CurrentTimeoutMs returns the duration, in ms, the next timer
	// scheduled by OnEnterView will wait.
	CurrentTimeoutMs() int64
	// CurrentView returns the last view passed to OnEnterView.
	CurrentView() model.ViewNumber
}
