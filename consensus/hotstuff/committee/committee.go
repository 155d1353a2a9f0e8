// Package committee implements the pure, stateless leader schedule
// (spec.md §4.3) and the small derived facts (quorum size, max
// tolerable faults) every other component needs to agree on.
package committee

import "github.com/dapperlabs/hotstuff-sim/consensus/hotstuff/model"

// Committee describes the static replica set for a run: its size N and
// configured fault tolerance F. It is immutable and shared by every
// replica, pacemaker and network instance in a simulation.
type Committee struct {
	N int
	F int
}

// New returns a Committee of n replicas configured to tolerate f faults.
// It does not itself validate f against the (N-1)/3 bound - Config.Validate
// in the simulation package does not reject it either; simulation.New
// logs it as a warning via IsOverFaultBound (spec.md §9 open question).
func New(n, f int) Committee {
	return Committee{N: n, F: f}
}

// LeaderOf returns the leader for view v: a deterministic, stateless
// round-robin over replica ids (spec.md §4.3).
func (c Committee) LeaderOf(view model.ViewNumber) model.ReplicaId {
	return model.ReplicaId(uint64(view) % uint64(c.N))
}

// Quorum returns N-F, the minimum distinct-voter count for a valid QC.
func (c Committee) Quorum() int {
	return c.N - c.F
}

// MaxToleratedFaults returns floor((N-1)/3), the largest F for which
// Basic HotStuff's safety proof holds.
func (c Committee) MaxToleratedFaults() int {
	return (c.N - 1) / 3
}

// IsOverFaultBound reports whether the configured F exceeds the
// provable safety bound - liveness and even safety are then at risk,
// but the simulation still runs (spec.md §8, §9).
func (c Committee) IsOverFaultBound() bool {
	return c.F > c.MaxToleratedFaults()
}
