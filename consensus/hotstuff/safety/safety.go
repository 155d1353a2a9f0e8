// Package safety implements the pure HotStuff safety predicate
// (spec.md §4.4). It holds no state of its own; every function takes
// the calling replica's relevant state as arguments.
package safety

import (
	"github.com/dapperlabs/hotstuff-sim/consensus/hotstuff/model"
)

// SafeNode reports whether block is safe to vote for, given the
// justifying QC and the replica's current locked QC, per the two
// HotStuff safety clauses:
//   - the safety clause: block extends the locked block, or
//   - the liveness clause: justifyQC.View > lockedQC.View.
// If lockedQC is unset (nil), every block is safe - there is nothing to
// violate yet.
func SafeNode(block model.Block, justifyQC model.QuorumCertificate, lockedQC *model.QuorumCertificate, store *model.BlockStore) bool {
	if lockedQC == nil {
		return true
	}
	if store.ExtendsFrom(block.Hash, lockedQC.BlockHash) {
		return true
	}
	return justifyQC.View > lockedQC.View
}

// ViewEligible reports whether currentView is allowed to vote on a
// proposal justified by justifyQC (spec.md §4.4: "A replica
// additionally refuses to vote if current_view < justify_qc.view").
// The companion "already voted in (phase, current_view)" check lives on
// model.ReplicaState.CanVote, since it depends on per-replica vote
// bookkeeping rather than on any safety-rule input.
func ViewEligible(currentView model.ViewNumber, justifyQC model.QuorumCertificate) bool {
	return currentView >= justifyQC.View
}
