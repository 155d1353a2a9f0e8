// Chained HotStuff (SPEC_FULL.md §11.1): one phase per view instead of
// four, pipelined so that each new proposal simultaneously serves as
// the Prepare vote target for its own view and, via the QC it embeds,
// advances the PreCommit/Commit/Decide bookkeeping for the three views
// before it. Grounded on the bLock/bExec/bLeaf/highQC fields and
// commit-rule shape of relab/hotstuff's chainedhotstuff.go (via
// other_examples), adapted to this package's Block/QuorumCertificate
// types and single-threaded event-driven dispatch.
package replica

import (
	"github.com/dapperlabs/hotstuff-sim/consensus/hotstuff/model"
	"github.com/dapperlabs/hotstuff-sim/consensus/hotstuff/trace"
)

// chainedEnterView sets local view/phase state and restarts the
// Pacemaker timer, without Basic mode's NewView round - chained leaders
// learn their highQC directly from the votes addressed to them
// (handleChainedVote), except at view 0 where GenesisQC is bootstrap
// knowledge every replica already has.
func (r *Replica) chainedEnterView(nowMs int64, view model.ViewNumber) error {
	r.state.CurrentView = view
	r.state.CurrentPhase = model.Prepare
	r.pacer.OnEnterView(view, nowMs)

	if view == 0 && r.IsLeader(0) {
		return r.proposeChainedBlock(nowMs, 0, model.GenesisQC())
	}
	return nil
}

func (r *Replica) chainedAdvanceView(nowMs int64, newView model.ViewNumber) error {
	if newView <= r.state.CurrentView {
		return nil
	}
	r.consumer.OnViewChange(nowMs, trace.ViewChangePayload{ReplicaID: r.state.ID, NewView: newView})
	return r.chainedEnterView(nowMs, newView)
}

// handleChainedProposal processes one pipelined proposal (spec.md
// §4.7.2's per-phase rules, collapsed into a single phase per
// SPEC_FULL.md §11.1): validate, evaluate safety, advance
// prepare/lock/commit state by walking the parent chain, vote, and move
// this replica on to the next view.
func (r *Replica) handleChainedProposal(nowMs int64, p model.Proposal) error {
	if p.ProposerID != r.committee.LeaderOf(p.Block.View) {
		r.consumer.OnMessageDrop(nowMs, trace.MessageDropPayload{
			SenderID: p.ProposerID, RecipientID: r.state.ID,
			MessageType: p.Kind(), Reason: "proposer is not leader of view",
		})
		return nil
	}
	if err := r.validateJustifyQC(p.JustifyQC, p.Block.View); err != nil {
		r.consumer.OnMessageDrop(nowMs, trace.MessageDropPayload{
			SenderID: p.ProposerID, RecipientID: r.state.ID,
			MessageType: p.Kind(), Reason: err.Error(),
		})
		return nil
	}

	r.store.Add(p.Block)
	r.justifyOf[p.Block.Hash] = p.JustifyQC
	r.learnQC(p.JustifyQC)
	if _, seen := r.proposalRecvAt[p.Block.Hash]; !seen {
		r.proposalRecvAt[p.Block.Hash] = nowMs
	}

	if ok, reason := r.safeToVote(p.Block, p.JustifyQC, model.Prepare, p.Block.View); !ok {
		r.log.Debug().Err(reason).Uint64("view", uint64(p.Block.View)).Msg("declined to vote")
		return r.chainedAdvanceView(nowMs, p.Block.View+1)
	}

	// p.JustifyQC certifies b1 := parent(p.Block). PrepareQC always
	// tracks the newest certified block (spec.md §9).
	justify := p.JustifyQC
	r.state.PrepareQC = &justify
	r.applyThreeChainRule(nowMs, p.Block.View, justify)

	r.state.CurrentPhase = model.Prepare
	r.state.RecordVote(model.Prepare, p.Block.View, p.Block.Hash)
	r.consumer.OnVoteSend(nowMs, trace.VoteSendPayload{
		ReplicaID: r.state.ID, VoteType: model.Prepare, View: p.Block.View, BlockHash: p.Block.Hash,
	})
	vote := model.Vote{Phase: model.Prepare, View: p.Block.View, BlockHash: p.Block.Hash, Voter: r.state.ID}
	r.fault.send(nowMs, r.committee.LeaderOf(p.Block.View+1), vote)

	return r.chainedAdvanceView(nowMs, p.Block.View+1)
}

// applyThreeChainRule walks back from b1 := justify.BlockHash (the
// newly-proposed block's parent) through the blocks this replica has
// already processed, locking and committing once three consecutive
// views - proposalView, b1.View, b2.View - are found chained by QCs
// with no gap between them (spec.md §9 Open Question, resolved per
// SPEC_FULL.md §12: the rule applies across leader changes, since it
// depends only on view consecutiveness, not leader identity). A view
// gap anywhere in the three-block span - most commonly from a timeout
// - simply defers both the lock and the commit to a later, unbroken
// three-chain.
func (r *Replica) applyThreeChainRule(nowMs int64, proposalView model.ViewNumber, justify model.QuorumCertificate) {
	b1, ok := r.store.Get(justify.BlockHash)
	if !ok {
		return
	}
	if proposalView != b1.View+1 {
		return // gap between the new block and its parent b1
	}

	qcB1, ok := r.justifyOf[b1.Hash]
	if !ok {
		return // b1 is genesis or not yet known to certify a further ancestor
	}
	b2, ok := r.store.Get(qcB1.BlockHash)
	if !ok {
		return
	}
	if b1.View != b2.View+1 {
		return // gap between b1 and its parent b2: two-chain only, nothing commits yet
	}

	locked := justify
	r.state.LockedQC = &locked
	r.consumer.OnLockUpdate(nowMs, trace.LockUpdatePayload{
		ReplicaID: r.state.ID, LockedView: justify.View, BlockHash: justify.BlockHash,
	})
	r.commitChain(nowMs, b2)
}

// handleChainedVote aggregates a vote addressed to this replica as the
// leader of the NEXT view (chained HotStuff pipelines leader election
// one view ahead of the votes that justify it). Forming a quorum for
// block b's (Prepare, view) bucket gives this replica everything it
// needs to immediately propose the next block extending b.
func (r *Replica) handleChainedVote(nowMs int64, v model.Vote) error {
	if r.committee.LeaderOf(v.View+1) != r.state.ID {
		return nil
	}
	qc, formed := r.collector.AddVote(v)
	if !formed {
		return nil
	}
	r.learnQC(qc)
	r.consumer.OnQCFormation(nowMs, trace.QCFormationPayload{
		ReplicaID: r.state.ID, QCType: qc.Phase, View: qc.View, BlockHash: qc.BlockHash,
	})

	if r.state.CurrentView != v.View+1 {
		return nil // not yet in the view we'd propose for; the chain advance will retry nothing here, but in
		// practice chainedAdvanceView always runs before the vote that completes the quorum can be processed,
		// since every replica (including this one) advances to v+1 immediately after voting for v.
	}
	return r.proposeChainedBlock(nowMs, v.View+1, qc)
}

// proposeChainedBlock builds and broadcasts the next pipelined proposal
// extending highQC.BlockHash.
func (r *Replica) proposeChainedBlock(nowMs int64, view model.ViewNumber, highQC model.QuorumCertificate) error {
	if r.proposedViews[view] {
		return nil
	}
	parent, ok := r.store.Get(highQC.BlockHash)
	if !ok {
		return model.ProtocolViolationError{ReplicaID: r.state.ID, Msg: "highQC references unknown parent block"}
	}

	r.payloadSeq++
	block := model.NewBlock(parent, view, r.state.ID, r.payloadSeq)
	r.store.Add(block)
	r.justifyOf[block.Hash] = highQC
	r.proposedViews[view] = true
	if _, seen := r.proposalRecvAt[block.Hash]; !seen {
		r.proposalRecvAt[block.Hash] = nowMs
	}

	r.consumer.OnProposal(nowMs, trace.ProposalPayload{ReplicaID: r.state.ID, View: view, BlockHash: block.Hash})
	proposal := model.Proposal{Block: block, JustifyQC: highQC, Phase: model.Prepare, ProposerID: r.state.ID}
	r.fault.broadcastProposal(nowMs, r.participants, proposal)
	return nil
}
