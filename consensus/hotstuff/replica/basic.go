package replica

import (
	"github.com/dapperlabs/hotstuff-sim/consensus/hotstuff/model"
	"github.com/dapperlabs/hotstuff-sim/consensus/hotstuff/trace"
)

// handleProposal processes a Basic HotStuff proposal for any of the
// four phases of a view (spec.md §4.7.2). Basic HotStuff re-broadcasts
// the same block at every phase, distinguished by Phase and JustifyQC.
func (r *Replica) handleProposal(nowMs int64, p model.Proposal) error {
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
	r.learnQC(p.JustifyQC)
	if _, seen := r.proposalRecvAt[p.Block.Hash]; !seen {
		r.proposalRecvAt[p.Block.Hash] = nowMs
	}

	if ok, reason := r.safeToVote(p.Block, p.JustifyQC, p.Phase, p.Block.View); !ok {
		r.log.Debug().Err(reason).Uint64("view", uint64(p.Block.View)).Str("phase", p.Phase.String()).Msg("declined to vote")
		return nil
	}

	switch p.Phase {
	case model.PreCommit:
		justify := p.JustifyQC
		r.state.PrepareQC = &justify
	case model.Commit:
		justify := p.JustifyQC
		r.state.LockedQC = &justify
		r.consumer.OnLockUpdate(nowMs, trace.LockUpdatePayload{
			ReplicaID: r.state.ID, LockedView: justify.View, BlockHash: justify.BlockHash,
		})
	case model.Decide:
		r.commitChain(nowMs, p.Block)
	}

	r.state.CurrentPhase = p.Phase
	r.state.RecordVote(p.Phase, p.Block.View, p.Block.Hash)
	r.consumer.OnVoteSend(nowMs, trace.VoteSendPayload{
		ReplicaID: r.state.ID, VoteType: p.Phase, View: p.Block.View, BlockHash: p.Block.Hash,
	})
	vote := model.Vote{Phase: p.Phase, View: p.Block.View, BlockHash: p.Block.Hash, Voter: r.state.ID}
	r.fault.send(nowMs, r.committee.LeaderOf(p.Block.View), vote)

	if p.Phase == model.Decide {
		return r.advanceView(nowMs, p.Block.View+1)
	}
	return nil
}

// handleVote aggregates a vote addressed to this replica as leader for
// its view (spec.md §4.5). Forming a quorum advances the phase cascade
// by re-broadcasting the same block under the newly-formed QC; Decide
// forms a QC but has no successor phase to broadcast - view completion
// is instead driven independently by each replica's own processing of
// the Decide proposal (handleProposal above).
func (r *Replica) handleVote(nowMs int64, v model.Vote) error {
	if r.committee.LeaderOf(v.View) != r.state.ID {
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

	if qc.Phase == model.Decide {
		return nil
	}

	block, ok := r.store.Get(qc.BlockHash)
	if !ok {
		return model.ProtocolViolationError{ReplicaID: r.state.ID, Msg: "quorum formed for unknown block"}
	}
	proposal := model.Proposal{Block: block, JustifyQC: qc, Phase: qc.Phase.Next(), ProposerID: r.state.ID}
	r.fault.broadcastProposal(nowMs, r.participants, proposal)
	return nil
}

// handleNewView accumulates one peer's contribution toward the quorum
// of NewView messages this replica, as leader-elect, needs before
// proposing for n.View (spec.md §4.7.1 step 1). Votes are buffered per
// view regardless of whether this replica has entered that view yet.
func (r *Replica) handleNewView(nowMs int64, n model.NewViewMsg) error {
	if r.committee.LeaderOf(n.View) != r.state.ID {
		return nil
	}
	r.learnQC(n.HighestQC)

	votes, ok := r.newViewVotesByView[n.View]
	if !ok {
		votes = make(map[model.ReplicaId]model.QuorumCertificate)
		r.newViewVotesByView[n.View] = votes
	}
	if _, already := votes[n.Voter]; already {
		return nil
	}
	votes[n.Voter] = n.HighestQC

	return r.tryProposeAsLeader(nowMs, n.View)
}

// tryProposeAsLeader proposes for view the first time this replica has
// both entered it and collected a quorum of NewView contributions
// (spec.md §4.7.1). It is safe to call repeatedly; proposedViews
// guards against a second proposal.
func (r *Replica) tryProposeAsLeader(nowMs int64, view model.ViewNumber) error {
	if r.proposedViews[view] {
		return nil
	}
	if r.state.CurrentView != view || !r.IsLeader(view) {
		return nil
	}
	votes := r.newViewVotesByView[view]
	if len(votes) < r.committee.Quorum() {
		return nil
	}

	highQC := r.highestKnownQC
	for _, qc := range votes {
		if qc.View > highQC.View {
			highQC = qc
		}
	}
	return r.proposeBlock(nowMs, view, highQC)
}

// proposeBlock builds a new block extending highQC.BlockHash and
// broadcasts the opening Prepare proposal for view (spec.md §4.7.1
// steps 2).
func (r *Replica) proposeBlock(nowMs int64, view model.ViewNumber, highQC model.QuorumCertificate) error {
	parent, ok := r.store.Get(highQC.BlockHash)
	if !ok {
		return model.ProtocolViolationError{ReplicaID: r.state.ID, Msg: "highQC references unknown parent block"}
	}

	r.payloadSeq++
	block := model.NewBlock(parent, view, r.state.ID, r.payloadSeq)
	r.store.Add(block)
	r.proposedViews[view] = true
	if _, seen := r.proposalRecvAt[block.Hash]; !seen {
		r.proposalRecvAt[block.Hash] = nowMs
	}

	r.consumer.OnProposal(nowMs, trace.ProposalPayload{ReplicaID: r.state.ID, View: view, BlockHash: block.Hash})
	proposal := model.Proposal{Block: block, JustifyQC: highQC, Phase: model.Prepare, ProposerID: r.state.ID}
	r.fault.broadcastProposal(nowMs, r.participants, proposal)
	return nil
}

// commitChain appends block and any uncommitted ancestors back to the
// last committed block into the committed chain (spec.md §4.7.2, Decide
// phase), feeding each commit's latency to the Pacemaker.
func (r *Replica) commitChain(nowMs int64, block model.Block) {
	last := r.state.LastCommitted()
	if last == block.Hash {
		return
	}
	ancestors := r.store.AncestorsUntil(block.Hash, last)
	if len(ancestors) == 0 {
		ancestors = []model.Block{block}
	}
	for _, b := range ancestors {
		latency := nowMs - r.proposalRecvAt[b.Hash]
		r.state.CommittedChain = append(r.state.CommittedChain, b.Hash)
		r.consumer.OnCommit(nowMs, trace.CommitPayload{
			ReplicaID: r.state.ID, Height: b.Height, BlockHash: b.Hash, LatencyMs: latency,
		})
		r.pacer.OnCommit(latency)
	}
}
