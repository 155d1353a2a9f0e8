package replica_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dapperlabs/hotstuff-sim/consensus/hotstuff/internal/unittest"
	"github.com/dapperlabs/hotstuff-sim/consensus/hotstuff/model"
	"github.com/dapperlabs/hotstuff-sim/consensus/hotstuff/replica"
	"github.com/dapperlabs/hotstuff-sim/consensus/hotstuff/trace"
)

func TestBasic_HappyPathCommits(t *testing.T) {
	h := newHarness(harnessOpts{n: 4, f: 0, mode: replica.Basic})
	require.NoError(t, h.start())
	require.NoError(t, h.drainUpTo(2000))

	for _, r := range h.replicas {
		chain := r.State().CommittedChain
		assert.GreaterOrEqualf(t, len(chain), 4, "replica %d should have committed at least 3 blocks past genesis", r.ID())
	}

	// every replica commits the same prefix (Agreement, spec.md §8).
	want := h.replicas[0].State().CommittedChain
	for _, r := range h.replicas[1:] {
		got := r.State().CommittedChain
		n := len(want)
		if len(got) < n {
			n = len(got)
		}
		assert.Equal(t, want[:n], got[:n], "replica %d diverges from replica 0's committed prefix", r.ID())
	}
}

func TestBasic_CrashFaultStillCommits(t *testing.T) {
	// Replica 3 leads view 3 in the round-robin schedule; crashing it
	// eventually stalls the run at view 3 (no timeout is fired in this
	// test), but views 0-2, led by honest replicas, must still commit
	// with only 3 of 4 replicas (the exact quorum) participating.
	h := newHarness(harnessOpts{
		n: 4, f: 1, mode: replica.Basic,
		faulty: map[model.ReplicaId]model.FaultType{3: model.CrashFault},
	})
	require.NoError(t, h.start())
	require.NoError(t, h.drainUpTo(2000))

	for _, r := range h.replicas {
		if r.ID() == 3 {
			assert.Empty(t, r.State().CommittedChain[1:], "crashed replica should never observe a commit")
			continue
		}
		assert.GreaterOrEqualf(t, len(r.State().CommittedChain), 4, "honest replica %d should commit views 0-2 with 1 crashed peer", r.ID())
	}
}

func TestBasic_TimeoutAdvancesView(t *testing.T) {
	// Leader of view 0 (replica 0) is crashed, so it never proposes;
	// the other replicas' NewView messages reach it and are discarded, so
	// nothing forms. Firing replica 1's pending timeout must advance it
	// to view 1 on its own.
	h := newHarness(harnessOpts{
		n: 4, f: 1, mode: replica.Basic,
		faulty: map[model.ReplicaId]model.FaultType{0: model.CrashFault},
	})
	require.NoError(t, h.start())
	require.NoError(t, h.drainUpTo(2000))

	r1 := h.byID(1)
	require.Equal(t, model.ViewNumber(0), r1.State().CurrentView)

	require.NoError(t, h.fireTimeout(1))
	assert.Equal(t, model.ViewNumber(1), r1.State().CurrentView)

	var sawViewChange bool
	for _, e := range h.recorder.Events() {
		if e.Type == trace.ViewChangeEvent {
			p := e.Payload.(trace.ViewChangePayload)
			if p.ReplicaID == 1 && p.NewView == 1 {
				sawViewChange = true
			}
		}
	}
	assert.True(t, sawViewChange, "expected a recorded VIEW_CHANGE to view 1 for replica 1")
}

func TestBasic_ByzantineEquivocationPreventsQuorum(t *testing.T) {
	// With N=4, F=1 the quorum is 3; splitting the proposal across two
	// halves of 2 replicas each means neither half can reach quorum on
	// its own Prepare vote, so no QC - and therefore no commit - forms
	// for view 0.
	h := newHarness(harnessOpts{
		n: 4, f: 1, mode: replica.Basic,
		faulty: map[model.ReplicaId]model.FaultType{0: model.ByzantineEquivocateFault},
	})
	require.NoError(t, h.start())
	require.NoError(t, h.drainUpTo(2000))

	var sawByzantine, sawCommit bool
	for _, e := range h.recorder.Events() {
		switch e.Type {
		case trace.ByzantineAction:
			sawByzantine = true
		case trace.CommitEvent:
			sawCommit = true
		}
	}
	assert.True(t, sawByzantine, "expected a recorded BYZANTINE_ACTION for the equivocating leader")
	assert.False(t, sawCommit, "a split quorum should never reach Decide")
}

func TestBasic_DropsProposalFromNonLeader(t *testing.T) {
	h := newHarness(harnessOpts{n: 4, f: 0, mode: replica.Basic})
	require.NoError(t, h.start())

	// replica 1 is not the leader of view 0 (replica 0 is); a proposal
	// it sends for view 0 must be dropped rather than voted on.
	genesis := model.Genesis()
	impostor := unittest.ProposalFixture(genesis, 0, 1, model.GenesisQC(), model.Prepare, 1)
	r0 := h.byID(0)
	require.NoError(t, r0.HandleDeliver(1, 1, impostor))

	_, voted := r0.State().VotesCast[model.VoteKey{Phase: model.Prepare, View: 0}]
	assert.False(t, voted, "a proposal from a non-leader must never be voted on")

	var sawDrop bool
	for _, e := range h.recorder.Events() {
		if e.Type == trace.MessageDrop {
			p := e.Payload.(trace.MessageDropPayload)
			if p.SenderID == 1 && p.RecipientID == 0 {
				sawDrop = true
			}
		}
	}
	assert.True(t, sawDrop, "expected a recorded MESSAGE_DROP for the impostor proposal")
}

func TestBasic_NoDoubleVoting(t *testing.T) {
	h := newHarness(harnessOpts{n: 4, f: 0, mode: replica.Basic})
	require.NoError(t, h.start())
	require.NoError(t, h.drainUpTo(2000))

	for _, r := range h.replicas {
		key := model.VoteKey{Phase: model.Prepare, View: 0}
		cast, voted := r.State().VotesCast[key]
		if voted {
			assert.True(t, r.State().CanVote(model.Prepare, 0, cast), "re-affirming the already-cast vote must remain allowed")
			other := model.BlockHash{0xFF}
			assert.False(t, r.State().CanVote(model.Prepare, 0, other), "a conflicting vote for an already-voted (phase, view) must be rejected")
		}
	}
}
