// Package unittest provides small, cheap-to-construct fixtures for the
// hotstuff packages' tests, following the Xxx Fixture naming convention
// of utils/unittest.
package unittest

import (
	"github.com/dapperlabs/hotstuff-sim/consensus/hotstuff/model"
)

// ReplicaIDsFixture returns the replica id set [0, n).
func ReplicaIDsFixture(n int) []model.ReplicaId {
	ids := make([]model.ReplicaId, n)
	for i := range ids {
		ids[i] = model.ReplicaId(i)
	}
	return ids
}

// BlockFixture returns a block extending parent at view, with a distinct
// payload sequence so repeated calls never collide on hash.
func BlockFixture(parent model.Block, view model.ViewNumber, proposer model.ReplicaId, payloadSeq uint64) model.Block {
	return model.NewBlock(parent, view, proposer, payloadSeq)
}

// QCFixture returns a QuorumCertificate signed by the first quorum
// replica ids, for (phase, view, blockHash).
func QCFixture(phase model.Phase, view model.ViewNumber, blockHash model.BlockHash, quorum int) model.QuorumCertificate {
	signers := make(map[model.ReplicaId]struct{}, quorum)
	for i := 0; i < quorum; i++ {
		signers[model.ReplicaId(i)] = struct{}{}
	}
	return model.NewQuorumCertificate(phase, view, blockHash, signers)
}

// VoteFixture returns a single vote for (phase, view, blockHash) cast by voter.
func VoteFixture(phase model.Phase, view model.ViewNumber, blockHash model.BlockHash, voter model.ReplicaId) model.Vote {
	return model.Vote{Phase: phase, View: view, BlockHash: blockHash, Voter: voter}
}

// ProposalFixture returns a well-formed proposal extending parent.
func ProposalFixture(parent model.Block, view model.ViewNumber, proposer model.ReplicaId, justify model.QuorumCertificate, phase model.Phase, payloadSeq uint64) model.Proposal {
	block := model.NewBlock(parent, view, proposer, payloadSeq)
	return model.Proposal{Block: block, JustifyQC: justify, Phase: phase, ProposerID: proposer}
}
