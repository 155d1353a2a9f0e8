// Package votecollector implements the per-leader vote aggregator
// (spec.md §4.5): one instance per replica, active only while that
// replica is the leader for the relevant view, owned exclusively by it
// - votes reach it by message, never by a shared reference (spec.md §9
// "Per-leader vote collection as mutable shared state").
package votecollector

import (
	"github.com/rs/zerolog"

	"github.com/dapperlabs/hotstuff-sim/consensus/hotstuff/model"
)

// Collector aggregates votes into Quorum Certificates for one replica
// acting as leader. A single Collector instance is reused across the
// whole run; it tracks buckets by (phase, view, block) internally so it
// never needs to be rebuilt per view.
type Collector struct {
	log     zerolog.Logger
	quorum  int
	pending model.PendingVotes
	retired map[model.PendingVoteKey]struct{}
}

// New returns a Collector that forms a QC once quorum distinct voters
// have been seen for a given (phase, view, block) bucket.
func New(log zerolog.Logger, quorum int) *Collector {
	return &Collector{
		log:     log.With().Str("component", "votecollector").Logger(),
		quorum:  quorum,
		pending: make(model.PendingVotes),
		retired: make(map[model.PendingVoteKey]struct{}),
	}
}

// AddVote registers a vote. It returns the formed QC and true the
// moment the bucket first reaches quorum; afterwards (and for
// already-retired buckets) it returns (zero-value, false). A repeat
// vote by the same voter for the same (phase, view, block) bucket is
// rejected as double-counted and logged. Buckets are keyed by block
// hash, so a vote by the same voter for a different block at the same
// (phase, view) is counted in that other block's bucket.
func (c *Collector) AddVote(vote model.Vote) (model.QuorumCertificate, bool) {
	key := model.PendingVoteKey{Phase: vote.Phase, View: vote.View, BlockHash: vote.BlockHash}

	if _, done := c.retired[key]; done {
		return model.QuorumCertificate{}, false
	}

	voters, ok := c.pending[key]
	if !ok {
		voters = make(map[model.ReplicaId]struct{})
		c.pending[key] = voters
	}

	if _, already := voters[vote.Voter]; already {
		c.log.Debug().
			Uint64("view", uint64(vote.View)).
			Str("phase", vote.Phase.String()).
			Uint32("voter", uint32(vote.Voter)).
			Msg("rejected duplicate vote")
		return model.QuorumCertificate{}, false
	}
	voters[vote.Voter] = struct{}{}

	if len(voters) < c.quorum {
		return model.QuorumCertificate{}, false
	}

	qc := model.NewQuorumCertificate(vote.Phase, vote.View, vote.BlockHash, voters)
	c.retired[key] = struct{}{}
	delete(c.pending, key)
	c.log.Debug().
		Uint64("view", uint64(vote.View)).
		Str("phase", vote.Phase.String()).
		Int("signers", len(qc.Signers)).
		Msg("quorum certificate formed")
	return qc, true
}
