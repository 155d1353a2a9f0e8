package model

import "golang.org/x/exp/slices"

// QuorumCertificate (QC) attests that a quorum of distinct replicas voted
// for the same (phase, view, block). Once formed it is immutable and
// shared by value; signers are simulated as an opaque set of replica ids
// rather than real signatures (spec.md §1: cryptographic soundness is
// out of scope).
type QuorumCertificate struct {
	Phase     Phase
	View      ViewNumber
	BlockHash BlockHash
	Signers   []ReplicaId
}

// IsValid reports whether the QC carries at least quorum distinct
// signers. A QC with shuffled signer order is equal by content to one
// built in a different order (Signers is normalized on construction).
func (qc QuorumCertificate) IsValid(quorum int) bool {
	if qc.Signers == nil {
		return false
	}
	seen := make(map[ReplicaId]struct{}, len(qc.Signers))
	for _, s := range qc.Signers {
		seen[s] = struct{}{}
	}
	return len(seen) == len(qc.Signers) && len(seen) >= quorum
}

// NewQuorumCertificate builds a QC from a set of distinct voters,
// normalizing signer order so that two QCs for the same (phase, view,
// block) with differently-ordered signers compare equal.
func NewQuorumCertificate(phase Phase, view ViewNumber, blockHash BlockHash, signers map[ReplicaId]struct{}) QuorumCertificate {
	ids := make([]ReplicaId, 0, len(signers))
	for id := range signers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return QuorumCertificate{
		Phase:     phase,
		View:      view,
		BlockHash: blockHash,
		Signers:   ids,
	}
}

// Equal reports content equality, ignoring signer order (signers are
// already normalized by NewQuorumCertificate, but this is defensive
// against hand-built QCs in tests).
func (qc QuorumCertificate) Equal(other QuorumCertificate) bool {
	if qc.Phase != other.Phase || qc.View != other.View || qc.BlockHash != other.BlockHash {
		return false
	}
	if len(qc.Signers) != len(other.Signers) {
		return false
	}
	a := append([]ReplicaId(nil), qc.Signers...)
	b := append([]ReplicaId(nil), other.Signers...)
	slices.Sort(a)
	slices.Sort(b)
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// GenesisQC is the well-known starting QC every replica begins a run
// with: a vacuously-valid Decide-phase certificate for the genesis
// block, signed by nobody in particular. It lets the view-0 leader
// propose without waiting for a real quorum.
func GenesisQC() QuorumCertificate {
	return QuorumCertificate{
		Phase:     Decide,
		View:      0,
		BlockHash: Genesis().Hash,
		Signers:   nil,
	}
}
