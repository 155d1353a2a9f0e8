package model

// VoteKey identifies a (phase, view) pair a replica may cast at most one
// distinct vote for (spec.md §3 invariant: "A replica never emits two
// votes for the same (phase, view) with different block hashes").
type VoteKey struct {
	Phase Phase
	View  ViewNumber
}

// ReplicaState is the full local state of one HotStuff participant. It
// is created once at simulation start and mutated only by its own
// handler - never by another replica or by the Network.
type ReplicaState struct {
	ID ReplicaId

	CurrentView  ViewNumber
	CurrentPhase Phase

	LockedQC  *QuorumCertificate // PreCommit QC this replica is locked on, if any
	PrepareQC *QuorumCertificate // latest QC usable as `justify` when proposing

	LastVotedView ViewNumber
	VotesCast     map[VoteKey]BlockHash

	// CommittedChain is the prefix-extending sequence of committed block
	// hashes, oldest (genesis) first.
	CommittedChain []BlockHash

	IsFaulty  bool
	FaultType FaultType
}

// NewReplicaState returns the initial state of a fresh replica at view 0,
// with genesis already committed.
func NewReplicaState(id ReplicaId, faulty bool, faultType FaultType) *ReplicaState {
	return &ReplicaState{
		ID:             id,
		CurrentView:    0,
		CurrentPhase:   NewView,
		LockedQC:       nil,
		PrepareQC:      nil,
		LastVotedView:  0,
		VotesCast:      make(map[VoteKey]BlockHash),
		CommittedChain: []BlockHash{Genesis().Hash},
		IsFaulty:       faulty,
		FaultType:      faultType,
	}
}

// CanVote reports whether casting a vote for (phase, view, blockHash)
// would violate the no-double-voting invariant. Re-casting the same
// vote is idempotent (returns true); voting for a different hash at an
// already-voted (phase, view) is rejected.
func (s *ReplicaState) CanVote(phase Phase, view ViewNumber, blockHash BlockHash) bool {
	key := VoteKey{Phase: phase, View: view}
	existing, voted := s.VotesCast[key]
	if !voted {
		return true
	}
	return existing == blockHash
}

// RecordVote records that the replica cast a vote for (phase, view,
// blockHash). Callers must have already checked CanVote.
func (s *ReplicaState) RecordVote(phase Phase, view ViewNumber, blockHash BlockHash) {
	s.VotesCast[VoteKey{Phase: phase, View: view}] = blockHash
}

// LastCommitted returns the most recently committed block hash.
func (s *ReplicaState) LastCommitted() BlockHash {
	return s.CommittedChain[len(s.CommittedChain)-1]
}
