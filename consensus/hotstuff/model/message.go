package model

// MessageKind tags the concrete type carried by a Message, so that
// logging and trace events don't need a type switch to name it.
type MessageKind uint8

const (
	KindProposal MessageKind = iota
	KindVote
	KindNewView
	KindTimeout
)

func (k MessageKind) String() string {
	switch k {
	case KindProposal:
		return "Proposal"
	case KindVote:
		return "Vote"
	case KindNewView:
		return "NewView"
	case KindTimeout:
		return "Timeout"
	default:
		return "Unknown"
	}
}

// Message is the tagged union of everything a replica can send over the
// simulated network. Receivers exhaustively type-switch on the concrete
// type; an unrecognized concrete type reaching the switch's default case
// is a ProtocolViolationError, never a silently-ignored case.
type Message interface {
	Kind() MessageKind
	MsgView() ViewNumber
}

// Proposal carries a block together with the QC that justifies the
// current phase and the phase itself. Basic HotStuff re-broadcasts the
// same block across all four phases of a view, distinguished only by
// Phase and JustifyQC - Phase is carried explicitly (rather than
// inferred from local progression) so that proposals remain
// self-describing under the network's reordering guarantee (spec.md
// §5: "messages ... are NOT required to be FIFO").
type Proposal struct {
	Block      Block
	JustifyQC  QuorumCertificate
	Phase      Phase
	ProposerID ReplicaId
}

func (Proposal) Kind() MessageKind     { return KindProposal }
func (p Proposal) MsgView() ViewNumber { return p.Block.View }

// Vote carries one replica's signature share for a (phase, view, block).
type Vote struct {
	Phase     Phase
	View      ViewNumber
	BlockHash BlockHash
	Voter     ReplicaId
}

func (Vote) Kind() MessageKind     { return KindVote }
func (v Vote) MsgView() ViewNumber { return v.View }

// NewView is sent by a replica advancing past view v to the leader of
// v+1, carrying the highest QC the sender knows of.
type NewViewMsg struct {
	View      ViewNumber
	HighestQC QuorumCertificate
	Voter     ReplicaId
}

func (NewViewMsg) Kind() MessageKind     { return KindNewView }
func (n NewViewMsg) MsgView() ViewNumber { return n.View }

// TimeoutMsg is an (optional, for diagnostics) broadcast announcing that
// a replica's local timer for view fired. The Pacemaker timer event
// itself (§4.1) is not a Message - it never crosses the network - but
// some deployments echo timeouts to peers for faster view-change
// convergence; this type exists for that purpose and for trace fidelity.
type TimeoutMsg struct {
	View  ViewNumber
	Voter ReplicaId
}

func (TimeoutMsg) Kind() MessageKind     { return KindTimeout }
func (t TimeoutMsg) MsgView() ViewNumber { return t.View }
