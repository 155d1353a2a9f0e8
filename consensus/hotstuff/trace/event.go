// Package trace defines the external trace-event schema (spec.md §6.1)
// emitted by the simulation core, and the notifier/consumer mechanism
// components use to raise those events without depending on the
// consumers themselves - grounded on the teacher's hotstuff.Consumer /
// notifications.NoopConsumer pattern
// (consensus/hotstuff/eventhandler and module/metrics/consensus).
package trace

import "github.com/dapperlabs/hotstuff-sim/consensus/hotstuff/model"

// EventType names one of the fixed external trace event kinds.
type EventType string

const (
	MessageSend     EventType = "MESSAGE_SEND"
	MessageReceive  EventType = "MESSAGE_RECEIVE"
	MessageDrop     EventType = "MESSAGE_DROP"
	VoteSend        EventType = "VOTE_SEND"
	QCFormation     EventType = "QC_FORMATION"
	ProposalEvent   EventType = "PROPOSAL"
	LockUpdate      EventType = "LOCK_UPDATE"
	CommitEvent     EventType = "COMMIT"
	TimeoutEvent    EventType = "TIMEOUT"
	ViewChangeEvent EventType = "VIEW_CHANGE"
	ByzantineAction EventType = "BYZANTINE_ACTION"
)

// Event is one record appended to the simulation's trace log. Payload
// holds one of the type-specific payload structs below, selected by
// Type; callers that need the concrete fields type-assert on Payload.
type Event struct {
	TimestampMs int64
	Type        EventType
	Payload     interface{}
}

type MessageSendPayload struct {
	SenderID    model.ReplicaId
	RecipientID model.ReplicaId
	MessageType model.MessageKind
	View        model.ViewNumber
}

type MessageReceivePayload struct {
	SenderID    model.ReplicaId
	RecipientID model.ReplicaId
	MessageType model.MessageKind
	View        model.ViewNumber
}

type MessageDropPayload struct {
	SenderID    model.ReplicaId
	RecipientID model.ReplicaId
	MessageType model.MessageKind
	Reason      string
}

type VoteSendPayload struct {
	ReplicaID model.ReplicaId
	VoteType  model.Phase
	View      model.ViewNumber
	BlockHash model.BlockHash
}

type QCFormationPayload struct {
	ReplicaID model.ReplicaId
	QCType    model.Phase
	View      model.ViewNumber
	BlockHash model.BlockHash
}

type ProposalPayload struct {
	ReplicaID model.ReplicaId
	View      model.ViewNumber
	BlockHash model.BlockHash
}

type LockUpdatePayload struct {
	ReplicaID  model.ReplicaId
	LockedView model.ViewNumber
	BlockHash  model.BlockHash
}

type CommitPayload struct {
	ReplicaID model.ReplicaId
	Height    uint64
	BlockHash model.BlockHash
	LatencyMs int64
}

type TimeoutPayload struct {
	ReplicaID model.ReplicaId
	View      model.ViewNumber
}

type ViewChangePayload struct {
	ReplicaID model.ReplicaId
	NewView   model.ViewNumber
}

type ByzantineActionPayload struct {
	ReplicaID model.ReplicaId
	Action    string
}
