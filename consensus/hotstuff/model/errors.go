package model

import (
	"errors"
	"fmt"
)

// ConfigurationError wraps an invalid numeric range or unknown enum value
// discovered while validating a run configuration (spec.md §7). It is
// surfaced synchronously by Config.Validate, never from inside the step
// loop.
type ConfigurationError struct {
	Msg string
}

func (e ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s", e.Msg)
}

// ProtocolViolationError means a non-faulty replica's own logic would
// have to violate safety to proceed (spec.md §7) - a bug in the
// implementation, not a tolerated fault. It is never recovered from: the
// simulation aborts and whatever trace was recorded so far is returned
// to the caller.
type ProtocolViolationError struct {
	ReplicaID ReplicaId
	Msg       string
}

func (e ProtocolViolationError) Error() string {
	return fmt.Sprintf("protocol violation at replica %d: %s", e.ReplicaID, e.Msg)
}

// InvalidMessageError means a message failed validation (malformed QC,
// wrong phase, unknown block hash). It is never returned to a caller -
// it is recorded in the trace as MESSAGE_DROP with Reason and discarded.
type InvalidMessageError struct {
	Reason string
}

func (e InvalidMessageError) Error() string {
	return fmt.Sprintf("invalid message: %s", e.Reason)
}

// NoVoteError explains, for logging only, why a replica chose not to
// vote for an otherwise well-formed proposal (returned alongside a
// false from Replica.safeToVote). It is not one of spec.md §7's error
// categories - voting abstention is normal protocol operation - but the
// typed-error idiom mirrors it for uniform handling at call sites.
type NoVoteError struct {
	Msg string
}

func (e NoVoteError) Error() string {
	return fmt.Sprintf("not voting: %s", e.Msg)
}

// ErrQueueExhausted is the terminal, non-error condition signalling that
// the event queue is empty and no replica has pending work (spec.md §7).
var ErrQueueExhausted = errors.New("event queue exhausted")
