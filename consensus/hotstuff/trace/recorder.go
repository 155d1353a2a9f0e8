package trace

// Recorder is a Consumer that appends every notification to an ordered
// []Event slice - the canonical trace the Driver returns from step/run
// and that determinism tests diff byte-for-byte (spec.md §8).
type Recorder struct {
	NoopConsumer
	events []Event
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Events returns the recorded trace so far, oldest first.
func (r *Recorder) Events() []Event {
	return r.events
}

// Drain returns and clears the recorded trace. simulation.Driver calls
// this after every step, folding the result into its own accumulated
// trace, so Step() can report only the events that one step produced
// while Trace() still returns the run's complete history.
func (r *Recorder) Drain() []Event {
	events := r.events
	r.events = nil
	return events
}

func (r *Recorder) append(ts int64, typ EventType, payload interface{}) {
	r.events = append(r.events, Event{TimestampMs: ts, Type: typ, Payload: payload})
}

func (r *Recorder) OnMessageSend(ts int64, p MessageSendPayload) { r.append(ts, MessageSend, p) }
func (r *Recorder) OnMessageReceive(ts int64, p MessageReceivePayload) {
	r.append(ts, MessageReceive, p)
}
func (r *Recorder) OnMessageDrop(ts int64, p MessageDropPayload) { r.append(ts, MessageDrop, p) }
func (r *Recorder) OnVoteSend(ts int64, p VoteSendPayload)       { r.append(ts, VoteSend, p) }
func (r *Recorder) OnQCFormation(ts int64, p QCFormationPayload) { r.append(ts, QCFormation, p) }
func (r *Recorder) OnProposal(ts int64, p ProposalPayload)       { r.append(ts, ProposalEvent, p) }
func (r *Recorder) OnLockUpdate(ts int64, p LockUpdatePayload)   { r.append(ts, LockUpdate, p) }
func (r *Recorder) OnCommit(ts int64, p CommitPayload)           { r.append(ts, CommitEvent, p) }
func (r *Recorder) OnTimeout(ts int64, p TimeoutPayload)         { r.append(ts, TimeoutEvent, p) }
func (r *Recorder) OnViewChange(ts int64, p ViewChangePayload)   { r.append(ts, ViewChangeEvent, p) }
func (r *Recorder) OnByzantineAction(ts int64, p ByzantineActionPayload) {
	r.append(ts, ByzantineAction, p)
}

var _ Consumer = (*Recorder)(nil)
