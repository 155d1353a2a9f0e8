package trace

// Consumer receives every trace-worthy event a component raises. Each
// method corresponds to one EventType in spec.md §6.1. Implementations
// embed NoopConsumer so they only need to override the events they
// care about - exactly the shape of the teacher's
// module/metrics/consensus.MetricsConsumer embedding
// notifications.NoopConsumer.
type Consumer interface {
	OnMessageSend(timestampMs int64, p MessageSendPayload)
	OnMessageReceive(timestampMs int64, p MessageReceivePayload)
	OnMessageDrop(timestampMs int64, p MessageDropPayload)
	OnVoteSend(timestampMs int64, p VoteSendPayload)
	OnQCFormation(timestampMs int64, p QCFormationPayload)
	OnProposal(timestampMs int64, p ProposalPayload)
	OnLockUpdate(timestampMs int64, p LockUpdatePayload)
	OnCommit(timestampMs int64, p CommitPayload)
	OnTimeout(timestampMs int64, p TimeoutPayload)
	OnViewChange(timestampMs int64, p ViewChangePayload)
	OnByzantineAction(timestampMs int64, p ByzantineActionPayload)
}

// NoopConsumer implements Consumer with no-ops. Embed it to implement
// only the subset of events a given consumer cares about.
type NoopConsumer struct{}

func (NoopConsumer) OnMessageSend(int64, MessageSendPayload)          {}
func (NoopConsumer) OnMessageReceive(int64, MessageReceivePayload)    {}
func (NoopConsumer) OnMessageDrop(int64, MessageDropPayload)          {}
func (NoopConsumer) OnVoteSend(int64, VoteSendPayload)                {}
func (NoopConsumer) OnQCFormation(int64, QCFormationPayload)          {}
func (NoopConsumer) OnProposal(int64, ProposalPayload)                {}
func (NoopConsumer) OnLockUpdate(int64, LockUpdatePayload)            {}
func (NoopConsumer) OnCommit(int64, CommitPayload)                    {}
func (NoopConsumer) OnTimeout(int64, TimeoutPayload)                  {}
func (NoopConsumer) OnViewChange(int64, ViewChangePayload)            {}
func (NoopConsumer) OnByzantineAction(int64, ByzantineActionPayload)  {}

var _ Consumer = NoopConsumer{}

// MultiConsumer fans one set of notifications out to several consumers,
// in registration order. Used by the Driver to feed both the Recorder
// (building the canonical []Event trace) and the metrics collector from
// the same call sites.
type MultiConsumer struct {
	consumers []Consumer
}

// NewMultiConsumer builds a MultiConsumer over the given consumers.
func NewMultiConsumer(consumers ...Consumer) *MultiConsumer {
	return &MultiConsumer{consumers: consumers}
}

func (m *MultiConsumer) OnMessageSend(ts int64, p MessageSendPayload) {
	for _, c := range m.consumers {
		c.OnMessageSend(ts, p)
	}
}
func (m *MultiConsumer) OnMessageReceive(ts int64, p MessageReceivePayload) {
	for _, c := range m.consumers {
		c.OnMessageReceive(ts, p)
	}
}
func (m *MultiConsumer) OnMessageDrop(ts int64, p MessageDropPayload) {
	for _, c := range m.consumers {
		c.OnMessageDrop(ts, p)
	}
}
func (m *MultiConsumer) OnVoteSend(ts int64, p VoteSendPayload) {
	for _, c := range m.consumers {
		c.OnVoteSend(ts, p)
	}
}
func (m *MultiConsumer) OnQCFormation(ts int64, p QCFormationPayload) {
	for _, c := range m.consumers {
		c.OnQCFormation(ts, p)
	}
}
func (m *MultiConsumer) OnProposal(ts int64, p ProposalPayload) {
	for _, c := range m.consumers {
		c.OnProposal(ts, p)
	}
}
func (m *MultiConsumer) OnLockUpdate(ts int64, p LockUpdatePayload) {
	for _, c := range m.consumers {
		c.OnLockUpdate(ts, p)
	}
}
func (m *MultiConsumer) OnCommit(ts int64, p CommitPayload) {
	for _, c := range m.consumers {
		c.OnCommit(ts, p)
	}
}
func (m *MultiConsumer) OnTimeout(ts int64, p TimeoutPayload) {
	for _, c := range m.consumers {
		c.OnTimeout(ts, p)
	}
}
func (m *MultiConsumer) OnViewChange(ts int64, p ViewChangePayload) {
	for _, c := range m.consumers {
		c.OnViewChange(ts, p)
	}
}
func (m *MultiConsumer) OnByzantineAction(ts int64, p ByzantineActionPayload) {
	for _, c := range m.consumers {
		c.OnByzantineAction(ts, p)
	}
}

var _ Consumer = (*MultiConsumer)(nil)
