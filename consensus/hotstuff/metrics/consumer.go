package metrics

import (
	"github.com/dapperlabs/hotstuff-sim/consensus/hotstuff/trace"
)

// ConsumerAdapter feeds a Collector from the same trace.Consumer
// notifications the Recorder is fed from, following the teacher's
// MetricsConsumer embedding notifications.NoopConsumer and overriding
// only the events it measures.
type ConsumerAdapter struct {
	trace.NoopConsumer
	collector *Collector
}

// NewConsumerAdapter returns a trace.Consumer that records into
// collector.
func NewConsumerAdapter(collector *Collector) *ConsumerAdapter {
	return &ConsumerAdapter{collector: collector}
}

func (a *ConsumerAdapter) OnCommit(timestampMs int64, p trace.CommitPayload) {
	a.collector.RecordCommit(timestampMs, p.LatencyMs)
}

func (a *ConsumerAdapter) OnTimeout(timestampMs int64, p trace.TimeoutPayload) {
	a.collector.RecordTimeout()
}

func (a *ConsumerAdapter) OnViewChange(timestampMs int64, p trace.ViewChangePayload) {
	a.collector.RecordViewChange()
}

var _ trace.Consumer = (*ConsumerAdapter)(nil)
