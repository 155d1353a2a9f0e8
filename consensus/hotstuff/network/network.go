// Package network implements the simulated transport between replicas
// (spec.md §4.2): per-edge latency and loss driven by a seeded PRNG,
// optional partitioning, and broadcast fan-out. Grounded on the
// teacher's engine/simulation/coldstuff/round package, which seeds
// math/rand deterministically from simulation state for reproducible
// behaviour. Per-edge delivery order is tracked with
// github.com/gammazero/deque and surfaced through Reordered, which
// simulation.Driver feeds into the metrics snapshot (spec.md/
// SPEC_FULL.md §6.2, §10).
package network

import (
	"math/rand"

	"github.com/gammazero/deque"
	"github.com/rs/zerolog"

	"github.com/dapperlabs/hotstuff-sim/consensus/hotstuff/model"
	"github.com/dapperlabs/hotstuff-sim/consensus/hotstuff/trace"
)

// Envelope is the unit of scheduling the Network hands to the Driver:
// everything needed to dispatch (or record the drop of) one message.
type Envelope struct {
	SendTimeMs    int64
	DeliverTimeMs int64
	Sender        model.ReplicaId
	Recipient     model.ReplicaId
	Message       model.Message
}

// Scheduler is the subset of the Driver's event queue the Network needs
// to schedule deliveries. The Network never touches the event queue
// directly (spec.md §5).
type Scheduler interface {
	ScheduleDeliver(envelope Envelope)
}

// edgeKey identifies a directed sender->recipient pair.
type edgeKey struct {
	From model.ReplicaId
	To   model.ReplicaId
}

// Config parameterizes the Network (spec.md §4.2, §6.3).
type Config struct {
	BaseLatencyMs   int64
	JitterMs        int64
	DropProbability float64 // per edge, uniform unless overridden below
	// Partitions lists pairs whose deliveries are always dropped,
	// independent of DropProbability.
	Partitions []edgeKeyPair
	Seed       int64
}

// edgeKeyPair names one direction of a partitioned pair; Partition
// builds the symmetric pair of entries a full (bidirectional) partition
// needs.
type edgeKeyPair struct {
	From model.ReplicaId
	To   model.ReplicaId
}

// Partition returns the Partitions entries that fully sever replica
// group a from replica group b in both directions - a convenience
// constructor over spec.md §4.2's partition_set parameter
// (SPEC_FULL.md §11.3).
func Partition(a, b []model.ReplicaId) []edgeKeyPair {
	var pairs []edgeKeyPair
	for _, x := range a {
		for _, y := range b {
			pairs = append(pairs, edgeKeyPair{From: x, To: y}, edgeKeyPair{From: y, To: x})
		}
	}
	return pairs
}

// Network is the deterministic, seeded simulated transport shared by
// every replica in a run.
type Network struct {
	log       zerolog.Logger
	cfg       Config
	scheduler Scheduler
	consumer  trace.Consumer
	rng       *rand.Rand
	partition map[edgeKey]struct{}
	msgSeq    uint64

	// recent keeps a short per-edge ring of the last scheduled (not
	// dropped) envelopes, used only to report whether a delivery arrives out of
	// send order (a reordering diagnostic surfaced in the metrics
	// snapshot, SPEC_FULL.md §10).
	recent map[edgeKey]*deque.Deque
}

// New returns a Network wired to scheduler for delivery scheduling and
// consumer for MESSAGE_SEND/MESSAGE_DROP trace events.
func New(log zerolog.Logger, cfg Config, scheduler Scheduler, consumer trace.Consumer) *Network {
	partition := make(map[edgeKey]struct{}, len(cfg.Partitions))
	for _, p := range cfg.Partitions {
		partition[edgeKey{From: p.From, To: p.To}] = struct{}{}
	}
	return &Network{
		log:       log.With().Str("component", "network").Logger(),
		cfg:       cfg,
		scheduler: scheduler,
		consumer:  consumer,
		rng:       rand.New(rand.NewSource(cfg.Seed)),
		partition: partition,
		recent:    make(map[edgeKey]*deque.Deque),
	}
}

// Send schedules exactly one delivery of message from sender to
// recipient, unless it is dropped, in which case nothing is scheduled
// and a MESSAGE_DROP trace event is raised instead (spec.md §4.2).
// nowMs is the Driver's current simulated time, used as the message's
// SendTimeMs.
func (n *Network) Send(sender, recipient model.ReplicaId, message model.Message, nowMs int64) {
	n.msgSeq++

	if sender == recipient {
		// Self-delivery is immediate and never dropped (spec.md §4.2).
		n.raiseSend(nowMs, sender, recipient, message)
		n.scheduler.ScheduleDeliver(Envelope{
			SendTimeMs:    nowMs,
			DeliverTimeMs: nowMs,
			Sender:        sender,
			Recipient:     recipient,
			Message:       message,
		})
		return
	}

	edge := edgeKey{From: sender, To: recipient}

	// Sample in fixed order (drop decision, then latency jitter) so that
	// the PRNG stream is advanced identically across replays of the same
	// (config, seed) deterministic event sequence (spec.md §4.2).
	dropSample := n.rng.Float64()
	jitterSample := n.rng.Int63n(2*n.cfg.JitterMs + 1)

	_, partitioned := n.partition[edge]
	dropped := partitioned || dropSample < n.cfg.DropProbability
	if dropped {
		n.raiseDrop(nowMs, sender, recipient, message, partitionOrProbabilityReason(partitioned))
		return
	}

	n.raiseSend(nowMs, sender, recipient, message)

	latency := n.cfg.BaseLatencyMs + jitterSample - n.cfg.JitterMs
	if latency < 0 {
		latency = 0
	}
	deliverAt := nowMs + latency

	env := Envelope{
		SendTimeMs:    nowMs,
		DeliverTimeMs: deliverAt,
		Sender:        sender,
		Recipient:     recipient,
		Message:       message,
	}
	n.recordRecent(edge, env)
	n.scheduler.ScheduleDeliver(env)
}

// Broadcast expands into len(recipients) independent Send calls, each
// with its own latency/drop sample (spec.md §4.2).
func (n *Network) Broadcast(sender model.ReplicaId, recipients []model.ReplicaId, message model.Message, nowMs int64) {
	for _, r := range recipients {
		n.Send(sender, r, message, nowMs)
	}
}

func partitionOrProbabilityReason(partitioned bool) string {
	if partitioned {
		return "partitioned edge"
	}
	return "sampled drop"
}

func (n *Network) raiseSend(nowMs int64, sender, recipient model.ReplicaId, message model.Message) {
	n.consumer.OnMessageSend(nowMs, trace.MessageSendPayload{
		SenderID:    sender,
		RecipientID: recipient,
		MessageType: message.Kind(),
		View:        message.MsgView(),
	})
}

func (n *Network) raiseDrop(nowMs int64, sender, recipient model.ReplicaId, message model.Message, reason string) {
	n.log.Debug().
		Uint32("sender", uint32(sender)).
		Uint32("recipient", uint32(recipient)).
		Str("reason", reason).
		Msg("message dropped")
	n.consumer.OnMessageDrop(nowMs, trace.MessageDropPayload{
		SenderID:    sender,
		RecipientID: recipient,
		MessageType: message.Kind(),
		Reason:      reason,
	})
}

func (n *Network) recordRecent(edge edgeKey, env Envelope) {
	d, ok := n.recent[edge]
	if !ok {
		d = new(deque.Deque)
		n.recent[edge] = d
	}
	d.PushBack(env)
	for d.Len() > 16 {
		d.PopFront()
	}
}

// Reordered reports whether the most recent delivery scheduled on the
// sender->recipient edge would arrive out of send order relative to the
// one before it - a cheap diagnostic for the metrics snapshot, not a
// correctness mechanism (replicas must already tolerate reordering,
// spec.md §5).
func (n *Network) Reordered(sender, recipient model.ReplicaId) bool {
	d, ok := n.recent[edgeKey{From: sender, To: recipient}]
	if !ok || d.Len() < 2 {
		return false
	}
	last := d.At(d.Len() - 1).(Envelope)
	prev := d.At(d.Len() - 2).(Envelope)
	return last.SendTimeMs > prev.SendTimeMs && last.DeliverTimeMs < prev.DeliverTimeMs
}
