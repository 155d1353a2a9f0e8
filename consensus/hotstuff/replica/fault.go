package replica

import (
	"fmt"
	"math/rand"

	"github.com/dapperlabs/hotstuff-sim/consensus/hotstuff/model"
	"github.com/dapperlabs/hotstuff-sim/consensus/hotstuff/trace"
)

// faultBehavior wraps every outgoing send/broadcast and every incoming
// dispatch with the injectable misbehaviors spec.md §4.7.4 enumerates.
// A correct replica's faultBehavior is a thin pass-through; this keeps
// fault logic out of the main protocol handlers in basic.go/chained.go.
type faultBehavior struct {
	r               *Replica
	faultType       model.FaultType
	dropProbability float64
	rng             *rand.Rand
}

func newFaultBehavior(r *Replica, faultType model.FaultType, dropProbability float64, seed int64) *faultBehavior {
	return &faultBehavior{
		r:               r,
		faultType:       faultType,
		dropProbability: dropProbability,
		rng:             rand.New(rand.NewSource(seed)),
	}
}

// discardsIncoming reports whether this replica should ignore an
// arriving message outright. CRASH discards every incoming message
// from the moment it becomes faulty, modeled here as from the start of
// the run; SILENT "retains state" (spec.md §4.7.4) - it keeps
// processing incoming messages and advancing its local view/phase, it
// simply never emits anything (enforced in send/broadcastProposal
// below).
func (f *faultBehavior) discardsIncoming() bool {
	return f.faultType == model.CrashFault
}

// send transmits one point-to-point message, suppressing it per the
// replica's fault type.
func (f *faultBehavior) send(nowMs int64, to model.ReplicaId, msg model.Message) {
	if f.suppressed(nowMs, msg, "send") {
		return
	}
	f.r.sender.Send(f.r.state.ID, to, msg, nowMs)
}

// broadcastProposal fans a proposal out to every participant, honoring
// BYZANTINE_EQUIVOCATE by sending two distinct blocks for the same view
// to disjoint halves of the committee instead of one block to everyone
// (spec.md §4.7.4).
func (f *faultBehavior) broadcastProposal(nowMs int64, participants []model.ReplicaId, proposal model.Proposal) {
	if f.faultType != model.ByzantineEquivocateFault || proposal.Phase != model.Prepare {
		if f.suppressed(nowMs, proposal, "broadcast") {
			return
		}
		f.r.sender.Broadcast(f.r.state.ID, participants, proposal, nowMs)
		return
	}

	half := len(participants) / 2
	groupA, groupB := participants[:half], participants[half:]

	r := f.r
	r.payloadSeq++
	altParent, _ := r.store.Get(proposal.JustifyQC.BlockHash)
	altBlock := model.NewBlock(altParent, proposal.Block.View, r.state.ID, r.payloadSeq)
	r.store.Add(altBlock)
	altProposal := model.Proposal{
		Block: altBlock, JustifyQC: proposal.JustifyQC, Phase: model.Prepare, ProposerID: r.state.ID,
	}

	r.consumer.OnByzantineAction(nowMs, trace.ByzantineActionPayload{
		ReplicaID: r.state.ID, Action: fmt.Sprintf("equivocated proposal for view %d", proposal.Block.View),
	})
	r.sender.Broadcast(r.state.ID, groupA, proposal, nowMs)
	r.sender.Broadcast(r.state.ID, groupB, altProposal, nowMs)
}

// suppressed applies SILENT/RANDOM_DROP to an outgoing send/broadcast,
// reporting whether the caller should skip transmission. It also raises
// BYZANTINE_ACTION for the suppression itself, since it is observable
// injected misbehavior (spec.md §4.7.4: "Each action is recorded as
// BYZANTINE_ACTION in the trace").
func (f *faultBehavior) suppressed(nowMs int64, msg model.Message, verb string) bool {
	switch f.faultType {
	case model.CrashFault, model.SilentFault:
		f.r.consumer.OnByzantineAction(nowMs, trace.ByzantineActionPayload{
			ReplicaID: f.r.state.ID, Action: "suppressed " + verb + " (" + f.faultType.String() + ")",
		})
		return true
	case model.RandomDropFault:
		if f.rng.Float64() < f.dropProbability {
			f.r.consumer.OnByzantineAction(nowMs, trace.ByzantineActionPayload{
				ReplicaID: f.r.state.ID, Action: "randomly dropped own " + verb,
			})
			return true
		}
		return false
	default:
		return false
	}
}
