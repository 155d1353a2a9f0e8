// Package replica implements the HotStuff state machine (spec.md §4.7):
// the per-replica handler that reacts to message delivery and timeout
// events, enforces the safety predicate, drives the four-phase voting
// cascade, and executes the view-change protocol. Grounded on the
// shape of the teacher's consensus/hotstuff/eventhandler.EventHandler
// (single-threaded, event-driven, "not concurrency safe" by design -
// the event queue IS the scheduler, spec.md §5) and its
// blockproducer/voter split, adapted from flow-go's chained-block model
// to spec.md's explicit four-phase-per-view Basic HotStuff plus the
// Chained pipeline mode (chained.go, SPEC_FULL.md §11.1).
package replica

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dapperlabs/hotstuff-sim/consensus/hotstuff/committee"
	"github.com/dapperlabs/hotstuff-sim/consensus/hotstuff/model"
	"github.com/dapperlabs/hotstuff-sim/consensus/hotstuff/pacemaker"
	"github.com/dapperlabs/hotstuff-sim/consensus/hotstuff/safety"
	"github.com/dapperlabs/hotstuff-sim/consensus/hotstuff/trace"
	"github.com/dapperlabs/hotstuff-sim/consensus/hotstuff/votecollector"
)

// Sender is the subset of the Network a Replica needs: point-to-point
// send and broadcast. A Replica never schedules deliveries itself -
// the Network alone owns latency/drop sampling (spec.md §4.2).
type Sender interface {
	Send(from, to model.ReplicaId, msg model.Message, nowMs int64)
	Broadcast(from model.ReplicaId, to []model.ReplicaId, msg model.Message, nowMs int64)
}

// Mode selects between Basic HotStuff's four-phase-per-view cascade and
// the Chained pipeline variant (SPEC_FULL.md §11.1).
type Mode uint8

const (
	Basic Mode = iota
	Chained
)

// Replica is the per-participant HotStuff state machine. One instance
// exists per simulated replica, owned exclusively by the Driver, which
// is the only caller of its dispatch methods (spec.md §5: "No locking
// is required or permitted in the core").
type Replica struct {
	log       zerolog.Logger
	committee committee.Committee
	mode      Mode

	store     *model.BlockStore
	collector *votecollector.Collector
	pacer     pacemaker.Pacemaker
	sender    Sender
	consumer  trace.Consumer
	fault     *faultBehavior

	state *model.ReplicaState

	// highestKnownQC is the best QC this replica has observed from any
	// source (its own votecollector, a proposal's justify_qc, or a peer's
	// NewView). It is what gets carried in this replica's own NewView
	// messages and, when this replica is leader, seeds highQC alongside
	// peers' contributions (spec.md §4.7.1 step 1).
	highestKnownQC model.QuorumCertificate

	// newViewVotesByView collects, per view, the QCs peers report while
	// this replica leads that view - keyed by view first because the
	// network's reordering guarantee (spec.md §5) means a NewView for a
	// not-yet-entered view can arrive before this replica calls
	// enterView for it; votes accumulate regardless and are consulted
	// again the moment this replica does enter that view.
	newViewVotesByView map[model.ViewNumber]map[model.ReplicaId]model.QuorumCertificate
	proposedViews      map[model.ViewNumber]bool

	// proposalRecvAt records, per block hash, the simulated time this
	// replica first saw the Prepare proposal for it - the basis for the
	// commit-latency fed to the Pacemaker and reported in COMMIT events
	// (spec.md §9: "the latency value fed in is the commit latency
	// observed by THAT replica").
	proposalRecvAt map[model.BlockHash]int64

	payloadSeq uint64

	// justifyOf records, per block hash, the QC that justified it when
	// it was proposed. Basic mode never reads it (a block's justify QC
	// is always present on the current in-flight Proposal message
	// instead); Chained mode uses it to walk the 3-chain back through
	// blocks it has already processed (chained.go).
	justifyOf map[model.BlockHash]model.QuorumCertificate

	// participants is the full replica id set, needed for broadcast.
	participants []model.ReplicaId
}

// New returns a Replica for id within committee c, operating in mode,
// wired to the given collaborators. faultType/isFaulty/dropProbability
// configure fault injection (spec.md §4.7.4); pass model.NoFault and
// false for a correct replica.
func New(
	log zerolog.Logger,
	id model.ReplicaId,
	participants []model.ReplicaId,
	c committee.Committee,
	mode Mode,
	pacer pacemaker.Pacemaker,
	sender Sender,
	consumer trace.Consumer,
	isFaulty bool,
	faultType model.FaultType,
	dropProbability float64,
	faultSeed int64,
) *Replica {
	r := &Replica{
		log:                log.With().Uint32("replica", uint32(id)).Logger(),
		committee:          c,
		mode:               mode,
		store:              model.NewBlockStore(),
		collector:          votecollector.New(log, c.Quorum()),
		pacer:              pacer,
		sender:             sender,
		consumer:           consumer,
		state:              model.NewReplicaState(id, isFaulty, faultType),
		highestKnownQC:     model.GenesisQC(),
		newViewVotesByView: make(map[model.ViewNumber]map[model.ReplicaId]model.QuorumCertificate),
		proposedViews:      make(map[model.ViewNumber]bool),
		proposalRecvAt:     make(map[model.BlockHash]int64),
		justifyOf:          make(map[model.BlockHash]model.QuorumCertificate),
		participants:       participants,
	}
	r.fault = newFaultBehavior(r, faultType, dropProbability, faultSeed)
	return r
}

// ID returns this replica's identifier.
func (r *Replica) ID() model.ReplicaId { return r.state.ID }

// State exposes the replica's current state for status reporting
// (spec.md §6.2 `GET replicas`) and for test assertions.
func (r *Replica) State() *model.ReplicaState { return r.state }

// IsLeader reports whether this replica leads view.
func (r *Replica) IsLeader(view model.ViewNumber) bool {
	return r.committee.LeaderOf(view) == r.state.ID
}

// Start begins the run by entering view 0. In Basic mode (spec.md
// §4.7.3) every replica sends a NewView(0, GenesisQC) to leader_of(0),
// including to itself if it leads, and that leader proposes once a
// quorum of those arrive. Chained mode (SPEC_FULL.md §11.1) has no
// NewView round: GenesisQC is axiomatically known to everyone, so
// leader_of(0) proposes immediately.
func (r *Replica) Start(nowMs int64) error {
	if r.mode == Chained {
		return r.chainedEnterView(nowMs, 0)
	}
	return r.enterView(nowMs, 0)
}

// HandleDeliver dispatches one Deliver event's message to the
// appropriate handler. It is the sole entry point the Driver uses for
// message arrivals.
func (r *Replica) HandleDeliver(nowMs int64, sender model.ReplicaId, msg model.Message) error {
	if r.fault.discardsIncoming() {
		return nil
	}

	r.consumer.OnMessageReceive(nowMs, trace.MessageReceivePayload{
		SenderID:    sender,
		RecipientID: r.state.ID,
		MessageType: msg.Kind(),
		View:        msg.MsgView(),
	})

	switch m := msg.(type) {
	case model.Proposal:
		if r.mode == Chained {
			return r.handleChainedProposal(nowMs, m)
		}
		return r.handleProposal(nowMs, m)
	case model.Vote:
		if r.mode == Chained {
			return r.handleChainedVote(nowMs, m)
		}
		return r.handleVote(nowMs, m)
	case model.NewViewMsg:
		if r.mode == Chained {
			return nil // chained mode has no NewView round (spec.md §11.1 bootstrap note)
		}
		return r.handleNewView(nowMs, m)
	case model.TimeoutMsg:
		return nil // diagnostic echo only, spec.md §3
	default:
		return model.ProtocolViolationError{ReplicaID: r.state.ID, Msg: fmt.Sprintf("unrecognized message type %T", msg)}
	}
}

// HandleTimeout dispatches a Pacemaker timer firing for view. Timers
// for views the replica has already left are no-ops (spec.md §5:
// "Timeouts for obsolete views that survive cancellation must be
// no-ops").
func (r *Replica) HandleTimeout(nowMs int64, view model.ViewNumber) error {
	if view < r.state.CurrentView {
		return nil
	}
	r.consumer.OnTimeout(nowMs, trace.TimeoutPayload{ReplicaID: r.state.ID, View: view})
	nextView := r.pacer.OnTimeout()
	if r.mode == Chained {
		return r.chainedAdvanceView(nowMs, nextView)
	}
	return r.advanceView(nowMs, nextView)
}

// advanceView moves the replica forward to newView, emitting
// VIEW_CHANGE and re-entering (spec.md §4.7.3). A newView no later than
// the current one is a no-op - it can arrive this way when a
// Decide-phase completion and a racing timeout both target the same
// transition.
func (r *Replica) advanceView(nowMs int64, newView model.ViewNumber) error {
	if newView <= r.state.CurrentView {
		return nil
	}
	r.consumer.OnViewChange(nowMs, trace.ViewChangePayload{ReplicaID: r.state.ID, NewView: newView})
	return r.enterView(nowMs, newView)
}

// enterView sets the replica's local view/phase, restarts its
// Pacemaker timer, and sends this replica's NewView contribution to
// leader_of(view) - including to itself, via the Network's immediate
// self-delivery (spec.md §4.2). If this replica leads view, it then
// checks whether enough NewView votes have already accumulated to
// propose immediately.
func (r *Replica) enterView(nowMs int64, view model.ViewNumber) error {
	r.state.CurrentView = view
	r.state.CurrentPhase = model.NewView
	r.pacer.OnEnterView(view, nowMs)

	msg := model.NewViewMsg{View: view, HighestQC: r.highestKnownQC, Voter: r.state.ID}
	r.fault.send(nowMs, r.committee.LeaderOf(view), msg)

	if r.IsLeader(view) {
		return r.tryProposeAsLeader(nowMs, view)
	}
	return nil
}

// learnQC updates highestKnownQC if qc is newer, keeping this replica's
// NewView contributions current even when it never forms a QC itself.
// A real QC also replaces the bootstrap GenesisQC at the same view 0, so
// the view-1 leader extends the view-0 block rather than genesis.
func (r *Replica) learnQC(qc model.QuorumCertificate) {
	genesis := model.Genesis().Hash
	replacesGenesis := qc.View == r.highestKnownQC.View &&
		r.highestKnownQC.BlockHash == genesis && qc.BlockHash != genesis
	if qc.View > r.highestKnownQC.View || replacesGenesis {
		r.highestKnownQC = qc
	}
}

// validateJustifyQC checks the structural well-formedness spec.md
// §4.7.2 requires before evaluating safety: sufficient distinct
// signers and a view no later than the proposal's own view. Genesis's
// vacuous QC (no signers) is accepted only for view 0.
func (r *Replica) validateJustifyQC(qc model.QuorumCertificate, proposalView model.ViewNumber) error {
	if qc.View > proposalView {
		return model.InvalidMessageError{Reason: "justify QC view exceeds proposal view"}
	}
	if qc.View == 0 && qc.BlockHash == model.Genesis().Hash {
		return nil
	}
	if !qc.IsValid(r.committee.Quorum()) {
		return model.InvalidMessageError{Reason: "justify QC lacks quorum of distinct signers"}
	}
	return nil
}

// Teardown runs a final consistency check over this replica's
// committed chain before it is discarded (simulation.Driver.Reset
// calls it on every replica ahead of rebuilding the run). It returns
// the first missing block or broken parent-link it finds; Reset
// aggregates these per-replica results across the whole replica set.
func (r *Replica) Teardown() error {
	chain := r.state.CommittedChain
	for i := 1; i < len(chain); i++ {
		b, ok := r.store.Get(chain[i])
		if !ok {
			return model.ProtocolViolationError{ReplicaID: r.state.ID, Msg: "committed block missing from store"}
		}
		if b.ParentHash != chain[i-1] {
			return model.ProtocolViolationError{ReplicaID: r.state.ID, Msg: "committed chain parent link broken"}
		}
	}
	return nil
}

// safeToVote applies spec.md §4.4's safety predicate plus the two
// additional refusals §4.4 names: a stale view relative to the justify
// QC, and an already-cast, conflicting vote for (phase, view). When it
// declines, it reports why as a model.NoVoteError so call sites can log
// the reason instead of just the bare fact of abstention.
func (r *Replica) safeToVote(block model.Block, justify model.QuorumCertificate, phase model.Phase, view model.ViewNumber) (bool, error) {
	if !safety.ViewEligible(r.state.CurrentView, justify) {
		return false, model.NoVoteError{Msg: "current view is behind justify QC's view"}
	}
	if !r.state.CanVote(phase, view, block.Hash) {
		return false, model.NoVoteError{Msg: "already cast a conflicting vote for this (phase, view)"}
	}
	if !safety.SafeNode(block, justify, r.state.LockedQC, r.store) {
		return false, model.NoVoteError{Msg: "block neither extends the locked block nor carries a newer justification"}
	}
	return true, nil
}
