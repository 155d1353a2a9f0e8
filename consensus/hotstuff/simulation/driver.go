package simulation

import (
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"

	"github.com/dapperlabs/hotstuff-sim/consensus/hotstuff/committee"
	"github.com/dapperlabs/hotstuff-sim/consensus/hotstuff/event"
	"github.com/dapperlabs/hotstuff-sim/consensus/hotstuff/metrics"
	"github.com/dapperlabs/hotstuff-sim/consensus/hotstuff/model"
	"github.com/dapperlabs/hotstuff-sim/consensus/hotstuff/network"
	"github.com/dapperlabs/hotstuff-sim/consensus/hotstuff/pacemaker"
	"github.com/dapperlabs/hotstuff-sim/consensus/hotstuff/replica"
	"github.com/dapperlabs/hotstuff-sim/consensus/hotstuff/trace"
)

// Driver owns the event queue, clock, network and replica set for one
// simulation run and is the sole caller of every other package's
// dispatch methods (spec.md §4.8, §5). It implements both
// network.Scheduler and pacemaker.Scheduler, since both packages must
// schedule onto the same queue it alone owns.
type Driver struct {
	log       zerolog.Logger
	cfg       Config
	committee committee.Committee

	clock *event.Clock
	queue *event.Queue
	net   *network.Network

	recorder *trace.Recorder
	collect  *metrics.Collector
	consumer trace.Consumer

	// fullTrace accumulates every event drained from recorder across the
	// run's lifetime, so Trace() keeps returning the complete history even
	// though step()/Step() now drain the recorder on every call.
	fullTrace []trace.Event

	replicas []model.ReplicaId
	byID     map[model.ReplicaId]*replica.Replica
	pacers   map[model.ReplicaId]pacemaker.Pacemaker

	maxViewSeen model.ViewNumber

	// isRunning/isPaused are read and toggled from outside the run
	// goroutine by the (out-of-scope) status/control API, so they are
	// atomics rather than plain fields - the same shape as
	// AdrenalinePaceMaker's started *atomic.Bool in the pack.
	isRunning *atomic.Bool
	isPaused  *atomic.Bool
}

// viewTracker is a tiny Consumer that keeps Driver.maxViewSeen current,
// the signal Run uses to know when a configured max_views has been
// reached (spec.md §6.3's run-length bound).
type viewTracker struct {
	trace.NoopConsumer
	d *Driver
}

func (t viewTracker) OnViewChange(_ int64, p trace.ViewChangePayload) {
	if p.NewView > t.d.maxViewSeen {
		t.d.maxViewSeen = p.NewView
	}
}

// New builds a Driver for cfg: a committee, clock, queue, network,
// metrics collector and one Replica plus Pacemaker per configured
// replica id, all wired to the same event queue and consumer fan-out.
func New(log zerolog.Logger, cfg Config) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	d := &Driver{
		log:       log.With().Str("component", "driver").Logger(),
		cfg:       cfg,
		committee: committee.New(cfg.NumReplicas, cfg.NumFaulty),
		clock:     event.NewClock(),
		queue:     event.NewQueue(),
		recorder:  trace.NewRecorder(),
		collect:   metrics.New(),
		byID:      make(map[model.ReplicaId]*replica.Replica),
		pacers:    make(map[model.ReplicaId]pacemaker.Pacemaker),
		isRunning: atomic.NewBool(false),
		isPaused:  atomic.NewBool(false),
	}
	d.consumer = trace.NewMultiConsumer(d.recorder, metrics.NewConsumerAdapter(d.collect), viewTracker{d: d})
	d.net = network.New(d.log, cfg.networkConfig(), d, d.consumer)

	if d.committee.IsOverFaultBound() {
		d.log.Warn().
			Int("num_replicas", cfg.NumReplicas).
			Int("num_faulty", cfg.NumFaulty).
			Int("max_tolerated", d.committee.MaxToleratedFaults()).
			Msg("configured num_faulty exceeds the provable safety bound; running anyway")
	}

	faulty := cfg.faultyReplicaSet()
	mode := replica.Basic
	if cfg.Chained {
		mode = replica.Chained
	}

	for i := 0; i < cfg.NumReplicas; i++ {
		id := model.ReplicaId(i)
		d.replicas = append(d.replicas, id)

		var pacer pacemaker.Pacemaker
		switch cfg.PacemakerKind {
		case AdaptivePacemaker:
			pacer = pacemaker.NewAdaptive(id, d, cfg.Adaptive)
		default:
			pacer = pacemaker.NewBaseline(id, d, cfg.BaselineDeltaMs)
		}
		d.pacers[id] = pacer

		d.byID[id] = replica.New(
			d.log, id, d.replicas, d.committee, mode, pacer, d.net, d.consumer,
			faulty[id], cfg.FaultType, cfg.FaultDropProbability, cfg.Seed+int64(id)+1,
		)
	}

	return d, nil
}

// ScheduleDeliver implements network.Scheduler.
func (d *Driver) ScheduleDeliver(env network.Envelope) {
	d.queue.Push(&event.Item{Time: env.DeliverTimeMs, Kind: event.Deliver, Target: env.Recipient, Payload: env})
}

// ScheduleTimeout implements pacemaker.Scheduler.
func (d *Driver) ScheduleTimeout(replicaID model.ReplicaId, view model.ViewNumber, atMs int64) {
	d.queue.Push(&event.Item{Time: atMs, Kind: event.Timeout, Target: replicaID, View: view})
}

// CancelTimeoutsBefore implements pacemaker.Scheduler.
func (d *Driver) CancelTimeoutsBefore(replicaID model.ReplicaId, view model.ViewNumber) {
	d.queue.Cancel(func(it *event.Item) bool {
		return it.Kind == event.Timeout && it.Target == replicaID && it.View < view
	})
}

// Start begins the run: every replica enters view 0, in ascending id
// order for determinism (spec.md §4.8). Whatever this produces (the
// bootstrap NewView round, or an immediate view-0 proposal in Chained
// mode) is drained into the accumulated trace before the first Step
// call, so Step's own drain reflects only the step it dispatched.
func (d *Driver) Start() error {
	for _, id := range d.replicas {
		if err := d.byID[id].Start(d.clock.Now()); err != nil {
			return err
		}
	}
	d.drainToTrace()
	return nil
}

// drainToTrace empties the recorder's buffer and appends what it held
// onto the Driver's own accumulated trace, returning just the drained
// slice so a caller (step) can report only what that one call produced.
func (d *Driver) drainToTrace() []trace.Event {
	events := d.recorder.Drain()
	d.fullTrace = append(d.fullTrace, events...)
	return events
}

// step pops and dispatches the single earliest-ordered pending event,
// returning the trace event(s) it produced (spec.md §4.8's
// `step() -> Event?`). It returns model.ErrQueueExhausted once nothing
// remains.
func (d *Driver) step() ([]trace.Event, error) {
	item := d.queue.Pop()
	if item == nil {
		return nil, model.ErrQueueExhausted
	}
	d.clock.Advance(item.Time)

	var dispatchErr error
	if r := d.byID[item.Target]; r != nil {
		switch item.Kind {
		case event.Deliver:
			env := item.Payload.(network.Envelope)
			if d.net.Reordered(env.Sender, env.Recipient) {
				d.collect.RecordReorder()
			}
			dispatchErr = r.HandleDeliver(d.clock.Now(), env.Sender, env.Message)
		case event.Timeout:
			dispatchErr = r.HandleTimeout(d.clock.Now(), item.View)
		}
	}
	return d.drainToTrace(), dispatchErr
}

// Step advances the simulation by exactly one event, for single-step
// driving from tests or an interactive status API. It returns the
// trace event(s) that one step produced, or (nil, nil) once the queue
// is exhausted - running out of work is the expected way a bounded run
// ends, not an error.
func (d *Driver) Step() ([]trace.Event, error) {
	events, err := d.step()
	if err == model.ErrQueueExhausted {
		return nil, nil
	}
	return events, err
}

// Run drives the simulation until the event queue is exhausted, the
// configured max_views is reached on any replica, or the run is
// paused from another goroutine via Pause.
func (d *Driver) Run() error {
	return d.run(-1)
}

// RunSteps drives the simulation for at most n further steps, stopping
// earlier if the queue empties, max_views is reached, or the run is
// paused (spec.md §4.8's `run(n)`: "step until n steps are consumed,
// the queue is empty, or a terminal condition"). n <= 0 runs unbounded,
// same as Run.
func (d *Driver) RunSteps(n int) error {
	return d.run(n)
}

func (d *Driver) run(maxSteps int) error {
	d.isRunning.Store(true)
	defer d.isRunning.Store(false)

	for taken := 0; maxSteps <= 0 || taken < maxSteps; taken++ {
		if d.isPaused.Load() {
			return nil
		}
		if d.maxViewSeen >= model.ViewNumber(d.cfg.MaxViews) {
			return nil
		}
		_, err := d.step()
		if err != nil {
			if err == model.ErrQueueExhausted {
				return nil
			}
			return err
		}
	}
	return nil
}

// Pause requests that Run return at its next safe check point. It does
// not rewind or discard any state; Resume (clearing the flag and
// calling Run again) continues the same run.
func (d *Driver) Pause() { d.isPaused.Store(true) }

// Resume clears a prior Pause.
func (d *Driver) Resume() { d.isPaused.Store(false) }

// IsRunning reports whether Run is currently executing on some goroutine.
func (d *Driver) IsRunning() bool { return d.isRunning.Load() }

// Now returns the current simulated time.
func (d *Driver) Now() int64 { return d.clock.Now() }

// Trace returns the full recorded event log so far.
func (d *Driver) Trace() []trace.Event { return d.fullTrace }

// Metrics returns the current metrics snapshot (spec.md §6.2).
func (d *Driver) Metrics() (metrics.Snapshot, error) { return d.collect.Snapshot() }

// ReplicaState exposes one replica's state for status reporting
// (spec.md §6.2 `GET replicas`).
func (d *Driver) ReplicaState(id model.ReplicaId) (*model.ReplicaState, bool) {
	r, ok := d.byID[id]
	if !ok {
		return nil, false
	}
	return r.State(), true
}

// Reset tears down the current run and rebuilds the Driver from a new
// Config in place. Before discarding the old replica set it runs each
// one's Teardown consistency check, aggregating every failure found
// (rather than stopping at the first) with go-multierror, so a caller
// sees every anomaly a run produced, not just the first replica to hit
// one.
func (d *Driver) Reset(cfg Config) error {
	var result *multierror.Error
	for _, id := range d.replicas {
		if err := d.byID[id].Teardown(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if result.ErrorOrNil() != nil {
		return result
	}

	rebuilt, err := New(d.log, cfg)
	if err != nil {
		return err
	}
	*d = *rebuilt
	return nil
}

var (
	_ network.Scheduler   = (*Driver)(nil)
	_ pacemaker.Scheduler = (*Driver)(nil)
)
