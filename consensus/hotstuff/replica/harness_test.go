package replica_test

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/dapperlabs/hotstuff-sim/consensus/hotstuff/committee"
	"github.com/dapperlabs/hotstuff-sim/consensus/hotstuff/model"
	"github.com/dapperlabs/hotstuff-sim/consensus/hotstuff/pacemaker"
	"github.com/dapperlabs/hotstuff-sim/consensus/hotstuff/replica"
	"github.com/dapperlabs/hotstuff-sim/consensus/hotstuff/trace"
)

// envelope is one in-flight message in the harness's FIFO queue.
type envelope struct {
	from, to model.ReplicaId
	msg      model.Message
}

// harnessSender is a replica.Sender that appends every send/broadcast
// onto the harness's shared queue instead of touching a real
// network.Network - the happy-path commit cascade it drives is fully
// deterministic regardless of delivery latency, so a plain FIFO is
// sufficient to exercise it.
type harnessSender struct {
	h *harness
}

func (s *harnessSender) Send(from, to model.ReplicaId, msg model.Message, nowMs int64) {
	s.h.queue = append(s.h.queue, envelope{from: from, to: to, msg: msg})
}

func (s *harnessSender) Broadcast(from model.ReplicaId, to []model.ReplicaId, msg model.Message, nowMs int64) {
	for _, r := range to {
		s.Send(from, r, msg, nowMs)
	}
}

// fakeScheduler records the latest scheduled timeout per replica instead
// of firing it - harness tests trigger timeouts explicitly, by calling
// HandleTimeout directly, to keep view-change scenarios deterministic
// and independent of wall-clock timer semantics.
type fakeScheduler struct {
	pending map[model.ReplicaId]model.ViewNumber
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{pending: make(map[model.ReplicaId]model.ViewNumber)}
}

func (f *fakeScheduler) ScheduleTimeout(replicaID model.ReplicaId, view model.ViewNumber, atMs int64) {
	f.pending[replicaID] = view
}

func (f *fakeScheduler) CancelTimeoutsBefore(replicaID model.ReplicaId, view model.ViewNumber) {
	if pending, ok := f.pending[replicaID]; ok && pending < view {
		delete(f.pending, replicaID)
	}
}

// harness wires up n correct-by-default replicas sharing one FIFO
// message queue and one trace.Recorder, in either Basic or Chained mode.
type harness struct {
	replicas  []*replica.Replica
	schedulers map[model.ReplicaId]*fakeScheduler
	recorder  *trace.Recorder
	committee committee.Committee
	queue     []envelope
	nowMs     int64
}

type harnessOpts struct {
	n, f      int
	mode      replica.Mode
	faulty    map[model.ReplicaId]model.FaultType
	dropProb  float64
}

func newHarness(opts harnessOpts) *harness {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).Level(zerolog.Disabled)
	c := committee.New(opts.n, opts.f)
	h := &harness{
		recorder:   trace.NewRecorder(),
		committee:  c,
		schedulers: make(map[model.ReplicaId]*fakeScheduler),
	}
	sender := &harnessSender{h: h}

	ids := make([]model.ReplicaId, opts.n)
	for i := range ids {
		ids[i] = model.ReplicaId(i)
	}

	for i := 0; i < opts.n; i++ {
		id := model.ReplicaId(i)
		sched := newFakeScheduler()
		h.schedulers[id] = sched
		pacer := pacemaker.NewBaseline(id, sched, 1000)

		faultType := model.NoFault
		if opts.faulty != nil {
			faultType = opts.faulty[id]
		}
		isFaulty := faultType != model.NoFault

		r := replica.New(log, id, ids, c, opts.mode, pacer, sender, h.recorder,
			isFaulty, faultType, opts.dropProb, int64(i)+1)
		h.replicas = append(h.replicas, r)
	}
	return h
}

func (h *harness) byID(id model.ReplicaId) *replica.Replica {
	for _, r := range h.replicas {
		if r.ID() == id {
			return r
		}
	}
	return nil
}

// start calls Start on every replica, in ascending id order.
func (h *harness) start() error {
	for _, r := range h.replicas {
		if err := r.Start(h.nowMs); err != nil {
			return err
		}
	}
	return nil
}

// drainUpTo dispatches queued messages to their recipients, including
// any further messages those dispatches themselves enqueue, until the
// queue empties or maxMessages have been processed - the harness has no
// Driver-level max_views stop condition of its own, and happy-path Basic
// HotStuff keeps proposing forever, so tests bound the cascade this way
// instead.
func (h *harness) drainUpTo(maxMessages int) error {
	for len(h.queue) > 0 && maxMessages > 0 {
		env := h.queue[0]
		h.queue = h.queue[1:]
		h.nowMs++
		maxMessages--
		r := h.byID(env.to)
		if r == nil {
			continue
		}
		if err := r.HandleDeliver(h.nowMs, env.from, env.msg); err != nil {
			return err
		}
	}
	return nil
}

// fireTimeout simulates replica id's pending pacemaker timer firing for
// whatever view the fakeScheduler last recorded for it.
func (h *harness) fireTimeout(id model.ReplicaId) error {
	view, ok := h.schedulers[id].pending[id]
	if !ok {
		return nil
	}
	h.nowMs++
	return h.byID(id).HandleTimeout(h.nowMs, view)
}
