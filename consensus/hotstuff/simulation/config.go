// Package simulation wires the model, network, replica and pacemaker
// packages into one runnable Driver (spec.md §4.8): the step/run loop
// that owns the event queue and clock, dispatches events to replicas,
// and exposes the status/metrics surface the CLI and tests read.
// Grounded on the teacher's engine/simulation harness, which plays the
// same role of owning a deterministic queue and a fixed set of
// participant instances for a headless run.
package simulation

import (
	"github.com/dapperlabs/hotstuff-sim/consensus/hotstuff/model"
	"github.com/dapperlabs/hotstuff-sim/consensus/hotstuff/network"
	"github.com/dapperlabs/hotstuff-sim/consensus/hotstuff/pacemaker"
)

// PacemakerKind selects which Pacemaker variant every replica in a run
// uses (spec.md §4.6). Mixing variants within one run is not a
// supported configuration - the spec only ever names a single
// pacemaker_type per scenario.
type PacemakerKind uint8

const (
	BaselinePacemaker PacemakerKind = iota
	AdaptivePacemaker
)

// Config is the full set of tunables for one simulation run (spec.md
// §6.3). Build one with NewConfig and the With* options, or by hand for
// tests.
type Config struct {
	NumReplicas int
	NumFaulty   int
	// FaultyReplicas explicitly names which replica ids are faulty. When
	// nil, it defaults to the lowest NumFaulty ids (0..NumFaulty-1),
	// matching the scenarios in spec.md §8 ("replica 0" crashes).
	FaultyReplicas []model.ReplicaId
	FaultType      model.FaultType
	// FaultDropProbability is RANDOM_DROP's own-outgoing drop rate,
	// independent of the network's unconditional drop model below.
	FaultDropProbability float64

	Chained bool

	PacemakerKind   PacemakerKind
	BaselineDeltaMs int64
	Adaptive        pacemaker.AdaptiveConfig

	NetworkBaseLatencyMs   int64
	NetworkJitterMs        int64
	NetworkDropProbability float64
	// PartitionGroupA/B, when both non-empty, fully sever the two
	// replica groups from each other in both directions for the whole
	// run (spec.md §4.2, SPEC_FULL.md §11.3's static partition model).
	PartitionGroupA []model.ReplicaId
	PartitionGroupB []model.ReplicaId

	Seed     int64
	MaxViews int
}

// NewConfig returns a Config with spec.md's documented defaults for a
// 4-replica, fault-free, Basic HotStuff run, adjusted by the given
// options.
func NewConfig(opts ...Option) Config {
	cfg := Config{
		NumReplicas:            4,
		NumFaulty:              0,
		FaultType:              model.NoFault,
		FaultDropProbability:   0,
		Chained:                false,
		PacemakerKind:          BaselinePacemaker,
		BaselineDeltaMs:        1000,
		Adaptive:               pacemaker.DefaultAdaptiveConfig(),
		NetworkBaseLatencyMs:   50,
		NetworkJitterMs:        10,
		NetworkDropProbability: 0,
		Seed:                   1,
		MaxViews:               10,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Validate rejects structurally invalid configurations (spec.md §7):
// out-of-range counts and probabilities, and an unusable pacemaker
// bound. It deliberately does NOT reject num_faulty exceeding the
// provable (N-1)/3 safety bound - SPEC_FULL.md §12 resolves that open
// question by letting the run proceed and relying on the Driver to log
// a warning instead, since an over-bound run is still a useful thing to
// simulate (it is expected to violate Agreement, which is the point).
func (c Config) Validate() error {
	if c.NumReplicas <= 0 {
		return model.ConfigurationError{Msg: "num_replicas must be positive"}
	}
	if c.NumFaulty < 0 || c.NumFaulty > c.NumReplicas {
		return model.ConfigurationError{Msg: "num_faulty must be within [0, num_replicas]"}
	}
	if c.FaultDropProbability < 0 || c.FaultDropProbability > 1 {
		return model.ConfigurationError{Msg: "fault drop_probability must be within [0, 1]"}
	}
	if c.NetworkDropProbability < 0 || c.NetworkDropProbability > 1 {
		return model.ConfigurationError{Msg: "network drop_probability must be within [0, 1]"}
	}
	if c.NetworkJitterMs < 0 {
		return model.ConfigurationError{Msg: "network jitter_ms must be non-negative"}
	}
	if c.MaxViews <= 0 {
		return model.ConfigurationError{Msg: "max_views must be positive"}
	}
	if c.PacemakerKind == BaselinePacemaker && c.BaselineDeltaMs <= 0 {
		return model.ConfigurationError{Msg: "baseline delta_ms must be positive"}
	}
	if c.PacemakerKind == AdaptivePacemaker {
		if c.Adaptive.DeltaMinMs <= 0 || c.Adaptive.DeltaMaxMs < c.Adaptive.DeltaMinMs {
			return model.ConfigurationError{Msg: "adaptive delta_min_ms/delta_max_ms misconfigured"}
		}
	}
	for _, id := range c.FaultyReplicas {
		if int(id) >= c.NumReplicas {
			return model.ConfigurationError{Msg: "faulty_replicas references an id outside num_replicas"}
		}
	}
	return nil
}

// faultyReplicaSet resolves the configured faulty ids, applying the
// default-to-lowest-ids rule when FaultyReplicas is unset.
func (c Config) faultyReplicaSet() map[model.ReplicaId]bool {
	faulty := make(map[model.ReplicaId]bool, c.NumFaulty)
	if len(c.FaultyReplicas) > 0 {
		for _, id := range c.FaultyReplicas {
			faulty[id] = true
		}
		return faulty
	}
	for i := 0; i < c.NumFaulty; i++ {
		faulty[model.ReplicaId(i)] = true
	}
	return faulty
}

// networkConfig derives the network package's Config from the run
// Config, expanding the partition groups into the directed edge pairs
// network.Partition builds.
func (c Config) networkConfig() network.Config {
	return network.Config{
		BaseLatencyMs:   c.NetworkBaseLatencyMs,
		JitterMs:        c.NetworkJitterMs,
		DropProbability: c.NetworkDropProbability,
		Partitions:      network.Partition(c.PartitionGroupA, c.PartitionGroupB),
		Seed:            c.Seed,
	}
}
