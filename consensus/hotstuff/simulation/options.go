package simulation

import (
	"github.com/dapperlabs/hotstuff-sim/consensus/hotstuff/model"
	"github.com/dapperlabs/hotstuff-sim/consensus/hotstuff/pacemaker"
)

// Option mutates a Config being built by NewConfig. Grounded on the
// teacher's functional-options idiom for instance/participant builders
// (consensus/hotstuff/integration's WithXxx helpers).
type Option func(*Config)

func WithNumReplicas(n int) Option {
	return func(c *Config) { c.NumReplicas = n }
}

func WithFaulty(n int, faultType model.FaultType) Option {
	return func(c *Config) {
		c.NumFaulty = n
		c.FaultType = faultType
	}
}

func WithFaultyReplicas(ids ...model.ReplicaId) Option {
	return func(c *Config) {
		c.FaultyReplicas = ids
		c.NumFaulty = len(ids)
	}
}

func WithFaultDropProbability(p float64) Option {
	return func(c *Config) { c.FaultDropProbability = p }
}

func WithChained(chained bool) Option {
	return func(c *Config) { c.Chained = chained }
}

func WithBaselinePacemaker(deltaMs int64) Option {
	return func(c *Config) {
		c.PacemakerKind = BaselinePacemaker
		c.BaselineDeltaMs = deltaMs
	}
}

func WithAdaptivePacemaker(cfg pacemaker.AdaptiveConfig) Option {
	return func(c *Config) {
		c.PacemakerKind = AdaptivePacemaker
		c.Adaptive = cfg
	}
}

func WithNetwork(baseLatencyMs, jitterMs int64, dropProbability float64) Option {
	return func(c *Config) {
		c.NetworkBaseLatencyMs = baseLatencyMs
		c.NetworkJitterMs = jitterMs
		c.NetworkDropProbability = dropProbability
	}
}

func WithPartition(groupA, groupB []model.ReplicaId) Option {
	return func(c *Config) {
		c.PartitionGroupA = groupA
		c.PartitionGroupB = groupB
	}
}

func WithSeed(seed int64) Option {
	return func(c *Config) { c.Seed = seed }
}

func WithMaxViews(n int) Option {
	return func(c *Config) { c.MaxViews = n }
}
