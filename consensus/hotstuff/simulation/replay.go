package simulation

import (
	"github.com/rs/zerolog"

	"github.com/dapperlabs/hotstuff-sim/consensus/hotstuff/trace"
)

// Replay runs cfg to completion on a fresh Driver and returns its full
// trace. Given the same Config (hence the same Seed) twice, it is
// required to produce an identical event log - spec.md §8's Determinism
// property - since every source of variation in a run (network
// latency/drop sampling, per-replica fault-injection sampling) is
// derived from Config.Seed and the fixed (time, insertion-seq) event
// order, never from wall-clock time or any other ambient entropy.
func Replay(log zerolog.Logger, cfg Config) ([]trace.Event, error) {
	d, err := New(log, cfg)
	if err != nil {
		return nil, err
	}
	if err := d.Start(); err != nil {
		return nil, err
	}
	if err := d.Run(); err != nil {
		return nil, err
	}
	return d.Trace(), nil
}
