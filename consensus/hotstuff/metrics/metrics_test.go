package metrics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dapperlabs/hotstuff-sim/consensus/hotstuff/metrics"
)

func TestCollector_SnapshotAggregatesCommits(t *testing.T) {
	c := metrics.New()

	c.RecordCommit(100, 50)
	c.RecordCommit(200, 70)
	c.RecordCommit(300, 60)
	c.RecordTimeout()
	c.RecordViewChange()

	snap, err := c.Snapshot()
	require.NoError(t, err)

	assert.Equal(t, uint64(3), snap.TotalBlocksCommitted)
	assert.Equal(t, uint64(1), snap.TotalTimeouts)
	assert.Equal(t, uint64(1), snap.ViewChangeCount)
	assert.InDelta(t, 60.0, snap.AverageCommitLatencyMs, 0.001)
	assert.Greater(t, snap.ThroughputBlocksPerSecond, 0.0)
}

func TestCollector_SnapshotEmptyIsZeroValued(t *testing.T) {
	c := metrics.New()

	snap, err := c.Snapshot()
	require.NoError(t, err)

	assert.Zero(t, snap.TotalBlocksCommitted)
	assert.Zero(t, snap.ThroughputBlocksPerSecond)
}
