package simulation_test

import (
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dapperlabs/hotstuff-sim/consensus/hotstuff/simulation"
	"github.com/dapperlabs/hotstuff-sim/utils/unittest"
)

func testLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).Level(zerolog.Disabled)
}

func TestDriver_RunProducesCommitsAndMetrics(t *testing.T) {
	cfg := simulation.NewConfig(
		simulation.WithNumReplicas(4),
		simulation.WithSeed(42),
		simulation.WithMaxViews(5),
		simulation.WithNetwork(20, 5, 0),
	)
	d, err := simulation.New(testLogger(), cfg)
	require.NoError(t, err)
	require.NoError(t, d.Start())
	require.NoError(t, d.Run())

	snap, err := d.Metrics()
	require.NoError(t, err)
	assert.Greater(t, snap.TotalBlocksCommitted, uint64(0), "expected at least one committed block within 5 views")
	assert.NotEmpty(t, d.Trace(), "expected a non-empty recorded trace")
}

func TestDriver_StepThenRunGrowTrace(t *testing.T) {
	cfg := simulation.NewConfig(simulation.WithSeed(7), simulation.WithMaxViews(2))
	d, err := simulation.New(testLogger(), cfg)
	require.NoError(t, err)
	require.NoError(t, d.Start())
	afterStart := len(d.Trace())

	_, err = d.Step()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(d.Trace()), afterStart, "Step must never shrink the accumulated trace")

	require.NoError(t, d.Run())
	assert.Greater(t, len(d.Trace()), afterStart, "Run should make further progress the single Step did not already cover")
}

func TestDriver_PauseStopsRun(t *testing.T) {
	cfg := simulation.NewConfig(simulation.WithSeed(3), simulation.WithMaxViews(1000))
	d, err := simulation.New(testLogger(), cfg)
	require.NoError(t, err)
	require.NoError(t, d.Start())

	d.Pause()
	require.NoError(t, d.Run())
	assert.False(t, d.IsRunning())
}

func TestReplay_DeterministicGivenSameSeed(t *testing.T) {
	cfg := simulation.NewConfig(
		simulation.WithNumReplicas(4),
		simulation.WithSeed(99),
		simulation.WithMaxViews(4),
		simulation.WithNetwork(15, 5, 0.1),
	)

	first, err := simulation.Replay(testLogger(), cfg)
	require.NoError(t, err)
	second, err := simulation.Replay(testLogger(), cfg)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i], second[i], "event %d diverged between two replays of the same config", i)
	}
}

func TestReplay_DifferentSeedsUsuallyDiverge(t *testing.T) {
	base := simulation.NewConfig(simulation.WithNumReplicas(4), simulation.WithMaxViews(4), simulation.WithNetwork(15, 8, 0.2))
	cfgA := base
	cfgA.Seed = 1
	cfgB := base
	cfgB.Seed = 2

	a, err := simulation.Replay(testLogger(), cfgA)
	require.NoError(t, err)
	b, err := simulation.Replay(testLogger(), cfgB)
	require.NoError(t, err)

	assert.NotEqual(t, a, b, "two distinct seeds with nonzero jitter/drop should not replay identically")
}

func TestDriver_PauseFromAnotherGoroutineStopsRun(t *testing.T) {
	// Run executes on its own goroutine (spawned by AssertReturnsBefore);
	// Pause is called concurrently from a third goroutine, the same
	// cross-goroutine access pattern isRunning/isPaused being atomics
	// (rather than plain bools) exists to support.
	cfg := simulation.NewConfig(
		simulation.WithNumReplicas(4),
		simulation.WithSeed(5),
		simulation.WithMaxViews(1_000_000),
		simulation.WithNetwork(20, 5, 0),
	)
	d, err := simulation.New(testLogger(), cfg)
	require.NoError(t, err)
	require.NoError(t, d.Start())

	go func() {
		time.Sleep(5 * time.Millisecond)
		d.Pause()
	}()

	unittest.AssertReturnsBefore(t, func() {
		assert.NoError(t, d.Run())
	}, 2*time.Second)
	assert.False(t, d.IsRunning())
}

func TestDriver_OverFaultBoundRunsAnyway(t *testing.T) {
	cfg := simulation.NewConfig(simulation.WithNumReplicas(4), simulation.WithFaulty(2, 0), simulation.WithMaxViews(1))
	d, err := simulation.New(testLogger(), cfg)
	require.NoError(t, err)
	require.NoError(t, d.Start())
	assert.NoError(t, d.Run())
}

func TestDriver_RunStepsStopsAtTheStepBudget(t *testing.T) {
	cfg := simulation.NewConfig(
		simulation.WithNumReplicas(4),
		simulation.WithSeed(11),
		simulation.WithMaxViews(1000),
		simulation.WithNetwork(20, 5, 0),
	)
	d, err := simulation.New(testLogger(), cfg)
	require.NoError(t, err)
	require.NoError(t, d.Start())

	require.NoError(t, d.RunSteps(3))
	afterThree := len(d.Trace())

	require.NoError(t, d.RunSteps(3))
	afterSix := len(d.Trace())
	assert.GreaterOrEqual(t, afterSix, afterThree, "a second RunSteps call must make further, not negative, progress")

	require.NoError(t, d.Run())
	assert.Greater(t, len(d.Trace()), afterSix, "running to completion afterward must still make more progress than the bounded calls alone")
}
