package safety_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dapperlabs/hotstuff-sim/consensus/hotstuff/internal/unittest"
	"github.com/dapperlabs/hotstuff-sim/consensus/hotstuff/model"
	"github.com/dapperlabs/hotstuff-sim/consensus/hotstuff/safety"
)

func TestSafeNode_NoLockedQCAlwaysSafe(t *testing.T) {
	store := model.NewBlockStore()
	genesis := model.Genesis()
	block := unittest.BlockFixture(genesis, 1, 0, 1)
	store.Add(block)

	justify := unittest.QCFixture(model.Prepare, 0, genesis.Hash, 1)
	assert.True(t, safety.SafeNode(block, justify, nil, store))
}

func TestSafeNode_SafetyClauseExtendsLockedBlock(t *testing.T) {
	store := model.NewBlockStore()
	genesis := model.Genesis()
	locked := unittest.BlockFixture(genesis, 1, 0, 1)
	store.Add(locked)
	child := unittest.BlockFixture(locked, 2, 0, 1)
	store.Add(child)

	lockedQC := unittest.QCFixture(model.PreCommit, locked.View, locked.Hash, 3)
	justify := unittest.QCFixture(model.Prepare, child.View, child.Hash, 3)

	assert.True(t, safety.SafeNode(child, justify, &lockedQC, store), "child extends the locked block directly")
}

func TestSafeNode_RejectsForkBelowLockedViewWithNoLivenessJustification(t *testing.T) {
	store := model.NewBlockStore()
	genesis := model.Genesis()
	locked := unittest.BlockFixture(genesis, 2, 0, 1)
	store.Add(locked)
	fork := unittest.BlockFixture(genesis, 1, 1, 2)
	store.Add(fork)

	lockedQC := unittest.QCFixture(model.PreCommit, locked.View, locked.Hash, 3)
	justify := unittest.QCFixture(model.Prepare, fork.View, fork.Hash, 3)

	assert.False(t, safety.SafeNode(fork, justify, &lockedQC, store), "fork neither extends the lock nor carries a newer justification")
}

func TestSafeNode_LivenessClauseNewerJustificationOverridesLock(t *testing.T) {
	store := model.NewBlockStore()
	genesis := model.Genesis()
	locked := unittest.BlockFixture(genesis, 2, 0, 1)
	store.Add(locked)
	fork := unittest.BlockFixture(genesis, 1, 1, 2)
	store.Add(fork)

	lockedQC := unittest.QCFixture(model.PreCommit, locked.View, locked.Hash, 3)
	justify := unittest.QCFixture(model.Prepare, locked.View+1, fork.Hash, 3)

	assert.True(t, safety.SafeNode(fork, justify, &lockedQC, store), "a justification newer than the lock re-opens liveness even across a fork")
}

func TestViewEligible(t *testing.T) {
	justify := unittest.QCFixture(model.Prepare, 5, model.BlockHash{}, 3)
	assert.True(t, safety.ViewEligible(5, justify))
	assert.True(t, safety.ViewEligible(6, justify))
	assert.False(t, safety.ViewEligible(4, justify))
}
