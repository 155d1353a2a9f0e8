package votecollector_test

import (
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dapperlabs/hotstuff-sim/consensus/hotstuff/internal/unittest"
	"github.com/dapperlabs/hotstuff-sim/consensus/hotstuff/model"
	"github.com/dapperlabs/hotstuff-sim/consensus/hotstuff/votecollector"
)

func testLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).Level(zerolog.Disabled)
}

func TestCollector_FormsQCOnQuorum(t *testing.T) {
	c := votecollector.New(testLogger(), 3)
	genesis := model.Genesis()
	block := unittest.BlockFixture(genesis, 1, 0, 1)
	ids := unittest.ReplicaIDsFixture(4)

	for i := 0; i < 2; i++ {
		_, formed := c.AddVote(unittest.VoteFixture(model.Prepare, block.View, block.Hash, ids[i]))
		assert.False(t, formed, "should not form before quorum is reached")
	}

	qc, formed := c.AddVote(unittest.VoteFixture(model.Prepare, block.View, block.Hash, ids[2]))
	require.True(t, formed, "third distinct vote should complete a quorum of 3")
	assert.Equal(t, block.Hash, qc.BlockHash)
	assert.Equal(t, block.View, qc.View)
	assert.Equal(t, model.Prepare, qc.Phase)
	assert.Len(t, qc.Signers, 3)
}

func TestCollector_RejectsDuplicateVoteFromSameVoter(t *testing.T) {
	c := votecollector.New(testLogger(), 3)
	block := unittest.BlockFixture(model.Genesis(), 1, 0, 1)
	voter := model.ReplicaId(0)

	_, formed := c.AddVote(unittest.VoteFixture(model.Prepare, block.View, block.Hash, voter))
	assert.False(t, formed)

	_, formed = c.AddVote(unittest.VoteFixture(model.Prepare, block.View, block.Hash, voter))
	assert.False(t, formed, "a second vote from the same voter must never count toward quorum")
}

func TestCollector_RetiredBucketNeverReformsQC(t *testing.T) {
	c := votecollector.New(testLogger(), 2)
	block := unittest.BlockFixture(model.Genesis(), 1, 0, 1)
	ids := unittest.ReplicaIDsFixture(4)

	_, formed := c.AddVote(unittest.VoteFixture(model.Prepare, block.View, block.Hash, ids[0]))
	assert.False(t, formed)
	_, formed = c.AddVote(unittest.VoteFixture(model.Prepare, block.View, block.Hash, ids[1]))
	require.True(t, formed)

	_, formed = c.AddVote(unittest.VoteFixture(model.Prepare, block.View, block.Hash, ids[2]))
	assert.False(t, formed, "a bucket that already formed a QC must not form a second one")
}

func TestCollector_DistinctBucketsDoNotInterfere(t *testing.T) {
	c := votecollector.New(testLogger(), 2)
	genesis := model.Genesis()
	blockA := unittest.BlockFixture(genesis, 1, 0, 1)
	blockB := unittest.BlockFixture(genesis, 1, 0, 2)
	ids := unittest.ReplicaIDsFixture(4)

	_, formed := c.AddVote(unittest.VoteFixture(model.Prepare, blockA.View, blockA.Hash, ids[0]))
	assert.False(t, formed)
	_, formed = c.AddVote(unittest.VoteFixture(model.Prepare, blockB.View, blockB.Hash, ids[0]))
	assert.False(t, formed, "quorum for one block hash must not draw on votes cast for a different block")
}
