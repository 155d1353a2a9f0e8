package model

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// BlockHash is an opaque, content-addressed identifier for a Block.
// It is computed deterministically from the block's defining fields; no
// real signature or hash-collision resistance is claimed or required,
// only that two blocks built from the same inputs hash identically and
// that hashes are practically unique across a single simulation run.
type BlockHash [32]byte

// GenesisParentHash is the sentinel parent hash of the genesis block.
var GenesisParentHash = BlockHash{}

// String renders the full hash as a hex string for logging.
func (h BlockHash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether h is the sentinel (unset / genesis-parent) hash.
func (h BlockHash) IsZero() bool {
	return h == BlockHash{}
}

// Block is an immutable proposal produced by the leader of a view.
// Blocks are created only during the Prepare phase and are thereafter
// shared by value via their content-addressed hash; the chain is
// traversed by BlockHash lookup in a BlockStore, never by pointer.
type Block struct {
	Hash       BlockHash
	ParentHash BlockHash
	View       ViewNumber
	Height     uint64
	Proposer   ReplicaId
	PayloadSeq uint64
}

// ComputeBlockHash derives a Block's hash deterministically from the
// fields that define it. Called once, at construction time, by the
// leader producing the block.
func ComputeBlockHash(parent BlockHash, view ViewNumber, proposer ReplicaId, payloadSeq uint64) BlockHash {
	var buf [20]byte
	h := sha256.New()
	h.Write(parent[:])
	binary.BigEndian.PutUint64(buf[0:8], uint64(view))
	binary.BigEndian.PutUint32(buf[8:12], uint32(proposer))
	binary.BigEndian.PutUint64(buf[12:20], payloadSeq)
	h.Write(buf[:20])
	var out BlockHash
	copy(out[:], h.Sum(nil))
	return out
}

// NewBlock constructs a block extending parent at the given view, deriving
// its hash and height. proposer must be the leader of view; payloadSeq is
// a monotonically increasing counter local to the leader, used only to
// keep hashes from colliding across distinct proposals for the same view.
func NewBlock(parent Block, view ViewNumber, proposer ReplicaId, payloadSeq uint64) Block {
	hash := ComputeBlockHash(parent.Hash, view, proposer, payloadSeq)
	return Block{
		Hash:       hash,
		ParentHash: parent.Hash,
		View:       view,
		Height:     parent.Height + 1,
		Proposer:   proposer,
		PayloadSeq: payloadSeq,
	}
}

// Genesis returns the well-known root block all chains extend. It is
// identical (same hash) across all replicas in a run because it carries
// no view- or proposer-specific data.
func Genesis() Block {
	return Block{
		Hash:       BlockHash{},
		ParentHash: GenesisParentHash,
		View:       0,
		Height:     0,
		Proposer:   0,
		PayloadSeq: 0,
	}
}

// BlockStore is a content-addressed map of known blocks, owned by a
// single Replica (its store field). Genesis is always present.
type BlockStore struct {
	blocks map[BlockHash]Block
}

// NewBlockStore returns a BlockStore seeded with the genesis block.
func NewBlockStore() *BlockStore {
	s := &BlockStore{blocks: make(map[BlockHash]Block)}
	g := Genesis()
	s.blocks[g.Hash] = g
	return s
}

// Add stores a block, overwriting nothing (blocks are immutable and
// content-addressed, so re-adding an existing hash is a harmless no-op).
func (s *BlockStore) Add(b Block) {
	if _, ok := s.blocks[b.Hash]; ok {
		return
	}
	s.blocks[b.Hash] = b
}

// Get looks up a block by hash.
func (s *BlockStore) Get(hash BlockHash) (Block, bool) {
	b, ok := s.blocks[hash]
	return b, ok
}

// ExtendsFrom reports whether, by walking ParentHash links, block
// (identified by its hash) has ancestor as an ancestor (including
// ancestor == block itself).
func (s *BlockStore) ExtendsFrom(hash BlockHash, ancestor BlockHash) bool {
	for {
		if hash == ancestor {
			return true
		}
		b, ok := s.blocks[hash]
		if !ok {
			return false
		}
		if b.Hash == Genesis().Hash {
			return hash == ancestor
		}
		hash = b.ParentHash
	}
}

// AncestorsUntil returns the chain of blocks from hash (inclusive) back to
// but not including stop, ordered oldest-first. Used when committing the
// uncommitted ancestors of a newly-committed block (§4.7.2, Decide phase).
func (s *BlockStore) AncestorsUntil(hash BlockHash, stop BlockHash) []Block {
	var chain []Block
	for hash != stop {
		b, ok := s.blocks[hash]
		if !ok {
			break
		}
		chain = append(chain, b)
		if b.Hash == Genesis().Hash {
			break
		}
		hash = b.ParentHash
	}
	// reverse to oldest-first
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}
