// Package chain maintains the append only list of sealed blocks and the
// account and transaction types they carry.
package chain

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/remylch/ola-chain/foundation/ledger/hash"
)

// Chain manages the ledger of blocks. Blocks are only ever appended; there
// is no reorganization and no removal. Every mutation is persisted through
// the storage engine before it becomes visible in memory.
type Chain struct {
	mu            sync.RWMutex
	evHandler     func(v string, args ...any)
	storage       Storage
	difficulty    uint
	initializedAt time.Time
	blocks        []Block
}

// LoadOrCreate constructs a chain from the persisted ledger document. When
// no document exists yet, a genesis block is created and persisted before
// the chain is returned. An existing document that cannot be read or fails
// validation is an error; the caller is expected to treat that as fatal
// rather than start over with an empty ledger.
func LoadOrCreate(storage Storage, difficulty uint, evHandler func(v string, args ...any)) (*Chain, error) {
	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	doc, err := storage.Load()
	switch {
	case errors.Is(err, ErrNotExist):
		genesis := Genesis()
		doc = ChainFS{
			InitializedAt: time.Now().UTC(),
			Difficulty:    difficulty,
			GenesisHash:   genesis.BlockHash,
			Blocks:        []Block{genesis},
		}
		if err := storage.Reset(doc); err != nil {
			return nil, fmt.Errorf("create ledger: %w", err)
		}
		ev("chain: new ledger created: genesis hash %s", genesis.BlockHash)

	case err != nil:
		return nil, fmt.Errorf("load ledger: %w", err)

	default:
		if len(doc.Blocks) == 0 {
			return nil, fmt.Errorf("load ledger: %w: document carries no blocks", ErrSerialization)
		}
		if doc.GenesisHash != doc.Blocks[0].BlockHash {
			return nil, fmt.Errorf("load ledger: %w: genesis hash does not match block 0", ErrSerialization)
		}
		var prev Block
		for i, block := range doc.Blocks {
			if err := block.Validate(prev); err != nil {
				return nil, fmt.Errorf("load ledger: block %d: %w", i, err)
			}
			prev = block
		}
		ev("chain: ledger loaded: height %d: tip %s", prev.Number, prev.BlockHash)
	}

	c := Chain{
		evHandler:     ev,
		storage:       storage,
		difficulty:    doc.Difficulty,
		initializedAt: doc.InitializedAt,
		blocks:        doc.Blocks,
	}

	return &c, nil
}

// Close releases the underlying storage engine.
func (c *Chain) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.storage.Close()
}

// Append persists the block and, only once durability is confirmed, admits
// it to the in-memory ledger. The caller is responsible for handing over a
// sealed block that extends the current tip; linkage is not re-verified
// here.
func (c *Chain) Append(block Block) (hash.Hash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	digest, err := c.storage.Append(block)
	if err != nil {
		return "", err
	}

	c.blocks = append(c.blocks, block)
	c.evHandler("chain: append: block %d accepted: hash %s", block.Number, digest)

	return digest, nil
}

// LatestBlock returns the current tip of the ledger.
func (c *Chain) LatestBlock() Block {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.blocks[len(c.blocks)-1]
}

// GenesisBlock returns the first block of the ledger.
func (c *Chain) GenesisBlock() Block {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.blocks[0]
}

// Height returns the number of the block at the tip of the ledger.
func (c *Chain) Height() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.blocks[len(c.blocks)-1].Number
}

// Blocks returns a copy of the full block list in ledger order.
func (c *Chain) Blocks() []Block {
	c.mu.RLock()
	defer c.mu.RUnlock()

	blocks := make([]Block, len(c.blocks))
	copy(blocks, c.blocks)

	return blocks
}

// BlockByNumber returns the block with the specified number. Block numbers
// form the sequence 0..height with no gaps, so the number doubles as the
// index into the ledger.
func (c *Chain) BlockByNumber(num uint64) (Block, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if num >= uint64(len(c.blocks)) {
		return Block{}, fmt.Errorf("block %d: %w", num, ErrNotExist)
	}

	return c.blocks[num], nil
}

// Difficulty returns the proof of work difficulty the ledger operates with.
func (c *Chain) Difficulty() uint {
	return c.difficulty
}

// InitializedAt returns the time the ledger was first created.
func (c *Chain) InitializedAt() time.Time {
	return c.initializedAt
}
