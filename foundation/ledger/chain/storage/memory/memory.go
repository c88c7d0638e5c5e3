// Package memory implements the ability to read and write the ledger in
// memory. It exists for tests and for running a throwaway node.
package memory

import (
	"fmt"
	"sync"

	"github.com/remylch/ola-chain/foundation/ledger/chain"
	"github.com/remylch/ola-chain/foundation/ledger/hash"
)

// Memory represents the serialization implementation for keeping the ledger
// in memory. This implements the chain.Storage interface.
type Memory struct {
	mu     sync.Mutex
	doc    chain.ChainFS
	loaded bool
}

// New constructs a Memory value for use.
func New() (*Memory, error) {
	return &Memory{}, nil
}

// Close in this implementation has nothing to release.
func (m *Memory) Close() error {
	return nil
}

// Load returns the current document. Before the first Reset there is no
// ledger, which reports chain.ErrNotExist like the durable engines do.
func (m *Memory) Load() (chain.ChainFS, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.loaded {
		return chain.ChainFS{}, fmt.Errorf("%w: ledger document", chain.ErrNotExist)
	}

	doc := m.doc
	doc.Blocks = make([]chain.Block, len(m.doc.Blocks))
	copy(doc.Blocks, m.doc.Blocks)

	return doc, nil
}

// Reset replaces the document held in memory.
func (m *Memory) Reset(doc chain.ChainFS) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.doc = doc
	m.doc.Blocks = make([]chain.Block, len(doc.Blocks))
	copy(m.doc.Blocks, doc.Blocks)
	m.loaded = true

	return nil
}

// Append adds the block to the document. The block number must extend the
// ledger; an already stored number reports chain.ErrDuplicateBlock.
func (m *Memory) Append(block chain.Block) (hash.Hash, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.loaded {
		return "", fmt.Errorf("%w: ledger document not loaded", chain.ErrIO)
	}

	next := uint64(len(m.doc.Blocks))
	switch {
	case block.Number < next:
		return "", fmt.Errorf("%w: block %d", chain.ErrDuplicateBlock, block.Number)
	case block.Number > next:
		return "", fmt.Errorf("%w: block %d is out of order, next is %d", chain.ErrIO, block.Number, next)
	}

	m.doc.Blocks = append(m.doc.Blocks, block)

	return block.BlockHash, nil
}
