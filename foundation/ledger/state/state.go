// Package state is the core API for the ledger node. It owns the mempool
// and the chain, decides when a new block is due, and runs the sealing
// pass that turns pending transactions into the next block.
package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/remylch/ola-chain/foundation/ledger/chain"
	"github.com/remylch/ola-chain/foundation/ledger/mempool"
	"github.com/remylch/ola-chain/foundation/ledger/peer"
)

// EventHandler defines a function that is called when events occur in the
// processing of transactions and blocks.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by
// any package providing support for background sealing.
type Worker interface {
	Shutdown()
	SignalSealing()
}

// =============================================================================

// Config represents the configuration required to start the ledger node.
// MaxPoolTxs bounds admission; MaxBlockTxs and MaxBlockBytes bound what one
// sealing pass pulls out.
type Config struct {
	Host          string
	Storage       chain.Storage
	Difficulty    uint
	TimeLimit     time.Duration
	MinPendingTxs int
	MaxPoolTxs    int
	MaxBlockTxs   int
	MaxBlockBytes int
	KnownPeers    *peer.Set
	EvHandler     EventHandler
}

// State manages the ledger node. The mutex guards the sealing trigger
// bookkeeping; the mempool and the chain carry their own synchronization.
// Only the worker runs sealing passes, so candidate construction and the
// final append never interleave.
type State struct {
	mu            sync.Mutex
	host          string
	timeLimit     time.Duration
	minPendingTxs int
	maxBlockTxs   int
	maxBlockBytes int
	lastBlockTime time.Time
	evHandler     EventHandler

	knownPeers *peer.Set
	mempool    *mempool.Mempool
	chain      *chain.Chain

	Worker Worker
}

// New constructs the state, loading or creating the persisted ledger. The
// last block time deliberately starts at the zero time so the very first
// ShouldSeal call reports true regardless of the configured time limit.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	if cfg.TimeLimit <= 0 {
		return nil, fmt.Errorf("time limit must be positive, got %v", cfg.TimeLimit)
	}
	if cfg.MinPendingTxs < 1 {
		return nil, fmt.Errorf("min pending transactions must be at least 1, got %d", cfg.MinPendingTxs)
	}
	if cfg.MaxBlockTxs <= 0 || cfg.MaxBlockBytes <= 0 {
		return nil, fmt.Errorf("block limits must be positive, got %d txs and %d bytes", cfg.MaxBlockTxs, cfg.MaxBlockBytes)
	}

	mpool, err := mempool.NewWithCapacity(cfg.MaxPoolTxs)
	if err != nil {
		return nil, fmt.Errorf("construct mempool: %w", err)
	}

	c, err := chain.LoadOrCreate(cfg.Storage, cfg.Difficulty, ev)
	if err != nil {
		return nil, fmt.Errorf("construct chain: %w", err)
	}

	knownPeers := cfg.KnownPeers
	if knownPeers == nil {
		knownPeers = peer.NewSet()
	}

	state := State{
		host:          cfg.Host,
		timeLimit:     cfg.TimeLimit,
		minPendingTxs: cfg.MinPendingTxs,
		maxBlockTxs:   cfg.MaxBlockTxs,
		maxBlockBytes: cfg.MaxBlockBytes,
		evHandler:     ev,

		knownPeers: knownPeers,
		mempool:    mpool,
		chain:      c,
	}

	// The Worker is not set here. The call to worker.Run will assign itself
	// and start everything up and running for the node.

	return &state, nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {

	// Make sure the ledger storage is properly closed.
	defer func() {
		s.chain.Close()
	}()

	// Stop all sealing activity.
	if s.Worker != nil {
		s.Worker.Shutdown()
	}

	return nil
}

// AddKnownPeer adds a peer to the known set and reports whether it was
// unknown until now.
func (s *State) AddKnownPeer(p peer.Peer) bool {
	return s.knownPeers.Add(p)
}

// RemoveKnownPeer removes a peer from the known set.
func (s *State) RemoveKnownPeer(p peer.Peer) {
	s.knownPeers.Remove(p)
}
