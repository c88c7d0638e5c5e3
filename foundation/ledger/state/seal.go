package state

import (
	"errors"
	"fmt"
	"time"

	"github.com/remylch/ola-chain/foundation/ledger/chain"
)

// ErrNoCandidate is returned when a sealing pass runs with no trigger
// satisfied or with nothing worth sealing in the mempool.
var ErrNoCandidate = errors.New("no candidate block")

// =============================================================================

// ShouldSeal reports whether a new block is due: enough wall clock time has
// passed since the last sealed block, or enough transactions are pending.
// Either condition alone is sufficient.
func (s *State) ShouldSeal() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.shouldSeal()
}

// SealNextBlock runs one sealing pass: pull the best pending transactions,
// mine the candidate, and append the sealed block to the ledger. The mining
// search operates on its own copy of the candidate with no lock held, so a
// slow search never stalls transaction admission. Only the worker invokes
// this, which keeps candidate construction and the append from
// interleaving.
func (s *State) SealNextBlock() (chain.Block, error) {
	s.evHandler("state: SealNextBlock: SEALING: prepare candidate")

	candidate, err := s.prepareCandidate()
	if err != nil {
		return chain.Block{}, err
	}

	s.evHandler("state: SealNextBlock: SEALING: block[%d] txs[%d] difficulty[%d]: perform POW", candidate.Number, len(candidate.Trans), candidate.Difficulty)

	t := time.Now()
	sealed := candidate.Mine(candidate.Difficulty)

	s.evHandler("state: SealNextBlock: SEALING: POW solved: nonce[%d] duration[%v]", sealed.Nonce, time.Since(t))

	digest, err := s.chain.Append(sealed)
	if err != nil {
		return chain.Block{}, err
	}

	s.evHandler("state: SealNextBlock: SEALING: block[%d] appended: hash[%s]", sealed.Number, digest)

	return sealed, nil
}

// =============================================================================

// prepareCandidate checks the sealing triggers, drains the best
// transactions from the mempool, and constructs the unsealed block that
// extends the current tip. The last block time resets only when a candidate
// is actually produced.
func (s *State) prepareCandidate() (chain.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.shouldSeal() {
		return chain.Block{}, fmt.Errorf("%w: no sealing trigger satisfied", ErrNoCandidate)
	}

	trans := s.mempool.PickBest(s.maxBlockTxs, s.maxBlockBytes)
	if len(trans) == 0 {
		return chain.Block{}, fmt.Errorf("%w: mempool is empty", ErrNoCandidate)
	}

	tip := s.chain.LatestBlock()
	block := chain.NewBlock(tip.Number+1, s.chain.Difficulty(), tip.BlockHash, trans)

	s.lastBlockTime = time.Now()

	return block, nil
}

// shouldSeal implements the trigger check. The caller must hold the mutex.
func (s *State) shouldSeal() bool {
	if time.Since(s.lastBlockTime) > s.timeLimit {
		return true
	}

	return s.mempool.Count() >= s.minPendingTxs
}
