// Package mempool maintains the pool of transactions waiting to be sealed
// into a block.
package mempool

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/remylch/ola-chain/foundation/ledger/chain"
	"github.com/remylch/ola-chain/foundation/ledger/hash"
)

// DefaultMaxTransactions is the pool capacity applied by New when the
// caller has no opinion.
const DefaultMaxTransactions = 1000

// Set of errors the pool reports to callers. These are recoverable, the
// caller is told and the node keeps running.
var (
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrPoolFull           = errors.New("mempool is full")
)

// poolTx carries a pending transaction together with its estimated size,
// measured once at admission.
type poolTx struct {
	tx   chain.Tx
	size int
}

// Mempool represents a cache of pending transactions kept in admission
// order, with a second index grouping transactions by exact fee value. A
// transaction is present in the admission list if and only if it sits in
// exactly one fee bucket; every mutation maintains both together under the
// same lock.
type Mempool struct {
	mu      sync.RWMutex
	maxTxs  int
	pool    []hash.Hash
	txs     map[hash.Hash]poolTx
	buckets map[uint64][]hash.Hash
	bytes   int
}

// New constructs a new mempool using the default capacity.
func New() (*Mempool, error) {
	return NewWithCapacity(DefaultMaxTransactions)
}

// NewWithCapacity constructs a new mempool holding at most the specified
// number of pending transactions.
func NewWithCapacity(maxTxs int) (*Mempool, error) {
	if maxTxs <= 0 {
		return nil, fmt.Errorf("capacity must be positive, got %d", maxTxs)
	}

	mp := Mempool{
		maxTxs:  maxTxs,
		txs:     make(map[hash.Hash]poolTx),
		buckets: make(map[uint64][]hash.Hash),
	}

	return &mp, nil
}

// Add admits a transaction to the pool. The transaction is fully validated
// first, then checked against the pool capacity. The returned count is the
// number of pending transactions after the add.
func (mp *Mempool) Add(tx chain.Tx) (int, error) {
	if err := tx.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidTransaction, err)
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	if _, exists := mp.txs[tx.ID]; exists {
		return 0, fmt.Errorf("%w: transaction %s already pending", ErrInvalidTransaction, tx.ID)
	}

	if len(mp.pool) >= mp.maxTxs {
		return 0, fmt.Errorf("%w: %d transactions pending", ErrPoolFull, len(mp.pool))
	}

	size := tx.EstimatedSize()

	mp.pool = append(mp.pool, tx.ID)
	mp.txs[tx.ID] = poolTx{tx: tx, size: size}
	mp.buckets[tx.Fee] = append(mp.buckets[tx.Fee], tx.ID)
	mp.bytes += size

	return len(mp.pool), nil
}

// PickBest selects the transactions for the next block and removes them
// from the pool in the same critical section, so a transaction is never
// both returned and left pending. Buckets are walked in descending fee
// order and drained oldest first. Selection stops at the first transaction
// that would push the batch past howMany transactions or byteBudget bytes,
// even if a later, smaller transaction would still fit. A negative cap
// means unbounded. An empty pool yields an empty batch.
func (mp *Mempool) PickBest(howMany int, byteBudget int) []chain.Tx {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	fees := make([]uint64, 0, len(mp.buckets))
	for fee := range mp.buckets {
		fees = append(fees, fee)
	}
	sort.Slice(fees, func(i, j int) bool { return fees[i] > fees[j] })

	picked := make([]chain.Tx, 0, len(mp.pool))
	var size int
	done := false

	for _, fee := range fees {
		for _, id := range mp.buckets[fee] {
			ptx := mp.txs[id]
			if howMany >= 0 && len(picked) >= howMany {
				done = true
				break
			}
			if byteBudget >= 0 && size+ptx.size > byteBudget {
				done = true
				break
			}
			picked = append(picked, ptx.tx)
			size += ptx.size
		}
		if done {
			break
		}
	}

	for _, tx := range picked {
		mp.remove(tx.ID)
	}

	return picked
}

// Delete removes the transaction with the specified id from the pool. A
// transaction that is not pending is a no-op.
func (mp *Mempool) Delete(id hash.Hash) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.remove(id)
}

// Count returns the current number of pending transactions.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Bytes returns the cumulative estimated size of the pending transactions.
func (mp *Mempool) Bytes() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return mp.bytes
}

// Copy returns the pending transactions in admission order.
func (mp *Mempool) Copy() []chain.Tx {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	txs := make([]chain.Tx, 0, len(mp.pool))
	for _, id := range mp.pool {
		txs = append(txs, mp.txs[id].tx)
	}

	return txs
}

// =============================================================================

// remove drops the transaction from the admission list, its fee bucket, and
// the byte accounting. Empty buckets are pruned. The caller must hold the
// write lock.
func (mp *Mempool) remove(id hash.Hash) {
	ptx, exists := mp.txs[id]
	if !exists {
		return
	}

	delete(mp.txs, id)
	mp.bytes -= ptx.size

	for i, pid := range mp.pool {
		if pid == id {
			mp.pool = append(mp.pool[:i], mp.pool[i+1:]...)
			break
		}
	}

	fee := ptx.tx.Fee
	bucket := mp.buckets[fee]
	for i, bid := range bucket {
		if bid == id {
			bucket = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}

	if len(bucket) == 0 {
		delete(mp.buckets, fee)
		return
	}
	mp.buckets[fee] = bucket
}
