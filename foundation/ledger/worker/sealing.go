package worker

import (
	"errors"

	"github.com/remylch/ola-chain/foundation/ledger/state"
)

// sealingOperations handles sealing passes, whether signaled by a
// transaction submission or by the periodic trigger check.
func (w *Worker) sealingOperations() {
	w.evHandler("worker: sealingOperations: G started")
	defer w.evHandler("worker: sealingOperations: G completed")

	for {
		select {
		case <-w.sealing:
			if !w.isShutdown() {
				w.runSealingOperation()
			}
		case <-w.ticker.C:
			if !w.isShutdown() && w.sealingPossible() {
				w.runSealingOperation()
			}
		case <-w.shut:
			w.evHandler("worker: sealingOperations: received shut signal")
			return
		}
	}
}

// runSealingOperation performs one sealing pass against the state. Errors
// are logged and dropped; the next trigger will retry.
func (w *Worker) runSealingOperation() {
	w.evHandler("worker: runSealingOperation: SEALING: started")
	defer w.evHandler("worker: runSealingOperation: SEALING: completed")

	block, err := w.state.SealNextBlock()
	if err != nil {
		switch {
		case errors.Is(err, state.ErrNoCandidate):
			w.evHandler("worker: runSealingOperation: SEALING: WARNING: %s", err)
		default:
			w.evHandler("worker: runSealingOperation: SEALING: ERROR: %s", err)
		}
		return
	}

	w.evHandler("worker: runSealingOperation: SEALING: block[%d] sealed: txs[%d]", block.Number, len(block.Trans))

	// After running a sealing operation, check if another block is
	// already due.
	if w.sealingPossible() {
		w.SignalSealing()
	}
}

// sealingPossible reports whether a pass right now could produce a block:
// a trigger must be satisfied and the mempool must hold something to seal.
func (w *Worker) sealingPossible() bool {
	return w.state.ShouldSeal() && w.state.QueryMempoolLength() > 0
}
