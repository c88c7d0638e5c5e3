package state

import (
	"github.com/remylch/ola-chain/foundation/ledger/chain"
	"github.com/remylch/ola-chain/foundation/ledger/hash"
)

// SubmitTransaction accepts a signed transaction from an external submitter
// and admits it to the mempool. When the admission tips a sealing trigger,
// the worker is signaled to run a pass.
func (s *State) SubmitTransaction(tx chain.Tx) error {
	s.evHandler("state: SubmitTransaction: tx[%s]", tx)

	n, err := s.mempool.Add(tx)
	if err != nil {
		return err
	}

	s.evHandler("state: SubmitTransaction: admitted: pool count[%d]", n)

	if s.Worker != nil && s.ShouldSeal() {
		s.Worker.SignalSealing()
	}

	return nil
}

// RemoveTransaction drops a pending transaction from the mempool. This is
// an operator facility; a transaction that is not pending is a no-op.
func (s *State) RemoveTransaction(id hash.Hash) {
	s.evHandler("state: RemoveTransaction: tx[%s]", id)

	s.mempool.Delete(id)
}
