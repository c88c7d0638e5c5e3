package state_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/remylch/ola-chain/foundation/ledger/chain"
	"github.com/remylch/ola-chain/foundation/ledger/chain/storage/memory"
	"github.com/remylch/ola-chain/foundation/ledger/hash"
	"github.com/remylch/ola-chain/foundation/ledger/mempool"
	"github.com/remylch/ola-chain/foundation/ledger/state"
	"github.com/remylch/ola-chain/foundation/ledger/worker"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

const (
	signerECDSA = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	toAccount   = chain.AccountID("0xbEE6ACE826eC3DE1B6349888B9151B92522F7F76")
)

func noEv(v string, args ...any) {}

func signedTx(t *testing.T, amount uint64, fee uint64) chain.Tx {
	pk, err := crypto.HexToECDSA(signerECDSA)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to parse the private key: %v", failed, err)
	}

	tx, err := chain.NewTx(chain.PublicKeyToAccountID(pk.PublicKey), toAccount, amount, fee)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct a transaction: %v", failed, err)
	}

	tx, err = tx.Sign(pk)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to sign the transaction: %v", failed, err)
	}

	return tx
}

func newState(t *testing.T, strg chain.Storage) *state.State {
	st, err := state.New(state.Config{
		Host:          "localhost:9080",
		Storage:       strg,
		Difficulty:    1,
		TimeLimit:     10 * time.Minute,
		MinPendingTxs: 1,
		MaxPoolTxs:    100,
		MaxBlockTxs:   10,
		MaxBlockBytes: 1 << 20,
		EvHandler:     noEv,
	})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the state: %v", failed, err)
	}

	return st
}

func TestSealing(t *testing.T) {
	t.Log("Given the need to validate the sealing orchestration end to end.")
	{
		t.Logf("\tTest 0:\tWhen starting a fresh node.")
		{
			strg, err := memory.New()
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to construct storage: %v", failed, err)
			}

			st := newState(t, strg)

			if !st.ShouldSeal() {
				t.Fatalf("\t%s\tTest 0:\tShould report a block due immediately after start.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould report a block due immediately after start.", success)

			if _, err := st.SealNextBlock(); !errors.Is(err, state.ErrNoCandidate) {
				t.Fatalf("\t%s\tTest 0:\tShould report no candidate with an empty mempool: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould report no candidate with an empty mempool.", success)

			genesis := st.RetrieveGenesisBlock()

			tx := signedTx(t, 100, 15)
			if err := st.SubmitTransaction(tx); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould accept a valid transaction: %v", failed, err)
			}
			if st.QueryMempoolLength() != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould hold one pending transaction.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould accept a valid transaction.", success)

			sealed, err := st.SealNextBlock()
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould seal a block: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould seal a block.", success)

			if sealed.Number != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould seal block number 1, got %d.", failed, sealed.Number)
			}
			if sealed.PrevBlockHash != genesis.BlockHash {
				t.Fatalf("\t%s\tTest 0:\tShould link the new block to genesis.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould link the new block to genesis.", success)

			if len(sealed.Trans) != 1 || sealed.Trans[0].ID != tx.ID {
				t.Fatalf("\t%s\tTest 0:\tShould carry the submitted transaction.", failed)
			}
			if st.QueryMempoolLength() != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould drain the mempool.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould carry the submitted transaction and drain the mempool.", success)

			if st.RetrieveHeight() != 1 || st.RetrieveLatestBlock().BlockHash != sealed.BlockHash {
				t.Fatalf("\t%s\tTest 0:\tShould move the tip to the sealed block.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould move the tip to the sealed block.", success)

			if _, err := st.SealNextBlock(); !errors.Is(err, state.ErrNoCandidate) {
				t.Fatalf("\t%s\tTest 0:\tShould report no candidate when no trigger is satisfied: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould report no candidate when no trigger is satisfied.", success)
		}

		t.Logf("\tTest 1:\tWhen submitting an invalid transaction.")
		{
			strg, err := memory.New()
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to construct storage: %v", failed, err)
			}

			st := newState(t, strg)

			pk, err := crypto.HexToECDSA(signerECDSA)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to parse the private key: %v", failed, err)
			}

			unsigned, err := chain.NewTx(chain.PublicKeyToAccountID(pk.PublicKey), toAccount, 100, 15)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to construct a transaction: %v", failed, err)
			}

			if err := st.SubmitTransaction(unsigned); !errors.Is(err, mempool.ErrInvalidTransaction) {
				t.Fatalf("\t%s\tTest 1:\tShould reject the transaction: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould reject the transaction.", success)
		}
	}
}

// failingStorage wraps a storage engine and makes every append fail.
type failingStorage struct {
	chain.Storage
}

func (fs *failingStorage) Append(block chain.Block) (hash.Hash, error) {
	return "", fmt.Errorf("%w: append refused", chain.ErrIO)
}

func TestSealingStorageFailure(t *testing.T) {
	t.Log("Given the need to validate behavior when persistence fails.")
	{
		t.Logf("\tTest 0:\tWhen the storage engine refuses the append.")
		{
			strg, err := memory.New()
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to construct storage: %v", failed, err)
			}

			st := newState(t, &failingStorage{Storage: strg})

			if err := st.SubmitTransaction(signedTx(t, 100, 15)); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould accept a valid transaction: %v", failed, err)
			}

			if _, err := st.SealNextBlock(); !errors.Is(err, chain.ErrIO) {
				t.Fatalf("\t%s\tTest 0:\tShould surface the storage failure: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould surface the storage failure.", success)

			if st.RetrieveHeight() != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould keep the ledger at genesis.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould keep the ledger at genesis.", success)
		}
	}
}

func TestWorkerSealing(t *testing.T) {
	t.Log("Given the need to validate background sealing through the worker.")
	{
		t.Logf("\tTest 0:\tWhen a submission tips the pending threshold.")
		{
			strg, err := memory.New()
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to construct storage: %v", failed, err)
			}

			st := newState(t, strg)
			worker.Run(st, noEv)
			defer st.Shutdown()

			if err := st.SubmitTransaction(signedTx(t, 100, 15)); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould accept a valid transaction: %v", failed, err)
			}

			deadline := time.Now().Add(5 * time.Second)
			for time.Now().Before(deadline) {
				if st.RetrieveHeight() == 1 {
					break
				}
				time.Sleep(50 * time.Millisecond)
			}

			if st.RetrieveHeight() != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould seal a block in the background.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould seal a block in the background.", success)
		}
	}
}
