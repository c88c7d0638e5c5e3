package chain_test

import (
	"crypto/ecdsa"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/remylch/ola-chain/foundation/ledger/chain"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

const (
	signerECDSA = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	otherECDSA  = "8dc79feefd3b86e2f9991def0e5ccd9a5128e104682407b308594bc1032ac7f0"
	toAccount   = chain.AccountID("0xbEE6ACE826eC3DE1B6349888B9151B92522F7F76")
)

func signerKey(t *testing.T, hexkey string) (*ecdsa.PrivateKey, chain.AccountID) {
	pk, err := crypto.HexToECDSA(hexkey)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to parse the private key: %v", failed, err)
	}

	return pk, chain.PublicKeyToAccountID(pk.PublicKey)
}

func signedTx(t *testing.T, amount uint64, fee uint64) chain.Tx {
	pk, fromID := signerKey(t, signerECDSA)

	tx, err := chain.NewTx(fromID, toAccount, amount, fee)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct a transaction: %v", failed, err)
	}

	tx, err = tx.Sign(pk)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to sign the transaction: %v", failed, err)
	}

	return tx
}

func TestTxValidate(t *testing.T) {
	t.Log("Given the need to validate the transaction admission predicate.")
	{
		t.Logf("\tTest 0:\tWhen handling a properly signed transaction.")
		{
			tx := signedTx(t, 100, 15)

			if err := tx.Validate(); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould pass validation: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould pass validation.", success)

			if tx.ID == "" || len(tx.ID) != 64 {
				t.Fatalf("\t%s\tTest 0:\tShould carry a 64 character id: %q", failed, tx.ID)
			}
			t.Logf("\t%s\tTest 0:\tShould carry a 64 character id.", success)
		}

		t.Logf("\tTest 1:\tWhen handling transactions that break the predicate.")
		{
			pk, fromID := signerKey(t, signerECDSA)

			zero, err := chain.NewTx(fromID, toAccount, 0, 15)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to construct a transaction: %v", failed, err)
			}
			zero, err = zero.Sign(pk)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to sign the transaction: %v", failed, err)
			}
			if err := zero.Validate(); err == nil {
				t.Fatalf("\t%s\tTest 1:\tShould reject a zero amount.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould reject a zero amount.", success)

			self, err := chain.NewTx(fromID, fromID, 100, 15)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to construct a transaction: %v", failed, err)
			}
			self, err = self.Sign(pk)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to sign the transaction: %v", failed, err)
			}
			if err := self.Validate(); err == nil {
				t.Fatalf("\t%s\tTest 1:\tShould reject matching from and to accounts.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould reject matching from and to accounts.", success)

			unsigned, err := chain.NewTx(fromID, toAccount, 100, 15)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to construct a transaction: %v", failed, err)
			}
			if err := unsigned.Validate(); err == nil {
				t.Fatalf("\t%s\tTest 1:\tShould reject a missing signature.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould reject a missing signature.", success)
		}

		t.Logf("\tTest 2:\tWhen handling a transaction mutated after signing.")
		{
			tx := signedTx(t, 100, 15)
			tx.Amount = 5000

			if err := tx.Validate(); err == nil {
				t.Fatalf("\t%s\tTest 2:\tShould reject an id that no longer matches the contents.", failed)
			}
			t.Logf("\t%s\tTest 2:\tShould reject an id that no longer matches the contents.", success)
		}

		t.Logf("\tTest 3:\tWhen handling a transaction signed by somebody else.")
		{
			otherPK, _ := signerKey(t, otherECDSA)
			_, fromID := signerKey(t, signerECDSA)

			tx, err := chain.NewTx(fromID, toAccount, 100, 15)
			if err != nil {
				t.Fatalf("\t%s\tTest 3:\tShould be able to construct a transaction: %v", failed, err)
			}
			tx, err = tx.Sign(otherPK)
			if err != nil {
				t.Fatalf("\t%s\tTest 3:\tShould be able to sign the transaction: %v", failed, err)
			}

			if err := tx.Validate(); err == nil {
				t.Fatalf("\t%s\tTest 3:\tShould reject a signature from a different account.", failed)
			}
			t.Logf("\t%s\tTest 3:\tShould reject a signature from a different account.", success)
		}
	}
}
