package chain

import (
	"crypto/ecdsa"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/remylch/ola-chain/foundation/ledger/hash"
	"github.com/remylch/ola-chain/foundation/ledger/signature"
)

// Tx is the transactional information between two accounts. The id is the
// digest of the core fields and never changes once the value is constructed.
type Tx struct {
	ID        hash.Hash `json:"id"`
	FromID    AccountID `json:"from"`
	ToID      AccountID `json:"to"`
	Amount    uint64    `json:"amount"`
	Fee       uint64    `json:"fee"`
	TimeStamp uint64    `json:"timestamp"`
	Signature string    `json:"signature,omitempty"`
}

// NewTx constructs a new unsigned transaction and stamps it with its id.
func NewTx(fromID AccountID, toID AccountID, amount uint64, fee uint64) (Tx, error) {
	if !fromID.IsAccountID() {
		return Tx{}, fmt.Errorf("from account is not properly formatted")
	}
	if !toID.IsAccountID() {
		return Tx{}, fmt.Errorf("to account is not properly formatted")
	}

	tx := Tx{
		FromID:    fromID,
		ToID:      toID,
		Amount:    amount,
		Fee:       fee,
		TimeStamp: uint64(time.Now().UTC().Unix()),
	}
	tx.ID = tx.computeID()

	return tx, nil
}

// Sign uses the specified private key to sign the transaction. The signed
// copy is returned and the receiver is left untouched.
func (tx Tx) Sign(privateKey *ecdsa.PrivateKey) (Tx, error) {
	sig, err := signature.Sign(tx.ID, privateKey)
	if err != nil {
		return Tx{}, err
	}
	tx.Signature = sig

	return tx, nil
}

// Validate applies the pool admission predicate: a positive amount, distinct
// parties, and a signature that was produced over this transaction's id by
// the from account. The id itself is checked to be the digest of the core
// fields so a mutated transaction can't carry its old identity.
func (tx Tx) Validate() error {
	if tx.Amount == 0 {
		return errors.New("amount must be greater than zero")
	}
	if tx.FromID == tx.ToID {
		return errors.New("from and to accounts must be different")
	}
	if tx.Signature == "" {
		return errors.New("transaction is not signed")
	}
	if tx.ID != tx.computeID() {
		return errors.New("id does not match the transaction contents")
	}

	from, err := signature.RecoverAddress(tx.ID, tx.Signature)
	if err != nil {
		return fmt.Errorf("invalid signature: %w", err)
	}
	if AccountID(from) != tx.FromID {
		return errors.New("signature does not match the from account")
	}

	return nil
}

// EstimatedSize returns the serialized length of the transaction. It is the
// size proxy used against the block size budget when packing transactions.
func (tx Tx) EstimatedSize() int {
	data, err := json.Marshal(tx)
	if err != nil {
		return 0
	}

	return len(data)
}

// String implements the fmt.Stringer interface for logging.
func (tx Tx) String() string {
	return fmt.Sprintf("%s:%d", tx.FromID, tx.Fee)
}

// =============================================================================

// computeID hashes the core fields in a fixed order: from, to, amount, fee,
// creation time. The signature is never part of the id.
func (tx Tx) computeID() hash.Hash {
	buf := make([]byte, 0, 128)
	buf = append(buf, tx.FromID...)
	buf = append(buf, tx.ToID...)
	buf = binary.LittleEndian.AppendUint64(buf, tx.Amount)
	buf = binary.LittleEndian.AppendUint64(buf, tx.Fee)
	buf = binary.LittleEndian.AppendUint64(buf, tx.TimeStamp)

	return hash.New(buf)
}
