package public

import (
	"time"

	"github.com/remylch/ola-chain/foundation/ledger/chain"
	"github.com/remylch/ola-chain/foundation/ledger/hash"
	"github.com/remylch/ola-chain/foundation/nameservice"
)

// genesis summarizes the origin of the ledger.
type genesis struct {
	InitializedAt time.Time `json:"initialized_at"`
	GenesisHash   hash.Hash `json:"genesis_hash"`
	Difficulty    uint      `json:"difficulty"`
	Height        uint64    `json:"height"`
}

// tx is the client view of a transaction with account names resolved
// through the name service.
type tx struct {
	ID        hash.Hash       `json:"id"`
	From      chain.AccountID `json:"from"`
	FromName  string          `json:"from_name"`
	To        chain.AccountID `json:"to"`
	ToName    string          `json:"to_name"`
	Amount    uint64          `json:"amount"`
	Fee       uint64          `json:"fee"`
	TimeStamp uint64          `json:"timestamp"`
	Sig       string          `json:"sig"`
}

// block is the client view of a block.
type block struct {
	Number        uint64    `json:"number"`
	PrevBlockHash hash.Hash `json:"prev_block_hash,omitempty"`
	BlockHash     hash.Hash `json:"block_hash"`
	MerkleHash    hash.Hash `json:"merkle_hash"`
	Difficulty    uint      `json:"difficulty"`
	Nonce         uint64    `json:"nonce"`
	TimeStamp     uint64    `json:"timestamp"`
	Trans         []tx      `json:"txs"`
}

// toTx builds the client view of the specified transaction.
func toTx(ns *nameservice.NameService, tran chain.Tx) tx {
	return tx{
		ID:        tran.ID,
		From:      tran.FromID,
		FromName:  ns.Lookup(tran.FromID),
		To:        tran.ToID,
		ToName:    ns.Lookup(tran.ToID),
		Amount:    tran.Amount,
		Fee:       tran.Fee,
		TimeStamp: tran.TimeStamp,
		Sig:       tran.Signature,
	}
}

// toBlock builds the client view of the specified block.
func toBlock(ns *nameservice.NameService, blk chain.Block) block {
	trans := make([]tx, len(blk.Trans))
	for i, tran := range blk.Trans {
		trans[i] = toTx(ns, tran)
	}

	return block{
		Number:        blk.Number,
		PrevBlockHash: blk.PrevBlockHash,
		BlockHash:     blk.BlockHash,
		MerkleHash:    blk.MerkleHash,
		Difficulty:    blk.Difficulty,
		Nonce:         blk.Nonce,
		TimeStamp:     blk.TimeStamp,
		Trans:         trans,
	}
}
