package chain

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/remylch/ola-chain/foundation/ledger/hash"
)

// GenesisDifficulty is the difficulty recorded on the genesis block. The
// genesis block is never mined, so the value is informational and the block
// is exempt from the leading zero requirement.
const GenesisDifficulty uint = 4

// =============================================================================

// Block represents a group of transactions sealed together in the ledger.
// A block is constructed once, has its nonce mutated only while the mining
// search runs, and is frozen afterwards.
type Block struct {
	Number        uint64    `json:"number"`
	TimeStamp     uint64    `json:"timestamp"`
	Nonce         uint64    `json:"nonce"`
	Difficulty    uint      `json:"difficulty"`
	PrevBlockHash hash.Hash `json:"prev_block_hash,omitempty"`
	BlockHash     hash.Hash `json:"block_hash"`
	MerkleHash    hash.Hash `json:"merkle_hash"`
	Trans         []Tx      `json:"trans"`
}

// Genesis constructs the first block of a new ledger. The block carries no
// transactions, has no parent, and its hash is computed immediately rather
// than mined.
func Genesis() Block {
	b := Block{
		Number:     0,
		TimeStamp:  uint64(time.Now().UTC().Unix()),
		Nonce:      0,
		Difficulty: GenesisDifficulty,
		MerkleHash: hash.New(nil),
		Trans:      []Tx{},
	}
	b.BlockHash = b.ComputeHash()

	return b
}

// NewBlock constructs an unsealed block for the specified transactions. The
// transaction list is copied, which fixes the inclusion order and therefore
// the merkle hash. The block hash is provisional until the mining search
// replaces it.
func NewBlock(number uint64, difficulty uint, prevBlockHash hash.Hash, trans []Tx) Block {
	cpy := make([]Tx, len(trans))
	copy(cpy, trans)

	b := Block{
		Number:        number,
		TimeStamp:     uint64(time.Now().UTC().Unix()),
		Nonce:         0,
		Difficulty:    difficulty,
		PrevBlockHash: prevBlockHash,
		MerkleHash:    computeMerkleHash(cpy),
		Trans:         cpy,
	}
	b.BlockHash = b.ComputeHash()

	return b
}

// ComputeHash returns the digest for the block. The computation covers the
// number, creation time, nonce, difficulty, previous block hash when present,
// merkle hash, and the serialized transaction list, in that fixed order, so
// the result is reproducible bit for bit from the same inputs.
func (b Block) ComputeHash() hash.Hash {
	buf := make([]byte, 0, 512)
	buf = binary.LittleEndian.AppendUint64(buf, b.Number)
	buf = binary.LittleEndian.AppendUint64(buf, b.TimeStamp)
	buf = binary.LittleEndian.AppendUint64(buf, b.Nonce)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(b.Difficulty))
	buf = append(buf, b.PrevBlockHash...)
	buf = append(buf, b.MerkleHash...)

	trans, err := json.Marshal(b.Trans)
	if err != nil {
		return hash.Genesis()
	}
	buf = append(buf, trans...)

	return hash.New(buf)
}

// Mine performs the work of finding a nonce whose digest satisfies the
// specified difficulty and returns the sealed copy. The search operates on
// its own copy of the block, so nothing shared is mutated while it runs. It
// has no timeout and no failure path; it runs until satisfied.
func (b Block) Mine(difficulty uint) Block {
	for {
		hash := b.ComputeHash()
		if isHashSolved(difficulty, hash) {
			b.BlockHash = hash
			return b
		}
		b.Nonce++
	}
}

// Validate checks the block holds together and links to the specified parent.
// This runs when a persisted ledger is reloaded; appending stays unchecked
// and relies on the caller providing the right parent.
func (b Block) Validate(prevBlock Block) error {
	if b.BlockHash != b.ComputeHash() {
		return fmt.Errorf("block %d hash does not match its contents", b.Number)
	}

	if b.MerkleHash != computeMerkleHash(b.Trans) {
		return fmt.Errorf("block %d merkle hash does not match its transactions", b.Number)
	}

	if b.Number == 0 {
		if b.PrevBlockHash != "" {
			return fmt.Errorf("genesis block must not reference a parent")
		}
		return nil
	}

	if b.Number != prevBlock.Number+1 {
		return fmt.Errorf("block %d is not the next block, parent is %d", b.Number, prevBlock.Number)
	}

	if b.PrevBlockHash != prevBlock.BlockHash {
		return fmt.Errorf("block %d does not link to its parent, got %s, exp %s", b.Number, b.PrevBlockHash, prevBlock.BlockHash)
	}

	if !isHashSolved(b.Difficulty, b.BlockHash) {
		return fmt.Errorf("block %d hash does not satisfy difficulty %d", b.Number, b.Difficulty)
	}

	return nil
}

// =============================================================================

// computeMerkleHash hashes the concatenation of the transaction ids in list
// order. This is a flat digest, not a merkle tree: it provides no inclusion
// proofs, but any reorder or mutation of the transactions changes the value.
// An empty list hashes to the digest of an empty byte sequence.
func computeMerkleHash(trans []Tx) hash.Hash {
	buf := make([]byte, 0, len(trans)*64)
	for _, tx := range trans {
		buf = append(buf, tx.ID...)
	}

	return hash.New(buf)
}

// isHashSolved checks the hash complies with the proof of work rules: the
// hexadecimal form must carry at least difficulty leading zero characters.
func isHashSolved(difficulty uint, hash hash.Hash) bool {
	if len(hash) != 64 || difficulty > 64 {
		return false
	}

	for i := uint(0); i < difficulty; i++ {
		if hash[i] != '0' {
			return false
		}
	}

	return true
}
