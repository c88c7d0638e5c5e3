package chain

import (
	"errors"
	"time"

	"github.com/remylch/ola-chain/foundation/ledger/hash"
)

// Set of errors the storage engines report. Engines wrap these so callers
// can test with errors.Is without knowing which engine is behind the chain.
var (
	ErrNotExist       = errors.New("does not exist")
	ErrIO             = errors.New("storage i/o failure")
	ErrSerialization  = errors.New("storage serialization failure")
	ErrDuplicateBlock = errors.New("block already persisted")
)

// =============================================================================

// ChainFS represents the persisted form of the ledger. The full block list
// travels with the document so a restarted node resumes from exactly the
// state it last committed.
type ChainFS struct {
	InitializedAt time.Time `json:"initialized_at"`
	Difficulty    uint      `json:"difficulty"`
	GenesisHash   hash.Hash `json:"genesis_hash"`
	Blocks        []Block   `json:"blocks"`
}

// Storage interface represents the behavior required to be implemented by
// any package providing durability for the ledger. Append must not report
// success unless the block is durably persisted.
type Storage interface {
	Load() (ChainFS, error)
	Reset(doc ChainFS) error
	Append(block Block) (hash.Hash, error)
	Close() error
}
