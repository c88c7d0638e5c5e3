// Package bolt implements the ability to read and write the ledger using a
// bbolt key value database. Blocks are stored one per key so an append never
// rewrites the rest of the ledger.
package bolt

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/remylch/ola-chain/foundation/ledger/chain"
	"github.com/remylch/ola-chain/foundation/ledger/hash"
)

// ledgerFile is the name of the database inside the data directory.
const ledgerFile = "ledger.db"

var (
	metaBucket   = []byte("meta")
	blocksBucket = []byte("blocks")
	headerKey    = []byte("header")
)

// header carries the document fields that are not blocks.
type header struct {
	InitializedAt time.Time `json:"initialized_at"`
	Difficulty    uint      `json:"difficulty"`
	GenesisHash   hash.Hash `json:"genesis_hash"`
}

// Bolt represents the serialization implementation for reading and storing
// the ledger in a bbolt database. This implements the chain.Storage
// interface.
type Bolt struct {
	db *bbolt.DB
}

// New constructs a Bolt value for use. The database file is created when it
// does not exist yet; a short open timeout keeps a second node on the same
// data directory from hanging forever on the file lock.
func New(dataPath string) (*Bolt, error) {
	db, err := bbolt.Open(filepath.Join(dataPath, ledgerFile), 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %v", chain.ErrIO, err)
	}

	return &Bolt{db: db}, nil
}

// Close releases the database and its file lock.
func (b *Bolt) Close() error {
	return b.db.Close()
}

// Load reads the ledger document out of the database. A database without a
// header reports chain.ErrNotExist so the caller can create a fresh ledger.
func (b *Bolt) Load() (chain.ChainFS, error) {
	var doc chain.ChainFS

	err := b.db.View(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(metaBucket)
		if meta == nil {
			return fmt.Errorf("%w: ledger header", chain.ErrNotExist)
		}

		data := meta.Get(headerKey)
		if data == nil {
			return fmt.Errorf("%w: ledger header", chain.ErrNotExist)
		}

		var hdr header
		if err := json.Unmarshal(data, &hdr); err != nil {
			return fmt.Errorf("%w: decode header: %v", chain.ErrSerialization, err)
		}
		doc.InitializedAt = hdr.InitializedAt
		doc.Difficulty = hdr.Difficulty
		doc.GenesisHash = hdr.GenesisHash

		blocks := tx.Bucket(blocksBucket)
		if blocks == nil {
			return nil
		}

		return blocks.ForEach(func(k, v []byte) error {
			var block chain.Block
			if err := json.Unmarshal(v, &block); err != nil {
				return fmt.Errorf("%w: decode block %d: %v", chain.ErrSerialization, btoi(k), err)
			}
			doc.Blocks = append(doc.Blocks, block)
			return nil
		})
	})
	if err != nil {
		return chain.ChainFS{}, err
	}

	return doc, nil
}

// Reset replaces the database contents with the specified document.
func (b *Bolt) Reset(doc chain.ChainFS) error {
	err := b.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{metaBucket, blocksBucket} {
			if tx.Bucket(name) != nil {
				if err := tx.DeleteBucket(name); err != nil {
					return fmt.Errorf("%w: drop bucket %s: %v", chain.ErrIO, name, err)
				}
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return fmt.Errorf("%w: create bucket %s: %v", chain.ErrIO, name, err)
			}
		}

		hdr := header{InitializedAt: doc.InitializedAt, Difficulty: doc.Difficulty, GenesisHash: doc.GenesisHash}
		data, err := json.Marshal(hdr)
		if err != nil {
			return fmt.Errorf("%w: encode header: %v", chain.ErrSerialization, err)
		}
		if err := tx.Bucket(metaBucket).Put(headerKey, data); err != nil {
			return fmt.Errorf("%w: write header: %v", chain.ErrIO, err)
		}

		blocks := tx.Bucket(blocksBucket)
		for _, block := range doc.Blocks {
			data, err := json.Marshal(block)
			if err != nil {
				return fmt.Errorf("%w: encode block %d: %v", chain.ErrSerialization, block.Number, err)
			}
			if err := blocks.Put(itob(block.Number), data); err != nil {
				return fmt.Errorf("%w: write block %d: %v", chain.ErrIO, block.Number, err)
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	return nil
}

// Append stores the block under its number. A block number that is already
// present reports chain.ErrDuplicateBlock and leaves the database untouched.
func (b *Bolt) Append(block chain.Block) (hash.Hash, error) {
	err := b.db.Update(func(tx *bbolt.Tx) error {
		blocks := tx.Bucket(blocksBucket)
		if blocks == nil {
			return fmt.Errorf("%w: ledger not initialized", chain.ErrIO)
		}

		key := itob(block.Number)
		if blocks.Get(key) != nil {
			return fmt.Errorf("%w: block %d", chain.ErrDuplicateBlock, block.Number)
		}

		data, err := json.Marshal(block)
		if err != nil {
			return fmt.Errorf("%w: encode block %d: %v", chain.ErrSerialization, block.Number, err)
		}

		if err := blocks.Put(key, data); err != nil {
			return fmt.Errorf("%w: write block %d: %v", chain.ErrIO, block.Number, err)
		}

		return nil
	})
	if err != nil {
		return "", err
	}

	return block.BlockHash, nil
}

// itob encodes the block number big endian so the bucket iterates the
// ledger in block order.
func itob(v uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, v)
	return key
}

// btoi decodes a block number key.
func btoi(key []byte) uint64 {
	if len(key) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(key)
}
