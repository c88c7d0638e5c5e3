// Package disk implements the ability to read and write the ledger document
// to disk using a single JSON file.
package disk

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/remylch/ola-chain/foundation/ledger/chain"
	"github.com/remylch/ola-chain/foundation/ledger/hash"
)

// ledgerFile is the name of the document inside the data directory.
const ledgerFile = "blockchain.json"

// Disk represents the serialization implementation for reading and storing
// the ledger in a JSON document on disk. This implements the chain.Storage
// interface. Every append rewrites the full document through a temporary
// file and a rename, so a crash mid-write leaves the previous document in
// place.
type Disk struct {
	mu     sync.Mutex
	path   string
	doc    chain.ChainFS
	loaded bool
}

// New constructs a Disk value for use, creating the data directory when it
// does not exist yet.
func New(dataPath string) (*Disk, error) {
	if err := os.MkdirAll(dataPath, 0755); err != nil {
		return nil, fmt.Errorf("%w: create data directory: %v", chain.ErrIO, err)
	}

	return &Disk{path: filepath.Join(dataPath, ledgerFile)}, nil
}

// Close in this implementation has nothing to release.
func (d *Disk) Close() error {
	return nil
}

// Load reads the ledger document from disk. A missing file reports
// chain.ErrNotExist so the caller can create a fresh ledger; a file that
// exists but cannot be decoded reports chain.ErrSerialization and must not
// be silently replaced.
func (d *Disk) Load() (chain.ChainFS, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	data, err := os.ReadFile(d.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return chain.ChainFS{}, fmt.Errorf("%w: %s", chain.ErrNotExist, d.path)
		}
		return chain.ChainFS{}, fmt.Errorf("%w: read %s: %v", chain.ErrIO, d.path, err)
	}

	var doc chain.ChainFS
	if err := json.Unmarshal(data, &doc); err != nil {
		return chain.ChainFS{}, fmt.Errorf("%w: decode %s: %v", chain.ErrSerialization, d.path, err)
	}

	d.doc = doc
	d.loaded = true

	return doc, nil
}

// Reset replaces whatever is on disk with the specified document.
func (d *Disk) Reset(doc chain.ChainFS) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.write(doc); err != nil {
		return err
	}

	d.doc = doc
	d.loaded = true

	return nil
}

// Append adds the block to the document and rewrites it on disk. The digest
// of the block is returned only after the rename has succeeded.
func (d *Disk) Append(block chain.Block) (hash.Hash, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.loaded {
		return "", fmt.Errorf("%w: ledger document not loaded", chain.ErrIO)
	}

	doc := d.doc
	doc.Blocks = make([]chain.Block, len(d.doc.Blocks), len(d.doc.Blocks)+1)
	copy(doc.Blocks, d.doc.Blocks)
	doc.Blocks = append(doc.Blocks, block)

	if err := d.write(doc); err != nil {
		return "", err
	}

	d.doc = doc

	return block.BlockHash, nil
}

// write serializes the document and moves it into place atomically.
func (d *Disk) write(doc chain.ChainFS) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode ledger: %v", chain.ErrSerialization, err)
	}

	tmp := d.path + ".tmp"

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", chain.ErrIO, tmp, err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("%w: write %s: %v", chain.ErrIO, tmp, err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("%w: sync %s: %v", chain.ErrIO, tmp, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", chain.ErrIO, tmp, err)
	}

	if err := os.Rename(tmp, d.path); err != nil {
		return fmt.Errorf("%w: rename %s: %v", chain.ErrIO, tmp, err)
	}

	return nil
}
