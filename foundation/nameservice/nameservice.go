// Package nameservice reads a folder of ecdsa private keys and creates a
// name service lookup for the related accounts.
package nameservice

import (
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/remylch/ola-chain/foundation/ledger/chain"
)

// NameService maintains a map of accounts for name lookup.
type NameService struct {
	accounts map[chain.AccountID]string
}

// New constructs a name service with accounts from the specified folder. The
// name of each key file, minus the extension, becomes the account name.
func New(root string) (*NameService, error) {
	ns := NameService{
		accounts: make(map[chain.AccountID]string),
	}

	fn := func(fileName string, info fs.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("walkdir failure: %w", err)
		}

		if path.Ext(fileName) != ".ecdsa" {
			return nil
		}

		privateKey, err := crypto.LoadECDSA(fileName)
		if err != nil {
			return err
		}

		accountID := chain.PublicKeyToAccountID(privateKey.PublicKey)
		ns.accounts[accountID] = strings.TrimSuffix(path.Base(fileName), ".ecdsa")

		return nil
	}

	if err := filepath.Walk(root, fn); err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	return &ns, nil
}

// Lookup returns the name for the specified account. When the account is not
// known, the account id itself is returned.
func (ns *NameService) Lookup(accountID chain.AccountID) string {
	name, exists := ns.accounts[accountID]
	if !exists {
		return string(accountID)
	}
	return name
}

// Copy returns a copy of the map of names and accounts.
func (ns *NameService) Copy() map[chain.AccountID]string {
	cpy := make(map[chain.AccountID]string, len(ns.accounts))
	for accountID, name := range ns.accounts {
		cpy[accountID] = name
	}
	return cpy
}
