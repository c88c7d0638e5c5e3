// Package signature provides helper functions for signing ledger digests and
// recovering the account that produced a signature.
package signature

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/remylch/ola-chain/foundation/ledger/hash"
)

// Sign uses the specified private key to sign the digest. The signature is
// returned in its hexadecimal form and carries the recovery identifier so the
// signing account can be extracted later without a copy of the public key.
func Sign(digest hash.Hash, privateKey *ecdsa.PrivateKey) (string, error) {
	data, err := digestBytes(digest)
	if err != nil {
		return "", err
	}

	sig, err := crypto.Sign(data, privateKey)
	if err != nil {
		return "", err
	}

	// Check the signature is consistent before handing it out.
	publicKey, err := crypto.SigToPub(data, sig)
	if err != nil {
		return "", err
	}
	rs := sig[:crypto.RecoveryIDOffset]
	if !crypto.VerifySignature(crypto.FromECDSAPub(publicKey), data, rs) {
		return "", errors.New("invalid signature produced")
	}

	return hexutil.Encode(sig), nil
}

// RecoverAddress extracts the address for the account that signed the digest.
func RecoverAddress(digest hash.Hash, signature string) (string, error) {
	data, err := digestBytes(digest)
	if err != nil {
		return "", err
	}

	sig, err := hexutil.Decode(signature)
	if err != nil {
		return "", fmt.Errorf("decoding signature: %w", err)
	}
	if len(sig) != crypto.SignatureLength {
		return "", fmt.Errorf("signature must be %d bytes, got %d", crypto.SignatureLength, len(sig))
	}

	publicKey, err := crypto.SigToPub(data, sig)
	if err != nil {
		return "", err
	}

	return crypto.PubkeyToAddress(*publicKey).String(), nil
}

// =============================================================================

// digestBytes converts the hexadecimal digest back into the 32 bytes the
// elliptic curve functions operate on.
func digestBytes(digest hash.Hash) ([]byte, error) {
	data, err := hex.DecodeString(string(digest))
	if err != nil {
		return nil, fmt.Errorf("decoding digest: %w", err)
	}
	if len(data) != 32 {
		return nil, fmt.Errorf("digest must be 32 bytes, got %d", len(data))
	}

	return data, nil
}
