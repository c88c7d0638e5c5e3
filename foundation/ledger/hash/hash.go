// Package hash provides the digest primitive used to identify and seal
// everything recorded by the ledger.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ZeroHash represents the reserved all-zero digest. It is a historical
// placeholder value, not the output of any hash computation, and is distinct
// from an absent digest.
const ZeroHash Hash = "0000000000000000000000000000000000000000000000000000000000000000"

// Hash represents a sha256 digest in its 64 character hexadecimal form.
// Equality is exact string equality.
type Hash string

// New computes the digest of the specified bytes. The computation is
// deterministic and has no failure path.
func New(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// Genesis returns the reserved all-zero digest.
func Genesis() Hash {
	return ZeroHash
}

// ToHash converts a 64 character hexadecimal string to a Hash and validates
// it is formatted correctly.
func ToHash(s string) (Hash, error) {
	if len(s) != sha256.Size*2 {
		return "", fmt.Errorf("hash must be %d characters", sha256.Size*2)
	}
	if _, err := hex.DecodeString(s); err != nil {
		return "", fmt.Errorf("hash is not hexadecimal: %w", err)
	}

	return Hash(s), nil
}

// IsZero reports whether the hash is the reserved all-zero digest.
func (h Hash) IsZero() bool {
	return h == ZeroHash
}

// String implements the fmt.Stringer interface.
func (h Hash) String() string {
	return string(h)
}
