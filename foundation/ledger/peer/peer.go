// Package peer maintains the set of known peers and the status information
// exchanged with them during synchronization.
package peer

import (
	"sync"

	"github.com/remylch/ola-chain/foundation/ledger/hash"
)

// Peer represents information about a node in the network.
type Peer struct {
	Host string `json:"host"`
}

// New constructs a new peer value.
func New(host string) Peer {
	return Peer{
		Host: host,
	}
}

// Match validates if the specified host matches this peer.
func (p Peer) Match(host string) bool {
	return p.Host == host
}

// =============================================================================

// Status represents the ledger position of a peer as reported during a
// synchronization exchange. Two nodes share a ledger only when their
// genesis hashes match.
type Status struct {
	Host            string    `json:"host"`
	GenesisHash     hash.Hash `json:"genesis_hash"`
	LatestBlockHash hash.Hash `json:"latest_block_hash"`
	Height          uint64    `json:"height"`
	KnownPeers      []Peer    `json:"known_peers"`
}

// =============================================================================

// Set represents the data representation to maintain a set of known peers.
type Set struct {
	mu  sync.RWMutex
	set map[Peer]struct{}
}

// NewSet constructs a new set to manage node peer information.
func NewSet() *Set {
	return &Set{
		set: make(map[Peer]struct{}),
	}
}

// Add adds a new peer to the set and reports whether it was unknown until
// now.
func (ps *Set) Add(peer Peer) bool {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if _, exists := ps.set[peer]; !exists {
		ps.set[peer] = struct{}{}
		return true
	}

	return false
}

// Remove removes a peer from the set.
func (ps *Set) Remove(peer Peer) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	delete(ps.set, peer)
}

// Count returns the number of known peers.
func (ps *Set) Count() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	return len(ps.set)
}

// Copy returns a list of the known peers, excluding the specified host.
func (ps *Set) Copy(host string) []Peer {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	peers := make([]Peer, 0, len(ps.set))
	for peer := range ps.set {
		if !peer.Match(host) {
			peers = append(peers, peer)
		}
	}

	return peers
}
