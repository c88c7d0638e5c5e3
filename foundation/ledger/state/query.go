package state

import (
	"time"

	"github.com/remylch/ola-chain/foundation/ledger/chain"
	"github.com/remylch/ola-chain/foundation/ledger/peer"
)

// QueryLatest represents a query against the latest block in the ledger.
const QueryLatest = ^uint64(0) >> 1

// RetrieveHost returns the host this node is running on.
func (s *State) RetrieveHost() string {
	return s.host
}

// RetrieveLatestBlock returns the current tip of the ledger.
func (s *State) RetrieveLatestBlock() chain.Block {
	return s.chain.LatestBlock()
}

// RetrieveGenesisBlock returns the first block of the ledger.
func (s *State) RetrieveGenesisBlock() chain.Block {
	return s.chain.GenesisBlock()
}

// RetrieveBlocks returns a copy of the full block list in ledger order.
// This feeds peer synchronization.
func (s *State) RetrieveBlocks() []chain.Block {
	return s.chain.Blocks()
}

// RetrieveBlockByNumber returns the block with the specified number.
func (s *State) RetrieveBlockByNumber(num uint64) (chain.Block, error) {
	return s.chain.BlockByNumber(num)
}

// QueryBlocksByNumber returns the set of blocks based on block numbers. Both
// bounds are inclusive and QueryLatest stands in for the current tip.
func (s *State) QueryBlocksByNumber(from uint64, to uint64) []chain.Block {
	if from == QueryLatest {
		from = s.chain.Height()
	}
	if to == QueryLatest {
		to = s.chain.Height()
	}

	if from > to {
		return nil
	}

	var blocks []chain.Block
	for _, block := range s.chain.Blocks() {
		if block.Number >= from && block.Number <= to {
			blocks = append(blocks, block)
		}
	}

	return blocks
}

// RetrieveHeight returns the number of the block at the tip of the ledger.
func (s *State) RetrieveHeight() uint64 {
	return s.chain.Height()
}

// RetrieveDifficulty returns the proof of work difficulty in effect.
func (s *State) RetrieveDifficulty() uint {
	return s.chain.Difficulty()
}

// RetrieveInitializedAt returns the time the ledger was first created.
func (s *State) RetrieveInitializedAt() time.Time {
	return s.chain.InitializedAt()
}

// RetrieveKnownPeers returns the known peers, excluding this node.
func (s *State) RetrieveKnownPeers() []peer.Peer {
	return s.knownPeers.Copy(s.host)
}

// RetrieveStatus returns the status this node reports during a
// synchronization exchange.
func (s *State) RetrieveStatus() peer.Status {
	tip := s.chain.LatestBlock()

	return peer.Status{
		Host:            s.host,
		GenesisHash:     s.chain.GenesisBlock().BlockHash,
		LatestBlockHash: tip.BlockHash,
		Height:          tip.Number,
		KnownPeers:      s.knownPeers.Copy(s.host),
	}
}

// QueryMempool returns a copy of the pending transactions in admission
// order.
func (s *State) QueryMempool() []chain.Tx {
	return s.mempool.Copy()
}

// QueryMempoolLength returns the current number of pending transactions.
func (s *State) QueryMempoolLength() int {
	return s.mempool.Count()
}

// QueryMempoolBytes returns the cumulative estimated size of the pending
// transactions.
func (s *State) QueryMempoolBytes() int {
	return s.mempool.Bytes()
}
