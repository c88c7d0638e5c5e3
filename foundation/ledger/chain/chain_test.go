package chain_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/remylch/ola-chain/foundation/ledger/chain"
	"github.com/remylch/ola-chain/foundation/ledger/chain/storage/bolt"
	"github.com/remylch/ola-chain/foundation/ledger/chain/storage/disk"
	"github.com/remylch/ola-chain/foundation/ledger/chain/storage/memory"
)

// testDifficulty keeps the mining searches in these tests short.
const testDifficulty = 1

func noEv(v string, args ...any) {}

func mineNext(t *testing.T, c *chain.Chain, amount uint64) chain.Block {
	tip := c.LatestBlock()
	tx := signedTx(t, amount, 10)

	block := chain.NewBlock(tip.Number+1, c.Difficulty(), tip.BlockHash, []chain.Tx{tx}).Mine(c.Difficulty())

	if _, err := c.Append(block); err != nil {
		t.Fatalf("\t%s\tShould be able to append a sealed block: %v", failed, err)
	}

	return block
}

func TestChainLifecycle(t *testing.T) {
	t.Log("Given the need to validate the append only ledger rules.")
	{
		t.Logf("\tTest 0:\tWhen starting a ledger with no persisted document.")
		{
			strg, err := memory.New()
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to construct storage: %v", failed, err)
			}

			c, err := chain.LoadOrCreate(strg, testDifficulty, noEv)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to create a fresh ledger: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to create a fresh ledger.", success)

			if c.Height() != 0 || c.LatestBlock().Number != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould start at the genesis block.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould start at the genesis block.", success)

			mineNext(t, c, 100)
			mineNext(t, c, 200)

			if c.Height() != 2 {
				t.Fatalf("\t%s\tTest 0:\tShould reach height 2, got %d.", failed, c.Height())
			}
			t.Logf("\t%s\tTest 0:\tShould reach height 2.", success)

			blocks := c.Blocks()
			for i := 1; i < len(blocks); i++ {
				if blocks[i].PrevBlockHash != blocks[i-1].BlockHash {
					t.Fatalf("\t%s\tTest 0:\tShould link block %d to its predecessor.", failed, i)
				}
			}
			t.Logf("\t%s\tTest 0:\tShould link every block to its predecessor.", success)

			if _, err := c.BlockByNumber(1); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould find block 1: %v", failed, err)
			}
			if _, err := c.BlockByNumber(99); !errors.Is(err, chain.ErrNotExist) {
				t.Fatalf("\t%s\tTest 0:\tShould report a missing block with ErrNotExist: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould resolve blocks by number.", success)
		}
	}
}

func TestChainReload(t *testing.T) {
	t.Log("Given the need to validate the persisted ledger document on disk.")
	{
		dir := t.TempDir()

		t.Logf("\tTest 0:\tWhen restarting a node on an existing document.")
		{
			strg, err := disk.New(dir)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to construct storage: %v", failed, err)
			}

			c, err := chain.LoadOrCreate(strg, testDifficulty, noEv)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to create a fresh ledger: %v", failed, err)
			}

			sealed := mineNext(t, c, 100)

			if _, err := os.Stat(filepath.Join(dir, "blockchain.json")); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould persist the document as blockchain.json: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould persist the document as blockchain.json.", success)

			strg2, err := disk.New(dir)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to construct storage again: %v", failed, err)
			}

			c2, err := chain.LoadOrCreate(strg2, testDifficulty, noEv)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to reload the ledger: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to reload the ledger.", success)

			if c2.Height() != 1 || c2.LatestBlock().BlockHash != sealed.BlockHash {
				t.Fatalf("\t%s\tTest 0:\tShould recover the exact tip after a restart.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould recover the exact tip after a restart.", success)
		}

		t.Logf("\tTest 1:\tWhen the persisted document is corrupt.")
		{
			if err := os.WriteFile(filepath.Join(dir, "blockchain.json"), []byte("{not json"), 0644); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to corrupt the document: %v", failed, err)
			}

			strg, err := disk.New(dir)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to construct storage: %v", failed, err)
			}

			if _, err := chain.LoadOrCreate(strg, testDifficulty, noEv); !errors.Is(err, chain.ErrSerialization) {
				t.Fatalf("\t%s\tTest 1:\tShould refuse to start on a corrupt document: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould refuse to start on a corrupt document.", success)
		}
	}
}

func TestChainBolt(t *testing.T) {
	t.Log("Given the need to validate the bbolt storage engine.")
	{
		dir := t.TempDir()

		t.Logf("\tTest 0:\tWhen appending and reloading through bbolt.")
		{
			strg, err := bolt.New(dir)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to open the database: %v", failed, err)
			}

			c, err := chain.LoadOrCreate(strg, testDifficulty, noEv)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to create a fresh ledger: %v", failed, err)
			}

			sealed := mineNext(t, c, 100)

			if _, err := c.Append(sealed); !errors.Is(err, chain.ErrDuplicateBlock) {
				t.Fatalf("\t%s\tTest 0:\tShould reject appending the same block twice: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould reject appending the same block twice.", success)

			if err := c.Close(); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to close the ledger: %v", failed, err)
			}

			strg2, err := bolt.New(dir)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to reopen the database: %v", failed, err)
			}

			c2, err := chain.LoadOrCreate(strg2, testDifficulty, noEv)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to reload the ledger: %v", failed, err)
			}
			defer c2.Close()

			if c2.Height() != 1 || c2.LatestBlock().BlockHash != sealed.BlockHash {
				t.Fatalf("\t%s\tTest 0:\tShould recover the exact tip after a restart.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould recover the exact tip after a restart.", success)
		}
	}
}
