package network_test

import (
	"bufio"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/remylch/ola-chain/foundation/ledger/chain"
	"github.com/remylch/ola-chain/foundation/ledger/chain/storage/memory"
	"github.com/remylch/ola-chain/foundation/ledger/network"
	"github.com/remylch/ola-chain/foundation/ledger/peer"
	"github.com/remylch/ola-chain/foundation/ledger/state"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

func noEv(v string, args ...any) {}

func newState(t *testing.T, host string, strg chain.Storage, peers *peer.Set) *state.State {
	st, err := state.New(state.Config{
		Host:          host,
		Storage:       strg,
		Difficulty:    1,
		TimeLimit:     10 * time.Minute,
		MinPendingTxs: 1,
		MaxPoolTxs:    100,
		MaxBlockTxs:   10,
		MaxBlockBytes: 1 << 20,
		KnownPeers:    peers,
		EvHandler:     noEv,
	})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the state: %v", failed, err)
	}

	return st
}

func startNetwork(t *testing.T, st *state.State, advertise string) *network.Network {
	n, err := network.Start(network.Config{
		Host:      "127.0.0.1:0",
		Advertise: advertise,
		State:     st,
		EvHandler: noEv,
	})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to start the sync listener: %v", failed, err)
	}

	return n
}

func containsPeer(peers []peer.Peer, host string) bool {
	for _, p := range peers {
		if p.Match(host) {
			return true
		}
	}
	return false
}

func TestSyncExchange(t *testing.T) {
	t.Log("Given the need to validate the synchronization exchange.")
	{
		t.Logf("\tTest 0:\tWhen sending a sync request to a running node.")
		{
			strg, err := memory.New()
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to construct storage: %v", failed, err)
			}

			st := newState(t, "localhost:9080", strg, nil)
			defer st.Shutdown()

			n := startNetwork(t, st, "")
			defer n.Shutdown()

			status, err := network.Exchange(n.Addr(), "127.0.0.1:5501")
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to complete the exchange: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to complete the exchange.", success)

			if status.GenesisHash != st.RetrieveGenesisBlock().BlockHash {
				t.Errorf("\t%s\tTest 0:\tShould report this node's genesis hash.", failed)
			} else {
				t.Logf("\t%s\tTest 0:\tShould report this node's genesis hash.", success)
			}

			if status.Height != 0 {
				t.Errorf("\t%s\tTest 0:\tShould report height 0, got %d.", failed, status.Height)
			} else {
				t.Logf("\t%s\tTest 0:\tShould report height 0.", success)
			}

			if status.Host != "localhost:9080" {
				t.Errorf("\t%s\tTest 0:\tShould report the node host, got %q.", failed, status.Host)
			} else {
				t.Logf("\t%s\tTest 0:\tShould report the node host.", success)
			}

			if !containsPeer(st.RetrieveKnownPeers(), "127.0.0.1:5501") {
				t.Errorf("\t%s\tTest 0:\tShould register the caller as a peer.", failed)
			} else {
				t.Logf("\t%s\tTest 0:\tShould register the caller as a peer.", success)
			}
		}

		t.Logf("\tTest 1:\tWhen sending a message that is not a sync request.")
		{
			strg, err := memory.New()
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to construct storage: %v", failed, err)
			}

			st := newState(t, "localhost:9080", strg, nil)
			defer st.Shutdown()

			n := startNetwork(t, st, "")
			defer n.Shutdown()

			conn, err := net.DialTimeout("tcp", n.Addr(), time.Second)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to dial the listener: %v", failed, err)
			}
			defer conn.Close()

			conn.SetDeadline(time.Now().Add(5 * time.Second))

			if _, err := fmt.Fprintf(conn, "PING\n"); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to send the message: %v", failed, err)
			}

			line, err := bufio.NewReader(conn).ReadString('\n')
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to read the reply: %v", failed, err)
			}

			if line != "PING\n" {
				t.Errorf("\t%s\tTest 1:\tShould echo the message back, got %q.", failed, line)
			} else {
				t.Logf("\t%s\tTest 1:\tShould echo the message back.", success)
			}
		}
	}
}

func TestSyncMerge(t *testing.T) {
	t.Log("Given the need to validate a synchronization pass between nodes.")
	{
		t.Logf("\tTest 0:\tWhen syncing against a peer on the same ledger.")
		{
			strgA, err := memory.New()
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to construct storage: %v", failed, err)
			}

			stA := newState(t, "localhost:9080", strgA, nil)
			defer stA.Shutdown()
			stA.AddKnownPeer(peer.New("127.0.0.1:5502"))

			nA := startNetwork(t, stA, "")
			defer nA.Shutdown()

			// Seed the second node with the same genesis so the two
			// nodes share a ledger.
			genesis := stA.RetrieveGenesisBlock()
			doc := chain.ChainFS{
				InitializedAt: time.Now().UTC(),
				Difficulty:    1,
				GenesisHash:   genesis.BlockHash,
				Blocks:        []chain.Block{genesis},
			}

			strgB, err := memory.New()
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to construct storage: %v", failed, err)
			}
			if err := strgB.Reset(doc); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to seed storage: %v", failed, err)
			}

			peersB := peer.NewSet()
			peersB.Add(peer.New(nA.Addr()))

			stB := newState(t, "localhost:9180", strgB, peersB)
			defer stB.Shutdown()

			nB := startNetwork(t, stB, "127.0.0.1:5599")
			defer nB.Shutdown()

			nB.Sync()

			knownB := stB.RetrieveKnownPeers()
			if !containsPeer(knownB, nA.Addr()) {
				t.Errorf("\t%s\tTest 0:\tShould keep the synced peer.", failed)
			} else {
				t.Logf("\t%s\tTest 0:\tShould keep the synced peer.", success)
			}

			if !containsPeer(knownB, "127.0.0.1:5502") {
				t.Errorf("\t%s\tTest 0:\tShould learn the peer's known peers.", failed)
			} else {
				t.Logf("\t%s\tTest 0:\tShould learn the peer's known peers.", success)
			}

			if containsPeer(knownB, "127.0.0.1:5599") {
				t.Errorf("\t%s\tTest 0:\tShould not learn itself as a peer.", failed)
			} else {
				t.Logf("\t%s\tTest 0:\tShould not learn itself as a peer.", success)
			}

			if !containsPeer(stA.RetrieveKnownPeers(), "127.0.0.1:5599") {
				t.Errorf("\t%s\tTest 0:\tShould register the caller with the synced peer.", failed)
			} else {
				t.Logf("\t%s\tTest 0:\tShould register the caller with the synced peer.", success)
			}
		}

		t.Logf("\tTest 1:\tWhen syncing against a peer on a different ledger.")
		{
			strgA, err := memory.New()
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to construct storage: %v", failed, err)
			}

			stA := newState(t, "localhost:9080", strgA, nil)
			defer stA.Shutdown()

			nA := startNetwork(t, stA, "")
			defer nA.Shutdown()

			// Seed a ledger whose genesis predates this node's so the
			// genesis hashes are guaranteed to differ.
			genC := chain.Genesis()
			genC.TimeStamp -= 5000
			genC.BlockHash = genC.ComputeHash()
			docC := chain.ChainFS{
				InitializedAt: time.Now().UTC(),
				Difficulty:    1,
				GenesisHash:   genC.BlockHash,
				Blocks:        []chain.Block{genC},
			}

			strgC, err := memory.New()
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to construct storage: %v", failed, err)
			}
			if err := strgC.Reset(docC); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to seed storage: %v", failed, err)
			}

			peersC := peer.NewSet()
			peersC.Add(peer.New(nA.Addr()))

			stC := newState(t, "localhost:9280", strgC, peersC)
			defer stC.Shutdown()

			nC := startNetwork(t, stC, "127.0.0.1:5598")
			defer nC.Shutdown()

			nC.Sync()

			if containsPeer(stC.RetrieveKnownPeers(), nA.Addr()) {
				t.Errorf("\t%s\tTest 1:\tShould drop the peer with a different genesis.", failed)
			} else {
				t.Logf("\t%s\tTest 1:\tShould drop the peer with a different genesis.", success)
			}
		}
	}
}
