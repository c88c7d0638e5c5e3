// Package network implements the TCP exchange nodes use to announce
// themselves and learn each other's ledger position.
package network

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/remylch/ola-chain/foundation/ledger/peer"
	"github.com/remylch/ola-chain/foundation/ledger/state"
)

// Wire tokens for the synchronization exchange. A sync request carries the
// caller's advertised host and is answered with this node's status document.
// Any other message is echoed back untouched.
const (
	syncRequest  = "SYNC_REQUEST"
	syncResponse = "SYNC_RESPONSE"
)

const (
	dialTimeout     = 5 * time.Second
	exchangeTimeout = 10 * time.Second
)

// Config represents the configuration required to start the listener. Host
// is the address the listener binds to. Advertise is the address announced
// to peers during an exchange and defaults to Host.
type Config struct {
	Host      string
	Advertise string
	State     *state.State
	EvHandler state.EventHandler
}

// Network maintains the TCP listener for synchronization exchanges.
type Network struct {
	host     string
	state    *state.State
	ev       state.EventHandler
	listener net.Listener
	wg       sync.WaitGroup
}

// Start binds the listener and begins accepting synchronization exchanges.
func Start(cfg Config) (*Network, error) {
	listener, err := net.Listen("tcp", cfg.Host)
	if err != nil {
		return nil, fmt.Errorf("bind sync listener: %w", err)
	}

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	advertise := cfg.Advertise
	if advertise == "" {
		advertise = cfg.Host
	}

	n := Network{
		host:     advertise,
		state:    cfg.State,
		ev:       ev,
		listener: listener,
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.ev("network: sync exchanges on %s", listener.Addr())
		n.accept()
	}()

	return &n, nil
}

// Shutdown closes the listener and waits for in-flight exchanges to finish.
func (n *Network) Shutdown() {
	n.ev("network: shutdown: started")
	defer n.ev("network: shutdown: completed")

	n.listener.Close()
	n.wg.Wait()
}

// Addr returns the address the listener is bound to.
func (n *Network) Addr() string {
	return n.listener.Addr().String()
}

// Sync runs one synchronization pass against every known peer. Newly learned
// peers are merged into the known set; a peer reporting a different genesis
// is on a different ledger and is dropped.
func (n *Network) Sync() {
	n.ev("network: sync: started")
	defer n.ev("network: sync: completed")

	genesisHash := n.state.RetrieveGenesisBlock().BlockHash

	for _, p := range n.state.RetrieveKnownPeers() {
		status, err := Exchange(p.Host, n.host)
		if err != nil {
			n.ev("network: sync: peer %s: ERROR: %s", p.Host, err)
			continue
		}

		if status.GenesisHash != genesisHash {
			n.ev("network: sync: peer %s: different ledger, dropping", p.Host)
			n.state.RemoveKnownPeer(p)
			continue
		}

		n.ev("network: sync: peer %s: height %d: tip %s", p.Host, status.Height, status.LatestBlockHash)

		for _, known := range status.KnownPeers {
			if known.Match(n.host) {
				continue
			}
			if n.state.AddKnownPeer(known) {
				n.ev("network: sync: registered peer %s", known.Host)
			}
		}
	}
}

// =============================================================================

// accept hands each inbound connection to its own goroutine until the
// listener is closed.
func (n *Network) accept() {
	for {
		conn, err := n.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			n.ev("network: accept: ERROR: %s", err)
			continue
		}

		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			n.exchange(conn)
		}()
	}
}

// exchange runs the server side of the protocol for one connection.
func (n *Network) exchange(conn net.Conn) {
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(exchangeTimeout))

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		n.ev("network: exchange: read: ERROR: %s", err)
		return
	}

	msg := strings.TrimSpace(line)

	if !strings.HasPrefix(msg, syncRequest) {
		fmt.Fprintf(conn, "%s\n", msg)
		return
	}

	if host := strings.TrimSpace(strings.TrimPrefix(msg, syncRequest)); host != "" {
		if n.state.AddKnownPeer(peer.New(host)) {
			n.ev("network: exchange: registered peer %s", host)
		}
	}

	status := n.state.RetrieveStatus()
	data, err := json.Marshal(status)
	if err != nil {
		n.ev("network: exchange: marshal status: ERROR: %s", err)
		return
	}

	fmt.Fprintf(conn, "%s %s\n", syncResponse, data)
}

// =============================================================================

// Exchange performs one synchronization round trip against the specified
// host, advertising from as the caller's own sync address.
func Exchange(host string, from string) (peer.Status, error) {
	conn, err := net.DialTimeout("tcp", host, dialTimeout)
	if err != nil {
		return peer.Status{}, fmt.Errorf("dial %s: %w", host, err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(exchangeTimeout))

	if _, err := fmt.Fprintf(conn, "%s %s\n", syncRequest, from); err != nil {
		return peer.Status{}, fmt.Errorf("send sync request: %w", err)
	}

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return peer.Status{}, fmt.Errorf("read sync response: %w", err)
	}

	msg := strings.TrimSpace(line)
	if !strings.HasPrefix(msg, syncResponse) {
		return peer.Status{}, fmt.Errorf("unexpected response %q", msg)
	}

	var status peer.Status
	payload := strings.TrimSpace(strings.TrimPrefix(msg, syncResponse))
	if err := json.Unmarshal([]byte(payload), &status); err != nil {
		return peer.Status{}, fmt.Errorf("decode status: %w", err)
	}

	return status, nil
}
