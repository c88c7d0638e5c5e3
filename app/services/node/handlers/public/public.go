// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/remylch/ola-chain/business/web/errs"
	"github.com/remylch/ola-chain/foundation/events"
	"github.com/remylch/ola-chain/foundation/ledger/chain"
	"github.com/remylch/ola-chain/foundation/ledger/mempool"
	"github.com/remylch/ola-chain/foundation/ledger/state"
	"github.com/remylch/ola-chain/foundation/nameservice"
	"github.com/remylch/ola-chain/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of public endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	NS    *nameservice.NameService
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case ev, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteJSON(ev); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// SubmitWalletTransaction adds a new signed wallet transaction to the mempool.
func (h Handlers) SubmitWalletTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var tx chain.Tx
	if err := web.Decode(r, &tx); err != nil {
		return fmt.Errorf("unable to decode payload: %w", err)
	}

	h.Log.Infow("add user tran", "traceid", v.TraceID, "tx", tx, "to", tx.ToID, "amount", tx.Amount, "fee", tx.Fee)

	if err := h.State.SubmitTransaction(tx); err != nil {
		switch {
		case errors.Is(err, mempool.ErrPoolFull):
			return errs.NewTrusted(err, http.StatusTooManyRequests)
		default:
			return errs.NewTrusted(err, http.StatusBadRequest)
		}
	}

	resp := struct {
		Status string `json:"status"`
	}{
		Status: "transaction added to mempool",
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Genesis returns the origin information of the ledger.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	gen := genesis{
		InitializedAt: h.State.RetrieveInitializedAt(),
		GenesisHash:   h.State.RetrieveGenesisBlock().BlockHash,
		Difficulty:    h.State.RetrieveDifficulty(),
		Height:        h.State.RetrieveHeight(),
	}

	return web.Respond(ctx, w, gen, http.StatusOK)
}

// Blocks returns the requested blocks and their details. Without a number
// parameter the full ledger is returned.
func (h Handlers) Blocks(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var ledger []chain.Block

	switch number := web.Param(r, "number"); number {
	case "":
		ledger = h.State.RetrieveBlocks()

	case "latest":
		ledger = []chain.Block{h.State.RetrieveLatestBlock()}

	default:
		num, err := strconv.ParseUint(number, 10, 64)
		if err != nil {
			return errs.NewTrusted(err, http.StatusBadRequest)
		}

		blk, err := h.State.RetrieveBlockByNumber(num)
		if err != nil {
			return errs.NewTrusted(err, http.StatusNotFound)
		}
		ledger = []chain.Block{blk}
	}

	blocks := make([]block, len(ledger))
	for i, blk := range ledger {
		blocks[i] = toBlock(h.NS, blk)
	}

	return web.Respond(ctx, w, blocks, http.StatusOK)
}

// Mempool returns the set of uncommitted transactions.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	pending := h.State.QueryMempool()

	trans := make([]tx, len(pending))
	for i, tran := range pending {
		trans[i] = toTx(h.NS, tran)
	}

	return web.Respond(ctx, w, trans, http.StatusOK)
}
