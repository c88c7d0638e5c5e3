// Package private maintains the group of handlers for node to node and
// operator access.
package private

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/remylch/ola-chain/business/web/errs"
	"github.com/remylch/ola-chain/foundation/ledger/hash"
	"github.com/remylch/ola-chain/foundation/ledger/peer"
	"github.com/remylch/ola-chain/foundation/ledger/state"
	"github.com/remylch/ola-chain/foundation/nameservice"
	"github.com/remylch/ola-chain/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of private endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	NS    *nameservice.NameService
}

// SubmitPeer registers a peer with this node so it is included in future
// synchronization exchanges.
func (h Handlers) SubmitPeer(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var submit struct {
		Host string `json:"host" validate:"required,hostname_port"`
	}
	if err := web.Decode(r, &submit); err != nil {
		return fmt.Errorf("unable to decode payload: %w", err)
	}

	if h.State.AddKnownPeer(peer.New(submit.Host)) {
		h.Log.Infow("add peer", "traceid", v.TraceID, "host", submit.Host)
	}

	resp := struct {
		Status string `json:"status"`
	}{
		Status: "peer registered",
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Status returns the current status of the node.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	status := h.State.RetrieveStatus()
	return web.Respond(ctx, w, status, http.StatusOK)
}

// BlocksByNumber returns the blocks based on the specified from/to values.
// The value "latest" stands in for the block number at the tip.
func (h Handlers) BlocksByNumber(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	fromStr := web.Param(r, "from")
	if fromStr == "latest" || fromStr == "" {
		fromStr = fmt.Sprintf("%d", state.QueryLatest)
	}

	toStr := web.Param(r, "to")
	if toStr == "latest" || toStr == "" {
		toStr = fmt.Sprintf("%d", state.QueryLatest)
	}

	from, err := strconv.ParseUint(fromStr, 10, 64)
	if err != nil {
		return errs.NewTrustedf(http.StatusBadRequest, "from block %q is not a number", fromStr)
	}
	to, err := strconv.ParseUint(toStr, 10, 64)
	if err != nil {
		return errs.NewTrustedf(http.StatusBadRequest, "to block %q is not a number", toStr)
	}

	blocks := h.State.QueryBlocksByNumber(from, to)
	if len(blocks) == 0 {
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}

	return web.Respond(ctx, w, blocks, http.StatusOK)
}

// Mempool returns the set of uncommitted transactions.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	txs := h.State.QueryMempool()
	return web.Respond(ctx, w, txs, http.StatusOK)
}

// CancelTransaction removes a pending transaction from the mempool before
// it is packed into a block. Removing an unknown id is not an error.
func (h Handlers) CancelTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	id, err := hash.ToHash(web.Param(r, "id"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	h.Log.Infow("cancel tran", "traceid", v.TraceID, "id", id)
	h.State.RemoveTransaction(id)

	resp := struct {
		Status string `json:"status"`
	}{
		Status: "transaction removed from mempool",
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}
