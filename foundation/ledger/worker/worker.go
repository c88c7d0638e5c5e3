// Package worker implements the background sealing process for the ledger
// node. A single goroutine owns every sealing pass, which serializes block
// production without any locking in the hot path.
package worker

import (
	"sync"
	"time"

	"github.com/remylch/ola-chain/foundation/ledger/state"
)

// checkInterval represents the interval for re-evaluating the sealing
// triggers when no submission has signaled one. The time based trigger
// fires at this granularity.
const checkInterval = time.Second

// Worker manages the sealing workflow for the ledger node.
type Worker struct {
	state     *state.State
	wg        sync.WaitGroup
	ticker    *time.Ticker
	shut      chan struct{}
	sealing   chan bool
	evHandler state.EventHandler
}

// Run creates a worker, registers the worker with the state package, and
// starts up all the background processes.
func Run(st *state.State, evHandler state.EventHandler) {
	w := Worker{
		state:     st,
		ticker:    time.NewTicker(checkInterval),
		shut:      make(chan struct{}),
		sealing:   make(chan bool, 1),
		evHandler: evHandler,
	}

	// Register this worker with the state package.
	st.Worker = &w

	// Load the set of operations we need to run.
	operations := []func(){
		w.sealingOperations,
	}

	// Set waitgroup to match the number of G's we need for the set
	// of operations we have.
	g := len(operations)
	w.wg.Add(g)

	// We don't want to return until we know all the G's are up and running.
	hasStarted := make(chan bool)

	// Start all the operational G's.
	for _, op := range operations {
		go func(op func()) {
			defer w.wg.Done()
			hasStarted <- true
			op()
		}(op)
	}

	// Wait for the G's to report they are running.
	for i := 0; i < g; i++ {
		<-hasStarted
	}
}

// =============================================================================
// These methods implement the state.Worker interface.

// Shutdown terminates the goroutine performing work. A sealing pass that is
// mid-mining cannot be interrupted; shutdown waits for it to finish.
func (w *Worker) Shutdown() {
	w.evHandler("worker: shutdown: started")
	defer w.evHandler("worker: shutdown: completed")

	w.evHandler("worker: shutdown: stop ticker")
	w.ticker.Stop()

	w.evHandler("worker: shutdown: terminate goroutines")
	close(w.shut)
	w.wg.Wait()
}

// SignalSealing requests a sealing pass. If there is already a signal
// pending in the channel, just return since a pass will run.
func (w *Worker) SignalSealing() {
	select {
	case w.sealing <- true:
	default:
	}
	w.evHandler("worker: SignalSealing: sealing signaled")
}

// =============================================================================

// isShutdown is used to test if a shutdown has been signaled.
func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}
