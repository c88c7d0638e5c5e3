package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/remylch/ola-chain/app/services/node/handlers"
	"github.com/remylch/ola-chain/foundation/events"
	"github.com/remylch/ola-chain/foundation/ledger/chain"
	"github.com/remylch/ola-chain/foundation/ledger/chain/storage/bolt"
	"github.com/remylch/ola-chain/foundation/ledger/chain/storage/disk"
	"github.com/remylch/ola-chain/foundation/ledger/chain/storage/memory"
	"github.com/remylch/ola-chain/foundation/ledger/network"
	"github.com/remylch/ola-chain/foundation/ledger/peer"
	"github.com/remylch/ola-chain/foundation/ledger/state"
	"github.com/remylch/ola-chain/foundation/ledger/worker"
	"github.com/remylch/ola-chain/foundation/logger"
	"github.com/remylch/ola-chain/foundation/nameservice"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("NODE")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	// This is all the configuration for the application and the default values.
	// Configuration values will be passed through the application as individual
	// values.
	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:10s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			DebugHost       string        `conf:"default:0.0.0.0:7080"`
			PublicHost      string        `conf:"default:0.0.0.0:8080"`
			PrivateHost     string        `conf:"default:0.0.0.0:9080"`
		}
		Node struct {
			DataPath      string        `conf:"default:."`
			StorageEngine string        `conf:"default:disk"`
			Difficulty    uint          `conf:"default:4"`
			TimeLimit     time.Duration `conf:"default:10m"`
			MinPendingTxs int           `conf:"default:1"`
			MaxPoolTxs    int           `conf:"default:1000"`
			MaxBlockTxs   int           `conf:"default:1000"`
			MaxBlockBytes int           `conf:"default:1048576"`
			SyncHost      string        `conf:"default:0.0.0.0:9100"`
			SyncAdvertise string
			KnownPeers    []string
		}
		NameService struct {
			Folder string `conf:"default:zblock/accounts/"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "copyright information here",
		},
	}

	// Parse will set the defaults and then look for any overriding values
	// in environment variables and command line flags.
	const prefix = "NODE"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	fmt.Println(`   ___  _        _       ____ _   _    _    ___ _   _  `)
	fmt.Println(`  / _ \| |      / \     / ___| | | |  / \  |_ _| \ | | `)
	fmt.Println(` | | | | |     / _ \   | |   | |_| | / _ \  | ||  \| | `)
	fmt.Println(` | |_| | |___ / ___ \  | |___|  _  |/ ___ \ | || |\  | `)
	fmt.Println(`  \___/|_____/_/   \_\  \____|_| |_/_/   \_\___|_| \_| `)
	fmt.Print("\n")

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	// Display the current configuration to the logs.
	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Name Service Support

	// The nameservice package provides name resolution for account addresses.
	// The names come from the file names in the accounts folder.
	ns, err := nameservice.New(cfg.NameService.Folder)
	if err != nil {
		return fmt.Errorf("unable to load account name service: %w", err)
	}

	// Logging the accounts for documentation in the logs.
	for accountID, name := range ns.Copy() {
		log.Infow("startup", "status", "nameservice", "name", name, "account", accountID)
	}

	// =========================================================================
	// Ledger Support

	// The storage engine owns the persisted form of the ledger. The disk
	// engine keeps one pretty printed JSON document, the bolt engine keeps
	// the ledger in a key value store.
	var strg chain.Storage
	switch cfg.Node.StorageEngine {
	case "disk":
		strg, err = disk.New(cfg.Node.DataPath)
	case "bolt":
		strg, err = bolt.New(cfg.Node.DataPath)
	case "memory":
		strg, err = memory.New()
	default:
		return fmt.Errorf("unknown storage engine %q", cfg.Node.StorageEngine)
	}
	if err != nil {
		return fmt.Errorf("unable to construct storage engine: %w", err)
	}

	// A peer set is a collection of known nodes in the network so ledger
	// positions can be compared.
	peerSet := peer.NewSet()
	for _, host := range cfg.Node.KnownPeers {
		peerSet.Add(peer.New(host))
	}

	// The ledger packages accept a function of this signature to allow the
	// application to log. These raw messages are also sent to any websocket
	// client that is connected into the system through the events package.
	evts := events.New()
	ev := func(v string, args ...any) {
		s := fmt.Sprintf(v, args...)
		log.Infow(s, "traceid", "00000000-0000-0000-0000-000000000000")
		evts.Send(s)
	}

	// The state value represents the ledger node. It owns the mempool and
	// the chain and provides an API for application support.
	st, err := state.New(state.Config{
		Host:          cfg.Web.PrivateHost,
		Storage:       strg,
		Difficulty:    cfg.Node.Difficulty,
		TimeLimit:     cfg.Node.TimeLimit,
		MinPendingTxs: cfg.Node.MinPendingTxs,
		MaxPoolTxs:    cfg.Node.MaxPoolTxs,
		MaxBlockTxs:   cfg.Node.MaxBlockTxs,
		MaxBlockBytes: cfg.Node.MaxBlockBytes,
		KnownPeers:    peerSet,
		EvHandler:     ev,
	})
	if err != nil {
		return err
	}
	defer st.Shutdown()

	// The worker package implements the sealing workflow. The worker will
	// register itself with the state.
	worker.Run(st, ev)

	// =========================================================================
	// Start Sync Service

	// The network package maintains the TCP listener other nodes use to
	// exchange ledger positions with this node.
	nw, err := network.Start(network.Config{
		Host:      cfg.Node.SyncHost,
		Advertise: cfg.Node.SyncAdvertise,
		State:     st,
		EvHandler: ev,
	})
	if err != nil {
		return fmt.Errorf("unable to start sync listener: %w", err)
	}
	defer nw.Shutdown()

	// Run one synchronization pass against the configured peers. This is
	// best effort; peers that are down are tried again the next time any
	// node initiates an exchange.
	go nw.Sync()

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug v1 router started", "host", cfg.Web.DebugHost)

	// The Debug function returns a mux to listen and serve on for all the debug
	// related endpoints. This includes the standard library endpoints.

	// Construct the mux for the debug calls.
	debugMux := handlers.DebugMux(build, log)

	// Start the service listening for debug requests.
	// Not concerned with shutting this down with load shedding.
	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug v1 router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Service Start/Stop Support

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Make a channel to listen for errors coming from the listener. Use a
	// buffered channel so the goroutine can exit if we don't collect this error.
	serverErrors := make(chan error, 1)

	// =========================================================================
	// Start Public Service

	log.Infow("startup", "status", "initializing V1 public API support")

	// Construct the mux for the public API calls.
	publicMux := handlers.PublicMux(handlers.MuxConfig{
		Shutdown: shutdown,
		Log:      log,
		State:    st,
		NS:       ns,
		Evts:     evts,
	})

	// Construct a server to service the requests against the mux.
	public := http.Server{
		Addr:         cfg.Web.PublicHost,
		Handler:      publicMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	// Start the service listening for api requests.
	go func() {
		log.Infow("startup", "status", "public api router started", "host", public.Addr)
		serverErrors <- public.ListenAndServe()
	}()

	// =========================================================================
	// Start Private Service

	log.Infow("startup", "status", "initializing V1 private API support")

	// Construct the mux for the private API calls.
	privateMux := handlers.PrivateMux(handlers.MuxConfig{
		Shutdown: shutdown,
		Log:      log,
		State:    st,
		NS:       ns,
	})

	// Construct a server to service the requests against the mux.
	private := http.Server{
		Addr:         cfg.Web.PrivateHost,
		Handler:      privateMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	// Start the service listening for api requests.
	go func() {
		log.Infow("startup", "status", "private api router started", "host", private.Addr)
		serverErrors <- private.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	// Blocking main and waiting for shutdown.
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		// Release any web sockets that are currently active.
		log.Infow("shutdown", "status", "shutdown web socket channels")
		evts.Shutdown()

		// Give outstanding requests a deadline for completion.
		ctx, cancelPrv := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancelPrv()

		// Asking listener to shut down and shed load.
		log.Infow("shutdown", "status", "shutdown private API started")
		if err := private.Shutdown(ctx); err != nil {
			private.Close()
			return fmt.Errorf("could not stop private service gracefully: %w", err)
		}

		// Give outstanding requests a deadline for completion.
		ctx, cancelPub := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancelPub()

		// Asking listener to shut down and shed load.
		log.Infow("shutdown", "status", "shutdown public API started")
		if err := public.Shutdown(ctx); err != nil {
			public.Close()
			return fmt.Errorf("could not stop public service gracefully: %w", err)
		}
	}

	return nil
}
