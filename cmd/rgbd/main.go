// rgbd is the daemon that serves contract persistence and consignment
// gossip around the validation core: it opens the Postgres store, joins
// the gossip network, and persists what it receives. Gossiped schemas are
// checked with SelfValidate first; genesis, transition and anchor messages
// are stored without validation.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	pubsub "github.com/libp2p/go-libp2p-pubsub"

	"github.com/ledgerseal/rgbcore/internal/gossip"
	"github.com/ledgerseal/rgbcore/internal/store"
	"github.com/ledgerseal/rgbcore/pkg/anchor"
	"github.com/ledgerseal/rgbcore/pkg/ids"
	"github.com/ledgerseal/rgbcore/pkg/operation"
	"github.com/ledgerseal/rgbcore/pkg/schema"
	"github.com/ledgerseal/rgbcore/pkg/strictcodec"
)

const (
	version = "0.1.0"
	banner  = `
  _ __ __ _| |__   ___ ___  _ __ ___
 | '__/ _' | '_ \ / __/ _ \| '__/ _ \
 | | | (_| | |_) | (_| (_) | | |  __/
 |_|  \__, |_.__/ \___\___/|_|  \___|
      |___/
  rgbcore daemon v%s
`
)

// Config holds rgbd's configuration.
type Config struct {
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string

	ListenAddr     string
	BootstrapPeers string

	DataDir string
}

func main() {
	cfg := parseFlags()
	fmt.Printf(banner, version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nShutting down...")
		cancel()
	}()

	if err := run(ctx, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() *Config {
	cfg := &Config{}

	flag.StringVar(&cfg.DBHost, "db-host", "localhost", "PostgreSQL host")
	flag.IntVar(&cfg.DBPort, "db-port", 5432, "PostgreSQL port")
	flag.StringVar(&cfg.DBUser, "db-user", "rgbcore", "PostgreSQL user")
	flag.StringVar(&cfg.DBPassword, "db-password", "", "PostgreSQL password")
	flag.StringVar(&cfg.DBName, "db-name", "rgbcore", "PostgreSQL database name")

	flag.StringVar(&cfg.ListenAddr, "listen", "/ip4/0.0.0.0/tcp/4001", "gossip listen address")
	flag.StringVar(&cfg.BootstrapPeers, "bootstrap", "", "comma-separated bootstrap peer multiaddrs")

	flag.StringVar(&cfg.DataDir, "data-dir", "./data", "data directory")

	flag.Parse()
	return cfg
}

func run(ctx context.Context, cfg *Config) error {
	fmt.Println("Initializing rgbcore node...")

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	fmt.Println("Connecting to database...")
	dbCfg := &store.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Database: cfg.DBName,
		SSLMode:  "disable",
		MaxConns: 20,
	}
	st, err := store.New(ctx, dbCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer st.Close()
	fmt.Println("Database connected.")

	fmt.Println("Starting gossip node...")
	var bootstrap []string
	if cfg.BootstrapPeers != "" {
		bootstrap = splitAndTrim(cfg.BootstrapPeers)
	}
	node, err := gossip.NewNode(ctx, &gossip.Config{
		ListenAddrs:    []string{cfg.ListenAddr},
		BootstrapPeers: bootstrap,
		MaxPeers:       50,
	})
	if err != nil {
		return fmt.Errorf("failed to start gossip node: %w", err)
	}
	defer node.Close()

	node.SetSchemaHandler(func(ctx context.Context, msg *pubsub.Message) error {
		return handleSchema(ctx, st, msg.Data)
	})
	node.SetGenesisHandler(func(ctx context.Context, msg *pubsub.Message) error {
		return handleGenesis(ctx, st, msg.Data)
	})
	node.SetTransitionHandler(func(ctx context.Context, msg *pubsub.Message) error {
		return handleTransition(ctx, st, msg.Data)
	})
	node.SetAnchorHandler(func(ctx context.Context, msg *pubsub.Message) error {
		return handleAnchor(ctx, st, msg.Data)
	})
	node.Start()

	fmt.Printf("Gossip node started. Peer ID: %s\n", node.ID())

	// TODO: Initialize remaining components
	// - Bitcoin RPC witness resolver (resolver.ResolveWitness implementation)
	// - RPC/gRPC server for client consignment submission
	// - Consignment export/import over the gossip topics

	fmt.Println("rgbcore node started successfully!")
	fmt.Println("Press Ctrl+C to stop.")

	<-ctx.Done()

	fmt.Println("Node stopped.")
	return nil
}

func splitAndTrim(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}

// handleSchema decodes and persists a gossiped schema. Validation of a
// schema is limited to SelfValidate — a schema has no contract state of
// its own to re-derive.
func handleSchema(ctx context.Context, st *store.Store, data []byte) error {
	var sch schema.Schema
	err := strictcodec.DecodeExact(data, func(r *strictcodec.Reader) error {
		var err error
		sch, err = schema.DecodeSchema(r)
		return err
	})
	if err != nil {
		return fmt.Errorf("rgbd: decode gossiped schema: %w", err)
	}
	if err := sch.SelfValidate(); err != nil {
		return fmt.Errorf("rgbd: reject invalid schema: %w", err)
	}
	_, err = st.SaveSchema(ctx, sch)
	return err
}

// handleGenesis persists a gossiped genesis operation. Full validation
// only happens once the consignment (genesis plus transitions plus
// anchors) is assembled and handed to pkg/validator.Validate; a lone
// genesis is stored on trust of its own commitment id.
func handleGenesis(ctx context.Context, st *store.Store, data []byte) error {
	var g operation.Genesis
	err := strictcodec.DecodeExact(data, func(r *strictcodec.Reader) error {
		var err error
		g, err = operation.DecodeGenesis(r)
		return err
	})
	if err != nil {
		return fmt.Errorf("rgbd: decode gossiped genesis: %w", err)
	}
	_, err = st.SaveGenesis(ctx, g)
	return err
}

func handleTransition(ctx context.Context, st *store.Store, data []byte) error {
	var t operation.Transition
	err := strictcodec.DecodeExact(data, func(r *strictcodec.Reader) error {
		var err error
		t, err = operation.DecodeTransition(r)
		return err
	})
	if err != nil {
		return fmt.Errorf("rgbd: decode gossiped transition: %w", err)
	}
	_, err = st.SaveTransition(ctx, t)
	return err
}

// handleAnchor decodes a gossiped anchor message. Anchor payloads are
// prefixed with the 32-byte OpId they bind to, since anchor.Anchor carries
// no identity of its own (pkg/anchor keys it externally).
func handleAnchor(ctx context.Context, st *store.Store, data []byte) error {
	if len(data) < 32 {
		return fmt.Errorf("rgbd: anchor payload too short")
	}
	opid := ids.OpId(ids.Bytes32FromSlice(data[:32]))
	var a anchor.Anchor
	err := strictcodec.DecodeExact(data[32:], func(r *strictcodec.Reader) error {
		var err error
		a, err = anchor.DecodeAnchor(r)
		return err
	})
	if err != nil {
		return fmt.Errorf("rgbd: decode gossiped anchor: %w", err)
	}
	return st.SaveAnchor(ctx, opid, a)
}
