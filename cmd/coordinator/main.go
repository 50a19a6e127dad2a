// Command coordinator runs the batch protocol coordinator node.
//
// The coordinator accepts signed HTTP requests from participants, folds
// opaque contributions into per-batch aggregates, and settles disclosure
// replies from the configured oracle.
//
// # Usage
//
//	go run ./cmd/coordinator --config=config.yaml
//	go run ./cmd/coordinator --owner-key=<hex pubkey> --addr=:8080
//
// Flags override config file values. An owner key is required either way;
// generate one with `clue-cli keygen`.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/geobarrowsa3/Clue-FHE/common"
	"github.com/geobarrowsa3/Clue-FHE/services"
)

func main() {
	var (
		configPath  = flag.String("config", "", "YAML config file path")
		addr        = flag.String("addr", "", "HTTP listen address")
		metricsAddr = flag.String("metrics-addr", "", "Prometheus metrics listen address")
		ownerKey    = flag.String("owner-key", "", "Hex-encoded owner public key")
		oracleMode  = flag.String("oracle", "", "Oracle mode: local or remote")
		logJSON     = flag.Bool("log-json", false, "Log in JSON format")
		logDebug    = flag.Bool("log-debug", false, "Log at debug level")
	)
	flag.Parse()

	log := newLogger(*logJSON, *logDebug)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Config error: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
	if *ownerKey != "" {
		cfg.OwnerKey = *ownerKey
	}
	if *oracleMode != "" {
		cfg.Oracle.Mode = *oracleMode
	}
	if cfg.OwnerKey == "" {
		fmt.Println("Error: --owner-key or owner_key in config is required")
		os.Exit(1)
	}

	svc, err := services.NewService(cfg, log)
	if err != nil {
		fmt.Printf("Service error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc.Start(ctx)
	log.Info("coordinator running",
		"version", common.Version,
		"listenAddr", cfg.ListenAddr,
		"owner", cfg.OwnerKey,
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("shutting down")
	svc.Shutdown()
}

func loadConfig(path string) (*services.Config, error) {
	if path == "" {
		return services.DefaultConfig(), nil
	}
	return services.LoadConfig(path)
}

func newLogger(json, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if json {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
