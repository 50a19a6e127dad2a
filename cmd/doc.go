// Package cmd provides the CLI commands for the Clue-FHE coordinator.
//
// # Commands
//
// coordinator: Runs the batch protocol coordinator node with the signed
// HTTP gateway, the configured disclosure oracle, and optional Postgres
// audit persistence.
//
//	go run ./cmd/coordinator --config=config.yaml
//	go run ./cmd/coordinator --owner-key=<hex pubkey> --addr=:8080
//
// clue-cli: Interacts with a deployed coordinator.
//
//	go run ./cmd/clue-cli keygen
//	go run ./cmd/clue-cli submit -c http://localhost:8080 -k <key> -b 1 -weapon 3 -room 7 -suspect 2
//	go run ./cmd/clue-cli request -c http://localhost:8080 -r 1
//
// # Configuration
//
// The coordinator supports YAML configuration via --config; flags override
// config file values.
//
//	listen_addr: ":8080"
//	metrics_addr: ":9090"
//	owner_key: "<hex ed25519 public key>"
//	max_batch_size: 16
//	cooldown_seconds: 30
//	oracle:
//	  mode: "local"
//	  delivery_delay_ms: 100
//	postgres:
//	  host: "localhost"
//	  port: 5432
//	  database: "clue"
package cmd
