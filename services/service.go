package services

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/geobarrowsa3/Clue-FHE/fhe"
	"github.com/geobarrowsa3/Clue-FHE/game"
	"github.com/geobarrowsa3/Clue-FHE/httpserver"
	"github.com/geobarrowsa3/Clue-FHE/metrics"
	"github.com/geobarrowsa3/Clue-FHE/protocol"
)

// Service assembles the full coordinator node: scheme and oracle per the
// configured mode, the game coordinator, the audit store, and the HTTP
// gateway. Start runs everything until the context is cancelled.
type Service struct {
	cfg    *Config
	log    *slog.Logger
	coord  *game.Coordinator
	scheme protocol.Scheme
	oracle protocol.Oracle
	audit  AuditStore
	server *httpserver.Server
	cancel context.CancelFunc
}

// NewService wires a Service from config. The returned service is not yet
// running; call Start.
func NewService(cfg *Config, log *slog.Logger) (*Service, error) {
	if log == nil {
		log = slog.Default()
	}
	if cfg.OwnerKey == "" {
		return nil, fmt.Errorf("owner key is required")
	}

	scheme, oracle, err := buildOracle(cfg)
	if err != nil {
		return nil, err
	}

	coord, err := game.New(cfg.GameConfig(), cfg.OwnerKey, scheme, oracle, log)
	if err != nil {
		return nil, err
	}

	var audit AuditStore
	if cfg.Postgres.Enabled() {
		audit, err = NewPostgresAuditStore(&cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("audit store: %w", err)
		}
	} else {
		audit = NewInMemoryAuditStore()
	}

	var enc Encryptor
	if localScheme, ok := scheme.(*fhe.LocalScheme); ok && cfg.Oracle.Mode == "local" {
		enc = localScheme
	}
	handler := NewHandler(coord, audit, enc, log)
	server, err := httpserver.New(&httpserver.Config{
		ListenAddr:  cfg.ListenAddr,
		MetricsAddr: cfg.MetricsAddr,
		CORSOrigins: cfg.CORSOrigins,
		EnablePprof: cfg.EnablePprof,
		Log:         log,
	}, handler)
	if err != nil {
		return nil, fmt.Errorf("http server: %w", err)
	}

	return &Service{
		cfg:    cfg,
		log:    log.With("service", "coordinator"),
		coord:  coord,
		scheme: scheme,
		oracle: oracle,
		audit:  audit,
		server: server,
	}, nil
}

func buildOracle(cfg *Config) (protocol.Scheme, protocol.Oracle, error) {
	switch cfg.Oracle.Mode {
	case "local":
		scheme := fhe.NewLocalScheme()
		oracle, err := fhe.NewLocalOracle(scheme)
		if err != nil {
			return nil, nil, fmt.Errorf("local oracle: %w", err)
		}
		oracle.SetDelay(time.Duration(cfg.Oracle.DeliveryDelayMS) * time.Millisecond)
		return scheme, oracle, nil
	case "remote":
		if cfg.Oracle.GatewayURL == "" {
			return nil, nil, fmt.Errorf("oracle mode remote requires gateway_url")
		}
		verifyKey, err := hex.DecodeString(cfg.Oracle.VerifyKeyHex)
		if err != nil {
			return nil, nil, fmt.Errorf("decoding verify_key: %w", err)
		}
		// The remote gateway combines ciphertexts itself; the local scheme
		// tracks handles for the coordinator's symbolic computation.
		scheme := fhe.NewLocalScheme()
		oracle := fhe.NewRemoteOracle(cfg.Oracle.GatewayURL, verifyKey)
		return scheme, oracle, nil
	}
	return nil, nil, fmt.Errorf("unknown oracle mode %q", cfg.Oracle.Mode)
}

// Coordinator exposes the wired game coordinator, mainly for tests.
func (s *Service) Coordinator() *game.Coordinator {
	return s.coord
}

// Start launches the oracle delivery loop, the reply pump, and the HTTP
// listeners. It returns immediately; Shutdown stops everything.
func (s *Service) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	// Start spawns the delivery loop itself on both oracle kinds.
	switch oracle := s.oracle.(type) {
	case *fhe.LocalOracle:
		oracle.Start(ctx)
	case *fhe.RemoteOracle:
		oracle.Start(ctx, time.Duration(s.cfg.Oracle.PollIntervalMS)*time.Millisecond)
	}

	go s.runReplyPump(ctx)
	s.server.RunInBackground()
	s.log.Info("service started", "listenAddr", s.cfg.ListenAddr, "oracleMode", s.cfg.Oracle.Mode)
}

// runReplyPump settles oracle replies as they arrive and records each
// settlement in the audit store. Rejected replies are logged and dropped;
// their requests stay pending or permanently stale.
func (s *Service) runReplyPump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case reply, ok := <-s.oracle.Replies():
			if !ok {
				return
			}
			result, err := s.coord.Settle(reply)
			if err != nil {
				metrics.IncSettlementFailure(failureReason(err))
				s.log.Warn("settlement rejected", "requestID", uint64(reply.RequestID), "err", err)
				continue
			}
			metrics.IncSettlement(result.Kind.String())
			if err := s.audit.RecordSettlement(result); err != nil {
				s.log.Warn("audit write failed", "requestID", uint64(reply.RequestID), "err", err)
			}
		}
	}
}

// Shutdown stops the listeners and background loops and closes the audit
// store.
func (s *Service) Shutdown() {
	if s.cancel != nil {
		s.cancel()
	}
	s.server.Shutdown()
	if err := s.audit.Close(); err != nil {
		s.log.Warn("closing audit store", "err", err)
	}
	s.log.Info("service stopped")
}
