package services

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/geobarrowsa3/Clue-FHE/protocol"
)

// Config is the YAML service configuration for the coordinator gateway.
type Config struct {
	// ListenAddr is the API listen address.
	ListenAddr string `yaml:"listen_addr"`

	// MetricsAddr is the metrics listener address. Empty disables metrics.
	MetricsAddr string `yaml:"metrics_addr"`

	// OwnerKey is the hex-encoded public key of the protocol owner.
	OwnerKey string `yaml:"owner_key"`

	// MaxBatchSize bounds submissions per batch.
	MaxBatchSize int `yaml:"max_batch_size"`

	// CooldownSeconds is the per-identity per-category rate-limit window.
	CooldownSeconds int `yaml:"cooldown_seconds"`

	// DomainTag is the protocol identity mixed into commitments.
	DomainTag string `yaml:"domain_tag"`

	// Oracle selects and configures the disclosure oracle backend.
	Oracle OracleConfig `yaml:"oracle"`

	// Postgres enables the persistent audit store when a DSN is set.
	Postgres PostgresConfig `yaml:"postgres"`

	// CORSOrigins lists allowed browser origins.
	CORSOrigins []string `yaml:"cors_origins"`

	// EnablePprof mounts the pprof debugging API.
	EnablePprof bool `yaml:"enable_pprof"`
}

// OracleConfig selects the disclosure oracle backend.
type OracleConfig struct {
	// Mode is "local" (in-process plaintext double) or "remote" (HTTP
	// gateway client).
	Mode string `yaml:"mode"`

	// GatewayURL is the remote gateway base URL (remote mode).
	GatewayURL string `yaml:"gateway_url"`

	// VerifyKeyHex is the shared proof verification key (remote mode).
	VerifyKeyHex string `yaml:"verify_key"`

	// DeliveryDelayMS is the local oracle's reply delay in milliseconds.
	DeliveryDelayMS int `yaml:"delivery_delay_ms"`

	// PollIntervalMS is the remote reply poll interval in milliseconds.
	PollIntervalMS int `yaml:"poll_interval_ms"`
}

// PostgresConfig contains audit store connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

// ConnectionString returns the PostgreSQL connection string.
func (c *PostgresConfig) ConnectionString() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, sslMode)
}

// Enabled reports whether a Postgres audit store is configured.
func (c *PostgresConfig) Enabled() bool {
	return c.Host != "" && c.Database != ""
}

// DefaultConfig returns a config with every default applied. The owner key
// must still be set before use.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadConfig parses a YAML configuration file and applies defaults.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	defaults := protocol.DefaultGameConfig()
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
	if c.MaxBatchSize == 0 {
		c.MaxBatchSize = defaults.MaxBatchSize
	}
	if c.CooldownSeconds == 0 {
		c.CooldownSeconds = int(defaults.Cooldown / time.Second)
	}
	if c.DomainTag == "" {
		c.DomainTag = defaults.DomainTag
	}
	if c.Oracle.Mode == "" {
		c.Oracle.Mode = "local"
	}
	if c.Oracle.DeliveryDelayMS == 0 {
		c.Oracle.DeliveryDelayMS = 100
	}
	if c.Oracle.PollIntervalMS == 0 {
		c.Oracle.PollIntervalMS = 500
	}
}

// GameConfig converts the service config into protocol parameters.
func (c *Config) GameConfig() protocol.GameConfig {
	return protocol.GameConfig{
		MaxBatchSize: c.MaxBatchSize,
		Cooldown:     time.Duration(c.CooldownSeconds) * time.Second,
		DomainTag:    c.DomainTag,
	}
}
