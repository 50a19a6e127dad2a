package protocol

import (
	"errors"
	"time"
)

// GameConfig holds the protocol parameters shared by all components.
type GameConfig struct {
	// MaxBatchSize bounds the number of submissions per batch.
	MaxBatchSize int `json:"max_batch_size" yaml:"max_batch_size"`

	// Cooldown is the minimum interval between two actions of the same
	// category (submission or request) by the same identity. A single
	// duration is shared across both categories; the ledger entries are
	// tracked independently.
	Cooldown time.Duration `json:"cooldown" yaml:"cooldown"`

	// DomainTag is the protocol identity mixed into every commitment digest.
	// Deployments with different tags never produce colliding commitments.
	DomainTag string `json:"domain_tag" yaml:"domain_tag"`
}

// DefaultGameConfig returns the parameters used by the demo deployment.
func DefaultGameConfig() GameConfig {
	return GameConfig{
		MaxBatchSize: 16,
		Cooldown:     30 * time.Second,
		DomainTag:    "clue-fhe/v1",
	}
}

// Validate checks the configuration for usable values.
func (c GameConfig) Validate() error {
	if c.MaxBatchSize <= 0 {
		return errors.New("max batch size must be positive")
	}
	if c.Cooldown < 0 {
		return errors.New("cooldown must not be negative")
	}
	if c.DomainTag == "" {
		return errors.New("domain tag must not be empty")
	}
	return nil
}
