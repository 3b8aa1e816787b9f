package config

import (
	"fmt"

	"github.com/Klingon-tech/shardwallet/internal/log"
	"github.com/Klingon-tech/shardwallet/internal/mnemonic"
	"github.com/Klingon-tech/shardwallet/pkg/crypto"
)

// maxShards is the largest share count the sharded file format can record.
const maxShards = 255

// Validate checks the config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.Network != Mainnet && cfg.Network != Testnet {
		return fmt.Errorf("network must be %q or %q", Mainnet, Testnet)
	}
	if cfg.Wallet.Iterations == 0 {
		return fmt.Errorf("wallet.iterations must be at least 1")
	}
	if _, err := crypto.ParseKeyType(cfg.Wallet.KeyType); err != nil {
		return fmt.Errorf("wallet.keytype: %w", err)
	}
	if _, err := mnemonic.ParseSeedType(cfg.Wallet.SeedType); err != nil {
		return fmt.Errorf("wallet.seedtype: %w", err)
	}
	if err := ValidateShards(cfg.Wallet.Shards, cfg.Wallet.Threshold); err != nil {
		return err
	}
	if !log.ValidLevel(cfg.Log.Level) {
		return fmt.Errorf("log.level %q is not a valid level", cfg.Log.Level)
	}
	return nil
}

// ValidateShards checks a share count and recovery threshold.
func ValidateShards(shards, threshold int) error {
	if shards < 1 || shards > maxShards {
		return fmt.Errorf("wallet.shards must be in range [1, %d]", maxShards)
	}
	if threshold < 1 || threshold > shards {
		return fmt.Errorf("wallet.threshold must be in range [1, wallet.shards]")
	}
	return nil
}
