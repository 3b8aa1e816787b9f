// Package config handles shardwallet configuration.
//
// Settings come from three layers, later ones winning: built-in defaults
// for the selected network, the shardwallet.conf file in the data directory,
// and global command-line flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/Klingon-tech/shardwallet/internal/mnemonic"
	"github.com/Klingon-tech/shardwallet/pkg/crypto"
)

// NetworkType identifies mainnet or testnet.
type NetworkType string

const (
	Mainnet NetworkType = "mainnet"
	Testnet NetworkType = "testnet"
)

// Config holds the wallet tool configuration.
type Config struct {
	// Core
	Network NetworkType `conf:"network"`
	DataDir string      `conf:"datadir"`

	// Defaults for newly created wallets
	Wallet WalletConfig

	// Logging
	Log LogConfig
}

// WalletConfig holds defaults for wallet creation. Command flags override
// them per invocation.
type WalletConfig struct {
	Iterations uint32 `conf:"wallet.iterations"` // PBKDF2 rounds
	KeyType    string `conf:"wallet.keytype"`    // ed25519 or secp256k1
	SeedType   string `conf:"wallet.seedtype"`   // bip39 or mobile
	Shards     int    `conf:"wallet.shards"`     // Key shares for sharded wallets
	Threshold  int    `conf:"wallet.threshold"`  // Shares required to recover
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.shardwallet
//	macOS:   ~/Library/Application Support/Shardwallet
//	Windows: %APPDATA%\Shardwallet
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".shardwallet"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Shardwallet")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "Shardwallet")
		}
		return filepath.Join(home, "AppData", "Roaming", "Shardwallet")
	default:
		return filepath.Join(home, ".shardwallet")
	}
}

// NetworkDataDir returns the network-specific data directory.
func (c *Config) NetworkDataDir() string {
	return filepath.Join(c.DataDir, string(c.Network))
}

// KeystoreDir returns the directory holding wallet files.
func (c *Config) KeystoreDir() string {
	return filepath.Join(c.NetworkDataDir(), "keystore")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "shardwallet.conf")
}

// KeyTag returns the key tag for new wallets: the configured network and
// key type.
func (c *Config) KeyTag() (crypto.KeyTag, error) {
	network, err := crypto.ParseNetwork(string(c.Network))
	if err != nil {
		return crypto.KeyTag{}, err
	}
	kt, err := crypto.ParseKeyType(c.Wallet.KeyType)
	if err != nil {
		return crypto.KeyTag{}, err
	}
	return crypto.KeyTag{Network: network, KeyType: kt}, nil
}

// SeedType returns the configured seed phrase type.
func (c *Config) SeedType() (mnemonic.SeedType, error) {
	return mnemonic.ParseSeedType(c.Wallet.SeedType)
}

// EnsureDataDirs creates the data directory structure and a default config
// file if they don't already exist. It is idempotent.
func EnsureDataDirs(cfg *Config) error {
	dirs := []string{
		cfg.DataDir,
		cfg.NetworkDataDir(),
		cfg.KeystoreDir(),
		cfg.LogsDir(),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	// Create default config if it doesn't exist.
	configPath := cfg.ConfigFile()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := WriteDefaultConfig(configPath, cfg.Network); err != nil {
			return fmt.Errorf("writing config file: %w", err)
		}
	}

	return nil
}
