package config

import "github.com/Klingon-tech/shardwallet/internal/wallet"

// Defaults for new wallets.
const (
	DefaultKeyType   = "ed25519"
	DefaultSeedType  = "bip39"
	DefaultShards    = 5
	DefaultThreshold = 3
)

// DefaultMainnet returns the default configuration for mainnet.
func DefaultMainnet() *Config {
	return &Config{
		Network: Mainnet,
		DataDir: DefaultDataDir(),
		Wallet: WalletConfig{
			Iterations: wallet.DefaultIterations,
			KeyType:    DefaultKeyType,
			SeedType:   DefaultSeedType,
			Shards:     DefaultShards,
			Threshold:  DefaultThreshold,
		},
		Log: LogConfig{
			Level: "warn",
			JSON:  false,
		},
	}
}

// DefaultTestnet returns the default configuration for testnet.
func DefaultTestnet() *Config {
	cfg := DefaultMainnet()
	cfg.Network = Testnet
	return cfg
}

// Default returns the default configuration for the given network.
func Default(network NetworkType) *Config {
	switch network {
	case Testnet:
		return DefaultTestnet()
	default:
		return DefaultMainnet()
	}
}
