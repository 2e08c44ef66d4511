// Package config handles wallet configuration.
//
// Configuration is split into two categories:
//   - Chain identity: network id, chain id, genesis hash, RPC endpoints.
//     These must match the network the wallet talks to.
//   - Wallet settings: runtime configuration, can vary per installation.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Config holds wallet runtime configuration.
type Config struct {
	DataDir string `conf:"datadir"`

	// Chain identity of the target network.
	Network Network

	// Logging
	Log LogConfig
}

// Network identifies the chain a wallet instance talks to. A send is only
// allowed after an RPC endpoint proves it serves this identity.
type Network struct {
	// NetworkID is the human-readable network name (e.g. "catalyst-testnet").
	NetworkID string `conf:"network.id"`

	// ChainID is the numeric chain identifier bound into every signature.
	ChainID uint64 `conf:"network.chainid"`

	// GenesisHash is the hex-32 hash of the genesis block.
	GenesisHash string `conf:"network.genesis"`

	// RPCURLs is the ordered endpoint list used for failover.
	RPCURLs []string `conf:"rpc.urls"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.catalyst-wallet
//	macOS:   ~/Library/Application Support/CatalystWallet
//	Windows: %APPDATA%\CatalystWallet
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".catalyst-wallet"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "CatalystWallet")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "CatalystWallet")
		}
		return filepath.Join(home, "AppData", "Roaming", "CatalystWallet")
	default:
		return filepath.Join(home, ".catalyst-wallet")
	}
}

// StoreDir returns the key-value store directory for the configured network.
func (c *Config) StoreDir() string {
	return filepath.Join(c.DataDir, c.Network.NetworkID, "store")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "catalyst-wallet.conf")
}
