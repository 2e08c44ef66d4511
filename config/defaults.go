package config

// CatalystTestnet returns the chain identity of the public Catalyst testnet.
func CatalystTestnet() Network {
	return Network{
		NetworkID:   "catalyst-testnet",
		ChainID:     200820092,
		GenesisHash: "0xeea14b7d09c35f82d6a0713e98cf24b5e0d18a46c97b3f5206deb1842c0fee5a",
		RPCURLs: []string{
			"https://rpc-eu.catalyst-testnet.io",
			"https://rpc-us.catalyst-testnet.io",
			"https://rpc-asia.catalyst-testnet.io",
		},
	}
}

// Default returns the default wallet configuration, targeting the public
// Catalyst testnet.
func Default() *Config {
	return &Config{
		DataDir: DefaultDataDir(),
		Network: CatalystTestnet(),
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}
