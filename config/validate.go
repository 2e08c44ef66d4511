package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/catalyst-tech/catalyst-wallet/pkg/codec"
)

// Validate checks wallet config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.DataDir == "" {
		return fmt.Errorf("datadir must not be empty")
	}
	if cfg.Network.NetworkID == "" {
		return fmt.Errorf("network.id must not be empty")
	}
	if cfg.Network.ChainID == 0 {
		return fmt.Errorf("network.chainid must be nonzero")
	}
	if _, err := codec.ParseHex32(cfg.Network.GenesisHash); err != nil {
		return fmt.Errorf("network.genesis must be a 0x-prefixed 32-byte hex hash: %w", err)
	}
	if len(cfg.Network.RPCURLs) == 0 {
		return fmt.Errorf("rpc.urls must list at least one endpoint")
	}
	seen := make(map[string]struct{}, len(cfg.Network.RPCURLs))
	for i, raw := range cfg.Network.RPCURLs {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("rpc.urls[%d] %q is not a valid http(s) URL", i, raw)
		}
		key := strings.ToLower(raw)
		if _, ok := seen[key]; ok {
			return fmt.Errorf("rpc.urls has duplicate endpoint %q", raw)
		}
		seen[key] = struct{}{}
	}
	return nil
}
