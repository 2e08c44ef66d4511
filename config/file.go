package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// LoadFile loads wallet configuration from a .conf file.
// Format: key = value (one per line, # for comments)
func LoadFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse key = value
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: invalid format (expected key = value)", lineNum)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		values[key] = value
	}

	return values, scanner.Err()
}

// ApplyFileConfig applies file configuration to a Config struct.
func ApplyFileConfig(cfg *Config, values map[string]string) error {
	for key, value := range values {
		if err := setConfigValue(cfg, key, value); err != nil {
			return fmt.Errorf("config key %q: %w", key, err)
		}
	}
	return nil
}

// setConfigValue sets a wallet config value by key.
// Chain identity keys are allowed so operators can target private networks;
// a mismatch against the live endpoint is still caught before any send.
func setConfigValue(cfg *Config, key, value string) error {
	switch key {
	// Core
	case "datadir":
		cfg.DataDir = value

	// Chain identity
	case "network.id":
		cfg.Network.NetworkID = value
	case "network.chainid":
		id, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		cfg.Network.ChainID = id
	case "network.genesis":
		cfg.Network.GenesisHash = strings.ToLower(value)
	case "rpc.urls":
		cfg.Network.RPCURLs = parseStringList(value)

	// Logging
	case "log.level":
		cfg.Log.Level = value
	case "log.file":
		cfg.Log.File = value
	case "log.json":
		cfg.Log.JSON = parseBool(value)

	default:
		// Unknown keys are ignored
	}
	return nil
}

// parseBool parses a boolean value.
func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// parseStringList parses a comma-separated list.
func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// WriteDefaultConfig writes a default wallet configuration file.
func WriteDefaultConfig(path string) error {
	net := CatalystTestnet()
	content := `# Catalyst Wallet Configuration
#
# Chain identity below must match the network the RPC endpoints serve.
# The wallet refuses to send if an endpoint reports a different identity.

# Data directory (default: ~/.catalyst-wallet)
# datadir = ~/.catalyst-wallet

# ============================================================================
# Network
# ============================================================================

network.id = ` + net.NetworkID + `
network.chainid = ` + strconv.FormatUint(net.ChainID, 10) + `
network.genesis = ` + net.GenesisHash + `

# RPC endpoints, tried in order (comma-separated)
rpc.urls = ` + strings.Join(net.RPCURLs, ",") + `

# ============================================================================
# Logging
# ============================================================================

log.level = info
# log.file =
log.json = false
`
	return os.WriteFile(path, []byte(content), 0644)
}
