package rpcclient

import (
	"context"
	"fmt"
	"math/big"
	"strings"
)

// ChainMismatchError reports that an endpoint serves a different chain
// than the wallet is configured for.
type ChainMismatchError struct {
	Field    string
	Expected string
	Actual   string
}

func (e *ChainMismatchError) Error() string {
	return fmt.Sprintf("chain identity mismatch: %s is %q, expected %q", e.Field, e.Actual, e.Expected)
}

// Identity is the chain identity the wallet expects its endpoints to serve.
type Identity struct {
	ChainID     uint64
	NetworkID   string
	GenesisHash string
}

// VerifyChainIdentity checks that the connected node serves the expected
// chain. It prefers the single-call catalyst_getSyncInfo and falls back to
// the three individual getters if that method is unavailable.
//
// A send must be preceded by a successful verification.
func (c *Client) VerifyChainIdentity(ctx context.Context, expected Identity) error {
	info, err := c.GetSyncInfo(ctx)
	if err != nil {
		info, err = c.syncInfoFallback(ctx)
		if err != nil {
			return err
		}
	}

	gotChain, err := parseChainID(info.ChainID)
	if err != nil {
		return &ChainMismatchError{
			Field:    "chain_id",
			Expected: fmt.Sprintf("%d", expected.ChainID),
			Actual:   info.ChainID,
		}
	}
	if gotChain != expected.ChainID {
		return &ChainMismatchError{
			Field:    "chain_id",
			Expected: fmt.Sprintf("%d", expected.ChainID),
			Actual:   fmt.Sprintf("%d", gotChain),
		}
	}
	if !strings.EqualFold(info.NetworkID, expected.NetworkID) {
		return &ChainMismatchError{
			Field:    "network_id",
			Expected: strings.ToLower(expected.NetworkID),
			Actual:   strings.ToLower(info.NetworkID),
		}
	}
	if !strings.EqualFold(info.GenesisHash, expected.GenesisHash) {
		return &ChainMismatchError{
			Field:    "genesis_hash",
			Expected: strings.ToLower(expected.GenesisHash),
			Actual:   strings.ToLower(info.GenesisHash),
		}
	}
	return nil
}

// syncInfoFallback assembles a SyncInfo from the three individual getters.
func (c *Client) syncInfoFallback(ctx context.Context) (*SyncInfo, error) {
	chainID, err := c.ChainID(ctx)
	if err != nil {
		return nil, err
	}
	networkID, err := c.NetworkID(ctx)
	if err != nil {
		return nil, err
	}
	genesis, err := c.GenesisHash(ctx)
	if err != nil {
		return nil, err
	}
	return &SyncInfo{ChainID: chainID, NetworkID: networkID, GenesisHash: genesis}, nil
}

// parseChainID decodes a chain id transported as either 0x-prefixed hex
// or a decimal string.
func parseChainID(s string) (uint64, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	n := new(big.Int)
	if strings.HasPrefix(s, "0x") {
		if _, ok := n.SetString(s[2:], 16); !ok {
			return 0, fmt.Errorf("malformed hex chain id %q", s)
		}
	} else {
		if _, ok := n.SetString(s, 10); !ok {
			return 0, fmt.Errorf("malformed chain id %q", s)
		}
	}
	if !n.IsUint64() {
		return 0, fmt.Errorf("chain id %q out of range", s)
	}
	return n.Uint64(), nil
}
