package rpcclient

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
)

// SyncInfo is the chain identity advertised by a node.
type SyncInfo struct {
	ChainID     string `json:"chain_id"`
	NetworkID   string `json:"network_id"`
	GenesisHash string `json:"genesis_hash"`
}

// Receipt is the status of a submitted transaction as reported by a node.
// Status "applied" and "dropped" are terminal.
type Receipt struct {
	TxID   string `json:"tx_id"`
	Status string `json:"status"`
	Cycle  uint64 `json:"cycle,omitempty"`
	Error  string `json:"error,omitempty"`
}

// TxSummary is one row of an address's transaction history.
type TxSummary struct {
	TxID      string `json:"tx_id"`
	From      string `json:"from"`
	To        string `json:"to"`
	Amount    string `json:"amount"`
	Fees      string `json:"fees"`
	Nonce     uint64 `json:"nonce"`
	Status    string `json:"status"`
	Cycle     uint64 `json:"cycle"`
	Timestamp int64  `json:"timestamp"`
}

// EstimateFeeRequest is the parameter object for catalyst_estimateFee.
type EstimateFeeRequest struct {
	From     string  `json:"from"`
	To       string  `json:"to"`
	Value    string  `json:"value"`
	Data     *string `json:"data"`
	GasLimit *string `json:"gas_limit"`
	GasPrice *string `json:"gas_price"`
}

// GetSyncInfo returns the node's chain identity in a single call.
func (c *Client) GetSyncInfo(ctx context.Context) (*SyncInfo, error) {
	var info SyncInfo
	if err := c.Call(ctx, "catalyst_getSyncInfo", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// ChainID returns the node's chain id string (hex or decimal).
func (c *Client) ChainID(ctx context.Context) (string, error) {
	var s string
	err := c.Call(ctx, "catalyst_chainId", nil, &s)
	return s, err
}

// NetworkID returns the node's network name.
func (c *Client) NetworkID(ctx context.Context) (string, error) {
	var s string
	err := c.Call(ctx, "catalyst_networkId", nil, &s)
	return s, err
}

// GenesisHash returns the node's genesis block hash.
func (c *Client) GenesisHash(ctx context.Context) (string, error) {
	var s string
	err := c.Call(ctx, "catalyst_genesisHash", nil, &s)
	return s, err
}

// GetBalance returns the confirmed balance of an address.
// The node transports balances as decimal strings.
func (c *Client) GetBalance(ctx context.Context, address string) (*big.Int, error) {
	var s string
	if err := c.Call(ctx, "catalyst_getBalance", []string{address}, &s); err != nil {
		return nil, err
	}
	bal, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("catalyst_getBalance: malformed balance %q", s)
	}
	return bal, nil
}

// GetNonce returns the highest committed nonce of an address.
func (c *Client) GetNonce(ctx context.Context, address string) (uint64, error) {
	var n uint64
	err := c.Call(ctx, "catalyst_getNonce", []string{address}, &n)
	return n, err
}

// EstimateFee returns the fee estimate for a transfer.
func (c *Client) EstimateFee(ctx context.Context, from, to string, value *big.Int) (uint64, error) {
	req := EstimateFeeRequest{
		From:  from,
		To:    to,
		Value: value.String(),
	}
	var s string
	if err := c.Call(ctx, "catalyst_estimateFee", []EstimateFeeRequest{req}, &s); err != nil {
		return 0, err
	}
	fee, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("catalyst_estimateFee: malformed fee %q", s)
	}
	return fee, nil
}

// SendRawTransaction broadcasts hex-encoded wire bytes and returns the
// server-assigned transaction id. Broadcasts use the longer timeout.
func (c *Client) SendRawTransaction(ctx context.Context, wireHex string) (string, error) {
	var id string
	err := c.CallTimeout(ctx, "catalyst_sendRawTransaction", []string{wireHex}, &id, BroadcastTimeout)
	return id, err
}

// GetTransactionReceipt returns the receipt for a transaction id,
// or nil if the node does not know the transaction.
func (c *Client) GetTransactionReceipt(ctx context.Context, txID string) (*Receipt, error) {
	var rec *Receipt
	if err := c.Call(ctx, "catalyst_getTransactionReceipt", []string{txID}, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// GetTransactionsByAddress returns up to limit history rows for an address,
// starting from the given cycle (nil for most recent).
func (c *Client) GetTransactionsByAddress(ctx context.Context, address string, fromCycle *uint64, limit int) ([]TxSummary, error) {
	params := []interface{}{address, fromCycle, limit}
	var out []TxSummary
	if err := c.Call(ctx, "catalyst_getTransactionsByAddress", params, &out); err != nil {
		return nil, err
	}
	return out, nil
}
