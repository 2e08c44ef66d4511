package storage

import "strings"

// Well-known wallet keys. Per-address keys are namespaced by network id so
// switching networks never mixes tracked state.
const (
	// KeyVault holds the encrypted vault record.
	KeyVault = "catalyst_wallet_vault_v1"

	// KeyRPCURL holds the preferred RPC endpoint (utf-8).
	KeyRPCURL = "catalyst_wallet_rpc_url"

	txListPrefix       = "catalyst_wallet_txs_v1:"
	chainHistoryPrefix = "catalyst_wallet_chain_history_v1:"
)

// TxListKey returns the key for an address's tracked-transaction list.
func TxListKey(networkID, address string) []byte {
	return []byte(txListPrefix + networkID + ":" + strings.ToLower(address))
}

// ChainHistoryKey returns the key for an address's cached RPC history.
func ChainHistoryKey(networkID, address string) []byte {
	return []byte(chainHistoryPrefix + networkID + ":" + strings.ToLower(address))
}
