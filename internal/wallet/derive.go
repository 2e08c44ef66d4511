package wallet

import (
	"fmt"

	"github.com/catalyst-tech/catalyst-wallet/pkg/codec"
	"github.com/catalyst-tech/catalyst-wallet/pkg/crypto"
)

// Domain separation tags for the v1 derivation scheme. The tags keep the
// master and per-account hashes in disjoint contexts.
const (
	DSTMaster  = "CATALYST_WALLET_V1_MASTER"
	DSTAccount = "CATALYST_WALLET_V1_ACCOUNT"
)

// DeriveAccountPrivKey derives the 32-byte private key for account index i:
//
//	master = BLAKE2b-512(DST_MASTER || seed)
//	ikm    = BLAKE2b-512(DST_ACCOUNT || master || u32_le(i))
//	priv   = ikm[0:32]
//
// Derivation is pure: same seed and index always yield the same key.
func DeriveAccountPrivKey(seed []byte, index uint32) ([]byte, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", SeedSize, len(seed))
	}
	master := crypto.HashTagged512(DSTMaster, seed)
	ikm := crypto.HashTagged512(DSTAccount, master[:], codec.AppendU32(nil, index))
	priv := make([]byte, 32)
	copy(priv, ikm[:32])
	crypto.Zero(master[:])
	crypto.Zero(ikm[:])
	return priv, nil
}

// DeriveAccountAddress derives the canonical hex-32 address for account
// index i.
func DeriveAccountAddress(seed []byte, index uint32) (string, error) {
	priv, err := DeriveAccountPrivKey(seed, index)
	if err != nil {
		return "", err
	}
	addr, err := crypto.AddressOf(priv)
	crypto.Zero(priv)
	if err != nil {
		return "", err
	}
	return addr, nil
}
