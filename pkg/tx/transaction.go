// Package tx defines the canonical Catalyst transaction encoding: core and
// envelope serialization, the domain-separated signing payload, the wire
// image and the transaction id.
package tx

import (
	"errors"
	"fmt"

	"github.com/catalyst-tech/catalyst-wallet/pkg/codec"
	"github.com/catalyst-tech/catalyst-wallet/pkg/crypto"
)

// Wire constants. Both are raw ASCII bytes on the wire.
const (
	// WireMagic prefixes every broadcast transaction image.
	WireMagic = "CTX1"

	// SigDomain prefixes the signing payload, binding signatures to the
	// Catalyst transaction context.
	SigDomain = "CATALYST_SIG_V1"
)

// MaxDataLen is the maximum length of the free-form data field.
const MaxDataLen = 60

// Type is the transaction type tag.
type Type uint8

// Transaction types. Only the non-confidential transfer is supported.
const (
	NonConfidentialTransfer Type = 0x00
)

// Transaction codec errors.
var (
	ErrDataTooLong            = errors.New("transaction data exceeds 60 bytes")
	ErrAmountNonPositive      = errors.New("transfer amount must be positive")
	ErrSignatureLengthInvalid = errors.New("signature must be 64 bytes")
)

// Entry moves value into (positive) or out of (negative) an address.
type Entry struct {
	Address [32]byte
	Amount  int64
}

// Core is the signed portion of a transaction.
type Core struct {
	Type     Type
	Entries  []Entry
	Nonce    uint64
	LockTime uint64 // unix seconds; must fit in u32 on the wire
	Fees     uint64
	Data     []byte
}

// Tx is a full transaction envelope: core, signature and timestamp.
type Tx struct {
	Core      Core
	Signature []byte // 64 bytes
	Timestamp uint64 // unix milliseconds
}

// appendEntry encodes address || u8(0) || i64_le(amount). The leading zero
// byte is the non-confidential amount tag.
func appendEntry(buf []byte, e Entry) []byte {
	buf = append(buf, e.Address[:]...)
	buf = codec.AppendU8(buf, 0)
	buf = codec.AppendI64(buf, e.Amount)
	return buf
}

// SerializeCore produces the canonical core byte image:
//
//	u8(type) || vec(entries) || u64_le(nonce) || u32_le(lock_time) ||
//	u64_le(fees) || bytes_vec(data)
func SerializeCore(c *Core) ([]byte, error) {
	if len(c.Data) > MaxDataLen {
		return nil, fmt.Errorf("%w: got %d", ErrDataTooLong, len(c.Data))
	}

	entries := make([][]byte, len(c.Entries))
	for i, e := range c.Entries {
		entries[i] = appendEntry(nil, e)
	}

	buf := codec.AppendU8(nil, uint8(c.Type))
	buf = codec.AppendVec(buf, entries)
	buf = codec.AppendU64(buf, c.Nonce)
	buf, err := codec.AppendU32Checked(buf, c.LockTime)
	if err != nil {
		return nil, fmt.Errorf("lock_time: %w", err)
	}
	buf = codec.AppendU64(buf, c.Fees)
	buf = codec.AppendBytesVec(buf, c.Data)
	return buf, nil
}

// SerializeEnvelope produces core || bytes_vec(signature) || u64_le(timestamp).
func SerializeEnvelope(t *Tx) ([]byte, error) {
	if len(t.Signature) != crypto.SignatureSize {
		return nil, fmt.Errorf("%w: got %d", ErrSignatureLengthInvalid, len(t.Signature))
	}
	buf, err := SerializeCore(&t.Core)
	if err != nil {
		return nil, err
	}
	buf = codec.AppendBytesVec(buf, t.Signature)
	buf = codec.AppendU64(buf, t.Timestamp)
	return buf, nil
}

// EncodeWire produces the broadcast image: WIRE_MAGIC || envelope.
func EncodeWire(t *Tx) ([]byte, error) {
	env, err := SerializeEnvelope(t)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 0, len(WireMagic)+len(env))
	buf = append(buf, WireMagic...)
	buf = append(buf, env...)
	return buf, nil
}

// ID computes the canonical transaction id: the first 32 bytes of the
// BLAKE2b-512 hash of the wire image, as hex-32.
func ID(t *Tx) (string, error) {
	wire, err := EncodeWire(t)
	if err != nil {
		return "", err
	}
	return IDFromWire(wire), nil
}

// IDFromWire computes the transaction id for an already-encoded wire image.
func IDFromWire(wire []byte) string {
	h := crypto.Hash512(wire)
	var id [32]byte
	copy(id[:], h[:32])
	return codec.EncodeHex32(id)
}

// SigningPayload builds the exact byte string passed to the signer:
//
//	SIG_DOMAIN || u64_le(chain_id) || genesis_hash || core || u64_le(timestamp)
//
// Unlike the wire image, the payload carries the chain identity, so a
// signature is only valid on the chain it was produced for.
func SigningPayload(c *Core, timestamp, chainID uint64, genesisHash [32]byte) ([]byte, error) {
	core, err := SerializeCore(c)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 0, len(SigDomain)+8+32+len(core)+8)
	buf = append(buf, SigDomain...)
	buf = codec.AppendU64(buf, chainID)
	buf = append(buf, genesisHash[:]...)
	buf = append(buf, core...)
	buf = codec.AppendU64(buf, timestamp)
	return buf, nil
}
