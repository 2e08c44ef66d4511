// Package codec implements the strict hex and little-endian integer
// encodings used by the Catalyst wire format.
package codec

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// Hex32Len is the string length of a canonical hex-32 value ("0x" + 64 digits).
const Hex32Len = 66

// Codec errors.
var (
	// ErrHexFormat is returned when a hex string lacks the 0x prefix or
	// contains non-hex characters.
	ErrHexFormat = errors.New("invalid hex format")

	// ErrHex32Shape is returned when a hex-32 value has the wrong length.
	ErrHex32Shape = errors.New("hex-32 must be 0x followed by 64 hex digits")

	// ErrEncodeRange is returned when an integer is out of range for its
	// wire encoding.
	ErrEncodeRange = errors.New("value out of encodable range")
)

// ParseHex32 parses a canonical hex-32 string into its 32 bytes.
// The input must carry the 0x prefix and decode to exactly 32 bytes.
// Uppercase digits are accepted and lowered.
func ParseHex32(s string) ([32]byte, error) {
	var out [32]byte
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return out, fmt.Errorf("%w: missing 0x prefix in %q", ErrHexFormat, s)
	}
	body := strings.ToLower(s[2:])
	if len(body) != 64 {
		return out, fmt.Errorf("%w: got %d digits", ErrHex32Shape, len(body))
	}
	raw, err := hex.DecodeString(body)
	if err != nil {
		return out, fmt.Errorf("%w: %v", ErrHexFormat, err)
	}
	copy(out[:], raw)
	return out, nil
}

// EncodeHex32 renders 32 bytes as a canonical lowercase 0x hex string.
func EncodeHex32(b [32]byte) string {
	return "0x" + hex.EncodeToString(b[:])
}

// ParseHexBytes parses an arbitrary-length 0x-prefixed hex string.
func ParseHexBytes(s string) ([]byte, error) {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return nil, fmt.Errorf("%w: missing 0x prefix", ErrHexFormat)
	}
	raw, err := hex.DecodeString(strings.ToLower(s[2:]))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHexFormat, err)
	}
	return raw, nil
}

// EncodeHexBytes renders bytes as a lowercase 0x hex string.
func EncodeHexBytes(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

// AppendU8 appends a single byte.
func AppendU8(buf []byte, v uint8) []byte {
	return append(buf, v)
}

// AppendU32 appends a little-endian uint32.
func AppendU32(buf []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(buf, v)
}

// AppendU64 appends a little-endian uint64.
func AppendU64(buf []byte, v uint64) []byte {
	return binary.LittleEndian.AppendUint64(buf, v)
}

// AppendI64 appends a little-endian two's-complement int64.
func AppendI64(buf []byte, v int64) []byte {
	return binary.LittleEndian.AppendUint64(buf, uint64(v))
}

// AppendU32Checked appends a little-endian uint32 after checking that v
// fits. Values of 2^32 or more fail with ErrEncodeRange; lock times past
// year 2106 must be rejected rather than truncated.
func AppendU32Checked(buf []byte, v uint64) ([]byte, error) {
	if v > 0xffffffff {
		return nil, fmt.Errorf("%w: %d exceeds u32", ErrEncodeRange, v)
	}
	return binary.LittleEndian.AppendUint32(buf, uint32(v)), nil
}

// AppendVec appends a length-prefixed vector: u32_le(count) followed by the
// already-encoded items concatenated in order.
func AppendVec(buf []byte, items [][]byte) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(items)))
	for _, it := range items {
		buf = append(buf, it...)
	}
	return buf
}

// AppendBytesVec appends a length-prefixed byte string: u32_le(len) || b.
func AppendBytesVec(buf []byte, b []byte) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(b)))
	return append(buf, b...)
}
