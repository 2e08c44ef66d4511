package crypto

import (
	"fmt"

	"github.com/gtank/ristretto255"

	"github.com/catalyst-tech/catalyst-wallet/pkg/codec"
)

// PrivKeySize is the length of a raw private key in bytes.
const PrivKeySize = 32

// ScalarFromPrivKey interprets 32 private key bytes as a little-endian
// integer and reduces it modulo the Ristretto255 group order. The bytes are
// zero-extended to 64 before the uniform reduction, which is exactly
// LE(bytes) mod L.
func ScalarFromPrivKey(priv []byte) (*ristretto255.Scalar, error) {
	if len(priv) != PrivKeySize {
		return nil, fmt.Errorf("private key must be %d bytes, got %d", PrivKeySize, len(priv))
	}
	var wide [64]byte
	copy(wide[:], priv)
	s, err := ristretto255.NewScalar().SetUniformBytes(wide[:])
	if err != nil {
		return nil, fmt.Errorf("reduce private scalar: %w", err)
	}
	return s, nil
}

// PublicKeyBytes returns the compressed Ristretto encoding of x·G for the
// given private key bytes.
func PublicKeyBytes(priv []byte) ([32]byte, error) {
	var out [32]byte
	x, err := ScalarFromPrivKey(priv)
	if err != nil {
		return out, err
	}
	p := ristretto255.NewIdentityElement().ScalarBaseMult(x)
	copy(out[:], p.Bytes())
	return out, nil
}

// AddressOf derives the canonical hex-32 address for a private key.
// Addresses are the compressed public key; equality is byte equality on the
// canonical hex form.
func AddressOf(priv []byte) (string, error) {
	pub, err := PublicKeyBytes(priv)
	if err != nil {
		return "", err
	}
	return codec.EncodeHex32(pub), nil
}

// Zero overwrites a secret byte slice.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
