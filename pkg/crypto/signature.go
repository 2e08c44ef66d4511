package crypto

import (
	"crypto/rand"
	"fmt"

	"github.com/gtank/ristretto255"
)

// SignatureSize is the length of a Schnorr signature: R (32) || s (32).
const SignatureSize = 64

// Signer signs messages with a private key using Schnorr over Ristretto255.
type Signer interface {
	// Sign produces a 64-byte Schnorr signature over an arbitrary message.
	Sign(message []byte) ([]byte, error)
	// PublicKey returns the compressed 32-byte public key.
	PublicKey() [32]byte
}

// PrivateKey holds a Ristretto255 signing key.
type PrivateKey struct {
	scalar *ristretto255.Scalar
	pub    [32]byte
}

// PrivateKeyFromBytes creates a PrivateKey from 32 raw key bytes.
func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	x, err := ScalarFromPrivKey(b)
	if err != nil {
		return nil, err
	}
	pk := &PrivateKey{scalar: x}
	p := ristretto255.NewIdentityElement().ScalarBaseMult(x)
	copy(pk.pub[:], p.Bytes())
	return pk, nil
}

// PublicKey returns the compressed 32-byte public key.
func (pk *PrivateKey) PublicKey() [32]byte {
	return pk.pub
}

// Sign produces a Schnorr signature over the message:
//
//	k   <- random scalar
//	R   = k·G
//	e   = LE(BLAKE2b-256(R || P || message)) mod L
//	s   = k + e·x mod L
//	sig = R || s
//
// The challenge binds the public key, which blocks key-substitution
// attacks. The nonce k is sampled fresh for every signature.
func (pk *PrivateKey) Sign(message []byte) ([]byte, error) {
	var kb [32]byte
	if _, err := rand.Read(kb[:]); err != nil {
		return nil, fmt.Errorf("sample nonce: %w", err)
	}
	sig, err := pk.signWithNonce(kb[:], message)
	Zero(kb[:])
	return sig, err
}

// signWithNonce runs the signing equation with a caller-supplied nonce.
// Only Sign and the test vectors call this; nonce reuse leaks the key.
func (pk *PrivateKey) signWithNonce(nonce, message []byte) ([]byte, error) {
	k, err := ScalarFromPrivKey(nonce)
	if err != nil {
		return nil, err
	}
	rb := ristretto255.NewIdentityElement().ScalarBaseMult(k).Bytes()

	e, err := challenge(rb, pk.pub[:], message)
	if err != nil {
		return nil, err
	}

	s := ristretto255.NewScalar().Multiply(e, pk.scalar)
	s.Add(s, k)

	sig := make([]byte, 0, SignatureSize)
	sig = append(sig, rb...)
	sig = append(sig, s.Bytes()...)
	return sig, nil
}

// Verify checks a Schnorr signature against a compressed public key and a
// message. Returns false on any decoding or equation failure.
func Verify(pub [32]byte, message, sig []byte) bool {
	if len(sig) != SignatureSize {
		return false
	}
	r, err := ristretto255.NewIdentityElement().SetCanonicalBytes(sig[:32])
	if err != nil {
		return false
	}
	s, err := ristretto255.NewScalar().SetCanonicalBytes(sig[32:])
	if err != nil {
		return false
	}
	p, err := ristretto255.NewIdentityElement().SetCanonicalBytes(pub[:])
	if err != nil {
		return false
	}
	e, err := challenge(sig[:32], pub[:], message)
	if err != nil {
		return false
	}

	// s·G == R + e·P
	lhs := ristretto255.NewIdentityElement().ScalarBaseMult(s)
	rhs := ristretto255.NewIdentityElement().ScalarMult(e, p)
	rhs.Add(rhs, r)
	return lhs.Equal(rhs) == 1
}

// challenge computes e = LE(BLAKE2b-256(R || P || message)) mod L.
func challenge(rb, pb, message []byte) (*ristretto255.Scalar, error) {
	buf := make([]byte, 0, len(rb)+len(pb)+len(message))
	buf = append(buf, rb...)
	buf = append(buf, pb...)
	buf = append(buf, message...)
	h := Hash256(buf)

	var wide [64]byte
	copy(wide[:], h[:])
	e, err := ristretto255.NewScalar().SetUniformBytes(wide[:])
	if err != nil {
		return nil, fmt.Errorf("reduce challenge: %w", err)
	}
	return e, nil
}
