package crypto

import (
	"encoding/hex"
	"testing"
)

func TestSignVerify_Roundtrip(t *testing.T) {
	pk, err := PrivateKeyFromBytes(repeatByte(0x11, 32))
	if err != nil {
		t.Fatalf("PrivateKeyFromBytes() error: %v", err)
	}

	msg := []byte("transfer 7 catalyst to a friend")
	sig, err := pk.Sign(msg)
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}
	if len(sig) != SignatureSize {
		t.Fatalf("signature length = %d, want %d", len(sig), SignatureSize)
	}
	if !Verify(pk.PublicKey(), msg, sig) {
		t.Error("signature does not verify")
	}
}

func TestSign_FixedNonceVector(t *testing.T) {
	pk, err := PrivateKeyFromBytes(repeatByte(0x11, 32))
	if err != nil {
		t.Fatalf("PrivateKeyFromBytes() error: %v", err)
	}

	sig, err := pk.signWithNonce(repeatByte(0x42, 32), []byte("catalyst schnorr test message"))
	if err != nil {
		t.Fatalf("signWithNonce() error: %v", err)
	}
	want := "9a2de9835d4baec6bd3fccfb82a408146f4d924bd9cab328b3393803d859f02f" +
		"abc27864b1cba3c266c11ce4ab5774283d3db342af2b812858b4562cefe06a01"
	if hex.EncodeToString(sig) != want {
		t.Errorf("signature = %x, want %s", sig, want)
	}
	if !Verify(pk.PublicKey(), []byte("catalyst schnorr test message"), sig) {
		t.Error("fixed-nonce signature does not verify")
	}
}

func TestVerify_RejectsTampering(t *testing.T) {
	pk, err := PrivateKeyFromBytes(repeatByte(0x2a, 32))
	if err != nil {
		t.Fatalf("PrivateKeyFromBytes() error: %v", err)
	}
	msg := []byte("original message")
	sig, err := pk.Sign(msg)
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}

	if Verify(pk.PublicKey(), []byte("tampered message"), sig) {
		t.Error("signature verified against a different message")
	}

	bad := make([]byte, len(sig))
	copy(bad, sig)
	bad[40] ^= 0x01
	if Verify(pk.PublicKey(), msg, bad) {
		t.Error("corrupted signature verified")
	}

	otherPk, _ := PrivateKeyFromBytes(repeatByte(0x2b, 32))
	if Verify(otherPk.PublicKey(), msg, sig) {
		t.Error("signature verified under the wrong public key")
	}
}

func TestVerify_RejectsWrongLength(t *testing.T) {
	pk, _ := PrivateKeyFromBytes(repeatByte(0x2a, 32))
	if Verify(pk.PublicKey(), []byte("m"), make([]byte, 63)) {
		t.Error("63-byte signature accepted")
	}
	if Verify(pk.PublicKey(), []byte("m"), make([]byte, 65)) {
		t.Error("65-byte signature accepted")
	}
}

func TestSign_FreshNoncePerSignature(t *testing.T) {
	pk, _ := PrivateKeyFromBytes(repeatByte(0x2a, 32))
	msg := []byte("same message")
	s1, err := pk.Sign(msg)
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}
	s2, err := pk.Sign(msg)
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}
	if hex.EncodeToString(s1) == hex.EncodeToString(s2) {
		t.Error("two signatures of the same message share a nonce")
	}
}
