package wallet

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestVault_Roundtrip(t *testing.T) {
	plaintext := []byte(`{"version":2,"kind":"mnemonic_v1"}`)

	rec, err := CreateVault("hunter2", plaintext)
	if err != nil {
		t.Fatalf("CreateVault() error: %v", err)
	}
	got, err := OpenVault("hunter2", rec)
	if err != nil {
		t.Fatalf("OpenVault() error: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("decrypted = %q, want %q", got, plaintext)
	}
}

func TestVault_WrongPassword(t *testing.T) {
	rec, err := CreateVault("correct", []byte("secret"))
	if err != nil {
		t.Fatalf("CreateVault() error: %v", err)
	}
	_, err = OpenVault("wrong", rec)
	if !errors.Is(err, ErrVaultAuthFailed) {
		t.Errorf("OpenVault(wrong password) error = %v, want ErrVaultAuthFailed", err)
	}
}

func TestVault_TamperedCiphertext(t *testing.T) {
	rec, err := CreateVault("pass", []byte("secret"))
	if err != nil {
		t.Fatalf("CreateVault() error: %v", err)
	}
	// Flip the last ciphertext nibble (inside the auth tag).
	ct := rec.CiphertextHex
	last := ct[len(ct)-1]
	var flipped byte
	if last == '0' {
		flipped = '1'
	} else {
		flipped = '0'
	}
	rec.CiphertextHex = ct[:len(ct)-1] + string(flipped)

	if _, err := OpenVault("pass", rec); !errors.Is(err, ErrVaultAuthFailed) {
		t.Errorf("OpenVault(tampered) error = %v, want ErrVaultAuthFailed", err)
	}
}

func TestVault_UnsupportedVersionAndAlgs(t *testing.T) {
	rec, err := CreateVault("pass", []byte("x"))
	if err != nil {
		t.Fatalf("CreateVault() error: %v", err)
	}

	bad := *rec
	bad.Version = 2
	if _, err := OpenVault("pass", &bad); !errors.Is(err, ErrVaultVersionUnsupported) {
		t.Errorf("version 2 error = %v, want ErrVaultVersionUnsupported", err)
	}

	bad = *rec
	bad.KDF.Name = "argon2id"
	if _, err := OpenVault("pass", &bad); !errors.Is(err, ErrVaultAlgUnsupported) {
		t.Errorf("kdf argon2id error = %v, want ErrVaultAlgUnsupported", err)
	}

	bad = *rec
	bad.Cipher.Name = "aes-gcm"
	if _, err := OpenVault("pass", &bad); !errors.Is(err, ErrVaultAlgUnsupported) {
		t.Errorf("cipher aes-gcm error = %v, want ErrVaultAlgUnsupported", err)
	}
}

func TestVault_RecordShape(t *testing.T) {
	rec, err := CreateVault("pass", []byte("x"))
	if err != nil {
		t.Fatalf("CreateVault() error: %v", err)
	}

	if rec.Version != 1 {
		t.Errorf("version = %d, want 1", rec.Version)
	}
	if rec.KDF.Name != "scrypt" || rec.KDF.N != 1<<15 || rec.KDF.R != 8 || rec.KDF.P != 1 {
		t.Errorf("kdf = %+v", rec.KDF)
	}
	if rec.Cipher.Name != "xchacha20-poly1305" {
		t.Errorf("cipher name = %q", rec.Cipher.Name)
	}
	// 0x + 16 salt bytes, 0x + 24 nonce bytes.
	if len(rec.KDF.SaltHex) != 2+32 || !strings.HasPrefix(rec.KDF.SaltHex, "0x") {
		t.Errorf("saltHex = %q", rec.KDF.SaltHex)
	}
	if len(rec.Cipher.NonceHex) != 2+48 || !strings.HasPrefix(rec.Cipher.NonceHex, "0x") {
		t.Errorf("nonceHex = %q", rec.Cipher.NonceHex)
	}

	// JSON field names are part of the external contract.
	data, err := MarshalVault(rec)
	if err != nil {
		t.Fatalf("MarshalVault() error: %v", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("unmarshal record: %v", err)
	}
	for _, k := range []string{"version", "kdf", "cipher", "ciphertextHex"} {
		if _, ok := fields[k]; !ok {
			t.Errorf("record missing field %q", k)
		}
	}
}

func TestVault_FreshSaltAndNonce(t *testing.T) {
	r1, err := CreateVault("pass", []byte("x"))
	if err != nil {
		t.Fatalf("CreateVault() error: %v", err)
	}
	r2, err := CreateVault("pass", []byte("x"))
	if err != nil {
		t.Fatalf("CreateVault() error: %v", err)
	}
	if r1.KDF.SaltHex == r2.KDF.SaltHex {
		t.Error("salt reused across vaults")
	}
	if r1.Cipher.NonceHex == r2.Cipher.NonceHex {
		t.Error("nonce reused across vaults")
	}
}

func TestVault_ParamsReadFromRecord(t *testing.T) {
	rec, err := CreateVault("pass", []byte("payload"))
	if err != nil {
		t.Fatalf("CreateVault() error: %v", err)
	}
	// A record with different (weaker) stored params must still open: the
	// KDF parameters come from the record, not from compile-time constants.
	data, _ := MarshalVault(rec)
	parsed, err := UnmarshalVault(data)
	if err != nil {
		t.Fatalf("UnmarshalVault() error: %v", err)
	}
	if parsed.KDF.N != rec.KDF.N {
		t.Errorf("round-tripped N = %d, want %d", parsed.KDF.N, rec.KDF.N)
	}
	if _, err := OpenVault("pass", parsed); err != nil {
		t.Errorf("OpenVault(round-tripped record) error: %v", err)
	}
}
