package wallet

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"

	"github.com/catalyst-tech/catalyst-wallet/pkg/codec"
	"github.com/catalyst-tech/catalyst-wallet/pkg/crypto"
)

// Vault parameters. The KDF settings are stored in the record, so they can
// be raised later without breaking existing vaults.
const (
	VaultVersion = 1

	vaultKDFName    = "scrypt"
	vaultCipherName = "xchacha20-poly1305"

	scryptN      = 1 << 15
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = chacha20poly1305.KeySize

	vaultSaltSize = 16
)

// Vault errors. Decryption failures are indistinguishable from a wrong
// password on purpose.
var (
	ErrVaultVersionUnsupported = errors.New("unsupported vault version")
	ErrVaultAlgUnsupported     = errors.New("unsupported vault algorithm")
	ErrVaultAuthFailed         = errors.New("vault authentication failed (wrong password or corrupted vault)")
)

// VaultKDF describes the stored key-derivation parameters.
type VaultKDF struct {
	Name    string `json:"name"`
	N       int    `json:"N"`
	R       int    `json:"r"`
	P       int    `json:"p"`
	SaltHex string `json:"saltHex"`
}

// VaultCipher describes the stored AEAD parameters.
type VaultCipher struct {
	Name     string `json:"name"`
	NonceHex string `json:"nonceHex"`
}

// VaultRecord is the persisted encrypted-wallet envelope.
type VaultRecord struct {
	Version       int         `json:"version"`
	KDF           VaultKDF    `json:"kdf"`
	Cipher        VaultCipher `json:"cipher"`
	CiphertextHex string      `json:"ciphertextHex"`
}

// CreateVault encrypts plaintext under the password with
// scrypt + XChaCha20-Poly1305 and fresh random salt and nonce.
func CreateVault(password string, plaintext []byte) (*VaultRecord, error) {
	salt := make([]byte, vaultSaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	key, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return nil, fmt.Errorf("derive vault key: %w", err)
	}

	aead, err := chacha20poly1305.NewX(key)
	crypto.Zero(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	ciphertext := aead.Seal(nil, nonce, plaintext, nil)

	return &VaultRecord{
		Version: VaultVersion,
		KDF: VaultKDF{
			Name:    vaultKDFName,
			N:       scryptN,
			R:       scryptR,
			P:       scryptP,
			SaltHex: codec.EncodeHexBytes(salt),
		},
		Cipher: VaultCipher{
			Name:     vaultCipherName,
			NonceHex: codec.EncodeHexBytes(nonce),
		},
		CiphertextHex: codec.EncodeHexBytes(ciphertext),
	}, nil
}

// OpenVault re-derives the key from the stored KDF parameters and decrypts
// the record. Any AEAD failure surfaces as ErrVaultAuthFailed.
func OpenVault(password string, rec *VaultRecord) ([]byte, error) {
	if rec.Version != VaultVersion {
		return nil, fmt.Errorf("%w: %d", ErrVaultVersionUnsupported, rec.Version)
	}
	if rec.KDF.Name != vaultKDFName {
		return nil, fmt.Errorf("%w: kdf %q", ErrVaultAlgUnsupported, rec.KDF.Name)
	}
	if rec.Cipher.Name != vaultCipherName {
		return nil, fmt.Errorf("%w: cipher %q", ErrVaultAlgUnsupported, rec.Cipher.Name)
	}

	salt, err := codec.ParseHexBytes(rec.KDF.SaltHex)
	if err != nil {
		return nil, fmt.Errorf("vault salt: %w", err)
	}
	nonce, err := codec.ParseHexBytes(rec.Cipher.NonceHex)
	if err != nil {
		return nil, fmt.Errorf("vault nonce: %w", err)
	}
	ciphertext, err := codec.ParseHexBytes(rec.CiphertextHex)
	if err != nil {
		return nil, fmt.Errorf("vault ciphertext: %w", err)
	}

	key, err := scrypt.Key([]byte(password), salt, rec.KDF.N, rec.KDF.R, rec.KDF.P, scryptKeyLen)
	if err != nil {
		return nil, fmt.Errorf("derive vault key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	crypto.Zero(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrVaultAuthFailed
	}
	return plaintext, nil
}

// MarshalVault serializes a vault record for storage.
func MarshalVault(rec *VaultRecord) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal vault: %w", err)
	}
	return data, nil
}

// UnmarshalVault parses a stored vault record.
func UnmarshalVault(data []byte) (*VaultRecord, error) {
	var rec VaultRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse vault: %w", err)
	}
	return &rec, nil
}
