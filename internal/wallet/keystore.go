package wallet

import (
	"errors"
	"fmt"

	"github.com/catalyst-tech/catalyst-wallet/internal/storage"
)

// Keystore persists the encrypted vault and wallet preferences through the
// host key-value interface.
type Keystore struct {
	db storage.DB
}

// NewKeystore wraps a storage backend.
func NewKeystore(db storage.DB) *Keystore {
	return &Keystore{db: db}
}

// HasVault reports whether a vault record exists.
func (ks *Keystore) HasVault() (bool, error) {
	return ks.db.Has([]byte(storage.KeyVault))
}

// SaveWallet encrypts the wallet payload under the password and writes the
// vault record. Called on every wallet mutation, re-using the session
// password.
func (ks *Keystore) SaveWallet(password string, w *Data) error {
	plaintext, err := w.Marshal()
	if err != nil {
		return err
	}
	rec, err := CreateVault(password, plaintext)
	if err != nil {
		return err
	}
	data, err := MarshalVault(rec)
	if err != nil {
		return err
	}
	if err := ks.db.Put([]byte(storage.KeyVault), data); err != nil {
		return fmt.Errorf("write vault: %w", err)
	}
	return nil
}

// LoadWallet opens the stored vault with the password and parses the
// payload, migrating legacy shapes.
func (ks *Keystore) LoadWallet(password string) (*Data, error) {
	data, err := ks.db.Get([]byte(storage.KeyVault))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("no vault found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("read vault: %w", err)
	}
	rec, err := UnmarshalVault(data)
	if err != nil {
		return nil, err
	}
	plaintext, err := OpenVault(password, rec)
	if err != nil {
		return nil, err
	}
	return ParseAny(plaintext)
}

// DeleteVault removes the vault record.
func (ks *Keystore) DeleteVault() error {
	return ks.db.Delete([]byte(storage.KeyVault))
}

// PreferredRPCURL returns the stored RPC endpoint preference, or "" when
// none is set.
func (ks *Keystore) PreferredRPCURL() string {
	v, err := ks.db.Get([]byte(storage.KeyRPCURL))
	if err != nil {
		return ""
	}
	return string(v)
}

// SetPreferredRPCURL stores the RPC endpoint preference.
func (ks *Keystore) SetPreferredRPCURL(url string) error {
	return ks.db.Put([]byte(storage.KeyRPCURL), []byte(url))
}
