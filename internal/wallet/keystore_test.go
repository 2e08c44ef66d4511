package wallet

import (
	"errors"
	"testing"

	"github.com/catalyst-tech/catalyst-wallet/internal/storage"
)

func TestKeystore_SaveLoad(t *testing.T) {
	ks := NewKeystore(storage.NewMemory())

	has, err := ks.HasVault()
	if err != nil || has {
		t.Fatalf("HasVault() on empty store = %v, %v", has, err)
	}

	w, err := NewFromMnemonic("Main", testMnemonic, "", 1)
	if err != nil {
		t.Fatalf("NewFromMnemonic() error: %v", err)
	}
	if err := ks.SaveWallet("pass", w); err != nil {
		t.Fatalf("SaveWallet() error: %v", err)
	}

	has, err = ks.HasVault()
	if err != nil || !has {
		t.Fatalf("HasVault() after save = %v, %v", has, err)
	}

	got, err := ks.LoadWallet("pass")
	if err != nil {
		t.Fatalf("LoadWallet() error: %v", err)
	}
	if got.Accounts[0].Address != w.Accounts[0].Address {
		t.Errorf("loaded address = %s, want %s", got.Accounts[0].Address, w.Accounts[0].Address)
	}
}

func TestKeystore_WrongPassword(t *testing.T) {
	ks := NewKeystore(storage.NewMemory())
	w, _ := NewFromMnemonic("Main", testMnemonic, "", 1)
	if err := ks.SaveWallet("right", w); err != nil {
		t.Fatalf("SaveWallet() error: %v", err)
	}
	if _, err := ks.LoadWallet("wrong"); !errors.Is(err, ErrVaultAuthFailed) {
		t.Errorf("LoadWallet(wrong) error = %v, want ErrVaultAuthFailed", err)
	}
}

func TestKeystore_NoVault(t *testing.T) {
	ks := NewKeystore(storage.NewMemory())
	if _, err := ks.LoadWallet("pass"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("LoadWallet(no vault) error = %v, want ErrNotFound", err)
	}
}

func TestKeystore_PreferredRPCURL(t *testing.T) {
	ks := NewKeystore(storage.NewMemory())
	if got := ks.PreferredRPCURL(); got != "" {
		t.Errorf("PreferredRPCURL() on empty store = %q", got)
	}
	if err := ks.SetPreferredRPCURL("https://rpc-us.catalyst-testnet.io"); err != nil {
		t.Fatalf("SetPreferredRPCURL() error: %v", err)
	}
	if got := ks.PreferredRPCURL(); got != "https://rpc-us.catalyst-testnet.io" {
		t.Errorf("PreferredRPCURL() = %q", got)
	}
}
