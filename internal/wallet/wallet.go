package wallet

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/catalyst-tech/catalyst-wallet/pkg/codec"
	"github.com/catalyst-tech/catalyst-wallet/pkg/crypto"
)

// WalletVersion is the current payload version.
const WalletVersion = 2

// Kind discriminates how a wallet's keys are held.
type Kind string

// Wallet kinds.
const (
	KindMnemonic   Kind = "mnemonic_v1"
	KindPrivateKey Kind = "private_key_v1"
)

// Wallet model errors.
var (
	ErrUnknownAccount       = errors.New("unknown account id")
	ErrUnsupportedOperation = errors.New("operation not supported for this wallet kind")
	ErrUnknownPayload       = errors.New("unrecognized wallet payload")
)

// Account is one spendable identity inside a wallet.
type Account struct {
	ID        string  `json:"id"`
	Label     string  `json:"label"`
	Address   string  `json:"address"`
	Index     *uint32 `json:"account_index,omitempty"` // present iff mnemonic-derived
	CreatedAt int64   `json:"created_at"`              // unix ms
}

// Data is the decrypted wallet payload (version 2). Exactly one of the
// mnemonic fields or PrivateKeyHex is populated, per Kind.
type Data struct {
	Version    int       `json:"version"`
	Kind       Kind      `json:"kind"`
	Name       string    `json:"name"`
	CreatedAt  int64     `json:"created_at"` // unix ms
	Accounts   []Account `json:"accounts"`
	SelectedID string    `json:"selected_account_id"`

	// mnemonic_v1 only
	Mnemonic         string `json:"mnemonic,omitempty"`
	Passphrase       string `json:"passphrase,omitempty"`
	NextAccountIndex uint32 `json:"next_account_index,omitempty"`

	// private_key_v1 only
	PrivateKeyHex string `json:"privateKeyHex,omitempty"`
}

// legacyPayload is the pre-v2 single-key format still found in old vaults.
type legacyPayload struct {
	PrivateKeyHex string `json:"privateKeyHex"`
}

func newAccountID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand failure means the process has no entropy source;
		// nothing sensible to fall back to.
		panic(fmt.Sprintf("wallet: read random account id: %v", err))
	}
	return "acct-" + hex.EncodeToString(b[:])
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// NewFromMnemonic creates a mnemonic wallet with the given number of initial
// accounts (at least one), selecting account 0.
func NewFromMnemonic(name, mnemonic, passphrase string, initialAccounts uint32) (*Data, error) {
	if initialAccounts == 0 {
		initialAccounts = 1
	}
	seed, err := SeedFromMnemonic(mnemonic, passphrase)
	if err != nil {
		return nil, err
	}
	defer crypto.Zero(seed)

	w := &Data{
		Version:          WalletVersion,
		Kind:             KindMnemonic,
		Name:             name,
		CreatedAt:        nowMillis(),
		Mnemonic:         mnemonic,
		Passphrase:       passphrase,
		NextAccountIndex: initialAccounts,
	}
	for i := uint32(0); i < initialAccounts; i++ {
		addr, err := DeriveAccountAddress(seed, i)
		if err != nil {
			return nil, fmt.Errorf("derive account %d: %w", i, err)
		}
		idx := i
		w.Accounts = append(w.Accounts, Account{
			ID:        newAccountID(),
			Label:     fmt.Sprintf("Account %d", i+1),
			Address:   addr,
			Index:     &idx,
			CreatedAt: w.CreatedAt,
		})
	}
	w.SelectedID = w.Accounts[0].ID
	return w, nil
}

// NewFromPrivateKey creates a single-account wallet around an imported
// hex-32 private key.
func NewFromPrivateKey(name, privKeyHex string) (*Data, error) {
	raw, err := codec.ParseHex32(privKeyHex)
	if err != nil {
		return nil, fmt.Errorf("private key: %w", err)
	}
	addr, err := crypto.AddressOf(raw[:])
	if err != nil {
		return nil, err
	}
	canonical := codec.EncodeHex32(raw)
	crypto.Zero(raw[:])

	now := nowMillis()
	acct := Account{
		ID:        newAccountID(),
		Label:     "Imported",
		Address:   addr,
		CreatedAt: now,
	}
	return &Data{
		Version:       WalletVersion,
		Kind:          KindPrivateKey,
		Name:          name,
		CreatedAt:     now,
		Accounts:      []Account{acct},
		SelectedID:    acct.ID,
		PrivateKeyHex: canonical,
	}, nil
}

// AddAccount derives the next account for a mnemonic wallet, appends it and
// selects it. Private-key wallets cannot grow.
func (w *Data) AddAccount() (*Account, error) {
	if w.Kind != KindMnemonic {
		return nil, fmt.Errorf("%w: add account on %s wallet", ErrUnsupportedOperation, w.Kind)
	}
	seed, err := SeedFromMnemonic(w.Mnemonic, w.Passphrase)
	if err != nil {
		return nil, err
	}
	defer crypto.Zero(seed)

	idx := w.NextAccountIndex
	addr, err := DeriveAccountAddress(seed, idx)
	if err != nil {
		return nil, fmt.Errorf("derive account %d: %w", idx, err)
	}
	acct := Account{
		ID:        newAccountID(),
		Label:     fmt.Sprintf("Account %d", idx+1),
		Address:   addr,
		Index:     &idx,
		CreatedAt: nowMillis(),
	}
	w.Accounts = append(w.Accounts, acct)
	w.SelectedID = acct.ID
	w.NextAccountIndex = idx + 1
	return &w.Accounts[len(w.Accounts)-1], nil
}

// SelectAccount switches the selected account.
func (w *Data) SelectAccount(id string) error {
	for _, a := range w.Accounts {
		if a.ID == id {
			w.SelectedID = id
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownAccount, id)
}

// Selected returns the currently selected account.
func (w *Data) Selected() (*Account, error) {
	for i := range w.Accounts {
		if w.Accounts[i].ID == w.SelectedID {
			return &w.Accounts[i], nil
		}
	}
	return nil, fmt.Errorf("%w: selected id %s", ErrUnknownAccount, w.SelectedID)
}

// AccountByID looks up an account.
func (w *Data) AccountByID(id string) (*Account, error) {
	for i := range w.Accounts {
		if w.Accounts[i].ID == id {
			return &w.Accounts[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownAccount, id)
}

// PrivKeyFor returns the 32 private key bytes for an account. Mnemonic
// wallets re-derive on demand and never cache; the caller must zero the
// returned slice.
func (w *Data) PrivKeyFor(id string) ([]byte, error) {
	acct, err := w.AccountByID(id)
	if err != nil {
		return nil, err
	}
	switch w.Kind {
	case KindPrivateKey:
		raw, err := codec.ParseHex32(w.PrivateKeyHex)
		if err != nil {
			return nil, fmt.Errorf("stored private key: %w", err)
		}
		return raw[:], nil
	case KindMnemonic:
		if acct.Index == nil {
			return nil, fmt.Errorf("%w: account %s has no derivation index", ErrUnknownPayload, id)
		}
		seed, err := SeedFromMnemonic(w.Mnemonic, w.Passphrase)
		if err != nil {
			return nil, err
		}
		defer crypto.Zero(seed)
		return DeriveAccountPrivKey(seed, *acct.Index)
	default:
		return nil, fmt.Errorf("%w: kind %q", ErrUnknownPayload, w.Kind)
	}
}

// Validate checks the structural invariants of a wallet payload.
func (w *Data) Validate() error {
	if len(w.Accounts) == 0 {
		return fmt.Errorf("%w: wallet has no accounts", ErrUnknownPayload)
	}
	if _, err := w.Selected(); err != nil {
		return err
	}
	if w.Kind == KindMnemonic {
		seen := make(map[uint32]bool, len(w.Accounts))
		for _, a := range w.Accounts {
			if a.Index == nil {
				return fmt.Errorf("%w: mnemonic account %s missing index", ErrUnknownPayload, a.ID)
			}
			if *a.Index >= w.NextAccountIndex {
				return fmt.Errorf("%w: account index %d >= next index %d", ErrUnknownPayload, *a.Index, w.NextAccountIndex)
			}
			if seen[*a.Index] {
				return fmt.Errorf("%w: duplicate account index %d", ErrUnknownPayload, *a.Index)
			}
			seen[*a.Index] = true
		}
	}
	if w.Kind == KindPrivateKey && len(w.Accounts) != 1 {
		return fmt.Errorf("%w: private-key wallet must hold exactly one account", ErrUnknownPayload)
	}
	return nil
}

// Marshal serializes the wallet payload for vault encryption.
func (w *Data) Marshal() ([]byte, error) {
	data, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("marshal wallet: %w", err)
	}
	return data, nil
}

// ParseAny parses a decrypted vault payload. Version-2 payloads are
// accepted directly; legacy {privateKeyHex} payloads are migrated into a
// private-key wallet. Anything else is a hard error.
func ParseAny(payload []byte) (*Data, error) {
	var probe struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownPayload, err)
	}

	if probe.Version == WalletVersion {
		var w Data
		if err := json.Unmarshal(payload, &w); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnknownPayload, err)
		}
		if err := w.Validate(); err != nil {
			return nil, err
		}
		return &w, nil
	}
	if probe.Version != 0 {
		return nil, fmt.Errorf("%w: version %d", ErrUnknownPayload, probe.Version)
	}

	// Legacy shape: a bare privateKeyHex object.
	var legacy legacyPayload
	if err := json.Unmarshal(payload, &legacy); err != nil || legacy.PrivateKeyHex == "" {
		return nil, fmt.Errorf("%w: neither v2 nor legacy shape", ErrUnknownPayload)
	}
	w, err := NewFromPrivateKey("Migrated", legacy.PrivateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("migrate legacy payload: %w", err)
	}
	return w, nil
}
