// Package core orchestrates the wallet: session lifecycle, account
// management, balances and the full send pipeline.
//
// A Core owns the RPC client, the nonce allocator and the receipt tracker.
// All operations that touch the unlocked wallet hold the session lock; the
// vault is re-encrypted with the session password after every mutation.
package core

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/catalyst-tech/catalyst-wallet/config"
	"github.com/catalyst-tech/catalyst-wallet/internal/log"
	"github.com/catalyst-tech/catalyst-wallet/internal/nonce"
	"github.com/catalyst-tech/catalyst-wallet/internal/rpcclient"
	"github.com/catalyst-tech/catalyst-wallet/internal/storage"
	"github.com/catalyst-tech/catalyst-wallet/internal/tracker"
	"github.com/catalyst-tech/catalyst-wallet/internal/wallet"
	"github.com/catalyst-tech/catalyst-wallet/pkg/codec"
	"github.com/catalyst-tech/catalyst-wallet/pkg/crypto"
	"github.com/catalyst-tech/catalyst-wallet/pkg/tx"
)

// Session errors.
var (
	ErrLocked    = errors.New("wallet is locked")
	ErrNoWallet  = errors.New("no wallet exists, create or restore one first")
	ErrHasWallet = errors.New("a wallet already exists")
	ErrNonceRace = errors.New("broadcast rejected on nonce grounds")
)

// InsufficientFundsError reports a send exceeding the confirmed balance.
type InsufficientFundsError struct {
	Have *big.Int
	Need *big.Int
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: have %s, need %s", e.Have, e.Need)
}

// SendResult describes a broadcast transaction.
type SendResult struct {
	LocalID  string
	ServerID string
	Nonce    uint64
	Fees     uint64
}

// session is the unlocked wallet state. The password is retained so
// mutations can re-encrypt the vault.
type session struct {
	data     *wallet.Data
	password string
}

// Core is the wallet engine.
type Core struct {
	cfg     *config.Config
	db      storage.DB
	ks      *wallet.Keystore
	rpc     *rpcclient.Client
	alloc   *nonce.Allocator
	tracker *tracker.Tracker

	genesis [32]byte

	mu       sync.Mutex
	session  *session
	verified bool // advisory; Send re-verifies before broadcast
}

// New creates a Core over the given configuration and store. The preferred
// RPC endpoint persisted from earlier runs is moved to the front of the
// failover rotation.
func New(cfg *config.Config, db storage.DB) (*Core, error) {
	genesis, err := codec.ParseHex32(cfg.Network.GenesisHash)
	if err != nil {
		return nil, fmt.Errorf("genesis hash: %w", err)
	}

	ks := wallet.NewKeystore(db)
	rpc := rpcclient.New(cfg.Network.RPCURLs)
	if preferred := ks.PreferredRPCURL(); preferred != "" {
		rpc.SetPreferred(preferred)
	}

	c := &Core{
		cfg:     cfg,
		db:      db,
		ks:      ks,
		rpc:     rpc,
		alloc:   nonce.NewAllocator(rpc),
		genesis: genesis,
	}
	c.tracker = tracker.New(rpc, db, cfg.Network.NetworkID)
	c.tracker.OnApplied = c.onApplied
	return c, nil
}

// RPC exposes the underlying client for read-only queries.
func (c *Core) RPC() *rpcclient.Client { return c.rpc }

// Tracker exposes the receipt tracker.
func (c *Core) Tracker() *tracker.Tracker { return c.tracker }

// onApplied refreshes the nonce floor and cached history when a tracked
// transaction lands.
func (c *Core) onApplied(address string) {
	ctx, cancel := context.WithTimeout(context.Background(), rpcclient.DefaultTimeout)
	defer cancel()
	if err := c.RefreshNonceFloor(ctx, address); err != nil {
		log.Wallet.Debug().Err(err).Str("address", address).Msg("Nonce refresh after apply failed")
	}
	if _, err := c.RefreshHistory(ctx, address); err != nil {
		log.Wallet.Debug().Err(err).Str("address", address).Msg("History refresh after apply failed")
	}
}

// HasWallet reports whether a vault exists in the store.
func (c *Core) HasWallet() (bool, error) {
	return c.ks.HasVault()
}

// Unlock decrypts the vault and starts receipt polling.
func (c *Core) Unlock(ctx context.Context, password string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		return nil
	}
	data, err := c.ks.LoadWallet(password)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNoWallet
		}
		return err
	}
	c.session = &session{data: data, password: password}
	c.tracker.Start(ctx)
	log.Wallet.Info().Int("accounts", len(data.Accounts)).Msg("Wallet unlocked")
	return nil
}

// Lock drops the session and stops receipt polling.
func (c *Core) Lock() {
	c.mu.Lock()
	if c.session == nil {
		c.mu.Unlock()
		return
	}
	c.session = nil
	c.mu.Unlock()

	c.tracker.Stop()
	log.Wallet.Info().Msg("Wallet locked")
}

// Unlocked reports whether a session is active.
func (c *Core) Unlocked() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session != nil
}

// CreateFromMnemonic generates a fresh 24-word wallet, saves it and unlocks
// the session. The mnemonic is returned exactly once for the user to back up.
func (c *Core) CreateFromMnemonic(ctx context.Context, name, password string) (string, error) {
	if has, err := c.ks.HasVault(); err != nil {
		return "", err
	} else if has {
		return "", ErrHasWallet
	}
	mnemonic, err := wallet.GenerateMnemonic()
	if err != nil {
		return "", err
	}
	if err := c.adopt(ctx, password, func() (*wallet.Data, error) {
		return wallet.NewFromMnemonic(name, mnemonic, "", 1)
	}); err != nil {
		return "", err
	}
	return mnemonic, nil
}

// Restore rebuilds a wallet from an existing mnemonic.
func (c *Core) Restore(ctx context.Context, name, mnemonic, passphrase, password string, accounts uint32) error {
	return c.adopt(ctx, password, func() (*wallet.Data, error) {
		return wallet.NewFromMnemonic(name, mnemonic, passphrase, accounts)
	})
}

// ImportPrivateKey creates a single-account wallet around a raw key.
func (c *Core) ImportPrivateKey(ctx context.Context, name, privKeyHex, password string) error {
	return c.adopt(ctx, password, func() (*wallet.Data, error) {
		return wallet.NewFromPrivateKey(name, privKeyHex)
	})
}

// adopt builds wallet data, persists it and installs the session.
func (c *Core) adopt(ctx context.Context, password string, build func() (*wallet.Data, error)) error {
	data, err := build()
	if err != nil {
		return err
	}
	if err := c.ks.SaveWallet(password, data); err != nil {
		return err
	}

	c.mu.Lock()
	fresh := c.session == nil
	c.session = &session{data: data, password: password}
	c.mu.Unlock()

	if fresh {
		c.tracker.Start(ctx)
	}
	log.Wallet.Info().Str("kind", string(data.Kind)).Msg("Wallet saved")
	return nil
}

// withSession runs fn with the unlocked wallet under the session lock.
func (c *Core) withSession(fn func(s *session) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ErrLocked
	}
	return fn(c.session)
}

// Accounts returns a snapshot of the wallet's accounts.
func (c *Core) Accounts() ([]wallet.Account, error) {
	var out []wallet.Account
	err := c.withSession(func(s *session) error {
		out = append(out, s.data.Accounts...)
		return nil
	})
	return out, err
}

// Selected returns the currently selected account.
func (c *Core) Selected() (*wallet.Account, error) {
	var acct *wallet.Account
	err := c.withSession(func(s *session) error {
		a, err := s.data.Selected()
		if err != nil {
			return err
		}
		copied := *a
		acct = &copied
		return nil
	})
	return acct, err
}

// AddAccount derives the next account, persists the wallet and selects it.
func (c *Core) AddAccount() (*wallet.Account, error) {
	var acct *wallet.Account
	err := c.withSession(func(s *session) error {
		a, err := s.data.AddAccount()
		if err != nil {
			return err
		}
		if err := c.ks.SaveWallet(s.password, s.data); err != nil {
			return err
		}
		copied := *a
		acct = &copied
		return nil
	})
	return acct, err
}

// SelectAccount switches the active account and persists the choice.
func (c *Core) SelectAccount(id string) error {
	return c.withSession(func(s *session) error {
		if err := s.data.SelectAccount(id); err != nil {
			return err
		}
		return c.ks.SaveWallet(s.password, s.data)
	})
}

// Balance returns the confirmed balance of the selected account and
// re-synchronizes its nonce floor as a side effect.
func (c *Core) Balance(ctx context.Context) (*big.Int, error) {
	acct, err := c.Selected()
	if err != nil {
		return nil, err
	}
	bal, err := c.rpc.GetBalance(ctx, acct.Address)
	if err != nil {
		return nil, err
	}
	if err := c.RefreshNonceFloor(ctx, acct.Address); err != nil {
		log.Wallet.Debug().Err(err).Msg("Nonce floor refresh failed")
	}
	return bal, nil
}

// RefreshNonceFloor re-reads the committed nonce and raises the allocator
// floor. External spends from the same account are picked up here.
func (c *Core) RefreshNonceFloor(ctx context.Context, address string) error {
	committed, err := c.rpc.GetNonce(ctx, address)
	if err != nil {
		return err
	}
	c.alloc.BumpFloor(address, committed)
	return nil
}

// VerifyChainIdentity checks the connected endpoint against the configured
// network and records the advisory verified flag.
func (c *Core) VerifyChainIdentity(ctx context.Context) error {
	err := c.rpc.VerifyChainIdentity(ctx, rpcclient.Identity{
		ChainID:     c.cfg.Network.ChainID,
		NetworkID:   c.cfg.Network.NetworkID,
		GenesisHash: c.cfg.Network.GenesisHash,
	})
	c.mu.Lock()
	c.verified = err == nil
	c.mu.Unlock()
	return err
}

// Send transfers amount from the selected account to the given address.
//
// Pipeline: chain identity check, balance and fee guard, nonce allocation,
// build, sign, broadcast, track. The identity check runs immediately before
// every broadcast; the cached flag is advisory only.
func (c *Core) Send(ctx context.Context, to string, amount int64) (*SendResult, error) {
	acct, err := c.Selected()
	if err != nil {
		return nil, err
	}
	from := acct.Address

	if _, err := codec.ParseHex32(to); err != nil {
		return nil, fmt.Errorf("to address: %w", err)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: %d", tx.ErrAmountNonPositive, amount)
	}

	if err := c.VerifyChainIdentity(ctx); err != nil {
		return nil, err
	}

	have, err := c.rpc.GetBalance(ctx, from)
	if err != nil {
		return nil, err
	}
	fees, err := c.rpc.EstimateFee(ctx, from, to, big.NewInt(amount))
	if err != nil {
		return nil, err
	}

	// Self-transfers only cost the fee.
	need := new(big.Int).SetUint64(fees)
	if !strings.EqualFold(from, to) {
		need.Add(need, big.NewInt(amount))
	}
	if have.Cmp(need) < 0 {
		return nil, &InsufficientFundsError{Have: have, Need: need}
	}

	n, err := c.alloc.Allocate(ctx, from)
	if err != nil {
		return nil, err
	}

	core, err := tx.BuildTransfer(from, to, amount, n, fees)
	if err != nil {
		return nil, err
	}
	timestamp := uint64(time.Now().UnixMilli())

	signed, err := c.sign(acct.ID, core, timestamp)
	if err != nil {
		return nil, err
	}
	wire, err := tx.EncodeWire(signed)
	if err != nil {
		return nil, err
	}
	localID := tx.IDFromWire(wire)

	serverID, err := c.rpc.SendRawTransaction(ctx, "0x"+hex.EncodeToString(wire))
	if err != nil {
		// Re-read the floor so a racing spender is picked up before retry.
		if rfErr := c.RefreshNonceFloor(ctx, from); rfErr != nil {
			log.Wallet.Debug().Err(rfErr).Msg("Floor refresh after broadcast failure failed")
		}
		if isNonceRace(err) {
			return nil, fmt.Errorf("%w: %v", ErrNonceRace, err)
		}
		return nil, err
	}

	if err := c.tracker.Track(from, localID, serverID); err != nil {
		log.Wallet.Warn().Err(err).Msg("Failed to persist tracked transaction")
	}
	log.Wallet.Info().
		Str("tx", localID).
		Uint64("nonce", n).
		Uint64("fees", fees).
		Msg("Transaction broadcast")

	return &SendResult{LocalID: localID, ServerID: serverID, Nonce: n, Fees: fees}, nil
}

// SendWithRetry is Send with a single retry after a nonce race. The floor
// is refreshed between attempts so the retry allocates a fresh nonce.
func (c *Core) SendWithRetry(ctx context.Context, to string, amount int64) (*SendResult, error) {
	res, err := c.Send(ctx, to, amount)
	if err == nil || !errors.Is(err, ErrNonceRace) {
		return res, err
	}
	log.Wallet.Warn().Msg("Nonce race detected, retrying with fresh floor")
	return c.Send(ctx, to, amount)
}

// sign derives the account key, signs the payload and zeroes the key.
func (c *Core) sign(accountID string, core *tx.Core, timestamp uint64) (*tx.Tx, error) {
	var priv []byte
	err := c.withSession(func(s *session) error {
		var err error
		priv, err = s.data.PrivKeyFor(accountID)
		return err
	})
	if err != nil {
		return nil, err
	}
	defer crypto.Zero(priv)

	signer, err := crypto.PrivateKeyFromBytes(priv)
	if err != nil {
		return nil, err
	}
	payload, err := tx.SigningPayload(core, timestamp, c.cfg.Network.ChainID, c.genesis)
	if err != nil {
		return nil, err
	}
	sig, err := signer.Sign(payload)
	if err != nil {
		return nil, err
	}
	return &tx.Tx{Core: *core, Signature: sig, Timestamp: timestamp}, nil
}

// isNonceRace classifies a broadcast rejection caused by a stale nonce.
func isNonceRace(err error) bool {
	var rpcErr *rpcclient.RPCError
	if !errors.As(err, &rpcErr) {
		return false
	}
	return strings.Contains(strings.ToLower(rpcErr.Message), "nonce")
}

// History returns the cached transaction history for an address, refreshing
// it from the chain when the cache is empty.
func (c *Core) History(ctx context.Context, address string, limit int) ([]rpcclient.TxSummary, error) {
	key := storage.ChainHistoryKey(c.cfg.Network.NetworkID, address)
	if data, err := c.db.Get(key); err == nil {
		var cached []rpcclient.TxSummary
		if json.Unmarshal(data, &cached) == nil && len(cached) > 0 {
			if limit > 0 && len(cached) > limit {
				cached = cached[:limit]
			}
			return cached, nil
		}
	}
	return c.refreshHistory(ctx, address, limit)
}

// RefreshHistory re-reads an address's history from the chain and caches it.
func (c *Core) RefreshHistory(ctx context.Context, address string) ([]rpcclient.TxSummary, error) {
	return c.refreshHistory(ctx, address, 50)
}

func (c *Core) refreshHistory(ctx context.Context, address string, limit int) ([]rpcclient.TxSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := c.rpc.GetTransactionsByAddress(ctx, address, nil, limit)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(rows); err == nil {
		key := storage.ChainHistoryKey(c.cfg.Network.NetworkID, address)
		if putErr := c.db.Put(key, data); putErr != nil {
			log.Wallet.Debug().Err(putErr).Msg("History cache write failed")
		}
	}
	return rows, nil
}
