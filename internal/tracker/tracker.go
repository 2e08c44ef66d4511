// Package tracker follows submitted transactions until they reach a
// terminal state.
//
// Entries are kept per address, polled on a fixed tick, and persisted so
// a restarted wallet resumes tracking where it left off.
package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/catalyst-tech/catalyst-wallet/internal/log"
	"github.com/catalyst-tech/catalyst-wallet/internal/rpcclient"
	"github.com/catalyst-tech/catalyst-wallet/internal/storage"
)

// PollInterval is the receipt polling period.
const PollInterval = 2500 * time.Millisecond

// MaxTracked caps the persisted entries per address. Oldest entries are
// dropped first.
const MaxTracked = 50

// Terminal transaction statuses. Entries in these states are never polled.
const (
	StatusApplied  = "applied"
	StatusDropped  = "dropped"
	StatusPending  = "pending"
	StatusNotFound = "not_found"
	StatusError    = "error"
)

// Entry is one tracked transaction.
type Entry struct {
	LocalID     string `json:"localId"`
	ServerID    string `json:"serverId,omitempty"`
	Status      string `json:"status"`
	LastReceipt string `json:"lastReceipt,omitempty"`
	LastChecked int64  `json:"lastCheckedMs"`
	Created     int64  `json:"createdMs"`
}

func (e *Entry) terminal() bool {
	return e.Status == StatusApplied || e.Status == StatusDropped
}

// pollID returns the id used for receipt lookups, preferring the
// server-assigned id.
func (e *Entry) pollID() string {
	if e.ServerID != "" {
		return e.ServerID
	}
	return e.LocalID
}

// ReceiptSource fetches transaction receipts. *rpcclient.Client satisfies it.
type ReceiptSource interface {
	GetTransactionReceipt(ctx context.Context, txID string) (*rpcclient.Receipt, error)
}

// Tracker polls receipts for submitted transactions.
type Tracker struct {
	source    ReceiptSource
	db        storage.DB
	networkID string

	// OnApplied, if set, is called with the tracked address whenever one of
	// its transactions transitions to applied. Used to refresh balances and
	// history. Called outside the tracker lock.
	OnApplied func(address string)

	mu      sync.Mutex
	entries map[string][]*Entry

	stop chan struct{}
	done chan struct{}
}

// New creates a tracker persisting under the given network id.
func New(source ReceiptSource, db storage.DB, networkID string) *Tracker {
	return &Tracker{
		source:    source,
		db:        db,
		networkID: networkID,
		entries:   make(map[string][]*Entry),
	}
}

// Track registers a transaction for polling and persists the list.
func (t *Tracker) Track(address, localID, serverID string) error {
	address = strings.ToLower(address)
	t.mu.Lock()
	now := time.Now().UnixMilli()
	list := t.loadLocked(address)
	list = append(list, &Entry{
		LocalID:  localID,
		ServerID: serverID,
		Status:   StatusPending,
		Created:  now,
	})
	if len(list) > MaxTracked {
		list = list[len(list)-MaxTracked:]
	}
	t.entries[address] = list
	err := t.persistLocked(address)
	t.mu.Unlock()
	return err
}

// Tracked returns a snapshot of the entries for an address, oldest first.
func (t *Tracker) Tracked(address string) []Entry {
	address = strings.ToLower(address)
	t.mu.Lock()
	defer t.mu.Unlock()
	list := t.loadLocked(address)
	out := make([]Entry, len(list))
	for i, e := range list {
		out[i] = *e
	}
	return out
}

// loadLocked returns the in-memory list for address, reading it from
// storage on first access. Callers hold t.mu.
func (t *Tracker) loadLocked(address string) []*Entry {
	if list, ok := t.entries[address]; ok {
		return list
	}
	var list []*Entry
	data, err := t.db.Get(storage.TxListKey(t.networkID, address))
	if err == nil {
		if jsonErr := json.Unmarshal(data, &list); jsonErr != nil {
			log.Tracker.Warn().Err(jsonErr).Str("address", address).Msg("Discarding corrupt tracked-tx list")
			list = nil
		}
	} else if !errors.Is(err, storage.ErrNotFound) {
		log.Tracker.Warn().Err(err).Str("address", address).Msg("Failed to load tracked-tx list")
	}
	t.entries[address] = list
	return list
}

func (t *Tracker) persistLocked(address string) error {
	data, err := json.Marshal(t.entries[address])
	if err != nil {
		return fmt.Errorf("marshal tracked list: %w", err)
	}
	return t.db.Put(storage.TxListKey(t.networkID, address), data)
}

// Start launches the polling loop. Stop with Stop.
func (t *Tracker) Start(ctx context.Context) {
	t.stop = make(chan struct{})
	t.done = make(chan struct{})
	go t.loop(ctx)
}

// Stop halts the polling loop and waits for it to exit.
func (t *Tracker) Stop() {
	if t.stop == nil {
		return
	}
	close(t.stop)
	<-t.done
	t.stop = nil
}

func (t *Tracker) loop(ctx context.Context) {
	defer close(t.done)
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			t.PollOnce(ctx)
		case <-t.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// PollOnce checks every non-terminal entry exactly once.
func (t *Tracker) PollOnce(ctx context.Context) {
	t.mu.Lock()
	type pending struct {
		address string
		entry   *Entry
	}
	var work []pending
	for addr, list := range t.entries {
		for _, e := range list {
			if !e.terminal() && e.pollID() != "" {
				work = append(work, pending{addr, e})
			}
		}
	}
	t.mu.Unlock()

	var applied []string
	for _, p := range work {
		rec, err := t.source.GetTransactionReceipt(ctx, p.entry.pollID())
		now := time.Now().UnixMilli()

		t.mu.Lock()
		p.entry.LastChecked = now
		switch {
		case err != nil && transient(err):
			// Try again next tick.
		case err != nil:
			p.entry.Status = StatusError
			p.entry.LastReceipt = err.Error()
		case rec == nil:
			p.entry.Status = StatusNotFound
		default:
			wasTerminal := p.entry.terminal()
			p.entry.Status = rec.Status
			if raw, jsonErr := json.Marshal(rec); jsonErr == nil {
				p.entry.LastReceipt = string(raw)
			}
			if !wasTerminal && rec.Status == StatusApplied {
				applied = append(applied, p.address)
			}
		}
		if err := t.persistLocked(p.address); err != nil {
			log.Tracker.Warn().Err(err).Str("address", p.address).Msg("Failed to persist tracked-tx list")
		}
		t.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
	}

	if t.OnApplied != nil {
		for _, addr := range applied {
			t.OnApplied(addr)
		}
	}
}

// transient reports whether a poll failure should be retried silently on
// the next tick rather than recorded into the entry.
func transient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var epErr *rpcclient.EndpointsError
	return errors.As(err, &epErr)
}
