// Package nonce assigns outgoing transaction nonces per sender.
//
// Each sender gets strictly increasing nonces even when sends are initiated
// concurrently. The first allocation for a sender reads the committed nonce
// from the node and starts at committed+1; later allocations count up in
// memory. Another process spending from the same account surfaces as a
// broadcast error, after which BumpFloor re-synchronizes.
package nonce

import (
	"context"
	"sync"
)

// Source reads an account's highest committed nonce from the chain.
// *rpcclient.Client satisfies it.
type Source interface {
	GetNonce(ctx context.Context, address string) (uint64, error)
}

// Allocator hands out per-sender nonces.
type Allocator struct {
	source Source

	mu      sync.Mutex
	senders map[string]*senderState
}

// senderState serializes allocations for one sender. The buffered channel
// is a mutex whose waiters are served in FIFO order, so concurrent
// Allocate calls return values in call order.
type senderState struct {
	sem  chan struct{}
	next uint64
	set  bool
}

// NewAllocator creates an allocator backed by the given nonce source.
func NewAllocator(source Source) *Allocator {
	return &Allocator{
		source:  source,
		senders: make(map[string]*senderState),
	}
}

func (a *Allocator) state(sender string) *senderState {
	a.mu.Lock()
	defer a.mu.Unlock()
	st, ok := a.senders[sender]
	if !ok {
		st = &senderState{sem: make(chan struct{}, 1)}
		a.senders[sender] = st
	}
	return st
}

// Allocate returns the next nonce for sender. Calls for the same sender are
// FIFO-ordered; the returned values are strictly increasing and contiguous.
// The chain is queried only on the first allocation for a sender.
func (a *Allocator) Allocate(ctx context.Context, sender string) (uint64, error) {
	st := a.state(sender)

	select {
	case st.sem <- struct{}{}:
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	defer func() { <-st.sem }()

	if !st.set {
		committed, err := a.source.GetNonce(ctx, sender)
		if err != nil {
			return 0, err
		}
		st.next = committed + 1
		st.set = true
	}

	n := st.next
	st.next = n + 1
	return n, nil
}

// BumpFloor raises sender's floor so the next allocation returns at least
// committed+1. The floor never moves down. Called after balance or nonce
// refreshes and on broadcast failures.
func (a *Allocator) BumpFloor(sender string, committed uint64) {
	st := a.state(sender)
	st.sem <- struct{}{}
	defer func() { <-st.sem }()

	if !st.set || committed+1 > st.next {
		st.next = committed + 1
		st.set = true
	}
}

// Reset forgets sender's in-memory floor. The next allocation re-reads the
// committed nonce from the chain.
func (a *Allocator) Reset(sender string) {
	st := a.state(sender)
	st.sem <- struct{}{}
	defer func() { <-st.sem }()
	st.set = false
	st.next = 0
}
