// Package mem implements an in-memory content store and ledger,
// for tests and air-gapped deployments.
package mem

import (
	"context"
	"fmt"
	"sync"

	"github.com/quantaleap/ltc"
	"github.com/quantaleap/ltc/anchor"
)

var (
	_ anchor.ContentStore = &Store{}
	_ anchor.Ledger       = &Ledger{}
)

// Store is a memory-based content-addressable store.
type Store struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

// New produces a new Store.
func New() *Store {
	return &Store{blobs: make(map[string][]byte)}
}

// Put adds b to the store if it was not already present.
func (s *Store) Put(_ context.Context, b []byte) (string, bool, error) {
	addr := anchor.Address(b)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.blobs[addr]; ok {
		return addr, false, nil
	}
	stored := make([]byte, len(b))
	copy(stored, b)
	s.blobs[addr] = stored
	return addr, true, nil
}

// Get gets a blob by its content address.
func (s *Store) Get(_ context.Context, addr string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.blobs[addr]
	if !ok {
		return nil, ltc.ErrNotFound
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// Len reports the number of distinct blobs stored.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blobs)
}

// Ledger is a memory-based ledger assigning sequential transaction ids.
// Recording an address twice returns the original transaction.
type Ledger struct {
	mu  sync.Mutex
	n   int
	txs map[string]string
}

// NewLedger produces a new Ledger.
func NewLedger() *Ledger {
	return &Ledger{txs: make(map[string]string)}
}

// Record records a reference to addr, idempotently.
func (l *Ledger) Record(_ context.Context, addr string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if tx, ok := l.txs[addr]; ok {
		return tx, nil
	}
	l.n++
	tx := fmt.Sprintf("memtx-%06d", l.n)
	l.txs[addr] = tx
	return tx, nil
}
