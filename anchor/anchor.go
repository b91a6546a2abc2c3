// Package anchor publishes codex entries to external content-addressed
// storage for independent verifiability.
//
// Anchoring is a pluggable, best-effort capability: its failure never
// invalidates an entry's local durability or queryability, and no
// specific ledger technology is required.
package anchor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// ContentStore is an external content-addressable store.
// Putting the same bytes twice yields the same address with
// added=false: the store deduplicates identical content, which is what
// makes at-least-once publishing safe.
type ContentStore interface {
	// Put stores b if it was not already present.
	// It returns b's content address and a boolean that is true iff
	// the blob had to be added.
	Put(ctx context.Context, b []byte) (addr string, added bool, err error)

	// Get gets a blob by its content address.
	Get(ctx context.Context, addr string) ([]byte, error)
}

// Ledger records a reference transaction pointing at anchored content
// on an external ledger. Implementations must be idempotent per
// address: recording an address again may return the original
// transaction.
type Ledger interface {
	Record(ctx context.Context, addr string) (tx string, err error)
}

// Address computes the content address of a blob.
func Address(b []byte) string {
	sum := sha256.Sum256(b)
	return "sha256:" + hex.EncodeToString(sum[:])
}
