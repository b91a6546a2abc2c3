// Package log describes the partitioned append log that holds codex
// entries, and a registry of its implementations.
package log

import (
	"context"

	"github.com/quantaleap/ltc"
)

// Getter is the read side of a Store.
type Getter interface {
	// Get gets the entry with the given id.
	// Implementations return a copy the caller may annotate
	// (the query layer fills in receipts on read).
	Get(context.Context, ltc.ID) (*ltc.Entry, error)

	// Scan calls a function for each entry in the given day partition,
	// in id (and therefore timestamp) order. Entries appended
	// concurrently with a Scan may or may not be reflected; a scan
	// never observes a partially written entry.
	//
	// If the callback returns an error, Scan exits with that error.
	Scan(ctx context.Context, day ltc.Day, f func(*ltc.Entry) error) error

	// Days calls a function for each non-empty day partition not
	// before `start`, in ascending order.
	Days(ctx context.Context, start ltc.Day, f func(ltc.Day) error) error

	// GetReceipt gets the anchor receipt for the given entry id,
	// or ltc.ErrNotFound if the entry has not been anchored.
	GetReceipt(context.Context, ltc.ID) (*ltc.AnchorReceipt, error)
}

// Store is a partitioned append log.
// Entries land in the UTC day partition of their timestamp and are
// immutable once appended. Receipts live beside the entries in a
// separate append-style space keyed by entry id.
type Store interface {
	Getter

	// Append durably writes an entry to its day partition.
	// It fails with ltc.ErrExists if the id is already present,
	// and with *ltc.DurabilityError if the write cannot be made
	// durable; in the latter case no partial state is visible.
	Append(context.Context, *ltc.Entry) error

	// PutReceipt records an anchor receipt. Re-recording the same
	// receipt is a no-op: anchoring is idempotent.
	PutReceipt(context.Context, *ltc.AnchorReceipt) error
}
