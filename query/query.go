// Package query implements the read path of the codex:
// point lookups, time-range scans, and integrity verification.
package query

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/quantaleap/ltc"
	"github.com/quantaleap/ltc/log"
)

// Filter restricts a range query. Zero-valued fields match everything.
type Filter struct {
	PolicyID   string
	Repository string
	Revision   string
}

func (f *Filter) match(e *ltc.Entry) bool {
	if f == nil {
		return true
	}
	if f.PolicyID != "" && e.PolicyID != f.PolicyID {
		return false
	}
	if f.Repository != "" && e.CodeRef.Repository != f.Repository {
		return false
	}
	if f.Revision != "" && e.CodeRef.Revision != f.Revision {
		return false
	}
	return true
}

// Reader reads entries from an append log,
// joining anchor receipts into the receipts field on the fly.
// The stored entry bytes are never mutated.
type Reader struct {
	s log.Getter
}

// New produces a Reader over s.
func New(s log.Getter) *Reader {
	return &Reader{s: s}
}

// GetEntry gets one entry by id, with receipts populated when the
// entry has been anchored.
func (r *Reader) GetEntry(ctx context.Context, id ltc.ID) (*ltc.Entry, error) {
	e, err := r.s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	err = r.joinReceipt(ctx, e)
	return e, err
}

func (r *Reader) joinReceipt(ctx context.Context, e *ltc.Entry) error {
	rec, err := r.s.GetReceipt(ctx, e.ID)
	if errors.Is(err, ltc.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	e.Receipts.ContentAddress = &rec.ContentAddress
	if rec.LedgerTx != "" {
		tx := rec.LedgerTx
		e.Receipts.LedgerTx = &tx
	}
	return nil
}

// errStop halts a range scan once entries pass the end bound.
var errStop = errors.New("stop")

// QueryRange calls f for each entry with start <= timestamp < end,
// in ascending timestamp order, after applying the filter. It is
// restartable: a failed call can simply be repeated.
func (r *Reader) QueryRange(ctx context.Context, start, end time.Time, filter *Filter, f func(*ltc.Entry) error) error {
	if !end.After(start) {
		return nil
	}
	start = start.UTC()
	end = end.UTC()
	lastDay := ltc.DayOf(end)

	err := r.s.Days(ctx, ltc.DayOf(start), func(day ltc.Day) error {
		if day > lastDay {
			return errStop
		}
		return r.s.Scan(ctx, day, func(e *ltc.Entry) error {
			if e.Timestamp.Before(start) {
				return nil
			}
			if !e.Timestamp.Before(end) {
				// Entries scan in timestamp order; everything
				// after this one is out of range too.
				return errStop
			}
			if !filter.match(e) {
				return nil
			}
			err := r.joinReceipt(ctx, e)
			if err != nil {
				return err
			}
			return f(e)
		})
	})
	if errors.Is(err, errStop) {
		return nil
	}
	return err
}

// VerifyIntegrity recomputes the digest of the stored entry and
// compares it with the stored content hash. It returns nil when the
// entry is intact and an *ltc.IntegrityError when it is tampered;
// tampering is reported, never repaired.
func (r *Reader) VerifyIntegrity(ctx context.Context, id ltc.ID) error {
	e, err := r.s.Get(ctx, id)
	if err != nil {
		return err
	}
	return ltc.VerifyIntegrity(e)
}
