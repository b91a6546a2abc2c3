// Package testutil supplies shared helpers for exercising append log
// implementations.
package testutil

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/quantaleap/ltc"
	"github.com/quantaleap/ltc/log"
)

// Draft returns a valid decision draft resembling a lead-scoring run.
func Draft() *ltc.Draft {
	var inputs, outputs ltc.Payload
	inputs.Set("acv", 25000)
	inputs.Set("intent_score", 0.74)
	outputs.Set("score", 0.87)
	outputs.Set("tier", "A")
	return &ltc.Draft{
		RequestFingerprint: "req-9f3a",
		PolicyID:           "sales.leads.v1",
		CodeRef:            ltc.CodeRef{Repository: "quantaleap/scoring", Revision: "4be91c2"},
		Solver:             ltc.Solver{Backend: "heuristic.greedy", Version: "0.1.0"},
		Inputs:             inputs,
		Outputs:            outputs,
		TimingMS:           ltc.Timing{Total: 12.5, Solver: 3.1},
		Explanation:        "greedy heuristic over intent features",
	}
}

// Entries builds n entries at one-minute intervals starting at `start`.
func Entries(t *testing.T, n int, start time.Time) []*ltc.Entry {
	t.Helper()

	out := make([]*ltc.Entry, 0, n)
	for i := 0; i < n; i++ {
		e, err := ltc.Build(Draft(), nil, start.Add(time.Duration(i)*time.Minute))
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, e)
	}
	return out
}

// AppendLog permits testing a log.Store implementation by appending
// entries across two day partitions and reading them back in every
// supported way.
func AppendLog(ctx context.Context, t *testing.T, s log.Store) {
	var (
		day1 = time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
		day2 = time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	)

	batch1 := Entries(t, 3, day1)
	batch2 := Entries(t, 2, day2)

	all := append(append([]*ltc.Entry{}, batch1...), batch2...)
	UniqueIDs(t, all)

	for _, e := range all {
		err := s.Append(ctx, e)
		if err != nil {
			t.Fatal(err)
		}
	}

	// A duplicate id is rejected.
	err := s.Append(ctx, batch1[0])
	if !errors.Is(err, ltc.ErrExists) {
		t.Errorf("duplicate append: got %v, want ltc.ErrExists", err)
	}

	// Point lookups round-trip every entry, and each id embeds the day
	// partition its entry landed in.
	for _, want := range all {
		if got, want := DayOfID(t, want.ID), ltc.DayOf(want.Timestamp); got != want {
			t.Errorf("id day %s, want %s", got, want)
		}
		got, err := s.Get(ctx, want.ID)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("entry %s mismatch (-want +got):\n%s", want.ID, diff)
		}
	}

	_, err = s.Get(ctx, "ltc_20260101T000000.000000Z_abcdef")
	if !errors.Is(err, ltc.ErrNotFound) {
		t.Errorf("missing entry: got %v, want ltc.ErrNotFound", err)
	}

	// Scans return each day's entries in timestamp order.
	var scanned []*ltc.Entry
	err = s.Scan(ctx, ltc.DayOf(day1), func(e *ltc.Entry) error {
		scanned = append(scanned, e)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(scanned) != len(batch1) {
		t.Fatalf("scanned %d entries, want %d", len(scanned), len(batch1))
	}
	for i := 1; i < len(scanned); i++ {
		if scanned[i].Timestamp.Before(scanned[i-1].Timestamp) {
			t.Errorf("scan order violation at %d: %s before %s", i, scanned[i].Timestamp, scanned[i-1].Timestamp)
		}
	}

	// Days enumerates partitions in order, honoring start.
	var days []ltc.Day
	err = s.Days(ctx, "", func(d ltc.Day) error {
		days = append(days, d)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	wantDays := []ltc.Day{ltc.DayOf(day1), ltc.DayOf(day2)}
	if diff := cmp.Diff(wantDays, days); diff != "" {
		t.Errorf("days mismatch (-want +got):\n%s", diff)
	}

	days = days[:0]
	err = s.Days(ctx, ltc.DayOf(day2), func(d ltc.Day) error {
		days = append(days, d)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]ltc.Day{ltc.DayOf(day2)}, days); diff != "" {
		t.Errorf("days-from-start mismatch (-want +got):\n%s", diff)
	}
}

// Receipts permits testing a log.Store's receipt space.
func Receipts(ctx context.Context, t *testing.T, s log.Store) {
	e, err := ltc.Build(Draft(), nil, time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	err = s.Append(ctx, e)
	if err != nil {
		t.Fatal(err)
	}

	_, err = s.GetReceipt(ctx, e.ID)
	if !errors.Is(err, ltc.ErrNotFound) {
		t.Fatalf("unanchored entry: got %v, want ltc.ErrNotFound", err)
	}

	rec := &ltc.AnchorReceipt{
		LTCID:          e.ID,
		ContentAddress: "sha256:" + e.ContentHash.String(),
		LedgerTx:       "memtx-000001",
		AnchoredAt:     time.Date(2026, 8, 30, 10, 5, 0, 0, time.UTC),
	}
	err = s.PutReceipt(ctx, rec)
	if err != nil {
		t.Fatal(err)
	}
	// Re-recording is idempotent.
	err = s.PutReceipt(ctx, rec)
	if err != nil {
		t.Fatal(err)
	}

	got, err := s.GetReceipt(ctx, e.ID)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(rec, got); diff != "" {
		t.Errorf("receipt mismatch (-want +got):\n%s", diff)
	}

	// The stored entry bytes still carry the null receipt pair.
	stored, err := s.Get(ctx, e.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Receipts.ContentAddress != nil || stored.Receipts.LedgerTx != nil {
		t.Error("anchoring rewrote the stored entry's receipts")
	}
}

// UniqueIDs asserts that ids in a batch of entries are all distinct.
func UniqueIDs(t *testing.T, entries []*ltc.Entry) {
	t.Helper()

	seen := make(map[ltc.ID]bool)
	for _, e := range entries {
		if seen[e.ID] {
			t.Fatalf("duplicate id %s", e.ID)
		}
		seen[e.ID] = true
	}
}

// NowFunc returns a deterministic clock that advances by `step` on
// each call, starting at `start`.
func NowFunc(start time.Time, step time.Duration) func() time.Time {
	n := 0
	return func() time.Time {
		t := start.Add(time.Duration(n) * step)
		n++
		return t
	}
}

// DayOfID is a test convenience: the day partition of an id, fatal on
// malformed ids.
func DayOfID(t *testing.T, id ltc.ID) ltc.Day {
	t.Helper()

	day, err := id.Day()
	if err != nil {
		t.Fatal(err)
	}
	return day
}
