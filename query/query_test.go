package query

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/quantaleap/ltc"
	memlog "github.com/quantaleap/ltc/log/mem"
	"github.com/quantaleap/ltc/testutil"
)

func TestQueryRangeBounds(t *testing.T) {
	ctx := context.Background()
	s := memlog.New()

	// Two entries on each of three consecutive days.
	start := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	var all []*ltc.Entry
	for d := 0; d < 3; d++ {
		all = append(all, testutil.Entries(t, 2, start.AddDate(0, 0, d))...)
	}
	for _, e := range all {
		if err := s.Append(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	r := New(s)

	collect := func(lo, hi time.Time) []ltc.ID {
		var got []ltc.ID
		err := r.QueryRange(ctx, lo, hi, nil, func(e *ltc.Entry) error {
			got = append(got, e.ID)
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
		return got
	}

	// The full span covers everything, in timestamp order.
	got := collect(start, start.AddDate(0, 0, 3))
	if len(got) != len(all) {
		t.Fatalf("full range: got %d entries, want %d", len(got), len(all))
	}
	for i, e := range all {
		if got[i] != e.ID {
			t.Errorf("order violation at %d: got %s, want %s", i, got[i], e.ID)
		}
	}

	// Start is inclusive, end is exclusive.
	exact := collect(all[2].Timestamp, all[4].Timestamp)
	if len(exact) != 2 || exact[0] != all[2].ID || exact[1] != all[3].ID {
		t.Errorf("half-open bounds: got %v", exact)
	}

	// An empty or inverted interval yields nothing.
	if got := collect(start, start); len(got) != 0 {
		t.Errorf("empty interval produced %d entries", len(got))
	}
	if got := collect(start.AddDate(0, 0, 3), start); len(got) != 0 {
		t.Errorf("inverted interval produced %d entries", len(got))
	}
}

func TestQueryRangeFilter(t *testing.T) {
	ctx := context.Background()
	s := memlog.New()

	now := testutil.NowFunc(time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC), time.Minute)

	build := func(policy, repo, rev string) *ltc.Entry {
		d := testutil.Draft()
		d.PolicyID = policy
		d.CodeRef = ltc.CodeRef{Repository: repo, Revision: rev}
		e, err := ltc.Build(d, nil, now())
		if err != nil {
			t.Fatal(err)
		}
		if err := s.Append(ctx, e); err != nil {
			t.Fatal(err)
		}
		return e
	}

	a := build("sales.leads.v1", "quantaleap/scoring", "4be91c2")
	build("sales.leads.v2", "quantaleap/scoring", "4be91c2")
	build("sales.leads.v1", "quantaleap/routing", "91ffa03")

	r := New(s)
	lo := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	hi := lo.AddDate(0, 0, 1)

	count := func(f *Filter) int {
		n := 0
		err := r.QueryRange(ctx, lo, hi, f, func(*ltc.Entry) error {
			n++
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
		return n
	}

	if got := count(nil); got != 3 {
		t.Errorf("nil filter: got %d, want 3", got)
	}
	if got := count(&Filter{PolicyID: "sales.leads.v1"}); got != 2 {
		t.Errorf("policy filter: got %d, want 2", got)
	}
	if got := count(&Filter{Repository: "quantaleap/scoring"}); got != 2 {
		t.Errorf("repository filter: got %d, want 2", got)
	}
	if got := count(&Filter{PolicyID: "sales.leads.v1", Revision: "4be91c2"}); got != 1 {
		t.Errorf("combined filter: got %d, want 1", got)
	}

	var only ltc.ID
	err := r.QueryRange(ctx, lo, hi, &Filter{PolicyID: "sales.leads.v1", Repository: "quantaleap/scoring"}, func(e *ltc.Entry) error {
		only = e.ID
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if only != a.ID {
		t.Errorf("combined filter matched %s, want %s", only, a.ID)
	}
}

func TestGetEntryReceiptJoin(t *testing.T) {
	ctx := context.Background()
	s := memlog.New()

	entries := testutil.Entries(t, 2, time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC))
	for _, e := range entries {
		if err := s.Append(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	rec := &ltc.AnchorReceipt{
		LTCID:          entries[0].ID,
		ContentAddress: "sha256:" + entries[0].ContentHash.String(),
		LedgerTx:       "memtx-000001",
		AnchoredAt:     time.Date(2026, 8, 30, 9, 30, 0, 0, time.UTC),
	}
	if err := s.PutReceipt(ctx, rec); err != nil {
		t.Fatal(err)
	}

	r := New(s)

	anchored, err := r.GetEntry(ctx, entries[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if anchored.Receipts.ContentAddress == nil || *anchored.Receipts.ContentAddress != rec.ContentAddress {
		t.Errorf("content address not joined: %v", anchored.Receipts.ContentAddress)
	}
	if anchored.Receipts.LedgerTx == nil || *anchored.Receipts.LedgerTx != rec.LedgerTx {
		t.Errorf("ledger tx not joined: %v", anchored.Receipts.LedgerTx)
	}

	// The join is in-memory only.
	stored, err := s.Get(ctx, entries[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Receipts.ContentAddress != nil || stored.Receipts.LedgerTx != nil {
		t.Error("receipt join leaked into the stored entry")
	}

	unanchored, err := r.GetEntry(ctx, entries[1].ID)
	if err != nil {
		t.Fatal(err)
	}
	if unanchored.Receipts.ContentAddress != nil || unanchored.Receipts.LedgerTx != nil {
		t.Error("unanchored entry has receipts")
	}

	// Range scans join too.
	var joined int
	lo := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	err = r.QueryRange(ctx, lo, lo.AddDate(0, 0, 1), nil, func(e *ltc.Entry) error {
		if e.Receipts.ContentAddress != nil {
			joined++
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if joined != 1 {
		t.Errorf("joined %d entries during range scan, want 1", joined)
	}
}

func TestVerifyIntegrity(t *testing.T) {
	ctx := context.Background()
	s := memlog.New()

	e, err := ltc.Build(testutil.Draft(), nil, time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if err = s.Append(ctx, e); err != nil {
		t.Fatal(err)
	}

	// A tampered copy: the outputs changed after hashing.
	tampered := *e
	tampered.ID, err = ltc.NewID(e.Timestamp.Add(time.Second))
	if err != nil {
		t.Fatal(err)
	}
	tampered.Outputs = tampered.Outputs.Clone()
	tampered.Outputs.Set("score", 0.99)
	if err = s.Append(ctx, &tampered); err != nil {
		t.Fatal(err)
	}

	r := New(s)

	if err = r.VerifyIntegrity(ctx, e.ID); err != nil {
		t.Errorf("intact entry: got %v, want nil", err)
	}

	err = r.VerifyIntegrity(ctx, tampered.ID)
	var ierr *ltc.IntegrityError
	if !errors.As(err, &ierr) {
		t.Fatalf("tampered entry: got %v, want *ltc.IntegrityError", err)
	}
	if ierr.ID != tampered.ID {
		t.Errorf("integrity error names %s, want %s", ierr.ID, tampered.ID)
	}

	err = r.VerifyIntegrity(ctx, "ltc_20260101T000000.000000Z_abcdef")
	if !errors.Is(err, ltc.ErrNotFound) {
		t.Errorf("missing entry: got %v, want ltc.ErrNotFound", err)
	}
}
