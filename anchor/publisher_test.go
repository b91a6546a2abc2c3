package anchor_test

import (
	"context"
	"io"
	stdlog "log"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/quantaleap/ltc"
	"github.com/quantaleap/ltc/anchor"
	anchormem "github.com/quantaleap/ltc/anchor/mem"
	logmem "github.com/quantaleap/ltc/log/mem"
	"github.com/quantaleap/ltc/testutil"
)

// flaky is a ContentStore that fails until healed.
type flaky struct {
	nested anchor.ContentStore

	mu       sync.Mutex
	healthy  bool
	failures int
}

func (f *flaky) heal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.healthy = true
}

func (f *flaky) Put(ctx context.Context, b []byte) (string, bool, error) {
	f.mu.Lock()
	ok := f.healthy
	if !ok {
		f.failures++
	}
	f.mu.Unlock()

	if !ok {
		return "", false, errors.New("content store unreachable")
	}
	return f.nested.Put(ctx, b)
}

func (f *flaky) Get(ctx context.Context, addr string) ([]byte, error) {
	return f.nested.Get(ctx, addr)
}

func quietLogger() *stdlog.Logger {
	return stdlog.New(io.Discard, "", 0)
}

func TestSweepAnchorsEverything(t *testing.T) {
	ctx := context.Background()
	store := logmem.New()
	content := anchormem.New()
	ledger := anchormem.NewLedger()

	entries := testutil.Entries(t, 3, time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC))
	for _, e := range entries {
		if err := store.Append(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	p := anchor.NewPublisher(anchor.Config{Store: store, Content: content, Ledger: ledger, Logger: quietLogger()})
	if err := p.Sweep(ctx); err != nil {
		t.Fatal(err)
	}

	for _, e := range entries {
		rec, err := store.GetReceipt(ctx, e.ID)
		if err != nil {
			t.Fatalf("receipt for %s: %s", e.ID, err)
		}
		if rec.ContentAddress == "" || rec.LedgerTx == "" {
			t.Errorf("incomplete receipt for %s: %+v", e.ID, rec)
		}

		// The anchored bytes round-trip and match the entry's canonical form.
		got, err := content.Get(ctx, rec.ContentAddress)
		if err != nil {
			t.Fatal(err)
		}
		want, err := ltc.CanonicalBytes(e)
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != string(want) {
			t.Errorf("anchored bytes for %s differ from canonical bytes", e.ID)
		}
	}
}

func TestSweepRecoversFromOutage(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store := logmem.New()
	content := anchormem.New()
	f := &flaky{nested: content}

	entries := testutil.Entries(t, 2, time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC))
	for _, e := range entries {
		if err := store.Append(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	p := anchor.NewPublisher(anchor.Config{
		Store:          store,
		Content:        f,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Logger:         quietLogger(),
	})

	done := make(chan error, 1)
	go func() { done <- p.Sweep(ctx) }()

	// Let the publisher fail a few times, then restore the store.
	for {
		f.mu.Lock()
		n := f.failures
		f.mu.Unlock()
		if n >= 3 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	f.heal()

	if err := <-done; err != nil {
		t.Fatal(err)
	}

	for _, e := range entries {
		if _, err := store.GetReceipt(ctx, e.ID); err != nil {
			t.Errorf("receipt for %s: %s", e.ID, err)
		}
	}
}

func TestSweepIdempotentAndDeduplicating(t *testing.T) {
	ctx := context.Background()
	store := logmem.New()
	content := anchormem.New()

	// Two entries with identical content (distinct ids), plus
	// re-sweeps, must produce exactly one remote blob and one receipt
	// per entry.
	now := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	e1, err := ltc.Build(testutil.Draft(), nil, now)
	if err != nil {
		t.Fatal(err)
	}
	e2, err := ltc.Build(testutil.Draft(), nil, now)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range []*ltc.Entry{e1, e2} {
		if err := store.Append(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	p := anchor.NewPublisher(anchor.Config{Store: store, Content: content, Logger: quietLogger()})
	for i := 0; i < 3; i++ {
		if err := p.Sweep(ctx); err != nil {
			t.Fatal(err)
		}
	}

	// Identical content hashes to one address, so the two entries
	// share one remote blob, and re-sweeping adds nothing.
	if got := content.Len(); got != 1 {
		t.Errorf("content store holds %d blobs, want 1", got)
	}

	rec1, err := store.GetReceipt(ctx, e1.ID)
	if err != nil {
		t.Fatal(err)
	}
	rec2, err := store.GetReceipt(ctx, e2.ID)
	if err != nil {
		t.Fatal(err)
	}
	if rec1.ContentAddress != rec2.ContentAddress {
		t.Errorf("identical content got distinct content addresses: %s / %s", rec1.ContentAddress, rec2.ContentAddress)
	}
	if rec1.LTCID == rec2.LTCID {
		t.Error("receipts collapsed across distinct ids")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := logmem.New()

	p := anchor.NewPublisher(anchor.Config{
		Store:    store,
		Content:  anchormem.New(),
		Interval: time.Millisecond,
		Logger:   quietLogger(),
	})

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("got %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
