package record

import (
	"context"
	"errors"
	"io"
	stdlog "log"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/quantaleap/ltc"
	"github.com/quantaleap/ltc/log/mem"
	"github.com/quantaleap/ltc/redact"
	"github.com/quantaleap/ltc/testutil"
)

func newRecorder(t *testing.T, store *mem.Store) *Recorder {
	t.Helper()

	r, err := New(store, nil)
	if err != nil {
		t.Fatal(err)
	}
	r.SetLogger(stdlog.New(io.Discard, "", 0))
	return r
}

// TestRecordScenario is the end-to-end lead-scoring scenario:
// a recorded draft with a redacted email comes back masked, flagged,
// and integrity-verifiable.
func TestRecordScenario(t *testing.T) {
	ctx := context.Background()
	store := mem.New()
	r := newRecorder(t, store)

	d := testutil.Draft()
	d.Inputs.Set("email", "a@b.com")

	id, err := r.Record(ctx, d, "email")
	if err != nil {
		t.Fatal(err)
	}

	if matched := regexp.MustCompile(`^ltc_.+_[0-9a-f]{6}$`).MatchString(string(id)); !matched {
		t.Errorf("id %s does not match expected format", id)
	}

	e, err := store.Get(ctx, id)
	if err != nil {
		t.Fatal(err)
	}

	if got, _ := e.Inputs.Get("email"); got != redact.DefaultMarker {
		t.Errorf("email: got %v, want %s", got, redact.DefaultMarker)
	}
	if len(e.Redactions) != 1 || e.Redactions[0] != "email" {
		t.Errorf("redactions: got %v, want [email]", e.Redactions)
	}
	if err := ltc.VerifyIntegrity(e); err != nil {
		t.Error(err)
	}
}

func TestRecordUniqueIDsIdenticalContent(t *testing.T) {
	ctx := context.Background()
	store := mem.New()
	r := newRecorder(t, store)
	r.now = testutil.NowFunc(time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC), 0)

	id1, err := r.Record(ctx, testutil.Draft())
	if err != nil {
		t.Fatal(err)
	}
	id2, err := r.Record(ctx, testutil.Draft())
	if err != nil {
		t.Fatal(err)
	}
	if id1 == id2 {
		t.Fatal("identical drafts produced the same id")
	}

	e1, err := store.Get(ctx, id1)
	if err != nil {
		t.Fatal(err)
	}
	e2, err := store.Get(ctx, id2)
	if err != nil {
		t.Fatal(err)
	}

	// Identity stays distinct, content hashes collapse.
	if e1.ContentHash != e2.ContentHash {
		t.Errorf("identical content produced different content_hashes: %s / %s", e1.ContentHash, e2.ContentHash)
	}
}

func TestRecordValidation(t *testing.T) {
	ctx := context.Background()
	store := mem.New()
	r := newRecorder(t, store)

	d := testutil.Draft()
	d.PolicyID = ""

	_, err := r.Record(ctx, d)
	var ve *ltc.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("got %v, want *ltc.ValidationError", err)
	}

	// Nothing was persisted.
	err = store.Days(ctx, "", func(ltc.Day) error {
		return errors.New("found a partition")
	})
	if err != nil {
		t.Errorf("rejected draft left state behind: %s", err)
	}
}

func TestRecordWarningLogged(t *testing.T) {
	ctx := context.Background()
	store := mem.New()

	r, err := New(store, nil)
	if err != nil {
		t.Fatal(err)
	}
	var buf strings.Builder
	r.SetLogger(stdlog.New(&buf, "", 0))

	d := testutil.Draft()
	d.Inputs.Set("user_email", "a@b.com")

	id, err := r.Record(ctx, d)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "user_email") {
		t.Errorf("warning not logged: %q", buf.String())
	}

	// The warning is non-fatal and the field stays unmasked.
	e, err := store.Get(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := e.Inputs.Get("user_email"); got != "a@b.com" {
		t.Errorf("warned field modified: %v", got)
	}
}

func TestRecordConcurrent(t *testing.T) {
	ctx := context.Background()
	store := mem.New()
	r := newRecorder(t, store)

	const n = 25
	ids := make(chan ltc.ID, n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			id, err := r.Record(ctx, testutil.Draft())
			ids <- id
			errs <- err
		}()
	}

	seen := make(map[ltc.ID]bool)
	for i := 0; i < n; i++ {
		if err := <-errs; err != nil {
			t.Fatal(err)
		}
		id := <-ids
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}

	var count int
	err := store.Days(ctx, "", func(day ltc.Day) error {
		return store.Scan(ctx, day, func(e *ltc.Entry) error {
			count++
			return ltc.VerifyIntegrity(e)
		})
	})
	if err != nil {
		t.Fatal(err)
	}
	if count != n {
		t.Errorf("stored %d entries, want %d", count, n)
	}
}
