// Package record implements the synchronous write path of the codex:
// redact, build, append.
package record

import (
	"context"
	stdlog "log"
	"time"

	"github.com/quantaleap/ltc"
	"github.com/quantaleap/ltc/log"
	"github.com/quantaleap/ltc/redact"
)

// Recorder turns decision drafts into durable codex entries.
//
// Record is synchronous with respect to local durability only:
// once it returns an id, the entry is on disk and stays queryable
// no matter what later happens to anchoring.
type Recorder struct {
	store    log.Store
	redactor *redact.Redactor
	logger   *stdlog.Logger
	now      func() time.Time
}

// New produces a Recorder writing to `store` and masking drafts with
// `redactor`. A nil redactor disables policy redaction; per-call
// redact fields still apply.
func New(store log.Store, redactor *redact.Redactor) (*Recorder, error) {
	if redactor == nil {
		var err error
		redactor, err = redact.New(nil)
		if err != nil {
			return nil, err
		}
	}
	return &Recorder{
		store:    store,
		redactor: redactor,
		now:      time.Now,
	}, nil
}

// SetLogger directs redaction warnings to l instead of the default logger.
func (r *Recorder) SetLogger(l *stdlog.Logger) {
	r.logger = l
}

// Record validates, redacts, and durably appends one decision.
// `extraRedact` names additional fields to mask for this call only.
//
// Validation and durability failures surface here; redaction warnings
// are logged and non-fatal; anchoring failures never reach this path.
func (r *Recorder) Record(ctx context.Context, d *ltc.Draft, extraRedact ...string) (ltc.ID, error) {
	cleaned, redactions, warnings := r.redactor.Redact(d, extraRedact...)
	for _, w := range warnings {
		r.logf("record: field %q looks sensitive but matched no redaction rule", w)
	}

	e, err := ltc.Build(cleaned, redactions, r.now())
	if err != nil {
		return "", err
	}

	err = r.store.Append(ctx, e)
	if err != nil {
		return "", err
	}
	return e.ID, nil
}

func (r *Recorder) logf(format string, args ...interface{}) {
	if r.logger != nil {
		r.logger.Printf(format, args...)
		return
	}
	stdlog.Printf(format, args...)
}
