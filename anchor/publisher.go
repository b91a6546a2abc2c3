package anchor

import (
	"context"
	stdlog "log"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/quantaleap/ltc"
	"github.com/quantaleap/ltc/log"
)

// Config configures a Publisher. Store and Content are mandatory;
// everything else has defaults.
type Config struct {
	Store   log.Store
	Content ContentStore
	Ledger  Ledger // optional

	Interval time.Duration // sweep period; default 30s
	Workers  int           // concurrent publishes per sweep; default 4

	// Retry schedule for remote failures.
	InitialBackoff time.Duration // default 1s
	MaxBackoff     time.Duration // default 5m

	Logger *stdlog.Logger // optional
}

// Publisher is the background worker that anchors entries.
// It selects entries without a receipt, pushes their canonical bytes
// to the content store, optionally records a ledger reference, and
// writes an anchor receipt. Multiple replicas are safe without
// coordination: content addressing deduplicates remote writes.
type Publisher struct {
	store   log.Store
	content ContentStore
	ledger  Ledger

	interval       time.Duration
	workers        int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	logger         *stdlog.Logger
}

// NewPublisher produces a Publisher from c, applying defaults.
func NewPublisher(c Config) *Publisher {
	p := &Publisher{
		store:          c.Store,
		content:        c.Content,
		ledger:         c.Ledger,
		interval:       c.Interval,
		workers:        c.Workers,
		initialBackoff: c.InitialBackoff,
		maxBackoff:     c.MaxBackoff,
		logger:         c.Logger,
	}
	if p.interval <= 0 {
		p.interval = 30 * time.Second
	}
	if p.workers <= 0 {
		p.workers = 4
	}
	if p.initialBackoff <= 0 {
		p.initialBackoff = time.Second
	}
	if p.maxBackoff <= 0 {
		p.maxBackoff = 5 * time.Minute
	}
	return p
}

// Run sweeps repeatedly until ctx is canceled.
// Sweep errors are logged, never fatal: anchoring is best-effort and
// the next sweep retries whatever is still unanchored.
func (p *Publisher) Run(ctx context.Context) error {
	for {
		err := p.Sweep(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			p.logf("anchor sweep: %s", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.interval):
		}
	}
}

// Sweep publishes every entry that has no anchor receipt yet.
// It blocks until all of them are anchored or ctx is canceled:
// individual publishes retry remote failures indefinitely.
func (p *Publisher) Sweep(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)

	ch := make(chan *ltc.Entry)
	for i := 0; i < p.workers; i++ {
		eg.Go(func() error {
			for e := range ch {
				err := p.publish(ctx, e)
				if err != nil {
					return err
				}
			}
			return nil
		})
	}

	eg.Go(func() error {
		defer close(ch)
		return p.store.Days(ctx, "", func(day ltc.Day) error {
			return p.store.Scan(ctx, day, func(e *ltc.Entry) error {
				_, err := p.store.GetReceipt(ctx, e.ID)
				if err == nil {
					return nil // already anchored
				}
				if !errors.Is(err, ltc.ErrNotFound) {
					return err
				}
				select {
				case <-ctx.Done():
					return ctx.Err()
				case ch <- e:
					return nil
				}
			})
		})
	})

	return eg.Wait()
}

// publish anchors one entry, retrying remote failures with capped
// exponential backoff until success or cancellation. The receipt write
// is local and not retried here; the next sweep picks the entry up
// again if it fails, and the remote store deduplicates the re-publish.
func (p *Publisher) publish(ctx context.Context, e *ltc.Entry) error {
	b, err := ltc.CanonicalBytes(e)
	if err != nil {
		return errors.Wrapf(err, "canonicalizing %s", e.ID)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.initialBackoff
	bo.MaxInterval = p.maxBackoff
	bo.MaxElapsedTime = 0 // retry until canceled

	var addr, tx string
	op := func() error {
		var err error
		addr, _, err = p.content.Put(ctx, b)
		if err != nil {
			return errors.Wrapf(err, "pushing content of %s", e.ID)
		}
		if p.ledger != nil {
			tx, err = p.ledger.Record(ctx, addr)
			if err != nil {
				return errors.Wrapf(err, "recording ledger reference for %s", e.ID)
			}
		}
		return nil
	}
	notify := func(err error, next time.Duration) {
		p.logf("anchoring %s: %s (retrying in %s)", e.ID, err, next)
	}
	err = backoff.RetryNotify(op, backoff.WithContext(bo, ctx), notify)
	if err != nil {
		return err
	}

	rec := &ltc.AnchorReceipt{
		LTCID:          e.ID,
		ContentAddress: addr,
		LedgerTx:       tx,
		AnchoredAt:     time.Now().UTC(),
	}
	return errors.Wrapf(p.store.PutReceipt(ctx, rec), "writing receipt for %s", e.ID)
}

func (p *Publisher) logf(format string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Printf(format, args...)
		return
	}
	stdlog.Printf(format, args...)
}
