// Command ltcd runs the codex background services: the anchor
// publisher, and optionally a retention loop that archives old day
// partitions. It is configured through the environment.
package main

import (
	"context"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/quantaleap/ltc"
	"github.com/quantaleap/ltc/anchor"
	"github.com/quantaleap/ltc/anchor/gcs"
	anchormem "github.com/quantaleap/ltc/anchor/mem"
	"github.com/quantaleap/ltc/log/file"
)

type config struct {
	Root string `env:"LTC_ROOT,required"`

	AnchorBucket string        `env:"LTC_ANCHOR_BUCKET"`
	AnchorCreds  string        `env:"LTC_ANCHOR_CREDENTIALS"`
	Ledger       string        `env:"LTC_LEDGER"` // "mem" or empty
	Interval     time.Duration `env:"LTC_ANCHOR_INTERVAL" envDefault:"30s"`
	Workers      int           `env:"LTC_ANCHOR_WORKERS" envDefault:"4"`

	RetentionDays int    `env:"LTC_RETENTION_DAYS"` // 0 disables archiving
	ArchiveDir    string `env:"LTC_ARCHIVE_DIR"`
}

func main() {
	var c config
	err := env.Parse(&c)
	if err != nil {
		stdlog.Fatalf("Parsing environment: %s", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = run(ctx, c)
	if err != nil && !errors.Is(err, context.Canceled) {
		stdlog.Fatal(err)
	}
}

func run(ctx context.Context, c config) error {
	store := file.New(c.Root)

	var content anchor.ContentStore
	switch {
	case c.AnchorBucket != "":
		var err error
		content, err = gcs.Dial(ctx, c.AnchorBucket, c.AnchorCreds)
		if err != nil {
			return errors.Wrapf(err, "dialing bucket %s", c.AnchorBucket)
		}
	default:
		stdlog.Print("no anchor bucket configured, using in-memory content store")
		content = anchormem.New()
	}

	var ledger anchor.Ledger
	if c.Ledger == "mem" {
		ledger = anchormem.NewLedger()
	}

	p := anchor.NewPublisher(anchor.Config{
		Store:    store,
		Content:  content,
		Ledger:   ledger,
		Interval: c.Interval,
		Workers:  c.Workers,
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return p.Run(ctx)
	})
	if c.RetentionDays > 0 {
		if c.ArchiveDir == "" {
			return errors.New("LTC_RETENTION_DAYS set but LTC_ARCHIVE_DIR empty")
		}
		g.Go(func() error {
			return retain(ctx, store, c.RetentionDays, c.ArchiveDir)
		})
	}

	stdlog.Printf("ltcd running, root %s, anchor interval %s", c.Root, c.Interval)
	return g.Wait()
}

// retain archives day partitions older than `days` once per day.
// Archival moves partitions aside; nothing is deleted.
func retain(ctx context.Context, store *file.Store, days int, dest string) error {
	for {
		cutoff := ltc.DayOf(time.Now().UTC().AddDate(0, 0, -days))
		err := store.ArchiveBefore(ctx, cutoff, dest)
		if err != nil {
			stdlog.Printf("archiving partitions before %s: %s", cutoff, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(24 * time.Hour):
		}
	}
}
