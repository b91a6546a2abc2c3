package main

import (
	"context"
	"flag"

	"github.com/pkg/errors"

	"github.com/quantaleap/ltc/anchor"
	"github.com/quantaleap/ltc/anchor/gcs"
	anchormem "github.com/quantaleap/ltc/anchor/mem"
)

// anchor runs one anchoring sweep: every unanchored entry is published
// to the configured content store and its receipt recorded.
func (c maincmd) anchor(ctx context.Context, fs *flag.FlagSet, args []string) error {
	workers := fs.Int("workers", 0, "concurrent publishes (default 4)")
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}

	content, ledger, err := anchorBackends(ctx, c.conf)
	if err != nil {
		return err
	}

	p := anchor.NewPublisher(anchor.Config{
		Store:   c.s,
		Content: content,
		Ledger:  ledger,
		Workers: *workers,
	})
	return p.Sweep(ctx)
}

func anchorBackends(ctx context.Context, conf map[string]interface{}) (anchor.ContentStore, anchor.Ledger, error) {
	aconf, ok := conf["anchor"].(map[string]interface{})
	if !ok {
		return nil, nil, errors.New(`config missing "anchor" section`)
	}

	var content anchor.ContentStore
	switch {
	case aconf["bucket"] != nil:
		bucket, ok := aconf["bucket"].(string)
		if !ok {
			return nil, nil, errors.New(`"bucket" parameter must be a string`)
		}
		creds, _ := aconf["creds"].(string)
		var err error
		content, err = gcs.Dial(ctx, bucket, creds)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "dialing bucket %s", bucket)
		}
	case aconf["type"] == "mem":
		content = anchormem.New()
	default:
		return nil, nil, errors.New(`anchor section needs "bucket" or type "mem"`)
	}

	var ledger anchor.Ledger
	if aconf["ledger"] == "mem" {
		ledger = anchormem.NewLedger()
	}

	return content, ledger, nil
}
