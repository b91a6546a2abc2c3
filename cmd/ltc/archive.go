package main

import (
	"context"
	"flag"
	stdlog "log"

	"github.com/pkg/errors"

	"github.com/quantaleap/ltc"
	"github.com/quantaleap/ltc/log/file"
)

func (c maincmd) archive(ctx context.Context, fs *flag.FlagSet, args []string) error {
	var (
		before = fs.String("before", "", "archive day partitions before this UTC day (YYYY-MM-DD)")
		dest   = fs.String("dest", "", "destination root for archived partitions")
	)
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}

	if *before == "" || *dest == "" {
		return errors.New("must supply -before and -dest")
	}
	cutoff := ltc.Day(*before)
	if !cutoff.Valid() {
		return errors.Errorf("malformed day %s", *before)
	}

	fstore, ok := c.s.(*file.Store)
	if !ok {
		return errors.New("archiving requires a file-type store")
	}

	err = fstore.ArchiveBefore(ctx, cutoff, *dest)
	if err != nil {
		return errors.Wrap(err, "archiving")
	}

	stdlog.Printf("archived partitions before %s to %s", cutoff, *dest)
	return nil
}
