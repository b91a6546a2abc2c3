package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/pkg/errors"

	"github.com/quantaleap/ltc"
	"github.com/quantaleap/ltc/query"
)

func (c maincmd) verify(ctx context.Context, fs *flag.FlagSet, args []string) error {
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}

	args = fs.Args()
	if len(args) == 0 {
		return errors.New("missing entry id")
	}

	id := ltc.ID(args[0])
	if !id.Valid() {
		return errors.Errorf("malformed id %s", args[0])
	}

	err = query.New(c.s).VerifyIntegrity(ctx, id)
	var ierr *ltc.IntegrityError
	if errors.As(err, &ierr) {
		fmt.Printf("tampered %s: want %s, got %s\n", ierr.ID, ierr.Want, ierr.Got)
		return err
	}
	if err != nil {
		return errors.Wrapf(err, "verifying %s", id)
	}

	fmt.Printf("ok %s\n", id)
	return nil
}
