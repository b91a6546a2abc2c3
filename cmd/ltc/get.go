package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"

	"github.com/pkg/errors"

	"github.com/quantaleap/ltc"
	"github.com/quantaleap/ltc/query"
)

func (c maincmd) get(ctx context.Context, fs *flag.FlagSet, args []string) error {
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

	e, err := query.New(c.s).GetEntry(ctx, id)
	if err != nil {
		return errors.Wrapf(err, "getting entry %s", id)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(e), "encoding entry")
}
