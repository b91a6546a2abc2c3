package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/quantaleap/ltc"
	"github.com/quantaleap/ltc/query"
)

func (c maincmd) scan(ctx context.Context, fs *flag.FlagSet, args []string) error {
	var (
		startstr = fs.String("start", "", "start of time range, inclusive")
		endstr   = fs.String("end", "", "end of time range, exclusive (default: now)")
		policy   = fs.String("policy", "", "restrict to this policy id")
		repo     = fs.String("repo", "", "restrict to this code repository")
		rev      = fs.String("rev", "", "restrict to this code revision")
		full     = fs.Bool("full", false, "print full entries as JSON lines")
	)
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}

	if *startstr == "" {
		return errors.New("must supply -start")
	}
	start, err := parsetime(*startstr)
	if err != nil {
		return errors.Wrap(err, "parsing -start")
	}

	end := time.Now()
	if *endstr != "" {
		end, err = parsetime(*endstr)
		if err != nil {
			return errors.Wrap(err, "parsing -end")
		}
	}

	filter := &query.Filter{PolicyID: *policy, Repository: *repo, Revision: *rev}
	enc := json.NewEncoder(os.Stdout)

	return query.New(c.s).QueryRange(ctx, start, end, filter, func(e *ltc.Entry) error {
		if *full {
			return enc.Encode(e)
		}
		_, err := fmt.Printf("%s %s %s\n", e.ID, e.Timestamp.Format(time.RFC3339Nano), e.PolicyID)
		return err
	})
}
