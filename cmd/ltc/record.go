package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/quantaleap/ltc"
	"github.com/quantaleap/ltc/record"
	"github.com/quantaleap/ltc/redact"
)

func (c maincmd) record(ctx context.Context, fs *flag.FlagSet, args []string) error {
	var (
		draftFile = fs.String("draft", "", "path to draft JSON (default: stdin)")
		policy    = fs.String("policy", "", "path to redaction policy file")
		extra     = fs.String("redact", "", "comma-separated extra fields to redact")
	)
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}

	var p *redact.Policy
	if *policy != "" {
		p, err = redact.LoadPolicy(*policy)
		if err != nil {
			return errors.Wrapf(err, "loading policy %s", *policy)
		}
	}
	red, err := redact.New(p)
	if err != nil {
		return errors.Wrap(err, "compiling redaction policy")
	}

	rec, err := record.New(c.s, red)
	if err != nil {
		return errors.Wrap(err, "creating recorder")
	}

	var in io.Reader = os.Stdin
	if *draftFile != "" {
		f, err := os.Open(*draftFile)
		if err != nil {
			return errors.Wrapf(err, "opening draft %s", *draftFile)
		}
		defer f.Close()
		in = f
	}

	var d ltc.Draft
	err = json.NewDecoder(in).Decode(&d)
	if err != nil {
		return errors.Wrap(err, "decoding draft")
	}

	var extraFields []string
	if *extra != "" {
		extraFields = strings.Split(*extra, ",")
	}

	id, err := rec.Record(ctx, &d, extraFields...)
	if err != nil {
		return errors.Wrap(err, "recording entry")
	}

	fmt.Println(id)
	return nil
}
