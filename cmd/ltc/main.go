// Command ltc is a general purpose CLI interface to codex logs.
package main

import (
	"context"
	"encoding/json"
	"flag"
	stdlog "log"
	"os"
	"time"

	"github.com/bobg/subcmd"
	"github.com/pkg/errors"

	"github.com/quantaleap/ltc/log"
	_ "github.com/quantaleap/ltc/log/file"
	_ "github.com/quantaleap/ltc/log/logging"
	_ "github.com/quantaleap/ltc/log/lru"
	_ "github.com/quantaleap/ltc/log/mem"
	_ "github.com/quantaleap/ltc/log/pg"
	_ "github.com/quantaleap/ltc/log/sqlite3"
)

type maincmd struct {
	s    log.Store
	conf map[string]interface{}
}

func main() {
	config := flag.String("config", "ltcconf.json", "path to config file")
	flag.Parse()

	if *config == "" {
		stdlog.Fatal("Config value not set")
	}

	var conf map[string]interface{}
	f, err := os.Open(*config)
	if err != nil {
		stdlog.Fatalf("Opening config file %s: %s", *config, err)
	}
	defer f.Close()

	err = json.NewDecoder(f).Decode(&conf)
	if err != nil {
		stdlog.Fatalf("Decoding config file %s: %s", *config, err)
	}

	typ, ok := conf["type"].(string)
	if !ok {
		stdlog.Fatalf("Config file %s missing `type` parameter", *config)
	}

	ctx := context.Background()

	s, err := log.Create(ctx, typ, conf)
	if err != nil {
		stdlog.Fatalf("Creating %s-type store: %s", typ, err)
	}

	err = subcmd.Run(ctx, maincmd{s: s, conf: conf}, flag.Args())
	if err != nil {
		stdlog.Fatal(err)
	}
}

func (c maincmd) Subcmds() map[string]subcmd.Subcmd {
	return map[string]subcmd.Subcmd{
		"record":  {F: withFlagSet(c.record)},
		"get":     {F: withFlagSet(c.get)},
		"scan":    {F: withFlagSet(c.scan)},
		"verify":  {F: withFlagSet(c.verify)},
		"anchor":  {F: withFlagSet(c.anchor)},
		"archive": {F: withFlagSet(c.archive)},
	}
}

// withFlagSet adapts a subcommand that defines its own flags on a
// *flag.FlagSet to the signature subcmd.Run invokes when a Subcmd
// declares no Params.
func withFlagSet(f func(context.Context, *flag.FlagSet, []string) error) func(context.Context, []string) error {
	return func(ctx context.Context, args []string) error {
		return f(ctx, flag.NewFlagSet("", flag.ContinueOnError), args)
	}
}

var layouts = []string{
	time.RFC3339Nano, time.RFC3339, "2006-01-02",
}

func parsetime(s string) (time.Time, error) {
	for _, layout := range layouts {
		t, err := time.Parse(layout, s)
		if err == nil { // sic
			return t, nil
		}
	}
	return time.Time{}, errors.New("could not parse time")
}
