// Package logging implements a store that delegates everything to a nested store,
// logging operations as they happen.
package logging

import (
	"context"
	stdlog "log"

	"github.com/pkg/errors"

	"github.com/quantaleap/ltc"
	"github.com/quantaleap/ltc/log"
)

var (
	_ log.Store = &Store{}

	errNested     = errors.New(`missing "nested" parameter`)
	errNestedType = errors.New(`"nested" parameter missing "type"`)
)

type Store struct {
	s log.Store
}

func New(s log.Store) *Store {
	return &Store{s: s}
}

func (s *Store) Append(ctx context.Context, e *ltc.Entry) error {
	err := s.s.Append(ctx, e)
	if err != nil {
		stdlog.Printf("ERROR Append %s: %s", e.ID, err)
	} else {
		stdlog.Printf("Append %s, policy=%s", e.ID, e.PolicyID)
	}
	return err
}

func (s *Store) Get(ctx context.Context, id ltc.ID) (*ltc.Entry, error) {
	e, err := s.s.Get(ctx, id)
	if err != nil {
		stdlog.Printf("ERROR Get %s: %s", id, err)
	} else {
		stdlog.Printf("Get %s", id)
	}
	return e, err
}

func (s *Store) Scan(ctx context.Context, day ltc.Day, f func(*ltc.Entry) error) error {
	stdlog.Printf("Scan %s", day)
	return s.s.Scan(ctx, day, func(e *ltc.Entry) error {
		err := f(e)
		if err != nil {
			stdlog.Printf("  ERROR in Scan: %s: %s", e.ID, err)
		} else {
			stdlog.Printf("  Scan: %s", e.ID)
		}
		return err
	})
}

func (s *Store) Days(ctx context.Context, start ltc.Day, f func(ltc.Day) error) error {
	stdlog.Printf("Days, start=%s", start)
	return s.s.Days(ctx, start, f)
}

func (s *Store) PutReceipt(ctx context.Context, rec *ltc.AnchorReceipt) error {
	err := s.s.PutReceipt(ctx, rec)
	if err != nil {
		stdlog.Printf("ERROR PutReceipt %s: %s", rec.LTCID, err)
	} else {
		stdlog.Printf("PutReceipt %s, addr=%s", rec.LTCID, rec.ContentAddress)
	}
	return err
}

func (s *Store) GetReceipt(ctx context.Context, id ltc.ID) (*ltc.AnchorReceipt, error) {
	rec, err := s.s.GetReceipt(ctx, id)
	if err != nil {
		stdlog.Printf("ERROR GetReceipt %s: %s", id, err)
	} else {
		stdlog.Printf("GetReceipt %s", id)
	}
	return rec, err
}

func init() {
	log.Register("logging", func(ctx context.Context, conf map[string]interface{}) (log.Store, error) {
		nested, ok := conf["nested"].(map[string]interface{})
		if !ok {
			return nil, errNested
		}
		nestedType, ok := nested["type"].(string)
		if !ok {
			return nil, errNestedType
		}
		nestedStore, err := log.Create(ctx, nestedType, nested)
		if err != nil {
			return nil, err
		}
		return New(nestedStore), nil
	})
}
