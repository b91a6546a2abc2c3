// Package lru implements a store that acts as a least-recently-used
// read cache for a nested append log.
package lru

import (
	"context"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"

	"github.com/quantaleap/ltc"
	"github.com/quantaleap/ltc/log"
)

var _ log.Store = &Store{}

// Store implements a memory-based least-recently-used cache for an
// append log. At present it caches only entries, not receipts.
// Writes pass through to the underlying log.
type Store struct {
	c *lru.Cache // ltc.ID -> ltc.Entry
	s log.Store
}

// New produces a new Store backed by `s` and caching up to `size` entries.
func New(s log.Store, size int) (*Store, error) {
	c, err := lru.New(size)
	return &Store{s: s, c: c}, err
}

// Append adds an entry to the nested log and caches it.
func (s *Store) Append(ctx context.Context, e *ltc.Entry) error {
	err := s.s.Append(ctx, e)
	if err != nil {
		return err
	}
	s.c.Add(e.ID, *e)
	return nil
}

// Get gets the entry with the given id, from cache when possible.
// Callers get their own copy either way.
func (s *Store) Get(ctx context.Context, id ltc.ID) (*ltc.Entry, error) {
	if got, ok := s.c.Get(id); ok {
		e := got.(ltc.Entry)
		return &e, nil
	}
	e, err := s.s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.c.Add(id, *e)
	out := *e
	return &out, nil
}

// Scan produces the entries of one day partition in id order.
func (s *Store) Scan(ctx context.Context, day ltc.Day, f func(*ltc.Entry) error) error {
	return s.s.Scan(ctx, day, f)
}

// Days produces the non-empty day partitions in ascending order.
func (s *Store) Days(ctx context.Context, start ltc.Day, f func(ltc.Day) error) error {
	return s.s.Days(ctx, start, f)
}

// PutReceipt records an anchor receipt on the nested log.
func (s *Store) PutReceipt(ctx context.Context, rec *ltc.AnchorReceipt) error {
	return s.s.PutReceipt(ctx, rec)
}

// GetReceipt gets the anchor receipt for the given entry id.
func (s *Store) GetReceipt(ctx context.Context, id ltc.ID) (*ltc.AnchorReceipt, error) {
	return s.s.GetReceipt(ctx, id)
}

func init() {
	log.Register("lru", func(ctx context.Context, conf map[string]interface{}) (log.Store, error) {
		var size int
		switch n := conf["size"].(type) {
		case int:
			size = n
		case float64: // JSON numbers decode as float64
			size = int(n)
		default:
			return nil, errors.New(`missing "size" parameter`)
		}
		nested, ok := conf["nested"].(map[string]interface{})
		if !ok {
			return nil, errors.New(`missing "nested" parameter`)
		}
		nestedType, ok := nested["type"].(string)
		if !ok {
			return nil, errors.New(`"nested" parameter missing "type"`)
		}
		nestedStore, err := log.Create(ctx, nestedType, nested)
		if err != nil {
			return nil, errors.Wrap(err, "creating nested store")
		}
		return New(nestedStore, size)
	})
}
