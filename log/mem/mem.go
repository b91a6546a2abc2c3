// Package mem implements an in-memory append log.
package mem

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/quantaleap/ltc"
	"github.com/quantaleap/ltc/log"
)

var _ log.Store = &Store{}

// Store is a memory-based implementation of the append log.
type Store struct {
	mu       sync.Mutex
	days     map[ltc.Day][]*ltc.Entry // sorted by id
	byID     map[ltc.ID]*ltc.Entry
	receipts map[ltc.ID]*ltc.AnchorReceipt
}

// New produces a new Store.
func New() *Store {
	return &Store{
		days:     make(map[ltc.Day][]*ltc.Entry),
		byID:     make(map[ltc.ID]*ltc.Entry),
		receipts: make(map[ltc.ID]*ltc.AnchorReceipt),
	}
}

// Append adds an entry to its day partition.
func (s *Store) Append(_ context.Context, e *ltc.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[e.ID]; ok {
		return errors.Wrapf(ltc.ErrExists, "appending %s", e.ID)
	}

	stored := *e
	day := ltc.DayOf(e.Timestamp)
	entries := s.days[day]
	index := sort.Search(len(entries), func(n int) bool {
		return entries[n].ID >= stored.ID
	})
	entries = append(entries, nil)
	copy(entries[index+1:], entries[index:])
	entries[index] = &stored

	s.days[day] = entries
	s.byID[stored.ID] = &stored
	return nil
}

// Get gets the entry with the given id.
func (s *Store) Get(_ context.Context, id ltc.ID) (*ltc.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.byID[id]
	if !ok {
		return nil, ltc.ErrNotFound
	}
	out := *e // callers may annotate their copy
	return &out, nil
}

// Scan produces the entries of one day partition in id order.
func (s *Store) Scan(_ context.Context, day ltc.Day, f func(*ltc.Entry) error) error {
	s.mu.Lock()
	entries := make([]*ltc.Entry, len(s.days[day]))
	copy(entries, s.days[day])
	s.mu.Unlock()

	for _, e := range entries {
		out := *e
		err := f(&out)
		if err != nil {
			return err
		}
	}
	return nil
}

// Days produces the non-empty day partitions in ascending order.
func (s *Store) Days(_ context.Context, start ltc.Day, f func(ltc.Day) error) error {
	s.mu.Lock()
	days := make([]ltc.Day, 0, len(s.days))
	for day := range s.days {
		if day >= start {
			days = append(days, day)
		}
	}
	s.mu.Unlock()

	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
	for _, day := range days {
		err := f(day)
		if err != nil {
			return err
		}
	}
	return nil
}

// PutReceipt records an anchor receipt for an entry.
func (s *Store) PutReceipt(_ context.Context, rec *ltc.AnchorReceipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *rec
	s.receipts[rec.LTCID] = &stored
	return nil
}

// GetReceipt gets the anchor receipt for the given entry id.
func (s *Store) GetReceipt(_ context.Context, id ltc.ID) (*ltc.AnchorReceipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.receipts[id]
	if !ok {
		return nil, ltc.ErrNotFound
	}
	out := *rec
	return &out, nil
}

func init() {
	log.Register("mem", func(context.Context, map[string]interface{}) (log.Store, error) {
		return New(), nil
	})
}
