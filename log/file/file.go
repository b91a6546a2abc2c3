// Package file implements the append log as a date-partitioned file
// hierarchy: one JSON object per entry under
// <root>/ltc/<YYYY>/<MM>/<DD>/, receipts in a receipts/ subdirectory
// of each partition.
package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/bobg/flock"
	"github.com/pkg/errors"

	"github.com/quantaleap/ltc"
	"github.com/quantaleap/ltc/log"
)

var _ log.Store = &Store{}

// Store is a file-based implementation of the append log.
//
// Writes go to a hidden temporary file in the partition directory and
// are renamed into place, so a crash mid-write never yields a partially
// visible entry. Within one partition, writers are serialized through a
// partition-scoped lock; different days append fully in parallel.
type Store struct {
	root    string
	flocker flock.Locker

	mu         sync.Mutex
	partitions map[ltc.Day]*sync.Mutex
}

// New produces a new Store storing data beneath `root`.
func New(root string) *Store {
	return &Store{
		root:       root,
		partitions: make(map[ltc.Day]*sync.Mutex),
	}
}

func (s *Store) logroot() string {
	return filepath.Join(s.root, "ltc")
}

func (s *Store) dayDir(day ltc.Day) string {
	return filepath.Join(s.logroot(), filepath.FromSlash(day.Path()))
}

func (s *Store) entryPath(day ltc.Day, id ltc.ID) string {
	return filepath.Join(s.dayDir(day), string(id)+".json")
}

func (s *Store) receiptPath(day ltc.Day, id ltc.ID) string {
	return filepath.Join(s.dayDir(day), "receipts", string(id)+".json")
}

// partition returns the in-process write lock for a day,
// creating it on first use. This is the arena of partition locks:
// one active writer per day, unbounded days in parallel.
func (s *Store) partition(day ltc.Day) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	mu, ok := s.partitions[day]
	if !ok {
		mu = new(sync.Mutex)
		s.partitions[day] = mu
	}
	return mu
}

// Append durably writes an entry to its day partition.
func (s *Store) Append(_ context.Context, e *ltc.Entry) error {
	day := ltc.DayOf(e.Timestamp)
	dir := s.dayDir(day)

	mu := s.partition(day)
	mu.Lock()
	defer mu.Unlock()

	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return &ltc.DurabilityError{Op: "creating partition", Path: dir, Err: err}
	}

	// Cross-process exclusion for the same partition.
	lockPath := filepath.Join(dir, ".write.lock")
	err = s.flocker.Lock(lockPath)
	if err != nil {
		return &ltc.DurabilityError{Op: "locking partition", Path: lockPath, Err: err}
	}
	defer s.flocker.Unlock(lockPath)

	path := s.entryPath(day, e.ID)
	_, err = os.Stat(path)
	if err == nil {
		return errors.Wrapf(ltc.ErrExists, "appending %s", e.ID)
	}
	if !os.IsNotExist(err) {
		return errors.Wrapf(err, "checking for existing %s", path)
	}

	b, err := json.Marshal(e)
	if err != nil {
		return errors.Wrapf(err, "marshaling %s", e.ID)
	}

	return writeAtomic(dir, path, b, "appending entry")
}

// writeAtomic writes b to a temporary name in dir,
// syncs it, and renames it to path.
func writeAtomic(dir, path string, b []byte, op string) error {
	f, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return &ltc.DurabilityError{Op: op, Path: path, Err: err}
	}
	tmp := f.Name()

	err = func() error {
		defer f.Close()
		_, err := f.Write(b)
		if err != nil {
			return err
		}
		return f.Sync()
	}()
	if err != nil {
		os.Remove(tmp)
		return &ltc.DurabilityError{Op: op, Path: path, Err: err}
	}

	err = os.Rename(tmp, path)
	if err != nil {
		os.Remove(tmp)
		return &ltc.DurabilityError{Op: op, Path: path, Err: err}
	}
	return nil
}

// Get gets the entry with the given id,
// locating its partition from the id's embedded timestamp.
func (s *Store) Get(_ context.Context, id ltc.ID) (*ltc.Entry, error) {
	day, err := id.Day()
	if err != nil {
		return nil, err
	}
	return readEntry(s.entryPath(day, id))
}

func readEntry(path string) (*ltc.Entry, error) {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ltc.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	var e ltc.Entry
	err = json.Unmarshal(b, &e)
	return &e, errors.Wrapf(err, "unmarshaling %s", path)
}

// Scan produces the entries in one day partition in filename order,
// which is timestamp order as written.
func (s *Store) Scan(_ context.Context, day ltc.Day, f func(*ltc.Entry) error) error {
	dir := s.dayDir(day)
	infos, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "reading dir %s", dir)
	}

	for _, info := range infos {
		if info.IsDir() {
			continue // receipts/
		}
		name := info.Name()
		if !strings.HasPrefix(name, "ltc_") || !strings.HasSuffix(name, ".json") {
			continue // lock and temp files
		}
		e, err := readEntry(filepath.Join(dir, name))
		if err != nil {
			return err
		}
		err = f(e)
		if err != nil {
			return err
		}
	}
	return nil
}

// Days produces the non-empty day partitions, in ascending order.
func (s *Store) Days(_ context.Context, start ltc.Day, f func(ltc.Day) error) error {
	years, err := readNumericDirs(s.logroot(), 4)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	for _, y := range years {
		months, err := readNumericDirs(filepath.Join(s.logroot(), y), 2)
		if err != nil {
			return err
		}
		for _, m := range months {
			days, err := readNumericDirs(filepath.Join(s.logroot(), y, m), 2)
			if err != nil {
				return err
			}
			for _, d := range days {
				day := ltc.Day(y + "-" + m + "-" + d)
				if day < start || !day.Valid() {
					continue
				}
				err = f(day)
				if err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// readNumericDirs lists the subdirectories of dir whose names are
// decimal numbers of the given width, in lexicographic order.
func readNumericDirs(dir string, width int) ([]string, error) {
	infos, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, err
		}
		return nil, errors.Wrapf(err, "reading dir %s", dir)
	}

	var out []string
	for _, info := range infos {
		name := info.Name()
		if !info.IsDir() || len(name) != width {
			continue
		}
		if _, err := strconv.Atoi(name); err != nil {
			continue
		}
		out = append(out, name)
	}
	return out, nil
}

// PutReceipt records an anchor receipt beside the entry's partition.
// The original entry bytes are never touched.
func (s *Store) PutReceipt(_ context.Context, rec *ltc.AnchorReceipt) error {
	day, err := rec.LTCID.Day()
	if err != nil {
		return err
	}

	dir := filepath.Join(s.dayDir(day), "receipts")
	err = os.MkdirAll(dir, 0755)
	if err != nil {
		return &ltc.DurabilityError{Op: "creating receipts dir", Path: dir, Err: err}
	}

	b, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrapf(err, "marshaling receipt for %s", rec.LTCID)
	}

	return writeAtomic(dir, s.receiptPath(day, rec.LTCID), b, "writing receipt")
}

// GetReceipt gets the anchor receipt for the given entry id.
func (s *Store) GetReceipt(_ context.Context, id ltc.ID) (*ltc.AnchorReceipt, error) {
	day, err := id.Day()
	if err != nil {
		return nil, err
	}

	path := s.receiptPath(day, id)
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ltc.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	var rec ltc.AnchorReceipt
	err = json.Unmarshal(b, &rec)
	return &rec, errors.Wrapf(err, "unmarshaling %s", path)
}

// ArchiveBefore moves every day partition before `cutoff` to the same
// layout under destRoot. Archival is the only way entries leave the
// log; nothing is ever deleted.
func (s *Store) ArchiveBefore(ctx context.Context, cutoff ltc.Day, destRoot string) error {
	var days []ltc.Day
	err := s.Days(ctx, "", func(day ltc.Day) error {
		if day < cutoff {
			days = append(days, day)
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, day := range days {
		mu := s.partition(day)
		mu.Lock()

		src := s.dayDir(day)
		dest := filepath.Join(destRoot, "ltc", filepath.FromSlash(day.Path()))
		err := os.MkdirAll(filepath.Dir(dest), 0755)
		if err == nil {
			err = os.Rename(src, dest)
		}

		mu.Unlock()
		if err != nil {
			return errors.Wrapf(err, "archiving partition %s", day)
		}
	}
	return nil
}

func init() {
	log.Register("file", func(_ context.Context, conf map[string]interface{}) (log.Store, error) {
		root, ok := conf["root"].(string)
		if !ok {
			return nil, errors.New(`missing "root" parameter`)
		}
		return New(root), nil
	})
}
