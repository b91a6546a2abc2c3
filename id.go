package ltc

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	idPrefix = "ltc_"

	// idTimeLayout is ISO 8601 basic format at microsecond precision.
	// Basic format keeps ids filename-safe, and lexicographic order of
	// ids within a day matches chronological order.
	idTimeLayout = "20060102T150405.000000Z"

	idSuffixLen = 6 // hex digits of random suffix
)

// ID identifies an Entry. It has the form
// ltc_<ISO8601 UTC timestamp>_<6 hex digits> and is never reused.
type ID string

// NewID generates an ID for an entry created at time t.
// The random suffix keeps ids unique under identical-timestamp bursts;
// the append log additionally rejects duplicate ids outright.
func NewID(t time.Time) (ID, error) {
	var buf [idSuffixLen / 2]byte
	_, err := rand.Read(buf[:])
	if err != nil {
		return "", errors.Wrap(err, "reading random suffix")
	}
	return ID(idPrefix + t.UTC().Format(idTimeLayout) + "_" + hex.EncodeToString(buf[:])), nil
}

// Time extracts the creation timestamp embedded in id.
func (id ID) Time() (time.Time, error) {
	s, ok := strings.CutPrefix(string(id), idPrefix)
	if !ok {
		return time.Time{}, errors.Errorf("id %s lacks %q prefix", id, idPrefix)
	}
	tstr, suffix, ok := strings.Cut(s, "_")
	if !ok || len(suffix) != idSuffixLen {
		return time.Time{}, errors.Errorf("id %s has malformed suffix", id)
	}
	t, err := time.Parse(idTimeLayout, tstr)
	return t, errors.Wrapf(err, "parsing timestamp of id %s", id)
}

// Day returns the UTC day partition the id belongs to.
func (id ID) Day() (Day, error) {
	t, err := id.Time()
	if err != nil {
		return "", err
	}
	return DayOf(t), nil
}

// Valid reports whether id is well formed.
func (id ID) Valid() bool {
	_, err := id.Time()
	return err == nil
}

// Day is a UTC calendar day in the form "YYYY-MM-DD",
// the unit of storage partitioning and write serialization.
// Lexicographic order of Days is chronological order.
type Day string

const dayLayout = "2006-01-02"

// DayOf returns the UTC day containing t.
func DayOf(t time.Time) Day {
	return Day(t.UTC().Format(dayLayout))
}

// Time returns midnight UTC of d.
func (d Day) Time() (time.Time, error) {
	t, err := time.Parse(dayLayout, string(d))
	return t, errors.Wrapf(err, "parsing day %s", d)
}

// Path returns d as a YYYY/MM/DD directory path fragment.
func (d Day) Path() string {
	return strings.ReplaceAll(string(d), "-", "/")
}

// Next returns the following day.
func (d Day) Next() Day {
	t, err := d.Time()
	if err != nil {
		// Malformed days sort before all valid ones; advancing one is
		// a programming error.
		panic(fmt.Sprintf("next of malformed day %q", d))
	}
	return DayOf(t.AddDate(0, 0, 1))
}

// Valid reports whether d is a well-formed calendar day.
func (d Day) Valid() bool {
	_, err := d.Time()
	return err == nil
}
