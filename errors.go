package ltc

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrNotFound is the error returned when looking up a nonexistent
// entry or receipt.
var ErrNotFound = errors.New("not found")

// ErrExists is returned by an append log when an entry id is already
// present in its partition. Ids are never reused, so hitting this
// indicates a bug, not a retryable condition.
var ErrExists = errors.New("id already exists")

// ValidationError reports a draft missing mandatory fields.
// Nothing is persisted; the caller must correct the draft and retry.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("draft missing mandatory fields: %s", strings.Join(e.Missing, ", "))
}

// DurabilityError reports a failed local write. No partial state is
// visible afterward; the caller may retry at will.
type DurabilityError struct {
	Op   string
	Path string
	Err  error
}

func (e *DurabilityError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Op, e.Path, e.Err)
}

func (e *DurabilityError) Unwrap() error {
	return e.Err
}

// IntegrityError reports that an entry's recomputed digest does not
// match its stored content hash. The entry is considered tampered;
// detection is the contract here, never silent repair.
type IntegrityError struct {
	ID   ID
	Want Ref // stored
	Got  Ref // recomputed
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("entry %s tampered: stored hash %s, recomputed %s", e.ID, e.Want, e.Got)
}
