// Package sqlite3 implements the append log on a Sqlite database.
// The partition discipline of the file store maps onto an ordinary
// indexed `day` column here; Sqlite serializes writers itself.
package sqlite3

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrs "errors"
	"time"

	"github.com/bobg/sqlutil"
	_ "github.com/mattn/go-sqlite3" // register the sqlite3 type for sql.Open
	"github.com/pkg/errors"

	"github.com/quantaleap/ltc"
	"github.com/quantaleap/ltc/log"
)

var _ log.Store = &Store{}

// Store is a Sqlite-based append log.
type Store struct {
	db *sql.DB
}

// Schema is the SQL that New executes.
// It creates the `entries` and `receipts` tables if they do not exist.
// (If they do exist, they must have the columns, constraints, and indexing described here.)
const Schema = `
CREATE TABLE IF NOT EXISTS entries (
  id TEXT PRIMARY KEY NOT NULL,
  day TEXT NOT NULL,
  ts TEXT NOT NULL,
  body BLOB NOT NULL
);

CREATE INDEX IF NOT EXISTS entries_day_idx ON entries (day, id);

CREATE TABLE IF NOT EXISTS receipts (
  ltc_id TEXT PRIMARY KEY NOT NULL,
  content_address TEXT NOT NULL,
  ledger_tx TEXT,
  anchored_at TEXT NOT NULL
);
`

// New produces a new Store using `db` for storage.
// It expects to create tables `entries` and `receipts`,
// or for those tables already to exist with the correct schema.
// (See variable Schema.)
func New(ctx context.Context, db *sql.DB) (*Store, error) {
	_, err := db.ExecContext(ctx, Schema)
	return &Store{db: db}, err
}

// Append adds an entry to its day partition.
func (s *Store) Append(ctx context.Context, e *ltc.Entry) error {
	const q = `INSERT INTO entries (id, day, ts, body) VALUES ($1, $2, $3, $4) ON CONFLICT DO NOTHING`

	body, err := json.Marshal(e)
	if err != nil {
		return errors.Wrapf(err, "marshaling %s", e.ID)
	}

	res, err := s.db.ExecContext(ctx, q,
		string(e.ID),
		string(ltc.DayOf(e.Timestamp)),
		e.Timestamp.UTC().Format(time.RFC3339Nano),
		body,
	)
	if err != nil {
		return errors.Wrap(err, "inserting entry")
	}

	aff, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "counting affected rows")
	}
	if aff == 0 {
		return errors.Wrapf(ltc.ErrExists, "appending %s", e.ID)
	}
	return nil
}

// Get gets the entry with the given id.
func (s *Store) Get(ctx context.Context, id ltc.ID) (*ltc.Entry, error) {
	const q = `SELECT body FROM entries WHERE id = $1`

	var body []byte
	err := s.db.QueryRowContext(ctx, q, string(id)).Scan(&body)
	if stderrs.Is(err, sql.ErrNoRows) {
		return nil, ltc.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "querying %s", id)
	}

	var e ltc.Entry
	err = json.Unmarshal(body, &e)
	return &e, errors.Wrapf(err, "unmarshaling %s", id)
}

// Scan produces the entries of one day partition in id order.
func (s *Store) Scan(ctx context.Context, day ltc.Day, f func(*ltc.Entry) error) error {
	const q = `SELECT body FROM entries WHERE day = $1 ORDER BY id`

	return sqlutil.ForQueryRows(ctx, s.db, q, string(day), func(body []byte) error {
		var e ltc.Entry
		err := json.Unmarshal(body, &e)
		if err != nil {
			return errors.Wrap(err, "unmarshaling entry")
		}
		return f(&e)
	})
}

// Days produces the non-empty day partitions in ascending order.
func (s *Store) Days(ctx context.Context, start ltc.Day, f func(ltc.Day) error) error {
	const q = `SELECT DISTINCT day FROM entries WHERE day >= $1 ORDER BY day`

	return sqlutil.ForQueryRows(ctx, s.db, q, string(start), func(day string) error {
		return f(ltc.Day(day))
	})
}

// PutReceipt records an anchor receipt for an entry.
func (s *Store) PutReceipt(ctx context.Context, rec *ltc.AnchorReceipt) error {
	const q = `INSERT INTO receipts (ltc_id, content_address, ledger_tx, anchored_at) VALUES ($1, $2, $3, $4) ON CONFLICT DO NOTHING`

	_, err := s.db.ExecContext(ctx, q,
		string(rec.LTCID),
		rec.ContentAddress,
		rec.LedgerTx,
		rec.AnchoredAt.UTC().Format(time.RFC3339Nano),
	)
	return errors.Wrapf(err, "inserting receipt for %s", rec.LTCID)
}

// GetReceipt gets the anchor receipt for the given entry id.
func (s *Store) GetReceipt(ctx context.Context, id ltc.ID) (*ltc.AnchorReceipt, error) {
	const q = `SELECT content_address, ledger_tx, anchored_at FROM receipts WHERE ltc_id = $1`

	var (
		addr  string
		tx    sql.NullString
		atstr string
	)
	err := s.db.QueryRowContext(ctx, q, string(id)).Scan(&addr, &tx, &atstr)
	if stderrs.Is(err, sql.ErrNoRows) {
		return nil, ltc.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "querying receipt for %s", id)
	}

	at, err := time.Parse(time.RFC3339Nano, atstr)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing time %s", atstr)
	}
	return &ltc.AnchorReceipt{LTCID: id, ContentAddress: addr, LedgerTx: tx.String, AnchoredAt: at}, nil
}

func init() {
	log.Register("sqlite3", func(ctx context.Context, conf map[string]interface{}) (log.Store, error) {
		conn, ok := conf["conn"].(string)
		if !ok {
			return nil, errors.New(`missing "conn" parameter`)
		}
		db, err := sql.Open("sqlite3", conn)
		if err != nil {
			return nil, errors.Wrap(err, "opening db")
		}
		return New(ctx, db)
	})
}
