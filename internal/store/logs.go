package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Outcome is the result recorded for one processing attempt.
type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeError   Outcome = "ERROR"
)

func (o Outcome) Valid() bool { return o == OutcomeSuccess || o == OutcomeError }

// Attempt is one immutable row of processing_logs.
type Attempt struct {
	Seq       int64     `json:"seq"`
	ItemID    string    `json:"item_id"`
	Timestamp time.Time `json:"timestamp"`
	Outcome   Outcome   `json:"outcome"`
	Detail    string    `json:"detail"`
}

// Error wraps a storage failure.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("log store %s: %v", e.Op, e.Err) }

func (e *Error) Unwrap() error { return e.Err }

// LogStore is the append-only record of processing attempts.
type LogStore struct {
	db  *sql.DB
	now func() time.Time

	mu     sync.Mutex
	last   time.Time
	seeded bool
}

func NewLogStore(db *DB) *LogStore {
	return &LogStore{db: db.Pool, now: time.Now}
}

// Append records one attempt. The timestamp is assigned here and never moves
// backwards relative to the newest stored row, including rows written before
// a restart, so timestamp order and insert order agree.
func (s *LogStore) Append(ctx context.Context, itemID string, outcome Outcome, detail string) (Attempt, error) {
	if !outcome.Valid() {
		return Attempt{}, &Error{Op: "append", Err: fmt.Errorf("invalid outcome %q", outcome)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.seeded {
		last, err := s.newest(ctx)
		if err != nil {
			return Attempt{}, &Error{Op: "append", Err: err}
		}
		s.last, s.seeded = last, true
	}

	ts := s.now().UTC()
	if ts.Before(s.last) {
		ts = s.last
	}

	res, err := s.db.ExecContext(ctx, `
INSERT INTO processing_logs (timestamp, item_id, status, message)
VALUES (?, ?, ?, ?);`,
		ts.UnixNano(), itemID, string(outcome), detail,
	)
	if err != nil {
		return Attempt{}, &Error{Op: "append", Err: err}
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return Attempt{}, &Error{Op: "append", Err: err}
	}
	s.last = ts

	return Attempt{Seq: seq, ItemID: itemID, Timestamp: ts, Outcome: outcome, Detail: detail}, nil
}

func (s *LogStore) newest(ctx context.Context) (time.Time, error) {
	var ns sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(timestamp) FROM processing_logs;`).Scan(&ns); err != nil {
		return time.Time{}, err
	}
	if !ns.Valid {
		return time.Time{}, nil
	}
	return time.Unix(0, ns.Int64).UTC(), nil
}

// Recent returns up to limit attempts, newest first. Rows sharing a
// timestamp come back in reverse insert order.
func (s *LogStore) Recent(ctx context.Context, limit int) ([]Attempt, error) {
	out := []Attempt{}
	if limit <= 0 {
		return out, nil
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, timestamp, item_id, status, message
FROM processing_logs
ORDER BY timestamp DESC, id DESC
LIMIT ?;`, limit)
	if err != nil {
		if isNoSuchTable(err) {
			return out, nil
		}
		return nil, &Error{Op: "recent", Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		var a Attempt
		var ns int64
		var status string
		if err := rows.Scan(&a.Seq, &ns, &a.ItemID, &status, &a.Detail); err != nil {
			return nil, &Error{Op: "recent", Err: err}
		}
		a.Timestamp = time.Unix(0, ns).UTC()
		a.Outcome = Outcome(status)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, &Error{Op: "recent", Err: err}
	}
	return out, nil
}

// Count is the number of rows in the log.
func (s *LogStore) Count(ctx context.Context) (int64, error) {
	if !tableExists(s.db, "processing_logs") {
		return 0, nil
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM processing_logs;`).Scan(&n); err != nil {
		return 0, &Error{Op: "count", Err: err}
	}
	return n, nil
}

func isNoSuchTable(err error) bool {
	return strings.Contains(err.Error(), "no such table")
}
