// Package sqlitestore provides a SQLite-backed retention.BackupStore, so
// evicted strokes survive a restart and do not count against the resident
// memory budget.
package sqlitestore

import (
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/gogpu/ink"
	"github.com/gogpu/ink/retention"

	_ "github.com/mattn/go-sqlite3"
)

// Store is a bounded BackupStore persisted in a SQLite database. When full,
// the least recently written strokes are deleted.
//
// BackupStore methods cannot return errors; database failures are logged,
// counted in Errors, and reported as a miss.
type Store struct {
	db       *sql.DB
	capacity int
	errors   atomic.Uint64
}

// Ensure Store implements BackupStore
var _ retention.BackupStore = (*Store)(nil)

// Open opens or creates the database at path. Use ":memory:" for a
// process-local store.
func Open(path string, capacity int) (*Store, error) {
	if capacity <= 0 {
		return nil, &ink.ConfigError{Component: "sqlitestore", Field: "capacity", Reason: fmt.Sprintf("must be > 0, got %d", capacity)}
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open %s: %w", path, err)
	}
	// One connection serializes writers and keeps ":memory:" databases
	// shared between calls.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		PRAGMA synchronous = NORMAL;

		CREATE TABLE IF NOT EXISTS strokes (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			color TEXT NOT NULL,
			size REAL NOT NULL,
			ts INTEGER NOT NULL,
			user_id TEXT NOT NULL,
			collaborative INTEGER NOT NULL,
			points BLOB,
			pressure BLOB,
			evicted_at INTEGER NOT NULL
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitestore: setup schema: %w", err)
	}
	return &Store{db: db, capacity: capacity}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Errors returns the number of database failures since Open.
func (s *Store) Errors() uint64 {
	return s.errors.Load()
}

// Put stores e, replacing any entry with the same stroke ID, and deletes
// the oldest rows beyond capacity.
func (s *Store) Put(e retention.BackupEntry) {
	if e.Stroke == nil {
		return
	}
	if err := s.put(e); err != nil {
		s.fail("put", e.Stroke.ID, err)
	}
}

func (s *Store) put(e retention.BackupEntry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	st := e.Stroke
	_, err = tx.Exec(`
		INSERT OR REPLACE INTO strokes
			(id, color, size, ts, user_id, collaborative, points, pressure, evicted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, st.ID, st.Color, st.Size, st.Timestamp, st.UserID, e.Collaborative,
		encodeFloats(st.Points), encodeFloats(st.Pressure), e.EvictedAt.UnixMilli())
	if err != nil {
		return err
	}
	_, err = tx.Exec(`
		DELETE FROM strokes WHERE seq NOT IN (
			SELECT seq FROM strokes ORDER BY seq DESC LIMIT ?
		)
	`, s.capacity)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// Take removes and returns the entry for id.
func (s *Store) Take(id string) (retention.BackupEntry, bool) {
	e, err := s.take(id)
	if errors.Is(err, sql.ErrNoRows) {
		return retention.BackupEntry{}, false
	}
	if err != nil {
		s.fail("take", id, err)
		return retention.BackupEntry{}, false
	}
	return e, true
}

func (s *Store) take(id string) (retention.BackupEntry, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return retention.BackupEntry{}, err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	var (
		st               ink.Stroke
		collaborative    bool
		points, pressure []byte
		evictedAt        int64
	)
	err = tx.QueryRow(`
		SELECT id, color, size, ts, user_id, collaborative, points, pressure, evicted_at
		FROM strokes WHERE id = ?
	`, id).Scan(&st.ID, &st.Color, &st.Size, &st.Timestamp, &st.UserID,
		&collaborative, &points, &pressure, &evictedAt)
	if err != nil {
		return retention.BackupEntry{}, err
	}
	if _, err := tx.Exec(`DELETE FROM strokes WHERE id = ?`, id); err != nil {
		return retention.BackupEntry{}, err
	}
	if err := tx.Commit(); err != nil {
		return retention.BackupEntry{}, err
	}

	st.Points = decodeFloats(points)
	st.Pressure = decodeFloats(pressure)
	return retention.BackupEntry{
		Stroke:        &st,
		Collaborative: collaborative,
		EvictedAt:     time.UnixMilli(evictedAt),
	}, nil
}

// Delete discards the row for id.
func (s *Store) Delete(id string) bool {
	res, err := s.db.Exec(`DELETE FROM strokes WHERE id = ?`, id)
	if err != nil {
		s.fail("delete", id, err)
		return false
	}
	n, err := res.RowsAffected()
	if err != nil {
		s.fail("delete", id, err)
		return false
	}
	return n > 0
}

// Len returns the number of stored strokes, or 0 when the count fails.
func (s *Store) Len() int {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM strokes`).Scan(&n); err != nil {
		s.fail("count", "", err)
		return 0
	}
	return n
}

func (s *Store) fail(op, id string, err error) {
	s.errors.Add(1)
	ink.Logger().Warn("sqlitestore: backup operation failed", "op", op, "id", id, "err", err)
}

// encodeFloats packs values as little-endian float64s. Nil stays NULL.
func encodeFloats(vs []float64) []byte {
	if vs == nil {
		return nil
	}
	buf := make([]byte, 8*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(v))
	}
	return buf
}

func decodeFloats(buf []byte) []float64 {
	if buf == nil {
		return nil
	}
	vs := make([]float64, len(buf)/8)
	for i := range vs {
		vs[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[8*i:]))
	}
	return vs
}
