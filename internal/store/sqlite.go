// Package store persists journal entries in SQLite.
//
// Each entry is stored once as JSON, with its symptoms denormalized into
// entry_symptoms so per-user aggregates can be computed in SQL.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ppiankov/symptomlog/internal/model"
)

// DefaultListLimit is used when ListByUser is called with a non-positive limit
const DefaultListLimit = 50

var (
	// ErrNotFound is returned when an entry does not exist
	ErrNotFound = errors.New("entry not found")
	// ErrDuplicateID is returned when saving an entry whose ID is already stored
	ErrDuplicateID = errors.New("duplicate entry id")
)

const schema = `
CREATE TABLE IF NOT EXISTS entries (
	id               TEXT PRIMARY KEY,
	user_id          TEXT NOT NULL,
	recorded_at      INTEGER NOT NULL,
	confidence_index INTEGER NOT NULL,
	confidence_level TEXT NOT NULL,
	result_json      TEXT NOT NULL,
	confidence_json  TEXT NOT NULL,
	recap_json       TEXT,
	created_at       INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_entries_user_recorded ON entries(user_id, recorded_at DESC);

CREATE TABLE IF NOT EXISTS entry_symptoms (
	entry_id TEXT NOT NULL REFERENCES entries(id) ON DELETE CASCADE,
	name     TEXT NOT NULL,
	kind     TEXT NOT NULL,
	score    INTEGER,
	category TEXT,
	PRIMARY KEY (entry_id, name)
);

CREATE INDEX IF NOT EXISTS idx_entry_symptoms_name ON entry_symptoms(name);
`

// SQLiteStore stores entries in a single SQLite file. Safe for concurrent use.
type SQLiteStore struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open opens (creating if needed) the database at path and applies the schema.
// Pass ":memory:" for a throwaway database.
func Open(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection serializes writers and keeps ":memory:" a single database
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma %q: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db, path: path, now: time.Now}, nil
}

// Path returns the database file path
func (s *SQLiteStore) Path() string { return s.path }

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Save stores a new entry. Saving an ID twice returns ErrDuplicateID.
func (s *SQLiteStore) Save(ctx context.Context, e *model.Entry) error {
	if e == nil || e.ID == "" {
		return fmt.Errorf("save entry: missing id")
	}

	resultJSON, err := json.Marshal(e.Result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	confidenceJSON, err := json.Marshal(e.Confidence)
	if err != nil {
		return fmt.Errorf("encode confidence: %w", err)
	}
	var recapJSON sql.NullString
	if e.Recap != nil {
		b, err := json.Marshal(e.Recap)
		if err != nil {
			return fmt.Errorf("encode recap: %w", err)
		}
		recapJSON = sql.NullString{String: string(b), Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM entries WHERE id = ?`, e.ID).Scan(&exists)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s", ErrDuplicateID, e.ID)
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("check entry: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO entries (id, user_id, recorded_at, confidence_index, confidence_level,
			result_json, confidence_json, recap_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.UserID, e.RecordedAt.UnixNano(), e.Confidence.Index, e.Confidence.Level,
		string(resultJSON), string(confidenceJSON), recapJSON, s.now().UnixNano()); err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}

	for name, v := range e.Result.Symptoms {
		var score sql.NullInt64
		var category sql.NullString
		if n, ok := v.Score(); ok {
			score = sql.NullInt64{Int64: int64(n), Valid: true}
		}
		if c, ok := v.Category(); ok {
			category = sql.NullString{String: c, Valid: true}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO entry_symptoms (entry_id, name, kind, score, category)
			VALUES (?, ?, ?, ?, ?)
		`, e.ID, name, v.Kind().String(), score, category); err != nil {
			return fmt.Errorf("insert symptom %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

const entryColumns = `id, user_id, recorded_at, result_json, confidence_json, recap_json`

// Get returns the entry with the given ID or ErrNotFound
func (s *SQLiteStore) Get(ctx context.Context, id string) (*model.Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM entries WHERE id = ?`, id)

	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ListByUser returns a user's entries, newest first. A non-positive limit
// selects DefaultListLimit.
func (s *SQLiteStore) ListByUser(ctx context.Context, userID string, limit int) ([]*model.Entry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+entryColumns+`
		FROM entries
		WHERE user_id = ?
		ORDER BY recorded_at DESC, id DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []*model.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// SymptomStats aggregates every symptom recorded for a user, ordered by name.
// TopCategory is the most frequent category; ties go to the alphabetically
// first name.
func (s *SQLiteStore) SymptomStats(ctx context.Context, userID string) ([]model.SymptomStat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.name, s.kind, COUNT(*), AVG(s.score), MIN(s.score), MAX(s.score)
		FROM entry_symptoms s
		JOIN entries e ON e.id = s.entry_id
		WHERE e.user_id = ?
		GROUP BY s.name, s.kind
		ORDER BY s.name, s.kind
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query symptom stats: %w", err)
	}

	stats := []model.SymptomStat{}
	index := map[string]int{}
	for rows.Next() {
		var (
			st     model.SymptomStat
			avg    sql.NullFloat64
			lo, hi sql.NullInt64
		)
		if err := rows.Scan(&st.Name, &st.KindName, &st.Occurrences, &avg, &lo, &hi); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan symptom stats: %w", err)
		}
		st.Kind = parseKind(st.KindName)
		if avg.Valid {
			v := avg.Float64
			st.AverageScore = &v
		}
		if lo.Valid {
			v := int(lo.Int64)
			st.MinScore = &v
		}
		if hi.Valid {
			v := int(hi.Int64)
			st.MaxScore = &v
		}
		index[st.Name] = len(stats)
		stats = append(stats, st)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate symptom stats: %w", err)
	}
	rows.Close()

	catRows, err := s.db.QueryContext(ctx, `
		SELECT s.name, s.category, COUNT(*) AS n
		FROM entry_symptoms s
		JOIN entries e ON e.id = s.entry_id
		WHERE e.user_id = ? AND s.category IS NOT NULL
		GROUP BY s.name, s.category
		ORDER BY s.name, n DESC, s.category ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query top categories: %w", err)
	}
	defer catRows.Close()

	for catRows.Next() {
		var name, category string
		var n int
		if err := catRows.Scan(&name, &category, &n); err != nil {
			return nil, fmt.Errorf("scan top category: %w", err)
		}
		i, ok := index[name]
		if ok && stats[i].TopCategory == "" {
			stats[i].TopCategory = category
		}
	}
	return stats, catRows.Err()
}

// Delete removes an entry and its symptoms
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*model.Entry, error) {
	var (
		e              model.Entry
		recordedAt     int64
		resultJSON     string
		confidenceJSON string
		recapJSON      sql.NullString
	)
	if err := row.Scan(&e.ID, &e.UserID, &recordedAt, &resultJSON, &confidenceJSON, &recapJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan entry: %w", err)
	}

	e.RecordedAt = time.Unix(0, recordedAt).UTC()

	e.Result = model.NewExtractionResult()
	if err := json.Unmarshal([]byte(resultJSON), &e.Result); err != nil {
		return nil, fmt.Errorf("decode result for %s: %w", e.ID, err)
	}
	if err := json.Unmarshal([]byte(confidenceJSON), &e.Confidence); err != nil {
		return nil, fmt.Errorf("decode confidence for %s: %w", e.ID, err)
	}
	if recapJSON.Valid {
		e.Recap = &model.Recap{}
		if err := json.Unmarshal([]byte(recapJSON.String), e.Recap); err != nil {
			return nil, fmt.Errorf("decode recap for %s: %w", e.ID, err)
		}
	}

	return &e, nil
}

func parseKind(s string) model.ValueKind {
	for _, k := range []model.ValueKind{model.KindBool, model.KindScore, model.KindCategory} {
		if k.String() == s {
			return k
		}
	}
	return 0
}
