package indexdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteIndex is a queryable index of render runs. The transcript stays the source of
// truth; the index only summarizes.
type SQLiteIndex struct {
	db   *sql.DB
	once sync.Once
	now  func() time.Time
}

type Run struct {
	ID           string
	StartedAt    time.Time
	FinishedAt   time.Time
	Addr         string
	Transport    string
	ConfigDigest string
	ConfigJSON   string
	Decision     string
	Patterns     int
	Cells        int
}

type PatternRow struct {
	RunID   string
	Index   int
	Label   string
	Width   int
	Height  int
	MaxIter int
	Scale   float64
	Block   string
	Cells   int
	Elapsed time.Duration
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteIndex{db: db, now: time.Now}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			addr TEXT NOT NULL,
			transport TEXT NOT NULL,
			config_digest TEXT NOT NULL,
			config_json TEXT NOT NULL,
			decision TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);`,
		`CREATE TABLE IF NOT EXISTS patterns (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			idx INTEGER NOT NULL,
			label TEXT NOT NULL,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			max_iter INTEGER NOT NULL,
			scale REAL NOT NULL,
			block TEXT NOT NULL,
			cells INTEGER NOT NULL,
			elapsed_ms INTEGER NOT NULL,
			PRIMARY KEY (run_id, idx)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		err = s.db.Close()
	})
	return err
}

// StartRun inserts a new run and returns its id.
func (s *SQLiteIndex) StartRun(ctx context.Context, addr, transport, configDigest, configJSON string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs(id, started_at, addr, transport, config_digest, config_json) VALUES(?,?,?,?,?,?)`,
		id, formatTime(s.now()), addr, transport, configDigest, configJSON)
	if err != nil {
		return "", fmt.Errorf("start run: %w", err)
	}
	return id, nil
}

func (s *SQLiteIndex) RecordPattern(ctx context.Context, p PatternRow) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO patterns(run_id, idx, label, width, height, max_iter, scale, block, cells, elapsed_ms)
		 VALUES(?,?,?,?,?,?,?,?,?,?)`,
		p.RunID, p.Index, p.Label, p.Width, p.Height, p.MaxIter, p.Scale, p.Block, p.Cells, p.Elapsed.Milliseconds())
	if err != nil {
		return fmt.Errorf("record pattern %d: %w", p.Index, err)
	}
	return nil
}

// FinishRun stores the final decision. An empty decision marks an aborted run.
func (s *SQLiteIndex) FinishRun(ctx context.Context, id, decision string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at=?, decision=? WHERE id=?`,
		formatTime(s.now()), nullString(decision), id)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run: unknown run %q", id)
	}
	return nil
}

// Runs lists the newest runs first.
func (s *SQLiteIndex) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.started_at, COALESCE(r.finished_at, ''), r.addr, r.transport,
		       r.config_digest, r.config_json, COALESCE(r.decision, ''),
		       COUNT(p.idx), COALESCE(SUM(p.cells), 0)
		FROM runs r LEFT JOIN patterns p ON p.run_id = r.id
		GROUP BY r.id
		ORDER BY r.started_at DESC, r.rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r                 Run
			started, finished string
		)
		if err := rows.Scan(&r.ID, &started, &finished, &r.Addr, &r.Transport,
			&r.ConfigDigest, &r.ConfigJSON, &r.Decision, &r.Patterns, &r.Cells); err != nil {
			return nil, err
		}
		r.StartedAt = parseTime(started)
		r.FinishedAt = parseTime(finished)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) Patterns(ctx context.Context, runID string) ([]PatternRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, idx, label, width, height, max_iter, scale, block, cells, elapsed_ms
		FROM patterns WHERE run_id=? ORDER BY idx`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PatternRow
	for rows.Next() {
		var (
			p  PatternRow
			ms int64
		)
		if err := rows.Scan(&p.RunID, &p.Index, &p.Label, &p.Width, &p.Height, &p.MaxIter, &p.Scale, &p.Block, &p.Cells, &ms); err != nil {
			return nil, err
		}
		p.Elapsed = time.Duration(ms) * time.Millisecond
		out = append(out, p)
	}
	return out, rows.Err()
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
