package indexdb

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func TestSQLiteIndex_RunLifecycle(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "index.db")

	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	clock := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	idx.now = func() time.Time { clock = clock.Add(time.Second); return clock }

	first, err := idx.StartRun(ctx, "localhost:25575", "rcon", "abc", `{"version":"1.0.0"}`)
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	for i, cells := range []int{3000, 10000} {
		if err := idx.RecordPattern(ctx, PatternRow{
			RunID: first, Index: i, Label: "p", Width: 50, Height: 60,
			MaxIter: 25, Scale: 1.2, Block: "wool", Cells: cells, Elapsed: 1500 * time.Millisecond,
		}); err != nil {
			t.Fatalf("RecordPattern: %v", err)
		}
	}
	if err := idx.FinishRun(ctx, first, "keep"); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
	second, err := idx.StartRun(ctx, "host:1", "webrcon", "def", "{}")
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}

	runs, err := idx.Runs(ctx, 10)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != second || runs[1].ID != first {
		t.Fatalf("runs=%+v", runs)
	}
	if r := runs[1]; r.Decision != "keep" || r.Patterns != 2 || r.Cells != 13000 || r.FinishedAt.IsZero() {
		t.Fatalf("finished run=%+v", r)
	}
	if r := runs[0]; r.Decision != "" || !r.FinishedAt.IsZero() || r.Transport != "webrcon" {
		t.Fatalf("open run=%+v", r)
	}

	pats, err := idx.Patterns(ctx, first)
	if err != nil {
		t.Fatalf("Patterns: %v", err)
	}
	if len(pats) != 2 || pats[1].Cells != 10000 || pats[0].Elapsed != 1500*time.Millisecond || pats[0].Scale != 1.2 {
		t.Fatalf("patterns=%+v", pats)
	}

	if err := idx.FinishRun(ctx, "missing", "remove"); err == nil {
		t.Fatalf("expected error for unknown run")
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	defer db.Close()
	var digest string
	if err := db.QueryRow(`SELECT config_digest FROM runs WHERE id=?`, first).Scan(&digest); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if digest != "abc" {
		t.Fatalf("digest=%q", digest)
	}
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	if _, err := OpenSQLite(""); err == nil {
		t.Fatalf("expected error")
	}
}
