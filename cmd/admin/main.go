package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"fractalcraft.ai/internal/persistence/indexdb"
)

func main() {
	cmd := "runs"
	args := os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}
	var err error
	switch cmd {
	case "runs":
		err = runsCmd(os.Stdout, args)
	case "patterns":
		err = patternsCmd(os.Stdout, args)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q (want runs|patterns)\n", cmd)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, cmd+":", err)
		os.Exit(1)
	}
}

func openIndex(fs *flag.FlagSet, path string) (*indexdb.SQLiteIndex, error) {
	if strings.TrimSpace(path) == "" {
		fs.Usage()
		return nil, fmt.Errorf("missing -db")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return indexdb.OpenSQLite(path)
}

func runsCmd(out io.Writer, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	dbPath := fs.String("db", "", "sqlite index written by render -index")
	limit := fs.Int("limit", 20, "result limit")
	asJSON := fs.Bool("json", false, "print one json object per line")
	if err := fs.Parse(args); err != nil {
		return err
	}
	idx, err := openIndex(fs, *dbPath)
	if err != nil {
		return err
	}
	defer idx.Close()

	runs, err := idx.Runs(context.Background(), *limit)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	for _, r := range runs {
		if *asJSON {
			if err := enc.Encode(map[string]any{
				"id":            r.ID,
				"started_at":    r.StartedAt,
				"finished_at":   r.FinishedAt,
				"addr":          r.Addr,
				"transport":     r.Transport,
				"config_digest": r.ConfigDigest,
				"decision":      r.Decision,
				"patterns":      r.Patterns,
				"cells":         r.Cells,
			}); err != nil {
				return err
			}
			continue
		}
		decision := r.Decision
		if decision == "" {
			decision = "aborted"
			if r.FinishedAt.IsZero() {
				decision = "running"
			}
		}
		digest := r.ConfigDigest
		if len(digest) > 12 {
			digest = digest[:12]
		}
		fmt.Fprintf(out, "%s  %-8s %-8s %s patterns=%d cells=%s config=%s addr=%s\n",
			r.ID, decision, r.Transport, humanize.Time(r.StartedAt), r.Patterns,
			humanize.Comma(int64(r.Cells)), digest, r.Addr)
	}
	return nil
}

func patternsCmd(out io.Writer, args []string) error {
	fs := flag.NewFlagSet("patterns", flag.ContinueOnError)
	dbPath := fs.String("db", "", "sqlite index written by render -index")
	runID := fs.String("run", "", "run id (defaults to the newest run)")
	asJSON := fs.Bool("json", false, "print one json object per line")
	if err := fs.Parse(args); err != nil {
		return err
	}
	idx, err := openIndex(fs, *dbPath)
	if err != nil {
		return err
	}
	defer idx.Close()

	ctx := context.Background()
	id := strings.TrimSpace(*runID)
	if id == "" {
		runs, err := idx.Runs(ctx, 1)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			return fmt.Errorf("no runs recorded")
		}
		id = runs[0].ID
	}
	pats, err := idx.Patterns(ctx, id)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	for _, p := range pats {
		if *asJSON {
			if err := enc.Encode(map[string]any{
				"run_id":     p.RunID,
				"index":      p.Index,
				"label":      p.Label,
				"width":      p.Width,
				"height":     p.Height,
				"max_iter":   p.MaxIter,
				"scale":      p.Scale,
				"block":      p.Block,
				"cells":      p.Cells,
				"elapsed_ms": p.Elapsed.Milliseconds(),
			}); err != nil {
				return err
			}
			continue
		}
		rate := ""
		if secs := p.Elapsed.Seconds(); secs > 0 {
			rate = fmt.Sprintf(" (%s blocks/s)", humanize.Comma(int64(float64(p.Cells)/secs)))
		}
		fmt.Fprintf(out, "%d. %s  %dx%d iter=%d scale=%g block=%s cells=%s time=%s%s\n",
			p.Index+1, p.Label, p.Width, p.Height, p.MaxIter, p.Scale, p.Block,
			humanize.Comma(int64(p.Cells)), p.Elapsed.Round(time.Millisecond), rate)
	}
	return nil
}
