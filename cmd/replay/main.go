package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	plog "fractalcraft.ai/internal/persistence/log"
	"fractalcraft.ai/internal/render"
)

func main() {
	var (
		transcript = flag.String("transcript", "", "path to a transcript (.jsonl, .jsonl.zst, .jsonl.gz)")
		expect     = flag.String("expect", "", "fail unless the final world is \"empty\" or \"kept\" (optional)")
	)
	flag.Parse()

	if *transcript == "" {
		fmt.Fprintln(os.Stderr, "missing -transcript")
		os.Exit(2)
	}
	if err := replay(os.Stdout, *transcript, *expect); err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
}

func replay(out io.Writer, path, expect string) error {
	ws := plog.NewWorldState()
	if err := plog.ReadTranscript(path, ws.Apply); err != nil {
		return err
	}

	fmt.Fprintf(out, "runs=%s commands=%s setblock=%s say=%d errors=%d rejected=%d\n",
		strings.Join(ws.Runs, ","), humanize.Comma(int64(ws.Commands)), humanize.Comma(int64(ws.SetBlock)),
		len(ws.Says), ws.Errors, ws.Rejected)

	state := "empty"
	if min, max, ok := ws.Bounds(); ok {
		state = "kept"
		fmt.Fprintf(out, "remaining=%s blocks bounds=%s..%s\n", humanize.Comma(int64(len(ws.Blocks))), min, max)
		hist := ws.Histogram()
		type kv struct {
			name string
			n    int
		}
		var rows []kv
		for b, n := range hist {
			rows = append(rows, kv{b.String(), n})
		}
		sort.Slice(rows, func(i, j int) bool {
			if rows[i].n != rows[j].n {
				return rows[i].n > rows[j].n
			}
			return rows[i].name < rows[j].name
		})
		for _, r := range rows {
			fmt.Fprintf(out, "  %-16s %s\n", r.name, humanize.Comma(int64(r.n)))
		}
	}

	last := ""
	if len(ws.Says) > 0 {
		last = ws.Says[len(ws.Says)-1]
	}
	// The closing announcement must agree with what the world holds.
	switch {
	case state == "empty" && last == render.KeptMsg:
		return fmt.Errorf("announced keep but the world is empty")
	case state == "kept" && last == render.CleanupMsg:
		return fmt.Errorf("announced cleanup but %d blocks remain", len(ws.Blocks))
	}
	fmt.Fprintf(out, "final world: %s\n", state)

	if expect != "" && expect != state {
		return fmt.Errorf("final world is %s, want %s", state, expect)
	}
	return nil
}
