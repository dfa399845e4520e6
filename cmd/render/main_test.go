package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"fractalcraft.ai/internal/persistence/indexdb"
	plog "fractalcraft.ai/internal/persistence/log"
	"fractalcraft.ai/internal/palette"
	"fractalcraft.ai/internal/rcon"
	"fractalcraft.ai/internal/rcon/rcontest"
	"fractalcraft.ai/internal/render"
)

const twoPatterns = `version: "1.0.0"
center: {x: 10, y: 64, z: -5}
patterns:
  - {width: 4, height: 4, max_iter: 10, scale: 0.5, label: a}
  - {width: 3, height: 3, max_iter: 5, scale: 0.5, block: red_wool, label: b}
pacing: {remove_every: 0, remove_pause_ms: 0, draw_every: 0, draw_pause_ms: 0, settle_after_remove_ms: 0}
`

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "patterns.yaml")
	if err := os.WriteFile(path, []byte(twoPatterns), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun_RemoveLeavesWorldEmpty(t *testing.T) {
	srv := rcontest.NewServer(t, "secret")
	srv.Reply = rcontest.SetBlockReply
	dir := t.TempDir()

	opts := options{
		Addr:       srv.Addr(),
		Password:   "secret",
		Transport:  transportRCON,
		ConfigPath: writeConfig(t),
		Transcript: filepath.Join(dir, "t.jsonl.zst"),
		IndexPath:  filepath.Join(dir, "index.db"),
		PreviewDir: filepath.Join(dir, "preview"),
	}
	var out bytes.Buffer
	if err := run(context.Background(), opts, strings.NewReader("\nremove\n"), &out, quietLogger()); err != nil {
		t.Fatalf("run: %v\n%s", err, out.String())
	}

	cmds := srv.Commands()
	if len(cmds) != 56 {
		t.Fatalf("server saw %d commands want 56", len(cmds))
	}
	if cmds[0] != "setblock 10 64 -5 diamond_block" || cmds[1] != "say "+render.DrawingPrefix+"a" {
		t.Fatalf("opening commands=%q", cmds[:2])
	}
	if last := cmds[len(cmds)-1]; last != "say "+render.CleanupMsg {
		t.Fatalf("last command=%q", last)
	}
	if !strings.Contains(out.String(), "Everything has been cleaned up") {
		t.Fatalf("missing cleanup summary:\n%s", out.String())
	}

	ws := plog.NewWorldState()
	if err := plog.ReadTranscript(opts.Transcript, ws.Apply); err != nil {
		t.Fatalf("read transcript: %v", err)
	}
	if ws.Commands != 56 || len(ws.Blocks) != 0 || len(ws.Runs) != 1 {
		t.Fatalf("replayed state: commands=%d blocks=%d runs=%v", ws.Commands, len(ws.Blocks), ws.Runs)
	}

	idx, err := indexdb.OpenSQLite(opts.IndexPath)
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	defer idx.Close()
	runs, err := idx.Runs(context.Background(), 5)
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(runs) != 1 || runs[0].Decision != "remove" || runs[0].Patterns != 2 || runs[0].Cells != 25 {
		t.Fatalf("runs=%+v", runs)
	}
	if runs[0].ID != ws.Runs[0] {
		t.Fatalf("transcript run %q != index run %q", ws.Runs[0], runs[0].ID)
	}
	pats, err := idx.Patterns(context.Background(), runs[0].ID)
	if err != nil || len(pats) != 2 || pats[1].Block != "red_wool" {
		t.Fatalf("patterns=%+v err=%v", pats, err)
	}

	for _, name := range []string{"pattern-1.png", "pattern-2.png"} {
		if _, err := os.Stat(filepath.Join(opts.PreviewDir, name)); err != nil {
			t.Fatalf("preview %s: %v", name, err)
		}
	}
}

func TestRun_KeepLeavesLastPattern(t *testing.T) {
	srv := rcontest.NewServer(t, "secret")
	transcript := filepath.Join(t.TempDir(), "t.jsonl.gz")
	opts := options{Addr: srv.Addr(), Password: "secret", ConfigPath: writeConfig(t), Transcript: transcript}

	var out bytes.Buffer
	if err := run(context.Background(), opts, strings.NewReader("\nkeep\n"), &out, quietLogger()); err != nil {
		t.Fatalf("run: %v", err)
	}
	ws := plog.NewWorldState()
	if err := plog.ReadTranscript(transcript, ws.Apply); err != nil {
		t.Fatalf("read transcript: %v", err)
	}
	// The anchor lies inside the grid, so its marker is overdrawn by a cell.
	if len(ws.Blocks) != 9 {
		t.Fatalf("blocks left=%d want 9", len(ws.Blocks))
	}
	if h := ws.Histogram(); h[palette.RedWool] != 9 {
		t.Fatalf("histogram=%v", h)
	}
	if !strings.Contains(out.String(), "Mandelbrot fractal remains at (10, 64, -5)") {
		t.Fatalf("missing keep summary:\n%s", out.String())
	}
}

func TestRun_WrongPasswordIsFatal(t *testing.T) {
	srv := rcontest.NewServer(t, "secret")
	opts := options{Addr: srv.Addr(), Password: "nope", ConfigPath: writeConfig(t)}
	err := run(context.Background(), opts, strings.NewReader(""), io.Discard, quietLogger())
	if !errors.Is(err, rcon.ErrAuthFailed) {
		t.Fatalf("err=%v want ErrAuthFailed", err)
	}
	if len(srv.Commands()) != 0 {
		t.Fatalf("commands sent after failed auth: %v", srv.Commands())
	}
}

func TestRun_UnknownTransport(t *testing.T) {
	opts := options{Addr: "127.0.0.1:1", Transport: "carrier-pigeon"}
	if err := run(context.Background(), opts, strings.NewReader(""), io.Discard, quietLogger()); err == nil {
		t.Fatalf("expected error")
	}
}

func TestRun_InputClosedBeforeDecision(t *testing.T) {
	srv := rcontest.NewServer(t, "secret")
	dir := t.TempDir()
	opts := options{Addr: srv.Addr(), Password: "secret", ConfigPath: writeConfig(t), IndexPath: filepath.Join(dir, "i.db")}
	if err := run(context.Background(), opts, strings.NewReader("\n"), io.Discard, quietLogger()); err == nil {
		t.Fatalf("expected error when input ends")
	}

	idx, err := indexdb.OpenSQLite(opts.IndexPath)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	runs, err := idx.Runs(context.Background(), 5)
	if err != nil || len(runs) != 1 || runs[0].Decision != "" || runs[0].FinishedAt.IsZero() {
		t.Fatalf("aborted run=%+v err=%v", runs, err)
	}
}

func TestParseFlags_PasswordIgnoresEnvironment(t *testing.T) {
	t.Setenv("RCON_PASSWORD", "from-env")
	f, err := parseFlags(nil)
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if f.opts.Password != DefaultPassword || f.opts.Addr != rcon.DefaultAddr || f.opts.Transport != transportRCON {
		t.Fatalf("defaults=%+v", f.opts)
	}
	if f.opts.Timeout != 0 || f.logLevel != "info" {
		t.Fatalf("timeout=%v log_level=%q", f.opts.Timeout, f.logLevel)
	}

	f, err = parseFlags([]string{"-password", "secret", "-transport", "webrcon", "-timeout", "2s"})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if f.opts.Password != "secret" || f.opts.Transport != transportWebRCON || f.opts.Timeout.Seconds() != 2 {
		t.Fatalf("parsed=%+v", f.opts)
	}
}
