package log

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"fractalcraft.ai/internal/palette"
	"fractalcraft.ai/internal/protocol"
)

func TestCodecFor(t *testing.T) {
	cases := map[string]Codec{
		"a/t.jsonl.zst": CodecZstd,
		"t.jsonl.gz":    CodecGzip,
		"t.jsonl":       CodecNone,
	}
	for p, want := range cases {
		if got := CodecFor(p); got != want {
			t.Fatalf("CodecFor(%q)=%d want %d", p, got, want)
		}
	}
}

func TestRecorder_RoundTripsEveryCodec(t *testing.T) {
	for _, name := range []string{"t.jsonl", "t.jsonl.zst", "t.jsonl.gz"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "sub", name)
			w, err := NewJSONLWriter(path)
			if err != nil {
				t.Fatalf("writer: %v", err)
			}
			boom := errors.New("boom")
			next := protocol.CommanderFunc(func(_ context.Context, cmd string) (string, error) {
				if cmd == "say fail" {
					return "", boom
				}
				return "Changed the block at 0, 70, 0", nil
			})
			rec := NewRecorder(next, w, "run-1")

			cmds := []string{"setblock 0 70 0 diamond_block", "say fail", "setblock 1 70 0 white_wool"}
			for _, c := range cmds {
				_, err := rec.Command(context.Background(), c)
				if c == "say fail" {
					if !errors.Is(err, boom) {
						t.Fatalf("err=%v want boom", err)
					}
				} else if err != nil {
					t.Fatalf("%s: %v", c, err)
				}
			}
			if err := w.Close(); err != nil {
				t.Fatalf("close: %v", err)
			}
			if rec.Err() != nil || rec.Seq() != 3 {
				t.Fatalf("seq=%d err=%v", rec.Seq(), rec.Err())
			}

			var got []Entry
			if err := ReadTranscript(path, func(e Entry) error {
				got = append(got, e)
				return nil
			}); err != nil {
				t.Fatalf("read: %v", err)
			}
			if len(got) != 3 {
				t.Fatalf("entries=%d want 3", len(got))
			}
			for i, e := range got {
				if e.Seq != i+1 || e.RunID != "run-1" || e.Command != cmds[i] {
					t.Fatalf("entry %d = %+v", i, e)
				}
			}
			if got[0].Code != protocol.ReplyOK {
				t.Fatalf("code=%q", got[0].Code)
			}
			if got[1].Error != "boom" || got[1].Code != "" {
				t.Fatalf("failed entry = %+v", got[1])
			}
		})
	}
}

func TestJSONLWriter_WriteAfterClose(t *testing.T) {
	w, err := NewJSONLWriter(filepath.Join(t.TempDir(), "x.jsonl"))
	if err != nil {
		t.Fatalf("writer: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if err := w.Write(Entry{}); err == nil {
		t.Fatalf("expected error writing to closed writer")
	}
}

func TestReadTranscript_BadLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.jsonl")
	if err := os.WriteFile(path, []byte("{\"seq\":1}\nnot json\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	n := 0
	err := ReadTranscript(path, func(Entry) error { n++; return nil })
	if err == nil || n != 1 {
		t.Fatalf("n=%d err=%v", n, err)
	}
}

func TestWorldState_DrawThenErase(t *testing.T) {
	ws := NewWorldState()
	entries := []Entry{
		{RunID: "a", Seq: 1, Command: "setblock 0 70 0 diamond_block"},
		{RunID: "a", Seq: 2, Command: "say Drawing: x"},
		{RunID: "a", Seq: 3, Command: "setblock -1 70 -1 white_wool"},
		{RunID: "a", Seq: 4, Command: "setblock 0 70 -1 black_wool"},
		{RunID: "a", Seq: 5, Command: "setblock 9 70 9 white_wool", Code: protocol.ReplyOutOfWorld},
		{RunID: "a", Seq: 6, Command: "setblock 8 70 8 white_wool", Error: "conn closed"},
	}
	for _, e := range entries {
		if err := ws.Apply(e); err != nil {
			t.Fatalf("apply %d: %v", e.Seq, err)
		}
	}
	if len(ws.Blocks) != 3 || ws.Rejected != 1 || ws.Errors != 1 || ws.SetBlock != 3 {
		t.Fatalf("state=%+v", ws)
	}
	min, max, ok := ws.Bounds()
	if !ok || min != (protocol.Pos{X: -1, Y: 70, Z: -1}) || max != (protocol.Pos{X: 0, Y: 70, Z: 0}) {
		t.Fatalf("bounds=%v %v %v", min, max, ok)
	}
	if h := ws.Histogram(); h[palette.WhiteWool] != 1 || h[palette.DiamondBlock] != 1 {
		t.Fatalf("histogram=%v", h)
	}

	for i, c := range []string{"setblock -1 70 -1 air", "setblock 0 70 -1 air", "setblock 0 70 0 air"} {
		if err := ws.Apply(Entry{RunID: "b", Seq: 10 + i, Command: c}); err != nil {
			t.Fatalf("apply: %v", err)
		}
	}
	if _, _, ok := ws.Bounds(); ok {
		t.Fatalf("world not empty: %v", ws.Blocks)
	}
	if len(ws.Runs) != 2 || ws.Runs[0] != "a" || ws.Runs[1] != "b" {
		t.Fatalf("runs=%v", ws.Runs)
	}
	if len(ws.Says) != 1 || ws.Says[0] != "Drawing: x" {
		t.Fatalf("says=%v", ws.Says)
	}
}

func TestWorldState_UnparseableCommand(t *testing.T) {
	if err := NewWorldState().Apply(Entry{Seq: 3, Command: "setblock 1 2"}); err == nil {
		t.Fatalf("expected parse error")
	}
}
