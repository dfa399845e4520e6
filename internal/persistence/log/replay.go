package log

import (
	"fmt"

	"fractalcraft.ai/internal/palette"
	"fractalcraft.ai/internal/protocol"
)

// WorldState folds a transcript into the set of non-air blocks it leaves behind.
type WorldState struct {
	Blocks   map[protocol.Pos]palette.Block
	Commands int
	SetBlock int
	Says     []string
	Errors   int
	Rejected int
	// Runs lists run ids in order of first appearance.
	Runs []string

	seen map[string]bool
}

func NewWorldState() *WorldState {
	return &WorldState{Blocks: map[protocol.Pos]palette.Block{}, seen: map[string]bool{}}
}

// Apply replays one entry. Failed commands are counted but do not change the world.
func (w *WorldState) Apply(e Entry) error {
	if !w.seen[e.RunID] {
		w.seen[e.RunID] = true
		w.Runs = append(w.Runs, e.RunID)
	}
	w.Commands++
	if e.Error != "" {
		w.Errors++
		return nil
	}
	if protocol.IsRejected(e.Code) {
		w.Rejected++
		return nil
	}
	cmd, err := protocol.ParseCommand(e.Command)
	if err != nil {
		return fmt.Errorf("seq %d: %w", e.Seq, err)
	}
	switch cmd.Verb {
	case protocol.VerbSay:
		w.Says = append(w.Says, cmd.Text)
	case protocol.VerbSetBlock:
		w.SetBlock++
		if cmd.Block == palette.Air {
			delete(w.Blocks, cmd.Pos)
		} else {
			w.Blocks[cmd.Pos] = cmd.Block
		}
	}
	return nil
}

// Bounds is the inclusive bounding box of the remaining blocks. ok is false when none remain.
func (w *WorldState) Bounds() (min, max protocol.Pos, ok bool) {
	for p := range w.Blocks {
		if !ok {
			min, max, ok = p, p, true
			continue
		}
		min.X, max.X = minInt(min.X, p.X), maxInt(max.X, p.X)
		min.Y, max.Y = minInt(min.Y, p.Y), maxInt(max.Y, p.Y)
		min.Z, max.Z = minInt(min.Z, p.Z), maxInt(max.Z, p.Z)
	}
	return min, max, ok
}

// Histogram counts remaining blocks by kind.
func (w *WorldState) Histogram() map[palette.Block]int {
	h := map[palette.Block]int{}
	for _, b := range w.Blocks {
		h[b]++
	}
	return h
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
