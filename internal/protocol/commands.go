package protocol

import (
	"fmt"
	"strconv"
	"strings"

	"fractalcraft.ai/internal/palette"
)

// Command verbs.
const (
	VerbSetBlock = "setblock"
	VerbSay      = "say"
)

func SetBlock(p Pos, b palette.Block) string {
	return fmt.Sprintf("%s %d %d %d %s", VerbSetBlock, p.X, p.Y, p.Z, b)
}

func Say(msg string) string {
	return VerbSay + " " + msg
}

// Command is a parsed console command. Only the verbs this module sends are understood.
type Command struct {
	Verb  string
	Pos   Pos
	Block palette.Block
	Text  string
}

func ParseCommand(s string) (Command, error) {
	s = strings.TrimSpace(s)
	verb, rest, _ := strings.Cut(s, " ")
	switch verb {
	case VerbSay:
		return Command{Verb: VerbSay, Text: rest}, nil
	case VerbSetBlock:
		f := strings.Fields(rest)
		if len(f) != 4 {
			return Command{}, fmt.Errorf("setblock: want 4 args, got %d", len(f))
		}
		var xyz [3]int
		for i := 0; i < 3; i++ {
			n, err := strconv.Atoi(f[i])
			if err != nil {
				return Command{}, fmt.Errorf("setblock: coordinate %q: %w", f[i], err)
			}
			xyz[i] = n
		}
		b, err := palette.ParseBlock(f[3])
		if err != nil {
			return Command{}, fmt.Errorf("setblock: %w", err)
		}
		return Command{Verb: VerbSetBlock, Pos: Pos{X: xyz[0], Y: xyz[1], Z: xyz[2]}, Block: b}, nil
	case "":
		return Command{}, fmt.Errorf("empty command")
	default:
		return Command{}, fmt.Errorf("unsupported command %q", verb)
	}
}
