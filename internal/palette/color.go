package palette

import "fmt"

// Scheme is the pattern block kind that selects the escape palette instead of a fixed block.
const Scheme = "wool"

// NeverEscaped marks points whose orbit stayed bounded for every iteration.
const NeverEscaped = BlackWool

// Marker is placed at the anchor while a pattern is being drawn.
const Marker = DiamondBlock

// Wool is the escape palette, indexed by iteration count modulo its length.
//
// The last entry is the NeverEscaped block as well, so counts with
// n%len(Wool) == AliasIndex render the same as bounded points.
var Wool = [...]Block{
	WhiteWool,
	OrangeWool,
	MagentaWool,
	LightBlueWool,
	YellowWool,
	LimeWool,
	PinkWool,
	GrayWool,
	LightGrayWool,
	CyanWool,
	PurpleWool,
	BlueWool,
	BrownWool,
	GreenWool,
	BlackWool,
}

// AliasIndex is the palette slot that collides with NeverEscaped.
const AliasIndex = len(Wool) - 1

// ColorFor maps an iteration count to a palette block.
func ColorFor(iter, maxIter int) Block {
	if iter == maxIter {
		return NeverEscaped
	}
	n := iter % len(Wool)
	if n < 0 {
		n += len(Wool)
	}
	return Wool[n]
}

// Kind is a pattern's block selection: either the escape palette or one fixed block.
type Kind struct {
	Palette bool
	Fixed   Block
}

// ParseKind accepts Scheme or any known block id.
func ParseKind(s string) (Kind, error) {
	if s == Scheme {
		return Kind{Palette: true}, nil
	}
	b, err := ParseBlock(s)
	if err != nil {
		return Kind{}, fmt.Errorf("block kind: %w", err)
	}
	if b == Air {
		return Kind{}, fmt.Errorf("block kind: air cannot be drawn")
	}
	return Kind{Fixed: b}, nil
}

// Resolve picks the block for one cell.
func (k Kind) Resolve(iter, maxIter int) Block {
	if k.Palette {
		return ColorFor(iter, maxIter)
	}
	return k.Fixed
}

func (k Kind) String() string {
	if k.Palette {
		return Scheme
	}
	return k.Fixed.String()
}
