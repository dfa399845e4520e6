// Package palette maps escape-time iteration counts to placeable blocks.
package palette

import (
	"fmt"
	"image/color"
	"strings"
)

// Block is a placeable block kind. The zero value is Air.
type Block uint8

const (
	Air Block = iota
	DiamondBlock
	WhiteWool
	OrangeWool
	MagentaWool
	LightBlueWool
	YellowWool
	LimeWool
	PinkWool
	GrayWool
	LightGrayWool
	CyanWool
	PurpleWool
	BlueWool
	BrownWool
	GreenWool
	RedWool
	BlackWool

	numBlocks
)

type blockDef struct {
	id  string
	rgb color.RGBA
}

var blockDefs = [numBlocks]blockDef{
	Air:           {"air", color.RGBA{0, 0, 0, 0}},
	DiamondBlock:  {"diamond_block", color.RGBA{98, 237, 228, 255}},
	WhiteWool:     {"white_wool", color.RGBA{233, 236, 236, 255}},
	OrangeWool:    {"orange_wool", color.RGBA{240, 118, 19, 255}},
	MagentaWool:   {"magenta_wool", color.RGBA{189, 68, 179, 255}},
	LightBlueWool: {"light_blue_wool", color.RGBA{58, 175, 217, 255}},
	YellowWool:    {"yellow_wool", color.RGBA{248, 197, 39, 255}},
	LimeWool:      {"lime_wool", color.RGBA{112, 185, 25, 255}},
	PinkWool:      {"pink_wool", color.RGBA{237, 141, 172, 255}},
	GrayWool:      {"gray_wool", color.RGBA{62, 68, 71, 255}},
	LightGrayWool: {"light_gray_wool", color.RGBA{142, 142, 134, 255}},
	CyanWool:      {"cyan_wool", color.RGBA{21, 137, 145, 255}},
	PurpleWool:    {"purple_wool", color.RGBA{121, 42, 172, 255}},
	BlueWool:      {"blue_wool", color.RGBA{53, 57, 157, 255}},
	BrownWool:     {"brown_wool", color.RGBA{114, 71, 40, 255}},
	GreenWool:     {"green_wool", color.RGBA{84, 109, 27, 255}},
	RedWool:       {"red_wool", color.RGBA{161, 39, 34, 255}},
	BlackWool:     {"black_wool", color.RGBA{20, 21, 25, 255}},
}

var blockIndex = func() map[string]Block {
	m := make(map[string]Block, numBlocks)
	for i, d := range blockDefs {
		m[d.id] = Block(i)
	}
	return m
}()

// String returns the game's block id.
func (b Block) String() string {
	if b >= numBlocks {
		return fmt.Sprintf("block(%d)", uint8(b))
	}
	return blockDefs[b].id
}

// RGBA is the approximate on-screen colour of the block, used for previews.
func (b Block) RGBA() color.RGBA {
	if b >= numBlocks {
		return color.RGBA{255, 0, 255, 255}
	}
	return blockDefs[b].rgb
}

// ParseBlock resolves a game block id. An optional "minecraft:" namespace is accepted.
func ParseBlock(s string) (Block, error) {
	id := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "minecraft:")
	b, ok := blockIndex[id]
	if !ok {
		return Air, fmt.Errorf("unknown block %q", s)
	}
	return b, nil
}

// Blocks lists every known block in declaration order.
func Blocks() []Block {
	out := make([]Block, 0, numBlocks)
	for b := Block(0); b < numBlocks; b++ {
		out = append(out, b)
	}
	return out
}
