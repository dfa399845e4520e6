// Package preview renders a pattern to an image file so it can be checked before it
// is built block by block.
package preview

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/nfnt/resize"
	"golang.org/x/image/bmp"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"fractalcraft.ai/internal/config"
	"fractalcraft.ai/internal/fractal"
)

// DefaultScale is the number of pixels per block in written previews.
const DefaultScale = 8

const labelHeight = 16

// Image draws one pixel per cell. Pixel (x, z) is the block placed at column x, row z.
func Image(p config.Pattern) (*image.RGBA, error) {
	kind, err := p.Kind()
	if err != nil {
		return nil, err
	}
	img := image.NewRGBA(image.Rect(0, 0, p.Width, p.Height))
	field := fractal.Field(p.Width, p.Height, p.MaxIter, p.Scale)
	for x := range field {
		for z, iter := range field[x] {
			img.SetRGBA(x, z, kind.Resolve(iter, p.MaxIter).RGBA())
		}
	}
	return img, nil
}

// Render upscales the cell image by scale and adds a caption strip underneath.
func Render(p config.Pattern, scale int) (*image.RGBA, error) {
	if scale < 1 {
		scale = 1
	}
	cells, err := Image(p)
	if err != nil {
		return nil, err
	}
	w, h := uint(p.Width*scale), uint(p.Height*scale)
	big := resize.Resize(w, h, cells, resize.NearestNeighbor)

	out := image.NewRGBA(image.Rect(0, 0, int(w), int(h)+labelHeight))
	draw.Draw(out, out.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	draw.Draw(out, image.Rect(0, 0, int(w), int(h)), big, image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  out,
		Src:  image.NewUniform(color.White),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(2, int(h)+labelHeight-4),
	}
	d.DrawString(Caption(p))
	return out, nil
}

func Caption(p config.Pattern) string {
	return fmt.Sprintf("%s %dx%d i=%d s=%g", p.Label, p.Width, p.Height, p.MaxIter, p.Scale)
}

// FileName is the preview name for the pattern at 0-based index.
func FileName(index int, ext string) string {
	return fmt.Sprintf("pattern-%d%s", index+1, ext)
}

// Write renders p into path. The format follows the extension: .bmp or .png.
func Write(path string, p config.Pattern, scale int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	img, err := Render(p, scale)
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".bmp":
		err = bmp.Encode(f, img)
	case ".png":
		err = png.Encode(f, img)
	default:
		err = fmt.Errorf("unsupported preview format %q", filepath.Ext(path))
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
