// Package fractal holds the escape-time kernel and the grid-to-plane mapping.
package fractal

import "math/cmplx"

// Bound is the escape radius. Iterate compares |z| itself: re²+im² against 4 rounds
// differently for points whose magnitude is exactly 2.
const Bound = 2.0

// Iterate applies z = z*z + c starting from z = 0 and returns the 0-based index of the
// first application after which |z| > Bound, or maxIter if the orbit stays bounded.
func Iterate(c complex128, maxIter int) int {
	var z complex128
	for n := 0; n < maxIter; n++ {
		z = z*z + c
		if cmplx.Abs(z) > Bound {
			return n
		}
	}
	return maxIter
}

// PixelToComplex maps grid cell (x, z) of a width x height grid centred on the origin.
// Halves are real-valued, so odd sizes land between cells.
func PixelToComplex(x, z, width, height int, scale float64) complex128 {
	re := (float64(x) - float64(width)/2) * scale
	im := (float64(z) - float64(height)/2) * scale
	return complex(re, im)
}

// Field computes the iteration counts for a whole grid, indexed [x][z].
func Field(width, height, maxIter int, scale float64) [][]int {
	out := make([][]int, width)
	for x := 0; x < width; x++ {
		col := make([]int, height)
		for z := 0; z < height; z++ {
			col[z] = Iterate(PixelToComplex(x, z, width, height, scale), maxIter)
		}
		out[x] = col
	}
	return out
}
