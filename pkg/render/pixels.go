package render

import (
	"fmt"
	"math"

	"github.com/crazy3lf/colorconv"

	"github.com/mohamadtshehab/Fluid-Simulation/pkg/fluid"
)

// BufferSize is the RGBA byte count of an n by n image.
func BufferSize(n int) int { return 4 * n * n }

// ScalarPixels writes field into dst as RGBA, normalised to the field's
// own range. Cell (i, j) lands at column i, row j.
func ScalarPixels(field fluid.ScalarField, p Palette, dst []byte) error {
	return ScalarPixelsRange(field, p, field.MinValue, field.MaxValue, dst)
}

// ScalarPixelsRange is ScalarPixels with a fixed [lo, hi] range.
func ScalarPixelsRange(field fluid.ScalarField, p Palette, lo, hi float64, dst []byte) error {
	if field.NumX != field.NumY {
		return fmt.Errorf("%w: %dx%d field is not square", fluid.ErrDimensionMismatch, field.NumX, field.NumY)
	}
	n := field.NumX
	if len(dst) != BufferSize(n) {
		return fmt.Errorf("%w: %d byte buffer for a %dx%d field", fluid.ErrDimensionMismatch, len(dst), n, n)
	}
	m := field.Matrix()
	d := hi - lo
	for i := range n {
		for j := range n {
			t := 0.5
			if d > 0 {
				t = (m.At(i, j) - lo) / d
			}
			c := p.Color(t)
			k := 4 * (j*n + i)
			dst[k], dst[k+1], dst[k+2], dst[k+3] = c.R, c.G, c.B, c.A
		}
	}
	return nil
}

// DirectionPixels colours each cell by its flow direction (hue) and speed
// (value, relative to the fastest cell).
func DirectionPixels(field fluid.VectorField, dst []byte) error {
	if field.NumX != field.NumY {
		return fmt.Errorf("%w: %dx%d field is not square", fluid.ErrDimensionMismatch, field.NumX, field.NumY)
	}
	n := field.NumX
	if len(dst) != BufferSize(n) {
		return fmt.Errorf("%w: %d byte buffer for a %dx%d field", fluid.ErrDimensionMismatch, len(dst), n, n)
	}
	u, v := field.Components()

	var top float64
	for i := range n {
		for j := range n {
			top = max(top, math.Hypot(u.At(i, j), v.At(i, j)))
		}
	}
	for i := range n {
		for j := range n {
			x, y := u.At(i, j), v.At(i, j)
			var val float64
			if top > 0 {
				val = math.Hypot(x, y) / top
			}
			r, g, b, err := colorconv.HSVToRGB(degrees(math.Atan2(y, x)*180/math.Pi), 1, val)
			if err != nil {
				return err
			}
			k := 4 * (j*n + i)
			dst[k], dst[k+1], dst[k+2], dst[k+3] = r, g, b, 0xff
		}
	}
	return nil
}

func hue(d float64) (r, g, b uint8) {
	r, g, b, _ = colorconv.HSVToRGB(degrees(d), 1, 1)
	return r, g, b
}

// degrees wraps d into [0, 360).
func degrees(d float64) float64 {
	d = math.Mod(math.Mod(d, 360)+360, 360)
	if d >= 360 {
		return 0
	}
	return d
}
