package render

import (
	"errors"
	"image/color"
	"math"
	"testing"

	"github.com/mohamadtshehab/Fluid-Simulation/pkg/fluid"
)

func newFluid(t *testing.T, n int) *fluid.Fluid {
	t.Helper()
	f, err := fluid.New(fluid.Config{N: n, TimeStep: 0.1, Iterations: 4})
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func pixel(buf []byte, n, i, j int) color.RGBA {
	k := 4 * (j*n + i)
	return color.RGBA{R: buf[k], G: buf[k+1], B: buf[k+2], A: buf[k+3]}
}

func TestSciPaletteBands(t *testing.T) {
	var p SciPalette
	tests := []struct {
		t    float64
		want color.RGBA
	}{
		{-1, color.RGBA{0, 0, 255, 255}},
		{0, color.RGBA{0, 0, 255, 255}},
		{0.25, color.RGBA{0, 255, 255, 255}},
		{0.5, color.RGBA{0, 255, 0, 255}},
		{0.75, color.RGBA{255, 255, 0, 255}},
		{2, color.RGBA{255, 0, 0, 255}},
	}
	for _, tt := range tests {
		if got := p.Color(tt.t); got != tt.want {
			t.Errorf("Color(%g): expected %v, got %v", tt.t, tt.want, got)
		}
	}
}

func TestPaletteByName(t *testing.T) {
	for _, name := range PaletteNames() {
		p, err := PaletteByName(name)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		for _, v := range []float64{0, 0.5, 1} {
			if c := p.Color(v); c.A != 0xff {
				t.Errorf("%s: colour at %g is not opaque: %v", name, v, c)
			}
		}
	}
	if _, err := PaletteByName("VIRIDIS"); err != nil {
		t.Errorf("names should be case insensitive: %v", err)
	}
	if _, err := PaletteByName("sepia"); err == nil {
		t.Error("expected an error for an unknown palette")
	}
}

func TestGradientPaletteClamps(t *testing.T) {
	p, err := PaletteByName("viridis")
	if err != nil {
		t.Fatal(err)
	}
	if p.Color(-3) != p.Color(0) || p.Color(7) != p.Color(1) {
		t.Error("out of range values should clamp to the ends")
	}
	if p.Color(0) == p.Color(1) {
		t.Error("gradient ends should differ")
	}
}

func TestPalettesClampNonFinite(t *testing.T) {
	for _, name := range PaletteNames() {
		p, err := PaletteByName(name)
		if err != nil {
			t.Fatal(err)
		}
		if got, want := p.Color(math.NaN()), p.Color(0); got != want {
			t.Errorf("%s: NaN gave %v, expected the low end %v", name, got, want)
		}
		if got, want := p.Color(math.Inf(1)), p.Color(1); got != want {
			t.Errorf("%s: +Inf gave %v, expected the high end %v", name, got, want)
		}
		if got, want := p.Color(math.Inf(-1)), p.Color(0); got != want {
			t.Errorf("%s: -Inf gave %v, expected the low end %v", name, got, want)
		}
	}
}

func TestScalarPixels(t *testing.T) {
	const n = 4
	f := newFluid(t, n)
	if err := f.AddDensity(1, 2, 1); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, BufferSize(n))
	if err := ScalarPixels(f.Density(), SciPalette{}, buf); err != nil {
		t.Fatal(err)
	}
	if got := pixel(buf, n, 1, 2); got != (color.RGBA{255, 0, 0, 255}) {
		t.Errorf("peak cell: expected red, got %v", got)
	}
	if got := pixel(buf, n, 2, 1); got != (color.RGBA{0, 0, 255, 255}) {
		t.Errorf("empty cell: expected blue, got %v", got)
	}
}

func TestScalarPixelsFlatField(t *testing.T) {
	const n = 3
	buf := make([]byte, BufferSize(n))
	if err := ScalarPixels(newFluid(t, n).Density(), SciPalette{}, buf); err != nil {
		t.Fatal(err)
	}
	for i := range n {
		for j := range n {
			if got := pixel(buf, n, i, j); got != (color.RGBA{0, 255, 0, 255}) {
				t.Fatalf("cell (%d,%d): expected mid-range green, got %v", i, j, got)
			}
		}
	}
}

func TestPixelsRejectWrongBuffer(t *testing.T) {
	f := newFluid(t, 4)
	short := make([]byte, BufferSize(4)-1)
	if err := ScalarPixels(f.Density(), SciPalette{}, short); !errors.Is(err, fluid.ErrDimensionMismatch) {
		t.Errorf("scalar: expected ErrDimensionMismatch, got %v", err)
	}
	if err := DirectionPixels(f.Velocity(), short); !errors.Is(err, fluid.ErrDimensionMismatch) {
		t.Errorf("direction: expected ErrDimensionMismatch, got %v", err)
	}
}

func TestDirectionPixels(t *testing.T) {
	const n = 4
	f := newFluid(t, n)
	if err := f.AddVelocity(3, 0, 2, 0); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, BufferSize(n))
	if err := DirectionPixels(f.Velocity(), buf); err != nil {
		t.Fatal(err)
	}
	if got := pixel(buf, n, 3, 0); got != (color.RGBA{255, 0, 0, 255}) {
		t.Errorf("+x flow at full speed: expected red, got %v", got)
	}
	if got := pixel(buf, n, 0, 0); got != (color.RGBA{0, 0, 0, 255}) {
		t.Errorf("still cell: expected black, got %v", got)
	}
}

func TestDegreesWraps(t *testing.T) {
	for in, want := range map[float64]float64{0: 0, 90: 90, -90: 270, 360: 0, 725: 5} {
		if got := degrees(in); got != want {
			t.Errorf("degrees(%g): expected %g, got %g", in, want, got)
		}
	}
}
