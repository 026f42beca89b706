// Package render turns fluid snapshots into RGBA pixel buffers.
package render

import (
	"fmt"
	"image/color"
	"math"
	"sort"
	"strings"

	"github.com/mazznoer/colorgrad"
)

// Palette maps t in [0, 1] to a colour. Values outside are clamped.
type Palette interface {
	Color(t float64) color.RGBA
}

// SciPalette is the four band blue, cyan, green, yellow, red map.
type SciPalette struct{}

func (SciPalette) Color(t float64) color.RGBA {
	t = min(clamp01(t), 1-0.0001)
	const band = 0.25
	num := math.Floor(t / band)
	s := (t - num*band) / band

	var r, g, b float64
	switch num {
	case 0:
		g, b = s, 1
	case 1:
		g, b = 1, 1-s
	case 2:
		r, g = s, 1
	case 3:
		r, g = 1, 1-s
	}
	return color.RGBA{R: uint8(255 * r), G: uint8(255 * g), B: uint8(255 * b), A: 0xff}
}

// GradientPalette is a lookup table sampled from a colorgrad gradient.
type GradientPalette struct {
	table []color.RGBA
}

const gradientSize = 256

func NewGradientPalette(grad colorgrad.Gradient) *GradientPalette {
	colors := grad.Colors(gradientSize)
	p := &GradientPalette{table: make([]color.RGBA, len(colors))}
	for i, c := range colors {
		p.table[i] = color.RGBAModel.Convert(c).(color.RGBA)
		p.table[i].A = 0xff
	}
	return p
}

func (p *GradientPalette) Color(t float64) color.RGBA {
	t = clamp01(t)
	return p.table[int(math.Round(t*float64(len(p.table)-1)))]
}

// clamp01 clamps t into [0, 1]. NaN maps to 0.
func clamp01(t float64) float64 {
	if !(t > 0) {
		return 0
	}
	return min(t, 1)
}

// HuePalette walks the HSV hue circle once over [0, 1].
type HuePalette struct{}

func (HuePalette) Color(t float64) color.RGBA {
	r, g, b := hue(clamp01(t) * 360)
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}

var palettes = map[string]func() Palette{
	"sci":     func() Palette { return SciPalette{} },
	"hue":     func() Palette { return HuePalette{} },
	"viridis": func() Palette { return NewGradientPalette(colorgrad.Viridis()) },
	"inferno": func() Palette { return NewGradientPalette(colorgrad.Inferno()) },
	"magma":   func() Palette { return NewGradientPalette(colorgrad.Magma()) },
	"plasma":  func() Palette { return NewGradientPalette(colorgrad.Plasma()) },
	"turbo":   func() Palette { return NewGradientPalette(colorgrad.Turbo()) },
}

// PaletteNames lists the names PaletteByName accepts.
func PaletteNames() []string {
	names := make([]string, 0, len(palettes))
	for name := range palettes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func PaletteByName(name string) (Palette, error) {
	build, ok := palettes[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown palette %q, expected one of [%s]", name, strings.Join(PaletteNames(), "|"))
	}
	return build(), nil
}
