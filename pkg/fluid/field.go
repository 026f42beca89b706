package fluid

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// MaxGridSize bounds N so that a single component plane stays addressable.
const MaxGridSize = 8192

// Field is an N×N grid of scalar (1 component) or vector (2 component) values.
// Components are stored as separate planes indexed i*N+j, where i runs along x.
type Field struct {
	n      int
	planes [][]float64
}

func NewField(n, components int) (*Field, error) {
	if n <= 0 || n > MaxGridSize {
		return nil, fmt.Errorf("%w: grid size %d not in [1, %d]", ErrAllocation, n, MaxGridSize)
	}
	if components < 1 || components > 2 {
		return nil, fmt.Errorf("%w: %d components, want 1 or 2", ErrAllocation, components)
	}
	f := &Field{
		n:      n,
		planes: make([][]float64, components),
	}
	for c := range f.planes {
		f.planes[c] = make([]float64, n*n)
	}
	return f, nil
}

func mustField(n, components int) *Field {
	f, err := NewField(n, components)
	if err != nil {
		panic(err)
	}
	return f
}

// N returns the side length of the grid.
func (f *Field) N() int { return f.n }

// Components returns 1 for scalar fields and 2 for vector fields.
func (f *Field) Components() int { return len(f.planes) }

// Contains reports whether (i, j) addresses a cell of the grid.
func (f *Field) Contains(i, j int) bool {
	return i >= 0 && i < f.n && j >= 0 && j < f.n
}

func (f *Field) sameShape(g *Field) bool {
	return f.n == g.n && len(f.planes) == len(g.planes)
}

// At returns the first component at (i, j).
func (f *Field) At(i, j int) float64 {
	return f.planes[0][i*f.n+j]
}

// Get returns component c at (i, j).
func (f *Field) Get(i, j, c int) float64 {
	return f.planes[c][i*f.n+j]
}

// Vec returns both components of a vector field at (i, j).
func (f *Field) Vec(i, j int) (float64, float64) {
	k := i*f.n + j
	return f.planes[0][k], f.planes[1][k]
}

func (f *Field) Set(i, j int, v float64) {
	f.planes[0][i*f.n+j] = v
}

func (f *Field) SetVec(i, j int, x, y float64) {
	k := i*f.n + j
	f.planes[0][k] = x
	f.planes[1][k] = y
}

// Add adds v to component c at (i, j).
func (f *Field) Add(i, j, c int, v float64) {
	f.planes[c][i*f.n+j] += v
}

// Fill sets every component of every cell to v.
func (f *Field) Fill(v float64) {
	for _, p := range f.planes {
		for k := range p {
			p[k] = v
		}
	}
}

// CopyFrom blits src into f. Both fields must have the same shape.
func (f *Field) CopyFrom(src *Field) error {
	if f == src {
		return nil
	}
	if !f.sameShape(src) {
		return fmt.Errorf("%w: copy %dx%d/%d into %dx%d/%d", ErrDimensionMismatch,
			src.n, src.n, src.Components(), f.n, f.n, f.Components())
	}
	for c := range f.planes {
		copy(f.planes[c], src.planes[c])
	}
	return nil
}

// Plane returns a copy of component c in i*N+j order.
func (f *Field) Plane(c int) []float64 {
	out := make([]float64, len(f.planes[c]))
	copy(out, f.planes[c])
	return out
}

// Sum returns the total of component c over the grid.
func (f *Field) Sum(c int) float64 {
	return floats.Sum(f.planes[c])
}

// MaxAbs returns the largest magnitude of component c.
func (f *Field) MaxAbs(c int) float64 {
	p := f.planes[c]
	return max(floats.Max(p), -floats.Min(p))
}

// clamped reads component c with indices clamped into the grid, which gives
// the solver its closed edges.
func (f *Field) clamped(i, j, c int) float64 {
	i = max(min(i, f.n-1), 0)
	j = max(min(j, f.n-1), 0)
	return f.planes[c][i*f.n+j]
}

// Sample bilinearly interpolates component c at the fractional position (x, y).
// Cell (i, j) is centred at (i+0.5, j+0.5); positions are clamped to
// [0.5, N-0.5] so no read falls outside the grid. NaN clamps to 0.5.
func (f *Field) Sample(x, y float64, c int) float64 {
	n := f.n
	hi := float64(n) - 0.5
	x = clampCoord(x, hi) - 0.5
	y = clampCoord(y, hi) - 0.5

	i0 := int(x)
	j0 := int(y)
	i1 := min(i0+1, n-1)
	j1 := min(j0+1, n-1)

	s1 := x - float64(i0)
	s0 := 1 - s1
	t1 := y - float64(j0)
	t0 := 1 - t1

	p := f.planes[c]
	return s0*(t0*p[i0*n+j0]+t1*p[i0*n+j1]) +
		s1*(t0*p[i1*n+j0]+t1*p[i1*n+j1])
}

// clampCoord is max(min(v, hi), 0.5) except that NaN maps to 0.5.
func clampCoord(v, hi float64) float64 {
	if !(v > 0.5) {
		return 0.5
	}
	if v > hi {
		return hi
	}
	return v
}
