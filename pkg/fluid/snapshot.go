package fluid

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ScalarField is a read-only copy of one scalar quantity. Row i of the
// underlying matrix holds the cells with x index i.
type ScalarField struct {
	NumX, NumY int
	MinValue   float64
	MaxValue   float64
	values     *mat.Dense
}

func newScalarField(n int, values []float64) ScalarField {
	m := mat.NewDense(n, n, values)
	return ScalarField{
		NumX:     n,
		NumY:     n,
		MinValue: mat.Min(m),
		MaxValue: mat.Max(m),
		values:   m,
	}
}

func (s ScalarField) Value(i, j int) (float64, error) {
	if i < 0 || i >= s.NumX {
		return 0, fmt.Errorf("x index out of range, must be between 0 and %d", s.NumX-1)
	}
	if j < 0 || j >= s.NumY {
		return 0, fmt.Errorf("y index out of range, must be between 0 and %d", s.NumY-1)
	}
	return s.values.At(i, j), nil
}

// Matrix exposes the snapshot for linear algebra. It must not be modified.
func (s ScalarField) Matrix() mat.Matrix { return s.values }

// Sum returns the total over all cells.
func (s ScalarField) Sum() float64 { return mat.Sum(s.values) }

type VectorField struct {
	NumX, NumY int
	u, v       *mat.Dense
}

func (vf VectorField) Value(i, j int) (float64, float64, error) {
	if i < 0 || i >= vf.NumX {
		return 0, 0, fmt.Errorf("x index out of range, must be between 0 and %d", vf.NumX-1)
	}
	if j < 0 || j >= vf.NumY {
		return 0, 0, fmt.Errorf("y index out of range, must be between 0 and %d", vf.NumY-1)
	}
	return vf.u.At(i, j), vf.v.At(i, j), nil
}

// Components returns the x and y velocity matrices.
func (vf VectorField) Components() (u, v mat.Matrix) { return vf.u, vf.v }

// Density returns a snapshot of the current density.
func (f *Fluid) Density() ScalarField {
	f.mu.Lock()
	defer f.mu.Unlock()
	return newScalarField(f.cfg.N, f.density.Plane(0))
}

// Pressure returns a snapshot of the pressure left by the last projection.
func (f *Fluid) Pressure() ScalarField {
	f.mu.Lock()
	defer f.mu.Unlock()
	return newScalarField(f.cfg.N, f.pressure.Plane(0))
}

// Velocity returns a snapshot of the current velocity.
func (f *Fluid) Velocity() VectorField {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.cfg.N
	return VectorField{
		NumX: n,
		NumY: n,
		u:    mat.NewDense(n, n, f.velocity.Plane(0)),
		v:    mat.NewDense(n, n, f.velocity.Plane(1)),
	}
}

// VelocityMagnitude computes |v| per cell.
func (f *Fluid) VelocityMagnitude() ScalarField {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := f.cfg.N
	vals := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			u, v := f.velocity.Vec(i, j)
			vals[i*n+j] = math.Hypot(u, v)
		}
	}
	return newScalarField(n, vals)
}

// Vorticity computes the curl dv/dx - du/dy with central differences.
func (f *Fluid) Vorticity() ScalarField {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := f.cfg.N
	vel := f.velocity
	vals := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			dvdx := (vel.clamped(i+1, j, 1) - vel.clamped(i-1, j, 1)) * 0.5
			dudy := (vel.clamped(i, j+1, 0) - vel.clamped(i, j-1, 0)) * 0.5
			vals[i*n+j] = dvdx - dudy
		}
	}
	return newScalarField(n, vals)
}
