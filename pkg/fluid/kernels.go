package fluid

import "fmt"

// Kernel names understood by every Dispatcher.
const (
	KernelSolve    = "solve"
	KernelDiverge  = "diverge"
	KernelGradient = "gradient"
	KernelAdvect   = "advect"
)

// sameAsOut requires an input to carry as many components as the output.
const sameAsOut = -1

type kernelInput struct {
	name       string
	components int // 0 accepts either
}

type kernel struct {
	inputs        []kernelInput
	params        []string
	outComponents func(b Bindings) int
	prepare       func(b Bindings, p Params, n int) func(i, j int)
}

func fixed(c int) func(Bindings) int {
	return func(Bindings) int { return c }
}

func like(name string) func(Bindings) int {
	return func(b Bindings) int { return b[name].Components() }
}

var catalog = map[string]kernel{
	KernelSolve: {
		inputs:        []kernelInput{{BindX, 0}, {BindX0, sameAsOut}},
		params:        []string{ParamA, ParamC},
		outComponents: like(BindX),
		prepare:       prepareSolve,
	},
	KernelDiverge: {
		inputs:        []kernelInput{{BindVelocity, 2}},
		outComponents: fixed(1),
		prepare:       prepareDiverge,
	},
	KernelGradient: {
		inputs:        []kernelInput{{BindVelocity, 2}, {BindPressure, 1}},
		outComponents: fixed(2),
		prepare:       prepareGradient,
	},
	KernelAdvect: {
		inputs:        []kernelInput{{BindQuantity, 0}, {BindVelocity, 2}},
		params:        []string{ParamDt},
		outComponents: like(BindQuantity),
		prepare:       prepareAdvect,
	},
}

// Kernels returns the names of the registered kernels.
func Kernels() []string {
	return []string{KernelSolve, KernelDiverge, KernelGradient, KernelAdvect}
}

// prepareSolve computes one Jacobi sweep:
// out = (x0 + a*(x[i-1,j] + x[i+1,j] + x[i,j-1] + x[i,j+1])) / c
func prepareSolve(b Bindings, p Params, _ int) func(i, j int) {
	out, x, x0 := b[BindOut], b[BindX], b[BindX0]
	a, c := p[ParamA], p[ParamC]
	return func(i, j int) {
		for k := range out.planes {
			sum := x.clamped(i-1, j, k) + x.clamped(i+1, j, k) +
				x.clamped(i, j-1, k) + x.clamped(i, j+1, k)
			out.planes[k][i*out.n+j] = (x0.planes[k][i*x0.n+j] + a*sum) / c
		}
	}
}

func prepareDiverge(b Bindings, _ Params, n int) func(i, j int) {
	out, vel := b[BindOut], b[BindVelocity]
	scale := -0.5 / float64(n)
	return func(i, j int) {
		du := vel.clamped(i+1, j, 0) - vel.clamped(i-1, j, 0)
		dv := vel.clamped(i, j+1, 1) - vel.clamped(i, j-1, 1)
		out.planes[0][i*n+j] = scale * (du + dv)
	}
}

func prepareGradient(b Bindings, _ Params, n int) func(i, j int) {
	out, vel, pressure := b[BindOut], b[BindVelocity], b[BindPressure]
	scale := 0.5 * float64(n)
	return func(i, j int) {
		k := i*n + j
		gx := pressure.clamped(i+1, j, 0) - pressure.clamped(i-1, j, 0)
		gy := pressure.clamped(i, j+1, 0) - pressure.clamped(i, j-1, 0)
		out.planes[0][k] = vel.planes[0][k] - scale*gx
		out.planes[1][k] = vel.planes[1][k] - scale*gy
	}
}

// prepareAdvect traces each cell centre back along the velocity and samples
// the quantity there.
func prepareAdvect(b Bindings, p Params, n int) func(i, j int) {
	out, q, vel := b[BindOut], b[BindQuantity], b[BindVelocity]
	dt0 := p[ParamDt] * float64(n)
	return func(i, j int) {
		k := i*n + j
		x := float64(i) + 0.5 - dt0*vel.planes[0][k]
		y := float64(j) + 0.5 - dt0*vel.planes[1][k]
		for c := range out.planes {
			out.planes[c][k] = q.Sample(x, y, c)
		}
	}
}

func checkSolveParams(a, c float64) error {
	if c == 0 {
		return fmt.Errorf("%w: solve divisor c is zero", ErrInvalidConfig)
	}
	if a < 0 {
		return fmt.Errorf("%w: solve coefficient a=%g is negative", ErrInvalidConfig, a)
	}
	return nil
}
