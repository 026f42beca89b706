package fluid

import (
	"fmt"
	"io"
	"log"
	"math"
	"math/rand/v2"
	"sync"
	"time"
)

// Config is fixed for the lifetime of a Fluid.
type Config struct {
	N          int     // grid resolution, cells per side
	TimeStep   float64 // dt of one Step
	Iterations int     // Jacobi sweeps per Solve
	Diffusion  float64 // density diffusion rate
	Viscosity  float64 // velocity diffusion rate
}

func DefaultConfig() Config {
	return Config{
		N:          128,
		TimeStep:   0.01,
		Iterations: 30,
		Diffusion:  0,
		Viscosity:  0,
	}
}

func (c Config) Validate() error {
	switch {
	case c.N < 3 || c.N > MaxGridSize:
		return fmt.Errorf("%w: N=%d not in [3, %d]", ErrInvalidConfig, c.N, MaxGridSize)
	case !(c.TimeStep > 0):
		return fmt.Errorf("%w: time step %g must be positive", ErrInvalidConfig, c.TimeStep)
	case c.Iterations < 1:
		return fmt.Errorf("%w: iterations %d must be at least 1", ErrInvalidConfig, c.Iterations)
	case !(c.Diffusion >= 0):
		return fmt.Errorf("%w: diffusion %g must not be negative", ErrInvalidConfig, c.Diffusion)
	case !(c.Viscosity >= 0):
		return fmt.Errorf("%w: viscosity %g must not be negative", ErrInvalidConfig, c.Viscosity)
	}
	return nil
}

// Fluid owns every field of one simulation. Step and the impulse methods are
// serialized by an internal mutex, so a tick never interleaves with an edit.
type Fluid struct {
	mu sync.Mutex

	cfg        Config
	dispatcher Dispatcher
	logger     *log.Logger

	velocity, prevVelocity *Field
	density, prevDensity   *Field
	pressure               *Field

	scratch scratch

	ticks    int
	lastTick time.Duration
}

// scratch holds one output buffer per operator, by component count where an
// operator serves both scalar and vector fields.
type scratch struct {
	solve    [2]*Field
	advect   [2]*Field
	diverge  *Field
	gradient *Field
}

func (s *scratch) all() []*Field {
	return []*Field{s.solve[0], s.solve[1], s.advect[0], s.advect[1], s.diverge, s.gradient}
}

type Option func(*Fluid)

// WithDispatcher selects the kernel backend. The default is a ParallelDispatcher.
func WithDispatcher(d Dispatcher) Option {
	return func(f *Fluid) { f.dispatcher = d }
}

// WithLogger routes lifecycle messages to l.
func WithLogger(l *log.Logger) Option {
	return func(f *Fluid) { f.logger = l }
}

// New validates cfg and allocates every field once.
func New(cfg Config, opts ...Option) (*Fluid, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	f := &Fluid{
		cfg:        cfg,
		dispatcher: &ParallelDispatcher{},
		logger:     log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.dispatcher == nil {
		return nil, fmt.Errorf("%w: nil dispatcher", ErrInvalidConfig)
	}
	if err := f.allocate(); err != nil {
		return nil, err
	}
	f.logger.Printf("allocated %dx%d grid, dt=%g, %d iterations, %s dispatcher",
		cfg.N, cfg.N, cfg.TimeStep, cfg.Iterations, f.dispatcher.Name())
	return f, nil
}

func (f *Fluid) allocate() (err error) {
	n := f.cfg.N
	alloc := func(components int) *Field {
		if err != nil {
			return nil
		}
		var fld *Field
		fld, err = NewField(n, components)
		return fld
	}
	f.velocity, f.prevVelocity = alloc(2), alloc(2)
	f.density, f.prevDensity = alloc(1), alloc(1)
	f.pressure = alloc(1)
	f.scratch.solve = [2]*Field{alloc(1), alloc(2)}
	f.scratch.advect = [2]*Field{alloc(1), alloc(2)}
	f.scratch.diverge = alloc(1)
	f.scratch.gradient = alloc(2)
	return err
}

// Config returns the configuration the Fluid was built with.
func (f *Fluid) Config() Config { return f.cfg }

// N returns the grid resolution.
func (f *Fluid) N() int { return f.cfg.N }

// Step advances the simulation by one tick.
func (f *Fluid) Step() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	start := time.Now()
	if err := f.step(); err != nil {
		return err
	}
	f.ticks++
	f.lastTick = time.Since(start)
	return nil
}

// step runs the velocity pipeline to completion before density is touched:
// density must be carried by a velocity that is already diffused and projected.
func (f *Fluid) step() error {
	if err := f.diffuse(f.prevVelocity, f.velocity, f.cfg.Viscosity); err != nil {
		return fmt.Errorf("diffuse velocity: %w", err)
	}
	projected, err := f.project(f.prevVelocity)
	if err != nil {
		return fmt.Errorf("project diffused velocity: %w", err)
	}
	if err := f.prevVelocity.CopyFrom(projected); err != nil {
		return err
	}

	advected, err := f.advect(f.prevVelocity, f.prevVelocity)
	if err != nil {
		return fmt.Errorf("advect velocity: %w", err)
	}
	projected, err = f.project(advected)
	if err != nil {
		return fmt.Errorf("project advected velocity: %w", err)
	}
	if err := f.velocity.CopyFrom(projected); err != nil {
		return err
	}

	if err := f.diffuse(f.prevDensity, f.density, f.cfg.Diffusion); err != nil {
		return fmt.Errorf("diffuse density: %w", err)
	}
	advected, err = f.advect(f.prevDensity, f.velocity)
	if err != nil {
		return fmt.Errorf("advect density: %w", err)
	}
	return f.density.CopyFrom(advected)
}

// solve runs a fixed number of Jacobi sweeps of
// x = (x0 + a*(sum of 4 neighbours of x)) / c
// copying each sweep back into x. There is no convergence test. The result is
// left in x, which is also returned.
func (f *Fluid) solve(x, x0 *Field, a, c float64) (*Field, error) {
	if err := checkSolveParams(a, c); err != nil {
		return nil, err
	}
	out := f.scratch.solve[x.Components()-1]
	b := Bindings{BindOut: out, BindX: x, BindX0: x0}
	p := Params{ParamA: a, ParamC: c}
	for range f.cfg.Iterations {
		if err := f.dispatcher.Dispatch(KernelSolve, b, p, f.cfg.N); err != nil {
			return nil, err
		}
		if err := x.CopyFrom(out); err != nil {
			return nil, err
		}
	}
	return x, nil
}

// diffuse solves implicit diffusion of x0 into x with the given rate.
func (f *Fluid) diffuse(x, x0 *Field, rate float64) error {
	n := float64(f.cfg.N - 2)
	a := f.cfg.TimeStep * rate * n * n
	_, err := f.solve(x, x0, a, 1+6*a)
	return err
}

func (f *Fluid) diverge(velocity *Field) (*Field, error) {
	out := f.scratch.diverge
	b := Bindings{BindOut: out, BindVelocity: velocity}
	if err := f.dispatcher.Dispatch(KernelDiverge, b, nil, f.cfg.N); err != nil {
		return nil, err
	}
	return out, nil
}

func (f *Fluid) gradient(velocity, pressure *Field) (*Field, error) {
	out := f.scratch.gradient
	b := Bindings{BindOut: out, BindVelocity: velocity, BindPressure: pressure}
	if err := f.dispatcher.Dispatch(KernelGradient, b, nil, f.cfg.N); err != nil {
		return nil, err
	}
	return out, nil
}

// project removes the divergent part of velocity. The pressure field keeps its
// value between calls and seeds the next solve. The result lives in the
// gradient scratch buffer until the next project.
func (f *Fluid) project(velocity *Field) (*Field, error) {
	div, err := f.diverge(velocity)
	if err != nil {
		return nil, err
	}
	if _, err := f.solve(f.pressure, div, 1, 6); err != nil {
		return nil, err
	}
	return f.gradient(velocity, f.pressure)
}

// advect moves quantity along velocity by one time step. The result lives in
// the advect scratch buffer until the next advect of the same component count.
func (f *Fluid) advect(quantity, velocity *Field) (*Field, error) {
	out := f.scratch.advect[quantity.Components()-1]
	b := Bindings{BindOut: out, BindQuantity: quantity, BindVelocity: velocity}
	p := Params{ParamDt: f.cfg.TimeStep}
	if err := f.dispatcher.Dispatch(KernelAdvect, b, p, f.cfg.N); err != nil {
		return nil, err
	}
	return out, nil
}

// AddDensity adds amount to the density at cell (x, y).
// Coordinates outside the grid are rejected with ErrOutOfBounds, and a
// result that would not be finite with ErrNonFinite.
func (f *Fluid) AddDensity(x, y int, amount float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.density.Contains(x, y) {
		return fmt.Errorf("%w: density impulse at (%d,%d), grid is %dx%d",
			ErrOutOfBounds, x, y, f.cfg.N, f.cfg.N)
	}
	if !finite(f.density.At(x, y) + amount) {
		return fmt.Errorf("%w: density %g at (%d,%d)", ErrNonFinite, amount, x, y)
	}
	f.density.Add(x, y, 0, amount)
	return nil
}

// AddVelocity adds (dx, dy) to the velocity at cell (x, y).
// Coordinates outside the grid are rejected with ErrOutOfBounds, and a
// result that would not be finite with ErrNonFinite.
func (f *Fluid) AddVelocity(x, y int, dx, dy float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.velocity.Contains(x, y) {
		return fmt.Errorf("%w: velocity impulse at (%d,%d), grid is %dx%d",
			ErrOutOfBounds, x, y, f.cfg.N, f.cfg.N)
	}
	if !finite(f.velocity.Get(x, y, 0)+dx) || !finite(f.velocity.Get(x, y, 1)+dy) {
		return fmt.Errorf("%w: velocity (%g,%g) at (%d,%d)", ErrNonFinite, dx, dy, x, y)
	}
	f.velocity.Add(x, y, 0, dx)
	f.velocity.Add(x, y, 1, dy)
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Reset zeroes every field, pressure and scratch included.
func (f *Fluid) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, fld := range []*Field{f.velocity, f.prevVelocity, f.density, f.prevDensity, f.pressure} {
		fld.Fill(0)
	}
	for _, fld := range f.scratch.all() {
		fld.Fill(0)
	}
	f.ticks = 0
	f.lastTick = 0
	f.logger.Printf("reset %dx%d grid", f.cfg.N, f.cfg.N)
}

// Randomize fills the density with uniform noise in [0, amplitude).
func (f *Fluid) Randomize(seed uint64, amplitude float64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	d := f.density.planes[0]
	for k := range d {
		d[k] = rng.Float64() * amplitude
	}
	copy(f.prevDensity.planes[0], d)
}

// Stats describes the simulation after the most recent tick.
type Stats struct {
	Ticks         int
	LastTick      time.Duration
	TotalDensity  float64
	MaxDivergence float64
}

func (f *Fluid) Stats() (Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	div, err := f.maxDivergence()
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		Ticks:         f.ticks,
		LastTick:      f.lastTick,
		TotalDensity:  f.density.Sum(0),
		MaxDivergence: div,
	}, nil
}

// MaxDivergence returns the largest absolute divergence of the current velocity.
func (f *Fluid) MaxDivergence() (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxDivergence()
}

func (f *Fluid) maxDivergence() (float64, error) {
	div, err := f.diverge(f.velocity)
	if err != nil {
		return 0, err
	}
	return div.MaxAbs(0), nil
}
