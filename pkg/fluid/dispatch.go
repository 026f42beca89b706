package fluid

import (
	"fmt"
	"runtime"
	"sync"
)

// Binding names used by the kernel catalogue.
const (
	BindOut      = "out"
	BindX        = "x"
	BindX0       = "x0"
	BindVelocity = "velocity"
	BindQuantity = "quantity"
	BindPressure = "pressure"
)

// Parameter names used by the kernel catalogue.
const (
	ParamA  = "a"
	ParamC  = "c"
	ParamDt = "dt"
)

// Bindings names the fields a kernel reads from and the one it writes to (BindOut).
type Bindings map[string]*Field

// Params holds the scalar uniforms of a dispatch.
type Params map[string]float64

// Dispatcher runs a named per-cell kernel once for every cell of an N×N domain.
// Cells of one dispatch must not observe each other's output; Dispatch returns
// only after every cell has been written.
type Dispatcher interface {
	Dispatch(kernel string, b Bindings, p Params, n int) error
	Name() string
}

// NewDispatcher returns the dispatcher registered under name.
func NewDispatcher(name string) (Dispatcher, error) {
	switch name {
	case "", "parallel":
		return &ParallelDispatcher{}, nil
	case "serial":
		return SerialDispatcher{}, nil
	}
	return nil, fmt.Errorf("unknown dispatcher %q, want parallel or serial", name)
}

// ParallelDispatcher splits the rows of the domain among goroutines.
type ParallelDispatcher struct {
	// Workers caps the goroutine count. Zero means GOMAXPROCS.
	Workers int
}

func (d *ParallelDispatcher) Name() string { return "parallel" }

func (d *ParallelDispatcher) Dispatch(kernel string, b Bindings, p Params, n int) error {
	cell, err := prepare(kernel, b, p, n)
	if err != nil {
		return err
	}
	workers := d.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	parallelRange(0, n, workers, func(i int) {
		for j := 0; j < n; j++ {
			cell(i, j)
		}
	})
	return nil
}

// SerialDispatcher visits cells in row order on the calling goroutine.
type SerialDispatcher struct{}

func (SerialDispatcher) Name() string { return "serial" }

func (SerialDispatcher) Dispatch(kernel string, b Bindings, p Params, n int) error {
	cell, err := prepare(kernel, b, p, n)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			cell(i, j)
		}
	}
	return nil
}

// parallelRange executes fn for each i in [start,end). The range is split among
// at most workers goroutines and the call returns once all of them are done.
func parallelRange(start, end, workers int, fn func(i int)) {
	total := end - start
	if total <= 0 {
		return
	}
	workers = min(workers, total)
	chunk := (total + workers - 1) / workers

	var wg sync.WaitGroup
	for s := start; s < end; s += chunk {
		e := min(s+chunk, end)
		wg.Add(1)
		go func(ss, ee int) {
			defer wg.Done()
			for i := ss; i < ee; i++ {
				fn(i)
			}
		}(s, e)
	}
	wg.Wait()
}

// prepare validates the bindings of a dispatch against the kernel's contract
// and the declared domain, then resolves the per-cell function.
func prepare(name string, b Bindings, p Params, n int) (func(i, j int), error) {
	k, ok := catalog[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKernel, name)
	}
	out, ok := b[BindOut]
	if !ok || out == nil {
		return nil, fmt.Errorf("%w: %s.%s", ErrMissingBinding, name, BindOut)
	}
	if out.n != n {
		return nil, fmt.Errorf("%w: %s.%s is %dx%d, domain is %dx%d",
			ErrDimensionMismatch, name, BindOut, out.n, out.n, n, n)
	}
	for _, in := range k.inputs {
		f, ok := b[in.name]
		if !ok || f == nil {
			return nil, fmt.Errorf("%w: %s.%s", ErrMissingBinding, name, in.name)
		}
		if f.n != n {
			return nil, fmt.Errorf("%w: %s.%s is %dx%d, domain is %dx%d",
				ErrDimensionMismatch, name, in.name, f.n, f.n, n, n)
		}
		if f == out {
			return nil, fmt.Errorf("%w: %s.%s", ErrAliasedBinding, name, in.name)
		}
	}
	want := k.outComponents(b)
	if out.Components() != want {
		return nil, fmt.Errorf("%w: %s.%s has %d components, want %d",
			ErrDimensionMismatch, name, BindOut, out.Components(), want)
	}
	for _, in := range k.inputs {
		c := in.components
		if c == sameAsOut {
			c = want
		}
		if got := b[in.name].Components(); c != 0 && got != c {
			return nil, fmt.Errorf("%w: %s.%s has %d components, want %d",
				ErrDimensionMismatch, name, in.name, got, c)
		}
	}
	for _, param := range k.params {
		if _, ok := p[param]; !ok {
			return nil, fmt.Errorf("%w: %s.%s", ErrMissingParam, name, param)
		}
	}
	return k.prepare(b, p, n), nil
}
