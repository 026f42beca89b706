package fluid

import (
	"errors"
	"testing"
)

func TestNewDispatcher(t *testing.T) {
	for name, want := range map[string]string{"": "parallel", "parallel": "parallel", "serial": "serial"} {
		d, err := NewDispatcher(name)
		if err != nil {
			t.Fatalf("NewDispatcher(%q): %v", name, err)
		}
		if d.Name() != want {
			t.Errorf("NewDispatcher(%q).Name() = %q, want %q", name, d.Name(), want)
		}
	}
	if _, err := NewDispatcher("opencl"); err == nil {
		t.Error("expected an error for an unknown dispatcher")
	}
}

func TestParallelRangeVisitsEachIndexOnce(t *testing.T) {
	for _, workers := range []int{1, 3, 8, 100} {
		seen := make([]int, 37)
		parallelRange(0, len(seen), workers, func(i int) { seen[i]++ })
		for i, c := range seen {
			if c != 1 {
				t.Errorf("workers=%d: index %d visited %d times", workers, i, c)
			}
		}
	}
}

func TestDispatchValidatesBindings(t *testing.T) {
	const n = 4
	scalar, vector := mustField(n, 1), mustField(n, 2)
	small := mustField(n-1, 2)

	tests := []struct {
		name   string
		kernel string
		b      Bindings
		p      Params
		want   error
	}{
		{"unknown kernel", "blur", Bindings{BindOut: scalar}, nil, ErrUnknownKernel},
		{"missing out", KernelDiverge, Bindings{BindVelocity: vector}, nil, ErrMissingBinding},
		{"missing input", KernelDiverge, Bindings{BindOut: scalar}, nil, ErrMissingBinding},
		{"input size", KernelDiverge, Bindings{BindOut: scalar, BindVelocity: small}, nil, ErrDimensionMismatch},
		{"out size", KernelGradient, Bindings{BindOut: small, BindVelocity: vector, BindPressure: scalar}, nil, ErrDimensionMismatch},
		{"input components", KernelGradient, Bindings{BindOut: mustField(n, 2), BindVelocity: scalar, BindPressure: scalar}, nil, ErrDimensionMismatch},
		{"out components", KernelDiverge, Bindings{BindOut: mustField(n, 2), BindVelocity: vector}, nil, ErrDimensionMismatch},
		{"solve rhs components", KernelSolve, Bindings{BindOut: mustField(n, 1), BindX: scalar, BindX0: vector}, Params{ParamA: 1, ParamC: 6}, ErrDimensionMismatch},
		{"aliased out", KernelSolve, Bindings{BindOut: scalar, BindX: scalar, BindX0: mustField(n, 1)}, Params{ParamA: 1, ParamC: 6}, ErrAliasedBinding},
		{"missing param", KernelAdvect, Bindings{BindOut: mustField(n, 1), BindQuantity: scalar, BindVelocity: vector}, Params{}, ErrMissingParam},
	}
	for _, d := range []Dispatcher{&ParallelDispatcher{}, SerialDispatcher{}} {
		for _, tc := range tests {
			err := d.Dispatch(tc.kernel, tc.b, tc.p, n)
			if !errors.Is(err, tc.want) {
				t.Errorf("%s/%s: expected %v, got %v", d.Name(), tc.name, tc.want, err)
			}
		}
	}
}

func TestDispatchRejectsDomainMismatch(t *testing.T) {
	b := Bindings{BindOut: mustField(8, 1), BindVelocity: mustField(8, 2)}
	var d SerialDispatcher
	if err := d.Dispatch(KernelDiverge, b, nil, 6); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch for a 6x6 domain over 8x8 fields, got %v", err)
	}
}

// Both backends run the same per-cell arithmetic, so their results must be
// bit-identical.
func TestSerialAndParallelDispatchAgree(t *testing.T) {
	cfg := Config{N: 24, TimeStep: 0.02, Iterations: 12, Diffusion: 0.0005, Viscosity: 0.0002}
	serial, err := New(cfg, WithDispatcher(SerialDispatcher{}))
	if err != nil {
		t.Fatal(err)
	}
	parallel, err := New(cfg, WithDispatcher(&ParallelDispatcher{Workers: 5}))
	if err != nil {
		t.Fatal(err)
	}

	for _, f := range []*Fluid{serial, parallel} {
		must(t, f.AddDensity(12, 12, 10))
		must(t, f.AddVelocity(12, 12, 5, -3))
		must(t, f.AddVelocity(3, 20, -2, 1))
		for range 6 {
			must(t, f.Step())
		}
	}

	for _, pair := range [][2]*Field{
		{serial.density, parallel.density},
		{serial.velocity, parallel.velocity},
		{serial.pressure, parallel.pressure},
	} {
		a, b := pair[0], pair[1]
		for c := range a.planes {
			for k := range a.planes[c] {
				if a.planes[c][k] != b.planes[c][k] {
					t.Fatalf("component %d cell %d differs: serial %g, parallel %g",
						c, k, a.planes[c][k], b.planes[c][k])
				}
			}
		}
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}
