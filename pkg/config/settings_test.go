package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mohamadtshehab/Fluid-Simulation/pkg/fluid"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "settings.json"))
	if err != nil {
		t.Fatal(err)
	}
	if s != Default() {
		t.Errorf("expected defaults, got %+v", s)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	data := `{"simulation": {"n": 32, "iterations": 12, "backend": "serial"}, "view": {"palette": "sci"}}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if s.Simulation.N != 32 || s.Simulation.Iterations != 12 || s.Simulation.Backend != "serial" {
		t.Errorf("simulation settings not applied: %+v", s.Simulation)
	}
	if s.Simulation.TimeStep != Default().Simulation.TimeStep {
		t.Errorf("unset time step should keep its default, got %g", s.Simulation.TimeStep)
	}
	if s.View.Palette != "sci" || s.View.Scale != Default().View.Scale {
		t.Errorf("view settings not merged: %+v", s.View)
	}
}

func TestLoadRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()
	for name, data := range map[string]string{
		"malformed.json": `{"simulation": `,
		"unknown.json":   `{"simulation": {"gridSize": 8}}`,
		"invalid.json":   `{"simulation": {"n": 1}}`,
		"backend.json":   `{"simulation": {"backend": "cuda"}}`,
	} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}

func TestInvalidSimulationWrapsFluidError(t *testing.T) {
	s := Default()
	s.Simulation.Iterations = 0
	if err := s.Validate(); !errors.Is(err, fluid.ErrInvalidConfig) {
		t.Errorf("expected fluid.ErrInvalidConfig, got %v", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	s := Default()
	s.Simulation.N = 48
	s.Server.Addr = "127.0.0.1:9000"
	if err := s.Save(path); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got != s {
		t.Errorf("expected %+v, got %+v", s, got)
	}
}

func TestNewFluidUsesSettings(t *testing.T) {
	s := Default()
	s.Simulation.N = 16
	s.Simulation.Seed = 9
	f, err := s.NewFluid()
	if err != nil {
		t.Fatal(err)
	}
	if f.N() != 16 {
		t.Errorf("expected N=16, got %d", f.N())
	}
	if f.Density().MaxValue == 0 {
		t.Error("expected a seeded density")
	}
}
