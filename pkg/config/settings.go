// Package config loads the fluid program's settings file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/mohamadtshehab/Fluid-Simulation/pkg/fluid"
)

type Settings struct {
	Simulation SimulationSettings `json:"simulation"`
	Server     ServerSettings     `json:"server"`
	View       ViewSettings       `json:"view"`
}

type SimulationSettings struct {
	N          int     `json:"n"`
	TimeStep   float64 `json:"timeStep"`
	Iterations int     `json:"iterations"`
	Diffusion  float64 `json:"diffusion"`
	Viscosity  float64 `json:"viscosity"`
	Backend    string  `json:"backend"` // parallel or serial
	Seed       uint64  `json:"seed"`    // non-zero seeds the density with noise
}

type ServerSettings struct {
	Addr           string `json:"addr"`
	TickIntervalMs int    `json:"tickIntervalMs"`
}

type ViewSettings struct {
	Scale   int    `json:"scale"`
	Palette string `json:"palette"`
	TPS     int    `json:"tps"`
}

func Default() Settings {
	d := fluid.DefaultConfig()
	return Settings{
		Simulation: SimulationSettings{
			N:          d.N,
			TimeStep:   d.TimeStep,
			Iterations: d.Iterations,
			Diffusion:  d.Diffusion,
			Viscosity:  d.Viscosity,
			Backend:    "parallel",
		},
		Server: ServerSettings{
			Addr:           ":8080",
			TickIntervalMs: 16,
		},
		View: ViewSettings{
			Scale:   4,
			Palette: "viridis",
			TPS:     60,
		},
	}
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (Settings, error) {
	s := Default()
	if path == "" {
		return s, nil
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return s, err
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&s); err != nil {
		return s, fmt.Errorf("decode %s: %w", path, err)
	}
	return s, s.Validate()
}

// Save writes s as indented JSON.
func (s Settings) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func (s Settings) Validate() error {
	if err := s.FluidConfig().Validate(); err != nil {
		return err
	}
	if _, err := fluid.NewDispatcher(s.Simulation.Backend); err != nil {
		return err
	}
	if s.Server.TickIntervalMs <= 0 {
		return fmt.Errorf("tick interval %dms must be positive", s.Server.TickIntervalMs)
	}
	if s.View.Scale <= 0 {
		return fmt.Errorf("view scale %d must be positive", s.View.Scale)
	}
	if s.View.TPS <= 0 {
		return fmt.Errorf("view tps %d must be positive", s.View.TPS)
	}
	return nil
}

func (s Settings) FluidConfig() fluid.Config {
	return fluid.Config{
		N:          s.Simulation.N,
		TimeStep:   s.Simulation.TimeStep,
		Iterations: s.Simulation.Iterations,
		Diffusion:  s.Simulation.Diffusion,
		Viscosity:  s.Simulation.Viscosity,
	}
}

func (s Settings) TickInterval() time.Duration {
	return time.Duration(s.Server.TickIntervalMs) * time.Millisecond
}

// NewFluid builds the simulation described by s.
func (s Settings) NewFluid(opts ...fluid.Option) (*fluid.Fluid, error) {
	d, err := fluid.NewDispatcher(s.Simulation.Backend)
	if err != nil {
		return nil, err
	}
	f, err := fluid.New(s.FluidConfig(), append([]fluid.Option{fluid.WithDispatcher(d)}, opts...)...)
	if err != nil {
		return nil, err
	}
	if s.Simulation.Seed != 0 {
		f.Randomize(s.Simulation.Seed, 1)
	}
	return f, nil
}
