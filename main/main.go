package main

import (
	"io"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/integrii/flaggy"

	"github.com/mohamadtshehab/Fluid-Simulation/pkg/config"
	"github.com/mohamadtshehab/Fluid-Simulation/pkg/fluid"
	"github.com/mohamadtshehab/Fluid-Simulation/pkg/render"
)

type envOptions struct {
	settings string
	mode     string
	verbose  bool

	// Zero values leave the settings file alone.
	size       int
	iterations int
	timeStep   float64
	diffusion  float64
	viscosity  float64
	backend    string
	seed       int
	palette    string
	addr       string

	steps  int
	output string
}

var modes = map[string]func(s config.Settings, eo *envOptions, logger *log.Logger) error{
	"window":   runWindow,
	"console":  runConsole,
	"headless": runHeadless,
	"serve":    runServe,
}

func main() {
	eo := initOptions()

	s, err := config.Load(eo.settings)
	if err != nil {
		log.Fatal(err)
	}
	eo.apply(&s)
	if err := s.Validate(); err != nil {
		flaggy.ShowHelpAndExit(err.Error())
	}

	logger := log.New(io.Discard, "", 0)
	if eo.verbose || eo.mode == "serve" {
		logger = log.New(os.Stderr, "fluid: ", log.LstdFlags)
	}

	if err := modes[eo.mode](s, eo, logger); err != nil {
		log.Fatal(err)
	}
}

func initOptions() *envOptions {
	modeNames := make([]string, 0, len(modes))
	for k := range modes {
		modeNames = append(modeNames, k)
	}
	sort.Strings(modeNames)

	eo := &envOptions{settings: "settings.json", mode: "window", steps: 200}
	flaggy.SetName("fluid")
	flaggy.SetDescription("Stable fluids on a square grid")
	flaggy.DefaultParser.ShowHelpOnUnexpected = true
	flaggy.String(&eo.settings, "c", "config", "Settings file (JSON)")
	flaggy.String(&eo.mode, "m", "mode", "Front end ["+strings.Join(modeNames, "|")+"]")
	flaggy.Bool(&eo.verbose, "V", "verbose", "Log simulation progress to stderr")
	flaggy.Int(&eo.size, "n", "size", "Grid cells per side")
	flaggy.Int(&eo.iterations, "i", "iterations", "Jacobi iterations per solve")
	flaggy.Float64(&eo.timeStep, "t", "timeStep", "Simulated seconds per step")
	flaggy.Float64(&eo.diffusion, "d", "diffusion", "Density diffusion rate")
	flaggy.Float64(&eo.viscosity, "v", "viscosity", "Velocity diffusion rate")
	flaggy.String(&eo.backend, "b", "backend", "Kernel dispatcher [parallel|serial]")
	flaggy.Int(&eo.seed, "r", "seed", "Seed the density with noise")
	flaggy.String(&eo.palette, "p", "palette", "Density palette ["+strings.Join(render.PaletteNames(), "|")+"]")
	flaggy.String(&eo.addr, "a", "addr", "Listen address for serve mode")
	flaggy.Int(&eo.steps, "s", "steps", "Steps to run in headless mode")
	flaggy.String(&eo.output, "o", "output", "PNG written after a headless run")

	flaggy.Parse()

	if _, ok := modes[eo.mode]; !ok {
		flaggy.ShowHelpAndExit("unknown mode")
	}
	return eo
}

func (eo *envOptions) apply(s *config.Settings) {
	if eo.size > 0 {
		s.Simulation.N = eo.size
	}
	if eo.iterations > 0 {
		s.Simulation.Iterations = eo.iterations
	}
	if eo.timeStep > 0 {
		s.Simulation.TimeStep = eo.timeStep
	}
	if eo.diffusion > 0 {
		s.Simulation.Diffusion = eo.diffusion
	}
	if eo.viscosity > 0 {
		s.Simulation.Viscosity = eo.viscosity
	}
	if eo.backend != "" {
		s.Simulation.Backend = eo.backend
	}
	if eo.seed > 0 {
		s.Simulation.Seed = uint64(eo.seed)
	}
	if eo.palette != "" {
		s.View.Palette = eo.palette
	}
	if eo.addr != "" {
		s.Server.Addr = eo.addr
	}
}

func newFluid(s config.Settings, logger *log.Logger) (*fluid.Fluid, error) {
	sim, err := s.NewFluid(fluid.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	logger.Printf("%dx%d grid, dt %g, %d iterations, %s dispatcher",
		s.Simulation.N, s.Simulation.N, s.Simulation.TimeStep, s.Simulation.Iterations, s.Simulation.Backend)
	return sim, nil
}
