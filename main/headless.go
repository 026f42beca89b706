package main

import (
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"sort"
	"time"

	"github.com/logrusorgru/aurora"

	"github.com/mohamadtshehab/Fluid-Simulation/pkg/config"
	"github.com/mohamadtshehab/Fluid-Simulation/pkg/fluid"
	"github.com/mohamadtshehab/Fluid-Simulation/pkg/render"
)

// runHeadless drives a jet from the left edge for eo.steps ticks and
// prints progress.
func runHeadless(s config.Settings, eo *envOptions, logger *log.Logger) error {
	sim, err := newFluid(s, logger)
	if err != nil {
		return err
	}
	n := sim.N()

	fmt.Println(aurora.Bold("Running configuration:"))
	printHashData(map[string]interface{}{
		"Dimension":  fmt.Sprintf("%v x %v", n, n),
		"Time step":  s.Simulation.TimeStep,
		"Iterations": s.Simulation.Iterations,
		"Diffusion":  s.Simulation.Diffusion,
		"Viscosity":  s.Simulation.Viscosity,
		"Backend":    s.Simulation.Backend,
		"Steps":      eo.steps,
	})
	fmt.Println("\nSimulation started...")

	start := time.Now()
	for step := 1; step <= eo.steps; step++ {
		if err := jet(sim); err != nil {
			return err
		}
		if err := sim.Step(); err != nil {
			return err
		}
		if step%10 == 0 {
			st, err := sim.Stats()
			if err != nil {
				return err
			}
			fmt.Printf("  Steps done: %v, last step %v, divergence %s\n",
				step, st.LastTick.Round(time.Microsecond), divergence(st.MaxDivergence))
		}
	}

	st, err := sim.Stats()
	if err != nil {
		return err
	}
	fmt.Println(aurora.Green("\nFinished:"))
	printHashData(map[string]interface{}{
		"Last step":      st.Ticks,
		"Total time":     time.Since(start).Round(time.Millisecond),
		"Total density":  fmt.Sprintf("%.4f", st.TotalDensity),
		"Max divergence": divergence(st.MaxDivergence),
	})

	if eo.output == "" {
		return nil
	}
	return writePNG(sim, s.View.Palette, eo.output)
}

// jet pushes dye rightwards through the middle fifth of the left edge.
func jet(sim *fluid.Fluid) error {
	n := sim.N()
	width := max(n/10, 1)
	for j := n/2 - width; j <= n/2+width; j++ {
		if err := sim.AddVelocity(1, j, float64(n)/4, 0); err != nil {
			return err
		}
		if err := sim.AddDensity(1, j, 1); err != nil {
			return err
		}
	}
	return nil
}

func divergence(d float64) string {
	if d > 1e-2 {
		return aurora.Colorize(fmt.Sprintf("%.2e", d), aurora.YellowFg).String()
	}
	return aurora.Colorize(fmt.Sprintf("%.2e", d), aurora.CyanFg).String()
}

func printHashData(d map[string]interface{}) {
	propNames := make([]string, 0, len(d))
	for k := range d {
		propNames = append(propNames, k)
	}
	sort.Strings(propNames)
	for _, propName := range propNames {
		fmt.Printf("  %s: %v\n", aurora.Green(propName), d[propName])
	}
}

func writePNG(sim *fluid.Fluid, paletteName, path string) error {
	palette, err := render.PaletteByName(paletteName)
	if err != nil {
		return err
	}
	n := sim.N()
	img := image.NewRGBA(image.Rect(0, 0, n, n))
	if err := render.ScalarPixels(sim.Density(), palette, img.Pix); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(file, img); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
