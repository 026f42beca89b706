package main

import (
	"fmt"
	"log"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/mohamadtshehab/Fluid-Simulation/pkg/config"
	"github.com/mohamadtshehab/Fluid-Simulation/pkg/fluid"
	"github.com/mohamadtshehab/Fluid-Simulation/pkg/render"
)

const (
	clickDensity  = 10
	clickVelocity = 10
)

type Game struct {
	sim     *fluid.Fluid
	palette render.Palette
	logger  *log.Logger

	n      int
	pixels []byte
	img    *ebiten.Image

	paused       bool
	showVelocity bool
	stats        fluid.Stats
}

func NewGame(sim *fluid.Fluid, palette render.Palette, logger *log.Logger) *Game {
	n := sim.N()
	return &Game{
		sim:     sim,
		palette: palette,
		logger:  logger,
		n:       n,
		pixels:  make([]byte, render.BufferSize(n)),
		img:     ebiten.NewImage(n, n),
	}
}

func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.paused = !g.paused
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyV) {
		g.showVelocity = !g.showVelocity
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		g.sim.Reset()
	}

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		// The layout is one pixel per cell, so the cursor is already a cell.
		g.stir(ebiten.CursorPosition())
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyC) {
		g.stir(g.n/2, g.n/2)
	}

	if g.paused && !inpututil.IsKeyJustPressed(ebiten.KeyN) {
		return nil
	}
	if err := g.sim.Step(); err != nil {
		return err
	}
	stats, err := g.sim.Stats()
	if err != nil {
		return err
	}
	g.stats = stats
	if stats.Ticks%600 == 0 {
		g.logger.Printf("tick %d: %v, total density %.3f, max divergence %.2e",
			stats.Ticks, stats.LastTick, stats.TotalDensity, stats.MaxDivergence)
	}
	return nil
}

// stir drops dye and a diagonal push at (x, y). Off-grid cells are ignored.
func (g *Game) stir(x, y int) {
	if err := g.sim.AddVelocity(x, y, clickVelocity, clickVelocity); err != nil {
		return
	}
	_ = g.sim.AddDensity(x, y, clickDensity)
}

func (g *Game) Draw(screen *ebiten.Image) {
	var err error
	if g.showVelocity {
		err = render.DirectionPixels(g.sim.Velocity(), g.pixels)
	} else {
		err = render.ScalarPixels(g.sim.Density(), g.palette, g.pixels)
	}
	if err != nil {
		g.logger.Println("render:", err)
		return
	}
	g.img.WritePixels(g.pixels)
	screen.DrawImage(g.img, nil)

	status := "running"
	if g.paused {
		status = "paused"
	}
	ebitenutil.DebugPrint(screen, fmt.Sprintf("FPS: %0.2f\ntick %d (%s)\nstep %v",
		ebiten.ActualFPS(), g.stats.Ticks, status, g.stats.LastTick))
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (screenWidth, screenHeight int) {
	return g.n, g.n
}

func runWindow(s config.Settings, _ *envOptions, logger *log.Logger) error {
	palette, err := render.PaletteByName(s.View.Palette)
	if err != nil {
		return err
	}
	sim, err := newFluid(s, logger)
	if err != nil {
		return err
	}

	ebiten.SetWindowSize(s.Simulation.N*s.View.Scale, s.Simulation.N*s.View.Scale)
	ebiten.SetWindowTitle("FluidSim")
	ebiten.SetTPS(s.View.TPS)

	if err := ebiten.RunGame(NewGame(sim, palette, logger)); err != nil && err != ebiten.Termination {
		return err
	}
	return nil
}
