package main

import (
	"bytes"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/jroimartin/gocui"
	"github.com/logrusorgru/aurora"

	"github.com/mohamadtshehab/Fluid-Simulation/pkg/config"
	"github.com/mohamadtshehab/Fluid-Simulation/pkg/fluid"
)

// Light to dense.
const shades = " .:-=+*#%@"

type keyBindings struct {
	key      interface{}
	name     string
	descr    string
	handler  func(v *gocui.View) error
	viewName string
}

type ConsoleUI struct {
	sim      *fluid.Fluid
	settings config.Settings
	g        *gocui.Gui
	k        []keyBindings

	mu      sync.Mutex
	running bool
	stop    chan struct{}
}

func NewConsoleUI(sim *fluid.Fluid, s config.Settings) (*ConsoleUI, error) {
	t := &ConsoleUI{sim: sim, settings: s, stop: make(chan struct{})}

	var err error
	t.g, err = gocui.NewGui(gocui.OutputNormal)
	if err != nil {
		return nil, err
	}
	t.g.Mouse = true

	t.k = []keyBindings{
		{gocui.KeyCtrlC, "^C", "Exit", t.cmdQuit, ""},
		{'n', "N", "Next step", t.cmdStep, ""},
		{'r', "R", "Run", t.cmdRun, ""},
		{'s', "S", "Stop", t.cmdStop, ""},
		{'c', "C", "Clear", t.cmdClear, ""},
		{'w', "W", "Noise", t.cmdNoise, ""},
		{gocui.MouseLeft, "MOUSE", "Stir", t.cmdMouseClick, "density"},
	}
	t.g.SetManagerFunc(t.layout)
	for _, kb := range t.k {
		h := kb.handler
		if err := t.g.SetKeybinding(kb.viewName, kb.key, gocui.ModNone,
			func(_ *gocui.Gui, v *gocui.View) error { return h(v) }); err != nil {
			t.g.Close()
			return nil, err
		}
	}
	return t, nil
}

func (t *ConsoleUI) Start() error {
	defer t.g.Close()
	go t.tick()
	defer close(t.stop)
	if err := t.g.MainLoop(); err != nil && err != gocui.ErrQuit {
		return err
	}
	return nil
}

func (t *ConsoleUI) tick() {
	ticker := time.NewTicker(t.settings.TickInterval())
	defer ticker.Stop()
	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
		}
		t.mu.Lock()
		running := t.running
		t.mu.Unlock()
		if !running {
			continue
		}
		if err := t.sim.Step(); err != nil {
			t.g.Update(func(*gocui.Gui) error { return err })
			return
		}
		t.refresh()
	}
}

func (t *ConsoleUI) refresh() {
	t.g.Update(func(g *gocui.Gui) error {
		t.renderDensity(g)
		t.renderStatus(g)
		return nil
	})
}

func (t *ConsoleUI) renderDensity(g *gocui.Gui) {
	v, err := g.View("density")
	if err != nil {
		return
	}
	v.Clear()

	snap := t.sim.Density()
	maxW, maxH := v.Size()
	n := snap.NumX
	top := snap.MaxValue

	var b bytes.Buffer
	for row := 0; row < min(maxH, n); row++ {
		if row != 0 {
			b.WriteByte('\n')
		}
		for col := 0; col < min(maxW, n); col++ {
			i, j := col*n/min(maxW, n), row*n/min(maxH, n)
			val, _ := snap.Value(i, j)
			k := 0
			if top > 0 {
				k = int(val / top * float64(len(shades)-1))
			}
			b.WriteByte(shades[min(max(k, 0), len(shades)-1)])
		}
	}
	_, _ = fmt.Fprint(v, b.String())
}

func (t *ConsoleUI) renderStatus(g *gocui.Gui) {
	v, err := g.View("status")
	if err != nil {
		return
	}
	v.Clear()
	st, err := t.sim.Stats()
	if err != nil {
		_, _ = fmt.Fprintln(v, aurora.Red(err.Error()))
		return
	}
	t.mu.Lock()
	mode := aurora.Colorize("waiting", aurora.BlueFg).String()
	if t.running {
		mode = aurora.Colorize("running", aurora.CyanFg).String()
	}
	t.mu.Unlock()
	_, _ = fmt.Fprintln(v, renderProp("Step", "%v", st.Ticks))
	_, _ = fmt.Fprintln(v, renderProp("Step time", "%v", st.LastTick.Round(time.Microsecond)))
	_, _ = fmt.Fprintln(v, renderProp("Density", "%.3f", st.TotalDensity))
	_, _ = fmt.Fprintln(v, renderProp("Divergence", "%.2e", st.MaxDivergence))
	_, _ = fmt.Fprintln(v, renderProp("Mode", "%v", mode))
}

func (t *ConsoleUI) renderConfiguration(v *gocui.View) {
	c := t.sim.Config()
	v.Clear()
	_, _ = fmt.Fprintln(v, renderProp("Dimension", "%v x %v", c.N, c.N))
	_, _ = fmt.Fprintln(v, renderProp("Time step", "%v", c.TimeStep))
	_, _ = fmt.Fprintln(v, renderProp("Iterations", "%v", c.Iterations))
	_, _ = fmt.Fprintln(v, renderProp("Diffusion", "%v", c.Diffusion))
	_, _ = fmt.Fprintln(v, renderProp("Viscosity", "%v", c.Viscosity))
	_, _ = fmt.Fprintln(v, renderProp("Backend", "%v", t.settings.Simulation.Backend))
}

func renderProp(name string, valueformat string, values ...interface{}) string {
	return fmt.Sprintf(" "+aurora.Colorize(name, aurora.GreenFg).String()+": "+valueformat, values...)
}

func (t *ConsoleUI) layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()
	leftColumnWidth := 30
	minWindowHeight := 20

	if maxY < minWindowHeight {
		if err := headerLayout(g, maxY, "Terminal height too small"); err != nil {
			return err
		}
		_ = g.DeleteView("configuration")
		_ = g.DeleteView("status")
		_ = g.DeleteView("density")
		return nil
	}
	if err := headerLayout(g, 3, "Stable fluids"); err != nil {
		return err
	}

	if v, err := g.SetView("configuration", 0, 3, leftColumnWidth, 3+(maxY-5-3)/2); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Configuration"
		t.renderConfiguration(v)
	}

	if v, err := g.SetView("status", 0, 3+(maxY-5-3)/2+1, leftColumnWidth, maxY-5); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Status"
	}
	t.renderStatus(g)

	if v, err := g.SetView("density", leftColumnWidth+1, 3, maxX-1, maxY-5); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Density"
	}
	t.renderDensity(g)

	if v, err := g.SetView("help", -1, maxY-5, maxX, maxY-3); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Frame = false
		var b bytes.Buffer
		b.WriteString("KEYBINDINGS: ")
		for i, k := range t.k {
			if i != 0 {
				b.WriteString(", ")
			}
			b.WriteString(aurora.Green(k.name).String())
			b.WriteString(": ")
			b.WriteString(k.descr)
		}
		_, _ = fmt.Fprintln(v, b.String())
	}
	return nil
}

func headerLayout(g *gocui.Gui, height int, text string) error {
	maxX, _ := g.Size()
	v, err := g.SetView("header", -1, -1, maxX+1, height)
	if err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Frame = false
		v.BgColor = gocui.ColorCyan
		v.FgColor = gocui.ColorBlack
	}
	v.Clear()
	pad := max((maxX-len(text))/2, 0)
	_, _ = fmt.Fprintln(v, strings.Repeat("\n", height/2)+strings.Repeat(" ", pad)+text)
	return nil
}

func (t *ConsoleUI) cmdQuit(_ *gocui.View) error {
	return gocui.ErrQuit
}

func (t *ConsoleUI) cmdStep(_ *gocui.View) error {
	if err := t.sim.Step(); err != nil {
		return err
	}
	t.refresh()
	return nil
}

func (t *ConsoleUI) cmdRun(_ *gocui.View) error {
	t.setRunning(true)
	return nil
}

func (t *ConsoleUI) cmdStop(_ *gocui.View) error {
	t.setRunning(false)
	return nil
}

func (t *ConsoleUI) cmdClear(_ *gocui.View) error {
	t.sim.Reset()
	t.refresh()
	return nil
}

func (t *ConsoleUI) cmdNoise(_ *gocui.View) error {
	t.sim.Randomize(uint64(time.Now().UnixNano()), 1)
	t.refresh()
	return nil
}

// cmdMouseClick stirs the cell under the cursor like a window click.
func (t *ConsoleUI) cmdMouseClick(v *gocui.View) error {
	cx, cy := v.Cursor()
	w, h := v.Size()
	n := t.sim.N()
	i, j := cx*n/max(min(w, n), 1), cy*n/max(min(h, n), 1)
	if err := t.sim.AddVelocity(i, j, clickVelocity, clickVelocity); err != nil {
		return nil
	}
	_ = t.sim.AddDensity(i, j, clickDensity)
	t.refresh()
	return nil
}

func (t *ConsoleUI) setRunning(running bool) {
	t.mu.Lock()
	t.running = running
	t.mu.Unlock()
	t.refresh()
}

func runConsole(s config.Settings, _ *envOptions, logger *log.Logger) error {
	sim, err := newFluid(s, logger)
	if err != nil {
		return err
	}
	ui, err := NewConsoleUI(sim, s)
	if err != nil {
		return err
	}
	return ui.Start()
}
