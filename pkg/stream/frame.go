package stream

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/mohamadtshehab/Fluid-Simulation/pkg/fluid"
)

// Frame is one tick as sent to clients. Density is row-major: the value
// of cell (i, j) is Density[j*N+i].
type Frame struct {
	Tick          int       `json:"tick"`
	N             int       `json:"n"`
	Density       []float64 `json:"density"`
	MaxDensity    float64   `json:"maxDensity"`
	TotalDensity  float64   `json:"totalDensity"`
	MaxDivergence float64   `json:"maxDivergence"`
}

const (
	KindDensity  = "density"
	KindVelocity = "velocity"
	KindReset    = "reset"
)

// Impulse is a client request to disturb the fluid.
type Impulse struct {
	Kind   string  `json:"kind"`
	X      int     `json:"x"`
	Y      int     `json:"y"`
	Amount float64 `json:"amount,omitempty"`
	DX     float64 `json:"dx,omitempty"`
	DY     float64 `json:"dy,omitempty"`
}

func Apply(sim *fluid.Fluid, imp Impulse) error {
	switch imp.Kind {
	case KindDensity:
		return sim.AddDensity(imp.X, imp.Y, imp.Amount)
	case KindVelocity:
		return sim.AddVelocity(imp.X, imp.Y, imp.DX, imp.DY)
	case KindReset:
		sim.Reset()
		return nil
	}
	return fmt.Errorf("unknown impulse kind %q", imp.Kind)
}

func FrameOf(sim *fluid.Fluid) (Frame, error) {
	stats, err := sim.Stats()
	if err != nil {
		return Frame{}, err
	}
	snap := sim.Density()
	n := snap.NumX
	m := snap.Matrix()
	density := make([]float64, n*n)
	for i := range n {
		for j := range n {
			density[j*n+i] = m.At(i, j)
		}
	}
	return Frame{
		Tick:          stats.Ticks,
		N:             n,
		Density:       density,
		MaxDensity:    snap.MaxValue,
		TotalDensity:  stats.TotalDensity,
		MaxDivergence: stats.MaxDivergence,
	}, nil
}

// Loop steps sim every interval, applying pending impulses before each
// step and broadcasting the result. It returns when ctx is done or a
// step fails.
func Loop(ctx context.Context, sim *fluid.Fluid, hub *Hub, interval time.Duration, logger *log.Logger) error {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		drain(sim, hub, logger)
		start := time.Now()
		if err := sim.Step(); err != nil {
			return err
		}
		frame, err := FrameOf(sim)
		if err != nil {
			return err
		}
		hub.Broadcast(frame)
		if elapsed := time.Since(start); elapsed > interval {
			logger.Printf("slow tick %d: %v (interval %v)", frame.Tick, elapsed, interval)
		}
	}
}

func drain(sim *fluid.Fluid, hub *Hub, logger *log.Logger) {
	for {
		select {
		case imp := <-hub.Impulses():
			if err := Apply(sim, imp); err != nil {
				logger.Printf("ignoring impulse: %v", err)
			}
		default:
			return
		}
	}
}
