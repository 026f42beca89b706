package stream

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mohamadtshehab/Fluid-Simulation/pkg/fluid"
)

func newSim(t *testing.T, n int) *fluid.Fluid {
	t.Helper()
	sim, err := fluid.New(fluid.Config{N: n, TimeStep: 0.05, Iterations: 8})
	if err != nil {
		t.Fatal(err)
	}
	return sim
}

func dial(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })

	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(time.Millisecond)
	}
	return conn
}

func TestApply(t *testing.T) {
	sim := newSim(t, 6)
	if err := Apply(sim, Impulse{Kind: KindDensity, X: 2, Y: 3, Amount: 4}); err != nil {
		t.Fatal(err)
	}
	if err := Apply(sim, Impulse{Kind: KindVelocity, X: 2, Y: 3, DX: 1, DY: -1}); err != nil {
		t.Fatal(err)
	}
	if v, _ := sim.Density().Value(2, 3); v != 4 {
		t.Errorf("expected density 4, got %g", v)
	}
	if u, v, _ := sim.Velocity().Value(2, 3); u != 1 || v != -1 {
		t.Errorf("expected velocity (1,-1), got (%g,%g)", u, v)
	}

	if err := Apply(sim, Impulse{Kind: KindDensity, X: 6, Y: 0, Amount: 1}); !errors.Is(err, fluid.ErrOutOfBounds) {
		t.Errorf("expected ErrOutOfBounds, got %v", err)
	}
	if err := Apply(sim, Impulse{Kind: "vortex"}); err == nil {
		t.Error("expected an error for an unknown kind")
	}

	if err := Apply(sim, Impulse{Kind: KindReset}); err != nil {
		t.Fatal(err)
	}
	if sim.Density().MaxValue != 0 {
		t.Error("reset left density behind")
	}
}

func TestFrameOfIsRowMajor(t *testing.T) {
	sim := newSim(t, 5)
	if err := sim.AddDensity(3, 1, 2); err != nil {
		t.Fatal(err)
	}
	f, err := FrameOf(sim)
	if err != nil {
		t.Fatal(err)
	}
	if f.N != 5 || len(f.Density) != 25 {
		t.Fatalf("unexpected frame shape: n=%d len=%d", f.N, len(f.Density))
	}
	if f.Density[1*5+3] != 2 {
		t.Errorf("expected cell (3,1) at index 8, got %v", f.Density)
	}
	if f.MaxDensity != 2 || f.TotalDensity != 2 {
		t.Errorf("expected max and total 2, got %g and %g", f.MaxDensity, f.TotalDensity)
	}
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub(nil)
	conn := dial(t, hub)

	hub.Broadcast(Frame{Tick: 3, N: 1, Density: []float64{0.5}})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got Frame
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatal(err)
	}
	if got.Tick != 3 || len(got.Density) != 1 || got.Density[0] != 0.5 {
		t.Errorf("unexpected frame %+v", got)
	}
}

func TestHubSendsLastFrameOnConnect(t *testing.T) {
	hub := NewHub(nil)
	hub.Broadcast(Frame{Tick: 7})
	conn := dial(t, hub)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got Frame
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatal(err)
	}
	if got.Tick != 7 {
		t.Errorf("expected the last frame (tick 7), got tick %d", got.Tick)
	}
}

func TestHubCollectsImpulses(t *testing.T) {
	hub := NewHub(nil)
	conn := dial(t, hub)

	want := Impulse{Kind: KindVelocity, X: 1, Y: 2, DX: 3, DY: 4}
	if err := conn.WriteJSON(want); err != nil {
		t.Fatal(err)
	}
	select {
	case got := <-hub.Impulses():
		if got != want {
			t.Errorf("expected %+v, got %+v", want, got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("impulse never arrived")
	}
}

func TestHubClose(t *testing.T) {
	hub := NewHub(nil)
	conn := dial(t, hub)
	hub.Close()
	if hub.Clients() != 0 {
		t.Errorf("expected no clients after close, got %d", hub.Clients())
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected the connection to be closed")
	}
}

func TestLoopAppliesImpulsesAndBroadcasts(t *testing.T) {
	sim := newSim(t, 8)
	hub := NewHub(nil)
	conn := dial(t, hub)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Loop(ctx, sim, hub, time.Millisecond, nil) }()

	if err := conn.WriteJSON(Impulse{Kind: KindDensity, X: 4, Y: 4, Amount: 10}); err != nil {
		t.Fatal(err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var f Frame
		if err := conn.ReadJSON(&f); err != nil {
			t.Fatal(err)
		}
		if f.TotalDensity > 0 {
			if f.Tick < 1 {
				t.Errorf("expected a stepped frame, got tick %d", f.Tick)
			}
			break
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("loop returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop")
	}
}
