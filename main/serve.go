package main

import (
	"context"
	_ "embed"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mohamadtshehab/Fluid-Simulation/pkg/config"
	"github.com/mohamadtshehab/Fluid-Simulation/pkg/stream"
)

//go:embed index.html
var indexHTML []byte

// runServe steps the fluid on a ticker and streams density frames to
// websocket clients on /ws, until interrupted.
func runServe(s config.Settings, _ *envOptions, logger *log.Logger) error {
	sim, err := newFluid(s, logger)
	if err != nil {
		return err
	}
	hub := stream.NewHub(logger)

	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(indexHTML)
	})
	srv := &http.Server{Addr: s.Server.Addr, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Printf("listening on http://%s", s.Server.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		return stream.Loop(ctx, sim, hub, s.TickInterval(), logger)
	})
	group.Go(func() error {
		<-ctx.Done()
		hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = group.Wait()
	logger.Println("stopped")
	return err
}
