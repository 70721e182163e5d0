package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/talgya/contagion/internal/api"
	"github.com/talgya/contagion/internal/config"
	"github.com/talgya/contagion/internal/engine"
	"github.com/talgya/contagion/internal/entropy"
	"github.com/talgya/contagion/internal/persistence"
)

// build creates the world, its engine and a sampler wired to every tick.
func build(cfg config.Config) (*engine.Engine, *engine.Sampler, error) {
	var rng entropy.Source = &entropy.Crypto{}
	if cfg.Seed != 0 {
		rng = entropy.NewSeeded(cfg.Seed)
	}

	w, err := engine.NewWorld(cfg, rng)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("run configured", "seed", cfg.Seed, "day_length", w.DayLength())

	eng := engine.NewEngine(w)
	sampler := engine.NewSampler(cfg.SampleInterval)
	eng.OnTick = func(w *engine.World) { sampler.Observe(w) }
	return eng, sampler, nil
}

// openRecorder registers a run in the database at path. An empty path
// disables recording.
func openRecorder(path string, cfg config.Config, sampler *engine.Sampler) (*persistence.Recorder, error) {
	if path == "" {
		return nil, nil
	}
	db, err := persistence.Open(path)
	if err != nil {
		return nil, err
	}
	rec, err := persistence.NewRecorder(db, cfg, sampler)
	if err != nil {
		db.Close()
		return nil, err
	}
	slog.Info("recording run", "db", path, "run", rec.RunID)
	return rec, nil
}

func runHeadless(cfg config.Config, days, ticks int, dbPath string) error {
	eng, sampler, err := build(cfg)
	if err != nil {
		return err
	}

	rec, err := openRecorder(dbPath, cfg, sampler)
	if err != nil {
		return err
	}
	if rec != nil {
		defer rec.DB.Close()
		eng.OnDay = rec.FlushDaily
	}

	if ticks <= 0 {
		eng.View(func(w *engine.World) { ticks = days * w.DayLength() })
	}

	start := time.Now()
	eng.SetPaused(false)
	eng.RunTicks(ticks)
	elapsed := time.Since(start)

	var (
		census engine.Census
		when   string
	)
	eng.Update(func(w *engine.World) {
		census = w.Census()
		when = engine.SimTime(w)
		if rec != nil {
			err = rec.Flush(w)
		}
	})
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}

	printSummary(os.Stdout, when, ticks, elapsed, census, sampler.Samples)
	return nil
}

func runServe(cfg config.Config, port int, speed float64, dbPath string) error {
	eng, sampler, err := build(cfg)
	if err != nil {
		return err
	}
	eng.SetSpeed(speed)

	rec, err := openRecorder(dbPath, cfg, sampler)
	if err != nil {
		return err
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	adminKey := os.Getenv("CONTAGION_ADMIN_KEY")
	if adminKey == "" {
		slog.Warn("CONTAGION_ADMIN_KEY not set, admin POST endpoints will be disabled")
	}
	apiServer := &api.Server{
		Eng:      eng,
		Sampler:  sampler,
		Port:     port,
		AdminKey: adminKey,
	}
	if rec != nil {
		defer rec.DB.Close()
		eng.OnDay = rec.FlushDaily
		apiServer.Recorder = rec
	}
	srv := apiServer.Start()

	// ── Start ─────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		eng.Stop()
	}()

	eng.SetPaused(false)
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", port)
	fmt.Println("Starting simulation... (Ctrl+C to stop)")
	eng.Run()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP shutdown failed", "error", err)
	}

	if rec != nil {
		eng.Update(func(w *engine.World) { err = rec.Flush(w) })
		if err != nil {
			return fmt.Errorf("final flush: %w", err)
		}
	}
	fmt.Println("Simulation stopped.")
	return nil
}

func listRuns(out io.Writer, dbPath string) error {
	db, err := persistence.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := db.Runs()
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	printRuns(out, runs)
	return nil
}

func showRun(out io.Writer, dbPath, runID string, events int) error {
	db, err := persistence.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	cfg, err := db.RunConfig(runID)
	if err != nil {
		return err
	}
	raw, err := config.Marshal(cfg)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "# run %s\n", runID)
	if _, err := out.Write(raw); err != nil {
		return err
	}

	if events <= 0 {
		return nil
	}
	recent, err := db.RecentEvents(runID, "", events)
	if err != nil {
		return fmt.Errorf("recent events: %w", err)
	}
	printEvents(out, recent)
	return nil
}
