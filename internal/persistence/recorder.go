package persistence

import (
	"log/slog"
	"slices"

	"github.com/talgya/contagion/internal/config"
	"github.com/talgya/contagion/internal/engine"
)

// Recorder copies new samples and events of one run into the database.
// Flush must be called with exclusive access to the world, from an engine
// callback or Engine.Update.
type Recorder struct {
	DB    *DB
	RunID string

	sampler        *engine.Sampler
	sampledThrough uint64 // Last sample tick written
	eventsFrom     uint64 // First event tick not yet written
}

// NewRecorder registers a new run for cfg and returns its recorder.
func NewRecorder(db *DB, cfg config.Config, sampler *engine.Sampler) (*Recorder, error) {
	runID, err := db.CreateRun(cfg)
	if err != nil {
		return nil, err
	}
	return &Recorder{DB: db, RunID: runID, sampler: sampler}, nil
}

// Flush writes everything sampled or logged since the last flush.
func (r *Recorder) Flush(w *engine.World) error {
	samples := r.sampler.Since(r.sampledThrough)
	if err := r.DB.SaveSamples(r.RunID, samples); err != nil {
		return err
	}
	if len(samples) > 0 {
		r.sampledThrough = samples[len(samples)-1].Tick
	}

	if err := r.DB.SaveEvents(r.RunID, w.EventsSince(r.eventsFrom)); err != nil {
		return err
	}
	r.eventsFrom = w.Ticks()
	return nil
}

// FlushDaily is an Engine.OnDay hook; a failed write is retried at the
// next day.
func (r *Recorder) FlushDaily(w *engine.World) {
	if err := r.Flush(w); err != nil {
		slog.Error("daily save failed", "run", r.RunID, "day", w.Day, "error", err)
	}
}

// Samples returns every recorded sample of the run in tick order.
func (r *Recorder) Samples() ([]engine.Sample, error) {
	return r.DB.Samples(r.RunID)
}

// Events returns up to limit recorded events of the run, oldest first.
func (r *Recorder) Events(category string, limit int) ([]engine.Event, error) {
	events, err := r.DB.RecentEvents(r.RunID, category, limit)
	if err != nil {
		return nil, err
	}
	slices.Reverse(events)
	return events, nil
}
