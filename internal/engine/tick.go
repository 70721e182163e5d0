package engine

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultInterval is the base wall-clock time per tick (50 ticks/s).
const DefaultInterval = 20 * time.Millisecond

// Engine drives a World in real time and serializes access to it, so an
// observer can read state between ticks.
type Engine struct {
	Interval time.Duration // Base tick interval at speed 1

	// Callbacks run after every step while the engine lock is held.
	OnTick func(w *World)
	OnDay  func(w *World) // After the step that rolls the day over

	mu      sync.RWMutex
	world   *World
	speed   float64
	running atomic.Bool
	stopped bool // Set by Stop; Run never starts afterwards
	done    chan struct{}
}

// NewEngine wraps w with default pacing.
func NewEngine(w *World) *Engine {
	return &Engine{
		Interval: DefaultInterval,
		world:    w,
		speed:    1.0,
	}
}

// Step advances the world by one tick and fires the callbacks.
func (e *Engine) Step() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.step()
}

// RunTicks steps n times as fast as possible.
func (e *Engine) RunTicks(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := 0; i < n; i++ {
		e.step()
	}
}

func (e *Engine) step() {
	day := e.world.Day
	e.world.Tick()

	if e.OnTick != nil {
		e.OnTick(e.world)
	}
	if e.world.Day != day && e.OnDay != nil {
		e.OnDay(e.world)
	}
}

// Run steps the world at Interval/Speed until Stop is called. It returns
// immediately if Stop was already called.
func (e *Engine) Run() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.done = make(chan struct{})
	done := e.done
	e.running.Store(true)
	e.mu.Unlock()

	defer close(done)
	slog.Info("simulation engine started", "interval", e.Interval, "speed", e.Speed())

	for e.running.Load() {
		speed := e.Speed()
		if speed <= 0 {
			// Stalled: sleep briefly and check again.
			time.Sleep(100 * time.Millisecond)
			continue
		}

		start := time.Now()
		e.Step()

		elapsed := time.Since(start)
		target := time.Duration(float64(e.Interval) / speed)
		if elapsed < target {
			time.Sleep(target - elapsed)
		}
	}

	e.View(func(w *World) {
		slog.Info("simulation engine stopped", "day", w.Day, "time", w.Time, "ticks", w.Ticks())
	})
}

// Stop halts Run and waits for the current step to finish. Stopping is
// permanent: a Run that has not started yet returns at once. Stop must
// not be called from OnTick or OnDay.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.stopped = true
	e.running.Store(false)
	done := e.done
	e.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Running reports whether Run is looping.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Update runs fn with exclusive access to the world between ticks.
func (e *Engine) Update(fn func(w *World)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.world)
}

// View runs fn with shared access to the world. fn must not mutate it.
func (e *Engine) View(fn func(w *World)) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	fn(e.world)
}

// SetPaused toggles the world's pause flag between ticks.
func (e *Engine) SetPaused(paused bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.world.Paused = paused
	slog.Info("simulation pause toggled", "paused", paused)
}

// SetSpeed sets the tick-rate multiplier. Zero or less stalls Run.
func (e *Engine) SetSpeed(speed float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.speed = speed
}

// Speed returns the tick-rate multiplier.
func (e *Engine) Speed() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.speed
}

// SimTime formats a position on the day clock, e.g. "Day 3, tick 41 (misc)".
func SimTime(w *World) string {
	return fmt.Sprintf("Day %d, tick %d (%s)", w.Day+1, w.Time, w.CurrentPhase())
}
