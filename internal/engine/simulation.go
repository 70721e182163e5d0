// Package engine advances the epidemic one tick at a time and drives it
// in real time.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/talgya/contagion/internal/agents"
	"github.com/talgya/contagion/internal/config"
	"github.com/talgya/contagion/internal/entropy"
	"github.com/talgya/contagion/internal/world"
)

// maxEvents bounds the in-memory event log.
const maxEvents = 1000

// Phase is one of the three parts of a day.
type Phase uint8

const (
	PhaseWork Phase = iota // Everyone heads to work
	PhaseMisc              // Errands or home
	PhaseHome              // Everyone heads home
)

func (p Phase) String() string {
	switch p {
	case PhaseWork:
		return "work"
	case PhaseMisc:
		return "misc"
	case PhaseHome:
		return "home"
	default:
		return fmt.Sprintf("Phase(%d)", uint8(p))
	}
}

// Event is a notable occurrence during a tick.
type Event struct {
	Tick        uint64 `json:"tick" db:"tick"`
	Day         int    `json:"day" db:"day"`
	Description string `json:"description" db:"description"`
	Category    string `json:"category" db:"category"` // "infection", "hospital", "cure", "death"
}

// World owns the building map and the people roster and advances them.
// It is not safe for concurrent use; Engine serializes access.
type World struct {
	Map      *world.Map
	People   []*agents.Person
	Settings config.Settings

	Time   int  // Tick within the current day, 0 <= Time < DayLength()
	Day    int  // Days completed
	Paused bool // Tick is a no-op while set

	Events []Event // Most recent events, oldest first

	ticks     uint64
	dayLength int
	rng       entropy.Source
}

// NewWorld validates cfg, generates the town, assigns the population and
// seeds the initial infections. The world starts paused.
func NewWorld(cfg config.Config, rng entropy.Source) (*World, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := cfg.Settings

	m, err := world.Generate(s.World, world.TargetsFor(cfg.Population, cfg.HospitalCapacity), rng)
	if err != nil {
		return nil, fmt.Errorf("generate world: %w", err)
	}

	people, err := agents.NewSpawner(rng).SpawnPopulation(m, cfg.Population)
	if err != nil {
		return nil, fmt.Errorf("assign population: %w", err)
	}
	agents.SeedInfections(people, s.InitialInfected, s.Infection)

	w := &World{
		Map:       m,
		People:    people,
		Settings:  s,
		Paused:    true,
		dayLength: s.DayPhases.Length(),
		rng:       rng,
	}

	slog.Info("world ready",
		"buildings", m.Count(),
		"houses", m.CountOfType(world.BuildingHouse),
		"workplaces", m.CountOfType(world.BuildingWork),
		"hospitals", m.CountOfType(world.BuildingHospital),
		"misc", m.CountOfType(world.BuildingMisc),
		"people", len(people),
		"infected", s.InitialInfected,
	)
	return w, nil
}

// DayLength is the number of ticks in a day.
func (w *World) DayLength() int {
	return w.dayLength
}

// Ticks is the number of unpaused ticks processed since construction.
func (w *World) Ticks() uint64 {
	return w.ticks
}

// CurrentPhase maps Time onto the day's phases.
func (w *World) CurrentPhase() Phase {
	d := w.Settings.DayPhases
	switch {
	case w.Time < d.Work:
		return PhaseWork
	case w.Time < d.Work+d.Misc:
		return PhaseMisc
	default:
		return PhaseHome
	}
}

// Buildings returns the buildings of one type.
func (w *World) Buildings(t world.BuildingType) []*world.Building {
	return w.Map.OfType(t)
}

// AllBuildings returns every building.
func (w *World) AllBuildings() []*world.Building {
	return w.Map.All()
}

// Person returns the person with the given ID.
func (w *World) Person(id world.PersonID) *agents.Person {
	return w.People[id]
}

// Tick advances the simulation by one step. It does nothing while paused.
func (w *World) Tick() {
	if w.Paused {
		return
	}

	for _, p := range w.People {
		if !p.Alive {
			continue
		}
		w.spread(p)

		switch agents.Progress(p, w.Settings.Infection, w.rng) {
		case agents.OutcomeDied:
			p.Die(w.Map)
			w.record("death", "person %d died", p.ID)
			continue
		case agents.OutcomeCured:
			w.record("cure", "person %d recovered in hospital %d", p.ID, p.Current)
		}

		w.hospitalize(p)
		if !p.BeingTreated {
			w.relocate(p)
		}

		agents.DecayImmunity(p, w.Settings.ImmunityDecayRate)
		agents.Smooth(p)
	}

	w.ticks++
	w.Time++
	if w.Time >= w.dayLength {
		w.Time = 0
		w.Day++
		w.endOfDay()
	}
}

// spread lets a contagious person contact a random housemate, colleague
// or fellow visitor.
func (w *World) spread(p *agents.Person) {
	if !p.Contagious(w.Settings.Infection) {
		return
	}
	if !entropy.Chance(w.rng, w.Settings.InteractionChance) {
		return
	}
	b := w.Map.Get(p.Current)
	id, ok := agents.PickContact(p, b, w.rng)
	if !ok {
		return
	}
	other := w.People[id]
	wasInfected := other.Infected
	if agents.Expose(other, w.rng) && !wasInfected {
		w.record("infection", "person %d infected person %d in %s %d", p.ID, other.ID, b.Type, b.ID)
	}
}

// hospitalize admits someone in the hospital stage to a random hospital
// with a free bed.
func (w *World) hospitalize(p *agents.Person) {
	if !p.NeedsHospital(w.Settings.Infection) {
		return
	}
	free := w.Map.Filter(world.BuildingHospital, (*world.Building).HasRoom)
	if len(free) == 0 || !entropy.Chance(w.rng, w.Settings.HospitalChance) {
		return
	}
	hospital := free[entropy.Pick(w.rng, len(free))]
	agents.Admit(p, w.Map, hospital, w.rng)
	w.record("hospital", "person %d admitted to hospital %d", p.ID, hospital)
}

// relocate moves people at the first tick of each phase.
func (w *World) relocate(p *agents.Person) {
	d := w.Settings.DayPhases
	switch w.Time {
	case 0:
		p.Move(w.Map, p.Work, w.rng)
	case d.Work:
		visit := entropy.Chance(w.rng, w.Settings.MiscChance)
		misc := w.Map.IDsOfType(world.BuildingMisc)
		if visit && len(misc) > 0 {
			p.Move(w.Map, misc[entropy.Pick(w.rng, len(misc))], w.rng)
		} else {
			p.Move(w.Map, p.Home, w.rng)
		}
	case d.Work + d.Misc:
		p.Move(w.Map, p.Home, w.rng)
	}
}

func (w *World) record(category, format string, args ...any) {
	w.Events = append(w.Events, Event{
		Tick:        w.ticks,
		Day:         w.Day,
		Description: fmt.Sprintf(format, args...),
		Category:    category,
	})
}

func (w *World) endOfDay() {
	c := w.Census()
	slog.Info("daily report",
		"day", w.Day,
		"susceptible", c.Susceptible,
		"infected", c.Infected,
		"hospitalized", c.Hospitalized,
		"immune", c.Immune,
		"dead", c.Dead,
	)
	// Trim old events to prevent unbounded growth.
	if len(w.Events) > maxEvents {
		w.Events = append([]Event(nil), w.Events[len(w.Events)-maxEvents:]...)
	}
}

// RecentEvents returns up to n of the newest events, oldest first. A
// non-positive n returns them all.
func (w *World) RecentEvents(n int) []Event {
	if n <= 0 || n > len(w.Events) {
		n = len(w.Events)
	}
	out := make([]Event, n)
	copy(out, w.Events[len(w.Events)-n:])
	return out
}

// EventsSince returns the retained events recorded at or after tick.
func (w *World) EventsSince(tick uint64) []Event {
	i := len(w.Events)
	for i > 0 && w.Events[i-1].Tick >= tick {
		i--
	}
	return w.Events[i:]
}
