// World generation: lays down buildings type by type until each type's
// target capacity is met, placing every footprint so that no two overlap.
package world

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/talgya/contagion/internal/entropy"
)

// Range is a closed integer interval.
type Range struct {
	Min int `json:"min" yaml:"min"`
	Max int `json:"max" yaml:"max"`
}

// Contains reports whether v lies in [Min, Max].
func (r Range) Contains(v int) bool {
	return v >= r.Min && v <= r.Max
}

// GenConfig holds world generation parameters. The per-type tables are
// indexed by BuildingType.
type GenConfig struct {
	Capacities           [NumBuildingTypes]Range // Per-building capacity bounds
	Sizes                [NumBuildingTypes]Range // Full-capacity footprint side lengths
	Margin               Vec2                    // Clearance kept around every building
	MaxPlacementAttempts int                     // Random-walk steps before giving up on a site
}

// DefaultGenConfig returns the stock town layout.
func DefaultGenConfig() GenConfig {
	var cfg GenConfig
	cfg.Capacities[BuildingHouse] = Range{Min: 2, Max: 6}
	cfg.Capacities[BuildingWork] = Range{Min: 5, Max: 15}
	cfg.Capacities[BuildingHospital] = Range{Min: 10, Max: 30}
	cfg.Capacities[BuildingMisc] = Range{Min: 10, Max: 30}

	cfg.Sizes[BuildingHouse] = Range{Min: 200, Max: 230}
	cfg.Sizes[BuildingWork] = Range{Min: 300, Max: 340}
	cfg.Sizes[BuildingHospital] = Range{Min: 350, Max: 400}
	cfg.Sizes[BuildingMisc] = Range{Min: 350, Max: 400}

	cfg.Margin = Vec2{X: 25, Y: 25}
	cfg.MaxPlacementAttempts = 10000
	return cfg
}

// Validate checks that every building type has a usable entry.
func (cfg GenConfig) Validate() error {
	var errs []error
	for _, t := range AllBuildingTypes() {
		c := cfg.Capacities[t]
		if c.Min < 1 {
			errs = append(errs, fmt.Errorf("%s capacity min %d must be at least 1", t, c.Min))
		}
		if c.Max < c.Min {
			errs = append(errs, fmt.Errorf("%s capacity range [%d, %d] is empty", t, c.Min, c.Max))
		}
		s := cfg.Sizes[t]
		if s.Min < 1 {
			errs = append(errs, fmt.Errorf("%s size min %d must be at least 1", t, s.Min))
		}
		if s.Max < s.Min {
			errs = append(errs, fmt.Errorf("%s size range [%d, %d] is empty", t, s.Min, s.Max))
		}
		if c.Min >= 1 && c.Max >= c.Min && s.Min >= 1 {
			if side := smallestSide(c, s); side < 1 {
				errs = append(errs, fmt.Errorf("%s footprint at capacity %d scales to side %v; raise the size min",
					t, c.Min, side))
			}
		}
	}
	if cfg.Margin.X < 0 || cfg.Margin.Y < 0 {
		errs = append(errs, fmt.Errorf("building margin %v must not be negative", cfg.Margin))
	}
	if cfg.MaxPlacementAttempts < 1 {
		errs = append(errs, fmt.Errorf("max placement attempts %d must be at least 1", cfg.MaxPlacementAttempts))
	}
	return errors.Join(errs...)
}

// smallestSide is the rounded footprint side of the smallest building a
// type can produce. A zero side cannot walk away from its anchor.
func smallestSide(capacity, size Range) float64 {
	return math.Round(float64(size.Min) * float64(capacity.Min) / float64(capacity.Max))
}

// Targets holds the capacity each building type must reach.
type Targets [NumBuildingTypes]int

// TargetsFor derives the generation targets from a population and a
// hospital capacity: homes, workplaces and venues all cover the population.
func TargetsFor(population, hospitalCapacity int) Targets {
	var t Targets
	t[BuildingMisc] = population
	t[BuildingHospital] = hospitalCapacity
	t[BuildingWork] = population
	t[BuildingHouse] = population
	return t
}

// Generate creates a map whose per-type capacity meets targets.
// Types are laid down in GenerationOrder.
func Generate(cfg GenConfig, targets Targets, rng entropy.Source) (*Map, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := NewMap()
	for _, t := range GenerationOrder {
		if err := AddBuildings(m, cfg, t, targets[t], rng); err != nil {
			return nil, fmt.Errorf("generate %s buildings: %w", t, err)
		}
		slog.Debug("buildings generated",
			"type", t.String(),
			"count", m.CountOfType(t),
			"capacity", m.TotalCapacity(t),
			"target", targets[t],
		)
	}
	return m, nil
}

// AddBuildings adds buildings of one type until their combined capacity
// reaches targetCapacity. Each capacity is drawn from the type's range; the
// building that would overshoot is clamped to max(min, remaining).
func AddBuildings(m *Map, cfg GenConfig, typ BuildingType, targetCapacity int, rng entropy.Source) error {
	capRange := cfg.Capacities[typ]
	sizeRange := cfg.Sizes[typ]

	current := 0
	for current < targetCapacity {
		capacity := rng.IntRange(capRange.Min, capRange.Max)
		if current+capacity > targetCapacity {
			capacity = max(capRange.Min, targetCapacity-current)
		}

		// Larger buildings get proportionally larger footprints.
		scale := float64(capacity) / float64(capRange.Max)
		dims := Vec2{
			X: float64(rng.IntRange(sizeRange.Min, sizeRange.Max)),
			Y: float64(rng.IntRange(sizeRange.Min, sizeRange.Max)),
		}.Scale(scale).Round()

		pos, err := NewBuildingPosition(m, cfg, dims, rng)
		if err != nil {
			return err
		}
		m.Add(typ, capacity, pos, dims)
		current += capacity
	}
	return nil
}
