package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/talgya/contagion/internal/agents"
	"github.com/talgya/contagion/internal/world"
)

// document is the on-disk YAML shape. Per-type tables are keyed by
// building type name so a file can override a single type.
type document struct {
	Seed             int64 `yaml:"seed"`
	Population       int   `yaml:"population"`
	HospitalCapacity int   `yaml:"hospital_capacity"`
	SampleInterval   int   `yaml:"sample_interval"`

	DayPhases         DayPhases               `yaml:"day_phases"`
	MiscChance        float64                 `yaml:"misc_chance"`
	InteractionChance float64                 `yaml:"interaction_chance"`
	HospitalChance    float64                 `yaml:"hospital_chance"`
	InitialInfected   int                     `yaml:"initial_infected"`
	Infection         agents.InfectionLengths `yaml:"infection_lengths"`
	ImmunityDecayRate float64                 `yaml:"immunity_decay_rate"`

	Buildings buildingsDoc `yaml:"buildings"`
}

type buildingsDoc struct {
	Capacities        map[string]world.Range `yaml:"capacities"`
	Sizes             map[string]world.Range `yaml:"sizes"`
	Margin            world.Vec2             `yaml:"margin"`
	PlacementAttempts int                    `yaml:"placement_attempts"`
}

func toDocument(c Config) document {
	s := c.Settings
	d := document{
		Seed:              c.Seed,
		Population:        c.Population,
		HospitalCapacity:  c.HospitalCapacity,
		SampleInterval:    c.SampleInterval,
		DayPhases:         s.DayPhases,
		MiscChance:        s.MiscChance,
		InteractionChance: s.InteractionChance,
		HospitalChance:    s.HospitalChance,
		InitialInfected:   s.InitialInfected,
		Infection:         s.Infection,
		ImmunityDecayRate: s.ImmunityDecayRate,
		Buildings: buildingsDoc{
			Capacities:        make(map[string]world.Range, world.NumBuildingTypes),
			Sizes:             make(map[string]world.Range, world.NumBuildingTypes),
			Margin:            s.World.Margin,
			PlacementAttempts: s.World.MaxPlacementAttempts,
		},
	}
	for _, t := range world.AllBuildingTypes() {
		d.Buildings.Capacities[t.String()] = s.World.Capacities[t]
		d.Buildings.Sizes[t.String()] = s.World.Sizes[t]
	}
	return d
}

func (d document) config() (Config, error) {
	c := Config{
		Seed:             d.Seed,
		Population:       d.Population,
		HospitalCapacity: d.HospitalCapacity,
		SampleInterval:   d.SampleInterval,
		Settings: Settings{
			DayPhases:         d.DayPhases,
			MiscChance:        d.MiscChance,
			InteractionChance: d.InteractionChance,
			HospitalChance:    d.HospitalChance,
			InitialInfected:   d.InitialInfected,
			Infection:         d.Infection,
			ImmunityDecayRate: d.ImmunityDecayRate,
		},
	}
	c.Settings.World.Margin = d.Buildings.Margin
	c.Settings.World.MaxPlacementAttempts = d.Buildings.PlacementAttempts

	for name, r := range d.Buildings.Capacities {
		t, err := world.ParseBuildingType(name)
		if err != nil {
			return c, fmt.Errorf("%w: capacities: %w", ErrInvalid, err)
		}
		c.Settings.World.Capacities[t] = r
	}
	for name, r := range d.Buildings.Sizes {
		t, err := world.ParseBuildingType(name)
		if err != nil {
			return c, fmt.Errorf("%w: sizes: %w", ErrInvalid, err)
		}
		c.Settings.World.Sizes[t] = r
	}
	return c, nil
}

// Parse reads YAML over the defaults: keys absent from raw keep their
// default value. The result is validated.
func Parse(raw []byte) (Config, error) {
	d := toDocument(Default())
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return Config{}, fmt.Errorf("parsing config YAML: %w", err)
	}
	c, err := d.config()
	if err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Load reads and validates a YAML config file.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	c, err := Parse(raw)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Marshal renders c as YAML in the same shape Load reads.
func Marshal(c Config) ([]byte, error) {
	return yaml.Marshal(toDocument(c))
}
