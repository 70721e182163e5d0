// Package config holds the simulation tunables, their defaults, and
// YAML loading. Settings are validated once at construction; nothing here
// is hot-reloaded.
package config

import (
	"errors"
	"fmt"

	"github.com/talgya/contagion/internal/agents"
	"github.com/talgya/contagion/internal/world"
)

// ErrInvalid marks a configuration that violates a precondition.
var ErrInvalid = errors.New("invalid configuration")

// DayPhases are the lengths, in ticks, of the three parts of a day.
type DayPhases struct {
	Work int `json:"work" yaml:"work"`
	Misc int `json:"misc" yaml:"misc"`
	Home int `json:"home" yaml:"home"`
}

// Length is the number of ticks in a day.
func (d DayPhases) Length() int {
	return d.Work + d.Misc + d.Home
}

// Settings are the tunables read by generation and by every tick.
type Settings struct {
	World     world.GenConfig
	DayPhases DayPhases

	MiscChance        float64 // Chance to visit a misc building instead of going home
	InteractionChance float64 // Per-tick chance a contagious person contacts someone
	HospitalChance    float64 // Per-tick chance to seek admission in the hospital stage

	InitialInfected   int
	Infection         agents.InfectionLengths
	ImmunityDecayRate float64 // Immunity is multiplied by this every tick
}

// Config is a complete run description.
type Config struct {
	Seed             int64 // 0 = unseeded
	Population       int
	HospitalCapacity int
	SampleInterval   int // Ticks between census samples
	Settings         Settings
}

// DefaultSettings returns the stock tunables.
func DefaultSettings() Settings {
	return Settings{
		World:             world.DefaultGenConfig(),
		DayPhases:         DayPhases{Work: 40, Misc: 30, Home: 30},
		MiscChance:        0.5,
		InteractionChance: 0.01,
		HospitalChance:    0.01,
		InitialInfected:   10,
		Infection:         agents.InfectionLengths{Dormant: 200, Infectious: 200, Hospital: 200},
		ImmunityDecayRate: 0.9995,
	}
}

// Default returns a medium-sized town.
func Default() Config {
	return Config{
		Seed:             42,
		Population:       500,
		HospitalCapacity: 50,
		SampleInterval:   4,
		Settings:         DefaultSettings(),
	}
}

// Validate rejects configurations the engine cannot run. The returned
// error wraps ErrInvalid.
func (c Config) Validate() error {
	var errs []error
	if c.Population < 0 {
		errs = append(errs, fmt.Errorf("population %d is negative", c.Population))
	}
	if c.HospitalCapacity < 0 {
		errs = append(errs, fmt.Errorf("hospital capacity %d is negative", c.HospitalCapacity))
	}
	if c.SampleInterval < 1 {
		errs = append(errs, fmt.Errorf("sample interval %d must be at least 1", c.SampleInterval))
	}
	if c.Settings.InitialInfected > c.Population {
		errs = append(errs, fmt.Errorf("initial infected %d exceeds population %d",
			c.Settings.InitialInfected, c.Population))
	}
	if err := c.Settings.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// Validate checks the tunables on their own.
func (s Settings) Validate() error {
	var errs []error
	if err := s.World.Validate(); err != nil {
		errs = append(errs, err)
	}

	phases := []struct {
		name string
		n    int
	}{
		{"work", s.DayPhases.Work},
		{"misc", s.DayPhases.Misc},
		{"home", s.DayPhases.Home},
	}
	for _, ph := range phases {
		if ph.n < 1 {
			errs = append(errs, fmt.Errorf("%s phase length %d must be at least 1", ph.name, ph.n))
		}
	}

	probs := []struct {
		name string
		p    float64
	}{
		{"misc_chance", s.MiscChance},
		{"interaction_chance", s.InteractionChance},
		{"hospital_chance", s.HospitalChance},
		{"immunity_decay_rate", s.ImmunityDecayRate},
	}
	for _, pr := range probs {
		if pr.p < 0 || pr.p > 1 {
			errs = append(errs, fmt.Errorf("%s %v outside [0, 1]", pr.name, pr.p))
		}
	}

	stages := []struct {
		name string
		n    int
	}{
		{"dormant", s.Infection.Dormant},
		{"infectious", s.Infection.Infectious},
		{"hospital", s.Infection.Hospital},
	}
	for _, st := range stages {
		if st.n < 1 {
			errs = append(errs, fmt.Errorf("%s stage length %d must be at least 1", st.name, st.n))
		}
	}

	if s.InitialInfected < 0 {
		errs = append(errs, fmt.Errorf("initial infected %d is negative", s.InitialInfected))
	}
	return errors.Join(errs...)
}
