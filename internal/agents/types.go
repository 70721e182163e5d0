// Package agents provides the person data model, population assignment,
// and the per-person infection and movement rules.
package agents

import (
	"github.com/talgya/contagion/internal/entropy"
	"github.com/talgya/contagion/internal/world"
)

// Person is one member of the synthetic population.
type Person struct {
	ID world.PersonID `json:"id"`

	// Health
	Infected          bool    `json:"infected"`
	Alive             bool    `json:"alive"`
	BeingTreated      bool    `json:"being_treated"`
	Immunity          float64 `json:"immunity"`           // 0.0–1.0
	InfectionProgress int     `json:"infection_progress"` // Ticks into the infection

	// Affiliations (permanent) and current location
	Home    world.BuildingID `json:"home"`
	Work    world.BuildingID `json:"work"`
	Current world.BuildingID `json:"current"`

	// Smoothed position; converges on Target after each move
	Position world.Vec2 `json:"position"`
	Target   world.Vec2 `json:"target"`
}

// NewPerson creates a healthy person standing in their home.
func NewPerson(id world.PersonID, home, work *world.Building, rng entropy.Source) *Person {
	home.AddOccupant(id)
	pos := home.RandomPosition(rng)
	return &Person{
		ID:       id,
		Alive:    true,
		Home:     home.ID,
		Work:     work.ID,
		Current:  home.ID,
		Position: pos,
		Target:   pos,
	}
}

// Move relocates the person to target and picks a new spot inside it.
// Returns false when already there.
func (p *Person) Move(m *world.Map, target world.BuildingID, rng entropy.Source) bool {
	if target == p.Current {
		return false
	}
	dest := m.Get(target)
	m.Get(p.Current).RemoveOccupant(p.ID)
	dest.AddOccupant(p.ID)
	p.Current = target
	p.Target = dest.RandomPosition(rng)
	return true
}

// Die is terminal: the person leaves their building and stays in the roster.
func (p *Person) Die(m *world.Map) {
	if !p.Alive {
		return
	}
	m.Get(p.Current).RemoveOccupant(p.ID)
	p.Alive = false
}

// InfectionLengths are the durations, in progress ticks, of the three
// stages of an infection.
type InfectionLengths struct {
	Dormant    int `json:"dormant" yaml:"dormant"`
	Infectious int `json:"infectious" yaml:"infectious"`
	Hospital   int `json:"hospital" yaml:"hospital"`
}

// Total is the progress beyond which an untreated infection is fatal.
func (l InfectionLengths) Total() int {
	return l.Dormant + l.Infectious + l.Hospital
}

// HospitalOnset is the progress beyond which a person needs a hospital.
func (l InfectionLengths) HospitalOnset() int {
	return l.Dormant + l.Infectious
}

// Stage classifies where a person is in the course of an infection.
type Stage uint8

const (
	StageHealthy    Stage = iota
	StageDormant          // Infected but not contagious
	StageInfectious       // Spreads to others
	StageHospital         // Eligible for admission; fatal if untreated
	StageDead
)

var stageNames = [...]string{"healthy", "dormant", "infectious", "hospital", "dead"}

func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return "unknown"
}

// Stage reports the person's current stage.
func (p *Person) Stage(l InfectionLengths) Stage {
	switch {
	case !p.Alive:
		return StageDead
	case !p.Infected:
		return StageHealthy
	case p.InfectionProgress > l.HospitalOnset():
		return StageHospital
	case p.InfectionProgress > l.Dormant:
		return StageInfectious
	default:
		return StageDormant
	}
}
