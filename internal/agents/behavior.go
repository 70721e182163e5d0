// Per-person infection rules. Every tick the simulation applies these to
// each living person in roster order.
package agents

import (
	"github.com/talgya/contagion/internal/entropy"
	"github.com/talgya/contagion/internal/world"
)

// SmoothingFactor is the fraction of the remaining distance to Target
// covered each tick.
const SmoothingFactor = 0.25

// Outcome is what progression did to a person this tick.
type Outcome uint8

const (
	OutcomeNone  Outcome = iota
	OutcomeCured         // Treatment brought progress back to zero
	OutcomeDied          // Untreated infection ran past its last stage
)

// Contagious reports whether the person can pass the infection on:
// past the dormant stage and not in treatment.
func (p *Person) Contagious(l InfectionLengths) bool {
	return !p.BeingTreated && p.InfectionProgress > l.Dormant
}

// NeedsHospital reports whether the person is in the hospital stage and
// not already being treated.
func (p *Person) NeedsHospital(l InfectionLengths) bool {
	return !p.BeingTreated && p.InfectionProgress > l.HospitalOnset()
}

// PickContact returns a uniformly random other occupant of the person's
// building. ok is false when they are alone.
func PickContact(p *Person, b *world.Building, rng entropy.Source) (id world.PersonID, ok bool) {
	occupants := b.Occupants()
	if len(occupants) < 2 {
		return 0, false
	}
	others := make([]world.PersonID, 0, len(occupants)-1)
	for _, o := range occupants {
		if o != p.ID {
			others = append(others, o)
		}
	}
	return others[entropy.Pick(rng, len(others))], true
}

// Expose infects the person with probability (1 - immunity)^2.
// A successful infection wipes their immunity.
func Expose(p *Person, rng entropy.Source) bool {
	resistance := 1 - p.Immunity
	if rng.Float() >= resistance*resistance {
		return false
	}
	p.Infected = true
	p.Immunity = 0
	return true
}

// Progress advances or reverses the infection by a fair coin step. Treated
// people recover one step at a time and are cured at exactly zero; infected
// people worsen and die once progress exceeds the total of all stages. The
// caller is responsible for removing the dead from their building.
func Progress(p *Person, l InfectionLengths, rng entropy.Source) Outcome {
	switch {
	case p.BeingTreated:
		p.InfectionProgress -= rng.IntRange(0, 1)
		if p.InfectionProgress == 0 {
			p.Infected = false
			p.Immunity = 1
			p.BeingTreated = false
			return OutcomeCured
		}
	case p.Infected:
		p.InfectionProgress += rng.IntRange(0, 1)
		if p.InfectionProgress > l.Total() {
			return OutcomeDied
		}
	}
	return OutcomeNone
}

// Admit moves the person into a hospital and starts treatment.
func Admit(p *Person, m *world.Map, hospital world.BuildingID, rng entropy.Source) {
	p.Move(m, hospital, rng)
	p.BeingTreated = true
}

// DecayImmunity multiplies immunity by rate.
func DecayImmunity(p *Person, rate float64) {
	p.Immunity *= rate
}

// Smooth moves the position a fixed fraction of the way to Target.
func Smooth(p *Person) {
	p.Position = world.Lerp(p.Position, p.Target, SmoothingFactor)
}
