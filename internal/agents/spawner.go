// Population assignment: gives every person a home and a workplace with a
// free reservation and places them in their home.
package agents

import (
	"errors"
	"fmt"

	"github.com/talgya/contagion/internal/entropy"
	"github.com/talgya/contagion/internal/world"
)

var (
	// ErrNoHousing is returned when every house is fully reserved.
	ErrNoHousing = errors.New("no house with a free reservation")
	// ErrNoWorkplace is returned when every workplace is fully reserved.
	ErrNoWorkplace = errors.New("no workplace with a free reservation")
)

// Spawner creates people for a generated map.
type Spawner struct {
	rng    entropy.Source
	nextID world.PersonID
}

// NewSpawner creates a spawner drawing from rng.
func NewSpawner(rng entropy.Source) *Spawner {
	return &Spawner{rng: rng}
}

// SpawnPopulation creates count people. Each draws a uniformly random house
// and workplace among those with Assigned < Capacity and reserves a spot in
// both.
func (s *Spawner) SpawnPopulation(m *world.Map, count int) ([]*Person, error) {
	people := make([]*Person, 0, count)
	for i := 0; i < count; i++ {
		p, err := s.spawnOne(m)
		if err != nil {
			return nil, fmt.Errorf("person %d: %w", i, err)
		}
		people = append(people, p)
	}
	return people, nil
}

func (s *Spawner) spawnOne(m *world.Map) (*Person, error) {
	houses := m.Filter(world.BuildingHouse, (*world.Building).HasVacancy)
	if len(houses) == 0 {
		return nil, ErrNoHousing
	}
	home := m.Get(houses[entropy.Pick(s.rng, len(houses))])

	workplaces := m.Filter(world.BuildingWork, (*world.Building).HasVacancy)
	if len(workplaces) == 0 {
		return nil, ErrNoWorkplace
	}
	work := m.Get(workplaces[entropy.Pick(s.rng, len(workplaces))])

	home.Assigned++
	work.Assigned++

	id := s.nextID
	s.nextID++
	return NewPerson(id, home, work, s.rng), nil
}

// SeedInfections infects the first count people, starting them at the end
// of the dormant stage so they are contagious from the first tick.
func SeedInfections(people []*Person, count int, l InfectionLengths) {
	for i := 0; i < count && i < len(people); i++ {
		people[i].Infected = true
		people[i].InfectionProgress = l.Dormant
	}
}
