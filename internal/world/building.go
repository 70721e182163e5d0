package world

import (
	"fmt"
	"strings"

	"github.com/talgya/contagion/internal/entropy"
)

// BuildingID is a stable index into the map's building table.
type BuildingID uint32

// PersonID is a stable index into the simulation's people roster.
type PersonID uint32

// BuildingType classifies what a building is used for.
type BuildingType uint8

const (
	BuildingHouse    BuildingType = iota // Residents live here
	BuildingHospital                     // Treats people in the terminal stage
	BuildingWork                         // Workplaces
	BuildingMisc                         // Shops, venues, parks

	NumBuildingTypes = 4
)

// buildingTypeNames must carry one entry per BuildingType.
var buildingTypeNames = [NumBuildingTypes]string{
	BuildingHouse:    "house",
	BuildingHospital: "hospital",
	BuildingWork:     "work",
	BuildingMisc:     "misc",
}

// GenerationOrder is the order building types are laid down in.
var GenerationOrder = [NumBuildingTypes]BuildingType{
	BuildingMisc, BuildingHospital, BuildingWork, BuildingHouse,
}

// String returns the lower-case name of the type.
func (t BuildingType) String() string {
	if int(t) < len(buildingTypeNames) {
		return buildingTypeNames[t]
	}
	return fmt.Sprintf("BuildingType(%d)", t)
}

// Valid reports whether t is a known type.
func (t BuildingType) Valid() bool {
	return int(t) < NumBuildingTypes
}

// ParseBuildingType maps a name such as "house" back to its type.
func ParseBuildingType(name string) (BuildingType, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range buildingTypeNames {
		if n == name {
			return BuildingType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown building type %q", name)
}

// AllBuildingTypes lists every type in declaration order.
func AllBuildingTypes() []BuildingType {
	types := make([]BuildingType, NumBuildingTypes)
	for i := range types {
		types[i] = BuildingType(i)
	}
	return types
}

// Building is a capacity-bounded rectangular zone.
type Building struct {
	ID         BuildingID   `json:"id"`
	Type       BuildingType `json:"type"`
	Capacity   int          `json:"capacity"`
	Assigned   int          `json:"assigned"` // Planning-time reservations, independent of occupancy
	Position   Vec2         `json:"position"`
	Dimensions Vec2         `json:"dimensions"`

	occupants []PersonID
}

// NewBuilding creates an empty building.
func NewBuilding(id BuildingID, typ BuildingType, capacity int, position, dimensions Vec2) *Building {
	return &Building{
		ID:         id,
		Type:       typ,
		Capacity:   capacity,
		Position:   position,
		Dimensions: dimensions,
	}
}

// Occupants returns the people currently inside, in arrival order.
// The slice is owned by the building and must not be modified.
func (b *Building) Occupants() []PersonID {
	return b.occupants
}

// OccupantCount returns how many people are currently inside.
func (b *Building) OccupantCount() int {
	return len(b.occupants)
}

// HasRoom reports whether live occupancy is below capacity.
func (b *Building) HasRoom() bool {
	return b.Capacity > len(b.occupants)
}

// HasVacancy reports whether planning-time reservations are below capacity.
func (b *Building) HasVacancy() bool {
	return b.Capacity > b.Assigned
}

// AddOccupant records a person entering the building.
func (b *Building) AddOccupant(id PersonID) {
	b.occupants = append(b.occupants, id)
}

// RemoveOccupant records a person leaving. Removing someone who is not
// inside is a broken invariant and panics.
func (b *Building) RemoveOccupant(id PersonID) {
	for i, o := range b.occupants {
		if o == id {
			b.occupants = append(b.occupants[:i], b.occupants[i+1:]...)
			return
		}
	}
	panic(fmt.Sprintf("world: person %d is not in building %d", id, b.ID))
}

// Contains reports whether the person is currently inside.
func (b *Building) Contains(id PersonID) bool {
	for _, o := range b.occupants {
		if o == id {
			return true
		}
	}
	return false
}

// RandomPosition returns a uniformly random integer point inside the
// footprint, both edges inclusive.
func (b *Building) RandomPosition(rng entropy.Source) Vec2 {
	x := rng.IntRange(int(b.Position.X), int(b.Position.X+b.Dimensions.X))
	y := rng.IntRange(int(b.Position.Y), int(b.Position.Y+b.Dimensions.Y))
	return Vec2{X: float64(x), Y: float64(y)}
}
