package world

import "fmt"

// Map owns every building. Buildings are addressed by BuildingID, which is
// their index in the flat table, and are never removed.
type Map struct {
	buildings []*Building
	byType    [NumBuildingTypes][]BuildingID
}

// NewMap creates an empty map.
func NewMap() *Map {
	return &Map{}
}

// Add places a new building and returns it. The caller supplies everything
// but the ID.
func (m *Map) Add(typ BuildingType, capacity int, position, dimensions Vec2) *Building {
	if !typ.Valid() {
		panic(fmt.Sprintf("world: invalid building type %d", typ))
	}
	id := BuildingID(len(m.buildings))
	b := NewBuilding(id, typ, capacity, position, dimensions)
	m.buildings = append(m.buildings, b)
	m.byType[typ] = append(m.byType[typ], id)
	return b
}

// Get returns the building with the given ID. Unknown IDs are a broken
// invariant and panic.
func (m *Map) Get(id BuildingID) *Building {
	if int(id) >= len(m.buildings) {
		panic(fmt.Sprintf("world: unknown building %d", id))
	}
	return m.buildings[id]
}

// All returns every building in creation order.
func (m *Map) All() []*Building {
	return m.buildings
}

// OfType returns the buildings of one type in creation order.
func (m *Map) OfType(typ BuildingType) []*Building {
	ids := m.byType[typ]
	out := make([]*Building, len(ids))
	for i, id := range ids {
		out[i] = m.buildings[id]
	}
	return out
}

// IDsOfType returns the IDs of the buildings of one type.
func (m *Map) IDsOfType(typ BuildingType) []BuildingID {
	return m.byType[typ]
}

// Count returns the number of buildings.
func (m *Map) Count() int {
	return len(m.buildings)
}

// CountOfType returns the number of buildings of one type.
func (m *Map) CountOfType(typ BuildingType) int {
	return len(m.byType[typ])
}

// TotalCapacity sums the capacity of one type.
func (m *Map) TotalCapacity(typ BuildingType) int {
	total := 0
	for _, id := range m.byType[typ] {
		total += m.buildings[id].Capacity
	}
	return total
}

// Filter returns the IDs of buildings of a type that satisfy keep.
func (m *Map) Filter(typ BuildingType, keep func(*Building) bool) []BuildingID {
	var out []BuildingID
	for _, id := range m.byType[typ] {
		if keep(m.buildings[id]) {
			out = append(out, id)
		}
	}
	return out
}

// String returns a summary of the map.
func (m *Map) String() string {
	return fmt.Sprintf("Map(buildings=%d, houses=%d, hospitals=%d, work=%d, misc=%d)",
		m.Count(),
		m.CountOfType(BuildingHouse), m.CountOfType(BuildingHospital),
		m.CountOfType(BuildingWork), m.CountOfType(BuildingMisc))
}
