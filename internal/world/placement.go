// Building placement: finds a free site for a new footprint next to the
// existing town.
package world

import (
	"errors"
	"fmt"

	"github.com/talgya/contagion/internal/entropy"
)

// ErrPlacementFailed is returned when no free site is found within the
// configured number of attempts.
var ErrPlacementFailed = errors.New("building placement failed")

// NewBuildingPosition picks a site for a footprint of the given dimensions.
// The first building goes at the origin. Later ones start from a random
// existing building and random-walk by up to one footprint per axis until
// the margin-expanded rectangle clears every other margin-expanded
// building.
func NewBuildingPosition(m *Map, cfg GenConfig, dims Vec2, rng entropy.Source) (Vec2, error) {
	buildings := m.All()
	if len(buildings) == 0 {
		return Zero, nil
	}

	anchor := buildings[entropy.Pick(rng, len(buildings))]
	pos := anchor.Position
	dx, dy := int(dims.X), int(dims.Y)

	for attempt := 0; attempt < cfg.MaxPlacementAttempts; attempt++ {
		pos = pos.Add(Vec2{
			X: float64(rng.IntRange(-dx, dx)),
			Y: float64(rng.IntRange(-dy, dy)),
		})
		if SiteClear(buildings, cfg.Margin, pos, dims) {
			return pos, nil
		}
	}
	return Zero, fmt.Errorf("%w: no site for %v footprint after %d attempts",
		ErrPlacementFailed, dims, cfg.MaxPlacementAttempts)
}

// SiteClear reports whether a footprint at pos, expanded by margin, stays
// clear of every building's margin-expanded footprint.
func SiteClear(buildings []*Building, margin, pos, dims Vec2) bool {
	cPos, cDim := expand(pos, dims, margin)
	for _, b := range buildings {
		bPos, bDim := expand(b.Position, b.Dimensions, margin)
		if Intersects(cPos, cDim, bPos, bDim) {
			return false
		}
	}
	return true
}

// Overlapping returns every pair of buildings whose margin-expanded
// footprints intersect. A well-formed map has none.
func Overlapping(m *Map, margin Vec2) [][2]BuildingID {
	var pairs [][2]BuildingID
	all := m.All()
	for i := 0; i < len(all); i++ {
		aPos, aDim := expand(all[i].Position, all[i].Dimensions, margin)
		for j := i + 1; j < len(all); j++ {
			bPos, bDim := expand(all[j].Position, all[j].Dimensions, margin)
			if Intersects(aPos, aDim, bPos, bDim) {
				pairs = append(pairs, [2]BuildingID{all[i].ID, all[j].ID})
			}
		}
	}
	return pairs
}

func expand(pos, dims, margin Vec2) (Vec2, Vec2) {
	return pos.Sub(margin), dims.Add(margin.Scale(2))
}
