package world

import (
	"errors"
	"math"
	"testing"

	"github.com/talgya/contagion/internal/entropy"
)

func TestVecArithmetic(t *testing.T) {
	a := V(1, 2)
	b := V(4, 6)

	if got := a.Add(b); got != V(5, 8) {
		t.Errorf("Add = %v, want (5, 8)", got)
	}
	if got := b.Sub(a); got != V(3, 4) {
		t.Errorf("Sub = %v, want (3, 4)", got)
	}
	if got := a.Scale(3); got != V(3, 6) {
		t.Errorf("Scale = %v, want (3, 6)", got)
	}
	if got := a.Mul(b); got != V(4, 12) {
		t.Errorf("Mul = %v, want (4, 12)", got)
	}
	if got := b.Sub(a).Length(); got != 5 {
		t.Errorf("Length = %v, want 5", got)
	}
	if Zero != V(0, 0) {
		t.Errorf("Zero = %v", Zero)
	}
}

func TestLerp(t *testing.T) {
	a := V(0, 0)
	b := V(8, -4)
	tests := []struct {
		t    float64
		want Vec2
	}{
		{0, V(0, 0)},
		{0.25, V(2, -1)},
		{1, V(8, -4)},
	}
	for _, tt := range tests {
		if got := Lerp(a, b, tt.t); got != tt.want {
			t.Errorf("Lerp(t=%v) = %v, want %v", tt.t, got, tt.want)
		}
	}
}

func TestIntersects(t *testing.T) {
	tests := []struct {
		name                   string
		pos1, dim1, pos2, dim2 Vec2
		want                   bool
	}{
		{"disjoint", V(0, 0), V(10, 10), V(20, 0), V(5, 5), false},
		{"overlap", V(0, 0), V(10, 10), V(5, 5), V(10, 10), true},
		{"contained", V(0, 0), V(10, 10), V(2, 2), V(1, 1), true},
		{"touching edge", V(0, 0), V(10, 10), V(10, 0), V(5, 5), false},
		{"x only", V(0, 0), V(10, 10), V(5, 20), V(5, 5), false},
		{"reversed order", V(5, 5), V(10, 10), V(0, 0), V(10, 10), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Intersects(tt.pos1, tt.dim1, tt.pos2, tt.dim2); got != tt.want {
				t.Errorf("Intersects = %v, want %v", got, tt.want)
			}
			if got := Intersects(tt.pos2, tt.dim2, tt.pos1, tt.dim1); got != tt.want {
				t.Errorf("Intersects (swapped) = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuildingTypeNames(t *testing.T) {
	for _, typ := range AllBuildingTypes() {
		name := typ.String()
		if name == "" {
			t.Fatalf("type %d has no name", typ)
		}
		back, err := ParseBuildingType(name)
		if err != nil || back != typ {
			t.Errorf("ParseBuildingType(%q) = %v, %v; want %v", name, back, err, typ)
		}
	}
	if _, err := ParseBuildingType("castle"); err == nil {
		t.Error("ParseBuildingType(castle) succeeded")
	}
}

func TestRandomPositionInclusive(t *testing.T) {
	b := NewBuilding(0, BuildingHouse, 4, V(10, -5), V(2, 3))
	rng := entropy.NewSeeded(11)

	var sawMinX, sawMaxX, sawMinY, sawMaxY bool
	for i := 0; i < 500; i++ {
		p := b.RandomPosition(rng)
		if p.X < 10 || p.X > 12 || p.Y < -5 || p.Y > -2 {
			t.Fatalf("RandomPosition = %v, outside footprint", p)
		}
		if p.X != math.Trunc(p.X) || p.Y != math.Trunc(p.Y) {
			t.Fatalf("RandomPosition = %v, not integer-valued", p)
		}
		sawMinX = sawMinX || p.X == 10
		sawMaxX = sawMaxX || p.X == 12
		sawMinY = sawMinY || p.Y == -5
		sawMaxY = sawMaxY || p.Y == -2
	}
	if !sawMinX || !sawMaxX || !sawMinY || !sawMaxY {
		t.Error("RandomPosition never reached a footprint edge")
	}
}

func TestOccupants(t *testing.T) {
	b := NewBuilding(0, BuildingHospital, 2, Zero, V(10, 10))
	if !b.HasRoom() {
		t.Fatal("empty hospital has no room")
	}
	b.AddOccupant(1)
	b.AddOccupant(2)
	if b.HasRoom() {
		t.Error("full hospital reports room")
	}
	b.RemoveOccupant(1)
	if b.Contains(1) || !b.Contains(2) || b.OccupantCount() != 1 {
		t.Errorf("occupants after removal = %v", b.Occupants())
	}

	defer func() {
		if recover() == nil {
			t.Error("removing an absent occupant did not panic")
		}
	}()
	b.RemoveOccupant(7)
}

func TestAddBuildingsCapacitySum(t *testing.T) {
	cfg := DefaultGenConfig()
	for _, typ := range AllBuildingTypes() {
		for _, target := range []int{0, 1, 5, 37, 200} {
			m := NewMap()
			rng := entropy.NewSeeded(int64(target) + 100*int64(typ))
			if err := AddBuildings(m, cfg, typ, target, rng); err != nil {
				t.Fatalf("AddBuildings(%s, %d): %v", typ, target, err)
			}

			r := cfg.Capacities[typ]
			buildings := m.OfType(typ)
			sum := 0
			for i, b := range buildings {
				sum += b.Capacity
				if b.Capacity < r.Min {
					t.Errorf("%s #%d capacity %d below min %d", typ, i, b.Capacity, r.Min)
				}
				if i < len(buildings)-1 && b.Capacity > r.Max {
					t.Errorf("%s #%d capacity %d above max %d", typ, i, b.Capacity, r.Max)
				}
			}
			if sum < target {
				t.Errorf("%s target %d: capacity sum %d falls short", typ, target, sum)
			}
			if target == 0 && len(buildings) != 0 {
				t.Errorf("%s target 0 produced %d buildings", typ, len(buildings))
			}
		}
	}
}

func TestFootprintScalesWithCapacity(t *testing.T) {
	cfg := DefaultGenConfig()
	m := NewMap()
	if err := AddBuildings(m, cfg, BuildingHouse, 300, entropy.NewSeeded(5)); err != nil {
		t.Fatal(err)
	}
	size := cfg.Sizes[BuildingHouse]
	maxCap := float64(cfg.Capacities[BuildingHouse].Max)
	for _, b := range m.All() {
		scale := float64(b.Capacity) / maxCap
		lo := math.Round(float64(size.Min) * scale)
		hi := math.Round(float64(size.Max) * scale)
		for _, d := range []float64{b.Dimensions.X, b.Dimensions.Y} {
			if d < lo || d > hi || d != math.Trunc(d) {
				t.Errorf("building %d capacity %d: side %v outside [%v, %v]", b.ID, b.Capacity, d, lo, hi)
			}
		}
	}
}

func TestGenerateNonOverlapping(t *testing.T) {
	cfg := DefaultGenConfig()
	for seed := int64(1); seed <= 5; seed++ {
		m, err := Generate(cfg, TargetsFor(150, 40), entropy.NewSeeded(seed))
		if err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}
		if pairs := Overlapping(m, cfg.Margin); len(pairs) > 0 {
			t.Errorf("seed %d: %d overlapping pairs, first %v", seed, len(pairs), pairs[0])
		}
		if m.TotalCapacity(BuildingHospital) < 40 {
			t.Errorf("seed %d: hospital capacity %d < 40", seed, m.TotalCapacity(BuildingHospital))
		}
	}
}

func TestGenerateOrderAndOrigin(t *testing.T) {
	m, err := Generate(DefaultGenConfig(), TargetsFor(20, 10), entropy.NewSeeded(9))
	if err != nil {
		t.Fatal(err)
	}
	all := m.All()
	if all[0].Type != BuildingMisc {
		t.Errorf("first building is %s, want misc", all[0].Type)
	}
	if all[0].Position != Zero {
		t.Errorf("first building at %v, want origin", all[0].Position)
	}
	if last := all[len(all)-1]; last.Type != BuildingHouse {
		t.Errorf("last building is %s, want house", last.Type)
	}
	for i, b := range all {
		if int(b.ID) != i {
			t.Errorf("building %d has ID %d", i, b.ID)
		}
	}
}

func TestPlacementFailure(t *testing.T) {
	cfg := DefaultGenConfig()
	cfg.MaxPlacementAttempts = 3

	m := NewMap()
	m.Add(BuildingHouse, 2, Zero, V(10, 10))

	// A zero footprint never moves off the anchor, so every attempt collides.
	_, err := NewBuildingPosition(m, cfg, Zero, entropy.NewSeeded(1))
	if !errors.Is(err, ErrPlacementFailed) {
		t.Fatalf("err = %v, want ErrPlacementFailed", err)
	}
}

func TestGenConfigValidate(t *testing.T) {
	if err := DefaultGenConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	bad := DefaultGenConfig()
	bad.Capacities[BuildingWork] = Range{Min: 10, Max: 5}
	if err := bad.Validate(); err == nil {
		t.Error("inverted capacity range accepted")
	}

	bad = DefaultGenConfig()
	bad.Capacities[BuildingMisc] = Range{}
	if err := bad.Validate(); err == nil {
		t.Error("missing misc capacity entry accepted")
	}

	bad = DefaultGenConfig()
	bad.MaxPlacementAttempts = 0
	if err := bad.Validate(); err == nil {
		t.Error("zero placement attempts accepted")
	}
}

func TestGenConfigRejectsVanishingFootprints(t *testing.T) {
	tests := []struct {
		name  string
		cap   Range
		size  Range
		valid bool
	}{
		{"unit house", Range{Min: 2, Max: 6}, Range{Min: 1, Max: 1}, false},
		{"rounds to zero", Range{Min: 1, Max: 10}, Range{Min: 4, Max: 8}, false},
		{"rounds up to one", Range{Min: 1, Max: 10}, Range{Min: 5, Max: 8}, true},
		{"fixed capacity", Range{Min: 6, Max: 6}, Range{Min: 1, Max: 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultGenConfig()
			cfg.Capacities[BuildingHouse] = tt.cap
			cfg.Sizes[BuildingHouse] = tt.size
			err := cfg.Validate()
			if tt.valid && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tt.valid && err == nil {
				t.Error("Validate() accepted a footprint that scales below one unit")
			}
		})
	}

	// Rejected configs fail before any placement is attempted.
	cfg := DefaultGenConfig()
	cfg.Sizes[BuildingHouse] = Range{Min: 1, Max: 1}
	if _, err := Generate(cfg, TargetsFor(10, 10), entropy.NewSeeded(1)); err == nil || errors.Is(err, ErrPlacementFailed) {
		t.Errorf("Generate err = %v, want a validation error", err)
	}
}
