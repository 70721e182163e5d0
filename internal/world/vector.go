// Package world provides the building table, 2D geometry, and procedural
// generation of a non-overlapping town layout.
package world

import (
	"fmt"
	"math"
)

// Vec2 is a 2D position or extent in world units. Treated as an immutable value.
type Vec2 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Zero is the origin.
var Zero = Vec2{}

// V is shorthand for Vec2{X: x, Y: y}.
func V(x, y float64) Vec2 {
	return Vec2{X: x, Y: y}
}

// Add returns v + o.
func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{X: v.X + o.X, Y: v.Y + o.Y}
}

// Sub returns v - o.
func (v Vec2) Sub(o Vec2) Vec2 {
	return Vec2{X: v.X - o.X, Y: v.Y - o.Y}
}

// Scale multiplies both components by f.
func (v Vec2) Scale(f float64) Vec2 {
	return Vec2{X: v.X * f, Y: v.Y * f}
}

// Mul multiplies component-wise.
func (v Vec2) Mul(o Vec2) Vec2 {
	return Vec2{X: v.X * o.X, Y: v.Y * o.Y}
}

// Length returns the Euclidean length.
func (v Vec2) Length() float64 {
	return math.Hypot(v.X, v.Y)
}

// Round rounds both components to the nearest integer.
func (v Vec2) Round() Vec2 {
	return Vec2{X: math.Round(v.X), Y: math.Round(v.Y)}
}

// String formats the vector as "(x, y)".
func (v Vec2) String() string {
	return fmt.Sprintf("(%g, %g)", v.X, v.Y)
}

// Lerp interpolates linearly: a + (b-a)*t.
func Lerp(a, b Vec2, t float64) Vec2 {
	return b.Sub(a).Scale(t).Add(a)
}

// Intersects reports whether two axis-aligned rectangles overlap.
// Rectangles that only share an edge do not overlap.
func Intersects(pos1, dim1, pos2, dim2 Vec2) bool {
	xOverlap := pos1.X < pos2.X+dim2.X && pos2.X < pos1.X+dim1.X
	yOverlap := pos1.Y < pos2.Y+dim2.Y && pos2.Y < pos1.Y+dim1.Y
	return xOverlap && yOverlap
}
