// Package spatialmath provides the 2D math used by the clearance model: the
// world is the x-z side-view plane, points are golang/geo r2 points with Y
// carrying the vertical (z) coordinate, and rotations are about the y axis.
package spatialmath

import (
	"math"

	"github.com/golang/geo/r2"
)

// Rotation2D is a rotation in the x-z plane, precomputed as cos/sin so one
// rotation can be applied to all four rack corners without repeated trig.
type Rotation2D struct {
	cos, sin float64
}

// NewRotation2D returns the rotation by the given angle in radians.
func NewRotation2D(rad float64) Rotation2D {
	return Rotation2D{cos: math.Cos(rad), sin: math.Sin(rad)}
}

// Rotate applies the rotation to the given point.
func (r Rotation2D) Rotate(p r2.Point) r2.Point {
	return r2.Point{X: r.cos*p.X - r.sin*p.Y, Y: r.sin*p.X + r.cos*p.Y}
}
