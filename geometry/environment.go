// Package geometry models the side-view world the load moves through: the
// ceiling/floor height profiles, the kinematics placing the rack envelope,
// and the clearance evaluation between the two.
package geometry

import "math"

// Built-in surface heights used when an Environment leaves a surface
// unspecified. The default ceiling is far above anything a mast can reach.
const (
	DefaultCeilingZ = 10.0
	DefaultFloorZ   = 0.0
)

// planeEpsilon guards against planes that are numerically vertical and
// therefore cannot be evaluated as z(x).
const planeEpsilon = 1e-9

// HeightFunc returns a surface height at a longitudinal position x.
type HeightFunc func(x float64) float64

// Plane is the surface ax + by + cz + d = 0, evaluated at y = 0.
type Plane struct {
	A, B, C, D float64
}

// Valid reports whether the plane can be solved for z at a given x.
func (p Plane) Valid() bool {
	return isFinite(p.A) && isFinite(p.B) && isFinite(p.C) && isFinite(p.D) &&
		math.Abs(p.C) > planeEpsilon
}

// ZAtX solves the plane for z at the given x, with y = 0.
func (p Plane) ZAtX(x float64) float64 {
	return -(p.A*x + p.D) / p.C
}

// Environment describes the ceiling and floor height profiles. Each surface
// may be given as a position-dependent function, a plane, or a constant; the
// resolution order is function, then plane (if numerically valid), then
// constant, then the built-in default. An invalid plane is skipped rather
// than reported: height queries never fail.
type Environment struct {
	CeilingZ *float64
	FloorZ   *float64

	CeilingPlane *Plane
	FloorPlane   *Plane

	CeilingZAtX HeightFunc
	FloorZAtX   HeightFunc
}

// ConstantEnvironment returns an environment with flat floor and ceiling.
func ConstantEnvironment(floorZ, ceilingZ float64) Environment {
	return Environment{CeilingZ: &ceilingZ, FloorZ: &floorZ}
}

// CeilingAt resolves the ceiling height at x.
func (e *Environment) CeilingAt(x float64) float64 {
	if e.CeilingZAtX != nil {
		return e.CeilingZAtX(x)
	}
	if e.CeilingPlane != nil && e.CeilingPlane.Valid() {
		return e.CeilingPlane.ZAtX(x)
	}
	if e.CeilingZ != nil {
		return *e.CeilingZ
	}
	return DefaultCeilingZ
}

// FloorAt resolves the floor height at x.
func (e *Environment) FloorAt(x float64) float64 {
	if e.FloorZAtX != nil {
		return e.FloorZAtX(x)
	}
	if e.FloorPlane != nil && e.FloorPlane.Valid() {
		return e.FloorPlane.ZAtX(x)
	}
	if e.FloorZ != nil {
		return *e.FloorZ
	}
	return DefaultFloorZ
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
