// Package sim models a loading-dock world (ground, ramp, container bay) and
// drives a clearance controller through it with a rate-limited actuator
// model. It exists to produce realistic frame logs without hardware.
package sim

import (
	"math"

	"github.com/mastline/loadclear/controller"
	"github.com/mastline/loadclear/geometry"
)

// outdoorCeilingZ stands in for open sky outside the bay.
const outdoorCeilingZ = 100.0

// WorldSpec describes the dock layout along the drive axis. The container
// bay extends in +x from the door; the ramp descends outward from the door
// to ground level.
type WorldSpec struct {
	DoorX           float64
	ContainerLength float64
	ContainerHeight float64
	RampLength      float64
	RampSlopeDeg    float64
	GroundLength    float64
}

// DefaultWorld is a standard 8 m container behind a 2.5 m ramp at 4 degrees.
func DefaultWorld() WorldSpec {
	return WorldSpec{
		DoorX:           0,
		ContainerLength: 8.0,
		ContainerHeight: 2.5,
		RampLength:      2.5,
		RampSlopeDeg:    4.0,
		GroundLength:    4.0,
	}
}

func (w *WorldSpec) rampStartX() float64 {
	return w.DoorX - w.RampLength
}

func (w *WorldSpec) groundZ() float64 {
	return -math.Tan(w.RampSlopeDeg*math.Pi/180) * w.RampLength
}

// FloorAt returns the floor height at x: ground level outside, a linear ramp
// up to the door, and the container floor (z=0) inside and beyond.
func (w *WorldSpec) FloorAt(x float64) float64 {
	if x >= w.DoorX && x <= w.DoorX+w.ContainerLength {
		return 0
	}
	rampStart := w.rampStartX()
	if x <= rampStart {
		return w.groundZ()
	}
	if x < w.DoorX {
		t := (x - rampStart) / (w.DoorX - rampStart)
		return (1 - t) * w.groundZ()
	}
	// past the far end of the container
	return 0
}

// CeilingAt returns the container roof inside the bay and open sky outside.
func (w *WorldSpec) CeilingAt(x float64) float64 {
	if x >= w.DoorX && x <= w.DoorX+w.ContainerLength {
		return w.ContainerHeight
	}
	return outdoorCeilingZ
}

// Environment exposes the world to the controller as height functions.
func (w *WorldSpec) Environment() geometry.Environment {
	return geometry.Environment{
		CeilingZAtX: w.CeilingAt,
		FloorZAtX:   w.FloorAt,
	}
}

// VehicleSpec is the contact geometry used to derive pitch from the floor
// profile. The vehicle heads +x into the bay, so both axles trail the mast.
type VehicleSpec struct {
	Wheelbase       float64
	RearToMast      float64
	MastPivotHeight float64
}

// DefaultVehicle matches a compact counterbalance truck.
func DefaultVehicle() VehicleSpec {
	return VehicleSpec{
		Wheelbase:       2.0,
		RearToMast:      0.1,
		MastPivotHeight: 0.2,
	}
}

func (v *VehicleSpec) axles(mastX float64) (front, rear float64) {
	front = mastX - v.RearToMast
	return front, front - v.Wheelbase
}

// PitchAt derives vehicle pitch from the floor heights under the two axles.
// Climbing the ramp nose-first gives a positive pitch.
func (w *WorldSpec) PitchAt(veh *VehicleSpec, mastX float64) float64 {
	front, rear := veh.axles(mastX)
	return math.Atan2(w.FloorAt(front)-w.FloorAt(rear), front-rear)
}

// TerrainAt labels the vehicle's transit phase from the axle positions.
func (w *WorldSpec) TerrainAt(veh *VehicleSpec, mastX float64) controller.TerrainState {
	front, rear := veh.axles(mastX)
	rampStart := w.rampStartX()
	switch {
	case rear >= w.DoorX:
		return controller.TerrainInBay
	case front >= w.DoorX:
		return controller.TerrainFrontInBayRearOnRamp
	case rear >= rampStart:
		return controller.TerrainOnRamp
	case front >= rampStart:
		return controller.TerrainFrontOnRamp
	default:
		return controller.TerrainGround
	}
}
