package geometry

import (
	"github.com/golang/geo/r2"

	"github.com/mastline/loadclear/spatialmath"
)

// CornerID indexes the four corners of the rack envelope. The order is load
// bearing: clearance evaluation, safety reporting and the log column layout
// all rely on it, and the integer values are part of the log contract.
type CornerID int

// The four corners, rear to front, bottom before top.
const (
	CornerRearBottom CornerID = iota
	CornerRearTop
	CornerFrontBottom
	CornerFrontTop
)

func (c CornerID) String() string {
	switch c {
	case CornerRearBottom:
		return "RearBottom"
	case CornerRearTop:
		return "RearTop"
	case CornerFrontBottom:
		return "FrontBottom"
	case CornerFrontTop:
		return "FrontTop"
	default:
		return "Unknown"
	}
}

// CornerPoints holds the four rack corners in CornerID order.
type CornerPoints [4]r2.Point

// RackParams is the rectangular envelope approximating the carried load.
type RackParams struct {
	Height float64
	Length float64

	// MountOffset is the vector from the fork pivot to the rack rear-bottom
	// corner, expressed in the rack frame at zero angles. It rotates with
	// the rack.
	MountOffset r2.Point
}

// VehicleParams is the static vehicle geometry the kinematics needs.
type VehicleParams struct {
	// MastPivotHeight is the tilt pivot height above the local floor at the
	// mast position, used to anchor the carriage pivot in the world frame.
	MastPivotHeight float64
}

// RackCorners places the rack envelope in the world frame.
//
// Kinematics contract (2D side view):
//   - s: mast base x in the world.
//   - pitch: chassis pitch; tilt: mast tilt relative to the chassis. The
//     total rack orientation is pitch + tilt.
//   - lift: carriage travel along the mast (+z in the rack frame), not
//     world z.
//
// The carriage pivot is mastBase + R(pitch+tilt)·(0, lift) where mastBase is
// (s, floorAt(s) + MastPivotHeight). Non-finite inputs propagate unchanged;
// validity is the caller's responsibility.
func RackCorners(s, lift, pitch, tilt float64, env Environment, rack RackParams, vehicle VehicleParams) CornerPoints {
	rot := spatialmath.NewRotation2D(pitch + tilt)

	mastBase := r2.Point{X: s, Y: env.FloorAt(s) + vehicle.MastPivotHeight}
	pivot := mastBase.Add(rot.Rotate(r2.Point{Y: lift}))

	rb := pivot.Add(rot.Rotate(rack.MountOffset))
	rt := rb.Add(rot.Rotate(r2.Point{Y: rack.Height}))
	fb := rb.Add(rot.Rotate(r2.Point{X: rack.Length}))
	ft := rb.Add(rot.Rotate(r2.Point{X: rack.Length, Y: rack.Height}))

	return CornerPoints{rb, rt, fb, ft}
}
