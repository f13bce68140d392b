package framelog

import (
	"github.com/mastline/loadclear/controller"
	"github.com/mastline/loadclear/geometry"
)

// ReplayInput reconstructs the controller input a record was produced from.
// The environment is rebuilt as constant heights from the recorded ceiling
// and floor samples, so a replayed run sees a piecewise-constant version of
// the original world. dt is the caller's inter-record time delta; anything
// non-positive falls back to the controller's default period.
func ReplayInput(rec *Record, dt float64, rack geometry.RackParams, vehicle geometry.VehicleParams) controller.ControlInput {
	return controller.ControlInput{
		DT:        dt,
		Pitch:     rec.Pitch,
		PitchRate: rec.PitchRate,
		S:         rec.S,
		Terrain:   rec.TerrainState,
		LiftPos:   rec.Lift,
		Tilt:      rec.Tilt,
		Env:       geometry.ConstantEnvironment(rec.FloorZ, rec.CeilingZ),
		Rack:      rack,
		Vehicle:   vehicle,
		Valid:     true,
	}
}

// Replay feeds a recorded log back through ctrl and returns the frames it
// produces, one per record. Inter-record time deltas become the cycle dt.
func Replay(ctrl controller.Controller, recs []Record, rack geometry.RackParams, vehicle geometry.VehicleParams) []controller.Frame {
	frames := make([]controller.Frame, 0, len(recs))
	prevTime := 0.0
	for i := range recs {
		dt := recs[i].Time - prevTime
		prevTime = recs[i].Time
		frames = append(frames, ctrl.Step(ReplayInput(&recs[i], dt, rack, vehicle)))
	}
	return frames
}
