package controller

import (
	"math"
	"testing"

	"go.viam.com/test"

	"github.com/mastline/loadclear/geometry"
)

// ampleInput is the enclosed-bay scenario with room to spare: rack 2.3 under
// a 2.5 ceiling with the carriage low.
func ampleInput() ControlInput {
	return ControlInput{
		DT:      0.02,
		S:       0,
		Terrain: TerrainInBay,
		LiftPos: 0.10,
		Tilt:    0,
		Env:     geometry.ConstantEnvironment(0, 2.5),
		Rack:    geometry.RackParams{Height: 2.3, Length: 2.3},
		Valid:   true,
	}
}

func ampleConfig() Config {
	cfg := DefaultConfig()
	cfg.MarginTop = 0.05
	cfg.MarginBottom = 0.05
	cfg.SearchLiftHalfRange = 0.2
	cfg.SearchTiltHalfRange = 0.15
	return cfg
}

func TestGridFindsFeasibleTarget(t *testing.T) {
	ctrl := NewGridSearch(ampleConfig(), nil)

	f := ctrl.Step(ampleInput())
	test.That(t, f.HadFeasibleSolution, test.ShouldBeTrue)
	test.That(t, f.Safety.Level, test.ShouldNotEqual, SafetyStop)
	test.That(t, f.Safety.Level, test.ShouldNotEqual, SafetyDegraded)

	// The chosen target stays inside the search neighborhood.
	test.That(t, math.Abs(f.Command.LiftTarget-0.10), test.ShouldBeLessThanOrEqualTo, 0.2)
	test.That(t, math.Abs(f.Command.TiltTarget), test.ShouldBeLessThanOrEqualTo, 0.15)
	test.That(t, f.Command.SpeedLimit, test.ShouldBeGreaterThan, 0)
}

func TestGridDegradedOnInvalidInput(t *testing.T) {
	ctrl := NewGridSearch(DefaultConfig(), nil)

	in := ampleInput()
	in.Valid = false
	f := ctrl.Step(in)
	test.That(t, f.Safety.Level, test.ShouldEqual, SafetyDegraded)
	test.That(t, f.Safety.Code, test.ShouldEqual, CodeInputInvalid)

	in = ampleInput()
	in.Pitch = math.NaN()
	f = ctrl.Step(in)
	test.That(t, f.Safety.Level, test.ShouldEqual, SafetyDegraded)
	test.That(t, f.Safety.Code, test.ShouldEqual, CodeInputInvalid)

	in = ampleInput()
	in.DT = 0
	f = ctrl.Step(in)
	test.That(t, f.Safety.Level, test.ShouldEqual, SafetyDegraded)
	test.That(t, f.Safety.Code, test.ShouldEqual, CodeInputInvalid)
}

func TestGridDegradedTimeFallback(t *testing.T) {
	ctrl := NewGridSearch(DefaultConfig(), nil)

	in := ampleInput()
	in.DT = 0
	f := ctrl.Step(in)

	// An unusable dt still advances elapsed time by the default period,
	// and a command is still produced.
	test.That(t, f.Time, test.ShouldAlmostEqual, defaultDT)
	test.That(t, f.Command.LiftRateLimit, test.ShouldBeGreaterThan, 0)
}

func TestGridDegradedOnPitchJitter(t *testing.T) {
	cfg := ampleConfig()
	ctrl := NewGridSearch(cfg, nil)

	in := ampleInput()
	in.PitchRate = cfg.PitchRateJitterThreshold * 2
	f := ctrl.Step(in)

	test.That(t, f.Safety.Level, test.ShouldEqual, SafetyDegraded)
	test.That(t, f.Safety.Code, test.ShouldEqual, CodePitchJitter)

	// Degraded multipliers scale the commanded rate limits.
	test.That(t, f.Command.LiftRateLimit, test.ShouldAlmostEqual, cfg.BaseLiftRateLimit*cfg.DegradedRateMult)
	test.That(t, f.Command.TiltRateLimit, test.ShouldAlmostEqual, cfg.BaseTiltRateLimit*cfg.DegradedRateMult)
}

func TestGridNoFeasibleFallback(t *testing.T) {
	cfg := ampleConfig()
	ctrl := NewGridSearch(cfg, nil)

	// The bay is shorter than the rack: nothing in the neighborhood can
	// ever be feasible.
	in := ampleInput()
	in.Env = geometry.ConstantEnvironment(0, 2.0)

	f := ctrl.Step(in)
	test.That(t, f.HadFeasibleSolution, test.ShouldBeFalse)
	test.That(t, f.Safety.Code, test.ShouldEqual, CodeNoFeasibleSolution)
	test.That(t, f.Safety.Level, test.ShouldEqual, SafetyStop)
	test.That(t, f.Command.SpeedLimit, test.ShouldEqual, 0)
	test.That(t, f.SelectedCost, test.ShouldEqual, 0)

	// Best effort: the fallback pushes the lift down toward the largest
	// min clearance available.
	test.That(t, f.Command.LiftTarget, test.ShouldBeLessThan, in.LiftPos)
}

func TestGridLookaheadConstrains(t *testing.T) {
	ceilingAt := func(x float64) float64 {
		if x < 4.0 {
			return 3.0
		}
		return 2.0
	}

	in := ampleInput()
	in.Env = geometry.Environment{
		FloorZ:      new(float64),
		CeilingZAtX: ceilingAt,
	}
	in.Rack.Length = 0.5
	in.LiftPos = 0.3 // centered under the 3.0 ceiling

	cfg := ampleConfig()
	ctrl := NewGridSearch(cfg, nil)
	f := ctrl.Step(in)
	test.That(t, f.HadFeasibleSolution, test.ShouldBeTrue)
	test.That(t, f.Safety.Level, test.ShouldEqual, SafetyOK)

	// With lookahead reaching past the drop, the working clearance is the
	// pointwise worse of now and ahead, and the low ceiling wins.
	cfg.Lookahead = 5.0
	ctrl = NewGridSearch(cfg, nil)
	f = ctrl.Step(in)
	test.That(t, f.Safety.ClearanceTop, test.ShouldBeLessThan, 0)
	test.That(t, f.Safety.Level, test.ShouldEqual, SafetyStop)
}

func TestGridResetEquivalence(t *testing.T) {
	fresh := NewGridSearch(ampleConfig(), nil)
	used := NewGridSearch(ampleConfig(), nil)

	in := ampleInput()
	used.Step(in)
	in2 := in
	in2.LiftPos = 0.15
	used.Step(in2)
	used.Reset()

	a := fresh.Step(in)
	b := used.Step(in)
	test.That(t, b, test.ShouldResemble, a)
}

func TestGridSpeedPolicy(t *testing.T) {
	cfg := ampleConfig()
	cfg.WarnThreshold = 0.12
	ctrl := NewGridSearch(cfg, nil)

	f := ctrl.Step(ampleInput())

	// min working clearance is 0.05 on each side; speed scales by
	// minClear/warnThreshold.
	test.That(t, f.Command.SpeedLimit, test.ShouldAlmostEqual, cfg.BaseSpeedLimit*(0.05/0.12), 1e-9)

	// High (but sub-jitter) pitch rate caps the speed via the pitch-rate
	// factor floor of 0.2.
	in := ampleInput()
	in.Env = geometry.ConstantEnvironment(0, 5.0)
	in.PitchRate = cfg.PitchRateJitterThreshold * 0.99
	f = ctrl.Step(in)
	test.That(t, f.Safety.Level, test.ShouldNotEqual, SafetyDegraded)
	test.That(t, f.Command.SpeedLimit, test.ShouldBeLessThanOrEqualTo, cfg.BaseSpeedLimit*0.51)
	test.That(t, f.Command.SpeedLimit, test.ShouldBeGreaterThan, 0)
}

func TestGridConfigMutationBetweenCycles(t *testing.T) {
	ctrl := NewGridSearch(ampleConfig(), nil)

	in := ampleInput()
	f := ctrl.Step(in)
	test.That(t, f.Safety.Level, test.ShouldEqual, SafetyWarn)

	// Tightening the warn threshold takes effect on the next cycle.
	ctrl.Config().WarnThreshold = 0.01
	f = ctrl.Step(in)
	test.That(t, f.Safety.Level, test.ShouldEqual, SafetyOK)
}
