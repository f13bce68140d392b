package framelog

import (
	"bytes"
	"strings"
	"testing"

	"go.viam.com/test"

	"github.com/mastline/loadclear/controller"
	"github.com/mastline/loadclear/geometry"
)

func sampleFrame() controller.Frame {
	return controller.Frame{
		Time: 0.125,
		Input: controller.ControlInput{
			DT:        0.02,
			Pitch:     -0.0625,
			PitchRate: 0.25,
			S:         1.5,
			Terrain:   controller.TerrainOnRamp,
			LiftPos:   0.5,
			Tilt:      -0.03125,
			Env:       geometry.ConstantEnvironment(0.25, 2.5),
			Rack:      geometry.RackParams{Height: 2.0, Length: 2.0},
			Valid:     true,
		},
		Command: controller.ControlCommand{
			LiftTarget:    0.53125,
			LiftRateLimit: 0.2,
			TiltTarget:    -0.03125,
			TiltRateLimit: 0.35,
			SpeedLimit:    0.75,
		},
		Safety: controller.SafetyStatus{
			Level:           controller.SafetyWarn,
			Code:            controller.CodeClearanceSoftNear,
			ClearanceTop:    0.09375,
			ClearanceBottom: 0.5,
			WorstCorner:     geometry.CornerFrontTop,
		},
		Corners: geometry.CornerPoints{
			{X: 1.5, Y: 0.75}, {X: 1.5, Y: 2.75},
			{X: 3.5, Y: 0.75}, {X: 3.5, Y: 2.75},
		},
		HadFeasibleSolution: true,
	}
}

func TestWriterHeaderContract(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	f := sampleFrame()
	test.That(t, w.WriteFrame(&f), test.ShouldBeNil)
	test.That(t, w.Close(), test.ShouldBeNil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	test.That(t, len(lines), test.ShouldEqual, 2)
	test.That(t, lines[0], test.ShouldEqual, strings.Join(Columns, ","))

	// Fixed 6-decimal formatting, no scientific notation.
	test.That(t, strings.HasPrefix(lines[1], "0.125000,1.500000,-0.062500,"), test.ShouldBeTrue)
	test.That(t, strings.HasSuffix(lines[1], ",1,2,3"), test.ShouldBeTrue)
}

func TestWriteReadRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	f := sampleFrame()
	test.That(t, w.WriteFrame(&f), test.ShouldBeNil)
	f.Time = 0.25
	f.Input.S = 1.75
	test.That(t, w.WriteFrame(&f), test.ShouldBeNil)
	test.That(t, w.Close(), test.ShouldBeNil)

	recs, err := ReadAll(&buf)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(recs), test.ShouldEqual, 2)

	r := recs[0]
	test.That(t, r.Time, test.ShouldEqual, 0.125)
	test.That(t, r.S, test.ShouldEqual, 1.5)
	test.That(t, r.Pitch, test.ShouldEqual, -0.0625)
	test.That(t, r.Lift, test.ShouldEqual, 0.5)
	test.That(t, r.CeilingZ, test.ShouldEqual, 2.5)
	test.That(t, r.FloorZ, test.ShouldEqual, 0.25)
	test.That(t, r.Corners, test.ShouldResemble, sampleFrame().Corners)
	test.That(t, r.ClearanceTop, test.ShouldEqual, 0.09375)
	test.That(t, r.LiftCmd, test.ShouldEqual, 0.53125)
	test.That(t, r.SpeedLimit, test.ShouldEqual, 0.75)
	test.That(t, r.SafetyLevel, test.ShouldEqual, controller.SafetyWarn)
	test.That(t, r.TerrainState, test.ShouldEqual, controller.TerrainOnRamp)
	test.That(t, r.WorstCorner, test.ShouldEqual, geometry.CornerFrontTop)
	test.That(t, recs[1].Time, test.ShouldEqual, 0.25)
}

func TestReadRejectsBadHeader(t *testing.T) {
	_, err := ReadAll(strings.NewReader("time,s,pitch\n"))
	test.That(t, err, test.ShouldNotBeNil)

	mangled := strings.Join(Columns, ",")
	mangled = strings.Replace(mangled, "ceiling_z", "ceiling", 1)
	_, err = ReadAll(strings.NewReader(mangled + "\n"))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "ceiling_z")
}

func TestReplayReproducesDecisions(t *testing.T) {
	rack := geometry.RackParams{Height: 2.3, Length: 2.3}
	var vehicle geometry.VehicleParams

	cfg := controller.DefaultConfig()
	cfg.MarginTop = 0.05
	cfg.MarginBottom = 0.05
	live := controller.NewGridSearch(cfg, nil)

	var buf bytes.Buffer
	w := NewWriter(&buf)
	for i := 0; i < 5; i++ {
		in := controller.ControlInput{
			DT:      0.02,
			S:       float64(i) * 0.01,
			LiftPos: 0.10,
			Env:     geometry.ConstantEnvironment(0, 2.5),
			Rack:    rack,
			Valid:   true,
		}
		f := live.Step(in)
		test.That(t, w.WriteFrame(&f), test.ShouldBeNil)
	}
	test.That(t, w.Close(), test.ShouldBeNil)

	recs, err := ReadAll(&buf)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(recs), test.ShouldEqual, 5)

	replayed := Replay(controller.NewGridSearch(cfg, nil), recs, rack, vehicle)
	test.That(t, len(replayed), test.ShouldEqual, 5)
	for i, f := range replayed {
		// The constant-height world round-trips exactly, so the replayed
		// controller lands on the same commands and verdicts.
		test.That(t, f.Command.LiftTarget, test.ShouldAlmostEqual, recs[i].LiftCmd, 1e-6)
		test.That(t, f.Command.SpeedLimit, test.ShouldAlmostEqual, recs[i].SpeedLimit, 1e-6)
		test.That(t, f.Safety.Level, test.ShouldEqual, recs[i].SafetyLevel)
	}
}
