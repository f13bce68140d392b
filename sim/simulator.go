package sim

import (
	"github.com/edaniels/golog"
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"github.com/mastline/loadclear/controller"
	"github.com/mastline/loadclear/geometry"
)

// Config parameterizes one simulated dock approach.
type Config struct {
	World   WorldSpec
	Vehicle VehicleSpec
	Rack    geometry.RackParams

	DT           float64
	ForwardSpeed float64

	StartS    float64
	StartLift float64
	// EndS stops the run once the mast passes this point inside the bay.
	EndS     float64
	MaxSteps int
}

// DefaultConfig starts the truck on the ground outside the ramp carrying a
// tall rack, and drives it 3 m into the bay.
func DefaultConfig() Config {
	return Config{
		World:   DefaultWorld(),
		Vehicle: DefaultVehicle(),
		Rack: geometry.RackParams{
			Height:      2.3,
			Length:      2.3,
			MountOffset: r2.Point{X: 0.25, Y: 0.05},
		},
		DT:           0.1,
		ForwardSpeed: 0.35,
		StartS:       -2.6,
		StartLift:    0.15,
		EndS:         3.0,
		MaxSteps:     6000,
	}
}

// ControllerConfig is the controller tuning used for dock approaches: a wide,
// fine search grid, generous actuation rates and a short lookahead.
func ControllerConfig() controller.Config {
	cfg := controller.DefaultConfig()
	cfg.WarnThreshold = 0.20
	cfg.SearchLiftHalfRange = 0.20
	cfg.SearchTiltHalfRange = 0.25
	cfg.GridLiftSteps = 41
	cfg.GridTiltSteps = 41
	cfg.Lookahead = 0.25
	cfg.BaseLiftRateLimit = 0.35
	cfg.BaseTiltRateLimit = 0.55
	return cfg
}

// Simulator advances a vehicle state under a controller's commands: the
// carriage follows targets rate-limited, and forward motion is capped by the
// commanded speed limit.
type Simulator struct {
	cfg    Config
	ctrl   controller.Controller
	logger golog.Logger

	time  float64
	s     float64
	pitch float64
	lift  float64
	tilt  float64
}

// New returns a simulator at the configured start state.
func New(cfg Config, ctrl controller.Controller, logger golog.Logger) *Simulator {
	return &Simulator{
		cfg:    cfg,
		ctrl:   ctrl,
		logger: logger,
		s:      cfg.StartS,
		lift:   cfg.StartLift,
	}
}

// Run steps the simulation to completion, invoking onFrame for every control
// cycle. It returns the number of cycles run.
func (sim *Simulator) Run(onFrame func(*controller.Frame) error) (int, error) {
	world := &sim.cfg.World
	veh := &sim.cfg.Vehicle
	env := world.Environment()

	steps := 0
	for ; steps < sim.cfg.MaxSteps; steps++ {
		pitch := world.PitchAt(veh, sim.s)
		pitchRate := (pitch - sim.pitch) / sim.cfg.DT

		in := controller.ControlInput{
			DT:        sim.cfg.DT,
			Pitch:     pitch,
			PitchRate: pitchRate,
			S:         sim.s,
			Terrain:   world.TerrainAt(veh, sim.s),
			LiftPos:   sim.lift,
			Tilt:      sim.tilt,
			Env:       env,
			Rack:      sim.cfg.Rack,
			Vehicle:   geometry.VehicleParams{MastPivotHeight: veh.MastPivotHeight},
			Valid:     true,
		}

		frame := sim.ctrl.Step(in)
		if onFrame != nil {
			if err := onFrame(&frame); err != nil {
				return steps, errors.Wrap(err, "frame sink failed")
			}
		}

		sim.actuate(&frame.Command)
		sim.time += sim.cfg.DT
		sim.pitch = pitch

		if sim.logger != nil && frame.Safety.Level == controller.SafetyStop {
			sim.logger.Debugw("halted by safety verdict",
				"t", sim.time, "s", sim.s, "message", frame.Safety.Message)
		}

		if sim.s > sim.cfg.EndS {
			steps++
			break
		}
	}
	return steps, nil
}

// actuate moves the carriage toward the commanded targets under the
// commanded rate limits and advances the vehicle at the slower of the base
// forward speed and the speed limit.
func (sim *Simulator) actuate(cmd *controller.ControlCommand) {
	dt := sim.cfg.DT
	sim.lift += clampStep(cmd.LiftTarget-sim.lift, cmd.LiftRateLimit*dt)
	sim.tilt += clampStep(cmd.TiltTarget-sim.tilt, cmd.TiltRateLimit*dt)

	speed := sim.cfg.ForwardSpeed
	if cmd.SpeedLimit < speed {
		speed = cmd.SpeedLimit
	}
	sim.s += speed * dt
}

func clampStep(err, maxStep float64) float64 {
	if err > maxStep {
		return maxStep
	}
	if err < -maxStep {
		return -maxStep
	}
	return err
}
