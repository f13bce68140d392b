// Package controller computes, once per control cycle, safe lift/tilt targets
// and a forward speed limit for a load-carrying vehicle moving under a
// varying ceiling and over a varying floor. Two interchangeable search
// strategies are provided: a reactive local grid search and a short-horizon
// predictive beam search. Both share the clearance model, the degraded-mode
// policy and the safety classification.
package controller

import "github.com/mastline/loadclear/geometry"

// TerrainState is a discrete label of where the vehicle stands relative to
// the ramp and the enclosed bay. Diagnostic only; the search never uses it.
// The integer values are part of the log contract.
type TerrainState int

// Terrain labels, outside to inside.
const (
	TerrainGround TerrainState = iota
	TerrainFrontOnRamp
	TerrainOnRamp
	TerrainFrontInBayRearOnRamp
	TerrainInBay
)

func (s TerrainState) String() string {
	switch s {
	case TerrainGround:
		return "Ground"
	case TerrainFrontOnRamp:
		return "FrontOnRamp"
	case TerrainOnRamp:
		return "OnRamp"
	case TerrainFrontInBayRearOnRamp:
		return "FrontInBayRearOnRamp"
	case TerrainInBay:
		return "InBay"
	default:
		return "Unknown"
	}
}

// SafetyLevel classifies a cycle for the supervising system. OK, WARN and
// STOP form an ordered scale driven by clearance; DEGRADED is an orthogonal
// condition triggered by unreliable inputs and overrides the scale for the
// cycle. The integer values are part of the log contract.
type SafetyLevel int

// Safety levels.
const (
	SafetyOK SafetyLevel = iota
	SafetyWarn
	SafetyStop
	SafetyDegraded
)

func (l SafetyLevel) String() string {
	switch l {
	case SafetyOK:
		return "OK"
	case SafetyWarn:
		return "WARN"
	case SafetyStop:
		return "STOP"
	case SafetyDegraded:
		return "DEGRADED"
	default:
		return "Unknown"
	}
}

// SafetyCode is the diagnostic attached to a safety status. A code may ride
// on any level without changing it.
type SafetyCode int

// Diagnostic codes.
const (
	CodeNone SafetyCode = iota
	CodeClearanceHardViolated
	CodeClearanceSoftNear
	CodeInputInvalid
	CodePitchJitter
	CodeNoFeasibleSolution
)

func (c SafetyCode) String() string {
	switch c {
	case CodeNone:
		return "None"
	case CodeClearanceHardViolated:
		return "ClearanceHardViolated"
	case CodeClearanceSoftNear:
		return "ClearanceSoftNear"
	case CodeInputInvalid:
		return "InputInvalid"
	case CodePitchJitter:
		return "PitchJitter"
	case CodeNoFeasibleSolution:
		return "NoFeasibleSolution"
	default:
		return "Unknown"
	}
}

// ControlInput is the per-cycle snapshot fed to Step. It is treated as
// immutable for the duration of the call.
type ControlInput struct {
	// DT is the control period in seconds.
	DT float64

	Pitch     float64
	PitchRate float64

	// S is the longitudinal mast position in the world.
	S       float64
	Terrain TerrainState

	LiftPos float64
	Tilt    float64

	Env     geometry.Environment
	Rack    geometry.RackParams
	Vehicle geometry.VehicleParams

	// Valid false forces the cycle into DEGRADED.
	Valid bool
}

// ControlCommand is the only externally actionable output: actuator targets
// with their rate limits, and the forward speed limit.
type ControlCommand struct {
	LiftTarget    float64
	LiftRateLimit float64

	TiltTarget    float64
	TiltRateLimit float64

	SpeedLimit float64
}

// SafetyStatus is the per-cycle classification handed to the supervisor.
type SafetyStatus struct {
	Level   SafetyLevel
	Code    SafetyCode
	Message string

	ClearanceTop    float64
	ClearanceBottom float64
	WorstCorner     geometry.CornerID
}

// Frame is the full output record of one cycle.
type Frame struct {
	Time float64

	Input   ControlInput
	Command ControlCommand
	Safety  SafetyStatus

	Corners geometry.CornerPoints

	SelectedCost        float64
	HadFeasibleSolution bool
}

// Config holds every tunable of both strategies. It is read at the start of
// each Step call, so mutation between cycles takes effect on the next one.
type Config struct {
	// Margins and thresholds.
	MarginTop     float64
	MarginBottom  float64
	WarnThreshold float64
	HardThreshold float64

	// Local search neighborhood, shared by the grid strategy and the
	// fallback search of the beam strategy.
	SearchLiftHalfRange float64
	SearchTiltHalfRange float64
	GridLiftSteps       int
	GridTiltSteps       int

	// Lookahead evaluates clearance also at s + Lookahead and constrains
	// and classifies against the worst case over {now, ahead}. Helps avoid
	// stalling at the doorway.
	Lookahead float64

	// Cost weights.
	WCenter    float64
	WDeltaLift float64
	WDeltaTilt float64
	WSmooth    float64

	// Base limits.
	BaseLiftRateLimit float64
	BaseTiltRateLimit float64
	BaseSpeedLimit    float64

	// MinSpeedLimit lets the vehicle creep forward when geometrically
	// feasible but tight. Applied after degraded and pitch-rate factors.
	MinSpeedLimit float64

	// PitchRateJitterThreshold above which the cycle degrades.
	PitchRateJitterThreshold float64

	// Degraded multipliers.
	DegradedMarginMult float64
	DegradedRateMult   float64
	DegradedSpeedMult  float64

	// Predictive (beam) strategy only.
	Horizon             int
	BeamWidth           int
	AssumedForwardSpeed float64
	PredictPitchRate    bool
}

// DefaultConfig returns the tuning used when nothing else is specified.
func DefaultConfig() Config {
	return Config{
		MarginTop:     0.08,
		MarginBottom:  0.08,
		WarnThreshold: 0.12,
		HardThreshold: 0.00,

		SearchLiftHalfRange: 0.12,
		SearchTiltHalfRange: 0.10,
		GridLiftSteps:       9,
		GridTiltSteps:       9,

		Lookahead: 0.0,

		WCenter:    8.0,
		WDeltaLift: 2.0,
		WDeltaTilt: 2.0,
		WSmooth:    0.6,

		BaseLiftRateLimit: 0.20,
		BaseTiltRateLimit: 0.35,
		BaseSpeedLimit:    1.0,
		MinSpeedLimit:     0.02,

		PitchRateJitterThreshold: 0.45,

		DegradedMarginMult: 2.0,
		DegradedRateMult:   0.5,
		DegradedSpeedMult:  0.5,

		Horizon:             6,
		BeamWidth:           24,
		AssumedForwardSpeed: 0.3,
		PredictPitchRate:    false,
	}
}
