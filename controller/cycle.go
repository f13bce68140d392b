package controller

import (
	"math"

	"github.com/edaniels/golog"
	"gonum.org/v1/gonum/floats"

	"github.com/mastline/loadclear/geometry"
)

// defaultDT substitutes for an unusable control period so the cycle can
// still produce a command while classified DEGRADED.
const defaultDT = 0.02

// lookaheadEpsilon below which the spatial lookahead is treated as disabled.
const lookaheadEpsilon = 1e-9

// cycleState is everything a strategy keeps across cycles: its config, a
// logger, the elapsed-time accumulator and the two smoothing-memory scalars.
// Reset clears exactly the mutable part.
type cycleState struct {
	cfg    Config
	logger golog.Logger

	elapsed      float64
	prevLiftRate float64
	prevTiltRate float64
}

func (s *cycleState) Config() *Config { return &s.cfg }

func (s *cycleState) Reset() {
	s.elapsed = 0
	s.prevLiftRate = 0
	s.prevTiltRate = 0
}

// cycle is the per-call working set shared by both strategies: the validated
// input, degraded-scaled margins and limits, and the current/working
// clearances. It lives on the stack of one Step call.
type cycle struct {
	in ControlInput
	dt float64

	degraded     bool
	degradedCode SafetyCode
	degradedMsg  string

	marginTop    float64
	marginBottom float64

	liftRateLimit float64
	tiltRateLimit float64
	speedMult     float64

	corners geometry.CornerPoints
	working geometry.ClearanceResult
}

func inputFinite(in *ControlInput) bool {
	for _, v := range []float64{
		in.DT, in.Pitch, in.PitchRate, in.S, in.LiftPos, in.Tilt,
		in.Rack.Height, in.Rack.Length,
		in.Rack.MountOffset.X, in.Rack.MountOffset.Y,
		in.Vehicle.MastPivotHeight,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// beginCycle validates the input, applies degraded scaling and evaluates the
// current working clearance (steps 1-4 of either strategy).
func (s *cycleState) beginCycle(in ControlInput) cycle {
	c := cycle{in: in, dt: in.DT}
	if !(c.dt > 1e-6) || math.IsNaN(c.dt) || math.IsInf(c.dt, 0) {
		c.dt = defaultDT
	}
	s.elapsed += c.dt

	switch {
	case !in.Valid || !inputFinite(&in) || in.DT <= 0:
		c.degraded = true
		c.degradedCode = CodeInputInvalid
		c.degradedMsg = "Invalid inputs"
	case math.Abs(in.PitchRate) > s.cfg.PitchRateJitterThreshold:
		c.degraded = true
		c.degradedCode = CodePitchJitter
		c.degradedMsg = "Pitch rate jitter"
	}

	marginMult, rateMult, speedMult := 1.0, 1.0, 1.0
	if c.degraded {
		marginMult = s.cfg.DegradedMarginMult
		rateMult = s.cfg.DegradedRateMult
		speedMult = s.cfg.DegradedSpeedMult
	}

	c.marginTop = s.cfg.MarginTop * marginMult
	c.marginBottom = s.cfg.MarginBottom * marginMult
	c.liftRateLimit = s.cfg.BaseLiftRateLimit * rateMult
	c.tiltRateLimit = s.cfg.BaseTiltRateLimit * rateMult
	c.speedMult = speedMult

	c.corners = geometry.RackCorners(in.S, in.LiftPos, in.Pitch, in.Tilt, in.Env, in.Rack, in.Vehicle)
	c.working = s.clearancesAt(&c, in.S, in.LiftPos, in.Pitch, in.Tilt)
	return c
}

// clearancesAt evaluates the clearance of a candidate state, combined
// pointwise with the spatial lookahead when one is configured. The worst
// corner identities come from the immediate evaluation.
func (s *cycleState) clearancesAt(c *cycle, sPos, lift, pitch, tilt float64) geometry.ClearanceResult {
	clr := geometry.Clearances(
		geometry.RackCorners(sPos, lift, pitch, tilt, c.in.Env, c.in.Rack, c.in.Vehicle),
		c.in.Env, c.marginTop, c.marginBottom)

	if s.cfg.Lookahead > lookaheadEpsilon {
		ahead := geometry.Clearances(
			geometry.RackCorners(sPos+s.cfg.Lookahead, lift, pitch, tilt, c.in.Env, c.in.Rack, c.in.Vehicle),
			c.in.Env, c.marginTop, c.marginBottom)
		clr.Top = math.Min(clr.Top, ahead.Top)
		clr.Bottom = math.Min(clr.Bottom, ahead.Bottom)
		if clr.Top < clr.Bottom {
			clr.Worst = clr.TopWorst
		} else {
			clr.Worst = clr.BottomWorst
		}
	}
	return clr
}

// gridSpan enumerates a uniform candidate axis centered on the current
// state. Degenerate configuration (too few steps, negative half range) falls
// back to the minimum usable values rather than erroring.
func gridSpan(center, halfRange float64, steps int) []float64 {
	if steps < 3 {
		steps = 3
	}
	if halfRange < 0 || math.IsNaN(halfRange) {
		halfRange = 0
	}
	return floats.Span(make([]float64, steps), center-halfRange, center+halfRange)
}

// stageCost is the cost both strategies share: clearance centering,
// actuation magnitude relative to the cycle's starting state, and smoothing
// of the applied rate against the previous one. The grid strategy applies it
// once per candidate; the beam strategy accumulates it per predicted stage
// with the rates chained along the sequence.
func (s *cycleState) stageCost(c *cycle, clr geometry.ClearanceResult, lift, tilt, liftRate, tiltRate, prevLiftRate, prevTiltRate float64) float64 {
	mid := clr.Top - clr.Bottom

	dLiftRate := liftRate - prevLiftRate
	dTiltRate := tiltRate - prevTiltRate

	dLift := lift - c.in.LiftPos
	dTilt := tilt - c.in.Tilt

	return s.cfg.WCenter*mid*mid +
		s.cfg.WDeltaLift*dLift*dLift +
		s.cfg.WDeltaTilt*dTilt*dTilt +
		s.cfg.WSmooth*(dLiftRate*dLiftRate+dTiltRate*dTiltRate)
}

// fallbackSearch scans the local grid for the candidate with the largest
// min clearance, ignoring feasibility. Used by both strategies when nothing
// feasible exists: a best-effort command is still always produced.
func (s *cycleState) fallbackSearch(c *cycle) (lift, tilt float64, clr geometry.ClearanceResult) {
	lift, tilt = c.in.LiftPos, c.in.Tilt
	clr = c.working
	bestMinClear := math.Inf(-1)

	for _, liftC := range gridSpan(c.in.LiftPos, s.cfg.SearchLiftHalfRange, s.cfg.GridLiftSteps) {
		for _, tiltC := range gridSpan(c.in.Tilt, s.cfg.SearchTiltHalfRange, s.cfg.GridTiltSteps) {
			cand := s.clearancesAt(c, c.in.S, liftC, c.in.Pitch, tiltC)
			if minClear := cand.MinClearance(); minClear > bestMinClear {
				bestMinClear = minClear
				lift, tilt = liftC, tiltC
				clr = cand
			}
		}
	}
	return lift, tilt, clr
}

// speedLimit applies the shared speed policy to the cycle's working
// clearance: scale down as clearance approaches zero and as pitch rate
// rises, floor at the creep speed while above the hard threshold, and force
// zero below it.
func (s *cycleState) speedLimit(c *cycle) float64 {
	minClear := c.working.MinClearance()

	clearanceFactor := clamp(minClear/s.cfg.WarnThreshold, 0, 1)
	pitchRateFactor := clamp(1-math.Abs(c.in.PitchRate)/(2*s.cfg.PitchRateJitterThreshold), 0.2, 1)

	speed := s.cfg.BaseSpeedLimit * c.speedMult * math.Min(clearanceFactor, pitchRateFactor)
	if minClear >= s.cfg.HardThreshold-clearanceEpsilon {
		return math.Max(speed, s.cfg.MinSpeedLimit*c.speedMult*pitchRateFactor)
	}
	return 0
}

// finish composes the output frame from the chosen target, classifies the
// cycle, and updates the smoothing memory (steps 7-10 of either strategy).
func (s *cycleState) finish(c *cycle, liftStar, tiltStar, selectedCost float64, hadFeasible bool, searchCode SafetyCode, searchMsg string) Frame {
	f := Frame{
		Time:    s.elapsed,
		Input:   c.in,
		Corners: c.corners,
		Command: ControlCommand{
			LiftTarget:    liftStar,
			LiftRateLimit: c.liftRateLimit,
			TiltTarget:    tiltStar,
			TiltRateLimit: c.tiltRateLimit,
			SpeedLimit:    s.speedLimit(c),
		},
		SelectedCost:        selectedCost,
		HadFeasibleSolution: hadFeasible,
	}

	if c.degraded {
		f.Safety = classifySafety(&s.cfg, c.working.Top, c.working.Bottom, c.working.Worst,
			true, c.degradedCode, c.degradedMsg)
	} else {
		f.Safety = classifySafety(&s.cfg, c.working.Top, c.working.Bottom, c.working.Worst,
			false, searchCode, searchMsg)
	}

	if s.logger != nil {
		if c.degraded {
			s.logger.Debugw("degraded cycle", "code", c.degradedCode.String(), "pitch_rate", c.in.PitchRate)
		} else if !hadFeasible {
			s.logger.Debugw("no feasible candidate", "s", c.in.S,
				"clearance_top", c.working.Top, "clearance_bottom", c.working.Bottom)
		}
	}

	// Stabilize the smoothing memory even on infeasible cycles.
	s.prevLiftRate = clamp((liftStar-c.in.LiftPos)/c.dt, -c.liftRateLimit, c.liftRateLimit)
	s.prevTiltRate = clamp((tiltStar-c.in.Tilt)/c.dt, -c.tiltRateLimit, c.tiltRateLimit)

	return f
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
