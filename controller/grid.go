package controller

import (
	"math"

	"github.com/edaniels/golog"
)

// gridSearch is the reactive strategy: every cycle it exhaustively scans a
// local (lift, tilt) grid around the current state and commands the cheapest
// feasible candidate.
type gridSearch struct {
	cycleState
}

// NewGridSearch returns the reactive grid-search controller.
func NewGridSearch(cfg Config, logger golog.Logger) Controller {
	return &gridSearch{cycleState{cfg: cfg, logger: logger}}
}

func (g *gridSearch) Step(in ControlInput) Frame {
	c := g.beginCycle(in)

	lift0, tilt0 := in.LiftPos, in.Tilt

	bestFeasible := false
	bestCost := math.Inf(1)
	bestKey := math.Inf(1)
	bestLift, bestTilt := lift0, tilt0

	// Fallback when nothing is feasible: the candidate maximizing the
	// min clearance, tracked independent of feasibility.
	fallbackMinClear := math.Inf(-1)
	fallbackLift, fallbackTilt := lift0, tilt0

	for _, liftC := range gridSpan(lift0, g.cfg.SearchLiftHalfRange, g.cfg.GridLiftSteps) {
		for _, tiltC := range gridSpan(tilt0, g.cfg.SearchTiltHalfRange, g.cfg.GridTiltSteps) {
			clr := g.clearancesAt(&c, in.S, liftC, in.Pitch, tiltC)

			if minClear := clr.MinClearance(); minClear > fallbackMinClear {
				fallbackMinClear = minClear
				fallbackLift, fallbackTilt = liftC, tiltC
			}

			if !clr.Feasible() {
				continue
			}

			liftRate := (liftC - lift0) / c.dt
			tiltRate := (tiltC - tilt0) / c.dt
			cost := g.stageCost(&c, clr, liftC, tiltC, liftRate, tiltRate, g.prevLiftRate, g.prevTiltRate)

			// Secondary key so equal-cost candidates resolve to the
			// smallest actuation instead of scan order.
			key := math.Abs(liftC-lift0) + math.Abs(tiltC-tilt0)
			if cost < bestCost || (cost == bestCost && key < bestKey) {
				bestFeasible = true
				bestCost = cost
				bestKey = key
				bestLift, bestTilt = liftC, tiltC
			}
		}
	}

	if bestFeasible {
		return g.finish(&c, bestLift, bestTilt, bestCost, true, CodeNone, "")
	}

	return g.finish(&c, fallbackLift, fallbackTilt, 0, false,
		CodeNoFeasibleSolution, "No feasible (lift,tilt) in neighborhood")
}
