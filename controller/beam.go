package controller

import (
	"container/heap"
	"math"

	"github.com/edaniels/golog"
)

// beamSearch is the predictive strategy: a short-horizon search over
// discretized rate-action sequences. Feasibility is enforced pointwise at
// every predicted step, not only at the horizon's end, and only the
// BeamWidth cheapest sequences survive each expansion. The per-cycle cost is
// O(horizon x beam width x 25).
type beamSearch struct {
	cycleState
}

// NewBeamSearch returns the predictive beam-search controller.
func NewBeamSearch(cfg Config, logger golog.Logger) Controller {
	return &beamSearch{cycleState{cfg: cfg, logger: logger}}
}

// actionScales discretizes each axis's rate limit into five rate commands;
// the two axes combine into 25 actions per expansion.
var actionScales = [5]float64{-1, -0.5, 0, 0.5, 1}

// beamNode is one candidate sequence: the predicted state, the rates that
// reached it, the accumulated cost, and the first action taken from the
// root, propagated unchanged to all descendants.
type beamNode struct {
	cost float64

	s    float64
	lift float64
	tilt float64

	lastLiftRate float64
	lastTiltRate float64

	firstLiftRate float64
	firstTiltRate float64
	hasFirst      bool
}

func (b *beamSearch) Step(in ControlInput) Frame {
	c := b.beginCycle(in)

	lift0, tilt0 := in.LiftPos, in.Tilt

	horizon := b.cfg.Horizon
	if horizon < 1 {
		horizon = 1
	}
	width := b.cfg.BeamWidth
	if width < 5 {
		width = 5
	}

	var liftRates, tiltRates [5]float64
	for i, a := range actionScales {
		liftRates[i] = a * c.liftRateLimit
		tiltRates[i] = a * c.tiltRateLimit
	}

	assumedV := math.Max(0, b.cfg.AssumedForwardSpeed) * c.speedMult

	frontier := []beamNode{{
		s:            in.S,
		lift:         lift0,
		tilt:         tilt0,
		lastLiftRate: b.prevLiftRate,
		lastTiltRate: b.prevTiltRate,
	}}

	for k := 0; k < horizon; k++ {
		pitchK := in.Pitch
		if b.cfg.PredictPitchRate {
			pitchK += in.PitchRate * c.dt * float64(k+1)
		}

		next := make(beamFrontier, 0, width)
		for _, node := range frontier {
			for _, lr := range liftRates {
				for _, tr := range tiltRates {
					liftNext := node.lift + lr*c.dt
					tiltNext := node.tilt + tr*c.dt
					sNext := node.s + assumedV*c.dt

					clr := b.clearancesAt(&c, sNext, liftNext, pitchK, tiltNext)
					if !clr.Feasible() {
						// Hard prune: the whole predicted trajectory
						// must stay feasible, not just its end.
						continue
					}

					child := node
					child.cost += b.stageCost(&c, clr, liftNext, tiltNext,
						lr, tr, node.lastLiftRate, node.lastTiltRate)
					child.s = sNext
					child.lift = liftNext
					child.tilt = tiltNext
					child.lastLiftRate = lr
					child.lastTiltRate = tr
					if !child.hasFirst {
						child.firstLiftRate = lr
						child.firstTiltRate = tr
						child.hasFirst = true
					}

					next.offer(child, width)
				}
			}
		}

		if len(next) == 0 {
			// Horizon truncates early; whatever frontier remains is
			// still a valid set of survivors.
			break
		}
		frontier = next
	}

	best := beamNode{cost: math.Inf(1)}
	bestKey := math.Inf(1)
	found := false
	for _, n := range frontier {
		if !n.hasFirst {
			continue
		}
		key := math.Abs(n.firstLiftRate) + math.Abs(n.firstTiltRate)
		if n.cost < best.cost || (n.cost == best.cost && key < bestKey) {
			best = n
			bestKey = key
			found = true
		}
	}

	if found {
		liftStar := lift0 + clamp(best.firstLiftRate, -c.liftRateLimit, c.liftRateLimit)*c.dt
		tiltStar := tilt0 + clamp(best.firstTiltRate, -c.tiltRateLimit, c.tiltRateLimit)*c.dt
		return b.finish(&c, liftStar, tiltStar, best.cost, true, CodeNone, "")
	}

	// Same flat fallback as the grid strategy: best-effort command even
	// when the whole horizon is infeasible.
	fallbackLift, fallbackTilt, _ := b.fallbackSearch(&c)
	return b.finish(&c, fallbackLift, fallbackTilt, 0, false,
		CodeNoFeasibleSolution, "No feasible predicted sequence")
}

// beamFrontier retains the k cheapest expansions as a bounded max-heap keyed
// on cost: offer is O(log k), so one expansion step stays O(n log k) instead
// of a full sort.
type beamFrontier []beamNode

func (f beamFrontier) Len() int            { return len(f) }
func (f beamFrontier) Less(i, j int) bool  { return f[i].cost > f[j].cost }
func (f beamFrontier) Swap(i, j int)       { f[i], f[j] = f[j], f[i] }
func (f *beamFrontier) Push(x interface{}) { *f = append(*f, x.(beamNode)) }
func (f *beamFrontier) Pop() interface{} {
	old := *f
	n := len(old)
	x := old[n-1]
	*f = old[:n-1]
	return x
}

func (f *beamFrontier) offer(n beamNode, width int) {
	if len(*f) < width {
		heap.Push(f, n)
		return
	}
	if n.cost < (*f)[0].cost {
		(*f)[0] = n
		heap.Fix(f, 0)
	}
}
