package geometry

import "math"

// ClearanceResult is the gap between the rack envelope and the environment,
// net of margins. Negative values mean the margin is violated.
type ClearanceResult struct {
	Top    float64
	Bottom float64

	TopWorst    CornerID
	BottomWorst CornerID
	Worst       CornerID
}

// MinClearance returns the smaller of the top and bottom clearances.
func (c ClearanceResult) MinClearance() float64 {
	return math.Min(c.Top, c.Bottom)
}

// Feasible reports whether both clearances are non-negative.
func (c ClearanceResult) Feasible() bool {
	return c.Top >= 0 && c.Bottom >= 0
}

var (
	topCorners    = [2]CornerID{CornerRearTop, CornerFrontTop}
	bottomCorners = [2]CornerID{CornerRearBottom, CornerFrontBottom}
)

// Clearances reduces the four corners and the environment to the top and
// bottom clearance, each net of its margin, plus the corners that produced
// them. The overall worst corner comes from whichever side has the smaller
// net clearance.
func Clearances(corners CornerPoints, env Environment, marginTop, marginBottom float64) ClearanceResult {
	topWorst := topCorners[0]
	topGap := math.Inf(1)
	for _, id := range topCorners {
		p := corners[id]
		if gap := env.CeilingAt(p.X) - p.Y; gap < topGap {
			topGap = gap
			topWorst = id
		}
	}

	bottomWorst := bottomCorners[0]
	bottomGap := math.Inf(1)
	for _, id := range bottomCorners {
		p := corners[id]
		if gap := p.Y - env.FloorAt(p.X); gap < bottomGap {
			bottomGap = gap
			bottomWorst = id
		}
	}

	out := ClearanceResult{
		Top:         topGap - marginTop,
		Bottom:      bottomGap - marginBottom,
		TopWorst:    topWorst,
		BottomWorst: bottomWorst,
	}
	if out.Top < out.Bottom {
		out.Worst = topWorst
	} else {
		out.Worst = bottomWorst
	}
	return out
}
