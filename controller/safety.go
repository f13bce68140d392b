package controller

import (
	"math"

	"github.com/mastline/loadclear/geometry"
)

// clearanceEpsilon is the tolerance guarding the hard threshold. Both
// strategies use the same value so a clearance sitting exactly on the
// boundary cannot chatter between STOP and WARN, or flip classification when
// the strategy is swapped.
const clearanceEpsilon = 5e-4

// classifySafety turns the cycle's working clearances into a safety status.
// DEGRADED wins over everything when set. Otherwise the level is a pure
// function of min(top, bottom) against the thresholds; a diagnostic code may
// be attached to any level without changing it. Stateless: the result never
// depends on the command the search chose.
func classifySafety(cfg *Config, top, bottom float64, worst geometry.CornerID, degraded bool, code SafetyCode, msg string) SafetyStatus {
	s := SafetyStatus{
		ClearanceTop:    top,
		ClearanceBottom: bottom,
		WorstCorner:     worst,
	}

	if degraded {
		s.Level = SafetyDegraded
		s.Code = code
		if s.Code == CodeNone {
			s.Code = CodeInputInvalid
		}
		s.Message = msg
		if s.Message == "" {
			s.Message = "DEGRADED"
		}
		return s
	}

	minClear := math.Min(top, bottom)

	switch {
	case minClear < cfg.HardThreshold-clearanceEpsilon:
		s.Level = SafetyStop
		s.Code = CodeClearanceHardViolated
		s.Message = "STOP: hard clearance violated"
	case minClear < cfg.WarnThreshold:
		s.Level = SafetyWarn
		s.Code = CodeClearanceSoftNear
		s.Message = "WARN: clearance near boundary"
	default:
		s.Level = SafetyOK
		s.Code = CodeNone
		s.Message = "OK"
	}

	if code != CodeNone {
		s.Code = code
		if msg != "" {
			s.Message = msg
		}
	}
	return s
}
