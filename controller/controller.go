package controller

import (
	"strings"

	"github.com/edaniels/golog"
)

// Controller is the per-cycle contract shared by both search strategies.
// Step must always return a frame: abnormal conditions are encoded in the
// safety status, never raised. Config is read/write between calls and takes
// effect on the next Step. Concurrent Step calls on one instance are not
// supported; distinct instances are fully independent.
type Controller interface {
	Config() *Config
	Step(in ControlInput) Frame
	Reset()
}

// Kind selects one of the two search strategies at construction.
type Kind int

// The closed set of strategies.
const (
	KindGridSearch Kind = iota
	KindBeamSearch
)

func (k Kind) String() string {
	switch k {
	case KindGridSearch:
		return "grid"
	case KindBeamSearch:
		return "beam"
	default:
		return "unknown"
	}
}

// KindFromString parses a strategy name, defaulting to the grid search.
func KindFromString(s string) Kind {
	if strings.EqualFold(strings.TrimSpace(s), "beam") {
		return KindBeamSearch
	}
	return KindGridSearch
}

// New constructs a controller of the given kind.
func New(kind Kind, cfg Config, logger golog.Logger) Controller {
	switch kind {
	case KindBeamSearch:
		return NewBeamSearch(cfg, logger)
	case KindGridSearch:
		fallthrough
	default:
		return NewGridSearch(cfg, logger)
	}
}
