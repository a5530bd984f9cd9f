package params

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Status classifies how a parameter participates in a fit.
type Status string

const (
	// Fixed parameters are never updated by the optimizer.
	Fixed Status = "fixed"
	// Free parameters are fitted independently in every channel.
	Free Status = "free"
	// Shared parameters are fitted once and reused by every channel.
	Shared Status = "shared"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case Fixed, Free, Shared:
		return true
	}
	return false
}

// Fitted reports whether the optimizer varies parameters with this status.
func (s Status) Fitted() bool {
	return s == Free || s == Shared
}

// PriorKind selects the prior density applied to a fitted parameter.
type PriorKind string

const (
	Uniform    PriorKind = "U"
	LogUniform PriorKind = "LU"
	Normal     PriorKind = "N"
)

var (
	ErrUnknownParameter = errors.New("unknown parameter")
	ErrMissingPrior     = errors.New("fitted parameter has no prior")
	ErrInvalidPrior     = errors.New("invalid prior")
	ErrInvalidStatus    = errors.New("invalid parameter status")
	ErrLengthMismatch   = errors.New("value count does not match free parameters")
)

// Prior describes the prior density of a fitted parameter. For Uniform and
// LogUniform, P1 and P2 are the lower and upper bounds on the value; for
// Normal they are the mean and standard deviation.
type Prior struct {
	Kind PriorKind `json:"kind"`
	P1   float64   `json:"p1"`
	P2   float64   `json:"p2"`
}

// Validate checks that the prior is well formed.
func (p Prior) Validate() error {
	switch p.Kind {
	case Uniform:
		if !(p.P1 < p.P2) {
			return fmt.Errorf("%w: uniform bounds [%g, %g] are empty", ErrInvalidPrior, p.P1, p.P2)
		}
	case LogUniform:
		if !(p.P1 > 0 && p.P1 < p.P2) {
			return fmt.Errorf("%w: log-uniform bounds [%g, %g] must be positive and ordered", ErrInvalidPrior, p.P1, p.P2)
		}
	case Normal:
		if !(p.P2 > 0) {
			return fmt.Errorf("%w: normal width %g must be positive", ErrInvalidPrior, p.P2)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidPrior, p.Kind)
	}
	return nil
}

// LogProb returns the log prior density at v, or -Inf outside the support.
func (p Prior) LogProb(v float64) float64 {
	switch p.Kind {
	case Uniform:
		if v < p.P1 || v > p.P2 {
			return math.Inf(-1)
		}
		return -math.Log(p.P2 - p.P1)
	case LogUniform:
		if v < p.P1 || v > p.P2 {
			return math.Inf(-1)
		}
		return -math.Log(v) - math.Log(math.Log(p.P2)-math.Log(p.P1))
	case Normal:
		return distuv.Normal{Mu: p.P1, Sigma: p.P2}.LogProb(v)
	}
	return math.Inf(-1)
}

// Parameter is a single named value in the store. Text carries the value of
// non-numeric settings such as the limb-darkening law name.
type Parameter struct {
	Name   string  `json:"name"`
	Value  float64 `json:"value"`
	Text   string  `json:"text,omitempty"`
	Status Status  `json:"status"`
	Prior  *Prior  `json:"prior,omitempty"`

	// Base and Channel identify channel replicas created by ExpandChannels.
	Base    string `json:"base,omitempty"`
	Channel int    `json:"channel,omitempty"`
}

// IsText reports whether the parameter is a string-valued setting.
func (p Parameter) IsText() bool {
	return p.Text != ""
}

// Validate checks the status and prior invariants.
func (p Parameter) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: empty name", ErrUnknownParameter)
	}
	if !p.Status.IsValid() {
		return fmt.Errorf("%w: %q for %s", ErrInvalidStatus, p.Status, p.Name)
	}
	if p.Status.Fitted() {
		if p.IsText() {
			return fmt.Errorf("%w: text parameter %s cannot be fitted", ErrInvalidStatus, p.Name)
		}
		if p.Prior == nil {
			return fmt.Errorf("%w: %s", ErrMissingPrior, p.Name)
		}
		if err := p.Prior.Validate(); err != nil {
			return fmt.Errorf("%s: %w", p.Name, err)
		}
	}
	return nil
}

// PlanetSuffix returns the key suffix for planet pid.
func PlanetSuffix(pid int) string {
	if pid == 0 {
		return ""
	}
	return fmt.Sprintf("%d", pid)
}

// ChannelSuffix returns the key suffix for channel ch.
func ChannelSuffix(ch int) string {
	if ch == 0 {
		return ""
	}
	return fmt.Sprintf("_%d", ch)
}
