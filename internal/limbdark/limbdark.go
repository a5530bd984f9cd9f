// Package limbdark implements the stellar limb-darkening laws used by the
// transit model. Each law maps mu, the cosine of the angle between the line
// of sight and the stellar surface normal, to a relative intensity.
package limbdark

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/integrate/quad"
)

var (
	// ErrUnknownLaw is returned for a law name with no implementation.
	ErrUnknownLaw = errors.New("unknown limb-darkening law")
	// ErrCoeffCount is returned when the number of coefficients does not
	// match the law.
	ErrCoeffCount = errors.New("wrong number of limb-darkening coefficients")
)

// Law names a limb-darkening law.
type Law string

const (
	Uniform     Law = "uniform"
	Linear      Law = "linear"
	Quadratic   Law = "quadratic"
	Kipping2013 Law = "kipping2013"
	SquareRoot  Law = "squareroot"
	Logarithmic Law = "logarithmic"
	Exponential Law = "exponential"
	Power2      Law = "power2"
	ThreeParam  Law = "3-parameter"
	FourParam   Law = "4-parameter"
)

var ncoeffs = map[Law]int{
	Uniform:     0,
	Linear:      1,
	Quadratic:   2,
	Kipping2013: 2,
	SquareRoot:  2,
	Logarithmic: 2,
	Exponential: 2,
	Power2:      2,
	ThreeParam:  3,
	FourParam:   4,
}

// Laws returns every supported law name.
func Laws() []Law {
	return []Law{Uniform, Linear, Quadratic, Kipping2013, SquareRoot,
		Logarithmic, Exponential, Power2, ThreeParam, FourParam}
}

// Parse resolves a law name. "nonlinear" is accepted as an alias of the
// four-parameter law.
func Parse(name string) (Law, error) {
	if name == "nonlinear" {
		return FourParam, nil
	}
	l := Law(name)
	if _, ok := ncoeffs[l]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownLaw, name)
	}
	return l, nil
}

// NumCoeffs returns the number of coefficients the law takes.
func (l Law) NumCoeffs() int { return ncoeffs[l] }

// CoeffNames returns the parameter names u1..un of the law's coefficients.
func (l Law) CoeffNames() []string {
	n := l.NumCoeffs()
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("u%d", i+1)
	}
	return names
}

// Kipping2013ToQuadratic converts the (q1, q2) parameterization to
// quadratic coefficients. The caller must ensure q1 > 0.
func Kipping2013ToQuadratic(q1, q2 float64) (u1, u2 float64) {
	sq := math.Sqrt(q1)
	return 2 * sq * q2, sq * (1 - 2*q2)
}

// Profile is a law with concrete coefficients.
type Profile struct {
	Law  Law
	U    []float64
	norm float64
}

// New builds a profile. Kipping2013 coefficients are converted to the
// quadratic law; the caller is responsible for guarding q1 > 0 first.
func New(law Law, u []float64) (Profile, error) {
	n, ok := ncoeffs[law]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrUnknownLaw, law)
	}
	if len(u) != n {
		return Profile{}, fmt.Errorf("%w: %s takes %d, got %d", ErrCoeffCount, law, n, len(u))
	}
	coeffs := append([]float64(nil), u...)
	if law == Kipping2013 {
		u1, u2 := Kipping2013ToQuadratic(u[0], u[1])
		law, coeffs = Quadratic, []float64{u1, u2}
	}
	p := Profile{Law: law, U: coeffs}
	p.norm = p.integrate()
	return p, nil
}

// Intensity returns I(mu) normalized to 1 at disk center for the
// polynomial laws.
func (p Profile) Intensity(mu float64) float64 {
	if mu < 0 {
		mu = 0
	}
	u := p.U
	switch p.Law {
	case Uniform:
		return 1
	case Linear:
		return 1 - u[0]*(1-mu)
	case Quadratic:
		return 1 - u[0]*(1-mu) - u[1]*(1-mu)*(1-mu)
	case SquareRoot:
		return 1 - u[0]*(1-mu) - u[1]*(1-math.Sqrt(mu))
	case Logarithmic:
		if mu == 0 {
			return 1 - u[0]
		}
		return 1 - u[0]*(1-mu) - u[1]*mu*math.Log(mu)
	case Exponential:
		return 1 - u[0]*(1-mu) - u[1]/(1-math.Exp(mu))
	case Power2:
		return 1 - u[0]*(1-math.Pow(mu, u[1]))
	case ThreeParam:
		return 1 - u[0]*(1-mu) - u[1]*(1-math.Pow(mu, 1.5)) - u[2]*(1-mu*mu)
	case FourParam:
		sq := math.Sqrt(mu)
		return 1 - u[0]*(1-sq) - u[1]*(1-mu) - u[2]*(1-mu*sq) - u[3]*(1-mu*mu)
	}
	return math.NaN()
}

// IntensityAt returns the intensity at projected radius r (stellar radii).
func (p Profile) IntensityAt(r float64) float64 {
	if r >= 1 {
		return p.Intensity(0)
	}
	return p.Intensity(math.Sqrt(1 - r*r))
}

// Norm returns the total disk flux, the integral of I over the unit disk.
func (p Profile) Norm() float64 { return p.norm }

// integrate evaluates 2*pi*int_0^1 I(mu) mu dmu with Gauss-Legendre
// quadrature.
func (p Profile) integrate() float64 {
	if p.Law == Uniform {
		return math.Pi
	}
	f := func(mu float64) float64 { return p.Intensity(mu) * mu }
	return 2 * math.Pi * quad.Fixed(f, 0, 1, 64, nil, 0)
}
