// Package occult computes Keplerian sky-projected separations and the
// flux of a star occulted by a planet (primary transit) or of a planet
// occulted by its star (secondary eclipse).
package occult

import "math"

const (
	deg2rad = math.Pi / 180

	keplerTol     = 1e-12
	keplerMaxIter = 50

	// farAway is the separation assigned when the planet is on the wrong
	// side of the star for the requested event.
	farAway = 100.0
)

// Orbit describes a Keplerian orbit in units of the stellar radius.
type Orbit struct {
	TPeri float64 // time of periastron
	Per   float64 // period, days
	Ars   float64 // semi-major axis, stellar radii
	Inc   float64 // inclination, degrees
	Ecc   float64
	W     float64 // argument of periastron, degrees
}

// SolveKepler returns the eccentric anomaly E with M = E - e sin E.
func SolveKepler(m, ecc float64) float64 {
	if ecc == 0 {
		return m
	}
	e := m
	if ecc > 0.8 {
		e = math.Pi
	}
	for range keplerMaxIter {
		d := (e - ecc*math.Sin(e) - m) / (1 - ecc*math.Cos(e))
		e -= d
		if math.Abs(d) < keplerTol {
			break
		}
	}
	return e
}

// TrueAnomaly returns the true anomaly at time t.
func (o Orbit) TrueAnomaly(t float64) float64 {
	m := 2 * math.Pi / o.Per * (t - o.TPeri)
	if o.Ecc == 0 {
		return m
	}
	m = math.Mod(m, 2*math.Pi)
	if m < 0 {
		m += 2 * math.Pi
	}
	e := SolveKepler(m, o.Ecc)
	return 2 * math.Atan(math.Sqrt((1+o.Ecc)/(1-o.Ecc))*math.Tan(e/2))
}

// Position returns the sky-projected separation in stellar radii and
// whether the planet is in front of the star.
func (o Orbit) Position(t float64) (z float64, front bool) {
	f := o.TrueAnomaly(t)
	w := o.W * deg2rad
	inc := o.Inc * deg2rad
	r := o.Ars * (1 - o.Ecc*o.Ecc) / (1 + o.Ecc*math.Cos(f))
	s := math.Sin(w + f)
	si := math.Sin(inc)
	return r * math.Sqrt(1-s*s*si*si), s > 0
}

// Separations returns the projected separation for each time. Samples
// where the planet is on the far side of the star (primary) or the near
// side (secondary) are pushed out of contact.
func (o Orbit) Separations(t []float64, secondary bool) []float64 {
	out := make([]float64, len(t))
	for i, ti := range t {
		z, front := o.Position(ti)
		if front == secondary {
			z = farAway
		}
		out[i] = z
	}
	return out
}

// Phase returns the mean-anomaly phase (fraction of an orbit after
// periastron) at which conjunction occurs: transit for primary, eclipse
// for secondary.
func Phase(ecc, wDeg float64, secondary bool) float64 {
	f := math.Pi/2 - wDeg*deg2rad
	if secondary {
		f = 3*math.Pi/2 - wDeg*deg2rad
	}
	e := 2 * math.Atan(math.Sqrt((1-ecc)/(1+ecc))*math.Tan(f/2))
	m := e - ecc*math.Sin(e)
	return m / (2 * math.Pi)
}

// PeriastronFromTransit returns the time of periastron given the time of
// mid-transit.
func PeriastronFromTransit(t0, per, ecc, wDeg float64) float64 {
	return t0 - per*Phase(ecc, wDeg, false)
}

// PeriastronFromEclipse returns the time of periastron given the time of
// mid-eclipse.
func PeriastronFromEclipse(tsec, per, ecc, wDeg float64) float64 {
	return tsec - per*Phase(ecc, wDeg, true)
}

// EclipseMidpoint derives the time of secondary eclipse from the time of
// transit.
func EclipseMidpoint(t0, per, ecc, wDeg float64) float64 {
	dphase := Phase(ecc, wDeg, true) - Phase(ecc, wDeg, false)
	dphase -= math.Floor(dphase)
	return t0 + per*dphase
}
