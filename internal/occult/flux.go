package occult

import (
	"math"

	"github.com/banshee-data/transitfit/internal/limbdark"
)

// annuli is the number of rings used to integrate non-uniform intensity
// profiles across the occulted region.
const annuli = 500

// OverlapArea returns the area of intersection of a circle of radius r at
// the origin and a circle of radius p whose center is z away.
func OverlapArea(r, p, z float64) float64 {
	switch {
	case r <= 0 || p <= 0:
		return 0
	case z >= r+p:
		return 0
	case z <= math.Abs(r-p):
		m := math.Min(r, p)
		return math.Pi * m * m
	}
	k0 := math.Acos(clamp((z*z + p*p - r*r) / (2 * z * p)))
	k1 := math.Acos(clamp((z*z + r*r - p*p) / (2 * z * r)))
	sq := (-z + r + p) * (z + r - p) * (z - r + p) * (z + r + p)
	return p*p*k0 + r*r*k1 - 0.5*math.Sqrt(math.Max(sq, 0))
}

func clamp(x float64) float64 {
	return math.Max(-1, math.Min(1, x))
}

// Blocked returns the fraction of stellar flux hidden by a planet of
// radius p at projected separation z.
func Blocked(z, p float64, prof limbdark.Profile) float64 {
	if z >= 1+p || p <= 0 {
		return 0
	}
	if prof.Law == limbdark.Uniform {
		return OverlapArea(1, p, z) / math.Pi
	}
	lo := math.Max(0, z-p)
	hi := math.Min(1, z+p)
	dr := (hi - lo) / annuli
	blocked := 0.0
	prev := OverlapArea(lo, p, z)
	for i := 1; i <= annuli; i++ {
		r := lo + float64(i)*dr
		cur := OverlapArea(r, p, z)
		blocked += prof.IntensityAt(r-dr/2) * (cur - prev)
		prev = cur
	}
	return blocked / prof.Norm()
}

// Transit returns the normalized stellar flux at each time for a planet of
// radius rp (stellar radii) on orbit o.
func Transit(t []float64, o Orbit, rp float64, prof limbdark.Profile) []float64 {
	z := o.Separations(t, false)
	out := make([]float64, len(t))
	for i, zi := range z {
		out[i] = 1 - Blocked(zi, rp, prof)
	}
	return out
}

// Eclipse returns 1 + fp times the visible fraction of the planet disk at
// each time.
func Eclipse(t []float64, o Orbit, rp, fp float64) []float64 {
	z := o.Separations(t, true)
	out := make([]float64, len(t))
	area := math.Pi * rp * rp
	for i, zi := range z {
		visible := 1.0
		if area > 0 {
			visible = 1 - OverlapArea(1, rp, zi)/area
		}
		out[i] = 1 + fp*visible
	}
	return out
}
