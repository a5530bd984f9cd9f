// Package planet resolves the per-planet, per-channel view of the
// parameter store that the physical models evaluate.
//
// Each of the equivalent pairs rprs/rp, ars/a and fpfs/fp names one
// quantity. Whichever name the store defines is authoritative and the
// other is copied from it.
package planet

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/banshee-data/transitfit/internal/occult"
	"github.com/banshee-data/transitfit/internal/params"
	"github.com/banshee-data/transitfit/internal/units"
)

// ErrMissingParameter is returned when a required value cannot be resolved
// and has no default.
var ErrMissingParameter = errors.New("missing planet parameter")

// Required parameter sets for each physical model.
var (
	TransitRequired = []string{"t0", "per", "inc", "ars", "rprs", "w"}
	EclipseRequired = []string{"per", "inc", "ars", "rprs", "w"}
)

// Params is the canonical parameter set of one planet in one channel. It
// is rebuilt for every evaluation and never written back to the store.
type Params struct {
	PID     int
	Channel int

	T0         float64
	RpRs       float64
	Rp         float64
	Inc        float64 // degrees
	Ars        float64
	A          float64
	Per        float64
	Ecc        float64
	W          float64 // degrees
	FpFs       float64
	Fp         float64
	TSecondary float64
	Rs         float64 // stellar radius, solar radii

	Cos1Amp, Cos1Off float64
	Cos2Amp, Cos2Off float64
	AmpCos1, AmpSin1 float64
	AmpCos2, AmpSin2 float64
	Gamma            float64

	LimbDark string
	U        []float64

	present map[string]bool
}

// fields lists every directly resolved name and where it lands.
func (p *Params) fields() map[string]*float64 {
	return map[string]*float64{
		"t0":          &p.T0,
		"rprs":        &p.RpRs,
		"rp":          &p.Rp,
		"inc":         &p.Inc,
		"ars":         &p.Ars,
		"a":           &p.A,
		"per":         &p.Per,
		"ecc":         &p.Ecc,
		"w":           &p.W,
		"fpfs":        &p.FpFs,
		"fp":          &p.Fp,
		"t_secondary": &p.TSecondary,
		"cos1_amp":    &p.Cos1Amp,
		"cos1_off":    &p.Cos1Off,
		"cos2_amp":    &p.Cos2Amp,
		"cos2_off":    &p.Cos2Off,
		"AmpCos1":     &p.AmpCos1,
		"AmpSin1":     &p.AmpSin1,
		"AmpCos2":     &p.AmpCos2,
		"AmpSin2":     &p.AmpSin2,
		"gamma":       &p.Gamma,
	}
}

// aliases pairs each canonical name with its alternate.
var aliases = [][2]string{
	{"rprs", "rp"},
	{"ars", "a"},
	{"fpfs", "fp"},
}

// Resolve builds the view of planet pid in channel ch. Names listed in
// required must resolve (directly or through their alias) or
// ErrMissingParameter is returned together with the partial view.
func Resolve(s *params.Store, pid, ch int, required ...string) (Params, error) {
	p := Params{PID: pid, Channel: ch, present: make(map[string]bool)}
	for name, dst := range p.fields() {
		if v, ok := s.Lookup(name, pid, ch); ok {
			*dst = v
			p.present[name] = true
		}
	}
	for _, pair := range aliases {
		p.alias(pair[0], pair[1])
		p.alias(pair[1], pair[0])
	}
	if v, ok := s.Lookup("Rs", 0, ch); ok {
		p.Rs = v
		p.present["Rs"] = true
	}
	if ld, ok := s.Text("limb_dark"); ok {
		p.LimbDark = ld
	}
	return p, p.Require(required...)
}

func (p *Params) alias(dst, src string) {
	if p.present[dst] || !p.present[src] {
		return
	}
	f := p.fields()
	*f[dst] = *f[src]
	p.present[dst] = true
}

// Has reports whether name was resolved from the store.
func (p Params) Has(name string) bool { return p.present[name] }

// Require returns ErrMissingParameter naming every absent entry.
func (p Params) Require(names ...string) error {
	var missing []string
	for _, n := range names {
		if !p.present[n] {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: planet %d channel %d: %s", ErrMissingParameter, p.PID, p.Channel, strings.Join(missing, ", "))
	}
	return nil
}

// Physical reports whether the orbit can be evaluated: per > 0,
// 0 < inc < 90, ars > 1 and 0 <= ecc < 1.
func (p Params) Physical() bool {
	return p.Per > 0 && p.Inc > 0 && p.Inc < 90 && p.Ars > 1 && p.Ecc >= 0 && p.Ecc < 1
}

// Orbit returns the orbit with periastron placed from the transit time.
func (p Params) Orbit() occult.Orbit {
	return occult.Orbit{
		TPeri: occult.PeriastronFromTransit(p.T0, p.Per, p.Ecc, p.W),
		Per:   p.Per,
		Ars:   p.Ars,
		Inc:   p.Inc,
		Ecc:   p.Ecc,
		W:     p.W,
	}
}

// EclipseOrbit returns the orbit with periastron placed from the eclipse
// time, deriving it from the transit time when not set.
func (p Params) EclipseOrbit() occult.Orbit {
	o := p.Orbit()
	o.TPeri = occult.PeriastronFromEclipse(p.EclipseTime(), p.Per, p.Ecc, p.W)
	return o
}

// EclipseTime returns t_secondary when resolved, otherwise the eclipse
// midpoint implied by t0, per, ecc and w.
func (p Params) EclipseTime() float64 {
	if p.Has("t_secondary") {
		return p.TSecondary
	}
	return occult.EclipseMidpoint(p.T0, p.Per, p.Ecc, p.W)
}

// CorrectLightTravelTime maps observed times to emission times by removing
// the light travel delay across the planet's line-of-sight offset from
// the star.
func (p Params) CorrectLightTravelTime(t []float64) []float64 {
	o := p.EclipseOrbit()
	inc := p.Inc * math.Pi / 180
	w := p.W * math.Pi / 180
	aMeters := p.Ars * units.SolarRadiiToMeters(p.Rs)
	out := make([]float64, len(t))
	for i, ti := range t {
		f := o.TrueAnomaly(ti)
		r := aMeters * (1 - p.Ecc*p.Ecc) / (1 + p.Ecc*math.Cos(f))
		// Line-of-sight coordinate, zero at conjunction, positive at
		// eclipse when the planet is behind the star.
		zlos := -r * math.Sin(w+f) * math.Sin(inc)
		out[i] = ti - units.LightTravelDays(zlos)
	}
	return out
}
