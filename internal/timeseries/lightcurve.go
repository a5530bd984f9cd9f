package timeseries

import (
	"errors"
	"fmt"

	"github.com/banshee-data/transitfit/internal/units"
)

// LightCurve holds the aligned arrays of one fit together with the channel
// layout of the flattened flux axis.
//
// In multiwhite mode Time is as long as Flux and is split with the same
// layout. Otherwise every channel shares one Time axis and Flux holds
// len(Time) samples per channel.
type LightCurve struct {
	Time       Masked
	Flux       Masked
	Unc        Masked
	UncFit     Masked
	TimeUnits  string
	MultiWhite bool

	layout Layout
}

// Options describes how a light curve is partitioned.
type Options struct {
	// Channels lists the fitted channels. Defaults to [0].
	Channels []int
	// Nints lists the samples per channel. Required in multiwhite mode;
	// otherwise every channel has len(time) samples.
	Nints      []int
	MultiWhite bool
	TimeUnits  string
}

// NewLightCurve validates the arrays against the layout. A zero-length
// UncFit defaults to Unc.
func NewLightCurve(time, flux, unc, uncFit Masked, opts Options) (*LightCurve, error) {
	channels := opts.Channels
	if len(channels) == 0 {
		channels = []int{0}
	}
	nints := opts.Nints
	if !opts.MultiWhite && len(nints) == 0 {
		nints = make([]int, len(channels))
		for i := range nints {
			nints[i] = time.Len()
		}
	}
	layout, err := NewLayout(channels, nints)
	if err != nil {
		return nil, err
	}
	if uncFit.Len() == 0 {
		uncFit = unc.Copy()
	}
	if opts.TimeUnits != "" && !units.IsValid(opts.TimeUnits) {
		return nil, fmt.Errorf("invalid time units %q, valid: %s", opts.TimeUnits, units.GetValidUnitsString())
	}

	lc := &LightCurve{
		Time:       time,
		Flux:       flux,
		Unc:        unc,
		UncFit:     uncFit,
		TimeUnits:  opts.TimeUnits,
		MultiWhite: opts.MultiWhite,
		layout:     layout,
	}
	if err := lc.Validate(); err != nil {
		return nil, err
	}
	return lc, nil
}

// Validate checks the array lengths against the layout.
func (lc *LightCurve) Validate() error {
	total := lc.layout.Total()
	if lc.Flux.Len() != total {
		return fmt.Errorf("flux has %d samples, layout expects %d", lc.Flux.Len(), total)
	}
	if lc.Unc.Len() != total || lc.UncFit.Len() != total {
		return fmt.Errorf("uncertainty arrays (%d, %d) do not match flux length %d", lc.Unc.Len(), lc.UncFit.Len(), total)
	}
	if lc.MultiWhite {
		if lc.Time.Len() != total {
			return fmt.Errorf("multiwhite time has %d samples, want %d", lc.Time.Len(), total)
		}
		return nil
	}
	for _, ch := range lc.layout.Channels() {
		n, _ := lc.layout.Len(ch)
		if n != lc.Time.Len() {
			return fmt.Errorf("channel %d has %d samples, time has %d", ch, n, lc.Time.Len())
		}
	}
	if lc.Time.Len() == 0 {
		return errors.New("empty light curve")
	}
	return nil
}

// Layout returns the channel layout of the flux axis.
func (lc *LightCurve) Layout() Layout { return lc.layout }

// Channels returns the fitted channels in ascending order.
func (lc *LightCurve) Channels() []int { return lc.layout.Channels() }

// NChannels returns the number of fitted channels.
func (lc *LightCurve) NChannels() int { return lc.layout.NChannels() }

// Nints returns the per-channel sample counts in channel order.
func (lc *LightCurve) Nints() []int {
	out := make([]int, lc.layout.NChannels())
	for i, ch := range lc.layout.Channels() {
		out[i], _ = lc.layout.Len(ch)
	}
	return out
}

// ParamChannel maps a fitted channel to the channel used in parameter
// keys. A single-channel fit always addresses the base keys.
func (lc *LightCurve) ParamChannel(ch int) int {
	if lc.layout.NChannels() == 1 {
		return 0
	}
	return ch
}

// ChannelTime returns the time axis seen by channel ch.
func (lc *LightCurve) ChannelTime(ch int) (Masked, error) {
	if lc.MultiWhite {
		return lc.layout.Split(lc.Time, ch)
	}
	if _, err := lc.layout.Index(ch); err != nil {
		return Masked{}, err
	}
	return lc.Time.Copy(), nil
}

// ChannelFlux returns channel ch's flux segment.
func (lc *LightCurve) ChannelFlux(ch int) (Masked, error) { return lc.layout.Split(lc.Flux, ch) }

// ChannelUnc returns channel ch's measurement uncertainty segment.
func (lc *LightCurve) ChannelUnc(ch int) (Masked, error) { return lc.layout.Split(lc.Unc, ch) }

// ChannelUncFit returns channel ch's fitted uncertainty segment.
func (lc *LightCurve) ChannelUncFit(ch int) (Masked, error) { return lc.layout.Split(lc.UncFit, ch) }

// WithTime returns a shallow copy that evaluates on a new time axis. For
// multiwhite light curves nints gives the new per-channel lengths. Flux
// and uncertainties are replaced by placeholders of matching length.
func (lc *LightCurve) WithTime(time Masked, nints []int) (*LightCurve, error) {
	opts := Options{
		Channels:   lc.Channels(),
		MultiWhite: lc.MultiWhite,
		TimeUnits:  lc.TimeUnits,
	}
	total := time.Len() * lc.NChannels()
	if lc.MultiWhite {
		if len(nints) != lc.NChannels() {
			return nil, fmt.Errorf("interp: %d segment lengths for %d channels", len(nints), lc.NChannels())
		}
		opts.Nints = nints
		total = time.Len()
	}
	return NewLightCurve(time, Ones(total), Ones(total), Ones(total), opts)
}
