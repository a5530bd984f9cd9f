// Package model implements the light-curve model components and their
// composition. Physical and systematic components multiply; the GP
// component adds a correlated-noise prediction on top of their product.
//
// Components read the parameter store on every evaluation and never write
// to it. Concurrent fits must give each worker its own store clone and its
// own component set.
package model

import (
	"errors"
	"fmt"

	"github.com/banshee-data/transitfit/internal/params"
	"github.com/banshee-data/transitfit/internal/timeseries"
)

// Type classifies how a component enters the composite model.
type Type string

const (
	Physical   Type = "physical"
	Systematic Type = "systematic"
	GPType     Type = "GP"
)

// Penalty values substituted for the light curve when parameters leave the
// physically valid region. They are finite so optimizers can step back.
const (
	TransitPenalty    = 1e12
	EclipsePenalty    = 1e8
	LimbDarkPenalty   = 1e8
	PositivityPenalty = 1e6
)

var (
	ErrUnsupportedBackend     = errors.New("unsupported GP backend")
	ErrMultiDimensionalGP     = errors.New("multi-dimensional GP not supported")
	ErrUnsupportedKernelInput = errors.New("unsupported GP kernel input")
	ErrNoGP                   = errors.New("composite model has no GP component")
)

// Model is one component of a light-curve model.
type Model interface {
	Name() string
	Type() Type
	// Setup prepares derived state from the current store. It must be
	// called again whenever inputs other than parameter values change.
	Setup() error
	// Eval returns one value per sample of the requested channels,
	// concatenated in ascending channel order.
	Eval(opts EvalOptions) (timeseries.Masked, error)
}

// EvalOptions selects what a component evaluates.
type EvalOptions struct {
	// Channel restricts evaluation to one fitted channel.
	Channel *int
	// Planet restricts evaluation to one planet.
	Planet *int
	// LightCurve replaces the component's light curve, e.g. to evaluate
	// on a finer time grid.
	LightCurve *timeseries.LightCurve
	// Fit is the prediction of the other components, used by GP
	// components to form residuals. With Channel set it holds only that
	// channel's segment.
	Fit timeseries.Masked
}

// Channel returns a pointer to ch for use in EvalOptions.
func Channel(ch int) *int { return &ch }

// Planet returns a pointer to pid for use in EvalOptions.
func Planet(pid int) *int { return &pid }

// Base holds the state shared by every component.
type Base struct {
	Store      *params.Store
	LC         *timeseries.LightCurve
	NumPlanets int
}

func (b Base) validate() error {
	if b.Store == nil {
		return errors.New("model: nil parameter store")
	}
	if b.LC == nil {
		return errors.New("model: nil light curve")
	}
	if b.NumPlanets < 0 {
		return fmt.Errorf("model: negative planet count %d", b.NumPlanets)
	}
	return nil
}

func (b Base) planets(pid *int) []int {
	if pid != nil {
		return []int{*pid}
	}
	n := b.NumPlanets
	if n == 0 {
		n = 1
	}
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func (b Base) lightCurve(opts EvalOptions) *timeseries.LightCurve {
	if opts.LightCurve != nil {
		return opts.LightCurve
	}
	return b.LC
}

func channels(lc *timeseries.LightCurve, ch *int) []int {
	if ch != nil {
		return []int{*ch}
	}
	return lc.Channels()
}

// channelFunc evaluates one channel on its time axis. pc is the channel
// used to address parameters.
type channelFunc func(ch, pc int, time timeseries.Masked) (timeseries.Masked, error)

// perChannel runs fn over the requested channels and concatenates the
// results in channel order.
func (b Base) perChannel(opts EvalOptions, fn channelFunc) (timeseries.Masked, error) {
	lc := b.lightCurve(opts)
	chans := channels(lc, opts.Channel)
	parts := make(map[int]timeseries.Masked, len(chans))
	for _, ch := range chans {
		time, err := lc.ChannelTime(ch)
		if err != nil {
			return timeseries.Masked{}, err
		}
		seg, err := fn(ch, lc.ParamChannel(ch), time)
		if err != nil {
			return timeseries.Masked{}, fmt.Errorf("channel %d: %w", ch, err)
		}
		if seg.Len() != time.Len() {
			return timeseries.Masked{}, fmt.Errorf("channel %d: %d samples for %d times", ch, seg.Len(), time.Len())
		}
		parts[ch] = seg
	}
	return mergeChannels(lc, opts.Channel, parts)
}

// mergeChannels joins per-channel segments in layout order, checking each
// against its channel length. A single requested channel is returned as is.
func mergeChannels(lc *timeseries.LightCurve, ch *int, parts map[int]timeseries.Masked) (timeseries.Masked, error) {
	if ch != nil {
		return parts[*ch], nil
	}
	return lc.Layout().Merge(parts)
}

// withTimeMask carries the time mask onto a freshly computed curve.
func withTimeMask(values []float64, time timeseries.Masked) timeseries.Masked {
	return timeseries.Masked{Values: values}.WithMask(time.Mask)
}

// lookup resolves a channel-aliased scalar, returning def when absent.
func lookup(s *params.Store, name string, pc int, def float64) float64 {
	if v, ok := s.Lookup(name, 0, pc); ok {
		return v
	}
	return def
}
