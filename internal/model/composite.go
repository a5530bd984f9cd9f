package model

import (
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/transitfit/internal/timeseries"
)

// CompositeModel combines components into the full light-curve
// prediction: the product of every physical and systematic component,
// plus the GP prediction of the remaining residuals when requested.
type CompositeModel struct {
	lc         *timeseries.LightCurve
	components []Model
	gp         *GPModel
}

// NewCompositeModel groups components evaluated on lc. At most one GP
// component is allowed.
func NewCompositeModel(lc *timeseries.LightCurve, components ...Model) (*CompositeModel, error) {
	if lc == nil {
		return nil, errors.New("composite: nil light curve")
	}
	c := &CompositeModel{lc: lc, components: components}
	for _, comp := range components {
		if comp.Type() != GPType {
			continue
		}
		g, ok := comp.(*GPModel)
		if !ok {
			return nil, fmt.Errorf("composite: GP component %q has unexpected type %T", comp.Name(), comp)
		}
		if c.gp != nil {
			return nil, fmt.Errorf("%w: more than one GP component", ErrMultiDimensionalGP)
		}
		c.gp = g
	}
	return c, nil
}

// Components returns the wrapped components.
func (c *CompositeModel) Components() []Model { return c.components }

// HasGP reports whether a GP component is present.
func (c *CompositeModel) HasGP() bool { return c.gp != nil }

// LightCurve returns the light curve the model is fitted to.
func (c *CompositeModel) LightCurve() *timeseries.LightCurve { return c.lc }

// Setup prepares every component.
func (c *CompositeModel) Setup() error {
	for _, comp := range c.components {
		if err := comp.Setup(); err != nil {
			return fmt.Errorf("setup %s: %w", comp.Name(), err)
		}
	}
	return nil
}

// outputLen returns the flattened length produced for channel on lc.
func outputLen(lc *timeseries.LightCurve, channel *int) (int, error) {
	if channel == nil {
		return lc.Layout().Total(), nil
	}
	return lc.Layout().Len(*channel)
}

// product multiplies the components accepted by keep into a vector of
// ones.
func (c *CompositeModel) product(lc *timeseries.LightCurve, channel *int, keep func(Model) bool) (timeseries.Masked, error) {
	n, err := outputLen(lc, channel)
	if err != nil {
		return timeseries.Masked{}, err
	}
	flux := timeseries.Ones(n)
	for _, comp := range c.components {
		if !keep(comp) {
			continue
		}
		v, err := comp.Eval(EvalOptions{Channel: channel, LightCurve: lc})
		if err != nil {
			return timeseries.Masked{}, fmt.Errorf("%s: %w", comp.Name(), err)
		}
		if flux, err = flux.Mul(v); err != nil {
			return timeseries.Masked{}, fmt.Errorf("%s: %w", comp.Name(), err)
		}
	}
	return flux, nil
}

// Eval returns the product of every non-GP component, plus the GP
// prediction when inclGP is set.
func (c *CompositeModel) Eval(channel *int, inclGP bool) (timeseries.Masked, error) {
	flux, err := c.product(c.lc, channel, func(m Model) bool { return m.Type() != GPType })
	if err != nil {
		return timeseries.Masked{}, err
	}
	return c.addGP(flux, channel, inclGP)
}

// SysEval returns the product of the systematic components, plus the GP
// prediction when inclGP is set.
func (c *CompositeModel) SysEval(channel *int, inclGP bool) (timeseries.Masked, error) {
	flux, err := c.product(c.lc, channel, func(m Model) bool { return m.Type() == Systematic })
	if err != nil {
		return timeseries.Masked{}, err
	}
	return c.addGP(flux, channel, inclGP)
}

func (c *CompositeModel) addGP(flux timeseries.Masked, channel *int, inclGP bool) (timeseries.Masked, error) {
	if !inclGP {
		return flux, nil
	}
	g, err := c.GPEval(flux, channel)
	if err != nil {
		return timeseries.Masked{}, err
	}
	return flux.Add(g)
}

// GPEval returns the GP prediction of the residuals of fit, or zeros when
// there is no GP component.
func (c *CompositeModel) GPEval(fit timeseries.Masked, channel *int) (timeseries.Masked, error) {
	if c.gp == nil {
		n, err := outputLen(c.lc, channel)
		if err != nil {
			return timeseries.Masked{}, err
		}
		return timeseries.Zeros(n), nil
	}
	return c.gp.Eval(EvalOptions{Channel: channel, Fit: fit})
}

// GPLogLikelihood returns the GP marginal log-likelihood of the residuals
// of fit.
func (c *CompositeModel) GPLogLikelihood(fit timeseries.Masked, channel *int) (float64, error) {
	if c.gp == nil {
		return 0, ErrNoGP
	}
	return c.gp.LogLikelihood(fit, channel)
}

// Interp evaluates the physical and systematic components on a new time
// axis. nints gives the new per-channel lengths of a multiwhite light
// curve and is ignored otherwise.
func (c *CompositeModel) Interp(newTime timeseries.Masked, nints []int, channel *int) (timeseries.Masked, error) {
	lc, err := c.lc.WithTime(newTime, nints)
	if err != nil {
		return timeseries.Masked{}, err
	}
	return c.product(lc, channel, func(m Model) bool { return m.Type() != GPType })
}

// PhysEval returns the product of the physical components. With interp
// set, they are evaluated on an evenly spaced grid spanning each channel's
// unmasked times. It also returns the time axis and per-channel lengths
// the prediction corresponds to.
func (c *CompositeModel) PhysEval(channel *int, interp bool) (timeseries.Masked, timeseries.Masked, []int, error) {
	physical := func(m Model) bool { return m.Type() == Physical }
	lc := c.lc
	if interp {
		var err error
		if lc, err = c.interpLightCurve(); err != nil {
			return timeseries.Masked{}, timeseries.Masked{}, nil, err
		}
	}
	flux, err := c.product(lc, channel, physical)
	if err != nil {
		return timeseries.Masked{}, timeseries.Masked{}, nil, err
	}
	newTime := lc.Time
	nints := lc.Nints()
	if channel != nil {
		if newTime, err = lc.ChannelTime(*channel); err != nil {
			return timeseries.Masked{}, timeseries.Masked{}, nil, err
		}
		nints = []int{newTime.Len()}
	}
	return flux, newTime, nints, nil
}

// interpLightCurve builds the evenly sampled light curve used by PhysEval.
// Multiwhite channels use their smallest sample spacing; a shared time
// axis uses its first spacing.
func (c *CompositeModel) interpLightCurve() (*timeseries.LightCurve, error) {
	if !c.lc.MultiWhite {
		grid, err := evenGrid(timeseries.NewMasked(c.lc.Time.Compressed()), false)
		if err != nil {
			return nil, err
		}
		return c.lc.WithTime(grid, nil)
	}
	var parts []timeseries.Masked
	var nints []int
	for _, ch := range c.lc.Channels() {
		t, err := c.lc.ChannelTime(ch)
		if err != nil {
			return nil, err
		}
		grid, err := evenGrid(timeseries.NewMasked(t.Compressed()), true)
		if err != nil {
			return nil, fmt.Errorf("channel %d: %w", ch, err)
		}
		parts = append(parts, grid)
		nints = append(nints, grid.Len())
	}
	return c.lc.WithTime(timeseries.Concat(parts...), nints)
}

func evenGrid(t timeseries.Masked, minSpacing bool) (timeseries.Masked, error) {
	v := t.Values
	if len(v) < 2 {
		return timeseries.Masked{}, errors.New("interp: need at least two unmasked times")
	}
	dt := v[1] - v[0]
	if minSpacing {
		for i := 2; i < len(v); i++ {
			dt = math.Min(dt, v[i]-v[i-1])
		}
	}
	if dt <= 0 {
		return timeseries.Masked{}, fmt.Errorf("interp: non-increasing times (spacing %g)", dt)
	}
	first, last := v[0], v[len(v)-1]
	steps := int(math.Round((last-first)/dt + 1))
	grid := make([]float64, steps)
	for i := range grid {
		if steps == 1 {
			grid[i] = first
			break
		}
		grid[i] = first + (last-first)*float64(i)/float64(steps-1)
	}
	return timeseries.NewMasked(grid), nil
}
