package model

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/banshee-data/transitfit/internal/gp"
	"github.com/banshee-data/transitfit/internal/kernel"
	"github.com/banshee-data/transitfit/internal/monitoring"
	"github.com/banshee-data/transitfit/internal/params"
	"github.com/banshee-data/transitfit/internal/timeseries"
)

// BackendDense names the dense Cholesky GP solver, the only one available.
const BackendDense = "dense"

// GPConfig selects the kernel composition of a GPModel.
type GPConfig struct {
	KernelClasses []string
	KernelInputs  []string
	Backend       string
	Normalize     bool
}

// GPModel is a zero-mean Gaussian process fitted to the residuals of the
// other components. The k-th kernel has amplitude exp(A<k>) and length
// scale exp(m<k>), where k is omitted for the first kernel.
type GPModel struct {
	Base
	cfg    GPConfig
	inputs map[int]timeseries.Masked
}

// NewGPModel validates cfg and returns an unsetup model.
func NewGPModel(b Base, cfg GPConfig) (*GPModel, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}
	if cfg.Backend == "" {
		cfg.Backend = BackendDense
	}
	if cfg.Backend != BackendDense {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnsupportedBackend, cfg.Backend, BackendDense)
	}
	if len(cfg.KernelClasses) == 0 {
		return nil, fmt.Errorf("%w: no kernel classes", kernel.ErrUnsupportedKernel)
	}
	if len(cfg.KernelClasses) > 1 {
		return nil, fmt.Errorf("%w: %d kernels requested", ErrMultiDimensionalGP, len(cfg.KernelClasses))
	}
	for _, name := range cfg.KernelClasses {
		if err := kernel.Validate(name); err != nil {
			return nil, err
		}
	}
	if len(cfg.KernelInputs) == 0 {
		cfg.KernelInputs = []string{"time"}
	}
	for _, in := range cfg.KernelInputs {
		if in != "time" {
			return nil, fmt.Errorf("%w: %q (only time is supported)", ErrUnsupportedKernelInput, in)
		}
	}
	return &GPModel{Base: b, cfg: cfg}, nil
}

func (m *GPModel) Name() string { return "GP" }
func (m *GPModel) Type() Type   { return GPType }

// Setup computes the kernel inputs of every fitted channel, normalized
// when configured, and checks that each channel's kernel can be built.
func (m *GPModel) Setup() error {
	m.inputs = make(map[int]timeseries.Masked, m.LC.NChannels())
	for _, ch := range m.LC.Channels() {
		if _, err := m.Kernel(m.LC.ParamChannel(ch)); err != nil {
			return err
		}
		x, err := m.LC.ChannelTime(ch)
		if err != nil {
			return err
		}
		if m.cfg.Normalize {
			x = normalize(x, ch)
		}
		m.inputs[ch] = x
	}
	return nil
}

func normalize(x timeseries.Masked, ch int) timeseries.Masked {
	mean, std := x.MeanStd()
	out := x.AddScalar(-mean)
	if std == 0 || math.IsNaN(std) {
		monitoring.Once("gp-normalize-"+strconv.Itoa(ch), "GP kernel input of channel %d has zero spread, leaving it unscaled", ch)
		return out
	}
	for i := range out.Values {
		out.Values[i] /= std
	}
	return out
}

// kernelKey returns the store name of hyperparameter par for kernel k.
func kernelKey(par string, k int) string {
	if k == 0 {
		return par
	}
	return par + strconv.Itoa(k)
}

// Kernel builds the kernel of parameter channel pc from the store.
func (m *GPModel) Kernel(pc int) (kernel.Kernel, error) {
	var sum kernel.Sum
	for k, name := range m.cfg.KernelClasses {
		logAmp, ok := m.Store.Lookup(kernelKey("A", k), 0, pc)
		if !ok {
			return nil, fmt.Errorf("%w: %s", params.ErrUnknownParameter, kernelKey("A", k))
		}
		logRho, ok := m.Store.Lookup(kernelKey("m", k), 0, pc)
		if !ok {
			return nil, fmt.Errorf("%w: %s", params.ErrUnknownParameter, kernelKey("m", k))
		}
		term, err := kernel.FromLog(name, logAmp, logRho)
		if err != nil {
			return nil, err
		}
		sum = append(sum, term)
	}
	if len(sum) == 1 {
		return sum[0], nil
	}
	return sum, nil
}

// residualGP prepares the factorized process of one channel. fit holds the
// channel's segment of the other components' prediction.
func (m *GPModel) residualGP(ch int, fit timeseries.Masked) (*gp.GP, timeseries.Masked, []int, error) {
	if m.inputs == nil {
		if err := m.Setup(); err != nil {
			return nil, timeseries.Masked{}, nil, err
		}
	}
	flux, err := m.LC.ChannelFlux(ch)
	if err != nil {
		return nil, timeseries.Masked{}, nil, err
	}
	uncFit, err := m.LC.ChannelUncFit(ch)
	if err != nil {
		return nil, timeseries.Masked{}, nil, err
	}
	time, err := m.LC.ChannelTime(ch)
	if err != nil {
		return nil, timeseries.Masked{}, nil, err
	}
	resid, err := flux.Sub(fit)
	if err != nil {
		return nil, timeseries.Masked{}, nil, err
	}
	resid = resid.MaskInvalid().WithMask(time.Mask)
	good := resid.Good()

	k, err := m.Kernel(m.LC.ParamChannel(ch))
	if err != nil {
		return nil, timeseries.Masked{}, nil, err
	}
	g, err := gp.New(k, m.inputs[ch].Take(good), uncFit.Take(good))
	if err != nil {
		return nil, timeseries.Masked{}, nil, fmt.Errorf("channel %d: %w", ch, err)
	}
	return g, resid, good, nil
}

// channelFit returns channel ch's segment of fit.
func (m *GPModel) channelFit(opts EvalOptions, ch int) (timeseries.Masked, error) {
	if opts.Channel != nil {
		return opts.Fit, nil
	}
	return m.LC.Layout().Split(opts.Fit, ch)
}

// Eval returns the conditional-mean GP prediction of the residuals
// LC.Flux - opts.Fit. Samples excluded from the fit stay masked.
func (m *GPModel) Eval(opts EvalOptions) (timeseries.Masked, error) {
	if opts.LightCurve != nil {
		return timeseries.Masked{}, errors.New("GP model evaluates only on its own light curve")
	}
	parts := make(map[int]timeseries.Masked, m.LC.NChannels())
	for _, ch := range channels(m.LC, opts.Channel) {
		fit, err := m.channelFit(opts, ch)
		if err != nil {
			return timeseries.Masked{}, err
		}
		g, resid, good, err := m.residualGP(ch, fit)
		if err != nil {
			return timeseries.Masked{}, err
		}
		mu, err := g.Predict(resid.Take(good))
		if err != nil {
			return timeseries.Masked{}, err
		}
		parts[ch] = timeseries.Scatter(resid.Len(), good, mu)
	}
	return mergeChannels(m.LC, opts.Channel, parts)
}

// LogLikelihood sums the GP marginal log-likelihood of the residuals
// LC.Flux - fit over the requested channels.
func (m *GPModel) LogLikelihood(fit timeseries.Masked, channel *int) (float64, error) {
	opts := EvalOptions{Channel: channel, Fit: fit}
	var logL float64
	for _, ch := range channels(m.LC, channel) {
		seg, err := m.channelFit(opts, ch)
		if err != nil {
			return 0, err
		}
		g, resid, good, err := m.residualGP(ch, seg)
		if err != nil {
			return 0, err
		}
		ll, err := g.LogLikelihood(resid.Take(good))
		if err != nil {
			return 0, err
		}
		logL += ll
	}
	return logL, nil
}
