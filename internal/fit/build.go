package fit

import (
	"fmt"

	"github.com/banshee-data/transitfit/internal/config"
	"github.com/banshee-data/transitfit/internal/limbdark"
	"github.com/banshee-data/transitfit/internal/model"
	"github.com/banshee-data/transitfit/internal/params"
	"github.com/banshee-data/transitfit/internal/timeseries"
)

// Build assembles the composite model cfg describes over lc, reading
// parameters from s. A sinusoid phase curve absorbs the transit and
// eclipse models instead of multiplying them in separately.
func Build(cfg *config.FitConfig, s *params.Store, lc *timeseries.LightCurve) (*model.CompositeModel, error) {
	b := model.Base{Store: s, LC: lc, NumPlanets: cfg.NumPlanets}

	var (
		components []model.Model
		transit    *model.TransitModel
		eclipse    *model.EclipseModel
		err        error
	)
	if cfg.HasModel(config.ModelTransit) {
		if transit, err = model.NewTransitModel(b); err != nil {
			return nil, err
		}
		if cfg.LDFile != "" {
			table, err := limbdark.ReadTableFile(cfg.LDFile)
			if err != nil {
				return nil, err
			}
			if err := transit.ApplyLimbDarkening(table, cfg.RecenterLDPrior); err != nil {
				return nil, err
			}
		}
	}
	if cfg.HasModel(config.ModelEclipse) {
		if eclipse, err = model.NewEclipseModel(b, cfg.GetComputeLTT()); err != nil {
			return nil, err
		}
	}
	if cfg.HasModel(config.ModelPhaseCurve) {
		pc, err := model.NewSinusoidPhaseCurveModel(b, transit, eclipse, cfg.ForcePositivity)
		if err != nil {
			return nil, err
		}
		components = append(components, pc)
	} else {
		if transit != nil {
			components = append(components, transit)
		}
		if eclipse != nil {
			components = append(components, eclipse)
		}
	}
	if cfg.HasModel(config.ModelPolynomial) {
		m, err := model.NewPolynomialModel(b)
		if err != nil {
			return nil, err
		}
		components = append(components, m)
	}
	if cfg.HasModel(config.ModelDampedOsc) {
		m, err := model.NewDampedOscillatorModel(b)
		if err != nil {
			return nil, err
		}
		components = append(components, m)
	}
	if cfg.HasModel(config.ModelGP) {
		m, err := model.NewGPModel(b, model.GPConfig{
			KernelClasses: cfg.KernelClasses,
			KernelInputs:  cfg.KernelInputs,
			Backend:       cfg.GPBackend,
			Normalize:     cfg.NormalizeKernelInputs,
		})
		if err != nil {
			return nil, err
		}
		components = append(components, m)
	}
	if len(components) == 0 {
		return nil, fmt.Errorf("fit: no model components configured")
	}
	return model.NewCompositeModel(lc, components...)
}

// NewFactory returns a Factory that builds cfg's model over lc for each
// store it is handed.
func NewFactory(cfg *config.FitConfig, lc *timeseries.LightCurve) Factory {
	return func(s *params.Store) (*Objective, error) {
		comp, err := Build(cfg, s, lc)
		if err != nil {
			return nil, err
		}
		return NewObjective(s, comp)
	}
}
