// Package gp implements a dense Gaussian process over a scalar input. The
// covariance K + diag(yerr^2) is factorized once by Cholesky decomposition
// and reused for the conditional mean and the marginal likelihood.
package gp

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/transitfit/internal/kernel"
)

var (
	// ErrNotPositiveDefinite is returned when the covariance cannot be
	// factorized.
	ErrNotPositiveDefinite = errors.New("covariance matrix is not positive definite")
	// ErrLengthMismatch is returned when input arrays are not aligned.
	ErrLengthMismatch = errors.New("gp input length mismatch")
)

var log2Pi = math.Log(2 * math.Pi)

// GP is a factorized Gaussian process at fixed inputs.
type GP struct {
	kernel kernel.Kernel
	x      []float64
	cov    *mat.SymDense
	chol   mat.Cholesky
}

// New computes the factorization of k at x with per-point white noise
// yerr.
func New(k kernel.Kernel, x, yerr []float64) (*GP, error) {
	if len(x) != len(yerr) {
		return nil, fmt.Errorf("%w: %d inputs, %d uncertainties", ErrLengthMismatch, len(x), len(yerr))
	}
	g := &GP{kernel: k, x: append([]float64(nil), x...)}
	if len(x) == 0 {
		return g, nil
	}
	g.cov = kernel.Matrix(k, x)
	noisy := mat.NewSymDense(len(x), nil)
	noisy.CopySym(g.cov)
	for i, e := range yerr {
		noisy.SetSym(i, i, noisy.At(i, i)+e*e)
	}
	if ok := g.chol.Factorize(noisy); !ok {
		return nil, ErrNotPositiveDefinite
	}
	return g, nil
}

// Len returns the number of inputs.
func (g *GP) Len() int { return len(g.x) }

func (g *GP) alpha(y []float64) (*mat.VecDense, error) {
	if len(y) != len(g.x) {
		return nil, fmt.Errorf("%w: %d values for %d inputs", ErrLengthMismatch, len(y), len(g.x))
	}
	var a mat.VecDense
	if err := g.chol.SolveVecTo(&a, mat.NewVecDense(len(y), append([]float64(nil), y...))); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotPositiveDefinite, err)
	}
	return &a, nil
}

// Predict returns the conditional mean of the process at its own inputs
// given observations y.
func (g *GP) Predict(y []float64) ([]float64, error) {
	if len(g.x) == 0 {
		if len(y) != 0 {
			return nil, fmt.Errorf("%w: %d values for 0 inputs", ErrLengthMismatch, len(y))
		}
		return []float64{}, nil
	}
	a, err := g.alpha(y)
	if err != nil {
		return nil, err
	}
	var mu mat.VecDense
	mu.MulVec(g.cov, a)
	return mu.RawVector().Data, nil
}

// LogLikelihood returns the marginal log-likelihood of y:
// -1/2 y^T C^-1 y - 1/2 log|C| - n/2 log(2 pi).
func (g *GP) LogLikelihood(y []float64) (float64, error) {
	n := len(g.x)
	if n == 0 {
		if len(y) != 0 {
			return 0, fmt.Errorf("%w: %d values for 0 inputs", ErrLengthMismatch, len(y))
		}
		return 0, nil
	}
	a, err := g.alpha(y)
	if err != nil {
		return 0, err
	}
	quadForm := mat.Dot(mat.NewVecDense(n, append([]float64(nil), y...)), a)
	return -0.5*quadForm - 0.5*g.chol.LogDet() - 0.5*float64(n)*log2Pi, nil
}
