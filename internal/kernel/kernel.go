// Package kernel provides stationary covariance functions over a scalar
// input and the sum, product and scaling combinators used to compose them.
// Kernels are immutable values; a new kernel is built whenever its
// hyperparameters change.
package kernel

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrUnsupportedKernel is returned for a kernel name with no implementation.
var ErrUnsupportedKernel = errors.New("unsupported kernel")

// Kernel is a covariance function of two inputs.
type Kernel interface {
	Eval(x1, x2 float64) float64
}

// Matern32 is the unit-variance Matern-3/2 kernel
// (1 + sqrt(3) tau/rho) exp(-sqrt(3) tau/rho).
type Matern32 struct {
	Rho float64
}

func (k Matern32) Eval(x1, x2 float64) float64 {
	r := math.Sqrt(3) * math.Abs(x1-x2) / k.Rho
	return (1 + r) * math.Exp(-r)
}

// Exp is the unit-variance exponential kernel exp(-tau/rho).
type Exp struct {
	Rho float64
}

func (k Exp) Eval(x1, x2 float64) float64 {
	return math.Exp(-math.Abs(x1-x2) / k.Rho)
}

// ExpSquared is the unit-variance squared-exponential kernel
// exp(-tau^2 / (2 rho^2)).
type ExpSquared struct {
	Rho float64
}

func (k ExpSquared) Eval(x1, x2 float64) float64 {
	d := (x1 - x2) / k.Rho
	return math.Exp(-0.5 * d * d)
}

// Scaled multiplies a kernel by a constant amplitude.
type Scaled struct {
	Amp    float64
	Kernel Kernel
}

func (k Scaled) Eval(x1, x2 float64) float64 {
	return k.Amp * k.Kernel.Eval(x1, x2)
}

// Sum adds its terms.
type Sum []Kernel

func (k Sum) Eval(x1, x2 float64) float64 {
	var v float64
	for _, t := range k {
		v += t.Eval(x1, x2)
	}
	return v
}

// Product multiplies its terms.
type Product []Kernel

func (k Product) Eval(x1, x2 float64) float64 {
	v := 1.0
	for _, t := range k {
		v *= t.Eval(x1, x2)
	}
	return v
}

// Names lists the kernel classes New accepts.
var Names = []string{"Matern32", "Exp", "ExpSquared"}

// New returns the named unit-variance kernel with length scale rho.
func New(name string, rho float64) (Kernel, error) {
	switch name {
	case "Matern32":
		return Matern32{Rho: rho}, nil
	case "Exp":
		return Exp{Rho: rho}, nil
	case "ExpSquared", "RBF":
		return ExpSquared{Rho: rho}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedKernel, name)
}

// Validate reports ErrUnsupportedKernel for an unknown name without
// building a kernel.
func Validate(name string) error {
	_, err := New(name, 1)
	return err
}

// FromLog builds amp * kernel(rho) with amp = exp(logAmp) and
// rho = exp(logRho), so any real hyperparameters give a valid kernel.
func FromLog(name string, logAmp, logRho float64) (Kernel, error) {
	k, err := New(name, math.Exp(logRho))
	if err != nil {
		return nil, err
	}
	return Scaled{Amp: math.Exp(logAmp), Kernel: k}, nil
}

// Matrix returns the symmetric covariance of k over x.
func Matrix(k Kernel, x []float64) *mat.SymDense {
	n := len(x)
	m := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			m.SetSym(i, j, k.Eval(x[i], x[j]))
		}
	}
	return m
}
