// Package timeseries provides masked sample arrays and the channel layout
// that splits one flattened light curve into contiguous per-channel
// segments and merges per-channel results back together.
package timeseries

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Masked is a sequence of samples with an optional validity mask. A true
// mask entry marks the sample as excluded. A nil Mask masks nothing.
type Masked struct {
	Values []float64
	Mask   []bool
}

// NewMasked wraps values with no samples masked.
func NewMasked(values []float64) Masked {
	return Masked{Values: values}
}

// Full returns n samples equal to v.
func Full(n int, v float64) Masked {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return Masked{Values: out}
}

// Ones returns n samples equal to 1.
func Ones(n int) Masked { return Full(n, 1) }

// Zeros returns n samples equal to 0.
func Zeros(n int) Masked { return Masked{Values: make([]float64, n)} }

// Len returns the number of samples.
func (m Masked) Len() int { return len(m.Values) }

// IsMasked reports whether sample i is excluded.
func (m Masked) IsMasked(i int) bool {
	return m.Mask != nil && m.Mask[i]
}

// Copy returns a deep copy.
func (m Masked) Copy() Masked {
	out := Masked{Values: append([]float64(nil), m.Values...)}
	if m.Mask != nil {
		out.Mask = append([]bool(nil), m.Mask...)
	}
	return out
}

// MaskArray returns the mask as a full-length slice.
func (m Masked) MaskArray() []bool {
	out := make([]bool, len(m.Values))
	if m.Mask != nil {
		copy(out, m.Mask)
	}
	return out
}

// WithMask returns a copy whose mask is the union of m's mask and extra.
func (m Masked) WithMask(extra []bool) Masked {
	out := m.Copy()
	if extra == nil {
		return out
	}
	mask := out.MaskArray()
	for i := range mask {
		mask[i] = mask[i] || extra[i]
	}
	out.Mask = mask
	return out
}

// MaskInvalid returns a copy with every non-finite sample masked.
func (m Masked) MaskInvalid() Masked {
	out := m.Copy()
	mask := out.MaskArray()
	hit := false
	for i, v := range out.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			mask[i] = true
		}
		hit = hit || mask[i]
	}
	if hit {
		out.Mask = mask
	}
	return out
}

// Slice returns samples [lo, hi) sharing no memory with m.
func (m Masked) Slice(lo, hi int) Masked {
	out := Masked{Values: append([]float64(nil), m.Values[lo:hi]...)}
	if m.Mask != nil {
		out.Mask = append([]bool(nil), m.Mask[lo:hi]...)
	}
	return out
}

// Good returns the indices of unmasked samples.
func (m Masked) Good() []int {
	idx := make([]int, 0, len(m.Values))
	for i := range m.Values {
		if !m.IsMasked(i) {
			idx = append(idx, i)
		}
	}
	return idx
}

// Compressed returns the unmasked values.
func (m Masked) Compressed() []float64 {
	out := make([]float64, 0, len(m.Values))
	for i, v := range m.Values {
		if !m.IsMasked(i) {
			out = append(out, v)
		}
	}
	return out
}

// Take returns the values at idx.
func (m Masked) Take(idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = m.Values[j]
	}
	return out
}

// Scatter builds an n-sample array holding vals at idx with every other
// position masked.
func Scatter(n int, idx []int, vals []float64) Masked {
	out := Masked{Values: make([]float64, n), Mask: make([]bool, n)}
	for i := range out.Mask {
		out.Mask[i] = true
	}
	for i, j := range idx {
		out.Values[j] = vals[i]
		out.Mask[j] = false
	}
	return out
}

// Mul multiplies m by o element-wise; the result mask is the union.
func (m Masked) Mul(o Masked) (Masked, error) {
	if m.Len() != o.Len() {
		return Masked{}, fmt.Errorf("length mismatch: %d vs %d", m.Len(), o.Len())
	}
	out := m.WithMask(o.Mask)
	floats.Mul(out.Values, o.Values)
	return out, nil
}

// Add adds o to m element-wise; the result mask is the union.
func (m Masked) Add(o Masked) (Masked, error) {
	if m.Len() != o.Len() {
		return Masked{}, fmt.Errorf("length mismatch: %d vs %d", m.Len(), o.Len())
	}
	out := m.WithMask(o.Mask)
	floats.Add(out.Values, o.Values)
	return out, nil
}

// Sub subtracts o from m element-wise; the result mask is the union.
func (m Masked) Sub(o Masked) (Masked, error) {
	if m.Len() != o.Len() {
		return Masked{}, fmt.Errorf("length mismatch: %d vs %d", m.Len(), o.Len())
	}
	out := m.WithMask(o.Mask)
	floats.Sub(out.Values, o.Values)
	return out, nil
}

// AddScalar returns m + v.
func (m Masked) AddScalar(v float64) Masked {
	out := m.Copy()
	floats.AddConst(v, out.Values)
	return out
}

// MeanStd returns the mean and population standard deviation of the
// unmasked samples.
func (m Masked) MeanStd() (mean, std float64) {
	vals := m.Compressed()
	if len(vals) == 0 {
		return 0, 0
	}
	return stat.PopMeanStdDev(vals, nil)
}

// Mean returns the mean of the unmasked samples.
func (m Masked) Mean() float64 {
	vals := m.Compressed()
	if len(vals) == 0 {
		return 0
	}
	return stat.Mean(vals, nil)
}

// Concat joins parts in order. The mask is kept only if some part has one.
func Concat(parts ...Masked) Masked {
	n := 0
	hasMask := false
	for _, p := range parts {
		n += p.Len()
		hasMask = hasMask || p.Mask != nil
	}
	out := Masked{Values: make([]float64, 0, n)}
	if hasMask {
		out.Mask = make([]bool, 0, n)
	}
	for _, p := range parts {
		out.Values = append(out.Values, p.Values...)
		if hasMask {
			out.Mask = append(out.Mask, p.MaskArray()...)
		}
	}
	return out
}
