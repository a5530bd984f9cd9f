package fit

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// maxGridPoints bounds the number of points a scan may expand to.
const maxGridPoints = 100000

// Axis is one scanned parameter and the values it takes.
type Axis struct {
	Name   string
	Values []float64
}

// RangeSpec is a floating-point "min:max:step" range.
type RangeSpec struct {
	Min  float64
	Max  float64
	Step float64
}

// ParseRangeSpec parses a "min:max:step" string into a RangeSpec.
func ParseRangeSpec(s string) (RangeSpec, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return RangeSpec{}, fmt.Errorf("invalid range format %q: expected min:max:step", s)
	}
	var vals [3]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return RangeSpec{}, fmt.Errorf("invalid range value %q: %w", p, err)
		}
		vals[i] = v
	}
	if vals[2] <= 0 {
		return RangeSpec{}, fmt.Errorf("step must be positive, got %g", vals[2])
	}
	if vals[0] > vals[1] {
		return RangeSpec{}, fmt.Errorf("range min %g exceeds max %g", vals[0], vals[1])
	}
	return RangeSpec{Min: vals[0], Max: vals[1], Step: vals[2]}, nil
}

// Values lists min, min+step, ... up to max inclusive. Each value is
// computed from its index so long ranges do not accumulate rounding.
func (r RangeSpec) Values() []float64 {
	n := int(math.Floor((r.Max-r.Min)/r.Step+1e-9)) + 1
	if n <= 0 || n > maxGridPoints {
		return nil
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = r.Min + float64(i)*r.Step
	}
	return out
}

// ParseCSVFloat64s parses a comma-separated list of float64 values.
// Returns nil, nil for empty input strings.
func ParseCSVFloat64s(s string) ([]float64, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float '%s': %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// ParseAxis parses "name=min:max:step" or "name=v1,v2,...".
func ParseAxis(s string) (Axis, error) {
	name, spec, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return Axis{}, fmt.Errorf("invalid grid axis %q: expected name=values", s)
	}
	var vals []float64
	if strings.Contains(spec, ":") {
		r, err := ParseRangeSpec(spec)
		if err != nil {
			return Axis{}, fmt.Errorf("axis %s: %w", name, err)
		}
		vals = r.Values()
	} else {
		var err error
		if vals, err = ParseCSVFloat64s(spec); err != nil {
			return Axis{}, fmt.Errorf("axis %s: %w", name, err)
		}
	}
	if len(vals) == 0 {
		return Axis{}, fmt.Errorf("axis %s: no values", name)
	}
	return Axis{Name: name, Values: vals}, nil
}

// ExpandGrid returns the cartesian product of the axes' values. The last
// axis varies fastest.
func ExpandGrid(axes []Axis) ([][]float64, error) {
	if len(axes) == 0 {
		return nil, nil
	}
	total := 1
	for _, a := range axes {
		if len(a.Values) == 0 {
			return nil, fmt.Errorf("axis %s has no values", a.Name)
		}
		total *= len(a.Values)
		if total > maxGridPoints {
			return nil, fmt.Errorf("grid would exceed safe limit of %d points", maxGridPoints)
		}
	}

	result := make([][]float64, total)
	for i := range result {
		result[i] = make([]float64, len(axes))
	}
	repeat := 1
	for dim := len(axes) - 1; dim >= 0; dim-- {
		vals := axes[dim].Values
		for i := range total {
			result[i][dim] = vals[(i/repeat)%len(vals)]
		}
		repeat *= len(vals)
	}
	return result, nil
}
