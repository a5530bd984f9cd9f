// Package lcio reads and writes light curves and model predictions as
// Parquet files with one row per (channel, time) sample.
package lcio

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"

	"github.com/parquet-go/parquet-go"

	"github.com/banshee-data/transitfit/internal/timeseries"
)

// ErrNoRows is returned when a file has no samples for the requested
// channels.
var ErrNoRows = errors.New("lcio: no light-curve rows")

// Sample is one light-curve row. A zero UncFit means "same as Unc".
type Sample struct {
	Channel int32   `parquet:"channel,snappy"`
	Time    float64 `parquet:"time,snappy"`
	Flux    float64 `parquet:"flux,snappy"`
	Unc     float64 `parquet:"unc,snappy"`
	UncFit  float64 `parquet:"unc_fit,optional,snappy"`
	Masked  bool    `parquet:"masked,snappy"`
}

// Prediction is one row of an evaluated model.
type Prediction struct {
	Channel  int32   `parquet:"channel,snappy"`
	Time     float64 `parquet:"time,snappy"`
	Flux     float64 `parquet:"flux,snappy"`
	Model    float64 `parquet:"model,snappy"`
	GP       float64 `parquet:"gp,snappy"`
	Residual float64 `parquet:"residual,snappy"`
	Masked   bool    `parquet:"masked,snappy"`
}

// ReadOptions selects how rows become a LightCurve.
type ReadOptions struct {
	// Channels keeps only these channels; empty keeps every channel.
	Channels   []int
	MultiWhite bool
	TimeUnits  string
}

func writeRows[T any](path string, rows []T) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(rows); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finish parquet file: %w", err)
	}
	return file.Close()
}

func readRows[T any](path string) ([]T, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer func() { _ = file.Close() }()

	reader := parquet.NewGenericReader[T](file)
	defer func() { _ = reader.Close() }()

	rows := make([]T, reader.NumRows())
	n, err := reader.Read(rows)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read parquet rows: %w", err)
	}
	return rows[:n], nil
}

// ReadSamples returns every row of the light-curve file at path.
func ReadSamples(path string) ([]Sample, error) {
	return readRows[Sample](path)
}

// ReadLightCurve loads the file at path. Rows are grouped by channel in
// file order. Without multiwhite every kept channel must share the same
// time axis.
func ReadLightCurve(path string, opts ReadOptions) (*timeseries.LightCurve, error) {
	rows, err := ReadSamples(path)
	if err != nil {
		return nil, err
	}
	return FromSamples(rows, opts)
}

// FromSamples builds a LightCurve from rows.
func FromSamples(rows []Sample, opts ReadOptions) (*timeseries.LightCurve, error) {
	byChan := make(map[int][]Sample)
	for _, r := range rows {
		ch := int(r.Channel)
		if len(opts.Channels) > 0 && !slices.Contains(opts.Channels, ch) {
			continue
		}
		byChan[ch] = append(byChan[ch], r)
	}
	if len(byChan) == 0 {
		return nil, ErrNoRows
	}
	channels := make([]int, 0, len(byChan))
	for ch := range byChan {
		channels = append(channels, ch)
	}
	slices.Sort(channels)
	for _, ch := range opts.Channels {
		if _, ok := byChan[ch]; !ok {
			return nil, fmt.Errorf("%w: channel %d", ErrNoRows, ch)
		}
	}

	var time, flux, unc, uncFit []float64
	var mask []bool
	nints := make([]int, 0, len(channels))
	for k, ch := range channels {
		seg := byChan[ch]
		if opts.MultiWhite || k == 0 {
			for _, r := range seg {
				time = append(time, r.Time)
			}
		} else if err := sameTimes(time, seg); err != nil {
			return nil, fmt.Errorf("channel %d: %w", ch, err)
		}
		for _, r := range seg {
			flux = append(flux, r.Flux)
			unc = append(unc, r.Unc)
			uf := r.UncFit
			if uf == 0 {
				uf = r.Unc
			}
			uncFit = append(uncFit, uf)
			mask = append(mask, r.Masked)
		}
		nints = append(nints, len(seg))
	}

	fluxM := timeseries.Masked{Values: flux, Mask: mask}
	lcOpts := timeseries.Options{Channels: channels, MultiWhite: opts.MultiWhite, TimeUnits: opts.TimeUnits}
	if opts.MultiWhite {
		lcOpts.Nints = nints
	}
	return timeseries.NewLightCurve(
		timeseries.NewMasked(time),
		fluxM,
		timeseries.NewMasked(unc),
		timeseries.NewMasked(uncFit),
		lcOpts,
	)
}

func sameTimes(time []float64, seg []Sample) error {
	if len(seg) != len(time) {
		return fmt.Errorf("%d samples, first channel has %d; use multiwhite for per-channel time axes", len(seg), len(time))
	}
	for i, r := range seg {
		if r.Time != time[i] {
			return fmt.Errorf("time %g at row %d differs from first channel's %g", r.Time, i, time[i])
		}
	}
	return nil
}

// Samples flattens lc into rows in channel order.
func Samples(lc *timeseries.LightCurve) ([]Sample, error) {
	out := make([]Sample, 0, lc.Flux.Len())
	err := eachSample(lc, func(ch, i int, t float64) {
		out = append(out, Sample{
			Channel: int32(ch),
			Time:    t,
			Flux:    lc.Flux.Values[i],
			Unc:     lc.Unc.Values[i],
			UncFit:  lc.UncFit.Values[i],
			Masked:  lc.Flux.IsMasked(i),
		})
	})
	return out, err
}

// eachSample calls fn with the channel, flat flux index and time of every
// sample of lc.
func eachSample(lc *timeseries.LightCurve, fn func(ch, i int, t float64)) error {
	for _, ch := range lc.Channels() {
		start, end, err := lc.Layout().Range(ch)
		if err != nil {
			return err
		}
		time, err := lc.ChannelTime(ch)
		if err != nil {
			return err
		}
		for i := start; i < end; i++ {
			fn(ch, i, time.Values[i-start])
		}
	}
	return nil
}

// WriteLightCurve writes lc to path.
func WriteLightCurve(path string, lc *timeseries.LightCurve) error {
	rows, err := Samples(lc)
	if err != nil {
		return err
	}
	return writeRows(path, rows)
}

// Predictions pairs lc with a model evaluated on it and the GP part of
// that model, which may be empty.
func Predictions(lc *timeseries.LightCurve, fit, gp timeseries.Masked) ([]Prediction, error) {
	if fit.Len() != lc.Flux.Len() {
		return nil, fmt.Errorf("model has %d samples, light curve %d", fit.Len(), lc.Flux.Len())
	}
	if gp.Len() != 0 && gp.Len() != fit.Len() {
		return nil, fmt.Errorf("GP has %d samples, model %d", gp.Len(), fit.Len())
	}
	out := make([]Prediction, 0, fit.Len())
	err := eachSample(lc, func(ch, i int, t float64) {
		p := Prediction{
			Channel:  int32(ch),
			Time:     t,
			Flux:     lc.Flux.Values[i],
			Model:    fit.Values[i],
			Residual: lc.Flux.Values[i] - fit.Values[i],
			Masked:   lc.Flux.IsMasked(i) || fit.IsMasked(i),
		}
		if gp.Len() != 0 {
			p.GP = gp.Values[i]
		}
		if math.IsNaN(p.Residual) {
			p.Masked = true
		}
		out = append(out, p)
	})
	return out, err
}

// WritePredictions writes rows to path.
func WritePredictions(path string, rows []Prediction) error {
	return writeRows(path, rows)
}

// ReadPredictions returns every row of the prediction file at path.
func ReadPredictions(path string) ([]Prediction, error) {
	return readRows[Prediction](path)
}
