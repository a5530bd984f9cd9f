// Package report renders fit results, scans and stored runs as terminal
// tables or JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/banshee-data/transitfit/internal/fit"
	"github.com/banshee-data/transitfit/internal/params"
	"github.com/banshee-data/transitfit/internal/store"
)

// Output formats.
const (
	TableOut = "table"
	JSONOut  = "json"
)

// Options control rendering.
type Options struct {
	Format    string
	Precision int
	Color     bool
}

// DefaultOptions renders colourless tables with six significant digits.
func DefaultOptions() Options {
	return Options{Format: TableOut, Precision: 6}
}

func (o Options) float(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return strconv.FormatFloat(v, 'g', o.Precision, 64)
}

type palette struct {
	good, warn, bad func(...any) string
}

func (o Options) palette() palette {
	if !o.Color {
		return palette{fmt.Sprint, fmt.Sprint, fmt.Sprint}
	}
	return palette{
		good: color.New(color.FgGreen).SprintFunc(),
		warn: color.New(color.FgYellow).SprintFunc(),
		bad:  color.New(color.FgRed).SprintFunc(),
	}
}

func writeTable(w io.Writer, headers []string, rows [][]string) error {
	table := tablewriter.NewWriter(w)
	defer func() { _ = table.Close() }()
	table.Header(headers)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}

// number encodes non-finite values as null.
type number float64

func (n number) MarshalJSON() ([]byte, error) {
	v := float64(n)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

func numbers(vs []float64) []number {
	out := make([]number, len(vs))
	for i, v := range vs {
		out[i] = number(v)
	}
	return out
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// FitSummary is the rendered outcome of an optimizer run.
type FitSummary struct {
	Result fit.Result
	Stats  fit.Stats
	RunID  string
}

func (s FitSummary) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		RunID       string   `json:"run_id,omitempty"`
		Names       []string `json:"names"`
		Values      []number `json:"values"`
		LogProb     number   `json:"log_prob"`
		Iterations  int      `json:"iterations"`
		Evaluations int      `json:"evaluations"`
		Status      string   `json:"status"`
		N           int      `json:"n_samples"`
		NFree       int      `json:"n_free"`
		ChiSq       number   `json:"chi_sq"`
		RedChiSq    number   `json:"red_chi_sq"`
		RMS         number   `json:"rms"`
	}{
		s.RunID, s.Result.Names, numbers(s.Result.Values), number(s.Result.LogProb),
		s.Result.Iterations, s.Result.Evaluations, s.Result.Status,
		s.Stats.N, s.Stats.NFree, number(s.Stats.ChiSq), number(s.Stats.RedChiSq), number(s.Stats.RMS),
	})
}

// WriteFit renders the best-fit free parameters followed by the fit
// statistics. The reduced chi-squared is highlighted by how far it sits
// from 1.
func WriteFit(w io.Writer, s FitSummary, o Options) error {
	if o.Format == JSONOut {
		return writeJSON(w, s)
	}
	rows := make([][]string, len(s.Result.Names))
	for i, n := range s.Result.Names {
		rows[i] = []string{n, o.float(s.Result.Values[i])}
	}
	if err := writeTable(w, []string{"Parameter", "Value"}, rows); err != nil {
		return err
	}
	p := o.palette()
	red := o.float(s.Stats.RedChiSq)
	switch d := math.Abs(s.Stats.RedChiSq - 1); {
	case math.IsNaN(d):
	case d < 0.2:
		red = p.good(red)
	case d < 1:
		red = p.warn(red)
	default:
		red = p.bad(red)
	}
	_, err := fmt.Fprintf(w, "status %s after %d iterations (%d evaluations)\nlog-probability %s, chi2 %s, reduced chi2 %s, rms %s, %d samples, %d free\n",
		s.Result.Status, s.Result.Iterations, s.Result.Evaluations,
		o.float(s.Result.LogProb), o.float(s.Stats.ChiSq), red, o.float(s.Stats.RMS), s.Stats.N, s.Stats.NFree)
	if err == nil && s.RunID != "" {
		_, err = fmt.Fprintf(w, "stored as run %s\n", s.RunID)
	}
	return err
}

// WriteScan renders the top ranked scan points; top <= 0 renders all.
func WriteScan(w io.Writer, axes []fit.Axis, points []fit.ScanPoint, top int, o Options) error {
	if top > 0 && top < len(points) {
		points = points[:top]
	}
	if o.Format == JSONOut {
		type row struct {
			Values  map[string]number `json:"values"`
			LogProb number            `json:"log_prob"`
		}
		out := make([]row, len(points))
		for i, pt := range points {
			vals := make(map[string]number, len(axes))
			for k, a := range axes {
				vals[a.Name] = number(pt.Values[k])
			}
			out[i] = row{Values: vals, LogProb: number(pt.LogProb)}
		}
		return writeJSON(w, out)
	}
	headers := []string{"Rank"}
	for _, a := range axes {
		headers = append(headers, a.Name)
	}
	headers = append(headers, "log-probability")
	p := o.palette()
	rows := make([][]string, len(points))
	for i, pt := range points {
		row := []string{strconv.Itoa(i + 1)}
		for _, v := range pt.Values {
			row = append(row, o.float(v))
		}
		lp := o.float(pt.LogProb)
		if math.IsInf(pt.LogProb, -1) {
			lp = p.bad("outside prior")
		} else if i == 0 {
			lp = p.good(lp)
		}
		rows[i] = append(row, lp)
	}
	return writeTable(w, headers, rows)
}

// WriteParams renders every parameter in s with its status and prior.
func WriteParams(w io.Writer, s *params.Store, o Options) error {
	keys := append(s.Titles(), s.FreeNames()...)
	sort.Strings(keys)
	keys = dedupe(keys)
	if o.Format == JSONOut {
		out := make([]params.Parameter, 0, len(keys))
		for _, k := range keys {
			if p, ok := s.Get(k); ok {
				out = append(out, p)
			}
		}
		return writeJSON(w, out)
	}
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		p, ok := s.Get(k)
		if !ok {
			continue
		}
		val := o.float(p.Value)
		if p.IsText() {
			val = p.Text
		}
		prior := ""
		if p.Prior != nil {
			prior = fmt.Sprintf("%s(%s, %s)", p.Prior.Kind, o.float(p.Prior.P1), o.float(p.Prior.P2))
		}
		rows = append(rows, []string{k, val, string(p.Status), prior})
	}
	return writeTable(w, []string{"Name", "Value", "Status", "Prior"}, rows)
}

func dedupe(sorted []string) []string {
	out := sorted[:0]
	for i, s := range sorted {
		if i == 0 || s != sorted[i-1] {
			out = append(out, s)
		}
	}
	return out
}

// WriteRuns renders a run listing.
func WriteRuns(w io.Writer, runs []*store.Run, o Options) error {
	if o.Format == JSONOut {
		out := make([]runJSON, len(runs))
		for i, r := range runs {
			out[i] = newRunJSON(r)
		}
		return writeJSON(w, out)
	}
	rows := make([][]string, len(runs))
	for i, r := range runs {
		rows[i] = []string{
			r.RunID,
			r.EventLabel,
			r.Method,
			r.Status,
			time.Unix(0, r.CreatedAt).UTC().Format(time.RFC3339),
			o.float(r.LogProb),
			o.float(r.RedChiSq),
		}
	}
	return writeTable(w, []string{"Run", "Event", "Method", "Status", "Created", "log-probability", "reduced chi2"}, rows)
}

// WriteRun renders one run with its stored parameters, free ones marked.
func WriteRun(w io.Writer, r *store.Run, o Options) error {
	if o.Format == JSONOut {
		return writeJSON(w, newRunJSON(r))
	}
	if _, err := fmt.Fprintf(w, "run %s (%s, %s) models %s channels %v\n",
		r.RunID, r.EventLabel, r.Method, strings.Join(r.Models, ","), r.Channels); err != nil {
		return err
	}
	free := make(map[string]bool, len(r.Free))
	for _, n := range r.Free {
		free[n] = true
	}
	names := make([]string, 0, len(r.Params))
	for n := range r.Params {
		names = append(names, n)
	}
	sort.Strings(names)
	rows := make([][]string, len(names))
	for i, n := range names {
		mark := ""
		if free[n] {
			mark = "free"
		}
		rows[i] = []string{n, o.float(r.Params[n]), mark}
	}
	return writeTable(w, []string{"Parameter", "Value", ""}, rows)
}

// runJSON is store.Run with non-finite statistics encoded as null.
type runJSON struct {
	*store.Run
	LogProb  number `json:"log_prob"`
	ChiSq    number `json:"chi_sq"`
	RedChiSq number `json:"red_chi_sq"`
	RMS      number `json:"rms"`
}

func newRunJSON(r *store.Run) runJSON {
	return runJSON{Run: r, LogProb: number(r.LogProb), ChiSq: number(r.ChiSq), RedChiSq: number(r.RedChiSq), RMS: number(r.RMS)}
}
