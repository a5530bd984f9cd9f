package report

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/transitfit/internal/fit"
	"github.com/banshee-data/transitfit/internal/params"
	"github.com/banshee-data/transitfit/internal/store"
	"github.com/banshee-data/transitfit/internal/testutil"
)

func summary() FitSummary {
	return FitSummary{
		Result: fit.Result{Names: []string{"rprs", "t0"}, Values: []float64{0.1001, 1e-5}, LogProb: 2500.25, Iterations: 42, Evaluations: 90, Status: "FunctionConvergence"},
		Stats:  fit.Stats{N: 300, NFree: 2, ChiSq: 296, RedChiSq: 296.0 / 298, RMS: 1e-4},
		RunID:  "run-1",
	}
}

func TestWriteFit_Table(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, WriteFit(&buf, summary(), DefaultOptions()))
	out := buf.String()
	assert.Contains(t, out, "rprs")
	assert.Contains(t, out, "0.1001")
	assert.Contains(t, out, "FunctionConvergence after 42 iterations")
	assert.Contains(t, out, "300 samples, 2 free")
	assert.Contains(t, out, "stored as run run-1")
}

func TestWriteFit_JSONNonFinite(t *testing.T) {
	t.Parallel()
	s := summary()
	s.Stats.RedChiSq = math.NaN()
	var buf bytes.Buffer
	require.NoError(t, WriteFit(&buf, s, Options{Format: JSONOut, Precision: 6}))
	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Nil(t, got["red_chi_sq"])
	assert.Equal(t, "run-1", got["run_id"])
	assert.Equal(t, []any{0.1001, 1e-5}, got["values"])
}

func TestWriteScan(t *testing.T) {
	t.Parallel()
	axes := []fit.Axis{{Name: "rprs"}, {Name: "t0"}}
	points := []fit.ScanPoint{
		{Values: []float64{0.1, 0}, LogProb: 10},
		{Values: []float64{0.11, 0}, LogProb: 5},
		{Values: []float64{0.2, 0}, LogProb: math.Inf(-1)},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteScan(&buf, axes, points, 0, DefaultOptions()))
	assert.Contains(t, buf.String(), "outside prior")

	buf.Reset()
	require.NoError(t, WriteScan(&buf, axes, points, 1, DefaultOptions()))
	assert.NotContains(t, buf.String(), "0.11")

	buf.Reset()
	require.NoError(t, WriteScan(&buf, axes, points, 0, Options{Format: JSONOut}))
	var rows []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	require.Len(t, rows, 3)
	assert.Nil(t, rows[2]["log_prob"])
	assert.Equal(t, 0.11, rows[1]["values"].(map[string]any)["rprs"])
}

func TestWriteParams(t *testing.T) {
	t.Parallel()
	s := testutil.TransitStore(t)
	testutil.SetFree(t, s, "rprs", 0.1, 0.05, 0.15)
	s.ExpandChannels([]int{0, 1})
	var buf bytes.Buffer
	require.NoError(t, WriteParams(&buf, s, DefaultOptions()))
	out := buf.String()
	assert.Contains(t, out, "rprs_1")
	assert.Contains(t, out, "quadratic")
	assert.Contains(t, out, "U(0.05, 0.15)")

	buf.Reset()
	require.NoError(t, WriteParams(&buf, s, Options{Format: JSONOut}))
	var ps []params.Parameter
	require.NoError(t, json.Unmarshal(buf.Bytes(), &ps))
	assert.Len(t, ps, len(s.Titles())+1)
}

func TestWriteRuns(t *testing.T) {
	t.Parallel()
	runs := []*store.Run{
		{RunID: "abc", EventLabel: "wasp39b", Method: "lsq", Status: "ok", CreatedAt: 0, LogProb: 12.5, RedChiSq: math.NaN(),
			Models: []string{"transit"}, Channels: []int{0}, Params: map[string]float64{"rprs": 0.1, "per": 3}, Free: []string{"rprs"}},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteRuns(&buf, runs, DefaultOptions()))
	assert.Contains(t, buf.String(), "1970-01-01T00:00:00Z")
	assert.Contains(t, buf.String(), "wasp39b")

	buf.Reset()
	require.NoError(t, WriteRuns(&buf, runs, Options{Format: JSONOut}))
	var got []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Nil(t, got[0]["red_chi_sq"])
	assert.Equal(t, 12.5, got[0]["log_prob"])

	buf.Reset()
	require.NoError(t, WriteRun(&buf, runs[0], DefaultOptions()))
	out := buf.String()
	assert.Contains(t, out, "run abc (wasp39b, lsq) models transit channels [0]")
	assert.Less(t, strings.Index(out, "per"), strings.Index(out, "rprs"))
	assert.Contains(t, out, "free")
}
