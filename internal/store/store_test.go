package store

import (
	"encoding/json"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/transitfit/internal/timeutil"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpen_Migrates(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	// Re-running is a no-op.
	require.NoError(t, db.MigrateUp())

	require.NoError(t, db.MigrateDown())
	version, _, err = db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
	require.NoError(t, db.MigrateUp())
}

func TestOpen_InMemory(t *testing.T) {
	t.Parallel()
	db, err := Open(":memory:")
	require.NoError(t, err)
	defer db.Close()
	runs, err := NewRunStore(db).List("", 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestRunStore_InsertGet(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	clock := timeutil.NewMockClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	rs := NewRunStore(db).WithClock(clock)

	run := &Run{
		EventLabel: "wasp39b",
		Method:     "lsq",
		Status:     "Success",
		Models:     []string{"transit", "gp"},
		Channels:   []int{0, 1},
		NSamples:   400,
		NFree:      2,
		LogProb:    1234.5,
		ChiSq:      398,
		RedChiSq:   1.0,
		RMS:        1e-4,
		Iterations: 87,
		ConfigJSON: json.RawMessage(`{"num_planets":1}`),
		Params:     map[string]float64{"rprs": 0.1, "rprs_1": 0.11, "per": 3},
		Free:       []string{"rprs", "rprs_1"},
	}
	require.NoError(t, rs.Insert(run))
	assert.NotEmpty(t, run.RunID)
	assert.Equal(t, clock.Now().UnixNano(), run.CreatedAt)

	got, err := rs.Get(run.RunID)
	require.NoError(t, err)
	assert.Equal(t, run, got)
}

func TestRunStore_NonFiniteStats(t *testing.T) {
	t.Parallel()
	rs := NewRunStore(openTestDB(t))
	run := &Run{EventLabel: "e", Method: "scan", Status: "done", Models: []string{"transit"}, Channels: []int{0},
		LogProb: math.Inf(-1), RedChiSq: math.NaN()}
	require.NoError(t, rs.Insert(run))
	got, err := rs.Get(run.RunID)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(got.LogProb))
	assert.True(t, math.IsNaN(got.RedChiSq))
	assert.Empty(t, got.Params)
}

func TestRunStore_ListAndDelete(t *testing.T) {
	t.Parallel()
	clock := timeutil.NewMockClock(time.Unix(1000, 0))
	rs := NewRunStore(openTestDB(t)).WithClock(clock)
	for _, label := range []string{"a", "b", "a"} {
		clock.Advance(time.Second)
		require.NoError(t, rs.Insert(&Run{EventLabel: label, Method: "lsq", Status: "ok", Models: []string{"transit"}, Channels: []int{0}}))
	}

	all, err := rs.List("", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Greater(t, all[0].CreatedAt, all[1].CreatedAt)

	onlyA, err := rs.List("a", 0)
	require.NoError(t, err)
	assert.Len(t, onlyA, 2)

	latest, err := rs.List("", 1)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, "a", latest[0].EventLabel)

	require.NoError(t, rs.Delete(latest[0].RunID))
	_, err = rs.Get(latest[0].RunID)
	assert.True(t, errors.Is(err, ErrRunNotFound))
	assert.True(t, errors.Is(rs.Delete(latest[0].RunID), ErrRunNotFound))
}

func TestRetryOnBusy(t *testing.T) {
	t.Parallel()
	calls := 0
	err := retryOnBusy(func() error {
		calls++
		if calls < 3 {
			return errors.New("database is locked (5) (SQLITE_BUSY)")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	other := errors.New("constraint failed")
	err = retryOnBusy(func() error {
		calls++
		return other
	})
	assert.Equal(t, other, err)
	assert.Equal(t, 1, calls)

	calls = 0
	err = retryOnBusy(func() error {
		calls++
		return errors.New("SQLITE_BUSY")
	})
	assert.Error(t, err)
	assert.Equal(t, maxBusyRetries, calls)
}
