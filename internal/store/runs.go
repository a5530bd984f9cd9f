package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/banshee-data/transitfit/internal/timeutil"
)

// ErrRunNotFound is returned for unknown run ids.
var ErrRunNotFound = errors.New("fit run not found")

// Run is one persisted fit or scan.
type Run struct {
	RunID      string          `json:"run_id"`
	EventLabel string          `json:"event_label"`
	Method     string          `json:"method"`
	Status     string          `json:"status"`
	Models     []string        `json:"models"`
	Channels   []int           `json:"channels"`
	NSamples   int             `json:"n_samples"`
	NFree      int             `json:"n_free"`
	LogProb    float64         `json:"log_prob"`
	ChiSq      float64         `json:"chi_sq"`
	RedChiSq   float64         `json:"red_chi_sq"`
	RMS        float64         `json:"rms"`
	Iterations int             `json:"iterations"`
	ConfigJSON json.RawMessage `json:"config_json,omitempty"`
	CreatedAt  int64           `json:"created_at"`

	// Params maps every numeric parameter to its value at the end of the
	// run; Free lists the fitted ones.
	Params map[string]float64 `json:"params,omitempty"`
	Free   []string           `json:"free,omitempty"`
}

// RunStore provides persistence for fit runs.
type RunStore struct {
	db    *sql.DB
	clock timeutil.Clock
}

// NewRunStore creates a RunStore using the wall clock.
func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db.DB, clock: timeutil.RealClock{}}
}

// WithClock replaces the clock used to stamp new runs.
func (s *RunStore) WithClock(c timeutil.Clock) *RunStore {
	s.clock = c
	return s
}

// Insert persists run and its parameters. If RunID is empty, a UUID is
// generated; a zero CreatedAt is stamped from the store clock.
func (s *RunStore) Insert(run *Run) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAt == 0 {
		run.CreatedAt = s.clock.Now().UnixNano()
	}
	models, err := json.Marshal(run.Models)
	if err != nil {
		return fmt.Errorf("encode models: %w", err)
	}
	channels, err := json.Marshal(run.Channels)
	if err != nil {
		return fmt.Errorf("encode channels: %w", err)
	}
	var cfg interface{}
	if len(run.ConfigJSON) > 0 {
		cfg = string(run.ConfigJSON)
	}
	free := make(map[string]bool, len(run.Free))
	for _, n := range run.Free {
		free[n] = true
	}

	return retryOnBusy(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.Exec(`
			INSERT INTO fit_runs (
				run_id, event_label, method, status, models, channels,
				n_samples, n_free, log_prob, chi_sq, red_chi_sq, rms,
				iterations, config_json, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.RunID, run.EventLabel, run.Method, run.Status, string(models), string(channels),
			run.NSamples, run.NFree, nullFloat(run.LogProb), nullFloat(run.ChiSq), nullFloat(run.RedChiSq), nullFloat(run.RMS),
			run.Iterations, cfg, run.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
		for name, v := range run.Params {
			if _, err := tx.Exec(`INSERT INTO fit_run_params (run_id, name, value, free) VALUES (?, ?, ?, ?)`,
				run.RunID, name, v, free[name]); err != nil {
				return fmt.Errorf("insert param %s: %w", name, err)
			}
		}
		return tx.Commit()
	})
}

const runColumns = `run_id, event_label, method, status, models, channels,
	n_samples, n_free, log_prob, chi_sq, red_chi_sq, rms,
	iterations, config_json, created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		r                         Run
		models, channels          string
		logProb, chi, redChi, rms sql.NullFloat64
		cfg                       sql.NullString
	)
	if err := row.Scan(
		&r.RunID, &r.EventLabel, &r.Method, &r.Status, &models, &channels,
		&r.NSamples, &r.NFree, &logProb, &chi, &redChi, &rms,
		&r.Iterations, &cfg, &r.CreatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(models), &r.Models); err != nil {
		return nil, fmt.Errorf("decode models: %w", err)
	}
	if err := json.Unmarshal([]byte(channels), &r.Channels); err != nil {
		return nil, fmt.Errorf("decode channels: %w", err)
	}
	r.LogProb = fromNull(logProb)
	r.ChiSq = fromNull(chi)
	r.RedChiSq = fromNull(redChi)
	r.RMS = fromNull(rms)
	if cfg.Valid {
		r.ConfigJSON = json.RawMessage(cfg.String)
	}
	return &r, nil
}

// List returns runs ordered by creation time descending, optionally
// restricted to one event label. A non-positive limit returns every run.
func (s *RunStore) List(eventLabel string, limit int) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM fit_runs`
	var args []interface{}
	if eventLabel != "" {
		query += ` WHERE event_label = ?`
		args = append(args, eventLabel)
	}
	query += ` ORDER BY created_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Get returns a run with its parameters.
func (s *RunStore) Get(runID string) (*Run, error) {
	r, err := scanRun(s.db.QueryRow(`SELECT `+runColumns+` FROM fit_runs WHERE run_id = ?`, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}

	rows, err := s.db.Query(`SELECT name, value, free FROM fit_run_params WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("query params: %w", err)
	}
	defer rows.Close()
	r.Params = make(map[string]float64)
	for rows.Next() {
		var (
			name string
			v    float64
			free bool
		)
		if err := rows.Scan(&name, &v, &free); err != nil {
			return nil, fmt.Errorf("scan param: %w", err)
		}
		r.Params[name] = v
		if free {
			r.Free = append(r.Free, name)
		}
	}
	sort.Strings(r.Free)
	return r, rows.Err()
}

// Delete removes a run and its parameters.
func (s *RunStore) Delete(runID string) error {
	return retryOnBusy(func() error {
		result, err := s.db.Exec(`DELETE FROM fit_runs WHERE run_id = ?`, runID)
		if err != nil {
			return fmt.Errorf("delete run: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil
	})
}

// nullFloat stores non-finite statistics as NULL.
func nullFloat(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

func fromNull(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
