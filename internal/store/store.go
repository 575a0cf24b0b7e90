// Package store persists classification runs and their per-region results.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/atlas-cli/internal/choropleth"
)

// ErrNotFound is returned when a requested run does not exist.
var ErrNotFound = eris.New("store: not found")

// RunStatus tracks a run through its lifecycle.
type RunStatus string

const (
	RunStatusQueued   RunStatus = "queued"
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// RunParams records the inputs a run was started with.
type RunParams struct {
	SightingsPath string `json:"sightings_path"`
	BoundaryPath  string `json:"boundary_path,omitempty"`
	BoundaryURL   string `json:"boundary_url,omitempty"`
	Level         string `json:"level"`
	Year          int    `json:"year"`
	Variable      string `json:"variable"`
	Workers       int    `json:"workers,omitempty"`
}

// RunSummary captures the outcome counters of a completed run.
type RunSummary struct {
	Regions         int                        `json:"regions"`
	TotalPoints     int                        `json:"total_points"`
	MatchedPoints   int                        `json:"matched_points"`
	UnmatchedPoints int                        `json:"unmatched_points"`
	InvalidPoints   int                        `json:"invalid_points"`
	SkippedRegions  []choropleth.SkippedRegion `json:"skipped_regions,omitempty"`
	DegenerateDims  []string                   `json:"degenerate_dims,omitempty"`
	CountCuts       [2]float64                 `json:"count_cuts"`
	RateCuts        [2]float64                 `json:"rate_cuts"`
	DurationMs      int64                      `json:"duration_ms"`
}

// SummaryFromResult folds a classification result into a run summary.
func SummaryFromResult(res *choropleth.Result, duration time.Duration) *RunSummary {
	d := res.Diagnostics
	return &RunSummary{
		Regions:         len(res.Regions),
		TotalPoints:     d.TotalPoints,
		MatchedPoints:   d.MatchedPoints,
		UnmatchedPoints: d.UnmatchedPoints,
		InvalidPoints:   d.InvalidPoints,
		SkippedRegions:  d.SkippedRegions,
		DegenerateDims:  d.DegenerateDims,
		CountCuts:       d.CountCuts,
		RateCuts:        d.RateCuts,
		DurationMs:      duration.Milliseconds(),
	}
}

// Diagnostics rebuilds the classification diagnostics a summary was folded
// from, so a stored run can be re-exported without rerunning the pipeline.
func (s *RunSummary) Diagnostics() choropleth.Diagnostics {
	if s == nil {
		return choropleth.Diagnostics{}
	}
	return choropleth.Diagnostics{
		TotalPoints:     s.TotalPoints,
		MatchedPoints:   s.MatchedPoints,
		UnmatchedPoints: s.UnmatchedPoints,
		InvalidPoints:   s.InvalidPoints,
		SkippedRegions:  s.SkippedRegions,
		DegenerateDims:  s.DegenerateDims,
		CountCuts:       s.CountCuts,
		RateCuts:        s.RateCuts,
	}
}

// Run is one classification pipeline execution.
type Run struct {
	ID        string      `json:"id"`
	Status    RunStatus   `json:"status"`
	Params    RunParams   `json:"params"`
	Summary   *RunSummary `json:"summary,omitempty"`
	Error     string      `json:"error,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status RunStatus `json:"status,omitempty"`
	Level  string    `json:"level,omitempty"`
	Limit  int       `json:"limit,omitempty"`
	Offset int       `json:"offset,omitempty"`
}

// Store defines the persistence interface for classification runs.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, params RunParams) (*Run, error)
	StartRun(ctx context.Context, runID string) error
	CompleteRun(ctx context.Context, runID string, summary *RunSummary) error
	FailRun(ctx context.Context, runID string, cause string) error
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]Run, error)

	// Results
	SaveResults(ctx context.Context, runID string, results []choropleth.RegionResult) error
	GetResults(ctx context.Context, runID string) ([]choropleth.RegionResult, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Open creates a Store for the configured driver.
func Open(ctx context.Context, driver, databaseURL string) (Store, error) {
	switch driver {
	case "sqlite":
		return NewSQLite(databaseURL)
	case "postgres":
		return NewPostgres(ctx, databaseURL, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}
