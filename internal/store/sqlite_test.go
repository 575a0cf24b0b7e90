package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/atlas-cli/internal/choropleth"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testRunParams() RunParams {
	return RunParams{
		SightingsPath: "testdata/scrubbed.csv",
		BoundaryURL:   "https://www2.census.gov/geo/tiger/GENZ2023/shp/cb_2023_us_state_500k.zip",
		Level:         "state",
		Year:          2023,
		Variable:      "B01003_001E",
	}
}

func testResults() []choropleth.RegionResult {
	return []choropleth.RegionResult{
		{
			RegionID:   "35",
			Name:       "New Mexico",
			Count:      540,
			Rate:       6.73,
			CountClass: 2,
			RateClass:  3,
			Class:      "3-2",
			Color:      "#77324C",
		},
		{
			RegionID:   "48",
			Name:       "Texas",
			Count:      3440,
			Rate:       42.9,
			CountClass: 3,
			RateClass:  3,
			Class:      "3-3",
			Color:      "#3F2949",
		},
	}
}

// --- Runs ---

func TestSQLite_RunLifecycle(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, testRunParams())
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)
	assert.Equal(t, RunStatusQueued, run.Status)

	require.NoError(t, st.StartRun(ctx, run.ID))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusRunning, got.Status)
	assert.Equal(t, "state", got.Params.Level)
	assert.Equal(t, "B01003_001E", got.Params.Variable)
	assert.Nil(t, got.Summary)

	summary := &RunSummary{
		Regions:       49,
		TotalPoints:   80332,
		MatchedPoints: 65000,
		CountCuts:     [2]float64{120, 640},
		RateCuts:      [2]float64{4.2, 11.8},
		DurationMs:    1500,
	}
	require.NoError(t, st.CompleteRun(ctx, run.ID, summary))

	got, err = st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusComplete, got.Status)
	require.NotNil(t, got.Summary)
	assert.Equal(t, 49, got.Summary.Regions)
	assert.Equal(t, [2]float64{120, 640}, got.Summary.CountCuts)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt) || got.UpdatedAt.Equal(got.CreatedAt))
}

func TestSQLite_FailRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, testRunParams())
	require.NoError(t, err)

	require.NoError(t, st.FailRun(ctx, run.ID, "boundary download failed"))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusFailed, got.Status)
	assert.Equal(t, "boundary download failed", got.Error)
}

func TestSQLite_GetRun_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetRun(context.Background(), "no-such-run")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_UpdateMissingRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, st.StartRun(ctx, "missing"), ErrNotFound)
	assert.ErrorIs(t, st.CompleteRun(ctx, "missing", &RunSummary{}), ErrNotFound)
	assert.ErrorIs(t, st.FailRun(ctx, "missing", "boom"), ErrNotFound)
}

func TestSQLite_ListRuns(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	stateParams := testRunParams()
	countyParams := testRunParams()
	countyParams.Level = "county"

	first, err := st.CreateRun(ctx, stateParams)
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)
	second, err := st.CreateRun(ctx, countyParams)
	require.NoError(t, err)

	require.NoError(t, st.StartRun(ctx, second.ID))

	all, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID) // newest first

	running, err := st.ListRuns(ctx, RunFilter{Status: RunStatusRunning})
	require.NoError(t, err)
	require.Len(t, running, 1)
	assert.Equal(t, second.ID, running[0].ID)

	counties, err := st.ListRuns(ctx, RunFilter{Level: "county"})
	require.NoError(t, err)
	require.Len(t, counties, 1)
	assert.Equal(t, second.ID, counties[0].ID)

	limited, err := st.ListRuns(ctx, RunFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	offset, err := st.ListRuns(ctx, RunFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, offset, 1)
	assert.Equal(t, first.ID, offset[0].ID)
}

// --- Results ---

func TestSQLite_SaveAndGetResults(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, testRunParams())
	require.NoError(t, err)

	require.NoError(t, st.SaveResults(ctx, run.ID, testResults()))

	got, err := st.GetResults(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Ordered by region id.
	assert.Equal(t, "35", got[0].RegionID)
	assert.Equal(t, "New Mexico", got[0].Name)
	assert.Equal(t, 540, got[0].Count)
	assert.InDelta(t, 6.73, got[0].Rate, 1e-9)
	assert.Equal(t, choropleth.ClassIndex(3), got[0].RateClass)
	assert.Equal(t, choropleth.BivariateClass("3-2"), got[0].Class)
	assert.Equal(t, choropleth.Color("#77324C"), got[0].Color)

	assert.Equal(t, "48", got[1].RegionID)
	assert.Equal(t, choropleth.BivariateClass("3-3"), got[1].Class)
}

func TestSQLite_SaveResults_Replaces(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, testRunParams())
	require.NoError(t, err)

	require.NoError(t, st.SaveResults(ctx, run.ID, testResults()))

	// Saving again with a smaller set replaces the previous rows.
	updated := testResults()[:1]
	updated[0].Count = 541
	require.NoError(t, st.SaveResults(ctx, run.ID, updated))

	got, err := st.GetResults(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 541, got[0].Count)
}

func TestSQLite_GetResults_Empty(t *testing.T) {
	st := newTestSQLiteStore(t)

	got, err := st.GetResults(context.Background(), "no-results")
	require.NoError(t, err)
	assert.Empty(t, got)
}

// --- Open ---

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "dsn")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown driver")
}

func TestOpen_SQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "atlas.db")
	st, err := Open(context.Background(), "sqlite", dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck

	require.NoError(t, st.Migrate(context.Background()))
	_, err = st.CreateRun(context.Background(), testRunParams())
	require.NoError(t, err)
}
