package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/atlas-cli/internal/choropleth"
	"github.com/sells-group/atlas-cli/internal/store"
)

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2026, 5, 10, 9, 15, 0, 0, time.UTC)
	runs := []store.Run{
		{
			ID:     "abc12345-6789-0000-0000-000000000000",
			Status: store.RunStatusComplete,
			Params: store.RunParams{Level: "state"},
			Summary: &store.RunSummary{
				Regions:       52,
				TotalPoints:   80000,
				MatchedPoints: 78500,
				DurationMs:    4200,
			},
			CreatedAt: now,
			UpdatedAt: now.Add(5 * time.Second),
		},
		{
			ID:        "def12345-6789-0000-0000-000000000000",
			Status:    store.RunStatusRunning,
			Params:    store.RunParams{Level: "county"},
			CreatedAt: now.Add(-time.Hour),
			UpdatedAt: now.Add(-time.Hour),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	assert.Contains(t, output, "ID")
	assert.Contains(t, output, "LEVEL")
	assert.Contains(t, output, "STATUS")
	assert.Contains(t, output, "abc12345")
	assert.Contains(t, output, "state")
	assert.Contains(t, output, "complete")
	assert.Contains(t, output, "52")
	assert.Contains(t, output, "78500/80000")
	assert.Contains(t, output, "2026-05-10 09:15")
	assert.Contains(t, output, "4.2s")
	assert.Contains(t, output, "county")
	assert.Contains(t, output, "running")
}

func TestComputeRunStats(t *testing.T) {
	runs := []store.Run{
		{Status: store.RunStatusComplete, Summary: &store.RunSummary{DurationMs: 2000}},
		{Status: store.RunStatusComplete, Summary: &store.RunSummary{DurationMs: 4000}},
		{Status: store.RunStatusFailed},
		{Status: store.RunStatusQueued},
		{Status: store.RunStatusRunning},
	}

	s := computeRunStats(runs)

	assert.Equal(t, 5, s.Total)
	assert.Equal(t, 2, s.Complete)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 2, s.Active)
	assert.InDelta(t, 3.0, s.AvgDurSecs, 1e-9)
}

func TestComputeRunStats_Empty(t *testing.T) {
	s := computeRunStats(nil)

	assert.Equal(t, 0, s.Total)
	assert.Zero(t, s.AvgDurSecs)
}

func TestFormatRunStats(t *testing.T) {
	var buf bytes.Buffer
	formatRunStats(&buf, runStats{Total: 4, Complete: 2, Failed: 1, Active: 1, AvgDurSecs: 3.5})

	output := buf.String()
	assert.Contains(t, output, "Total runs:")
	assert.Contains(t, output, "4")
	assert.Contains(t, output, "3.5s")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789-0000-0000-000000000000"))
	assert.Equal(t, "short", truncateID("short"))
}

func TestFormatLegend(t *testing.T) {
	var buf bytes.Buffer
	formatLegend(&buf, choropleth.Legend())

	output := buf.String()
	assert.Contains(t, output, "CLASS")
	assert.Contains(t, output, "3-1")
	assert.Contains(t, output, "#AE3A4E")
	assert.Contains(t, output, "1-3")
	assert.Contains(t, output, "#4885C1")
}
