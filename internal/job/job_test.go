package job

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJobFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "job.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Full(t *testing.T) {
	path := writeJobFile(t, `
sightings:
  path: data/scrubbed.csv
  country: us
  encoding: windows-1252
regions:
  level: county
  year: 2023
  cache_dir: /tmp/boundaries
census:
  variable: B01003_001E
  api_key: secret
outputs:
  dir: results
  geojson: counties.geojson
workers: 8
`)

	j, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "data/scrubbed.csv", j.Sightings.Path)
	assert.Equal(t, "us", j.Sightings.Country)
	assert.Equal(t, "windows-1252", j.Sightings.Encoding)
	assert.Equal(t, "county", j.Regions.Level)
	assert.Equal(t, 2023, j.Regions.Year)
	assert.Equal(t, "/tmp/boundaries", j.Regions.CacheDir)
	assert.Equal(t, "secret", j.Census.APIKey)
	assert.Equal(t, "results", j.Outputs.Dir)
	assert.Equal(t, "counties.geojson", j.Outputs.GeoJSON)
	assert.Equal(t, 8, j.Workers)

	require.NoError(t, j.Validate())
}

func TestLoad_Defaults(t *testing.T) {
	path := writeJobFile(t, `
sightings:
  path: data/scrubbed.csv
regions:
  year: 2023
`)

	j, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "state", j.Regions.Level)
	assert.Equal(t, "data/boundaries", j.Regions.CacheDir)
	assert.Equal(t, "acs/acs5", j.Census.Dataset)
	assert.Equal(t, "B01003_001E", j.Census.Variable)
	assert.Equal(t, 2023, j.Census.Year) // inherited from regions
	assert.Equal(t, "out", j.Outputs.Dir)
	assert.Equal(t, "choropleth.geojson", j.Outputs.GeoJSON)
	assert.Equal(t, "legend.json", j.Outputs.Legend)
	assert.Equal(t, "choropleth.xlsx", j.Outputs.XLSX)
	assert.Zero(t, j.Workers)

	require.NoError(t, j.Validate())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "job: read")
}

func TestLoad_BadYAML(t *testing.T) {
	path := writeJobFile(t, "sightings: [unclosed")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "job: parse")
}

func TestValidate(t *testing.T) {
	valid := func() *Job {
		j := &Job{}
		j.Sightings.Path = "data/scrubbed.csv"
		j.Regions.Year = 2023
		j.ApplyDefaults()
		return j
	}

	tests := []struct {
		name    string
		mutate  func(*Job)
		wantErr string
	}{
		{"valid", func(j *Job) {}, ""},
		{"missing sightings path", func(j *Job) { j.Sightings.Path = "" }, "sightings.path is required"},
		{"bad level", func(j *Job) { j.Regions.Level = "tract" }, "must be state or county"},
		{"inverted year range", func(j *Job) {
			j.Sightings.YearFrom = 2010
			j.Sightings.YearTo = 2000
		}, "year_from 2010 exceeds year_to"},
		{"no boundary source", func(j *Job) { j.Regions.Year = 0; j.Census.Year = 2023 }, "regions.year is required"},
		{"missing variable", func(j *Job) { j.Census.Variable = "" }, "census.variable is required"},
		{"missing census year", func(j *Job) { j.Census.Year = 0 }, "census.year is required"},
		{"negative workers", func(j *Job) { j.Workers = -1 }, "workers must not be negative"},
		{"skip census allows missing variable", func(j *Job) {
			j.Census.Skip = true
			j.Census.Variable = ""
			j.Census.Year = 0
		}, ""},
		{"local path allows missing year", func(j *Job) {
			j.Regions.Path = "data/cb_2023_us_state_500k.shp"
			j.Regions.Year = 0
			j.Census.Year = 2023
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := valid()
			tt.mutate(j)
			err := j.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
