// Package job loads YAML job files that describe a full classification run,
// so runs are reproducible without long flag invocations.
package job

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Job describes one classification run end to end.
type Job struct {
	Sightings SightingsSpec `yaml:"sightings"`
	Regions   RegionsSpec   `yaml:"regions"`
	Census    CensusSpec    `yaml:"census"`
	Outputs   OutputSpec    `yaml:"outputs"`
	Workers   int           `yaml:"workers,omitempty"`
}

// SightingsSpec locates and filters the sightings CSV.
type SightingsSpec struct {
	Path     string `yaml:"path"`
	Country  string `yaml:"country,omitempty"`   // keep only this country code; empty keeps all rows
	Encoding string `yaml:"encoding,omitempty"`  // source charset, e.g. "windows-1252"
	YearFrom int    `yaml:"year_from,omitempty"` // inclusive sighting year lower bound; 0 is open
	YearTo   int    `yaml:"year_to,omitempty"`   // inclusive sighting year upper bound; 0 is open
}

// RegionsSpec locates region boundaries. Either a local path or a remote URL;
// when both are empty the cartographic boundary URL is derived from level and
// year.
type RegionsSpec struct {
	Path             string `yaml:"path,omitempty"`
	URL              string `yaml:"url,omitempty"`
	Level            string `yaml:"level"`
	Year             int    `yaml:"year"`
	CacheDir         string `yaml:"cache_dir,omitempty"`
	IDField          string `yaml:"id_field,omitempty"`
	NameField        string `yaml:"name_field,omitempty"`
	AreaField        string `yaml:"area_field,omitempty"`
	DemographicField string `yaml:"demographic_field,omitempty"`
}

// CensusSpec configures the ACS demographic query.
type CensusSpec struct {
	Dataset  string `yaml:"dataset,omitempty"`
	Variable string `yaml:"variable,omitempty"`
	Year     int    `yaml:"year,omitempty"` // defaults to the regions year
	APIKey   string `yaml:"api_key,omitempty"`
	Skip     bool   `yaml:"skip,omitempty"` // boundary file already carries a demographic field
}

// OutputSpec names the files a run writes. Paths are relative to Dir.
type OutputSpec struct {
	Dir     string `yaml:"dir,omitempty"`
	GeoJSON string `yaml:"geojson,omitempty"`
	Legend  string `yaml:"legend,omitempty"`
	XLSX    string `yaml:"xlsx,omitempty"`
}

// Load reads a job file and applies defaults.
func Load(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "job: read %s", path)
	}

	var j Job
	if err := yaml.Unmarshal(data, &j); err != nil {
		return nil, eris.Wrapf(err, "job: parse %s", path)
	}

	j.ApplyDefaults()
	return &j, nil
}

// ApplyDefaults fills unset fields with the standard run configuration.
func (j *Job) ApplyDefaults() {
	if j.Regions.Level == "" {
		j.Regions.Level = "state"
	}
	if j.Regions.CacheDir == "" {
		j.Regions.CacheDir = "data/boundaries"
	}
	if j.Census.Dataset == "" {
		j.Census.Dataset = "acs/acs5"
	}
	if j.Census.Variable == "" {
		j.Census.Variable = "B01003_001E"
	}
	if j.Census.Year == 0 {
		j.Census.Year = j.Regions.Year
	}
	if j.Outputs.Dir == "" {
		j.Outputs.Dir = "out"
	}
	if j.Outputs.GeoJSON == "" {
		j.Outputs.GeoJSON = "choropleth.geojson"
	}
	if j.Outputs.Legend == "" {
		j.Outputs.Legend = "legend.json"
	}
	if j.Outputs.XLSX == "" {
		j.Outputs.XLSX = "choropleth.xlsx"
	}
}

// Validate checks the job for fields a run cannot proceed without.
func (j *Job) Validate() error {
	if j.Sightings.Path == "" {
		return eris.New("job: sightings.path is required")
	}
	if j.Sightings.YearFrom != 0 && j.Sightings.YearTo != 0 && j.Sightings.YearFrom > j.Sightings.YearTo {
		return eris.Errorf("job: sightings.year_from %d exceeds year_to %d", j.Sightings.YearFrom, j.Sightings.YearTo)
	}
	if j.Regions.Level != "state" && j.Regions.Level != "county" {
		return eris.Errorf("job: regions.level must be state or county, got %q", j.Regions.Level)
	}
	if j.Regions.Path == "" && j.Regions.URL == "" && j.Regions.Year == 0 {
		return eris.New("job: regions.year is required to derive a boundary url")
	}
	if !j.Census.Skip {
		if j.Census.Variable == "" {
			return eris.New("job: census.variable is required")
		}
		if j.Census.Year == 0 {
			return eris.New("job: census.year is required")
		}
	}
	if j.Workers < 0 {
		return eris.Errorf("job: workers must not be negative, got %d", j.Workers)
	}
	return nil
}
