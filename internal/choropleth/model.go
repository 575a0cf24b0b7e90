// Package choropleth classifies geolocated events against demographic regions
// into a 3x3 bivariate choropleth: per-region event counts and demographic
// density rates are binned into tertiles independently, combined into one of
// nine classes, and mapped to a fixed color palette.
package choropleth

import (
	"math"

	"github.com/twpayne/go-geom"
)

// PointEvent is a geolocated event to be joined against regions. Coordinates
// are WGS84 degrees. Events with missing coordinates carry NaN; they are
// excluded from the join and counted in Diagnostics.InvalidPoints.
type PointEvent struct {
	ID  string
	Lon float64
	Lat float64
}

// Valid reports whether the event has usable coordinates.
func (p PointEvent) Valid() bool {
	return !math.IsNaN(p.Lon) && !math.IsInf(p.Lon, 0) &&
		!math.IsNaN(p.Lat) && !math.IsInf(p.Lat, 0)
}

// Region is a polygonal unit of aggregation with an attached demographic
// value (typically population) and land area in square kilometers.
type Region struct {
	ID          string
	Name        string
	Boundary    geom.T
	AreaKm2     float64
	Demographic float64
}

// Reasons recorded for regions excluded before classification.
const (
	SkipInvalidGeometry = "invalid_geometry"
	SkipDuplicateID     = "duplicate_id"
)

// SkippedRegion records a region excluded from a run and why.
type SkippedRegion struct {
	RegionID string `json:"region_id"`
	Reason   string `json:"reason"`
}

// RegionAggregate pairs a region with its event count and density rate.
type RegionAggregate struct {
	RegionID    string
	Name        string
	Count       int
	AreaKm2     float64
	Demographic float64
	Rate        float64
}

// RegionResult is one fully classified region.
type RegionResult struct {
	RegionID   string         `json:"region_id"`
	Name       string         `json:"name"`
	Count      int            `json:"count"`
	Rate       float64        `json:"rate"`
	CountClass ClassIndex     `json:"count_class"`
	RateClass  ClassIndex     `json:"rate_class"`
	Class      BivariateClass `json:"class"`
	Color      Color          `json:"color"`
}

// Diagnostics summarizes everything a run excluded or flagged without failing.
type Diagnostics struct {
	TotalPoints     int             `json:"total_points"`
	MatchedPoints   int             `json:"matched_points"`
	UnmatchedPoints int             `json:"unmatched_points"`
	InvalidPoints   int             `json:"invalid_points"`
	SkippedRegions  []SkippedRegion `json:"skipped_regions,omitempty"`
	DegenerateDims  []string        `json:"degenerate_dims,omitempty"`
	CountCuts       [2]float64      `json:"count_cuts"`
	RateCuts        [2]float64      `json:"rate_cuts"`
}

// Result is the output of a classification run.
type Result struct {
	Regions     []RegionResult `json:"regions"`
	Legend      []LegendCell   `json:"legend"`
	Diagnostics Diagnostics    `json:"diagnostics"`
}
