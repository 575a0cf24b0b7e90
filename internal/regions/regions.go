// Package regions loads geographic region boundaries from shapefiles and
// GeoJSON and attaches demographic denominators.
package regions

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/atlas-cli/internal/choropleth"
	"github.com/sells-group/atlas-cli/internal/geometry"
)

// Options names the attribute fields carrying region metadata. Defaults
// match Census cartographic boundary files.
type Options struct {
	IDField   string // default "GEOID"
	NameField string // default "NAME"
	// AreaField holds land area in square meters, default "ALAND".
	// Regions without it get a geodesic area computed from the boundary.
	AreaField string
	// DemographicField optionally reads the denominator straight from the
	// boundary attributes instead of a separate demographic source.
	DemographicField string
}

func (o Options) withDefaults() Options {
	if o.IDField == "" {
		o.IDField = "GEOID"
	}
	if o.NameField == "" {
		o.NameField = "NAME"
	}
	if o.AreaField == "" {
		o.AreaField = "ALAND"
	}
	return o
}

// Load reads regions from path, picking the decoder by extension.
func Load(path string, opts Options) ([]choropleth.Region, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		return LoadShapefile(path, opts)
	case ".geojson", ".json":
		return LoadGeoJSON(path, opts)
	default:
		return nil, eris.Errorf("regions: unsupported boundary format %q", filepath.Ext(path))
	}
}

// regionFrom assembles a region, falling back to geodesic area when the
// source has no usable land area attribute.
func regionFrom(id, name string, areaM2 float64, haveArea bool, g geom.T) (choropleth.Region, bool) {
	if id == "" || g == nil {
		return choropleth.Region{}, false
	}

	var areaKm2 float64
	if haveArea && areaM2 > 0 {
		areaKm2 = areaM2 / 1e6
	} else {
		areaKm2 = geometry.AreaKm2(g)
	}

	return choropleth.Region{
		ID:       id,
		Name:     name,
		Boundary: g,
		AreaKm2:  areaKm2,
	}, true
}

func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
