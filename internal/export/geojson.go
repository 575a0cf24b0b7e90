// Package export writes classified regions to map-ready output formats.
package export

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/sells-group/atlas-cli/internal/choropleth"
)

// ExportGeoJSON writes classified regions as a GeoJSON FeatureCollection.
// Geometries come from the boundary regions; classification values ride along
// as feature properties so the file renders directly in mapping tools.
// Results whose region has no boundary in the slice are omitted with a
// warning.
func ExportGeoJSON(regions []choropleth.Region, results []choropleth.RegionResult, path string) error {
	boundaries := make(map[string]geom.T, len(regions))
	for _, reg := range regions {
		boundaries[reg.ID] = reg.Boundary
	}

	fc := geojson.FeatureCollection{}
	missing := 0
	for _, r := range results {
		g, ok := boundaries[r.RegionID]
		if !ok || g == nil {
			missing++
			continue
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       r.RegionID,
			Geometry: g,
			Properties: map[string]any{
				"region_id":   r.RegionID,
				"name":        r.Name,
				"count":       r.Count,
				"rate":        r.Rate,
				"count_class": int(r.CountClass),
				"rate_class":  int(r.RateClass),
				"class":       string(r.Class),
				"color":       string(r.Color),
			},
		})
	}

	if len(results) > 0 && len(fc.Features) == 0 {
		return eris.New("export: no classified region matched a boundary")
	}
	if missing > 0 {
		zap.L().Warn("export: omitted results without a boundary",
			zap.Int("regions", missing),
			zap.String("path", path))
	}

	data, err := json.Marshal(&fc)
	if err != nil {
		return eris.Wrap(err, "export: marshal feature collection")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrap(err, "export: write geojson")
	}

	zap.L().Info("export: geojson written",
		zap.String("path", path),
		zap.Int("features", len(fc.Features)))
	return nil
}

// ExportLegend writes the 3x3 legend grid as a sidecar JSON document.
func ExportLegend(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "export: create legend file")
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(choropleth.Legend()); err != nil {
		return eris.Wrap(err, "export: encode legend")
	}
	return nil
}
