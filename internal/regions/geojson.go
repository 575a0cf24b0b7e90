package regions

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/sells-group/atlas-cli/internal/choropleth"
)

// LoadGeoJSON reads polygon regions from a GeoJSON feature collection.
// Non-polygonal features are skipped.
func LoadGeoJSON(path string, opts Options) ([]choropleth.Region, error) {
	opts = opts.withDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "regions: read %s", path)
	}

	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrap(err, "regions: parse geojson")
	}

	var regions []choropleth.Region
	var skipped int

	for _, feat := range fc.Features {
		switch feat.Geometry.(type) {
		case *geom.Polygon, *geom.MultiPolygon:
		default:
			skipped++
			continue
		}

		id := propString(feat.Properties, opts.IDField)
		if id == "" {
			id = feat.ID
		}

		areaM2, haveArea := propFloat(feat.Properties, opts.AreaField)
		region, ok := regionFrom(id, propString(feat.Properties, opts.NameField), areaM2, haveArea, feat.Geometry)
		if !ok {
			skipped++
			continue
		}
		if opts.DemographicField != "" {
			if v, ok := propFloat(feat.Properties, opts.DemographicField); ok {
				region.Demographic = v
			}
		}
		regions = append(regions, region)
	}

	if skipped > 0 {
		zap.L().Debug("regions: skipped geojson features", zap.Int("skipped", skipped))
	}
	zap.L().Info("regions: loaded geojson",
		zap.String("path", path),
		zap.Int("regions", len(regions)),
	)

	return regions, nil
}

func propString(props map[string]any, key string) string {
	switch v := props[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func propFloat(props map[string]any, key string) (float64, bool) {
	switch v := props[key].(type) {
	case float64:
		return v, true
	case string:
		return parseFloat(v)
	default:
		return 0, false
	}
}
