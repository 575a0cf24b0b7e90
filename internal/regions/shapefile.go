package regions

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"

	"github.com/sells-group/atlas-cli/internal/choropleth"
)

// LoadShapefile reads polygon regions from a shapefile and its DBF sidecar.
func LoadShapefile(path string, opts Options) ([]choropleth.Region, error) {
	opts = opts.withDefaults()

	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "regions: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	// Build field name → index map. DBF field names are NUL-padded.
	fields := reader.Fields()
	fieldIdx := make(map[string]int, len(fields))
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
	}

	attr := func(name string) string {
		idx, ok := fieldIdx[strings.ToLower(name)]
		if !ok {
			return ""
		}
		return strings.TrimSpace(strings.TrimRight(reader.Attribute(idx), "\x00"))
	}

	var regions []choropleth.Region
	var skipped int

	for reader.Next() {
		_, shape := reader.Shape()

		poly, _ := shape.(*shp.Polygon)
		g := polygonToMultiPolygon(poly)

		areaM2, haveArea := parseFloat(attr(opts.AreaField))
		region, ok := regionFrom(attr(opts.IDField), attr(opts.NameField), areaM2, haveArea, g)
		if !ok {
			skipped++
			continue
		}
		if opts.DemographicField != "" {
			if v, ok := parseFloat(attr(opts.DemographicField)); ok {
				region.Demographic = v
			}
		}
		regions = append(regions, region)
	}

	if skipped > 0 {
		zap.L().Debug("regions: skipped shapefile records", zap.Int("skipped", skipped))
	}
	zap.L().Info("regions: loaded shapefile",
		zap.String("path", path),
		zap.Int("regions", len(regions)),
	)

	return regions, nil
}

// polygonToMultiPolygon converts a shapefile polygon record. Ring
// orientation carries structure: clockwise rings open a new polygon,
// counter-clockwise rings are holes in the polygon opened most recently.
func polygonToMultiPolygon(p *shp.Polygon) geom.T {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)
	var current *geom.Polygon

	flush := func() {
		if current == nil {
			return
		}
		if err := mp.Push(current); err != nil {
			zap.L().Debug("regions: skipping malformed polygon", zap.Error(err))
		}
		current = nil
	}

	for i := int32(0); i < p.NumParts; i++ {
		flat := partFlatCoords(p, i)
		if len(flat) < 8 { // a closed ring needs at least 4 points
			continue
		}

		ring := geom.NewLinearRingFlat(geom.XY, flat)
		if xy.IsRingCounterClockwise(geom.XY, flat) && current != nil {
			if err := current.Push(ring); err != nil {
				zap.L().Debug("regions: skipping malformed hole", zap.Int32("part", i), zap.Error(err))
			}
			continue
		}

		flush()
		current = geom.NewPolygon(geom.XY)
		if err := current.Push(ring); err != nil {
			zap.L().Debug("regions: skipping malformed ring", zap.Int32("part", i), zap.Error(err))
			current = nil
		}
	}
	flush()

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

// partFlatCoords returns the flat XY coordinates of one ring of a shapefile polygon.
func partFlatCoords(p *shp.Polygon, part int32) []float64 {
	start := p.Parts[part]
	end := int32(len(p.Points))
	if part+1 < p.NumParts {
		end = p.Parts[part+1]
	}

	flat := make([]float64, 0, (end-start)*2)
	for j := start; j < end; j++ {
		flat = append(flat, p.Points[j].X, p.Points[j].Y)
	}
	return flat
}
