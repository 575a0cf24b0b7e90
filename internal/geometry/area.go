package geometry

import (
	"github.com/golang/geo/s2"
	"github.com/twpayne/go-geom"
)

// EarthRadiusKm is the mean Earth radius used to convert spherical areas to
// square kilometers.
const EarthRadiusKm = 6371.0

// AreaKm2 returns the geodesic area of g in square kilometers. Interior holes
// are subtracted and MultiPolygon parts are summed. Unsupported geometries and
// degenerate rings have zero area.
func AreaKm2(g geom.T) float64 {
	switch t := g.(type) {
	case *geom.Polygon:
		return polygonAreaKm2(t)

	case *geom.MultiPolygon:
		var total float64
		for i := 0; i < t.NumPolygons(); i++ {
			total += polygonAreaKm2(t.Polygon(i))
		}
		return total

	default:
		return 0
	}
}

func polygonAreaKm2(p *geom.Polygon) float64 {
	if p.NumLinearRings() == 0 {
		return 0
	}

	area := ringAreaSteradians(p.LinearRing(0))
	for i := 1; i < p.NumLinearRings(); i++ {
		area -= ringAreaSteradians(p.LinearRing(i))
	}
	if area < 0 {
		area = 0
	}
	return area * EarthRadiusKm * EarthRadiusKm
}

// ringAreaSteradians builds an s2 loop from a lon/lat ring and returns its
// spherical area. The loop is normalized first, so ring orientation does not
// affect the result.
func ringAreaSteradians(r *geom.LinearRing) float64 {
	coords := r.Coords()

	// s2 loops are implicitly closed; drop a duplicated closing vertex.
	if n := len(coords); n > 1 && coords[0][0] == coords[n-1][0] && coords[0][1] == coords[n-1][1] {
		coords = coords[:n-1]
	}
	if len(coords) < 3 {
		return 0
	}

	points := make([]s2.Point, 0, len(coords))
	for _, c := range coords {
		points = append(points, s2.PointFromLatLng(s2.LatLngFromDegrees(c[1], c[0])))
	}

	loop := s2.LoopFromPoints(points)
	loop.Normalize()
	return loop.Area()
}
