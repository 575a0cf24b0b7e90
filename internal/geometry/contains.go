// Package geometry provides containment and area helpers for WGS84
// longitude/latitude geometries.
package geometry

import (
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"github.com/twpayne/go-geom/xy/location"
)

// Contains reports whether the point (lon, lat) lies inside g. A point exactly
// on a ring boundary counts as inside, including the boundary of an interior
// hole. Supported geometries are Polygon and MultiPolygon; anything else
// reports false.
func Contains(g geom.T, lon, lat float64) bool {
	if g == nil {
		return false
	}

	c := geom.Coord{lon, lat}

	switch t := g.(type) {
	case *geom.Polygon:
		return polygonContains(t, c)

	case *geom.MultiPolygon:
		for i := 0; i < t.NumPolygons(); i++ {
			if polygonContains(t.Polygon(i), c) {
				return true
			}
		}
		return false

	default:
		return false
	}
}

// polygonContains tests the outer shell first, then rejects points strictly
// interior to any hole. Hole boundaries remain part of the polygon.
func polygonContains(p *geom.Polygon, c geom.Coord) bool {
	if p.NumLinearRings() == 0 {
		return false
	}

	layout := p.Layout()
	shell := p.LinearRing(0).FlatCoords()
	if len(shell) < 3*layout.Stride() {
		return false
	}
	if !xy.IsPointInRing(layout, c, shell) {
		return false
	}

	for i := 1; i < p.NumLinearRings(); i++ {
		hole := p.LinearRing(i).FlatCoords()
		if xy.LocatePointInRing(layout, c, hole) == location.Interior {
			return false
		}
	}
	return true
}
