package choropleth

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

// squareRegion builds a 10x10 degree square region with its lower-left corner
// at (x0, y0). Area and demographic carry placeholder values tests override
// as needed.
func squareRegion(t *testing.T, id string, x0, y0 float64) Region {
	t.Helper()
	ring := geom.NewLinearRingFlat(geom.XY, []float64{
		x0, y0,
		x0 + 10, y0,
		x0 + 10, y0 + 10,
		x0, y0 + 10,
		x0, y0,
	})
	poly := geom.NewPolygon(geom.XY)
	require.NoError(t, poly.Push(ring))
	return Region{
		ID:          id,
		Name:        "Region " + id,
		Boundary:    poly,
		AreaKm2:     100,
		Demographic: 1000,
	}
}

// pointsIn returns n distinct valid points strictly inside the 10x10 square
// at (x0, y0). Supports up to 100 points per square.
func pointsIn(x0, y0 float64, n int) []PointEvent {
	pts := make([]PointEvent, 0, n)
	for i := 0; i < n; i++ {
		pts = append(pts, PointEvent{
			ID:  fmt.Sprintf("p-%v-%v-%d", x0, y0, i),
			Lon: x0 + 1 + float64(i%10)*0.8,
			Lat: y0 + 1 + float64(i/10)*0.8,
		})
	}
	return pts
}
