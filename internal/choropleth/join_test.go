package choropleth

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoin_CountsAndConservation(t *testing.T) {
	regions := []Region{
		squareRegion(t, "A", 0, 0),
		squareRegion(t, "B", 20, 0),
	}

	var points []PointEvent
	points = append(points, pointsIn(0, 0, 3)...)
	points = append(points, pointsIn(20, 0, 2)...)
	points = append(points,
		PointEvent{ID: "nowhere", Lon: 50, Lat: 50},
		PointEvent{ID: "bad", Lon: math.NaN(), Lat: 5},
	)

	res, err := Join(context.Background(), points, regions, 1)
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"A": 3, "B": 2}, res.Counts)
	assert.Equal(t, 5, res.Matched)
	assert.Equal(t, 1, res.Unmatched)
	assert.Equal(t, 1, res.Invalid)
	assert.Equal(t, len(points), res.Matched+res.Unmatched+res.Invalid)
}

func TestJoin_BoundaryCountsAsContained(t *testing.T) {
	regions := []Region{squareRegion(t, "A", 0, 0)}
	points := []PointEvent{
		{ID: "edge", Lon: 0, Lat: 5},
		{ID: "corner", Lon: 0, Lat: 0},
	}

	res, err := Join(context.Background(), points, regions, 1)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Counts["A"])
	assert.Equal(t, 2, res.Matched)
	assert.Zero(t, res.Unmatched)
}

func TestJoin_IndependentOfWorkersAndOrder(t *testing.T) {
	regions := []Region{
		squareRegion(t, "A", 0, 0),
		squareRegion(t, "B", 20, 0),
		squareRegion(t, "C", 40, 0),
	}

	var points []PointEvent
	points = append(points, pointsIn(0, 0, 17)...)
	points = append(points, pointsIn(20, 0, 29)...)
	points = append(points, pointsIn(40, 0, 5)...)
	points = append(points, PointEvent{ID: "lost", Lon: -50, Lat: -50})

	base, err := Join(context.Background(), points, regions, 1)
	require.NoError(t, err)

	for _, workers := range []int{2, 3, 7, 16, 0} {
		res, joinErr := Join(context.Background(), points, regions, workers)
		require.NoError(t, joinErr)
		assert.Equal(t, base.Counts, res.Counts, "workers=%d", workers)
		assert.Equal(t, base.Matched, res.Matched, "workers=%d", workers)
		assert.Equal(t, base.Unmatched, res.Unmatched, "workers=%d", workers)
	}

	reversed := make([]PointEvent, len(points))
	for i, p := range points {
		reversed[len(points)-1-i] = p
	}
	res, err := Join(context.Background(), reversed, regions, 4)
	require.NoError(t, err)
	assert.Equal(t, base.Counts, res.Counts)
}

func TestJoin_FirstRegionWinsOnOverlap(t *testing.T) {
	// Identical squares; points must land in the first region in slice order.
	regions := []Region{
		squareRegion(t, "first", 0, 0),
		squareRegion(t, "second", 0, 0),
	}

	res, err := Join(context.Background(), pointsIn(0, 0, 4), regions, 2)
	require.NoError(t, err)

	assert.Equal(t, 4, res.Counts["first"])
	assert.Zero(t, res.Counts["second"])
	assert.Equal(t, 4, res.Matched)
}

func TestJoin_EmptyInputs(t *testing.T) {
	t.Run("no points", func(t *testing.T) {
		res, err := Join(context.Background(), nil, []Region{squareRegion(t, "A", 0, 0)}, 4)
		require.NoError(t, err)
		assert.Empty(t, res.Counts)
		assert.Zero(t, res.Matched+res.Unmatched+res.Invalid)
	})

	t.Run("no regions", func(t *testing.T) {
		res, err := Join(context.Background(), pointsIn(0, 0, 3), nil, 4)
		require.NoError(t, err)
		assert.Empty(t, res.Counts)
		assert.Equal(t, 3, res.Unmatched)
	})
}

func TestJoin_NilBoundaryNeverMatches(t *testing.T) {
	regions := []Region{{ID: "ghost", AreaKm2: 10}}

	res, err := Join(context.Background(), pointsIn(0, 0, 2), regions, 1)
	require.NoError(t, err)

	assert.Empty(t, res.Counts)
	assert.Equal(t, 2, res.Unmatched)
}

func TestJoin_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Join(ctx, pointsIn(0, 0, 10), []Region{squareRegion(t, "A", 0, 0)}, 2)
	assert.Error(t, err)
}
