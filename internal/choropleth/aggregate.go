package choropleth

import (
	"math"

	"go.uber.org/zap"
)

// ScreenRegions validates regions ahead of the join. Duplicate IDs keep their
// first occurrence; a region must carry geometry and a positive finite area.
// Survivors come back in input order together with a report of exclusions.
func ScreenRegions(regions []Region) ([]Region, []SkippedRegion) {
	valid := make([]Region, 0, len(regions))
	var skipped []SkippedRegion
	seen := make(map[string]struct{}, len(regions))

	for _, r := range regions {
		if _, dup := seen[r.ID]; dup {
			skipped = append(skipped, SkippedRegion{RegionID: r.ID, Reason: SkipDuplicateID})
			continue
		}
		seen[r.ID] = struct{}{}

		if r.Boundary == nil || len(r.Boundary.FlatCoords()) == 0 ||
			r.AreaKm2 <= 0 || math.IsNaN(r.AreaKm2) || math.IsInf(r.AreaKm2, 0) {
			skipped = append(skipped, SkippedRegion{RegionID: r.ID, Reason: SkipInvalidGeometry})
			continue
		}

		valid = append(valid, r)
	}

	if len(skipped) > 0 {
		zap.L().Warn("choropleth: regions excluded",
			zap.Int("skipped", len(skipped)),
			zap.Int("kept", len(valid)),
		)
	}
	return valid, skipped
}

// Aggregate computes the event count and demographic density rate for each
// screened region, preserving region order. counts comes from Join; a region
// absent from it aggregates with Count 0, which is a valid observation.
func Aggregate(regions []Region, counts map[string]int) []RegionAggregate {
	aggs := make([]RegionAggregate, 0, len(regions))
	for _, r := range regions {
		aggs = append(aggs, RegionAggregate{
			RegionID:    r.ID,
			Name:        r.Name,
			Count:       counts[r.ID],
			AreaKm2:     r.AreaKm2,
			Demographic: r.Demographic,
			Rate:        r.Demographic / r.AreaKm2,
		})
	}
	return aggs
}
