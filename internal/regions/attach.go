package regions

import (
	"sort"

	"go.uber.org/zap"

	"github.com/sells-group/atlas-cli/internal/choropleth"
)

// AttachDemographics sets each region's demographic denominator from values
// keyed by region ID. Regions without a value are dropped so rates never
// divide by a missing denominator. Returns the kept regions and the sorted
// IDs that had no value.
func AttachDemographics(regions []choropleth.Region, values map[string]float64) ([]choropleth.Region, []string) {
	kept := make([]choropleth.Region, 0, len(regions))
	var missing []string

	for _, r := range regions {
		v, ok := values[r.ID]
		if !ok {
			missing = append(missing, r.ID)
			continue
		}
		r.Demographic = v
		kept = append(kept, r)
	}

	sort.Strings(missing)
	if len(missing) > 0 {
		zap.L().Warn("regions: dropping regions without demographics",
			zap.Int("missing", len(missing)),
		)
		zap.L().Debug("regions: missing demographic ids", zap.Strings("region_ids", missing))
	}

	return kept, missing
}
