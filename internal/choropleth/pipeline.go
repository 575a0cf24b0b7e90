package choropleth

import (
	"context"

	"go.uber.org/zap"
)

// Options tunes a classification run.
type Options struct {
	// Workers bounds join parallelism; <= 0 uses GOMAXPROCS.
	Workers int
}

// Classify runs the full pipeline: screen regions, join points, aggregate
// counts and rates, bin both dimensions into tertiles, combine the classes,
// and color each region. Output order follows region input order and depends
// only on the inputs, never on worker scheduling. The only fatal conditions
// are context cancellation and a class label missing from the palette;
// everything else lands in Diagnostics.
func Classify(ctx context.Context, points []PointEvent, regions []Region, opts Options) (*Result, error) {
	screened, skipped := ScreenRegions(regions)

	join, err := Join(ctx, points, screened, opts.Workers)
	if err != nil {
		return nil, err
	}

	aggs := Aggregate(screened, join.Counts)

	counts := make([]float64, len(aggs))
	rates := make([]float64, len(aggs))
	for i, a := range aggs {
		counts[i] = float64(a.Count)
		rates[i] = a.Rate
	}

	countBins := Tertiles(counts)
	rateBins := Tertiles(rates)

	diag := Diagnostics{
		TotalPoints:     len(points),
		MatchedPoints:   join.Matched,
		UnmatchedPoints: join.Unmatched,
		InvalidPoints:   join.Invalid,
		SkippedRegions:  skipped,
		CountCuts:       [2]float64{countBins.LowerCut, countBins.UpperCut},
		RateCuts:        [2]float64{rateBins.LowerCut, rateBins.UpperCut},
	}
	if len(aggs) > 0 {
		if countBins.Degenerate() {
			diag.DegenerateDims = append(diag.DegenerateDims, "count")
		}
		if rateBins.Degenerate() {
			diag.DegenerateDims = append(diag.DegenerateDims, "rate")
		}
	}
	for _, dim := range diag.DegenerateDims {
		zap.L().Warn("choropleth: degenerate distribution, tertiles cannot all be populated",
			zap.String("dimension", dim))
	}

	results := make([]RegionResult, 0, len(aggs))
	for i, a := range aggs {
		class, combineErr := Combine(rateBins.Classes[i], countBins.Classes[i])
		if combineErr != nil {
			return nil, combineErr
		}
		color, colorErr := PaletteColor(class)
		if colorErr != nil {
			return nil, colorErr
		}
		results = append(results, RegionResult{
			RegionID:   a.RegionID,
			Name:       a.Name,
			Count:      a.Count,
			Rate:       a.Rate,
			CountClass: countBins.Classes[i],
			RateClass:  rateBins.Classes[i],
			Class:      class,
			Color:      color,
		})
	}

	zap.L().Info("choropleth: classification complete",
		zap.Int("regions", len(results)),
		zap.Int("skipped_regions", len(skipped)),
		zap.Int("matched_points", join.Matched),
		zap.Int("unmatched_points", join.Unmatched),
		zap.Int("invalid_points", join.Invalid),
	)

	return &Result{Regions: results, Legend: Legend(), Diagnostics: diag}, nil
}
