package choropleth

import (
	"context"
	"runtime"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/atlas-cli/internal/geometry"
)

// JoinResult holds per-region event counts plus the points that matched no
// region and the points excluded for bad coordinates.
type JoinResult struct {
	Counts    map[string]int
	Matched   int
	Unmatched int
	Invalid   int
}

type shard struct {
	start, end int
}

// shardRange splits n items into at most k contiguous shards of near-equal
// size.
func shardRange(n, k int) []shard {
	if n == 0 || k < 1 {
		return nil
	}
	if k > n {
		k = n
	}
	shards := make([]shard, 0, k)
	base, rem := n/k, n%k
	start := 0
	for i := 0; i < k; i++ {
		size := base
		if i < rem {
			size++
		}
		shards = append(shards, shard{start: start, end: start + size})
		start += size
	}
	return shards
}

// Join assigns each point to the first region in slice order whose boundary
// contains it; a point exactly on a boundary counts as contained. Regions are
// assumed non-overlapping. Each region's bounding box is checked before the
// full ring test. Points are sharded across workers and shard counts merge by
// addition, so results do not depend on worker count or scheduling.
// workers <= 0 uses GOMAXPROCS.
func Join(ctx context.Context, points []PointEvent, regions []Region, workers int) (*JoinResult, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	bounds := make([]*geom.Bounds, len(regions))
	for i := range regions {
		if regions[i].Boundary != nil {
			bounds[i] = regions[i].Boundary.Bounds()
		}
	}

	shards := shardRange(len(points), workers)
	partials := make([]JoinResult, len(shards))

	g, ctx := errgroup.WithContext(ctx)
	for si, sh := range shards {
		g.Go(func() error {
			local := JoinResult{Counts: make(map[string]int)}
			for pi := sh.start; pi < sh.end; pi++ {
				if err := ctx.Err(); err != nil {
					return err
				}

				p := points[pi]
				if !p.Valid() {
					local.Invalid++
					continue
				}

				coord := geom.Coord{p.Lon, p.Lat}
				matched := false
				for ri := range regions {
					if bounds[ri] == nil || !bounds[ri].OverlapsPoint(geom.XY, coord) {
						continue
					}
					if geometry.Contains(regions[ri].Boundary, p.Lon, p.Lat) {
						local.Counts[regions[ri].ID]++
						matched = true
						break
					}
				}
				if matched {
					local.Matched++
				} else {
					local.Unmatched++
				}
			}
			partials[si] = local
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "choropleth: join points")
	}

	res := &JoinResult{Counts: make(map[string]int)}
	for _, part := range partials {
		for id, n := range part.Counts {
			res.Counts[id] += n
		}
		res.Matched += part.Matched
		res.Unmatched += part.Unmatched
		res.Invalid += part.Invalid
	}

	zap.L().Debug("choropleth: join complete",
		zap.Int("points", len(points)),
		zap.Int("regions", len(regions)),
		zap.Int("matched", res.Matched),
		zap.Int("unmatched", res.Unmatched),
		zap.Int("invalid", res.Invalid),
		zap.Int("shards", len(shards)),
	)

	return res, nil
}
