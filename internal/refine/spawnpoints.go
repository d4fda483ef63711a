package refine

import (
	"context"
	"fmt"

	"github.com/NestWatch/NW-Backend/internal/geometry"
	"github.com/NestWatch/NW-Backend/internal/nest"
	"github.com/paulmach/orb"
)

// SpawnpointCatalog is the slice of the store spawnpoint validation needs.
type SpawnpointCatalog interface {
	Active(ctx context.Context) ([]nest.Nest, error)
	SetSpawnpointResult(ctx context.Context, nestID int64, count int, active bool) error
}

// ValidateSpawnpoints recounts the known spawnpoints inside every active
// nest and finalizes the build-cycle state: a nest stays active iff its
// count meets the minimum. Re-running with unchanged inputs reproduces the
// same counts and flags.
func ValidateSpawnpoints(ctx context.Context, cat SpawnpointCatalog, points []orb.Point, minimum int) (kept, discarded int, err error) {
	nests, err := cat.Active(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("load active nests: %w", err)
	}

	for _, n := range nests {
		count := countInside(n.Polygon.Polygon, points)
		active := count >= minimum
		if err := cat.SetSpawnpointResult(ctx, n.NestID, count, active); err != nil {
			return kept, discarded, fmt.Errorf("nest %d: %w", n.NestID, err)
		}
		if active {
			kept++
		} else {
			discarded++
		}
	}
	return kept, discarded, nil
}

func countInside(poly orb.Polygon, points []orb.Point) int {
	bound := poly.Bound()
	count := 0
	for _, pt := range points {
		if !bound.Contains(pt) {
			continue
		}
		if geometry.Contains(poly, pt) {
			count++
		}
	}
	return count
}
