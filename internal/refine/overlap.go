// Package refine holds the build-cycle filtering stages that run after
// ingestion: overlap resolution, the coverage filter, and spawnpoint
// validation.
package refine

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/NestWatch/NW-Backend/internal/geometry"
	"github.com/NestWatch/NW-Backend/internal/nest"
)

// Catalog is the slice of the store the overlap and coverage stages need.
type Catalog interface {
	Active(ctx context.Context) ([]nest.Nest, error)
	Discard(ctx context.Context, nestID int64, reason nest.DiscardReason) error
}

// ResolveOverlaps discards the smaller of every pair of active nests whose
// polygons overlap beyond maxOverlap percent (of the smaller one's area).
//
// Decisions are computed from a read-only snapshot of the active set and
// applied afterwards, so a crash mid-stage cannot leave a half-resolved
// catalog. Nests are visited largest-first with nest_id as the tie-break,
// which makes the surviving set deterministic: discarding a smaller nest
// can never re-activate anything, so one pass suffices and a second run is
// a no-op.
func ResolveOverlaps(ctx context.Context, cat Catalog, maxOverlap float64) (int, error) {
	nests, err := cat.Active(ctx)
	if err != nil {
		return 0, fmt.Errorf("load active nests: %w", err)
	}

	// Largest first; equal areas keep the lower nest_id.
	sort.Slice(nests, func(i, j int) bool {
		if nests[i].M2 != nests[j].M2 {
			return nests[i].M2 > nests[j].M2
		}
		return nests[i].NestID < nests[j].NestID
	})

	discarded := make(map[int64]bool)
	for i := range nests {
		a := &nests[i]
		if discarded[a.NestID] {
			continue
		}
		for j := i + 1; j < len(nests); j++ {
			b := &nests[j]
			if discarded[b.NestID] {
				continue
			}
			if !a.Polygon.Bound().Intersects(b.Polygon.Bound()) {
				continue
			}
			ratio, err := geometry.IntersectionRatio(a.Polygon.Polygon, b.Polygon.Polygon)
			if err != nil {
				// Degenerate geometry slipped past ingestion; drop the
				// smaller nest rather than keep an unmeasurable polygon.
				log.Printf("[overlap] nest %d vs %d: %v", a.NestID, b.NestID, err)
				discarded[b.NestID] = true
				continue
			}
			if ratio > maxOverlap {
				discarded[b.NestID] = true
			}
		}
	}

	for _, n := range nests {
		if !discarded[n.NestID] {
			continue
		}
		if err := cat.Discard(ctx, n.NestID, nest.ReasonOverlap); err != nil {
			return 0, fmt.Errorf("discard nest %d: %w", n.NestID, err)
		}
	}
	return len(discarded), nil
}
