package refine

import (
	"context"
	"fmt"
	"os"

	"github.com/NestWatch/NW-Backend/internal/geometry"
	"github.com/NestWatch/NW-Backend/internal/nest"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// coverageEpsilon absorbs floating point noise at the boundary: a nest
// covered exactly at the minimum is retained.
const coverageEpsilon = 1e-9

// LoadCoverage reads the scan-coverage geofences from a GeoJSON
// FeatureCollection. Polygon and MultiPolygon features both contribute.
func LoadCoverage(path string) ([]orb.Polygon, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open areas file: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		return nil, fmt.Errorf("parse areas file: %w", err)
	}

	var polys []orb.Polygon
	for _, f := range fc.Features {
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			polys = append(polys, g)
		case orb.MultiPolygon:
			polys = append(polys, g...)
		}
	}
	if len(polys) == 0 {
		return nil, fmt.Errorf("areas file %s contains no polygons", path)
	}
	return polys, nil
}

// FilterLowCoverage discards active nests whose polygon is insufficiently
// covered by the union of the scan geofences. A nest only partially inside
// the scanned area cannot have its spawnpoint count trusted.
func FilterLowCoverage(ctx context.Context, cat Catalog, coverage []orb.Polygon, minCoverage float64) (int, error) {
	union, err := geometry.Union(coverage)
	if err != nil {
		return 0, fmt.Errorf("union coverage geofences: %w", err)
	}

	nests, err := cat.Active(ctx)
	if err != nil {
		return 0, fmt.Errorf("load active nests: %w", err)
	}

	discarded := 0
	for _, n := range nests {
		ratio, err := geometry.CoveredRatio(n.Polygon.Polygon, union)
		if err != nil {
			ratio = 0
		}
		if ratio < minCoverage-coverageEpsilon {
			if err := cat.Discard(ctx, n.NestID, nest.ReasonLowCoverage); err != nil {
				return discarded, fmt.Errorf("discard nest %d: %w", n.NestID, err)
			}
			discarded++
		}
	}
	return discarded, nil
}
