// Package geometry holds every spatial computation the nest pipeline needs.
// All projection and precision choices live here so the storage layer never
// has to know about coordinates beyond reading and writing them.
package geometry

import (
	"errors"
	"math"

	"github.com/engelsjk/polygol"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"
)

// ErrDegenerate is returned when a polygon collapses to zero area after
// normalization. Callers treat it the same as a polygon below the minimum
// size.
var ErrDegenerate = errors.New("degenerate polygon: zero area")

// bufferMeters is the offset distance used when merging the rings of a
// multipolygon. It only needs to be large enough to close the slivers
// between rings that share a boundary in the source data.
const bufferMeters = 5.0

// metersPerDegree is the length of one degree of latitude. Longitude is
// corrected by cos(lat) where it matters.
const metersPerDegree = 111320.0

// Area returns the polygon's area in square meters on the WGS84 spheroid.
// Every area in the pipeline comes from this function, so ratios between
// areas are always comparable.
func Area(p orb.Polygon) float64 {
	return math.Abs(geo.Area(p))
}

// IntersectionRatio returns 100 * Area(a ∩ b) / Area(b). The caller picks
// the denominator: when deciding whether to discard the smaller of two
// overlapping nests, b is the smaller one.
func IntersectionRatio(a, b orb.Polygon) (float64, error) {
	areaB := Area(b)
	if areaB == 0 {
		return 0, ErrDegenerate
	}
	inter, err := polygol.Intersection(toGeom(orb.MultiPolygon{a}), toGeom(orb.MultiPolygon{b}))
	if err != nil {
		return 0, err
	}
	return 100 * totalArea(fromGeom(inter)) / areaB, nil
}

// CoveredRatio returns the percentage of p's area lying inside the union of
// the cover polygons.
func CoveredRatio(p orb.Polygon, cover orb.MultiPolygon) (float64, error) {
	areaP := Area(p)
	if areaP == 0 {
		return 0, ErrDegenerate
	}
	inter, err := polygol.Intersection(toGeom(orb.MultiPolygon{p}), toGeom(cover))
	if err != nil {
		return 0, err
	}
	return 100 * totalArea(fromGeom(inter)) / areaP, nil
}

// Contains reports whether the point lies inside the polygon. Ring
// orientation does not matter.
func Contains(p orb.Polygon, pt orb.Point) bool {
	return planar.PolygonContains(p, pt)
}

// Union merges a set of polygons into one multipolygon.
func Union(polys []orb.Polygon) (orb.MultiPolygon, error) {
	if len(polys) == 0 {
		return nil, nil
	}
	g := toGeom(orb.MultiPolygon{polys[0]})
	rest := make([]polygol.Geom, 0, len(polys)-1)
	for _, p := range polys[1:] {
		rest = append(rest, toGeom(orb.MultiPolygon{p}))
	}
	out, err := polygol.Union(g, rest...)
	if err != nil {
		return nil, err
	}
	return fromGeom(out), nil
}

// Repair turns a multipolygon candidate into a single simple ring.
//
// Without buffering it keeps the largest ring by area and drops the rest.
// With buffering each ring is offset outward by a few meters first and the
// results are unioned, so rings that nearly touch melt into one polygon
// before the largest is picked. Buffering trades a slightly inflated
// outline for not losing half of a park that the source split in two.
func Repair(mp orb.MultiPolygon, buffer bool) (orb.Ring, error) {
	rings := outerRings(mp)
	if len(rings) == 0 {
		return nil, ErrDegenerate
	}
	if len(rings) == 1 {
		return normalize(rings[0])
	}
	if buffer {
		grown := make([]orb.Polygon, 0, len(rings))
		for _, r := range rings {
			grown = append(grown, orb.Polygon{offsetRing(r, bufferMeters)})
		}
		merged, err := Union(grown)
		if err == nil && len(merged) > 0 {
			return normalize(largestRing(merged))
		}
		// Union failures fall through to the largest-ring path.
	}
	return normalize(rings[0], rings[1:]...)
}

// Centroid returns the planar centroid of the polygon, used for the nest's
// display coordinate.
func Centroid(p orb.Polygon) orb.Point {
	c, _ := planar.CentroidArea(p)
	return c
}

// CloseRing appends the first vertex at the end if the ring is open.
func CloseRing(r orb.Ring) orb.Ring {
	if len(r) == 0 || r.Closed() {
		return r
	}
	return append(r, r[0])
}

// normalize closes the ring and rejects zero-area results. When extra rings
// are passed the largest one by area wins.
func normalize(r orb.Ring, others ...orb.Ring) (orb.Ring, error) {
	best := r
	bestArea := Area(orb.Polygon{CloseRing(best)})
	for _, o := range others {
		if a := Area(orb.Polygon{CloseRing(o)}); a > bestArea {
			best, bestArea = o, a
		}
	}
	if bestArea == 0 {
		return nil, ErrDegenerate
	}
	return CloseRing(best), nil
}

// outerRings collects the outer ring of every polygon, skipping holes.
func outerRings(mp orb.MultiPolygon) []orb.Ring {
	var rings []orb.Ring
	for _, p := range mp {
		if len(p) > 0 && len(p[0]) >= 3 {
			rings = append(rings, p[0])
		}
	}
	return rings
}

// largestRing returns the outer ring of the largest polygon in the set.
func largestRing(mp orb.MultiPolygon) orb.Ring {
	var best orb.Ring
	bestArea := -1.0
	for _, p := range mp {
		if len(p) == 0 {
			continue
		}
		if a := Area(orb.Polygon{p[0]}); a > bestArea {
			best, bestArea = p[0], a
		}
	}
	return best
}

// offsetRing moves every vertex outward along the bisector of its two edges
// by roughly dist meters. A miter offset is plenty here: the distance is a
// few meters and the result is immediately unioned and re-measured.
func offsetRing(r orb.Ring, dist float64) orb.Ring {
	r = CloseRing(r)
	if r.Orientation() != orb.CCW {
		r.Reverse()
	}
	n := len(r) - 1 // last vertex duplicates the first
	if n < 3 {
		return r
	}
	out := make(orb.Ring, 0, n+1)
	for i := 0; i < n; i++ {
		prev := r[(i-1+n)%n]
		cur := r[i]
		next := r[(i+1)%n]

		// Outward normals of the two edges meeting at cur. For a CCW ring
		// the interior is to the left, so the right-hand normal points out.
		n1x, n1y := rightNormal(prev, cur)
		n2x, n2y := rightNormal(cur, next)
		bx, by := n1x+n2x, n1y+n2y
		l := math.Hypot(bx, by)
		if l < 1e-12 {
			bx, by, l = n1x, n1y, 1
		}
		bx, by = bx/l, by/l

		dLat := dist / metersPerDegree
		dLon := dist / (metersPerDegree * math.Max(0.01, math.Cos(cur.Lat()*math.Pi/180)))
		out = append(out, orb.Point{cur.Lon() + bx*dLon, cur.Lat() + by*dLat})
	}
	return CloseRing(out)
}

func rightNormal(a, b orb.Point) (float64, float64) {
	dx, dy := b.Lon()-a.Lon(), b.Lat()-a.Lat()
	l := math.Hypot(dx, dy)
	if l < 1e-12 {
		return 0, 0
	}
	return dy / l, -dx / l
}

// toGeom converts to the coordinate slices polygol operates on.
func toGeom(mp orb.MultiPolygon) polygol.Geom {
	g := make(polygol.Geom, 0, len(mp))
	for _, p := range mp {
		poly := make([][][]float64, 0, len(p))
		for _, r := range p {
			ring := make([][]float64, 0, len(r))
			for _, pt := range r {
				ring = append(ring, []float64{pt.Lon(), pt.Lat()})
			}
			poly = append(poly, ring)
		}
		g = append(g, poly)
	}
	return g
}

func fromGeom(g polygol.Geom) orb.MultiPolygon {
	mp := make(orb.MultiPolygon, 0, len(g))
	for _, poly := range g {
		p := make(orb.Polygon, 0, len(poly))
		for _, ring := range poly {
			r := make(orb.Ring, 0, len(ring))
			for _, pt := range ring {
				r = append(r, orb.Point{pt[0], pt[1]})
			}
			p = append(p, r)
		}
		mp = append(mp, p)
	}
	return mp
}

// totalArea sums the area of every polygon in the set.
func totalArea(mp orb.MultiPolygon) float64 {
	var sum float64
	for _, p := range mp {
		sum += Area(p)
	}
	return sum
}
