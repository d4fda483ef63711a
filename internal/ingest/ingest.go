// Package ingest turns parsed candidate polygons into catalog rows.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/NestWatch/NW-Backend/internal/config"
	"github.com/NestWatch/NW-Backend/internal/geometry"
	"github.com/NestWatch/NW-Backend/internal/nest"
	"github.com/paulmach/orb"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Candidate is one raw tagged polygon from the geodata export. Rings may be
// multiple when the source element is a multipolygon.
type Candidate struct {
	SourceID string            `json:"source_id"`
	AreaName string            `json:"area_name"`
	Tags     map[string]string `json:"tags"`
	Rings    []orb.Ring        `json:"polygons"`
}

// Catalog is the slice of the store this stage needs.
type Catalog interface {
	UpsertCandidate(ctx context.Context, n *nest.Nest) error
	RetireMissing(ctx context.Context, seen []string, deleteStale bool) (int64, error)
}

// Result summarizes one ingestion pass.
type Result struct {
	Saved   int // upserted rows
	Dropped int // below minimum size or degenerate geometry
	Skipped int // malformed candidates
	Retired int64
}

// classificationTags are checked in order when a candidate has no explicit
// name; their value becomes a synthesized label ("sports_centre" → "Sports
// Centre").
var classificationTags = []string{"landuse", "natural", "leisure"}

var titleCaser = cases.Title(language.English)

// Run normalizes and upserts every candidate. Degenerate or undersized
// geometry drops the candidate silently (counted); a storage error aborts
// the stage so the surrounding transaction rolls back untouched.
func Run(ctx context.Context, cat Catalog, cands []Candidate, cfg config.Config) (Result, error) {
	var res Result
	seen := make([]string, 0, len(cands))

	for _, c := range cands {
		if c.SourceID == "" || len(c.Rings) == 0 {
			res.Skipped++
			continue
		}

		ring, err := geometry.Repair(toMultiPolygon(c.Rings), cfg.BufferMultipolygons)
		if err != nil {
			// Zero-area after repair: same outcome as below minimum size.
			res.Dropped++
			continue
		}
		poly := orb.Polygon{ring}
		m2 := geometry.Area(poly)
		if m2 < cfg.MinimumM2 {
			res.Dropped++
			continue
		}

		center := geometry.Centroid(poly)
		n := nest.Nest{
			SourceID: c.SourceID,
			Name:     nameFor(c.Tags, cfg.DefaultName),
			AreaName: c.AreaName,
			Lat:      center.Lat(),
			Lon:      center.Lon(),
			Polygon:  nest.Polygon{Polygon: poly},
			M2:       m2,
		}
		if err := cat.UpsertCandidate(ctx, &n); err != nil {
			return res, fmt.Errorf("upsert %s: %w", c.SourceID, err)
		}
		seen = append(seen, c.SourceID)
		res.Saved++
	}

	retired, err := cat.RetireMissing(ctx, seen, cfg.StalePolicy == config.StaleDelete)
	if err != nil {
		return res, fmt.Errorf("retire missing: %w", err)
	}
	res.Retired = retired

	if res.Skipped > 0 {
		log.Printf("[ingest] skipped %d malformed candidates", res.Skipped)
	}
	return res, nil
}

// nameFor resolves the display name: explicit name tag, then a synthesized
// label from the classification tags, then the configured default.
func nameFor(tags map[string]string, defaultName string) string {
	if name := strings.TrimSpace(tags["name"]); name != "" {
		return name
	}
	for _, key := range classificationTags {
		if v := strings.TrimSpace(tags[key]); v != "" {
			return titleCaser.String(strings.ReplaceAll(v, "_", " "))
		}
	}
	return defaultName
}

// LoadCandidates reads a candidate export file (a JSON array). The file is
// produced by the acquisition side; this is just the interface adapter.
func LoadCandidates(path string) ([]Candidate, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open candidates: %w", err)
	}
	var cands []Candidate
	if err := json.Unmarshal(raw, &cands); err != nil {
		return nil, fmt.Errorf("parse candidates: %w", err)
	}
	return cands, nil
}

func toMultiPolygon(rings []orb.Ring) orb.MultiPolygon {
	mp := make(orb.MultiPolygon, 0, len(rings))
	for _, r := range rings {
		mp = append(mp, orb.Polygon{r})
	}
	return mp
}
