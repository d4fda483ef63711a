package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/NestWatch/NW-Backend/internal/config"
	"github.com/NestWatch/NW-Backend/internal/nest"
	"github.com/paulmach/orb"
)

// memCatalog implements Catalog without a database.
type memCatalog struct {
	upserts []nest.Nest
	seen    []string
	deleted bool
	retired int64
}

func (m *memCatalog) UpsertCandidate(ctx context.Context, n *nest.Nest) error {
	m.upserts = append(m.upserts, *n)
	return nil
}

func (m *memCatalog) RetireMissing(ctx context.Context, seen []string, deleteStale bool) (int64, error) {
	m.seen = seen
	m.deleted = deleteStale
	return m.retired, nil
}

// squareRing returns a closed square with sides of roughly side*11 meters.
func squareRing(x0, y0, side float64) orb.Ring {
	u := 1e-4
	return orb.Ring{
		{x0, y0}, {x0 + side*u, y0}, {x0 + side*u, y0 + side*u}, {x0, y0 + side*u}, {x0, y0},
	}
}

func testConfig() config.Config {
	return config.Config{
		MinimumM2:   5000,
		DefaultName: "Unknown Nest",
		StalePolicy: config.StaleKeep,
	}
}

func TestRun(t *testing.T) {
	cands := []Candidate{
		{
			SourceID: "way/1",
			AreaName: "Springfield",
			Tags:     map[string]string{"name": "Riverside Park"},
			Rings:    []orb.Ring{squareRing(0, 0, 10)},
		},
		{
			// Below the minimum size, dropped.
			SourceID: "way/2",
			Rings:    []orb.Ring{squareRing(1, 0, 2)},
		},
		{
			// No rings at all, skipped.
			SourceID: "way/3",
		},
		{
			// No source id, skipped.
			Rings: []orb.Ring{squareRing(2, 0, 10)},
		},
	}

	cat := &memCatalog{}
	res, err := Run(context.Background(), cat, cands, testConfig())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.Saved != 1 || res.Dropped != 1 || res.Skipped != 2 {
		t.Errorf("result = %+v, want saved 1 dropped 1 skipped 2", res)
	}

	if len(cat.upserts) != 1 {
		t.Fatalf("upserted %d nests, want 1", len(cat.upserts))
	}
	n := cat.upserts[0]
	if n.SourceID != "way/1" || n.Name != "Riverside Park" || n.AreaName != "Springfield" {
		t.Errorf("unexpected nest identity: %+v", n)
	}
	if n.M2 < 5000 {
		t.Errorf("m2 = %v, want at least the minimum", n.M2)
	}
	if n.Lat == 0 || n.Lon == 0 {
		t.Error("expected a computed centroid")
	}

	if len(cat.seen) != 1 || cat.seen[0] != "way/1" {
		t.Errorf("seen = %v, want only the saved source id", cat.seen)
	}
	if cat.deleted {
		t.Error("keep policy must not request deletion")
	}
}

func TestRun_DeleteStalePolicy(t *testing.T) {
	cfg := testConfig()
	cfg.StalePolicy = config.StaleDelete

	cat := &memCatalog{retired: 3}
	res, err := Run(context.Background(), cat, []Candidate{{
		SourceID: "way/1",
		Rings:    []orb.Ring{squareRing(0, 0, 10)},
	}}, cfg)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !cat.deleted {
		t.Error("delete policy must request deletion of vanished nests")
	}
	if res.Retired != 3 {
		t.Errorf("retired = %d, want 3", res.Retired)
	}
}

// TestNameFor covers the resolution order: explicit name, synthesized
// classification label, configured default.
func TestNameFor(t *testing.T) {
	cases := []struct {
		name string
		tags map[string]string
		want string
	}{
		{"explicit name wins", map[string]string{"name": "Oak Commons", "leisure": "park"}, "Oak Commons"},
		{"landuse label", map[string]string{"landuse": "grass"}, "Grass"},
		{"underscores become spaces", map[string]string{"leisure": "sports_centre"}, "Sports Centre"},
		{"landuse beats leisure", map[string]string{"landuse": "meadow", "leisure": "park"}, "Meadow"},
		{"blank name falls through", map[string]string{"name": "  ", "natural": "wood"}, "Wood"},
		{"nothing usable", map[string]string{}, "Unknown Nest"},
	}
	for _, tc := range cases {
		if got := nameFor(tc.tags, "Unknown Nest"); got != tc.want {
			t.Errorf("%s: nameFor(%v) = %q, want %q", tc.name, tc.tags, got, tc.want)
		}
	}
}

func TestLoadCandidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "candidates.json")
	content := `[{"source_id":"way/9","area_name":"Shelbyville","tags":{"leisure":"park"},
		"polygons":[[[0,0],[0.001,0],[0.001,0.001],[0,0.001],[0,0]]]}]`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cands, err := LoadCandidates(path)
	if err != nil {
		t.Fatalf("LoadCandidates returned error: %v", err)
	}
	if len(cands) != 1 || cands[0].SourceID != "way/9" || len(cands[0].Rings) != 1 {
		t.Errorf("unexpected candidates: %+v", cands)
	}

	if _, err := LoadCandidates(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
