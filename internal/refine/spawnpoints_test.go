package refine_test

import (
	"context"
	"testing"

	"github.com/NestWatch/NW-Backend/internal/nest"
	"github.com/NestWatch/NW-Backend/internal/refine"
	"github.com/paulmach/orb"
)

func pointsInside(n int, x0, y0 float64) []orb.Point {
	pts := make([]orb.Point, 0, n)
	for i := 0; i < n; i++ {
		pts = append(pts, orb.Point{x0 + float64(i+1)*u/2, y0 + 5*u})
	}
	return pts
}

// TestValidateSpawnpoints verifies the threshold: 9 points with a minimum
// of 10 discards, 10 points keeps the nest active, and the counts land in
// the catalog either way.
func TestValidateSpawnpoints(t *testing.T) {
	sparse := rectNest(1, 0, 0, 10*u, 10*u)
	dense := rectNest(2, 100*u, 0, 110*u, 10*u)

	points := append(pointsInside(9, 0, 0), pointsInside(10, 100*u, 0)...)
	// Noise outside both nests must not count.
	points = append(points, orb.Point{500 * u, 500 * u})

	cat := newMemCatalog(sparse, dense)
	kept, discarded, err := refine.ValidateSpawnpoints(context.Background(), cat, points, 10)
	if err != nil {
		t.Fatalf("ValidateSpawnpoints returned error: %v", err)
	}
	if kept != 1 || discarded != 1 {
		t.Fatalf("kept = %d discarded = %d, want 1 and 1", kept, discarded)
	}

	if cat.nests[1].Active {
		t.Error("expected the 9-point nest to be inactive")
	}
	if got := cat.nests[1].Reason(); got != nest.ReasonSpawnpoints {
		t.Errorf("reason = %q, want %q", got, nest.ReasonSpawnpoints)
	}
	if cat.nests[1].Spawnpoints != 9 {
		t.Errorf("spawnpoints = %d, want 9", cat.nests[1].Spawnpoints)
	}

	if !cat.nests[2].Active || cat.nests[2].Discarded != nil {
		t.Error("expected the 10-point nest to stay active")
	}
	if cat.nests[2].Spawnpoints != 10 {
		t.Errorf("spawnpoints = %d, want 10", cat.nests[2].Spawnpoints)
	}
}

// TestValidateSpawnpoints_Idempotent verifies re-running with the same
// inputs reproduces the same state.
func TestValidateSpawnpoints_Idempotent(t *testing.T) {
	n := rectNest(1, 0, 0, 10*u, 10*u)
	points := pointsInside(12, 0, 0)

	cat := newMemCatalog(n)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, _, err := refine.ValidateSpawnpoints(ctx, cat, points, 10); err != nil {
			t.Fatalf("run %d: %v", i+1, err)
		}
		if !cat.nests[1].Active || cat.nests[1].Spawnpoints != 12 {
			t.Fatalf("run %d: active=%v spawnpoints=%d, want active with 12",
				i+1, cat.nests[1].Active, cat.nests[1].Spawnpoints)
		}
	}
}
