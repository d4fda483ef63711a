package refine_test

import (
	"context"
	"testing"

	"github.com/NestWatch/NW-Backend/internal/nest"
	"github.com/NestWatch/NW-Backend/internal/refine"
	"github.com/paulmach/orb"
)

func band(x0, y0, x1, y1 float64) orb.Polygon {
	return orb.Polygon{orb.Ring{
		{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}, {x0, y0},
	}}
}

// TestFilterLowCoverage verifies the inclusive boundary: a nest covered at
// exactly the minimum is retained, one below it is discarded.
func TestFilterLowCoverage(t *testing.T) {
	atBoundary := rectNest(1, 0, 0, 10*u, 10*u)
	below := rectNest(2, 20*u, 0, 30*u, 10*u)

	coverage := []orb.Polygon{
		band(0, 0, 10*u, 3*u),      // 30% of nest 1
		band(20*u, 0, 30*u, 2.5*u), // 25% of nest 2
	}

	cat := newMemCatalog(atBoundary, below)
	discarded, err := refine.FilterLowCoverage(context.Background(), cat, coverage, 30)
	if err != nil {
		t.Fatalf("FilterLowCoverage returned error: %v", err)
	}
	if discarded != 1 {
		t.Fatalf("discarded = %d, want 1", discarded)
	}

	if !cat.nests[1].Active {
		t.Error("expected the nest at exactly 30% coverage to be retained")
	}
	if cat.nests[2].Active {
		t.Error("expected the 25% covered nest to be discarded")
	}
	if got := cat.nests[2].Reason(); got != nest.ReasonLowCoverage {
		t.Errorf("reason = %q, want %q", got, nest.ReasonLowCoverage)
	}
}

// TestFilterLowCoverage_OutsideEntirely verifies a nest with no coverage at
// all is discarded.
func TestFilterLowCoverage_OutsideEntirely(t *testing.T) {
	n := rectNest(1, 0, 0, 10*u, 10*u)
	coverage := []orb.Polygon{band(100*u, 0, 110*u, 10*u)}

	cat := newMemCatalog(n)
	discarded, err := refine.FilterLowCoverage(context.Background(), cat, coverage, 30)
	if err != nil {
		t.Fatalf("FilterLowCoverage returned error: %v", err)
	}
	if discarded != 1 || cat.nests[1].Active {
		t.Error("expected the uncovered nest to be discarded")
	}
}
