package refine_test

import (
	"context"
	"sort"

	"github.com/NestWatch/NW-Backend/internal/geometry"
	"github.com/NestWatch/NW-Backend/internal/nest"
	"github.com/paulmach/orb"
)

// memCatalog implements the refine catalog interfaces against an in-memory
// map, so the stages can be exercised without a database.
type memCatalog struct {
	nests map[int64]*nest.Nest
}

func newMemCatalog(nests ...*nest.Nest) *memCatalog {
	m := &memCatalog{nests: make(map[int64]*nest.Nest)}
	for _, n := range nests {
		m.nests[n.NestID] = n
	}
	return m
}

func (m *memCatalog) Active(ctx context.Context) ([]nest.Nest, error) {
	var out []nest.Nest
	for _, n := range m.nests {
		if n.Active {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NestID < out[j].NestID })
	return out, nil
}

func (m *memCatalog) Discard(ctx context.Context, nestID int64, reason nest.DiscardReason) error {
	n := m.nests[nestID]
	n.Active = false
	n.Discarded = &reason
	n.PokemonID = nil
	n.PokemonForm = nil
	return nil
}

func (m *memCatalog) SetSpawnpointResult(ctx context.Context, nestID int64, count int, active bool) error {
	n := m.nests[nestID]
	n.Spawnpoints = count
	n.Active = active
	if active {
		n.Discarded = nil
	} else {
		reason := nest.ReasonSpawnpoints
		n.Discarded = &reason
		n.PokemonID = nil
		n.PokemonForm = nil
	}
	return nil
}

// rectNest builds an active nest from rectangle corners given in degrees.
func rectNest(id int64, x0, y0, x1, y1 float64) *nest.Nest {
	poly := orb.Polygon{orb.Ring{
		{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}, {x0, y0},
	}}
	return &nest.Nest{
		NestID:  id,
		Name:    "test nest",
		Polygon: nest.Polygon{Polygon: poly},
		M2:      geometry.Area(poly),
		Active:  true,
	}
}
