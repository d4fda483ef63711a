package notify

import "github.com/NestWatch/NW-Backend/internal/nest"

// Snapshot captures the species assignment of the given nests, keyed by
// nest_id. Taken before reassignment so changes can be detected after.
func Snapshot(nests []nest.Nest) map[int64]int {
	snap := make(map[int64]int, len(nests))
	for _, n := range nests {
		if n.PokemonID != nil {
			snap[n.NestID] = *n.PokemonID
		}
	}
	return snap
}

// Changed returns the nests whose species assignment differs from the
// snapshot: newly assigned nests and nests whose species flipped. Nests
// that lost their assignment have nothing to announce and are skipped.
func Changed(snap map[int64]int, after []nest.Nest) []nest.Nest {
	var changed []nest.Nest
	for _, n := range after {
		if n.PokemonID == nil {
			continue
		}
		if prev, ok := snap[n.NestID]; !ok || prev != *n.PokemonID {
			changed = append(changed, n)
		}
	}
	return changed
}
