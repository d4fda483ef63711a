// Package hysteresis applies the two-strike spawn-rate state machine:
// ok → warn → ban, with warn → ok on recovery. Two consecutive low cycles
// are required before a nest is removed, so transient dips (data-source
// restarts, events) don't discard a genuinely productive nest.
package hysteresis

import (
	"context"
	"fmt"

	"github.com/NestWatch/NW-Backend/internal/nest"
	"github.com/NestWatch/NW-Backend/internal/telemetry"
)

// State is a nest's position in the spawn-rate lifecycle. The discarded
// column is only the storage encoding; transitions are decided here.
type State int

const (
	// Eligible: active, no spawn-rate strike.
	Eligible State = iota
	// Warned: one low cycle behind it, still active with its species kept.
	Warned
	// Banned: two consecutive low cycles; inactive until a rebuild. A ban
	// never heals inside this stage.
	Banned
)

func (s State) String() string {
	switch s {
	case Eligible:
		return "eligible"
	case Warned:
		return "warned"
	case Banned:
		return "banned"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// StateOf maps a catalog row to its lifecycle state.
func StateOf(n nest.Nest) State {
	switch n.Reason() {
	case nest.ReasonSpawnWarn:
		return Warned
	case nest.ReasonSpawnBan:
		return Banned
	default:
		return Eligible
	}
}

// Step returns the next state for one cycle's observed average. The switch
// is exhaustive over the state set. Banned never heals inside this stage;
// only a rebuild lifts it.
func Step(prev State, avg, minimum float64) State {
	low := avg < minimum
	switch prev {
	case Warned:
		if low {
			return Banned
		}
		return Eligible
	case Eligible:
		if low {
			return Warned
		}
		return Eligible
	case Banned:
		return Banned
	}
	return prev
}

// Catalog is the slice of the store this stage needs.
type Catalog interface {
	ActiveAssigned(ctx context.Context) ([]nest.Nest, error)
	Warn(ctx context.Context, nestID int64) error
	ClearWarning(ctx context.Context, nestID int64) error
	Discard(ctx context.Context, nestID int64, reason nest.DiscardReason) error
}

// Result summarizes one hysteresis pass.
type Result struct {
	Warned    int
	Banned    int
	Recovered int
}

// Apply runs one hysteresis cycle over every active nest that has a species
// assignment. Nests with no tuple this cycle are treated as having seen
// nothing. Each transition is a single catalog write, so the
// active/discarded invariant holds even if the stage dies halfway.
func Apply(ctx context.Context, cat Catalog, obs map[int64]telemetry.Observation, minimum, cycleHours float64) (Result, error) {
	nests, err := cat.ActiveAssigned(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("load assigned nests: %w", err)
	}

	var res Result
	for _, n := range nests {
		prev := StateOf(n)

		var avg float64
		if o, ok := obs[n.NestID]; ok {
			avg = o.Avg(cycleHours)
		}

		next := Step(prev, avg, minimum)
		if next == prev {
			continue
		}

		switch {
		case prev == Warned && next == Eligible:
			err = cat.ClearWarning(ctx, n.NestID)
			res.Recovered++
		case prev == Warned && next == Banned:
			err = cat.Discard(ctx, n.NestID, nest.ReasonSpawnBan)
			res.Banned++
		case prev == Eligible && next == Warned:
			err = cat.Warn(ctx, n.NestID)
			res.Warned++
		}
		if err != nil {
			return res, fmt.Errorf("nest %d %s→%s: %w", n.NestID, prev, next, err)
		}
	}
	return res, nil
}
