// Package telemetry reads the observed spawn statistics consumed by the
// hysteresis cycle. The tuples are produced upstream by whatever watches
// the live scanner; this package only cares about their shape.
package telemetry

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
)

// Observation is one nest's observed spawn activity since the last cycle.
type Observation struct {
	NestID      int64   `json:"nest_id"`
	SpeciesID   int     `json:"pokemon_id"`
	Form        *int    `json:"form"`
	Count       float64 `json:"count"`
	Percentage  float64 `json:"percentage"`
	WindowHours float64 `json:"window_hours"`
}

// Avg returns the observed spawns per hour, falling back to the configured
// cycle length when the tuple carries no window of its own.
func (o Observation) Avg(cycleHours float64) float64 {
	hours := o.WindowHours
	if hours <= 0 {
		hours = cycleHours
	}
	if hours <= 0 {
		return 0
	}
	return o.Count / hours
}

// ReadFile parses a JSON-lines telemetry dump. Malformed lines are skipped
// and counted rather than failing the batch; only an unreadable file is an
// error. Later tuples for the same nest win.
func ReadFile(path string) (map[int64]Observation, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open telemetry: %w", err)
	}
	defer f.Close()

	obs := make(map[int64]Observation)
	skipped := 0

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var o Observation
		if err := json.Unmarshal(line, &o); err != nil || o.NestID == 0 || o.SpeciesID == 0 {
			skipped++
			continue
		}
		obs[o.NestID] = o
	}
	if err := sc.Err(); err != nil {
		return nil, skipped, fmt.Errorf("read telemetry: %w", err)
	}
	return obs, skipped, nil
}
