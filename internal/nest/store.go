package nest

import (
	"context"
	"fmt"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the catalog storage layer. Each pipeline stage runs against one
// transactional Store so a crash mid-stage leaves the previous stage's
// state intact.
type Store struct {
	db *gorm.DB
}

func NewStore(gdb *gorm.DB) *Store {
	return &Store{db: gdb}
}

// Transaction runs fn against a transaction-scoped Store.
func (s *Store) Transaction(fn func(*Store) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// UpsertCandidate writes a candidate keyed by source_id. New rows get a
// fresh nest_id; existing rows keep theirs and have geometry, name and the
// derived columns refreshed. Either way the row starts the rebuild eligible
// (active, no discard reason); a prior ban is only ever lifted here.
// Species columns are left untouched.
func (s *Store) UpsertCandidate(ctx context.Context, n *Nest) error {
	n.Active = true
	n.Discarded = nil
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "source_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "area_name", "lat", "lon", "polygon", "m2", "active", "discarded",
		}),
	}).Create(n).Error
}

// RetireMissing applies the stale policy to rows whose source_id did not
// appear in this ingestion pass. Only the delete policy acts; keep is a
// no-op. An empty seen set is also a no-op so a bad candidate export can
// never empty the catalog.
func (s *Store) RetireMissing(ctx context.Context, seen []string, deleteStale bool) (int64, error) {
	if !deleteStale || len(seen) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Where("source_id NOT IN ?", seen).
		Delete(&Nest{})
	return res.RowsAffected, res.Error
}

// Active returns all active nests ordered by nest_id.
func (s *Store) Active(ctx context.Context) ([]Nest, error) {
	var nests []Nest
	err := s.db.WithContext(ctx).
		Where("active = ?", true).
		Order("nest_id").
		Find(&nests).Error
	return nests, err
}

// ActiveAssigned returns active nests that currently have a species
// assignment. This includes warned nests: a warning keeps the nest active.
func (s *Store) ActiveAssigned(ctx context.Context) ([]Nest, error) {
	var nests []Nest
	err := s.db.WithContext(ctx).
		Where("active = ? AND pokemon_id IS NOT NULL", true).
		Order("nest_id").
		Find(&nests).Error
	return nests, err
}

// All returns every nest in the catalog.
func (s *Store) All(ctx context.Context) ([]Nest, error) {
	var nests []Nest
	err := s.db.WithContext(ctx).Order("nest_id").Find(&nests).Error
	return nests, err
}

// Get returns one nest by id.
func (s *Store) Get(ctx context.Context, nestID int64) (Nest, error) {
	var n Nest
	err := s.db.WithContext(ctx).First(&n, "nest_id = ?", nestID).Error
	return n, err
}

// Discard deactivates a nest with the given reason and clears its species
// assignment, all in one UPDATE so the active/discarded invariant can never
// be observed half-applied.
func (s *Store) Discard(ctx context.Context, nestID int64, reason DiscardReason) error {
	return s.db.WithContext(ctx).Model(&Nest{}).
		Where("nest_id = ?", nestID).
		Updates(map[string]any{
			"active":       false,
			"discarded":    string(reason),
			"pokemon_id":   nil,
			"pokemon_form": nil,
		}).Error
}

// Warn flags a nest after its first low spawn-rate cycle. The nest stays
// active and keeps its species assignment.
func (s *Store) Warn(ctx context.Context, nestID int64) error {
	return s.db.WithContext(ctx).Model(&Nest{}).
		Where("nest_id = ?", nestID).
		Update("discarded", string(ReasonSpawnWarn)).Error
}

// ClearWarning recovers a warned nest back to fully eligible.
func (s *Store) ClearWarning(ctx context.Context, nestID int64) error {
	return s.db.WithContext(ctx).Model(&Nest{}).
		Where("nest_id = ? AND discarded = ?", nestID, string(ReasonSpawnWarn)).
		Update("discarded", nil).Error
}

// SetSpawnpointResult stores the recomputed spawnpoint count and finalizes
// the nest's build-cycle state in one UPDATE: active when the count meets
// the threshold, otherwise discarded with the spawnpoints reason.
func (s *Store) SetSpawnpointResult(ctx context.Context, nestID int64, count int, active bool) error {
	updates := map[string]any{
		"spawnpoints": count,
		"active":      active,
	}
	if active {
		updates["discarded"] = nil
	} else {
		updates["discarded"] = string(ReasonSpawnpoints)
		updates["pokemon_id"] = nil
		updates["pokemon_form"] = nil
	}
	return s.db.WithContext(ctx).Model(&Nest{}).
		Where("nest_id = ?", nestID).
		Updates(updates).Error
}

// AssignSpecies records the observed species for a nest.
func (s *Store) AssignSpecies(ctx context.Context, nestID int64, speciesID int, form *int, count, avg, ratio float64, updated int64) error {
	return s.db.WithContext(ctx).Model(&Nest{}).
		Where("nest_id = ?", nestID).
		Updates(map[string]any{
			"pokemon_id":    speciesID,
			"pokemon_form":  form,
			"pokemon_count": count,
			"pokemon_avg":   avg,
			"pokemon_ratio": ratio,
			"updated":       updated,
		}).Error
}

// CountActive returns the number of active nests.
func (s *Store) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&Nest{}).
		Where("active = ?", true).
		Count(&count).Error
	return count, err
}

// CountByReasons returns how many nests carry any of the given reasons.
func (s *Store) CountByReasons(ctx context.Context, reasons ...DiscardReason) (int64, error) {
	rs := make([]string, 0, len(reasons))
	for _, r := range reasons {
		rs = append(rs, string(r))
	}
	var count int64
	err := s.db.WithContext(ctx).Model(&Nest{}).
		Where("discarded = ANY(?)", pq.Array(rs)).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count by reasons: %w", err)
	}
	return count, nil
}
