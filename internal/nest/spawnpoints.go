package nest

import (
	"context"
	"log"
	"time"

	"github.com/NestWatch/NW-Backend/internal/geometry"
	"github.com/paulmach/orb"
	"gorm.io/gorm"
)

// Spawnpoint is one known spawn location observed by the live scanner. The
// table usually lives in the stats database; the seeder can populate it
// locally for testing.
type Spawnpoint struct {
	ID       int64   `json:"id" gorm:"primaryKey"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	LastSeen int64   `json:"last_seen" gorm:"index"`
}

func (Spawnpoint) TableName() string {
	return "spawnpoints"
}

func InitSpawnpoints(gdb *gorm.DB) {
	if err := gdb.AutoMigrate(&Spawnpoint{}); err != nil {
		log.Fatal("Failed to auto-migrate spawnpoints table", err)
	}
}

// LoadRecentSpawnpoints returns the coordinates of spawnpoints seen within
// the trailing window. When coverage polygons are given, points outside all
// of them are dropped so nests are validated against the same area the
// scanner actually watches.
func LoadRecentSpawnpoints(ctx context.Context, gdb *gorm.DB, windowDays int, coverage []orb.Polygon) ([]orb.Point, error) {
	cutoff := time.Now().AddDate(0, 0, -windowDays).Unix()

	var rows []Spawnpoint
	if err := gdb.WithContext(ctx).
		Where("last_seen >= ?", cutoff).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	points := make([]orb.Point, 0, len(rows))
	for _, sp := range rows {
		pt := orb.Point{sp.Lon, sp.Lat}
		if len(coverage) > 0 && !inAny(pt, coverage) {
			continue
		}
		points = append(points, pt)
	}
	return points, nil
}

func inAny(pt orb.Point, polys []orb.Polygon) bool {
	for _, p := range polys {
		if p.Bound().Contains(pt) && geometry.Contains(p, pt) {
			return true
		}
	}
	return false
}
