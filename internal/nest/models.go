package nest

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/NestWatch/NW-Backend/internal/db"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// DiscardReason explains why a nest is not (fully) eligible. A nest row has
// a reason exactly when it is inactive, with one exception: ReasonSpawnWarn
// flags a still-active nest that had one low spawn-rate cycle.
type DiscardReason string

const (
	ReasonOverlap     DiscardReason = "overlap"
	ReasonLowCoverage DiscardReason = "low_coverage"
	ReasonSpawnpoints DiscardReason = "spawnpoints"
	ReasonSpawnWarn   DiscardReason = "spawnhr_warn"
	ReasonSpawnBan    DiscardReason = "spawnhr_ban"
)

// Nest is one catalog row. nest_id is assigned once per source_id and never
// reused; geometry and the derived columns (lat, lon, m2, spawnpoints) are
// overwritten in place on rebuild.
type Nest struct {
	NestID      int64          `json:"nest_id" gorm:"column:nest_id;primaryKey;autoIncrement"`
	SourceID    string         `json:"source_id" gorm:"uniqueIndex;not null"`
	Name        string         `json:"name"`
	AreaName    string         `json:"area_name"`
	Lat         float64        `json:"lat"`
	Lon         float64        `json:"lon"`
	Polygon     Polygon        `json:"polygon" gorm:"type:jsonb"`
	M2          float64        `json:"m2"`
	Spawnpoints int            `json:"spawnpoints"`
	Active      bool           `json:"active"`
	Discarded   *DiscardReason `json:"discarded"`

	PokemonID    *int    `json:"pokemon_id"`
	PokemonForm  *int    `json:"pokemon_form"`
	PokemonCount float64 `json:"pokemon_count"`
	PokemonAvg   float64 `json:"pokemon_avg"`
	PokemonRatio float64 `json:"pokemon_ratio"`
	Updated      int64   `json:"updated" gorm:"index"`
}

func (Nest) TableName() string {
	return "nests"
}

// Reason returns the discard reason, or "" when there is none.
func (n Nest) Reason() DiscardReason {
	if n.Discarded == nil {
		return ""
	}
	return *n.Discarded
}

// Polygon stores a single-ring polygon as a GeoJSON geometry in a jsonb
// column, keeping the catalog portable across storage engines.
type Polygon struct {
	orb.Polygon
}

func (Polygon) GormDataType() string {
	return "jsonb"
}

func (p Polygon) Value() (driver.Value, error) {
	if len(p.Polygon) == 0 {
		return nil, errors.New("nest polygon is empty")
	}
	raw, err := json.Marshal(geojson.NewGeometry(p.Polygon))
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func (p *Polygon) Scan(v any) error {
	var raw []byte
	switch src := v.(type) {
	case []byte:
		raw = src
	case string:
		raw = []byte(src)
	case nil:
		p.Polygon = nil
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Polygon", v)
	}
	g, err := geojson.UnmarshalGeometry(raw)
	if err != nil {
		return err
	}
	poly, ok := g.Geometry().(orb.Polygon)
	if !ok {
		return fmt.Errorf("expected Polygon geometry, got %s", g.Type)
	}
	p.Polygon = poly
	return nil
}

func (p Polygon) MarshalJSON() ([]byte, error) {
	return json.Marshal(geojson.NewGeometry(p.Polygon))
}

func (p *Polygon) UnmarshalJSON(raw []byte) error {
	return p.Scan(raw)
}

func Init() {
	if err := db.DB.AutoMigrate(&Nest{}); err != nil {
		log.Fatal("Failed to auto-migrate tables", err)
	}
}
