// Command rebuild runs one full build cycle against the nest catalog:
// candidate ingestion, overlap resolution, the coverage filter and
// spawnpoint validation. Meant to run from cron, infrequently.
package main

import (
	"context"
	"fmt"
	"log"

	"github.com/NestWatch/NW-Backend/internal/config"
	"github.com/NestWatch/NW-Backend/internal/db"
	"github.com/NestWatch/NW-Backend/internal/ingest"
	"github.com/NestWatch/NW-Backend/internal/nest"
	"github.com/NestWatch/NW-Backend/internal/refine"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/paulmach/orb"
)

func main() {
	_ = godotenv.Load(".env.local")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	if cfg.CandidatesPath == "" {
		log.Fatal("CANDIDATES_PATH is required for a rebuild")
	}

	log.SetPrefix(fmt.Sprintf("[rebuild %s] ", uuid.NewString()[:8]))

	db.Connect()
	db.ConnectStats()
	nest.Init()
	nest.InitSpawnpoints(db.SpawnDB())

	ctx := context.Background()
	release, err := db.AcquireCycleLock(ctx, db.DB)
	if err != nil {
		log.Fatal(err)
	}
	defer release()

	store := nest.NewStore(db.DB)
	before, err := store.CountActive(ctx)
	if err != nil {
		log.Fatal(err)
	}

	// Stage 1: ingestion.
	cands, err := ingest.LoadCandidates(cfg.CandidatesPath)
	if err != nil {
		log.Fatal(err)
	}
	var ingested ingest.Result
	err = store.Transaction(func(tx *nest.Store) error {
		ingested, err = ingest.Run(ctx, tx, cands, cfg)
		return err
	})
	if err != nil {
		log.Fatal("ingestion failed: ", err)
	}
	log.Printf("saved %d nests (%d dropped, %d skipped, %d retired)",
		ingested.Saved, ingested.Dropped, ingested.Skipped, ingested.Retired)

	// Stage 2: overlap resolution.
	var overlaps int
	err = store.Transaction(func(tx *nest.Store) error {
		overlaps, err = refine.ResolveOverlaps(ctx, tx, cfg.MaximumOverlap)
		return err
	})
	if err != nil {
		log.Fatal("overlap resolution failed: ", err)
	}
	log.Printf("disabled %d overlapping nests", overlaps)

	// Stage 3: coverage filter, only when scan geofences are configured.
	var coverage []orb.Polygon
	if cfg.UseCoverage() {
		coverage, err = refine.LoadCoverage(cfg.AreasPath)
		if err != nil {
			log.Fatal(err)
		}
		var low int
		err = store.Transaction(func(tx *nest.Store) error {
			low, err = refine.FilterLowCoverage(ctx, tx, coverage, cfg.MinimumCoverage)
			return err
		})
		if err != nil {
			log.Fatal("coverage filter failed: ", err)
		}
		log.Printf("disabled %d low coverage nests", low)
	}

	// Stage 4: spawnpoint validation.
	points, err := nest.LoadRecentSpawnpoints(ctx, db.SpawnDB(), cfg.SpawnpointWindowDays, coverage)
	if err != nil {
		log.Fatal("load spawnpoints: ", err)
	}
	var kept, discarded int
	err = store.Transaction(func(tx *nest.Store) error {
		kept, discarded, err = refine.ValidateSpawnpoints(ctx, tx, points, cfg.MinimumSpawnpoints)
		return err
	})
	if err != nil {
		log.Fatal("spawnpoint validation failed: ", err)
	}
	log.Printf("validated spawnpoints for %d nests, disabled %d", kept, discarded)

	after, err := store.CountActive(ctx)
	if err != nil {
		log.Fatal(err)
	}
	filtered, err := store.CountByReasons(ctx,
		nest.ReasonOverlap, nest.ReasonLowCoverage, nest.ReasonSpawnpoints)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("%d nests held back by build filters", filtered)
	fmt.Printf("Final active nests: %d (%+d)\n", after, after-before)
}
