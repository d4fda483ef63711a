// Command cycle runs one hysteresis/notify cycle: it consumes the observed
// spawn telemetry, applies the warn/ban state machine, reassigns species,
// notifies the webhook about changes and signals the live scanner to
// reload. Meant to run from cron on a tighter schedule than rebuild.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/NestWatch/NW-Backend/internal/config"
	"github.com/NestWatch/NW-Backend/internal/db"
	"github.com/NestWatch/NW-Backend/internal/hysteresis"
	"github.com/NestWatch/NW-Backend/internal/nest"
	"github.com/NestWatch/NW-Backend/internal/notify"
	"github.com/NestWatch/NW-Backend/internal/telemetry"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
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
	if cfg.TelemetryPath == "" {
		log.Fatal("TELEMETRY_PATH is required for a cycle")
	}

	log.SetPrefix(fmt.Sprintf("[cycle %s] ", uuid.NewString()[:8]))

	db.Connect()
	nest.Init()

	ctx := context.Background()
	release, err := db.AcquireCycleLock(ctx, db.DB)
	if err != nil {
		log.Fatal(err)
	}
	defer release()

	obs, skipped, err := telemetry.ReadFile(cfg.TelemetryPath)
	if err != nil {
		log.Fatal(err)
	}
	if skipped > 0 {
		log.Printf("skipped %d malformed telemetry records", skipped)
	}
	log.Printf("read %d telemetry records", len(obs))

	store := nest.NewStore(db.DB)

	// Stage 1: warn/ban hysteresis.
	var hres hysteresis.Result
	err = store.Transaction(func(tx *nest.Store) error {
		hres, err = hysteresis.Apply(ctx, tx, obs, cfg.MinimumSpawnHour, cfg.CycleHours)
		return err
	})
	if err != nil {
		log.Fatal("hysteresis failed: ", err)
	}
	log.Printf("hysteresis: %d warned, %d banned, %d recovered",
		hres.Warned, hres.Banned, hres.Recovered)

	// Stage 2: species reassignment. Snapshot first so changes can be
	// detected afterwards.
	assigned, err := store.ActiveAssigned(ctx)
	if err != nil {
		log.Fatal(err)
	}
	snap := notify.Snapshot(assigned)

	now := time.Now()
	err = store.Transaction(func(tx *nest.Store) error {
		active, err := tx.Active(ctx)
		if err != nil {
			return err
		}
		for _, n := range active {
			o, ok := obs[n.NestID]
			if !ok {
				continue
			}
			err := tx.AssignSpecies(ctx, n.NestID, o.SpeciesID, o.Form,
				o.Count, o.Avg(cfg.CycleHours), o.Percentage, now.Unix())
			if err != nil {
				return fmt.Errorf("assign nest %d: %w", n.NestID, err)
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal("species reassignment failed: ", err)
	}

	// Stage 3: change notification. Delivery failures never touch the
	// catalog; they are logged inside Send.
	after, err := store.ActiveAssigned(ctx)
	if err != nil {
		log.Fatal(err)
	}
	changed := notify.Changed(snap, after)
	if nt := notify.NewNotifier(cfg.WebhookURL); nt != nil && len(changed) > 0 {
		reset := now.Add(time.Duration(cfg.CycleHours * float64(time.Hour)))
		payloads := make([]notify.Payload, 0, len(changed))
		for _, n := range changed {
			payloads = append(payloads, notify.BuildPayload(n, now, reset))
		}
		delivered, failed := nt.Send(ctx, payloads)
		log.Printf("notified %d nest changes (%d failed)", delivered, failed)
	} else {
		log.Printf("%d nest changes", len(changed))
	}

	// Stage 4: reload signal. Logged, never fatal.
	if err := notify.Reload(ctx, cfg.ReloadURL, cfg.ReloadSecret); err != nil {
		log.Printf("reload signal failed: %v", err)
	}

	fmt.Printf("Cycle done: %d changed nests\n", len(changed))
}
