// Command seed-spawnpoints loads a spawnpoint CSV into the spawnpoints
// table, for local fixtures or bootstrapping a catalog without a stats
// database.
package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
)

// CLI flags
var (
	csvPath = flag.String("csv", "", "Path to the source CSV (required)")
	dsn     = flag.String("dsn", "", "Postgres DSN (default: env STATS_DATABASE_URL, then DATABASE_URL)")
	dryRun  = flag.Bool("dry-run", false, "Parse + validate only; no DB writes")
)

// CSV contract: id,lat,lon,last_seen (unix seconds; empty means now)

type spawnpointCSV struct {
	ID       int64
	Lat      float64
	Lon      float64
	LastSeen int64
}

func main() {
	_ = godotenv.Load(".env.local")
	flag.Parse()
	if *csvPath == "" {
		fatalf("--csv is required")
	}
	if *dsn == "" {
		*dsn = os.Getenv("STATS_DATABASE_URL")
	}
	if *dsn == "" {
		*dsn = os.Getenv("DATABASE_URL")
	}
	if *dsn == "" {
		fatalf("--dsn not provided and neither STATS_DATABASE_URL nor DATABASE_URL set")
	}

	rows, err := loadCSV(*csvPath)
	if err != nil {
		fatalf("CSV error: %v", err)
	}
	fmt.Printf("Loaded %d spawnpoints from %s\n", len(rows), *csvPath)

	if *dryRun {
		fmt.Println("Dry run complete. No changes made.")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		fatalf("connect: %v", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		fatalf("ping: %v", err)
	}

	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		fatalf("begin tx: %v", err)
	}
	defer func() {
		_ = tx.Rollback() // no-op if already committed
	}()

	if _, err := tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS spawnpoints (
			id BIGINT PRIMARY KEY,
			lat DOUBLE PRECISION,
			lon DOUBLE PRECISION,
			last_seen BIGINT
		)`); err != nil {
		fatalf("create table: %v", err)
	}

	for _, sp := range rows {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO spawnpoints (id, lat, lon, last_seen)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE
			SET lat = EXCLUDED.lat, lon = EXCLUDED.lon, last_seen = EXCLUDED.last_seen`,
			sp.ID, sp.Lat, sp.Lon, sp.LastSeen); err != nil {
			fatalf("insert spawnpoint %d: %v", sp.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		fatalf("commit: %v", err)
	}
	fmt.Printf("Upserted %d spawnpoints\n", len(rows))
}

func loadCSV(path string) ([]spawnpointCSV, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	now := time.Now().Unix()

	var rows []spawnpointCSV
	line := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if line == 1 && rec[0] == "id" {
			continue // header
		}
		if len(rec) < 3 {
			return nil, fmt.Errorf("line %d: expected id,lat,lon[,last_seen]", line)
		}
		var sp spawnpointCSV
		if sp.ID, err = strconv.ParseInt(rec[0], 10, 64); err != nil {
			return nil, fmt.Errorf("line %d: bad id: %w", line, err)
		}
		if sp.Lat, err = strconv.ParseFloat(rec[1], 64); err != nil {
			return nil, fmt.Errorf("line %d: bad lat: %w", line, err)
		}
		if sp.Lon, err = strconv.ParseFloat(rec[2], 64); err != nil {
			return nil, fmt.Errorf("line %d: bad lon: %w", line, err)
		}
		sp.LastSeen = now
		if len(rec) > 3 && rec[3] != "" {
			if sp.LastSeen, err = strconv.ParseInt(rec[3], 10, 64); err != nil {
				return nil, fmt.Errorf("line %d: bad last_seen: %w", line, err)
			}
		}
		rows = append(rows, sp)
	}
	return rows, nil
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
