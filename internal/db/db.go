package db

import (
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is the nest catalog connection.
var DB *gorm.DB

// Stats is the live-scanner stats connection (spawnpoints, observed spawns).
// Nil when STATS_DATABASE_URL is not configured; callers fall back to DB.
var Stats *gorm.DB

func Connect() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is empty")
	}
	DB = open(dsn)
	log.Println("Connected to database")
}

// ConnectStats opens the stats connection when configured. Safe to call
// unconditionally.
func ConnectStats() {
	dsn := os.Getenv("STATS_DATABASE_URL")
	if dsn == "" {
		return
	}
	Stats = open(dsn)
	log.Println("Connected to stats database")
}

// SpawnDB returns the connection spawnpoint data should be read from.
func SpawnDB() *gorm.DB {
	if Stats != nil {
		return Stats
	}
	return DB
}

func open(dsn string) *gorm.DB {
	// Verbose logger to surface slow queries; the geometry scans can get heavy.
	lg := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: lg})
	if err != nil {
		log.Fatal("Failed to connect to database: ", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("Failed to get sql.DB: ", err)
	}

	// Batch jobs, not a request fleet; a small pool is plenty.
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db
}
