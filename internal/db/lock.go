package db

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// cycleLockKey is the advisory lock key shared by the rebuild and
// hysteresis jobs. Both cycle types mutate the same catalog, so they must
// never run at the same time.
const cycleLockKey int64 = 0x6e657374 // "nest"

// ErrCycleRunning means another cycle currently holds the catalog lock.
var ErrCycleRunning = errors.New("another cycle is already running against this catalog")

// AcquireCycleLock takes the catalog-wide advisory lock on a dedicated
// connection. The returned release function unlocks and returns the
// connection to the pool. Advisory locks are session-scoped, so the
// connection is pinned for the lock's lifetime.
func AcquireCycleLock(ctx context.Context, gdb *gorm.DB) (func(), error) {
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return nil, err
	}

	var got bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", cycleLockKey).Scan(&got); err != nil {
		conn.Close()
		return nil, fmt.Errorf("acquire cycle lock: %w", err)
	}
	if !got {
		conn.Close()
		return nil, ErrCycleRunning
	}

	release := func() {
		_, _ = conn.ExecContext(context.Background(), "SELECT pg_advisory_unlock($1)", cycleLockKey)
		conn.Close()
	}
	return release, nil
}
