package health

import (
	"context"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
)

// GoroutineCountCheck fails when more than threshold goroutines are running.
func GoroutineCountCheck(threshold int) CheckFunc {
	return func(context.Context) error {
		if n := runtime.NumGoroutine(); n > threshold {
			return errors.Errorf("goroutine count %d exceeds threshold %d", n, threshold)
		}
		return nil
	}
}

// GCMaxPauseCheck fails when any recent stop-the-world pause exceeds
// threshold.
func GCMaxPauseCheck(threshold time.Duration) CheckFunc {
	return func(context.Context) error {
		var stats debug.GCStats
		debug.ReadGCStats(&stats)
		for _, pause := range stats.Pause {
			if pause > threshold {
				return errors.Errorf("GC pause %s exceeds threshold %s", pause, threshold)
			}
		}
		return nil
	}
}

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck fails when the pinged dependency is unreachable.
func PingCheck(p Pinger) CheckFunc {
	return func(ctx context.Context) error {
		if err := p.Ping(ctx); err != nil {
			return errors.Wrap(err, "ping")
		}
		return nil
	}
}

// PoolStater is satisfied by *pgxpool.Pool.
type PoolStater interface {
	Stat() *pgxpool.Stat
}

// PoolSaturationCheck fails when every connection of the pool is acquired
// and more than maxWaits acquires had to wait for a connection since the
// previous run.
func PoolSaturationCheck(pool PoolStater, maxWaits int64) CheckFunc {
	var prev int64
	return func(context.Context) error {
		stat := pool.Stat()
		waits := stat.EmptyAcquireCount() - prev
		prev = stat.EmptyAcquireCount()

		if stat.AcquiredConns() >= stat.MaxConns() && waits > maxWaits {
			return errors.Errorf("pool saturated: %d/%d connections acquired, %d waiting acquires",
				stat.AcquiredConns(), stat.MaxConns(), waits)
		}
		return nil
	}
}
