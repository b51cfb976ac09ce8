// Package timeouts centralizes the deadlines handlers put on database
// and storage work. Every handler wraps its I/O in context.WithTimeout
// with one of these values so a slow Mongo node or blob store cannot
// pin request goroutines indefinitely.
//
// Picking a tier:
//   - Ping: health checks and connectivity probes
//   - Short: single-document reads, session lookups
//   - Medium: paginated lists, permission resolution, ordinary writes
//   - Long: cascade deletes, media uploads, multi-collection transactions
package timeouts

import (
	"context"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Defaults, used when no environment override is present.
const (
	DefaultPing   = 2 * time.Second
	DefaultShort  = 5 * time.Second
	DefaultMedium = 10 * time.Second
	DefaultLong   = 30 * time.Second
)

var mu sync.RWMutex

var (
	ping   = DefaultPing
	short  = DefaultShort
	medium = DefaultMedium
	long   = DefaultLong
)

// Ping returns the deadline for connectivity checks.
func Ping() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return ping
}

// Short returns the deadline for single-document reads and lookups.
func Short() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return short
}

// Medium returns the deadline for list queries, permission walks, and
// ordinary writes.
func Medium() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return medium
}

// Long returns the deadline for cascade deletes, media uploads, and
// other multi-collection work.
func Long() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return long
}

// ConfigureFromEnv applies overrides from TRAILHUB_TIMEOUT_PING,
// TRAILHUB_TIMEOUT_SHORT, TRAILHUB_TIMEOUT_MEDIUM, and
// TRAILHUB_TIMEOUT_LONG, each a time.ParseDuration string such as
// "500ms" or "45s". Unset or invalid values keep their defaults. It
// returns the number of overrides applied and is called once during
// startup, before any handler runs.
func ConfigureFromEnv() int {
	mu.Lock()
	defer mu.Unlock()
	n := 0

	for _, tier := range []struct {
		env string
		dst *time.Duration
	}{
		{"TRAILHUB_TIMEOUT_PING", &ping},
		{"TRAILHUB_TIMEOUT_SHORT", &short},
		{"TRAILHUB_TIMEOUT_MEDIUM", &medium},
		{"TRAILHUB_TIMEOUT_LONG", &long},
	} {
		v := os.Getenv(tier.env)
		if v == "" {
			continue
		}
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			*tier.dst = d
			n++
		}
	}

	return n
}

// WithTimeout wraps context.WithTimeout and logs a warning from the
// returned cancel function when the deadline was the reason the
// context ended. Handlers use it for operations worth flagging when
// they run long, such as subtree deletes.
//
//	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "folder cascade delete")
//	defer cancel()
func WithTimeout(parent context.Context, timeout time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	return ctx, func() {
		if ctx.Err() == context.DeadlineExceeded && log != nil {
			log.Warn("operation timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", timeout),
			)
		}
		cancel()
	}
}
