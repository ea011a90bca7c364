package verification

import (
	"context"
	"log/slog"
	"time"
)

// Purger is implemented by stores without native expiry. DynamoDB and Redis
// evict on their own and do not need it.
type Purger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
}

// Janitor periodically removes expired codes from a Purger. Claim never relies
// on it; it only keeps the table small.
type Janitor struct {
	purger   Purger
	interval time.Duration
	now      func() time.Time
	metrics  *Metrics
}

// NewJanitor returns a janitor that sweeps every interval.
func NewJanitor(p Purger, interval time.Duration, m *Metrics) *Janitor {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Janitor{purger: p, interval: interval, now: time.Now, metrics: m}
}

// Sweep runs a single purge pass.
func (j *Janitor) Sweep(ctx context.Context) (int, error) {
	n, err := j.purger.PurgeExpired(ctx, j.now())
	if err != nil {
		return 0, err
	}
	j.metrics.purged(n)
	return n, nil
}

// Run sweeps until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := j.Sweep(ctx)
			if err != nil {
				slog.Warn("verification janitor sweep failed", "err", err)
				continue
			}
			if n > 0 {
				slog.Info("purged expired verification codes", "count", n)
			}
		}
	}
}
