package geminiserver

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/yndnr/capsule/pkg/cmap"
)

const (
	// visitorIdleTTL is how long an idle client's bucket is kept.
	visitorIdleTTL = 3 * time.Minute
	sweepInterval  = time.Minute
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

// clientLimiter is a token bucket per client IP.
type clientLimiter struct {
	visitors *cmap.Map[*visitor]
	limit    rate.Limit
	burst    int
}

func newClientLimiter(perSecond float64, burst int) *clientLimiter {
	if burst < 1 {
		burst = 1
	}
	return &clientLimiter{
		visitors: cmap.New[*visitor](),
		limit:    rate.Limit(perSecond),
		burst:    burst,
	}
}

// allow takes one token for key. When the bucket is empty it returns how
// long the client should wait.
func (c *clientLimiter) allow(key string, now time.Time) (time.Duration, bool) {
	v := c.visitors.GetOrCreate(key, func() *visitor {
		return &visitor{limiter: rate.NewLimiter(c.limit, c.burst)}
	})
	v.lastSeen.Store(now.UnixNano())

	res := v.limiter.ReserveN(now, 1)
	if !res.OK() {
		return time.Second, false
	}
	if d := res.DelayFrom(now); d > 0 {
		res.CancelAt(now)
		return d, false
	}
	return 0, true
}

// sweep drops buckets idle since before now-visitorIdleTTL.
func (c *clientLimiter) sweep(now time.Time) int {
	cutoff := now.Add(-visitorIdleTTL).UnixNano()
	return c.visitors.DeleteIf(func(_ string, v *visitor) bool {
		return v.lastSeen.Load() < cutoff
	})
}

func (c *clientLimiter) run(ctx context.Context) {
	t := time.NewTicker(sweepInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			c.sweep(now)
		}
	}
}
