package resilience

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Endpoint classes carry distinct provider quotas.
const (
	EndpointMatrix  = "matrix"
	EndpointGeocode = "geocode"
)

// Limiter enforces per-second token buckets and a fixed-window daily ceiling
// per endpoint class. Waiting is bounded by MaxWait so a saturated limiter
// surfaces RateLimited instead of stalling the planning run.
type Limiter struct {
	MaxWait time.Duration

	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	daily   map[string]*dayWindow
	dayMax  map[string]int
	now     func() time.Time
}

type dayWindow struct {
	day   string
	count int
}

// LimiterRate configures one endpoint class.
type LimiterRate struct {
	PerSec   float64
	Burst    int
	DailyMax int // 0 means unlimited
}

func NewLimiter(rates map[string]LimiterRate, maxWait time.Duration) *Limiter {
	if maxWait <= 0 {
		maxWait = 500 * time.Millisecond
	}
	l := &Limiter{
		MaxWait: maxWait,
		buckets: map[string]*rate.Limiter{},
		daily:   map[string]*dayWindow{},
		dayMax:  map[string]int{},
		now:     time.Now,
	}
	for ep, r := range rates {
		if r.PerSec <= 0 {
			r.PerSec = 1
		}
		if r.Burst <= 0 {
			r.Burst = 1
		}
		l.buckets[ep] = rate.NewLimiter(rate.Limit(r.PerSec), r.Burst)
		l.daily[ep] = &dayWindow{}
		l.dayMax[ep] = r.DailyMax
	}
	return l
}

// Acquire takes one token for the endpoint, waiting at most MaxWait.
func (l *Limiter) Acquire(ctx context.Context, endpoint string) error {
	l.mu.Lock()
	bucket, ok := l.buckets[endpoint]
	if !ok {
		bucket = rate.NewLimiter(rate.Limit(1), 1)
		l.buckets[endpoint] = bucket
		l.daily[endpoint] = &dayWindow{}
	}
	if max := l.dayMax[endpoint]; max > 0 {
		w := l.daily[endpoint]
		day := l.now().UTC().Format("2006-01-02")
		if w.day != day {
			w.day = day
			w.count = 0
		}
		if w.count >= max {
			l.mu.Unlock()
			return NewFailure(KindRateLimited, endpoint, nil)
		}
		w.count++
	}
	l.mu.Unlock()

	waitCtx, cancel := context.WithTimeout(ctx, l.MaxWait)
	defer cancel()
	if err := bucket.Wait(waitCtx); err != nil {
		l.refund(endpoint)
		if ctx.Err() != nil {
			return NewFailure(KindTimeout, endpoint, ctx.Err())
		}
		return NewFailure(KindRateLimited, endpoint, err)
	}
	return nil
}

// refund returns a daily-quota unit when the token bucket rejects a call
// that was already counted against the ceiling.
func (l *Limiter) refund(endpoint string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.dayMax[endpoint] <= 0 {
		return
	}
	w := l.daily[endpoint]
	if w != nil && w.day == l.now().UTC().Format("2006-01-02") && w.count > 0 {
		w.count--
	}
}
