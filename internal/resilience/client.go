package resilience

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"gasroute/internal/metrics"
	"gasroute/internal/opt"
)

// MatrixProvider is the concrete mapping backend behind the wrapper. One
// implementation per provider; selected once at client construction so
// breaker and limiter state stay provider-specific.
type MatrixProvider interface {
	Matrix(ctx context.Context, points []opt.GeoPoint) (opt.Matrix, error)
}

// ClientConfig tunes the resilience envelope around one provider account.
type ClientConfig struct {
	MaxAttempts int
	BackoffBase time.Duration
	CallTimeout time.Duration
	CacheTTL    time.Duration
}

// Client is the uniform synchronous entry point for travel matrix lookups.
// It consults the cache first; each attempt then clears the budget, the rate
// limiter, and the circuit breaker before reaching the network. Transient
// failures retry with jittered exponential backoff.
//
// Client implements opt.TravelSource. Breaker, limiter, and budget state is
// shared across concurrent optimization runs since they guard one provider
// account.
type Client struct {
	provider MatrixProvider
	breaker  *Breaker
	limiter  *Limiter
	budget   *Budget
	cache    MatrixCache
	cfg      ClientConfig
}

func NewClient(provider MatrixProvider, breaker *Breaker, limiter *Limiter, budget *Budget, cache MatrixCache, cfg ClientConfig) *Client {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 200 * time.Millisecond
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 10 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 30 * time.Minute
	}
	return &Client{provider: provider, breaker: breaker, limiter: limiter, budget: budget, cache: cache, cfg: cfg}
}

// Breaker exposes circuit state for the ops status endpoint.
func (c *Client) Breaker() *Breaker { return c.breaker }

// Budget exposes spend for the ops status endpoint.
func (c *Client) Budget() *Budget { return c.budget }

// Matrix returns pairwise travel metrics for the waypoint set.
func (c *Client) Matrix(ctx context.Context, points []opt.GeoPoint) (opt.Matrix, error) {
	const op = EndpointMatrix
	if c.provider == nil {
		return opt.Matrix{}, NewFailure(KindProviderUnavailable, op, errors.New("no provider configured"))
	}
	key := cacheKey(points)
	if c.cache != nil {
		if m, ok := c.cache.Get(ctx, key); ok {
			metrics.CacheLookups.WithLabelValues("hit").Inc()
			return m, nil
		}
		metrics.CacheLookups.WithLabelValues("miss").Inc()
	}
	backoff := c.cfg.BackoffBase
	var lastErr *Failure
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		// Every attempt is a billable provider call, so budget and rate
		// limit apply per attempt, before the breaker reserves its probe.
		if err := c.budget.Charge(op); err != nil {
			return opt.Matrix{}, c.reject(op, err)
		}
		if c.limiter != nil {
			if err := c.limiter.Acquire(ctx, op); err != nil {
				return opt.Matrix{}, c.reject(op, err)
			}
		}
		if c.breaker != nil {
			if err := c.breaker.Allow(op); err != nil {
				c.observeCircuit()
				return opt.Matrix{}, c.reject(op, err)
			}
		}
		m, err := c.call(ctx, points)
		if err == nil {
			if c.breaker != nil {
				c.breaker.OnSuccess()
			}
			c.observeCircuit()
			metrics.ProviderCalls.WithLabelValues(op, "ok").Inc()
			if c.cache != nil {
				c.cache.Put(ctx, key, m, c.cfg.CacheTTL)
			}
			return m, nil
		}
		lastErr = classify(op, err)
		if c.breaker != nil {
			c.breaker.OnFailure()
		}
		c.observeCircuit()
		metrics.ProviderCalls.WithLabelValues(op, lastErr.Kind.String()).Inc()
		if !lastErr.Retryable() || attempt == c.cfg.MaxAttempts {
			break
		}
		if err := sleep(ctx, jitter(backoff)); err != nil {
			return opt.Matrix{}, NewFailure(KindTimeout, op, err)
		}
		backoff *= 2
	}
	return opt.Matrix{}, lastErr
}

func (c *Client) call(ctx context.Context, points []opt.GeoPoint) (opt.Matrix, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()
	start := time.Now()
	m, err := c.provider.Matrix(callCtx, points)
	metrics.ProviderLatency.WithLabelValues(EndpointMatrix).Observe(float64(time.Since(start).Milliseconds()))
	return m, err
}

func (c *Client) reject(op string, err error) error {
	var f *Failure
	if !errors.As(err, &f) {
		f = NewFailure(KindUnknown, op, err)
	}
	metrics.ProviderCalls.WithLabelValues(op, f.Kind.String()).Inc()
	return f
}

func (c *Client) observeCircuit() {
	if c.breaker != nil {
		metrics.CircuitState.Set(float64(c.breaker.State()))
	}
}

// classify normalizes provider errors into the failure taxonomy. Providers
// return *Failure directly for structural errors; everything else is mapped
// by shape.
func classify(op string, err error) *Failure {
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewFailure(KindTimeout, op, err)
	}
	return NewFailure(KindUnknown, op, err)
}

func jitter(d time.Duration) time.Duration {
	// +/- 20% to decorrelate concurrent retries
	delta := time.Duration(rand.Int63n(int64(d)/5+1)) - d/10
	return d + delta
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// cacheKey canonicalizes the waypoint set: coordinates rounded to ~0.1m so
// float noise does not defeat the cache.
func cacheKey(points []opt.GeoPoint) string {
	h := sha256.New()
	for _, p := range points {
		fmt.Fprintf(h, "%.6f,%.6f;", p.Lat, p.Lng)
	}
	return hex.EncodeToString(h.Sum(nil))
}
