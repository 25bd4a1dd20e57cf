package resilience

import (
	"sync"
	"time"
)

// BreakerState is the circuit state shared by all runs hitting one provider.
type BreakerState int

const (
	StateClosed BreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// Breaker fails fast after consecutive provider failures. While OPEN, Allow
// rejects immediately; after the cool-down one probe passes through
// (HALF_OPEN) and its outcome decides the next state. Cool-down grows on
// repeated OPEN transitions, capped at MaxCooldown.
type Breaker struct {
	Threshold   int
	Cooldown    time.Duration
	MaxCooldown time.Duration

	mu       sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time
	curCool  time.Duration
	probing  bool
	now      func() time.Time // test hook
}

func NewBreaker(threshold int, cooldown, maxCooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 60 * time.Second
	}
	if maxCooldown < cooldown {
		maxCooldown = 10 * cooldown
	}
	return &Breaker{Threshold: threshold, Cooldown: cooldown, MaxCooldown: maxCooldown, now: time.Now}
}

// Allow reports whether a call may proceed. The caller must report the
// outcome with OnSuccess or OnFailure.
func (b *Breaker) Allow(op string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case StateClosed:
		return nil
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.curCool {
			return NewFailure(KindProviderUnavailable, op, nil)
		}
		b.state = StateHalfOpen
		b.probing = true
		return nil
	default: // HALF_OPEN: only the single probe is in flight
		if b.probing {
			return NewFailure(KindProviderUnavailable, op, nil)
		}
		b.probing = true
		return nil
	}
}

func (b *Breaker) OnSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failures = 0
	b.probing = false
	b.curCool = 0
}

func (b *Breaker) OnFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateHalfOpen {
		b.reopen()
		return
	}
	b.failures++
	if b.failures >= b.Threshold {
		b.reopen()
	}
}

func (b *Breaker) reopen() {
	b.state = StateOpen
	b.openedAt = b.now()
	b.probing = false
	if b.curCool == 0 {
		b.curCool = b.Cooldown
	} else {
		b.curCool *= 2
		if b.curCool > b.MaxCooldown {
			b.curCool = b.MaxCooldown
		}
	}
}

// State is exposed for metrics and the ops status endpoint.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// ForceOpen trips the breaker immediately. Used by tests and as an ops
// escape hatch when the provider account is known to be misbehaving.
func (b *Breaker) ForceOpen() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reopen()
}
