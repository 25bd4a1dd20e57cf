package resilience

import (
	"fmt"
	"sync"
	"time"
)

// Budget tracks estimated provider spend per rolling period. Once the limit
// is hit every new call is refused until the period rolls over, regardless of
// circuit or limiter state.
type Budget struct {
	CostPerCall float64
	Limit       float64 // 0 disables enforcement
	Period      time.Duration

	mu          sync.Mutex
	windowStart time.Time
	spent       float64
	now         func() time.Time
}

func NewBudget(costPerCall, limit float64, period time.Duration) *Budget {
	if period <= 0 {
		period = 24 * time.Hour
	}
	return &Budget{CostPerCall: costPerCall, Limit: limit, Period: period, now: time.Now}
}

// Charge reserves the cost of one call.
func (b *Budget) Charge(op string) error {
	if b == nil || b.Limit <= 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	if b.windowStart.IsZero() || now.Sub(b.windowStart) >= b.Period {
		b.windowStart = now
		b.spent = 0
	}
	if b.spent+b.CostPerCall > b.Limit {
		return NewFailure(KindBudgetExceeded, op, fmt.Errorf("spent %.2f of %.2f in current period", b.spent, b.Limit))
	}
	b.spent += b.CostPerCall
	return nil
}

// Spent reports the running total for the current period.
func (b *Budget) Spent() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.spent
}
