package store

import (
	"context"
	"strconv"
	"sync"

	"gasroute/internal/model"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set.
type Memory struct {
	mu    sync.Mutex
	plans map[string]model.PlanOut
	order []string // insertion order for stable pagination
	cfg   map[string]any
}

func NewMemory() *Memory {
	return &Memory{plans: map[string]model.PlanOut{}}
}

func (m *Memory) SavePlan(_ context.Context, plan model.PlanOut) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.plans[plan.ID]; !exists {
		m.order = append(m.order, plan.ID)
	}
	m.plans[plan.ID] = plan
	return nil
}

func (m *Memory) GetPlan(_ context.Context, id string) (model.PlanOut, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plans[id]
	if !ok {
		return model.PlanOut{}, ErrNotFound
	}
	return p, nil
}

func (m *Memory) ListPlans(_ context.Context, cursor string, limit int) ([]model.PlanOut, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	start := 0
	if cursor != "" {
		if n, err := strconv.Atoi(cursor); err == nil && n >= 0 {
			start = n
		}
	}
	// newest first
	var items []model.PlanOut
	idx := len(m.order) - 1 - start
	for ; idx >= 0 && len(items) < limit; idx-- {
		items = append(items, m.plans[m.order[idx]])
	}
	next := ""
	if idx >= 0 {
		next = strconv.Itoa(len(m.order) - 1 - idx)
	}
	return items, next, nil
}

func (m *Memory) GetPlannerConfig(_ context.Context) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cfg == nil {
		return nil, nil
	}
	out := make(map[string]any, len(m.cfg))
	for k, v := range m.cfg {
		out[k] = v
	}
	return out, nil
}

func (m *Memory) SavePlannerConfig(_ context.Context, cfg map[string]any) error {
	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
	return nil
}
