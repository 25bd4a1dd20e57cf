package store

import (
	"context"
	"errors"

	"gasroute/internal/model"
)

// Store persists produced plans for the dispatch UI. The optimizer itself
// never touches persistence.
type Store interface {
	SavePlan(ctx context.Context, plan model.PlanOut) error
	GetPlan(ctx context.Context, id string) (model.PlanOut, error)
	ListPlans(ctx context.Context, cursor string, limit int) ([]model.PlanOut, string, error)

	// Planner config tweaked by ops without redeploys
	GetPlannerConfig(ctx context.Context) (map[string]any, error)
	SavePlannerConfig(ctx context.Context, cfg map[string]any) error
}

var ErrNotFound = errors.New("not found")
