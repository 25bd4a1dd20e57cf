package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"gasroute/internal/model"
)

func TestMemorySaveGet(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if _, err := m.GetPlan(ctx, "plan_x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	plan := model.PlanOut{ID: "plan_1", Estimated: true}
	if err := m.SavePlan(ctx, plan); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := m.GetPlan(ctx, "plan_1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != "plan_1" || !got.Estimated {
		t.Fatalf("roundtrip mismatch: %+v", got)
	}

	// Saving the same id again must not duplicate it in listings.
	if err := m.SavePlan(ctx, plan); err != nil {
		t.Fatalf("resave: %v", err)
	}
	items, _, err := m.ListPlans(ctx, "", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 plan, got %d", len(items))
	}
}

func TestMemoryListPagination(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := m.SavePlan(ctx, model.PlanOut{ID: fmt.Sprintf("plan_%d", i)}); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	page1, cursor, err := m.ListPlans(ctx, "", 2)
	if err != nil {
		t.Fatalf("list page 1: %v", err)
	}
	if len(page1) != 2 || page1[0].ID != "plan_4" || page1[1].ID != "plan_3" {
		t.Fatalf("expected newest first, got %+v", page1)
	}
	if cursor == "" {
		t.Fatal("expected a next cursor")
	}

	page2, cursor, err := m.ListPlans(ctx, cursor, 2)
	if err != nil {
		t.Fatalf("list page 2: %v", err)
	}
	if len(page2) != 2 || page2[0].ID != "plan_2" {
		t.Fatalf("unexpected page 2: %+v", page2)
	}

	page3, cursor, err := m.ListPlans(ctx, cursor, 2)
	if err != nil {
		t.Fatalf("list page 3: %v", err)
	}
	if len(page3) != 1 || page3[0].ID != "plan_0" {
		t.Fatalf("unexpected page 3: %+v", page3)
	}
	if cursor != "" {
		t.Fatalf("expected exhausted cursor, got %q", cursor)
	}
}

func TestMemoryPlannerConfig(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	cfg, err := m.GetPlannerConfig(ctx)
	if err != nil {
		t.Fatalf("get empty config: %v", err)
	}
	if cfg != nil {
		t.Fatalf("expected nil config, got %+v", cfg)
	}

	in := map[string]any{"maxIterations": float64(25), "avgSpeedKph": float64(35)}
	if err := m.SavePlannerConfig(ctx, in); err != nil {
		t.Fatalf("save config: %v", err)
	}
	cfg, err = m.GetPlannerConfig(ctx)
	if err != nil {
		t.Fatalf("get config: %v", err)
	}
	if cfg["maxIterations"] != float64(25) {
		t.Fatalf("config roundtrip mismatch: %+v", cfg)
	}
	// Returned map is a copy; mutating it must not leak back.
	cfg["maxIterations"] = float64(99)
	again, _ := m.GetPlannerConfig(ctx)
	if again["maxIterations"] != float64(25) {
		t.Fatal("GetPlannerConfig must return a copy")
	}
}
