package opt

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"
)

type stubSource struct {
	m     Matrix
	err   error
	calls int
}

func (s *stubSource) Matrix(_ context.Context, points []GeoPoint) (Matrix, error) {
	s.calls++
	if s.err != nil {
		return Matrix{}, s.err
	}
	if len(s.m.DistM) > 0 {
		return s.m, nil
	}
	return EstimateMatrix(points, 40), nil
}

func mkStop(id string, lat, lng float64, demand int) Stop {
	return Stop{ID: id, Loc: GeoPoint{Lat: lat, Lng: lng}, Demand: demand}
}

func assignedIDs(p Plan) map[string]int {
	out := map[string]int{}
	for _, r := range p.Routes {
		for _, id := range r.StopIDs {
			out[id]++
		}
	}
	return out
}

func TestSingleVehicleSingleStop(t *testing.T) {
	o := New(&stubSource{})
	plan, err := o.Optimize(context.Background(), Request{
		Depot:    GeoPoint{0, 0},
		Stops:    []Stop{mkStop("s1", 1, 1, 5)},
		Vehicles: []Vehicle{{ID: "v1", Capacity: 10}},
	})
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if len(plan.Unassigned) != 0 {
		t.Fatalf("expected no unassigned stops, got %+v", plan.Unassigned)
	}
	if len(plan.Routes) != 1 || len(plan.Routes[0].StopIDs) != 1 || plan.Routes[0].StopIDs[0] != "s1" {
		t.Fatalf("expected one route with s1, got %+v", plan.Routes)
	}
	if plan.Routes[0].Load != 5 {
		t.Fatalf("expected load 5, got %d", plan.Routes[0].Load)
	}
	if plan.Estimated {
		t.Fatal("provider succeeded; plan should not be estimated")
	}
}

func TestInfeasibleDemand(t *testing.T) {
	o := New(&stubSource{})
	plan, err := o.Optimize(context.Background(), Request{
		Depot:    GeoPoint{0, 0},
		Stops:    []Stop{mkStop("big", 1, 1, 15)},
		Vehicles: []Vehicle{{ID: "v1", Capacity: 10}},
	})
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if len(plan.Unassigned) != 1 {
		t.Fatalf("expected one unassigned stop, got %+v", plan.Unassigned)
	}
	u := plan.Unassigned[0]
	if u.StopID != "big" || u.Reason != ReasonDemandExceedsAll {
		t.Fatalf("unexpected unassigned entry: %+v", u)
	}
	for _, r := range plan.Routes {
		if len(r.StopIDs) != 0 {
			t.Fatalf("expected empty routes, got %+v", r)
		}
	}
}

func TestNoVehicles(t *testing.T) {
	o := New(&stubSource{})
	plan, err := o.Optimize(context.Background(), Request{
		Depot:    GeoPoint{0, 0},
		Stops:    []Stop{mkStop("s1", 1, 1, 5), mkStop("s2", 2, 2, 3)},
		Vehicles: nil,
	})
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if len(plan.Unassigned) != 2 {
		t.Fatalf("expected both stops unassigned, got %+v", plan.Unassigned)
	}
	for _, u := range plan.Unassigned {
		if u.Reason != ReasonNoVehicles {
			t.Fatalf("expected NO_VEHICLES_AVAILABLE, got %+v", u)
		}
	}
}

func multiStopRequest() Request {
	return Request{
		Depot: GeoPoint{0, 0},
		Stops: []Stop{
			mkStop("a", 0.010, 0, 5),
			mkStop("b", 0.020, 0, 5),
			mkStop("c", 0.030, 0, 5),
			mkStop("d", 0.010, 0.010, 5),
			mkStop("e", 0.020, 0.010, 5),
		},
		Vehicles: []Vehicle{
			{ID: "v1", Capacity: 15},
			{ID: "v2", Capacity: 15},
		},
	}
}

func TestPartitionAndCapacityInvariants(t *testing.T) {
	o := New(&stubSource{})
	req := multiStopRequest()
	plan, err := o.Optimize(context.Background(), req)
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	seen := assignedIDs(plan)
	for _, u := range plan.Unassigned {
		seen[u.StopID]++
	}
	for _, st := range req.Stops {
		if seen[st.ID] != 1 {
			t.Fatalf("stop %s appears %d times in plan", st.ID, seen[st.ID])
		}
	}
	if got, want := len(seen), len(req.Stops); got != want {
		t.Fatalf("plan mentions %d stops, input has %d", got, want)
	}
	caps := map[string]int{"v1": 15, "v2": 15}
	for _, r := range plan.Routes {
		load := 0
		for _, id := range r.StopIDs {
			for _, st := range req.Stops {
				if st.ID == id {
					load += st.Demand
				}
			}
			if load > caps[r.VehicleID] {
				t.Fatalf("route %s exceeds capacity at prefix: %d > %d", r.VehicleID, load, caps[r.VehicleID])
			}
		}
		if load != r.Load {
			t.Fatalf("route %s reports load %d, stops sum to %d", r.VehicleID, r.Load, load)
		}
	}
}

func TestTimeWindowInvariant(t *testing.T) {
	o := New(&stubSource{})
	req := multiStopRequest()
	req.Stops[1].TW = &TimeWindow{StartSec: 300, EndSec: 7200}
	req.Stops[3].TW = &TimeWindow{EndSec: 3600}
	plan, err := o.Optimize(context.Background(), req)
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	for _, r := range plan.Routes {
		for i, id := range r.StopIDs {
			var tw *TimeWindow
			for _, st := range req.Stops {
				if st.ID == id {
					tw = st.TW
				}
			}
			if tw == nil {
				continue
			}
			arr := r.ArrivalSec[i]
			if arr < tw.StartSec {
				t.Fatalf("stop %s arrives %.1f before window opens at %.1f", id, arr, tw.StartSec)
			}
			if tw.EndSec > 0 && arr > tw.EndSec {
				t.Fatalf("stop %s arrives %.1f after window closes at %.1f", id, arr, tw.EndSec)
			}
		}
	}
}

func TestDeterminism(t *testing.T) {
	req := multiStopRequest()
	a, err := New(&stubSource{}).Optimize(context.Background(), req)
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	b, err := New(&stubSource{}).Optimize(context.Background(), req)
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("identical inputs produced different plans:\n%+v\n%+v", a, b)
	}
}

func TestDegradationOnSourceFailure(t *testing.T) {
	src := &stubSource{err: errors.New("provider down")}
	o := New(src)
	req := multiStopRequest()
	plan, err := o.Optimize(context.Background(), req)
	if err != nil {
		t.Fatalf("optimize should not fail on provider errors: %v", err)
	}
	if !plan.Estimated {
		t.Fatal("fallback path must flag the plan as estimated")
	}
	seen := assignedIDs(plan)
	for _, u := range plan.Unassigned {
		seen[u.StopID]++
	}
	for _, st := range req.Stops {
		if seen[st.ID] != 1 {
			t.Fatalf("degraded plan broke partition invariant for %s", st.ID)
		}
	}
}

func TestNilSourceEstimates(t *testing.T) {
	plan, err := New(nil).Optimize(context.Background(), Request{
		Depot:    GeoPoint{0, 0},
		Stops:    []Stop{mkStop("s1", 0.01, 0.01, 1)},
		Vehicles: []Vehicle{{ID: "v1", Capacity: 1}},
	})
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if !plan.Estimated {
		t.Fatal("no source configured; plan must be estimated")
	}
}

func TestPriorityWinsWhenCapacityTight(t *testing.T) {
	o := New(&stubSource{})
	plan, err := o.Optimize(context.Background(), Request{
		Depot: GeoPoint{0, 0},
		Stops: []Stop{
			{ID: "low", Loc: GeoPoint{0.010, 0}, Demand: 5, Priority: 1},
			{ID: "high", Loc: GeoPoint{0.011, 0}, Demand: 5, Priority: 9},
		},
		Vehicles: []Vehicle{{ID: "v1", Capacity: 5}},
	})
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if got := plan.Routes[0].StopIDs; len(got) != 1 || got[0] != "high" {
		t.Fatalf("expected high-priority stop assigned, got %v", got)
	}
	if len(plan.Unassigned) != 1 || plan.Unassigned[0].StopID != "low" || plan.Unassigned[0].Reason != ReasonNoFeasibleVehicle {
		t.Fatalf("expected low unassigned with NO_FEASIBLE_VEHICLE, got %+v", plan.Unassigned)
	}
	if plan.Unassigned[0].Detail == "" {
		t.Fatal("unassigned entries must record the violated constraint")
	}
}

func TestTimeWindowInfeasibleReason(t *testing.T) {
	o := New(&stubSource{})
	req := Request{
		Depot: GeoPoint{0, 0},
		Stops: []Stop{
			{ID: "far", Loc: GeoPoint{1, 1}, Demand: 1, TW: &TimeWindow{EndSec: 60}},
		},
		Vehicles: []Vehicle{{ID: "v1", Capacity: 10}},
	}
	plan, err := o.Optimize(context.Background(), req)
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if len(plan.Unassigned) != 1 || plan.Unassigned[0].Reason != ReasonTimeWindowInfeasible {
		t.Fatalf("expected TIME_WINDOW_INFEASIBLE, got %+v", plan.Unassigned)
	}
}

func TestInvalidInput(t *testing.T) {
	o := New(&stubSource{})
	cases := []struct {
		name string
		req  Request
	}{
		{"empty stops", Request{Depot: GeoPoint{0, 0}, Vehicles: []Vehicle{{ID: "v", Capacity: 1}}}},
		{"duplicate stop ids", Request{
			Depot:    GeoPoint{0, 0},
			Stops:    []Stop{mkStop("s", 1, 1, 1), mkStop("s", 2, 2, 1)},
			Vehicles: []Vehicle{{ID: "v", Capacity: 1}},
		}},
		{"zero demand", Request{
			Depot:    GeoPoint{0, 0},
			Stops:    []Stop{mkStop("s", 1, 1, 0)},
			Vehicles: []Vehicle{{ID: "v", Capacity: 1}},
		}},
		{"nan coords", Request{
			Depot:    GeoPoint{0, 0},
			Stops:    []Stop{mkStop("s", math.NaN(), 1, 1)},
			Vehicles: []Vehicle{{ID: "v", Capacity: 1}},
		}},
		{"zero capacity", Request{
			Depot:    GeoPoint{0, 0},
			Stops:    []Stop{mkStop("s", 1, 1, 1)},
			Vehicles: []Vehicle{{ID: "v", Capacity: 0}},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := o.Optimize(context.Background(), tc.req); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestCancelledContextStillReturnsPlan(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	plan, err := New(nil).Optimize(ctx, multiStopRequest())
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	seen := assignedIDs(plan)
	for _, u := range plan.Unassigned {
		seen[u.StopID]++
	}
	if len(seen) != 5 {
		t.Fatalf("cancelled run returned incomplete plan: %+v", plan)
	}
}

func TestSourceCalledOncePerRun(t *testing.T) {
	src := &stubSource{}
	o := New(src)
	if _, err := o.Optimize(context.Background(), multiStopRequest()); err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if src.calls != 1 {
		t.Fatalf("expected a single matrix fetch per run, got %d", src.calls)
	}
}

func TestTimeBudgetBoundsImprovement(t *testing.T) {
	req := multiStopRequest()
	req.Options = Options{MaxImprovementIterations: 1000000, TimeBudget: time.Millisecond}
	start := time.Now()
	if _, err := New(nil).Optimize(context.Background(), req); err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatal("time budget did not bound the improvement phase")
	}
}
