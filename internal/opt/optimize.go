package opt

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidInput marks caller-side data problems. Wrapped errors carry the
// specific field that failed.
var ErrInvalidInput = errors.New("invalid input")

// Optimizer runs planning requests against one travel source. Safe for
// concurrent use: each run owns its own working state.
type Optimizer struct {
	Travel TravelSource
}

func New(src TravelSource) *Optimizer {
	return &Optimizer{Travel: src}
}

// Optimize assigns stops to vehicles and sequences each route. Provider
// failures never fail the run; they switch travel metrics to haversine
// estimates and flag the plan accordingly.
func (o *Optimizer) Optimize(ctx context.Context, req Request) (Plan, error) {
	if err := validate(req); err != nil {
		return Plan{}, err
	}
	opts := withDefaults(req.Options)
	req.Options = opts

	if len(req.Vehicles) == 0 {
		plan := Plan{}
		for _, st := range req.Stops {
			plan.Unassigned = append(plan.Unassigned, Unassigned{
				StopID: st.ID,
				Reason: ReasonNoVehicles,
				Detail: "no vehicles in roster",
			})
		}
		return plan, nil
	}

	points, stopPt, startPt := buildPoints(req)
	mat, estimated := o.fetchMatrix(ctx, points, opts.AvgSpeedKph)

	p := &problem{
		depot:    req.Depot,
		stops:    req.Stops,
		vehicles: req.Vehicles,
		points:   points,
		stopPt:   stopPt,
		startPt:  startPt,
		mat:      mat,
	}

	routes := make([][]int, len(req.Vehicles))
	unassigned := p.construct(routes)

	deadline := time.Now().Add(opts.TimeBudget)
	for it := 0; it < opts.MaxImprovementIterations; it++ {
		if ctx.Err() != nil || !time.Now().Before(deadline) {
			break
		}
		improved := p.twoOptPass(routes)
		if p.relocatePass(routes) {
			improved = true
		}
		if p.crossExchangePass(routes) {
			improved = true
		}
		if !improved {
			break
		}
	}

	return p.assemble(routes, unassigned, estimated), nil
}

// fetchMatrix pulls the travel matrix from the provider, degrading to the
// haversine estimate on any failure or shape mismatch.
func (o *Optimizer) fetchMatrix(ctx context.Context, points []GeoPoint, avgSpeedKph float64) (Matrix, bool) {
	if o.Travel == nil {
		return EstimateMatrix(points, avgSpeedKph), true
	}
	mat, err := o.Travel.Matrix(ctx, points)
	if err != nil || !matrixShaped(mat, len(points)) {
		return EstimateMatrix(points, avgSpeedKph), true
	}
	return mat, false
}

func matrixShaped(m Matrix, n int) bool {
	if len(m.DistM) != n || len(m.DurSec) != n {
		return false
	}
	for i := 0; i < n; i++ {
		if len(m.DistM[i]) != n || len(m.DurSec[i]) != n {
			return false
		}
	}
	return true
}

func (p *problem) assemble(routes [][]int, unassigned []Unassigned, estimated bool) Plan {
	plan := Plan{Unassigned: unassigned, Estimated: estimated}
	for vi, v := range p.vehicles {
		r := Route{VehicleID: v.ID, StopIDs: []string{}, ArrivalSec: []float64{}}
		if len(routes[vi]) > 0 {
			sc, viol := p.scheduleRoute(vi, routes[vi])
			if viol != "" {
				// Construction and improvement only produce feasible routes,
				// but a stop must never vanish from the plan either way.
				for _, si := range routes[vi] {
					plan.Unassigned = append(plan.Unassigned, Unassigned{
						StopID: p.stops[si].ID,
						Reason: ReasonNoFeasibleVehicle,
						Detail: viol,
					})
				}
			} else {
				for _, si := range routes[vi] {
					r.StopIDs = append(r.StopIDs, p.stops[si].ID)
				}
				r.ArrivalSec = sc.arrivals
				r.DistanceM = sc.distM
				r.DurationSec = sc.durSec
				r.Load = sc.load
			}
		}
		plan.Routes = append(plan.Routes, r)
	}
	return plan
}

func withDefaults(o Options) Options {
	if o.MaxImprovementIterations <= 0 {
		o.MaxImprovementIterations = DefaultMaxImprovementIterations
	}
	if o.TimeBudget <= 0 {
		o.TimeBudget = DefaultTimeBudget
	}
	if o.AvgSpeedKph <= 0 {
		o.AvgSpeedKph = DefaultAvgSpeedKph
	}
	return o
}

func validate(req Request) error {
	if !finite(req.Depot.Lat) || !finite(req.Depot.Lng) {
		return fmt.Errorf("%w: depot coordinates must be finite", ErrInvalidInput)
	}
	if len(req.Stops) == 0 {
		return fmt.Errorf("%w: stops must be non-empty", ErrInvalidInput)
	}
	seen := map[string]bool{}
	for _, st := range req.Stops {
		if st.ID == "" {
			return fmt.Errorf("%w: stop id must be non-empty", ErrInvalidInput)
		}
		if seen[st.ID] {
			return fmt.Errorf("%w: duplicate stop id %q", ErrInvalidInput, st.ID)
		}
		seen[st.ID] = true
		if !finite(st.Loc.Lat) || !finite(st.Loc.Lng) {
			return fmt.Errorf("%w: stop %q coordinates must be finite", ErrInvalidInput, st.ID)
		}
		if st.Demand <= 0 {
			return fmt.Errorf("%w: stop %q demand must be positive", ErrInvalidInput, st.ID)
		}
		if st.ServiceSec < 0 {
			return fmt.Errorf("%w: stop %q service duration must be >= 0", ErrInvalidInput, st.ID)
		}
		if st.TW != nil && st.TW.EndSec > 0 && st.TW.EndSec < st.TW.StartSec {
			return fmt.Errorf("%w: stop %q time window ends before it starts", ErrInvalidInput, st.ID)
		}
	}
	seenV := map[string]bool{}
	for _, v := range req.Vehicles {
		if v.ID == "" {
			return fmt.Errorf("%w: vehicle id must be non-empty", ErrInvalidInput)
		}
		if seenV[v.ID] {
			return fmt.Errorf("%w: duplicate vehicle id %q", ErrInvalidInput, v.ID)
		}
		seenV[v.ID] = true
		if v.Capacity <= 0 {
			return fmt.Errorf("%w: vehicle %q capacity must be positive", ErrInvalidInput, v.ID)
		}
		if v.Start != nil && (!finite(v.Start.Lat) || !finite(v.Start.Lng)) {
			return fmt.Errorf("%w: vehicle %q start coordinates must be finite", ErrInvalidInput, v.ID)
		}
		if v.ShiftEndSec > 0 && v.ShiftEndSec < v.ShiftStartSec {
			return fmt.Errorf("%w: vehicle %q shift ends before it starts", ErrInvalidInput, v.ID)
		}
	}
	return nil
}
