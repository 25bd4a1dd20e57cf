package api

import (
	"fmt"
	"math"
	"time"

	"gasroute/internal/model"
	"gasroute/internal/opt"
)

// parseDepart resolves the plan departure instant. Everything downstream
// works in seconds from this instant.
func parseDepart(s string) (time.Time, error) {
	if s == "" {
		return time.Now().UTC().Truncate(time.Second), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("departAt: %w", err)
	}
	return t.UTC(), nil
}

func toOptRequest(req model.OptimizeRequest, depart time.Time) (opt.Request, error) {
	out := opt.Request{
		Depot: opt.GeoPoint{Lat: req.Depot.Lat, Lng: req.Depot.Lng},
	}
	for _, st := range req.Stops {
		s := opt.Stop{
			ID:         st.ID,
			Loc:        opt.GeoPoint{Lat: st.Location.Lat, Lng: st.Location.Lng},
			Demand:     st.Cylinders,
			ServiceSec: float64(st.ServiceSec),
			Priority:   st.Priority,
		}
		if st.TimeWindow != nil {
			tw, err := toWindow(*st.TimeWindow, depart, "stop "+st.ID)
			if err != nil {
				return opt.Request{}, err
			}
			s.TW = tw
		}
		out.Stops = append(out.Stops, s)
	}
	for _, v := range req.Vehicles {
		ov := opt.Vehicle{
			ID:          v.ID,
			Capacity:    v.Capacity,
			MaxRouteSec: float64(v.MaxRouteSec),
			MaxStops:    v.MaxStops,
		}
		if v.Start != nil {
			ov.Start = &opt.GeoPoint{Lat: v.Start.Lat, Lng: v.Start.Lng}
		}
		if v.ShiftStart != "" {
			sec, err := offsetSec(v.ShiftStart, depart)
			if err != nil {
				return opt.Request{}, fmt.Errorf("vehicle %s shiftStart: %w", v.ID, err)
			}
			if sec > 0 {
				ov.ShiftStartSec = sec
			}
		}
		if v.ShiftEnd != "" {
			sec, err := offsetSec(v.ShiftEnd, depart)
			if err != nil {
				return opt.Request{}, fmt.Errorf("vehicle %s shiftEnd: %w", v.ID, err)
			}
			if sec <= 0 {
				return opt.Request{}, fmt.Errorf("vehicle %s shift ends before departure", v.ID)
			}
			ov.ShiftEndSec = sec
		}
		out.Vehicles = append(out.Vehicles, ov)
	}
	if req.Options != nil {
		out.Options = opt.Options{
			MaxImprovementIterations: req.Options.MaxIterations,
			TimeBudget:               time.Duration(req.Options.TimeBudgetMs) * time.Millisecond,
			AvgSpeedKph:              req.Options.AvgSpeedKph,
		}
	}
	return out, nil
}

func toWindow(tw model.TimeWindow, depart time.Time, scope string) (*opt.TimeWindow, error) {
	out := &opt.TimeWindow{}
	if tw.Start != "" {
		sec, err := offsetSec(tw.Start, depart)
		if err != nil {
			return nil, fmt.Errorf("%s window start: %w", scope, err)
		}
		if sec > 0 {
			out.StartSec = sec
		}
	}
	if tw.End != "" {
		sec, err := offsetSec(tw.End, depart)
		if err != nil {
			return nil, fmt.Errorf("%s window end: %w", scope, err)
		}
		if sec <= 0 {
			return nil, fmt.Errorf("%s window ends before departure", scope)
		}
		out.EndSec = sec
	}
	return out, nil
}

func offsetSec(s string, depart time.Time) (float64, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, err
	}
	return t.Sub(depart).Seconds(), nil
}

// fromPlan rounds distances/durations and renders ETAs. This is the only
// place travel metrics are rounded.
func fromPlan(id string, plan opt.Plan, depart time.Time) model.PlanOut {
	out := model.PlanOut{
		ID:         id,
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
		DepartAt:   depart.Format(time.RFC3339),
		Routes:     []model.RouteOut{},
		Unassigned: []model.UnassignedOut{},
		Estimated:  plan.Estimated,
	}
	for _, r := range plan.Routes {
		ro := model.RouteOut{
			VehicleID:   r.VehicleID,
			Stops:       []model.RouteStopOut{},
			DistanceM:   int(math.Round(r.DistanceM)),
			DurationSec: int(math.Round(r.DurationSec)),
			Load:        r.Load,
		}
		for i, sid := range r.StopIDs {
			eta := depart.Add(time.Duration(math.Round(r.ArrivalSec[i])) * time.Second)
			ro.Stops = append(ro.Stops, model.RouteStopOut{
				StopID: sid,
				Seq:    i + 1,
				ETA:    eta.Format(time.RFC3339),
			})
		}
		out.Routes = append(out.Routes, ro)
	}
	for _, u := range plan.Unassigned {
		out.Unassigned = append(out.Unassigned, model.UnassignedOut{
			StopID: u.StopID,
			Reason: string(u.Reason),
			Detail: u.Detail,
		})
	}
	return out
}
