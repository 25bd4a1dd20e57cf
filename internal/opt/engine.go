package opt

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// problem is the immutable working state of one optimization run. All travel
// lookups go through the precomputed matrix, indexed by waypoint.
type problem struct {
	depot    GeoPoint
	stops    []Stop
	vehicles []Vehicle
	points   []GeoPoint
	stopPt   []int // stop index -> matrix index
	startPt  []int // vehicle index -> matrix index
	mat      Matrix
}

// buildPoints lays out the waypoint list: depot first, then per-vehicle start
// locations, then stops.
func buildPoints(req Request) ([]GeoPoint, []int, []int) {
	points := []GeoPoint{req.Depot}
	startPt := make([]int, len(req.Vehicles))
	for vi, v := range req.Vehicles {
		if v.Start == nil {
			startPt[vi] = 0
			continue
		}
		startPt[vi] = len(points)
		points = append(points, *v.Start)
	}
	stopPt := make([]int, len(req.Stops))
	for si, st := range req.Stops {
		stopPt[si] = len(points)
		points = append(points, st.Loc)
	}
	return points, stopPt, startPt
}

// violation kinds recorded for unassigned-stop diagnostics.
const (
	vCapacity   = "capacity"
	vTimeWindow = "time_window"
	vDuration   = "max_route_duration"
	vShiftEnd   = "shift_end"
	vMaxStops   = "max_stops"
)

type schedule struct {
	arrivals []float64
	distM    float64
	durSec   float64
	load     int
}

// scheduleRoute propagates arrival times along a candidate stop order for one
// vehicle. Returns the schedule and an empty violation string when feasible.
// Early arrival waits until the window opens; late arrival is infeasible.
func (p *problem) scheduleRoute(vi int, order []int) (schedule, string) {
	v := p.vehicles[vi]
	if v.MaxStops > 0 && len(order) > v.MaxStops {
		return schedule{}, vMaxStops
	}
	s := schedule{arrivals: make([]float64, 0, len(order))}
	t := v.ShiftStartSec
	cur := p.startPt[vi]
	for _, si := range order {
		st := p.stops[si]
		pt := p.stopPt[si]
		s.distM += p.mat.DistM[cur][pt]
		t += p.mat.DurSec[cur][pt]
		if st.TW != nil {
			if t < st.TW.StartSec {
				t = st.TW.StartSec
			}
			if st.TW.EndSec > 0 && t > st.TW.EndSec {
				return schedule{}, vTimeWindow
			}
		}
		s.arrivals = append(s.arrivals, t)
		t += st.ServiceSec
		s.load += st.Demand
		if s.load > v.Capacity {
			return schedule{}, vCapacity
		}
		cur = pt
	}
	s.durSec = t - v.ShiftStartSec
	if v.MaxRouteSec > 0 && s.durSec > v.MaxRouteSec {
		return schedule{}, vDuration
	}
	if v.ShiftEndSec > 0 && t > v.ShiftEndSec {
		return schedule{}, vShiftEnd
	}
	return s, ""
}

// construct runs the priority-ordered cheapest-insertion phase. Stops that fit
// nowhere are reported with the constraint kinds that rejected them.
func (p *problem) construct(routes [][]int) []Unassigned {
	order := make([]int, len(p.stops))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		sa, sb := p.stops[order[a]], p.stops[order[b]]
		if sa.Priority != sb.Priority {
			return sa.Priority > sb.Priority
		}
		return sa.ID < sb.ID
	})

	maxCap := 0
	for _, v := range p.vehicles {
		if v.Capacity > maxCap {
			maxCap = v.Capacity
		}
	}

	var unassigned []Unassigned
	for _, si := range order {
		st := p.stops[si]
		if st.Demand > maxCap {
			unassigned = append(unassigned, Unassigned{
				StopID: st.ID,
				Reason: ReasonDemandExceedsAll,
				Detail: fmt.Sprintf("demand %d exceeds largest vehicle capacity %d", st.Demand, maxCap),
			})
			continue
		}
		if st.TW != nil && st.TW.EndSec > 0 && !p.reachableInWindow(si) {
			unassigned = append(unassigned, Unassigned{
				StopID: st.ID,
				Reason: ReasonTimeWindowInfeasible,
				Detail: fmt.Sprintf("window closes at %.0fs before any vehicle can arrive", st.TW.EndSec),
			})
			continue
		}
		vi, pos, violations := p.bestInsertion(routes, si)
		if vi < 0 {
			unassigned = append(unassigned, Unassigned{
				StopID: st.ID,
				Reason: ReasonNoFeasibleVehicle,
				Detail: violations,
			})
			continue
		}
		routes[vi] = insertAt(routes[vi], pos, si)
	}
	return unassigned
}

// reachableInWindow reports whether any vehicle driving straight to the stop
// at shift start can make the window.
func (p *problem) reachableInWindow(si int) bool {
	for vi, v := range p.vehicles {
		earliest := v.ShiftStartSec + p.mat.DurSec[p.startPt[vi]][p.stopPt[si]]
		if earliest <= p.stops[si].TW.EndSec {
			return true
		}
	}
	return false
}

// bestInsertion finds the cheapest feasible (vehicle, position) for a stop.
// Ties keep the earliest position scanned, which means the lower vehicle
// index and the position closer to the route start.
func (p *problem) bestInsertion(routes [][]int, si int) (int, int, string) {
	bestVi, bestPos := -1, -1
	bestDelta := math.MaxFloat64
	seen := map[string]bool{}
	var kinds []string
	for vi := range p.vehicles {
		base, viol := p.scheduleRoute(vi, routes[vi])
		if viol != "" {
			continue
		}
		for pos := 0; pos <= len(routes[vi]); pos++ {
			cand := insertAt(append([]int(nil), routes[vi]...), pos, si)
			sc, viol := p.scheduleRoute(vi, cand)
			if viol != "" {
				if !seen[viol] {
					seen[viol] = true
					kinds = append(kinds, viol)
				}
				continue
			}
			delta := sc.distM - base.distM
			if delta < bestDelta {
				bestDelta = delta
				bestVi = vi
				bestPos = pos
			}
		}
	}
	return bestVi, bestPos, strings.Join(kinds, ",")
}

func insertAt(order []int, pos, si int) []int {
	order = append(order, 0)
	copy(order[pos+1:], order[pos:])
	order[pos] = si
	return order
}

// totalDistance is the improvement-phase objective.
func (p *problem) totalDistance(routes [][]int) float64 {
	total := 0.0
	for vi := range routes {
		sc, viol := p.scheduleRoute(vi, routes[vi])
		if viol != "" {
			return math.MaxFloat64
		}
		total += sc.distM
	}
	return total
}
