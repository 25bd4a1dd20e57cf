package opt

import (
	"context"
	"time"
)

// GeoPoint is a WGS84 coordinate pair.
type GeoPoint struct {
	Lat float64
	Lng float64
}

// TimeWindow bounds arrival at a stop, in seconds from route departure.
// End <= 0 means unbounded.
type TimeWindow struct {
	StartSec float64
	EndSec   float64
}

// Stop is one delivery location to visit within a planning run.
type Stop struct {
	ID         string
	Loc        GeoPoint
	Demand     int // cylinder units
	ServiceSec float64
	TW         *TimeWindow
	Priority   int // higher is served first when capacity is tight
}

// Vehicle is one delivery resource available for a planning run.
type Vehicle struct {
	ID            string
	Capacity      int
	Start         *GeoPoint // nil means depot
	ShiftStartSec float64
	ShiftEndSec   float64 // 0 means open-ended
	MaxRouteSec   float64 // 0 means unlimited
	MaxStops      int     // 0 means unlimited
}

// Options control heuristic effort and the degraded-mode travel estimate.
type Options struct {
	MaxImprovementIterations int
	TimeBudget               time.Duration
	AvgSpeedKph              float64
}

const (
	DefaultMaxImprovementIterations = 50
	DefaultTimeBudget               = 5 * time.Second
	DefaultAvgSpeedKph              = 40
)

// Request is the full input of one optimization run.
type Request struct {
	Depot    GeoPoint
	Stops    []Stop
	Vehicles []Vehicle
	Options  Options
}

// Matrix holds pairwise travel metrics between waypoints, meters and seconds.
type Matrix struct {
	DistM  [][]float64
	DurSec [][]float64
}

// TravelSource supplies a travel matrix between waypoints. A nil source or a
// failing source degrades the run to haversine estimates.
type TravelSource interface {
	Matrix(ctx context.Context, points []GeoPoint) (Matrix, error)
}

// Route is the optimizer output for one vehicle. StopIDs order is visit order.
type Route struct {
	VehicleID   string
	StopIDs     []string
	ArrivalSec  []float64 // one entry per stop, seconds from departure
	DistanceM   float64
	DurationSec float64
	Load        int
}

// Reason explains why a stop could not be assigned.
type Reason string

const (
	ReasonNoVehicles           Reason = "NO_VEHICLES_AVAILABLE"
	ReasonNoFeasibleVehicle    Reason = "NO_FEASIBLE_VEHICLE"
	ReasonDemandExceedsAll     Reason = "DEMAND_EXCEEDS_ALL_CAPACITY"
	ReasonTimeWindowInfeasible Reason = "TIME_WINDOW_INFEASIBLE"
)

// Unassigned reports one stop left out of the plan. Detail names the
// violated constraint for dispatcher diagnostics.
type Unassigned struct {
	StopID string
	Reason Reason
	Detail string
}

// Plan is the complete output of one optimization run. A plan with some
// unassigned stops is a normal, successful result.
type Plan struct {
	Routes     []Route
	Unassigned []Unassigned
	Estimated  bool // true when haversine fallback supplied any travel metric
}
