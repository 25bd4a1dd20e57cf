package model

// Wire types for the planning API. Times cross the boundary as RFC3339
// strings and are converted to seconds-from-departure internally; distances
// and durations round to integers only here.

type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type TimeWindow struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

type StopIn struct {
	ID         string      `json:"id"`
	Location   *GeoPoint   `json:"location"`
	Cylinders  int         `json:"cylinders"`
	ServiceSec int         `json:"serviceSec,omitempty"`
	TimeWindow *TimeWindow `json:"timeWindow,omitempty"`
	Priority   int         `json:"priority,omitempty"`
}

type VehicleIn struct {
	ID          string    `json:"id"`
	Capacity    int       `json:"capacity"`
	Start       *GeoPoint `json:"start,omitempty"`
	ShiftStart  string    `json:"shiftStart,omitempty"`
	ShiftEnd    string    `json:"shiftEnd,omitempty"`
	MaxRouteSec int       `json:"maxRouteSec,omitempty"`
	MaxStops    int       `json:"maxStops,omitempty"`
}

type OptimizeOptions struct {
	MaxIterations int     `json:"maxIterations,omitempty"`
	TimeBudgetMs  int     `json:"timeBudgetMs,omitempty"`
	AvgSpeedKph   float64 `json:"avgSpeedKph,omitempty"`
}

type OptimizeRequest struct {
	Depot    *GeoPoint        `json:"depot"`
	DepartAt string           `json:"departAt,omitempty"`
	Stops    []StopIn         `json:"stops"`
	Vehicles []VehicleIn      `json:"vehicles"`
	Options  *OptimizeOptions `json:"options,omitempty"`
}

type RouteStopOut struct {
	StopID string `json:"stopId"`
	Seq    int    `json:"seq"`
	ETA    string `json:"eta"`
}

type RouteOut struct {
	VehicleID   string         `json:"vehicleId"`
	Stops       []RouteStopOut `json:"stops"`
	DistanceM   int            `json:"distanceM"`
	DurationSec int            `json:"durationSec"`
	Load        int            `json:"load"`
}

type UnassignedOut struct {
	StopID string `json:"stopId"`
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

// PlanOut is the persisted and returned result of one optimization run.
type PlanOut struct {
	ID         string          `json:"id"`
	CreatedAt  string          `json:"createdAt"`
	DepartAt   string          `json:"departAt"`
	Routes     []RouteOut      `json:"routes"`
	Unassigned []UnassignedOut `json:"unassigned"`
	Estimated  bool            `json:"estimated"`
}
