package provider

import (
	"context"

	"gasroute/internal/opt"
)

// Static serves a fixed travel-time model: haversine distance over a flat
// speed. Useful for dev environments without provider credentials and for
// tests that need provider-shaped responses without the network.
type Static struct {
	// SpeedKph overrides the default flat speed when > 0.
	SpeedKph float64
	// Fixed, when set, is returned verbatim regardless of the waypoints.
	Fixed *opt.Matrix
}

func NewStatic(fixed *opt.Matrix) *Static { return &Static{Fixed: fixed} }

func (s *Static) Matrix(_ context.Context, points []opt.GeoPoint) (opt.Matrix, error) {
	if s.Fixed != nil {
		return *s.Fixed, nil
	}
	speed := s.SpeedKph
	if speed <= 0 {
		speed = opt.DefaultAvgSpeedKph
	}
	return opt.EstimateMatrix(points, speed), nil
}
