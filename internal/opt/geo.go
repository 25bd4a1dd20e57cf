package opt

import "math"

// Haversine returns the great-circle distance in meters between two points.
func Haversine(a, b GeoPoint) float64 {
	const R = 6371000.0
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(a.Lat*math.Pi/180)*math.Cos(b.Lat*math.Pi/180)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return R * c
}

// EstimateMatrix builds a haversine travel matrix with a flat average speed.
// Used whenever the external distance provider is unavailable.
func EstimateMatrix(points []GeoPoint, avgSpeedKph float64) Matrix {
	if avgSpeedKph <= 0 {
		avgSpeedKph = DefaultAvgSpeedKph
	}
	speed := avgSpeedKph / 3.6 // m/s
	n := len(points)
	m := Matrix{DistM: make([][]float64, n), DurSec: make([][]float64, n)}
	for i := 0; i < n; i++ {
		m.DistM[i] = make([]float64, n)
		m.DurSec[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			d := Haversine(points[i], points[j])
			m.DistM[i][j] = d
			m.DurSec[i][j] = d / speed
		}
	}
	return m
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
