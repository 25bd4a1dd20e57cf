package api

import (
	"fmt"

	"gasroute/internal/model"
)

func validateOptimizeRequest(req *model.OptimizeRequest) error {
	if req.Depot == nil {
		return fmt.Errorf("depot is required")
	}
	if len(req.Stops) == 0 {
		return fmt.Errorf("stops must be non-empty")
	}
	for i, st := range req.Stops {
		if st.ID == "" {
			return fmt.Errorf("stops[%d]: id is required", i)
		}
		if st.Location == nil {
			return fmt.Errorf("stop %s: location is required", st.ID)
		}
		if st.Cylinders <= 0 {
			return fmt.Errorf("stop %s: cylinders must be > 0", st.ID)
		}
		if st.ServiceSec < 0 {
			return fmt.Errorf("stop %s: serviceSec must be >= 0", st.ID)
		}
	}
	for i, v := range req.Vehicles {
		if v.ID == "" {
			return fmt.Errorf("vehicles[%d]: id is required", i)
		}
		if v.Capacity <= 0 {
			return fmt.Errorf("vehicle %s: capacity must be > 0", v.ID)
		}
		if v.MaxRouteSec < 0 || v.MaxStops < 0 {
			return fmt.Errorf("vehicle %s: maxRouteSec and maxStops must be >= 0", v.ID)
		}
	}
	if req.Options != nil {
		if req.Options.MaxIterations < 0 {
			return fmt.Errorf("options.maxIterations must be >= 0")
		}
		if req.Options.TimeBudgetMs < 0 {
			return fmt.Errorf("options.timeBudgetMs must be >= 0")
		}
		if req.Options.AvgSpeedKph < 0 {
			return fmt.Errorf("options.avgSpeedKph must be >= 0")
		}
	}
	return nil
}
