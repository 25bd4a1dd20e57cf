// Package provider holds concrete distance-matrix backends. Each backend
// normalizes its wire errors into the resilience failure taxonomy; the
// resilience client wraps exactly one of them.
package provider

import (
	"fmt"

	"gasroute/internal/resilience"
)

// Config selects and configures the mapping backend.
type Config struct {
	Kind       string // "google", "static", "none"
	BaseURL    string
	APIKey     string
	Mode       string // travel mode, e.g. "driving"
	TimeoutSec int
}

// New builds the configured backend. Kind "none" returns nil: the optimizer
// then runs entirely on haversine estimates.
func New(cfg Config) (resilience.MatrixProvider, error) {
	switch cfg.Kind {
	case "", "none":
		return nil, nil
	case "google":
		return NewGoogleMatrix(cfg)
	case "static":
		return NewStatic(nil), nil
	default:
		return nil, fmt.Errorf("unknown provider kind %q", cfg.Kind)
	}
}
