package resilience

import (
	"errors"
	"fmt"
)

// FailureKind classifies provider call failures. The optimizer has a defined
// fallback for every kind, so callers switch on Kind instead of string
// matching.
type FailureKind int

const (
	KindUnknown FailureKind = iota
	KindTimeout
	KindRateLimited
	KindProviderUnavailable
	KindBudgetExceeded
	KindInvalidRequest
)

func (k FailureKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindRateLimited:
		return "rate_limited"
	case KindProviderUnavailable:
		return "provider_unavailable"
	case KindBudgetExceeded:
		return "budget_exceeded"
	case KindInvalidRequest:
		return "invalid_request"
	default:
		return "unknown"
	}
}

// Failure is the single error type crossing the wrapper boundary.
type Failure struct {
	Kind FailureKind
	Op   string
	Err  error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Op, f.Kind, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Op, f.Kind)
}

func (f *Failure) Unwrap() error { return f.Err }

// Retryable reports whether a bounded retry may help.
func (f *Failure) Retryable() bool {
	switch f.Kind {
	case KindTimeout, KindRateLimited, KindUnknown:
		return true
	default:
		return false
	}
}

func NewFailure(kind FailureKind, op string, err error) *Failure {
	return &Failure{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the failure kind from an error chain; non-Failure errors
// report KindUnknown.
func KindOf(err error) FailureKind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return KindUnknown
}
