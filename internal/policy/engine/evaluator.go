package engine

import (
	"context"
	"time"

	"presence-engine/internal/geofence"
)

// Deny reasons produced by the default check-in policy. Custom policies may return other codes.
const (
	DenyOutsideBranch = "OUTSIDE_BRANCH"
	DenyGPSRequired   = "GPS_REQUIRED"
)

// CheckInInput is the policy input for one check-in attempt.
type CheckInInput struct {
	CompanyID       string
	EmployeeID      string
	BranchID        string
	Classification  geofence.Classification
	DistanceM       float64
	AccuracyM       float64
	FreeTaskActive  bool
	AllowWithoutGPS bool
	At              time.Time
}

// CheckInDecision is the outcome of the check-in policy. DenyReason is empty when allowed.
type CheckInDecision struct {
	Allow      bool
	DenyReason string
}

// Evaluator evaluates the check-in policy.
type Evaluator interface {
	// EvaluateCheckIn evaluates customPolicy (Rego, package presence.check_in) or the default policy
	// when customPolicy is empty.
	EvaluateCheckIn(ctx context.Context, customPolicy string, in CheckInInput) (CheckInDecision, error)
}

// DefaultDecision is the default policy computed without OPA. It is also the fallback when evaluation fails.
func DefaultDecision(in CheckInInput) CheckInDecision {
	switch in.Classification {
	case geofence.OutsideBranch:
		return CheckInDecision{DenyReason: DenyOutsideBranch}
	case geofence.GPSBlocked:
		if !in.AllowWithoutGPS {
			return CheckInDecision{DenyReason: DenyGPSRequired}
		}
	}
	return CheckInDecision{Allow: true}
}
