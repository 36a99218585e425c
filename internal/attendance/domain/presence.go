package domain

import "time"

// Reason is why a presence violation started. NONE when there is no violation.
type Reason string

const (
	ReasonNone          Reason = "NONE"
	ReasonGPSBlocked    Reason = "GPS_BLOCKED"
	ReasonOutsideBranch Reason = "OUTSIDE_BRANCH"
)

// PresenceState is the state of a session's presence tracker.
type PresenceState string

const (
	StateIdle      PresenceState = "IDLE"
	StateWarning   PresenceState = "WARNING"
	StateCountdown PresenceState = "COUNTDOWN"
	StateDone      PresenceState = "DONE"
	// StateCancelled is transient: a cancelled countdown is persisted as IDLE.
	StateCancelled PresenceState = "CANCELLED"
	// StateCheckedOut is reported for sessions that are already closed.
	StateCheckedOut PresenceState = "CHECKED_OUT"
)

// Action tells the client what the last operation did to the grace timer.
type Action string

const (
	ActionNone                 Action = "NONE"
	ActionPendingCreated       Action = "PENDING_CREATED"
	ActionPendingActive        Action = "PENDING_ACTIVE"
	ActionPendingCancelled     Action = "PENDING_CANCELLED"
	ActionAutoCheckoutExecuted Action = "AUTO_CHECKOUT_EXECUTED"
)

// PendingStatus is the lifecycle of a grace timer row. Terminal states are never reactivated.
type PendingStatus string

const (
	PendingActive    PendingStatus = "PENDING"
	PendingCancelled PendingStatus = "CANCELLED"
	PendingDone      PendingStatus = "DONE"
)

// CancelReason explains why a pending row was cancelled.
type CancelReason string

const (
	CancelRecovered      CancelReason = "RECOVERED"
	CancelManualCheckout CancelReason = "MANUAL_CHECKOUT"
)

// Pending is the grace timer opened when a session enters COUNTDOWN.
// EndsAt is fixed at creation and never extended.
type Pending struct {
	ID           string
	SessionID    string
	EmployeeID   string
	CompanyID    string
	Reason       Reason
	CreatedAt    time.Time
	EndsAt       time.Time
	Status       PendingStatus
	CancelReason CancelReason
	ResolvedAt   *time.Time
}

// Expired reports whether the deadline has passed at now.
func (p *Pending) Expired(now time.Time) bool {
	return p != nil && p.Status == PendingActive && !now.Before(p.EndsAt)
}

// Tracker is the persisted presence state machine for one session.
type Tracker struct {
	SessionID     string
	CompanyID     string
	EmployeeID    string
	State         PresenceState
	Reason        Reason
	OutsideStreak int
	RecoverStreak int
	LastSampledAt *time.Time
	UpdatedAt     time.Time
}

// NewTracker returns an IDLE tracker for a freshly opened session.
func NewTracker(s *Session, at time.Time) *Tracker {
	return &Tracker{
		SessionID:  s.ID,
		CompanyID:  s.CompanyID,
		EmployeeID: s.EmployeeID,
		State:      StateIdle,
		Reason:     ReasonNone,
		UpdatedAt:  at,
	}
}
