package domain

import "time"

// Mode records whether the session was opened under a free-task window.
type Mode string

const (
	ModeNormal Mode = "NORMAL"
	ModeFree   Mode = "FREE"
)

// CheckoutType distinguishes employee-initiated from engine-initiated checkouts.
type CheckoutType string

const (
	CheckoutManual CheckoutType = "MANUAL"
	CheckoutAuto   CheckoutType = "AUTO"
)

// Location is a client-reported position attached to check-in and check-out.
type Location struct {
	Lat       float64
	Lng       float64
	AccuracyM float64
}

// Session is one attendance session. CheckOutAt is nil while the session is open.
type Session struct {
	ID             string
	EmployeeID     string
	CompanyID      string
	CheckInAt      time.Time
	CheckOutAt     *time.Time
	Mode           Mode
	CheckoutType   CheckoutType // empty while open
	CheckoutReason Reason       // NONE for manual checkouts
	CheckIn        Location
	CheckOut       *Location
}

// IsOpen reports whether the session has not been checked out yet.
func (s *Session) IsOpen() bool {
	return s != nil && s.CheckOutAt == nil
}

// Closure carries the fields written when a session is closed.
type Closure struct {
	At       time.Time
	Type     CheckoutType
	Reason   Reason
	Location *Location
}
