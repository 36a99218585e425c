package domain

import (
	"errors"
	"time"
)

// Role is an employee's role inside its company.
type Role string

const (
	RoleOwner    Role = "owner"
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "employee"
)

// Employee is owned by exactly one company and assigned to one branch.
type Employee struct {
	ID        string
	CompanyID string
	BranchID  string
	Name      string
	Role      Role
	Active    bool
	CreatedAt time.Time
}

// Validate validates the employee for persistence. Returns an error describing the first validation failure.
func (e *Employee) Validate() error {
	if e.ID == "" || e.CompanyID == "" {
		return errors.New("id and company_id are required")
	}
	if e.BranchID == "" {
		return errors.New("branch_id is required")
	}
	if e.Role == "" {
		e.Role = RoleEmployee
	}
	return nil
}

// Branch is the geofence source: a circle of RadiusM metres around (Lat, Lng).
type Branch struct {
	ID        string
	CompanyID string
	Name      string
	Lat       float64
	Lng       float64
	RadiusM   float64
	CreatedAt time.Time
}

// Validate validates the branch geometry.
func (b *Branch) Validate() error {
	if b.ID == "" || b.CompanyID == "" {
		return errors.New("id and company_id are required")
	}
	if b.Lat < -90 || b.Lat > 90 || b.Lng < -180 || b.Lng > 180 {
		return errors.New("branch coordinates out of range")
	}
	if b.RadiusM <= 0 {
		return errors.New("radius_m must be positive")
	}
	return nil
}

// FreeTaskWindow is a pre-authorized interval during which geofence validation is waived.
type FreeTaskWindow struct {
	ID         string
	EmployeeID string
	CompanyID  string
	StartAt    time.Time
	EndAt      time.Time
	Note       string
}

// Covers reports whether t falls inside [StartAt, EndAt).
func (w *FreeTaskWindow) Covers(t time.Time) bool {
	if w == nil {
		return false
	}
	return !t.Before(w.StartAt) && t.Before(w.EndAt)
}

// Company is the tenant boundary. Every other row carries a company_id.
type Company struct {
	ID        string
	Name      string
	CreatedAt time.Time
}
