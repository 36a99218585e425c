package domain

import "time"

// AuditLog is one audited action inside a company. EmployeeID is empty for engine actions
// that no employee initiated.
type AuditLog struct {
	ID         string
	CompanyID  string
	EmployeeID string
	Action     string
	Resource   string
	IP         string
	Metadata   string
	CreatedAt  time.Time
}
