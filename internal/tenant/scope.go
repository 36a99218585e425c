// Package tenant resolves the acting employee's company from its own record and guards every
// read and write against cross-company references.
package tenant

import (
	"context"
	"fmt"
	"log"

	"presence-engine/internal/attendance/domain"
	"presence-engine/internal/server/interceptors"
)

// Actor is the resolved caller. CompanyID comes from the employee row, never from the client.
type Actor struct {
	EmployeeID string
	CompanyID  string
	BranchID   string
	Role       domain.Role
}

// IsAdmin reports whether the actor may read company-wide history.
func (a *Actor) IsAdmin() bool {
	return a != nil && (a.Role == domain.RoleOwner || a.Role == domain.RoleAdmin)
}

// EmployeeReader loads an employee by id without a company filter. Only Resolve uses it.
type EmployeeReader interface {
	GetEmployeeByID(ctx context.Context, id string) (*domain.Employee, error)
}

// Scope is the tenant guard invoked at the start of every service operation.
type Scope struct {
	employees EmployeeReader
}

// NewScope returns a Scope reading employees from r.
func NewScope(r EmployeeReader) *Scope {
	return &Scope{employees: r}
}

// Resolve loads the authenticated employee. A token whose company claim disagrees with the
// employee's record fails with TENANT_MISMATCH; inactive employees with EMPLOYEE_INACTIVE.
func (s *Scope) Resolve(ctx context.Context) (*Actor, error) {
	employeeID, ok := interceptors.GetEmployeeID(ctx)
	if !ok || employeeID == "" {
		return nil, domain.ErrUnauthenticated
	}
	emp, err := s.employees.GetEmployeeByID(ctx, employeeID)
	if err != nil {
		return nil, fmt.Errorf("resolve employee: %w", err)
	}
	if emp == nil {
		return nil, domain.ErrUnauthenticated
	}
	if claim, _ := interceptors.GetCompanyID(ctx); claim != "" && claim != emp.CompanyID {
		log.Printf("tenant: employee %s presented company claim %s, owner is %s", employeeID, claim, emp.CompanyID)
		return nil, domain.ErrTenantMismatch
	}
	if !emp.Active {
		return nil, domain.ErrEmployeeInactive
	}
	return &Actor{
		EmployeeID: emp.ID,
		CompanyID:  emp.CompanyID,
		BranchID:   emp.BranchID,
		Role:       emp.Role,
	}, nil
}

// RequireSameCompany fails with TENANT_MISMATCH unless every companyID equals the actor's.
// Callers pass the company_id of each referenced row before writing.
func RequireSameCompany(a *Actor, companyIDs ...string) error {
	if a == nil || a.CompanyID == "" {
		return domain.ErrUnauthenticated
	}
	for _, id := range companyIDs {
		if id != a.CompanyID {
			return domain.ErrTenantMismatch
		}
	}
	return nil
}

// RequireOwnSession returns NOT_FOUND unless s exists, belongs to the actor's company and to the
// actor. A session of another employee is indistinguishable from a missing one.
func RequireOwnSession(a *Actor, s *domain.Session) error {
	if s == nil || a == nil || s.CompanyID != a.CompanyID || s.EmployeeID != a.EmployeeID {
		return domain.NotFound("session")
	}
	return nil
}
