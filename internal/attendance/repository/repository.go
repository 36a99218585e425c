package repository

import (
	"context"
	"time"

	"presence-engine/internal/attendance/domain"
	"presence-engine/internal/db"
)

// Queries is every read and write of the attendance tables. Lookups that find nothing return (nil, nil).
// Every method except ListDuePendings takes the company explicitly; a row owned by another company is
// indistinguishable from a missing one.
type Queries interface {
	CreateCompany(ctx context.Context, c *domain.Company) error
	GetCompany(ctx context.Context, id string) (*domain.Company, error)

	// GetEmployeeByID is only used to resolve an authenticated principal into its company.
	GetEmployeeByID(ctx context.Context, id string) (*domain.Employee, error)
	GetEmployee(ctx context.Context, companyID, id string) (*domain.Employee, error)
	CreateEmployee(ctx context.Context, e *domain.Employee) error
	GetBranch(ctx context.Context, companyID, id string) (*domain.Branch, error)
	CreateBranch(ctx context.Context, b *domain.Branch) error
	ActiveFreeTask(ctx context.Context, companyID, employeeID string, at time.Time) (*domain.FreeTaskWindow, error)
	CreateFreeTask(ctx context.Context, w *domain.FreeTaskWindow) error

	GetSession(ctx context.Context, companyID, id string) (*domain.Session, error)
	GetOpenSession(ctx context.Context, companyID, employeeID string) (*domain.Session, error)
	// CreateSession returns domain.ErrAlreadyCheckedIn when the employee already has an open session.
	CreateSession(ctx context.Context, s *domain.Session) error
	// CloseSession closes an open session; it reports false when the session was already closed.
	CloseSession(ctx context.Context, companyID, id string, c domain.Closure) (bool, error)
	ListSessions(ctx context.Context, companyID, employeeID string, limit, offset int32) ([]*domain.Session, error)
	ListClosedSessions(ctx context.Context, companyID string, from, to time.Time, limit, offset int32) ([]*domain.Session, error)

	GetTracker(ctx context.Context, companyID, sessionID string) (*domain.Tracker, error)
	SaveTracker(ctx context.Context, t *domain.Tracker) error

	GetActivePending(ctx context.Context, companyID, sessionID string) (*domain.Pending, error)
	// CreatePending returns domain.ErrConflict when the session already has an active pending.
	CreatePending(ctx context.Context, p *domain.Pending) error
	// ResolvePending moves an active pending to a terminal status; it reports false when it was not active.
	ResolvePending(ctx context.Context, companyID, id string, status domain.PendingStatus, cancel domain.CancelReason, at time.Time) (bool, error)
	ListPendingsBySession(ctx context.Context, companyID, sessionID string) ([]*domain.Pending, error)
	// ListDuePendings returns active pendings of every company whose deadline is at or before now.
	ListDuePendings(ctx context.Context, now time.Time, limit int) ([]*domain.Pending, error)
}

// Store is Queries plus per-employee serialization.
type Store interface {
	Queries
	// WithinEmployee runs fn in a transaction that holds the employee's lock. fn must only use q:
	// on SQLite the store has a single connection and any other query would block until fn returns.
	// It returns domain.NotFound when the employee does not belong to companyID.
	WithinEmployee(ctx context.Context, companyID, employeeID string, fn func(q Queries) error) error
	Dialect() db.Dialect
	Ping(ctx context.Context) error
	Close() error
}
