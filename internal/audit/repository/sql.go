package repository

import (
	"context"
	"database/sql"

	"presence-engine/internal/audit/domain"
	"presence-engine/internal/db"
)

// SQLRepository stores audit logs in audit_logs on Postgres or SQLite.
type SQLRepository struct {
	db      *sql.DB
	dialect db.Dialect
}

// NewSQLRepository returns an audit log repository that uses the given db for persistence.
func NewSQLRepository(conn *sql.DB, d db.Dialect) *SQLRepository {
	return &SQLRepository{db: conn, dialect: d}
}

// Create inserts the entry.
func (r *SQLRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(
		`INSERT INTO audit_logs (id, company_id, employee_id, action, resource, ip, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		a.ID, a.CompanyID, nullString(a.EmployeeID), a.Action, a.Resource, a.IP, nullString(a.Metadata), r.dialect.Time(a.CreatedAt))
	return err
}

// ListByCompany returns audit logs for the company, newest first, paginated by limit and offset.
func (r *SQLRepository) ListByCompany(ctx context.Context, companyID string, limit, offset int32) ([]*domain.AuditLog, error) {
	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(
		`SELECT id, company_id, employee_id, action, resource, ip, metadata, created_at
		 FROM audit_logs WHERE company_id = ? ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`),
		companyID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.AuditLog
	for rows.Next() {
		var (
			a          domain.AuditLog
			employeeID sql.NullString
			metadata   sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.CompanyID, &employeeID, &a.Action, &a.Resource, &a.IP, &metadata, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.EmployeeID = employeeID.String
		a.Metadata = metadata.String
		a.CreatedAt = a.CreatedAt.UTC()
		out = append(out, &a)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
