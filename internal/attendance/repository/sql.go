package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"presence-engine/internal/attendance/domain"
	"presence-engine/internal/db"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

// sqlQueries implements Queries over a *sql.DB or *sql.Tx for either dialect.
type sqlQueries struct {
	q querier
	d db.Dialect
}

func (r *sqlQueries) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return r.q.ExecContext(ctx, r.d.Rebind(query), args...)
}

func (r *sqlQueries) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return r.q.QueryContext(ctx, r.d.Rebind(query), args...)
}

func (r *sqlQueries) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return r.q.QueryRowContext(ctx, r.d.Rebind(query), args...)
}

// constraint maps storage constraint violations to domain errors.
func constraint(err error, unique *domain.Error) error {
	switch {
	case err == nil:
		return nil
	case db.IsUniqueViolation(err):
		return unique
	case db.IsForeignKeyViolation(err):
		return domain.ErrTenantMismatch
	default:
		return err
	}
}

func (r *sqlQueries) CreateCompany(ctx context.Context, c *domain.Company) error {
	_, err := r.exec(ctx, `INSERT INTO companies (id, name, created_at) VALUES (?, ?, ?)`,
		c.ID, c.Name, r.d.Time(c.CreatedAt))
	return constraint(err, domain.ErrConflict)
}

func (r *sqlQueries) GetCompany(ctx context.Context, id string) (*domain.Company, error) {
	var c domain.Company
	err := r.queryRow(ctx, `SELECT id, name, created_at FROM companies WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get company: %w", err)
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}

const employeeColumns = `id, company_id, branch_id, name, role, active, created_at`

func scanEmployee(s scanner) (*domain.Employee, error) {
	var e domain.Employee
	var role string
	if err := s.Scan(&e.ID, &e.CompanyID, &e.BranchID, &e.Name, &role, &e.Active, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.Role = domain.Role(role)
	e.CreatedAt = e.CreatedAt.UTC()
	return &e, nil
}

func (r *sqlQueries) GetEmployeeByID(ctx context.Context, id string) (*domain.Employee, error) {
	e, err := scanEmployee(r.queryRow(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get employee: %w", err)
	}
	return e, nil
}

func (r *sqlQueries) GetEmployee(ctx context.Context, companyID, id string) (*domain.Employee, error) {
	e, err := scanEmployee(r.queryRow(ctx,
		`SELECT `+employeeColumns+` FROM employees WHERE id = ? AND company_id = ?`, id, companyID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get employee: %w", err)
	}
	return e, nil
}

func (r *sqlQueries) CreateEmployee(ctx context.Context, e *domain.Employee) error {
	_, err := r.exec(ctx, `INSERT INTO employees (`+employeeColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.CompanyID, e.BranchID, e.Name, string(e.Role), e.Active, r.d.Time(e.CreatedAt))
	return constraint(err, domain.ErrConflict)
}

func (r *sqlQueries) GetBranch(ctx context.Context, companyID, id string) (*domain.Branch, error) {
	var b domain.Branch
	err := r.queryRow(ctx,
		`SELECT id, company_id, name, lat, lng, radius_m, created_at FROM branches WHERE id = ? AND company_id = ?`,
		id, companyID).Scan(&b.ID, &b.CompanyID, &b.Name, &b.Lat, &b.Lng, &b.RadiusM, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get branch: %w", err)
	}
	b.CreatedAt = b.CreatedAt.UTC()
	return &b, nil
}

func (r *sqlQueries) CreateBranch(ctx context.Context, b *domain.Branch) error {
	_, err := r.exec(ctx,
		`INSERT INTO branches (id, company_id, name, lat, lng, radius_m, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.CompanyID, b.Name, b.Lat, b.Lng, b.RadiusM, r.d.Time(b.CreatedAt))
	return constraint(err, domain.ErrConflict)
}

func (r *sqlQueries) ActiveFreeTask(ctx context.Context, companyID, employeeID string, at time.Time) (*domain.FreeTaskWindow, error) {
	var w domain.FreeTaskWindow
	err := r.queryRow(ctx,
		`SELECT id, employee_id, company_id, start_at, end_at, note FROM free_task_windows
		 WHERE employee_id = ? AND company_id = ? AND start_at <= ? AND end_at > ?
		 ORDER BY start_at DESC LIMIT 1`,
		employeeID, companyID, r.d.Time(at), r.d.Time(at)).
		Scan(&w.ID, &w.EmployeeID, &w.CompanyID, &w.StartAt, &w.EndAt, &w.Note)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("active free task: %w", err)
	}
	w.StartAt, w.EndAt = w.StartAt.UTC(), w.EndAt.UTC()
	return &w, nil
}

func (r *sqlQueries) CreateFreeTask(ctx context.Context, w *domain.FreeTaskWindow) error {
	_, err := r.exec(ctx,
		`INSERT INTO free_task_windows (id, employee_id, company_id, start_at, end_at, note) VALUES (?, ?, ?, ?, ?, ?)`,
		w.ID, w.EmployeeID, w.CompanyID, r.d.Time(w.StartAt), r.d.Time(w.EndAt), w.Note)
	return constraint(err, domain.ErrConflict)
}

const sessionColumns = `id, employee_id, company_id, check_in_at, check_out_at, mode, checkout_type, checkout_reason,
	check_in_lat, check_in_lng, check_in_accuracy_m, check_out_lat, check_out_lng, check_out_accuracy_m`

func scanSession(s scanner) (*domain.Session, error) {
	var (
		out                 domain.Session
		checkOutAt          sql.NullTime
		mode, reason        string
		checkoutType        sql.NullString
		outLat, outLng, acc sql.NullFloat64
	)
	err := s.Scan(&out.ID, &out.EmployeeID, &out.CompanyID, &out.CheckInAt, &checkOutAt, &mode, &checkoutType, &reason,
		&out.CheckIn.Lat, &out.CheckIn.Lng, &out.CheckIn.AccuracyM, &outLat, &outLng, &acc)
	if err != nil {
		return nil, err
	}
	out.CheckInAt = out.CheckInAt.UTC()
	out.Mode = domain.Mode(mode)
	out.CheckoutReason = domain.Reason(reason)
	if checkOutAt.Valid {
		t := checkOutAt.Time.UTC()
		out.CheckOutAt = &t
	}
	if checkoutType.Valid {
		out.CheckoutType = domain.CheckoutType(checkoutType.String)
	}
	if outLat.Valid && outLng.Valid {
		out.CheckOut = &domain.Location{Lat: outLat.Float64, Lng: outLng.Float64, AccuracyM: acc.Float64}
	}
	return &out, nil
}

func scanSessions(rows *sql.Rows) ([]*domain.Session, error) {
	defer rows.Close()
	var out []*domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *sqlQueries) GetSession(ctx context.Context, companyID, id string) (*domain.Session, error) {
	s, err := scanSession(r.queryRow(ctx,
		`SELECT `+sessionColumns+` FROM attendance_sessions WHERE id = ? AND company_id = ?`, id, companyID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return s, nil
}

func (r *sqlQueries) GetOpenSession(ctx context.Context, companyID, employeeID string) (*domain.Session, error) {
	s, err := scanSession(r.queryRow(ctx,
		`SELECT `+sessionColumns+` FROM attendance_sessions
		 WHERE employee_id = ? AND company_id = ? AND check_out_at IS NULL
		 ORDER BY check_in_at DESC LIMIT 1`, employeeID, companyID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get open session: %w", err)
	}
	return s, nil
}

func (r *sqlQueries) CreateSession(ctx context.Context, s *domain.Session) error {
	_, err := r.exec(ctx,
		`INSERT INTO attendance_sessions (id, employee_id, company_id, check_in_at, mode, checkout_reason,
		 check_in_lat, check_in_lng, check_in_accuracy_m) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.EmployeeID, s.CompanyID, r.d.Time(s.CheckInAt), string(s.Mode), string(domain.ReasonNone),
		s.CheckIn.Lat, s.CheckIn.Lng, s.CheckIn.AccuracyM)
	return constraint(err, domain.ErrAlreadyCheckedIn)
}

func (r *sqlQueries) CloseSession(ctx context.Context, companyID, id string, c domain.Closure) (bool, error) {
	var lat, lng, acc any
	if c.Location != nil {
		lat, lng, acc = c.Location.Lat, c.Location.Lng, c.Location.AccuracyM
	}
	reason := c.Reason
	if reason == "" {
		reason = domain.ReasonNone
	}
	res, err := r.exec(ctx,
		`UPDATE attendance_sessions SET check_out_at = ?, checkout_type = ?, checkout_reason = ?,
		 check_out_lat = ?, check_out_lng = ?, check_out_accuracy_m = ?
		 WHERE id = ? AND company_id = ? AND check_out_at IS NULL`,
		r.d.Time(c.At), string(c.Type), string(reason), lat, lng, acc, id, companyID)
	if err != nil {
		return false, fmt.Errorf("close session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("close session: %w", err)
	}
	return n == 1, nil
}

func (r *sqlQueries) ListSessions(ctx context.Context, companyID, employeeID string, limit, offset int32) ([]*domain.Session, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if employeeID == "" {
		rows, err = r.query(ctx,
			`SELECT `+sessionColumns+` FROM attendance_sessions WHERE company_id = ?
			 ORDER BY check_in_at DESC, id LIMIT ? OFFSET ?`, companyID, limit, offset)
	} else {
		rows, err = r.query(ctx,
			`SELECT `+sessionColumns+` FROM attendance_sessions WHERE company_id = ? AND employee_id = ?
			 ORDER BY check_in_at DESC, id LIMIT ? OFFSET ?`, companyID, employeeID, limit, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return scanSessions(rows)
}

func (r *sqlQueries) ListClosedSessions(ctx context.Context, companyID string, from, to time.Time, limit, offset int32) ([]*domain.Session, error) {
	rows, err := r.query(ctx,
		`SELECT `+sessionColumns+` FROM attendance_sessions
		 WHERE company_id = ? AND check_out_at IS NOT NULL AND check_out_at >= ? AND check_out_at < ?
		 ORDER BY check_out_at, id LIMIT ? OFFSET ?`,
		companyID, r.d.Time(from), r.d.Time(to), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list closed sessions: %w", err)
	}
	return scanSessions(rows)
}

func (r *sqlQueries) GetTracker(ctx context.Context, companyID, sessionID string) (*domain.Tracker, error) {
	var (
		t             domain.Tracker
		state, reason string
		last          sql.NullTime
	)
	err := r.queryRow(ctx,
		`SELECT session_id, company_id, employee_id, state, reason, outside_streak, recover_streak, last_sampled_at, updated_at
		 FROM presence_trackers WHERE session_id = ? AND company_id = ?`, sessionID, companyID).
		Scan(&t.SessionID, &t.CompanyID, &t.EmployeeID, &state, &reason, &t.OutsideStreak, &t.RecoverStreak, &last, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get tracker: %w", err)
	}
	t.State = domain.PresenceState(state)
	t.Reason = domain.Reason(reason)
	t.UpdatedAt = t.UpdatedAt.UTC()
	if last.Valid {
		ts := last.Time.UTC()
		t.LastSampledAt = &ts
	}
	return &t, nil
}

func (r *sqlQueries) SaveTracker(ctx context.Context, t *domain.Tracker) error {
	_, err := r.exec(ctx,
		`INSERT INTO presence_trackers (session_id, company_id, employee_id, state, reason, outside_streak, recover_streak, last_sampled_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (session_id) DO UPDATE SET state = excluded.state, reason = excluded.reason,
		 outside_streak = excluded.outside_streak, recover_streak = excluded.recover_streak,
		 last_sampled_at = excluded.last_sampled_at, updated_at = excluded.updated_at`,
		t.SessionID, t.CompanyID, t.EmployeeID, string(t.State), string(t.Reason), t.OutsideStreak, t.RecoverStreak,
		r.d.NullTime(t.LastSampledAt), r.d.Time(t.UpdatedAt))
	return constraint(err, domain.ErrConflict)
}

const pendingColumns = `id, session_id, employee_id, company_id, reason, created_at, ends_at, status, cancel_reason, resolved_at`

func scanPending(s scanner) (*domain.Pending, error) {
	var (
		p              domain.Pending
		reason, status string
		cancel         sql.NullString
		resolvedAt     sql.NullTime
	)
	if err := s.Scan(&p.ID, &p.SessionID, &p.EmployeeID, &p.CompanyID, &reason, &p.CreatedAt, &p.EndsAt, &status, &cancel, &resolvedAt); err != nil {
		return nil, err
	}
	p.Reason = domain.Reason(reason)
	p.Status = domain.PendingStatus(status)
	p.CreatedAt, p.EndsAt = p.CreatedAt.UTC(), p.EndsAt.UTC()
	if cancel.Valid {
		p.CancelReason = domain.CancelReason(cancel.String)
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time.UTC()
		p.ResolvedAt = &t
	}
	return &p, nil
}

func scanPendings(rows *sql.Rows) ([]*domain.Pending, error) {
	defer rows.Close()
	var out []*domain.Pending
	for rows.Next() {
		p, err := scanPending(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *sqlQueries) GetActivePending(ctx context.Context, companyID, sessionID string) (*domain.Pending, error) {
	p, err := scanPending(r.queryRow(ctx,
		`SELECT `+pendingColumns+` FROM presence_pendings
		 WHERE session_id = ? AND company_id = ? AND status = 'PENDING'
		 ORDER BY created_at DESC LIMIT 1`, sessionID, companyID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active pending: %w", err)
	}
	return p, nil
}

func (r *sqlQueries) CreatePending(ctx context.Context, p *domain.Pending) error {
	_, err := r.exec(ctx,
		`INSERT INTO presence_pendings (id, session_id, employee_id, company_id, reason, created_at, ends_at, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.SessionID, p.EmployeeID, p.CompanyID, string(p.Reason), r.d.Time(p.CreatedAt), r.d.Time(p.EndsAt), string(domain.PendingActive))
	return constraint(err, domain.ErrConflict)
}

func (r *sqlQueries) ResolvePending(ctx context.Context, companyID, id string, status domain.PendingStatus, cancel domain.CancelReason, at time.Time) (bool, error) {
	var cancelArg any
	if cancel != "" {
		cancelArg = string(cancel)
	}
	res, err := r.exec(ctx,
		`UPDATE presence_pendings SET status = ?, cancel_reason = ?, resolved_at = ?
		 WHERE id = ? AND company_id = ? AND status = 'PENDING'`,
		string(status), cancelArg, r.d.Time(at), id, companyID)
	if err != nil {
		return false, fmt.Errorf("resolve pending: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("resolve pending: %w", err)
	}
	return n == 1, nil
}

func (r *sqlQueries) ListPendingsBySession(ctx context.Context, companyID, sessionID string) ([]*domain.Pending, error) {
	rows, err := r.query(ctx,
		`SELECT `+pendingColumns+` FROM presence_pendings WHERE session_id = ? AND company_id = ?
		 ORDER BY created_at, id`, sessionID, companyID)
	if err != nil {
		return nil, fmt.Errorf("list pendings: %w", err)
	}
	return scanPendings(rows)
}

func (r *sqlQueries) ListDuePendings(ctx context.Context, now time.Time, limit int) ([]*domain.Pending, error) {
	rows, err := r.query(ctx,
		`SELECT `+pendingColumns+` FROM presence_pendings WHERE status = 'PENDING' AND ends_at <= ?
		 ORDER BY ends_at, id LIMIT ?`, r.d.Time(now), limit)
	if err != nil {
		return nil, fmt.Errorf("list due pendings: %w", err)
	}
	return scanPendings(rows)
}
