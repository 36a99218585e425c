package handler

import (
	"context"
	"errors"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	adminv1 "presence-engine/api/admin/v1"
	"presence-engine/internal/attendance/domain"
	auditdomain "presence-engine/internal/audit/domain"
	"presence-engine/internal/server/interceptors"
	"presence-engine/internal/tenant"
)

type mockEmployees map[string]*domain.Employee

func (m mockEmployees) GetEmployeeByID(ctx context.Context, id string) (*domain.Employee, error) {
	return m[id], nil
}

// mockHistory serves a fixed set of rows and records the paging it was asked for.
type mockHistory struct {
	sessions []*domain.Session
	pendings []*domain.Pending
	err      error

	company       string
	employee      string
	limit, offset int32
	from, to      time.Time
}

func (m *mockHistory) GetSession(ctx context.Context, companyID, id string) (*domain.Session, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, s := range m.sessions {
		if s.ID == id && s.CompanyID == companyID {
			return s, nil
		}
	}
	return nil, nil
}

func (m *mockHistory) ListSessions(ctx context.Context, companyID, employeeID string, limit, offset int32) ([]*domain.Session, error) {
	m.company, m.employee, m.limit, m.offset = companyID, employeeID, limit, offset
	return m.sessions, m.err
}

func (m *mockHistory) ListClosedSessions(ctx context.Context, companyID string, from, to time.Time, limit, offset int32) ([]*domain.Session, error) {
	m.company, m.from, m.to, m.limit, m.offset = companyID, from, to, limit, offset
	return m.sessions, m.err
}

func (m *mockHistory) ListPendingsBySession(ctx context.Context, companyID, sessionID string) ([]*domain.Pending, error) {
	m.company = companyID
	return m.pendings, m.err
}

type mockAuditRepo struct {
	logs    []*auditdomain.AuditLog
	company string
	err     error
}

func (m *mockAuditRepo) Create(ctx context.Context, a *auditdomain.AuditLog) error { return nil }

func (m *mockAuditRepo) ListByCompany(ctx context.Context, companyID string, limit, offset int32) ([]*auditdomain.AuditLog, error) {
	m.company = companyID
	return m.logs, m.err
}

var t0 = time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

func adminScope() *tenant.Scope {
	return tenant.NewScope(mockEmployees{
		"e-admin": {ID: "e-admin", CompanyID: "c-1", BranchID: "b-1", Role: domain.RoleAdmin, Active: true},
		"e-staff": {ID: "e-staff", CompanyID: "c-1", BranchID: "b-1", Role: domain.RoleEmployee, Active: true},
	})
}

func asEmployee(id string) context.Context {
	return interceptors.WithIdentity(context.Background(), id, "c-1", "jti-"+id)
}

func closedSession(id string) *domain.Session {
	out := t0.Add(8 * time.Hour)
	return &domain.Session{
		ID: id, EmployeeID: "e-staff", CompanyID: "c-1", CheckInAt: t0, CheckOutAt: &out,
		Mode: domain.ModeNormal, CheckoutType: domain.CheckoutAuto, CheckoutReason: domain.ReasonOutsideBranch,
		CheckIn:  domain.Location{Lat: -6.2, Lng: 106.8, AccuracyM: 10},
		CheckOut: &domain.Location{Lat: -6.21, Lng: 106.8, AccuracyM: 15},
	}
}

func TestAdminServer_Unimplemented(t *testing.T) {
	srv := NewAdminServer(nil, nil, nil)
	ctx := asEmployee("e-admin")
	_, err := srv.ListSessions(ctx, &adminv1.ListSessionsRequest{})
	if status.Code(err) != codes.Unimplemented {
		t.Errorf("ListSessions: status code = %v, want %v", status.Code(err), codes.Unimplemented)
	}
	_, err = NewAdminServer(adminScope(), &mockHistory{}, nil).ListAuditLogs(ctx, &adminv1.ListAuditLogsRequest{})
	if status.Code(err) != codes.Unimplemented {
		t.Errorf("ListAuditLogs: status code = %v, want %v", status.Code(err), codes.Unimplemented)
	}
}

func TestAdminServer_RequiresAdmin(t *testing.T) {
	srv := NewAdminServer(adminScope(), &mockHistory{}, &mockAuditRepo{})
	_, err := srv.ListSessions(asEmployee("e-staff"), &adminv1.ListSessionsRequest{})
	if status.Code(err) != codes.PermissionDenied {
		t.Errorf("employee: status code = %v, want %v", status.Code(err), codes.PermissionDenied)
	}
	_, err = srv.ListAuditLogs(context.Background(), &adminv1.ListAuditLogsRequest{})
	if status.Code(err) != codes.Unauthenticated {
		t.Errorf("anonymous: status code = %v, want %v", status.Code(err), codes.Unauthenticated)
	}
	forged := interceptors.WithIdentity(context.Background(), "e-admin", "c-2", "j")
	_, err = srv.ListPendings(forged, &adminv1.ListPendingsRequest{SessionID: "s-1"})
	if status.Code(err) != codes.PermissionDenied {
		t.Errorf("forged company: status code = %v, want %v", status.Code(err), codes.PermissionDenied)
	}
}

func TestAdminServer_ListSessions(t *testing.T) {
	h := &mockHistory{sessions: []*domain.Session{closedSession("s-1"), closedSession("s-2")}}
	srv := NewAdminServer(adminScope(), h, nil)

	resp, err := srv.ListSessions(asEmployee("e-admin"), &adminv1.ListSessionsRequest{EmployeeID: " e-staff ", Page: adminv1.Page{PageSize: 2, Offset: 4}})
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if h.company != "c-1" || h.employee != "e-staff" {
		t.Errorf("queried company=%q employee=%q", h.company, h.employee)
	}
	if len(resp.Sessions) != 2 || resp.NextOffset != 6 {
		t.Errorf("sessions = %d next_offset = %d, want 2 and 6", len(resp.Sessions), resp.NextOffset)
	}
	s := resp.Sessions[0]
	if s.CheckoutType != "AUTO" || s.CheckoutReason != "OUTSIDE_BRANCH" || s.CheckOutAt == nil {
		t.Errorf("session = %+v", s)
	}
	if !s.CheckIn.GPSOK || s.CheckOut == nil || s.CheckOut.AccuracyM != 15 {
		t.Errorf("locations = %+v / %+v", s.CheckIn, s.CheckOut)
	}
}

func TestAdminServer_PageDefaults(t *testing.T) {
	h := &mockHistory{}
	srv := NewAdminServer(adminScope(), h, nil)
	resp, err := srv.ListSessions(asEmployee("e-admin"), &adminv1.ListSessionsRequest{Page: adminv1.Page{Offset: -3}})
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if h.limit != defaultPageSize || h.offset != 0 {
		t.Errorf("limit=%d offset=%d, want %d and 0", h.limit, h.offset, defaultPageSize)
	}
	if resp.NextOffset != 0 {
		t.Errorf("next_offset = %d, want 0", resp.NextOffset)
	}

	if _, err := srv.ListSessions(asEmployee("e-admin"), &adminv1.ListSessionsRequest{Page: adminv1.Page{PageSize: 10000}}); err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if h.limit != maxPageSize {
		t.Errorf("limit = %d, want %d", h.limit, maxPageSize)
	}
}

func TestAdminServer_ListClosedSessions(t *testing.T) {
	h := &mockHistory{sessions: []*domain.Session{closedSession("s-1")}}
	srv := NewAdminServer(adminScope(), h, nil)
	ctx := asEmployee("e-admin")

	wib := time.FixedZone("WIB", 7*3600)
	from := time.Date(2025, 6, 2, 0, 0, 0, 0, wib)
	resp, err := srv.ListClosedSessions(ctx, &adminv1.ListClosedSessionsRequest{From: from, To: from.Add(24 * time.Hour)})
	if err != nil {
		t.Fatalf("ListClosedSessions: %v", err)
	}
	if len(resp.Sessions) != 1 {
		t.Errorf("sessions = %d, want 1", len(resp.Sessions))
	}
	if !h.from.Equal(from) || h.from.Location() != time.UTC {
		t.Errorf("from = %v, want %v in UTC", h.from, from)
	}

	for name, req := range map[string]*adminv1.ListClosedSessionsRequest{
		"missing": {},
		"reversed": {From: t0, To: t0.Add(-time.Hour)},
		"empty":    {From: t0, To: t0},
	} {
		_, err := srv.ListClosedSessions(ctx, req)
		if status.Code(err) != codes.InvalidArgument {
			t.Errorf("%s: status code = %v, want %v", name, status.Code(err), codes.InvalidArgument)
		}
	}
}

func TestAdminServer_ListPendings(t *testing.T) {
	resolved := t0.Add(7 * time.Minute)
	h := &mockHistory{
		sessions: []*domain.Session{closedSession("s-1")},
		pendings: []*domain.Pending{{
			ID: "p-1", SessionID: "s-1", EmployeeID: "e-staff", CompanyID: "c-1", Reason: domain.ReasonGPSBlocked,
			CreatedAt: t0.Add(2 * time.Minute), EndsAt: t0.Add(7 * time.Minute), Status: domain.PendingDone, ResolvedAt: &resolved,
		}},
	}
	srv := NewAdminServer(adminScope(), h, nil)
	ctx := asEmployee("e-admin")

	resp, err := srv.ListPendings(ctx, &adminv1.ListPendingsRequest{SessionID: "s-1"})
	if err != nil {
		t.Fatalf("ListPendings: %v", err)
	}
	if len(resp.Pendings) != 1 {
		t.Fatalf("pendings = %d, want 1", len(resp.Pendings))
	}
	p := resp.Pendings[0]
	if p.Status != "DONE" || p.Reason != "GPS_BLOCKED" || p.ResolvedAt == nil || !p.ResolvedAt.Equal(resolved) {
		t.Errorf("pending = %+v", p)
	}

	_, err = srv.ListPendings(ctx, &adminv1.ListPendingsRequest{SessionID: "  "})
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("blank session: status code = %v, want %v", status.Code(err), codes.InvalidArgument)
	}
	_, err = srv.ListPendings(ctx, &adminv1.ListPendingsRequest{SessionID: "s-404"})
	if status.Code(err) != codes.NotFound {
		t.Errorf("unknown session: status code = %v, want %v", status.Code(err), codes.NotFound)
	}
}

func TestAdminServer_StorageErrorIsInternal(t *testing.T) {
	srv := NewAdminServer(adminScope(), &mockHistory{err: errors.New("disk I/O error")}, nil)
	_, err := srv.ListSessions(asEmployee("e-admin"), &adminv1.ListSessionsRequest{})
	st := status.Convert(err)
	if st.Code() != codes.Internal || st.Message() != "internal error" {
		t.Errorf("status = %v %q, want Internal %q", st.Code(), st.Message(), "internal error")
	}
}

func TestAdminServer_ListAuditLogs(t *testing.T) {
	repo := &mockAuditRepo{logs: []*auditdomain.AuditLog{
		{ID: "a-2", CompanyID: "c-1", Action: "auto_checkout", Resource: "session", Metadata: `{"session_id":"s-1"}`, CreatedAt: t0.Add(time.Hour)},
		{ID: "a-1", CompanyID: "c-1", EmployeeID: "e-staff", Action: "check_in", Resource: "session", IP: "10.0.0.1", CreatedAt: t0},
	}}
	srv := NewAdminServer(adminScope(), &mockHistory{}, repo)
	resp, err := srv.ListAuditLogs(asEmployee("e-admin"), &adminv1.ListAuditLogsRequest{Page: adminv1.Page{PageSize: 2}})
	if err != nil {
		t.Fatalf("ListAuditLogs: %v", err)
	}
	if repo.company != "c-1" {
		t.Errorf("company = %q, want c-1", repo.company)
	}
	if len(resp.Logs) != 2 || resp.Logs[0].Action != "auto_checkout" || resp.Logs[1].IP != "10.0.0.1" {
		t.Errorf("logs = %+v", resp.Logs)
	}
	if resp.NextOffset != 2 {
		t.Errorf("next_offset = %d, want 2", resp.NextOffset)
	}
}
