package handler

import (
	"context"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	adminv1 "presence-engine/api/admin/v1"
	attendancev1 "presence-engine/api/attendance/v1"
	"presence-engine/internal/attendance/domain"
	auditrepo "presence-engine/internal/audit/repository"
	"presence-engine/internal/platform/rbac"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// History is the read side of the attendance store used by admins and reporting.
type History interface {
	GetSession(ctx context.Context, companyID, id string) (*domain.Session, error)
	ListSessions(ctx context.Context, companyID, employeeID string, limit, offset int32) ([]*domain.Session, error)
	ListClosedSessions(ctx context.Context, companyID string, from, to time.Time, limit, offset int32) ([]*domain.Session, error)
	ListPendingsBySession(ctx context.Context, companyID, sessionID string) ([]*domain.Pending, error)
}

// AdminServer implements AttendanceAdminService. Every method requires a company owner or
// admin and reads only that company's rows.
type AdminServer struct {
	adminv1.UnimplementedAttendanceAdminServiceServer
	actors  rbac.ActorResolver
	history History
	audit   auditrepo.Repository
}

// NewAdminServer returns an AdminServer. A nil history or audit repository makes the
// corresponding methods return Unimplemented.
func NewAdminServer(actors rbac.ActorResolver, history History, audit auditrepo.Repository) *AdminServer {
	return &AdminServer{actors: actors, history: history, audit: audit}
}

func pageOf(p adminv1.Page) (limit, offset int32) {
	limit = p.PageSize
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset = p.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func nextOffset(n int, limit, offset int32) int32 {
	if int32(n) < limit {
		return 0
	}
	return offset + limit
}

// ListSessions returns the company's sessions, newest check-in first.
func (s *AdminServer) ListSessions(ctx context.Context, req *adminv1.ListSessionsRequest) (*adminv1.ListSessionsResponse, error) {
	if s.history == nil || s.actors == nil {
		return nil, status.Error(codes.Unimplemented, "method ListSessions not implemented")
	}
	a, err := rbac.RequireCompanyAdmin(ctx, s.actors)
	if err != nil {
		return nil, err
	}
	limit, offset := pageOf(req.Page)
	list, err := s.history.ListSessions(ctx, a.CompanyID, strings.TrimSpace(req.EmployeeID), limit, offset)
	if err != nil {
		return nil, toStatus(err)
	}
	return &adminv1.ListSessionsResponse{Sessions: sessionsToProto(list), NextOffset: nextOffset(len(list), limit, offset)}, nil
}

// ListClosedSessions is the reporting reader: closed sessions whose check-out falls in [from, to).
func (s *AdminServer) ListClosedSessions(ctx context.Context, req *adminv1.ListClosedSessionsRequest) (*adminv1.ListSessionsResponse, error) {
	if s.history == nil || s.actors == nil {
		return nil, status.Error(codes.Unimplemented, "method ListClosedSessions not implemented")
	}
	a, err := rbac.RequireCompanyAdmin(ctx, s.actors)
	if err != nil {
		return nil, err
	}
	if req.From.IsZero() || req.To.IsZero() || !req.From.Before(req.To) {
		return nil, toStatus(domain.Invalid("from and to are required and from must be before to"))
	}
	limit, offset := pageOf(req.Page)
	list, err := s.history.ListClosedSessions(ctx, a.CompanyID, req.From.UTC(), req.To.UTC(), limit, offset)
	if err != nil {
		return nil, toStatus(err)
	}
	return &adminv1.ListSessionsResponse{Sessions: sessionsToProto(list), NextOffset: nextOffset(len(list), limit, offset)}, nil
}

// ListPendings returns every countdown of one session, oldest first.
func (s *AdminServer) ListPendings(ctx context.Context, req *adminv1.ListPendingsRequest) (*adminv1.ListPendingsResponse, error) {
	if s.history == nil || s.actors == nil {
		return nil, status.Error(codes.Unimplemented, "method ListPendings not implemented")
	}
	a, err := rbac.RequireCompanyAdmin(ctx, s.actors)
	if err != nil {
		return nil, err
	}
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		return nil, toStatus(domain.Invalid("session_id is required"))
	}
	sess, err := s.history.GetSession(ctx, a.CompanyID, sessionID)
	if err != nil {
		return nil, toStatus(err)
	}
	if sess == nil {
		return nil, toStatus(domain.NotFound("session"))
	}
	list, err := s.history.ListPendingsBySession(ctx, a.CompanyID, sess.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	out := make([]*adminv1.Pending, 0, len(list))
	for _, p := range list {
		out = append(out, pendingToProto(p))
	}
	return &adminv1.ListPendingsResponse{Pendings: out}, nil
}

// ListAuditLogs returns the company's audit trail, newest first.
func (s *AdminServer) ListAuditLogs(ctx context.Context, req *adminv1.ListAuditLogsRequest) (*adminv1.ListAuditLogsResponse, error) {
	if s.audit == nil || s.actors == nil {
		return nil, status.Error(codes.Unimplemented, "method ListAuditLogs not implemented")
	}
	a, err := rbac.RequireCompanyAdmin(ctx, s.actors)
	if err != nil {
		return nil, err
	}
	limit, offset := pageOf(req.Page)
	list, err := s.audit.ListByCompany(ctx, a.CompanyID, limit, offset)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	logs := make([]*adminv1.AuditLog, 0, len(list))
	for _, l := range list {
		logs = append(logs, &adminv1.AuditLog{
			ID:         l.ID,
			EmployeeID: l.EmployeeID,
			Action:     l.Action,
			Resource:   l.Resource,
			IP:         l.IP,
			Metadata:   l.Metadata,
			CreatedAt:  l.CreatedAt,
		})
	}
	return &adminv1.ListAuditLogsResponse{Logs: logs, NextOffset: nextOffset(len(list), limit, offset)}, nil
}

func sessionsToProto(list []*domain.Session) []*adminv1.Session {
	out := make([]*adminv1.Session, 0, len(list))
	for _, s := range list {
		out = append(out, sessionToProto(s))
	}
	return out
}

func sessionToProto(s *domain.Session) *adminv1.Session {
	out := &adminv1.Session{
		ID:             s.ID,
		EmployeeID:     s.EmployeeID,
		CompanyID:      s.CompanyID,
		CheckInAt:      s.CheckInAt,
		Mode:           string(s.Mode),
		CheckoutType:   string(s.CheckoutType),
		CheckoutReason: string(s.CheckoutReason),
		CheckIn:        locationToProto(&s.CheckIn),
	}
	if s.CheckOutAt != nil {
		out.CheckOutAt = utc(*s.CheckOutAt)
	}
	if s.CheckOut != nil {
		l := locationToProto(s.CheckOut)
		out.CheckOut = &l
	}
	return out
}

// locationToProto reports a zero location, stored for check-ins without a fix, as GPS not ok.
func locationToProto(l *domain.Location) attendancev1.Location {
	return attendancev1.Location{Lat: l.Lat, Lng: l.Lng, AccuracyM: l.AccuracyM, GPSOK: *l != domain.Location{}}
}

func pendingToProto(p *domain.Pending) *adminv1.Pending {
	out := &adminv1.Pending{
		ID:           p.ID,
		SessionID:    p.SessionID,
		EmployeeID:   p.EmployeeID,
		Reason:       string(p.Reason),
		CreatedAt:    p.CreatedAt,
		EndsAt:       p.EndsAt,
		Status:       string(p.Status),
		CancelReason: string(p.CancelReason),
	}
	if p.ResolvedAt != nil {
		out.ResolvedAt = utc(*p.ResolvedAt)
	}
	return out
}
