// Package adminv1 is the read-only attendance history API for company owners and admins, and
// the closed-session reader used by reporting and payroll.
package adminv1

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	attendancev1 "presence-engine/api/attendance/v1"
	"presence-engine/api/codec"
)

// Session is one attendance session. CheckOutAt and CheckOut are nil while it is open.
type Session struct {
	ID             string                 `json:"id"`
	EmployeeID     string                 `json:"employee_id"`
	CompanyID      string                 `json:"company_id"`
	CheckInAt      time.Time              `json:"check_in_at"`
	CheckOutAt     *time.Time             `json:"check_out_at,omitempty"`
	Mode           string                 `json:"mode"`
	CheckoutType   string                 `json:"checkout_type,omitempty"`
	CheckoutReason string                 `json:"checkout_reason"`
	CheckIn        attendancev1.Location  `json:"check_in"`
	CheckOut       *attendancev1.Location `json:"check_out,omitempty"`
}

// Pending is one grace countdown of a session.
type Pending struct {
	ID           string     `json:"id"`
	SessionID    string     `json:"session_id"`
	EmployeeID   string     `json:"employee_id"`
	Reason       string     `json:"reason"`
	CreatedAt    time.Time  `json:"created_at"`
	EndsAt       time.Time  `json:"ends_at"`
	Status       string     `json:"status"`
	CancelReason string     `json:"cancel_reason,omitempty"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty"`
}

type AuditLog struct {
	ID         string    `json:"id"`
	EmployeeID string    `json:"employee_id,omitempty"`
	Action     string    `json:"action"`
	Resource   string    `json:"resource"`
	IP         string    `json:"ip"`
	Metadata   string    `json:"metadata,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Page selects a window of a list. PageSize defaults to 50 and is capped at 500.
type Page struct {
	PageSize int32 `json:"page_size,omitempty"`
	Offset   int32 `json:"offset,omitempty"`
}

type ListSessionsRequest struct {
	// EmployeeID optionally restricts the list to one employee.
	EmployeeID string `json:"employee_id,omitempty"`
	Page       Page   `json:"page"`
}

type ListSessionsResponse struct {
	Sessions []*Session `json:"sessions"`
	// NextOffset is zero when there are no more rows.
	NextOffset int32 `json:"next_offset,omitempty"`
}

type ListClosedSessionsRequest struct {
	// From and To bound check_out_at as [From, To).
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
	Page Page      `json:"page"`
}

type ListPendingsRequest struct {
	SessionID string `json:"session_id"`
}

type ListPendingsResponse struct {
	Pendings []*Pending `json:"pendings"`
}

type ListAuditLogsRequest struct {
	Page Page `json:"page"`
}

type ListAuditLogsResponse struct {
	Logs       []*AuditLog `json:"logs"`
	NextOffset int32       `json:"next_offset,omitempty"`
}

const (
	AttendanceAdminService_ListSessions_FullMethodName       = "/presence.admin.v1.AttendanceAdminService/ListSessions"
	AttendanceAdminService_ListClosedSessions_FullMethodName = "/presence.admin.v1.AttendanceAdminService/ListClosedSessions"
	AttendanceAdminService_ListPendings_FullMethodName       = "/presence.admin.v1.AttendanceAdminService/ListPendings"
	AttendanceAdminService_ListAuditLogs_FullMethodName      = "/presence.admin.v1.AttendanceAdminService/ListAuditLogs"
)

// AttendanceAdminServiceServer is the server API for AttendanceAdminService.
type AttendanceAdminServiceServer interface {
	ListSessions(context.Context, *ListSessionsRequest) (*ListSessionsResponse, error)
	ListClosedSessions(context.Context, *ListClosedSessionsRequest) (*ListSessionsResponse, error)
	ListPendings(context.Context, *ListPendingsRequest) (*ListPendingsResponse, error)
	ListAuditLogs(context.Context, *ListAuditLogsRequest) (*ListAuditLogsResponse, error)
}

// UnimplementedAttendanceAdminServiceServer returns Unimplemented for every method.
type UnimplementedAttendanceAdminServiceServer struct{}

func (UnimplementedAttendanceAdminServiceServer) ListSessions(context.Context, *ListSessionsRequest) (*ListSessionsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListSessions not implemented")
}

func (UnimplementedAttendanceAdminServiceServer) ListClosedSessions(context.Context, *ListClosedSessionsRequest) (*ListSessionsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListClosedSessions not implemented")
}

func (UnimplementedAttendanceAdminServiceServer) ListPendings(context.Context, *ListPendingsRequest) (*ListPendingsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListPendings not implemented")
}

func (UnimplementedAttendanceAdminServiceServer) ListAuditLogs(context.Context, *ListAuditLogsRequest) (*ListAuditLogsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListAuditLogs not implemented")
}

// RegisterAttendanceAdminServiceServer registers srv on s.
func RegisterAttendanceAdminServiceServer(s grpc.ServiceRegistrar, srv AttendanceAdminServiceServer) {
	s.RegisterService(&AttendanceAdminService_ServiceDesc, srv)
}

func unary[Req any](fullMethod string, fn func(AttendanceAdminServiceServer, context.Context, *Req) (any, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return fn(srv.(AttendanceAdminServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return fn(srv.(AttendanceAdminServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// AttendanceAdminService_ServiceDesc is the grpc.ServiceDesc for AttendanceAdminService.
var AttendanceAdminService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "presence.admin.v1.AttendanceAdminService",
	HandlerType: (*AttendanceAdminServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ListSessions",
			Handler: unary(AttendanceAdminService_ListSessions_FullMethodName, func(s AttendanceAdminServiceServer, ctx context.Context, in *ListSessionsRequest) (any, error) {
				return s.ListSessions(ctx, in)
			}),
		},
		{
			MethodName: "ListClosedSessions",
			Handler: unary(AttendanceAdminService_ListClosedSessions_FullMethodName, func(s AttendanceAdminServiceServer, ctx context.Context, in *ListClosedSessionsRequest) (any, error) {
				return s.ListClosedSessions(ctx, in)
			}),
		},
		{
			MethodName: "ListPendings",
			Handler: unary(AttendanceAdminService_ListPendings_FullMethodName, func(s AttendanceAdminServiceServer, ctx context.Context, in *ListPendingsRequest) (any, error) {
				return s.ListPendings(ctx, in)
			}),
		},
		{
			MethodName: "ListAuditLogs",
			Handler: unary(AttendanceAdminService_ListAuditLogs_FullMethodName, func(s AttendanceAdminServiceServer, ctx context.Context, in *ListAuditLogsRequest) (any, error) {
				return s.ListAuditLogs(ctx, in)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "presence/admin/v1",
}

// AttendanceAdminServiceClient is the client API for AttendanceAdminService. Calls use the JSON codec.
type AttendanceAdminServiceClient interface {
	ListSessions(ctx context.Context, in *ListSessionsRequest, opts ...grpc.CallOption) (*ListSessionsResponse, error)
	ListClosedSessions(ctx context.Context, in *ListClosedSessionsRequest, opts ...grpc.CallOption) (*ListSessionsResponse, error)
	ListPendings(ctx context.Context, in *ListPendingsRequest, opts ...grpc.CallOption) (*ListPendingsResponse, error)
	ListAuditLogs(ctx context.Context, in *ListAuditLogsRequest, opts ...grpc.CallOption) (*ListAuditLogsResponse, error)
}

type attendanceAdminServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewAttendanceAdminServiceClient(cc grpc.ClientConnInterface) AttendanceAdminServiceClient {
	return &attendanceAdminServiceClient{cc: cc}
}

func (c *attendanceAdminServiceClient) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	return c.cc.Invoke(ctx, method, in, out, append([]grpc.CallOption{codec.CallOption()}, opts...)...)
}

func (c *attendanceAdminServiceClient) ListSessions(ctx context.Context, in *ListSessionsRequest, opts ...grpc.CallOption) (*ListSessionsResponse, error) {
	out := new(ListSessionsResponse)
	if err := c.invoke(ctx, AttendanceAdminService_ListSessions_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *attendanceAdminServiceClient) ListClosedSessions(ctx context.Context, in *ListClosedSessionsRequest, opts ...grpc.CallOption) (*ListSessionsResponse, error) {
	out := new(ListSessionsResponse)
	if err := c.invoke(ctx, AttendanceAdminService_ListClosedSessions_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *attendanceAdminServiceClient) ListPendings(ctx context.Context, in *ListPendingsRequest, opts ...grpc.CallOption) (*ListPendingsResponse, error) {
	out := new(ListPendingsResponse)
	if err := c.invoke(ctx, AttendanceAdminService_ListPendings_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *attendanceAdminServiceClient) ListAuditLogs(ctx context.Context, in *ListAuditLogsRequest, opts ...grpc.CallOption) (*ListAuditLogsResponse, error) {
	out := new(ListAuditLogsResponse)
	if err := c.invoke(ctx, AttendanceAdminService_ListAuditLogs_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}
