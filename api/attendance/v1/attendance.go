// Package attendancev1 is the device-facing attendance API: presence heartbeats, check-in and
// check-out. Messages are JSON-encoded (see api/codec).
package attendancev1

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"presence-engine/api/codec"
)

// Location is a device fix. Lat, Lng and AccuracyM are ignored when GPSOK is false.
type Location struct {
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	AccuracyM float64 `json:"accuracy_m"`
	GPSOK     bool    `json:"gps_ok"`
}

type HeartbeatRequest struct {
	SessionID string   `json:"session_id"`
	Location  Location `json:"location"`
	// SampledAt is the device time of the fix, used only to discard duplicates and reordered samples.
	SampledAt *time.Time `json:"sampled_at,omitempty"`
}

type GetPresenceRequest struct {
	// SessionID may be empty to read the caller's open session.
	SessionID string `json:"session_id,omitempty"`
}

// PresenceStatus answers Heartbeat and GetPresence.
// Status is IDLE, WARNING, COUNTDOWN, DONE or CHECKED_OUT; Reason is NONE, GPS_BLOCKED or
// OUTSIDE_BRANCH; Action is NONE, PENDING_CREATED, PENDING_ACTIVE, PENDING_CANCELLED or
// AUTO_CHECKOUT_EXECUTED. EndsAt is the absolute deadline while a countdown runs.
type PresenceStatus struct {
	SessionID      string     `json:"session_id"`
	Status         string     `json:"status"`
	Reason         string     `json:"reason"`
	EndsAt         *time.Time `json:"ends_at,omitempty"`
	Action         string     `json:"action"`
	Classification string     `json:"classification,omitempty"`
	DistanceM      float64    `json:"distance_m,omitempty"`
	ServerTime     time.Time  `json:"server_time"`
}

type CheckInRequest struct {
	Location Location `json:"location"`
}

type CheckInResponse struct {
	SessionID string    `json:"session_id"`
	CheckInAt time.Time `json:"check_in_at"`
	Mode      string    `json:"mode"`
}

type CheckOutRequest struct {
	SessionID string   `json:"session_id"`
	Location  Location `json:"location"`
}

type CheckOutResponse struct {
	SessionID  string    `json:"session_id"`
	CheckOutAt time.Time `json:"check_out_at"`
}

const (
	AttendanceService_Heartbeat_FullMethodName   = "/presence.attendance.v1.AttendanceService/Heartbeat"
	AttendanceService_CheckIn_FullMethodName     = "/presence.attendance.v1.AttendanceService/CheckIn"
	AttendanceService_CheckOut_FullMethodName    = "/presence.attendance.v1.AttendanceService/CheckOut"
	AttendanceService_GetPresence_FullMethodName = "/presence.attendance.v1.AttendanceService/GetPresence"
)

// AttendanceServiceServer is the server API for AttendanceService.
type AttendanceServiceServer interface {
	Heartbeat(context.Context, *HeartbeatRequest) (*PresenceStatus, error)
	CheckIn(context.Context, *CheckInRequest) (*CheckInResponse, error)
	CheckOut(context.Context, *CheckOutRequest) (*CheckOutResponse, error)
	GetPresence(context.Context, *GetPresenceRequest) (*PresenceStatus, error)
}

// UnimplementedAttendanceServiceServer returns Unimplemented for every method.
type UnimplementedAttendanceServiceServer struct{}

func (UnimplementedAttendanceServiceServer) Heartbeat(context.Context, *HeartbeatRequest) (*PresenceStatus, error) {
	return nil, status.Error(codes.Unimplemented, "method Heartbeat not implemented")
}

func (UnimplementedAttendanceServiceServer) CheckIn(context.Context, *CheckInRequest) (*CheckInResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CheckIn not implemented")
}

func (UnimplementedAttendanceServiceServer) CheckOut(context.Context, *CheckOutRequest) (*CheckOutResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CheckOut not implemented")
}

func (UnimplementedAttendanceServiceServer) GetPresence(context.Context, *GetPresenceRequest) (*PresenceStatus, error) {
	return nil, status.Error(codes.Unimplemented, "method GetPresence not implemented")
}

// RegisterAttendanceServiceServer registers srv on s.
func RegisterAttendanceServiceServer(s grpc.ServiceRegistrar, srv AttendanceServiceServer) {
	s.RegisterService(&AttendanceService_ServiceDesc, srv)
}

// unary builds a method handler that decodes Req and calls fn through the interceptor chain.
func unary[Req any](fullMethod string, fn func(AttendanceServiceServer, context.Context, *Req) (any, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return fn(srv.(AttendanceServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return fn(srv.(AttendanceServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// AttendanceService_ServiceDesc is the grpc.ServiceDesc for AttendanceService.
var AttendanceService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "presence.attendance.v1.AttendanceService",
	HandlerType: (*AttendanceServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Heartbeat",
			Handler: unary(AttendanceService_Heartbeat_FullMethodName, func(s AttendanceServiceServer, ctx context.Context, in *HeartbeatRequest) (any, error) {
				return s.Heartbeat(ctx, in)
			}),
		},
		{
			MethodName: "CheckIn",
			Handler: unary(AttendanceService_CheckIn_FullMethodName, func(s AttendanceServiceServer, ctx context.Context, in *CheckInRequest) (any, error) {
				return s.CheckIn(ctx, in)
			}),
		},
		{
			MethodName: "CheckOut",
			Handler: unary(AttendanceService_CheckOut_FullMethodName, func(s AttendanceServiceServer, ctx context.Context, in *CheckOutRequest) (any, error) {
				return s.CheckOut(ctx, in)
			}),
		},
		{
			MethodName: "GetPresence",
			Handler: unary(AttendanceService_GetPresence_FullMethodName, func(s AttendanceServiceServer, ctx context.Context, in *GetPresenceRequest) (any, error) {
				return s.GetPresence(ctx, in)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "presence/attendance/v1",
}

// AttendanceServiceClient is the client API for AttendanceService. Calls use the JSON codec.
type AttendanceServiceClient interface {
	Heartbeat(ctx context.Context, in *HeartbeatRequest, opts ...grpc.CallOption) (*PresenceStatus, error)
	CheckIn(ctx context.Context, in *CheckInRequest, opts ...grpc.CallOption) (*CheckInResponse, error)
	CheckOut(ctx context.Context, in *CheckOutRequest, opts ...grpc.CallOption) (*CheckOutResponse, error)
	GetPresence(ctx context.Context, in *GetPresenceRequest, opts ...grpc.CallOption) (*PresenceStatus, error)
}

type attendanceServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewAttendanceServiceClient(cc grpc.ClientConnInterface) AttendanceServiceClient {
	return &attendanceServiceClient{cc: cc}
}

func (c *attendanceServiceClient) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	return c.cc.Invoke(ctx, method, in, out, append([]grpc.CallOption{codec.CallOption()}, opts...)...)
}

func (c *attendanceServiceClient) Heartbeat(ctx context.Context, in *HeartbeatRequest, opts ...grpc.CallOption) (*PresenceStatus, error) {
	out := new(PresenceStatus)
	if err := c.invoke(ctx, AttendanceService_Heartbeat_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *attendanceServiceClient) CheckIn(ctx context.Context, in *CheckInRequest, opts ...grpc.CallOption) (*CheckInResponse, error) {
	out := new(CheckInResponse)
	if err := c.invoke(ctx, AttendanceService_CheckIn_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *attendanceServiceClient) CheckOut(ctx context.Context, in *CheckOutRequest, opts ...grpc.CallOption) (*CheckOutResponse, error) {
	out := new(CheckOutResponse)
	if err := c.invoke(ctx, AttendanceService_CheckOut_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *attendanceServiceClient) GetPresence(ctx context.Context, in *GetPresenceRequest, opts ...grpc.CallOption) (*PresenceStatus, error) {
	out := new(PresenceStatus)
	if err := c.invoke(ctx, AttendanceService_GetPresence_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}
