package handler

import (
	"context"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	attendancev1 "presence-engine/api/attendance/v1"
	"presence-engine/internal/attendance/service"
)

// Attendance is the device-facing service. *service.Gateway implements it.
type Attendance interface {
	Heartbeat(ctx context.Context, req service.HeartbeatRequest) (*service.PresenceStatus, error)
	GetPresence(ctx context.Context, sessionID string) (*service.PresenceStatus, error)
	CheckIn(ctx context.Context, req service.CheckInRequest) (*service.CheckInResult, error)
	CheckOut(ctx context.Context, req service.CheckOutRequest) (*service.CheckOutResult, error)
}

// Server implements AttendanceService.
// API: api/attendance/v1 → internal/attendance/handler.
type Server struct {
	attendancev1.UnimplementedAttendanceServiceServer
	svc Attendance
}

// NewServer returns a new Attendance gRPC server. Pass nil svc for stub (Unimplemented).
func NewServer(svc Attendance) *Server {
	return &Server{svc: svc}
}

// Heartbeat reports one location sample of an open session.
func (s *Server) Heartbeat(ctx context.Context, req *attendancev1.HeartbeatRequest) (*attendancev1.PresenceStatus, error) {
	if s.svc == nil {
		return nil, status.Error(codes.Unimplemented, "method Heartbeat not implemented")
	}
	in := service.HeartbeatRequest{SessionID: req.SessionID, Fix: fixFromProto(req.Location)}
	if req.SampledAt != nil {
		in.SampledAt = *req.SampledAt
	}
	st, err := s.svc.Heartbeat(ctx, in)
	if err != nil {
		return nil, toStatus(err)
	}
	return presenceToProto(st), nil
}

// GetPresence returns the current status without consuming a sample.
func (s *Server) GetPresence(ctx context.Context, req *attendancev1.GetPresenceRequest) (*attendancev1.PresenceStatus, error) {
	if s.svc == nil {
		return nil, status.Error(codes.Unimplemented, "method GetPresence not implemented")
	}
	st, err := s.svc.GetPresence(ctx, req.SessionID)
	if err != nil {
		return nil, toStatus(err)
	}
	return presenceToProto(st), nil
}

// CheckIn opens a session for the authenticated employee.
func (s *Server) CheckIn(ctx context.Context, req *attendancev1.CheckInRequest) (*attendancev1.CheckInResponse, error) {
	if s.svc == nil {
		return nil, status.Error(codes.Unimplemented, "method CheckIn not implemented")
	}
	res, err := s.svc.CheckIn(ctx, service.CheckInRequest{Fix: fixFromProto(req.Location)})
	if err != nil {
		return nil, toStatus(err)
	}
	return &attendancev1.CheckInResponse{SessionID: res.SessionID, CheckInAt: res.CheckInAt, Mode: string(res.Mode)}, nil
}

// CheckOut closes the caller's open session.
func (s *Server) CheckOut(ctx context.Context, req *attendancev1.CheckOutRequest) (*attendancev1.CheckOutResponse, error) {
	if s.svc == nil {
		return nil, status.Error(codes.Unimplemented, "method CheckOut not implemented")
	}
	res, err := s.svc.CheckOut(ctx, service.CheckOutRequest{SessionID: req.SessionID, Fix: fixFromProto(req.Location)})
	if err != nil {
		return nil, toStatus(err)
	}
	return &attendancev1.CheckOutResponse{SessionID: res.SessionID, CheckOutAt: res.CheckOutAt}, nil
}

func fixFromProto(l attendancev1.Location) service.Fix {
	return service.Fix{Lat: l.Lat, Lng: l.Lng, AccuracyM: l.AccuracyM, GPSOK: l.GPSOK}
}

func presenceToProto(st *service.PresenceStatus) *attendancev1.PresenceStatus {
	if st == nil {
		return nil
	}
	out := &attendancev1.PresenceStatus{
		SessionID:      st.SessionID,
		Status:         string(st.Status),
		Reason:         string(st.Reason),
		Action:         string(st.Action),
		Classification: string(st.Classification),
		DistanceM:      st.DistanceM,
		ServerTime:     st.ServerTime,
	}
	if st.EndsAt != nil {
		out.EndsAt = utc(*st.EndsAt)
	}
	return out
}

func utc(t time.Time) *time.Time {
	u := t.UTC()
	return &u
}
