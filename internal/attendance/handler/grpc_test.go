package handler

import (
	"context"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	attendancev1 "presence-engine/api/attendance/v1"
	"presence-engine/internal/attendance/domain"
	"presence-engine/internal/attendance/service"
	"presence-engine/internal/geofence"
)

// mockAttendance records the last request and returns canned results.
type mockAttendance struct {
	heartbeat   service.HeartbeatRequest
	presenceFor string
	checkIn     service.CheckInRequest
	checkOut    service.CheckOutRequest

	status *service.PresenceStatus
	in     *service.CheckInResult
	out    *service.CheckOutResult
	err    error
}

func (m *mockAttendance) Heartbeat(ctx context.Context, req service.HeartbeatRequest) (*service.PresenceStatus, error) {
	m.heartbeat = req
	return m.status, m.err
}

func (m *mockAttendance) GetPresence(ctx context.Context, sessionID string) (*service.PresenceStatus, error) {
	m.presenceFor = sessionID
	return m.status, m.err
}

func (m *mockAttendance) CheckIn(ctx context.Context, req service.CheckInRequest) (*service.CheckInResult, error) {
	m.checkIn = req
	return m.in, m.err
}

func (m *mockAttendance) CheckOut(ctx context.Context, req service.CheckOutRequest) (*service.CheckOutResult, error) {
	m.checkOut = req
	return m.out, m.err
}

func TestServer_NilServiceUnimplemented(t *testing.T) {
	srv := NewServer(nil)
	ctx := context.Background()
	checks := map[string]error{}
	_, checks["Heartbeat"] = srv.Heartbeat(ctx, &attendancev1.HeartbeatRequest{})
	_, checks["GetPresence"] = srv.GetPresence(ctx, &attendancev1.GetPresenceRequest{})
	_, checks["CheckIn"] = srv.CheckIn(ctx, &attendancev1.CheckInRequest{})
	_, checks["CheckOut"] = srv.CheckOut(ctx, &attendancev1.CheckOutRequest{})
	for name, err := range checks {
		st, ok := status.FromError(err)
		if !ok {
			t.Fatalf("%s: error is not a gRPC status: %v", name, err)
		}
		if st.Code() != codes.Unimplemented {
			t.Errorf("%s: status code = %v, want %v", name, st.Code(), codes.Unimplemented)
		}
		if want := "method " + name + " not implemented"; st.Message() != want {
			t.Errorf("%s: message = %q, want %q", name, st.Message(), want)
		}
	}
}

func TestServer_Heartbeat(t *testing.T) {
	loc := time.FixedZone("WIB", 7*3600)
	ends := time.Date(2025, 6, 2, 16, 5, 0, 0, loc)
	sampled := time.Date(2025, 6, 2, 9, 0, 30, 0, time.UTC)
	m := &mockAttendance{status: &service.PresenceStatus{
		SessionID:      "s-1",
		Status:         domain.StateCountdown,
		Reason:         domain.ReasonOutsideBranch,
		EndsAt:         &ends,
		Action:         domain.ActionPendingCreated,
		Classification: geofence.OutsideBranch,
		DistanceM:      1112.4,
	}}
	srv := NewServer(m)

	resp, err := srv.Heartbeat(context.Background(), &attendancev1.HeartbeatRequest{
		SessionID: "s-1",
		Location:  attendancev1.Location{Lat: -6.21, Lng: 106.81, AccuracyM: 12, GPSOK: true},
		SampledAt: &sampled,
	})
	if err != nil {
		t.Fatalf("Heartbeat: %v", err)
	}
	if m.heartbeat.SessionID != "s-1" || !m.heartbeat.Fix.GPSOK || m.heartbeat.Fix.Lat != -6.21 || m.heartbeat.Fix.AccuracyM != 12 {
		t.Errorf("forwarded request = %+v", m.heartbeat)
	}
	if !m.heartbeat.SampledAt.Equal(sampled) {
		t.Errorf("sampled_at = %v, want %v", m.heartbeat.SampledAt, sampled)
	}
	if resp.Status != "COUNTDOWN" || resp.Reason != "OUTSIDE_BRANCH" || resp.Action != "PENDING_CREATED" {
		t.Errorf("response = %+v", resp)
	}
	if resp.EndsAt == nil || !resp.EndsAt.Equal(ends) || resp.EndsAt.Location() != time.UTC {
		t.Errorf("ends_at = %v, want %v in UTC", resp.EndsAt, ends)
	}
	if resp.Classification != "OUTSIDE_BRANCH" || resp.DistanceM != 1112.4 {
		t.Errorf("classification = %q distance = %v", resp.Classification, resp.DistanceM)
	}
}

func TestServer_HeartbeatWithoutSampleTime(t *testing.T) {
	m := &mockAttendance{status: &service.PresenceStatus{SessionID: "s-1", Status: domain.StateIdle, Reason: domain.ReasonNone, Action: domain.ActionNone}}
	resp, err := NewServer(m).Heartbeat(context.Background(), &attendancev1.HeartbeatRequest{SessionID: "s-1"})
	if err != nil {
		t.Fatalf("Heartbeat: %v", err)
	}
	if !m.heartbeat.SampledAt.IsZero() {
		t.Errorf("sampled_at = %v, want zero", m.heartbeat.SampledAt)
	}
	if resp.EndsAt != nil {
		t.Errorf("ends_at = %v, want nil", resp.EndsAt)
	}
}

func TestServer_GetPresence(t *testing.T) {
	m := &mockAttendance{status: &service.PresenceStatus{SessionID: "s-7", Status: domain.StateCheckedOut, Reason: domain.ReasonGPSBlocked, Action: domain.ActionNone}}
	resp, err := NewServer(m).GetPresence(context.Background(), &attendancev1.GetPresenceRequest{SessionID: "s-7"})
	if err != nil {
		t.Fatalf("GetPresence: %v", err)
	}
	if m.presenceFor != "s-7" {
		t.Errorf("session_id = %q, want %q", m.presenceFor, "s-7")
	}
	if resp.Status != "CHECKED_OUT" || resp.Reason != "GPS_BLOCKED" {
		t.Errorf("response = %+v", resp)
	}
}

func TestServer_CheckInAndOut(t *testing.T) {
	at := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	m := &mockAttendance{
		in:  &service.CheckInResult{SessionID: "s-1", CheckInAt: at, Mode: domain.ModeFree},
		out: &service.CheckOutResult{SessionID: "s-1", CheckOutAt: at.Add(8 * time.Hour)},
	}
	srv := NewServer(m)

	in, err := srv.CheckIn(context.Background(), &attendancev1.CheckInRequest{Location: attendancev1.Location{GPSOK: false}})
	if err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	if in.SessionID != "s-1" || in.Mode != "FREE" || !in.CheckInAt.Equal(at) {
		t.Errorf("check-in response = %+v", in)
	}
	if m.checkIn.Fix.GPSOK {
		t.Error("gps_ok should be forwarded as false")
	}

	out, err := srv.CheckOut(context.Background(), &attendancev1.CheckOutRequest{SessionID: "s-1", Location: attendancev1.Location{Lat: 1, Lng: 2, AccuracyM: 3, GPSOK: true}})
	if err != nil {
		t.Fatalf("CheckOut: %v", err)
	}
	if m.checkOut.SessionID != "s-1" || m.checkOut.Fix.Lng != 2 {
		t.Errorf("forwarded check-out = %+v", m.checkOut)
	}
	if !out.CheckOutAt.Equal(at.Add(8 * time.Hour)) {
		t.Errorf("check_out_at = %v", out.CheckOutAt)
	}
}

func TestServer_MapsServiceErrors(t *testing.T) {
	m := &mockAttendance{err: domain.ErrAlreadyCheckedIn}
	_, err := NewServer(m).CheckIn(context.Background(), &attendancev1.CheckInRequest{})
	if status.Code(err) != codes.AlreadyExists {
		t.Errorf("status code = %v, want %v", status.Code(err), codes.AlreadyExists)
	}
	if ReasonOf(err) != "ALREADY_CHECKED_IN" {
		t.Errorf("reason = %q", ReasonOf(err))
	}

	m.err = domain.ErrNoOpenSession
	_, err = NewServer(m).CheckOut(context.Background(), &attendancev1.CheckOutRequest{SessionID: "s-1"})
	if status.Code(err) != codes.FailedPrecondition {
		t.Errorf("status code = %v, want %v", status.Code(err), codes.FailedPrecondition)
	}
}
