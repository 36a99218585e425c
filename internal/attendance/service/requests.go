package service

import (
	"math"
	"strings"
	"time"

	"presence-engine/internal/attendance/domain"
	"presence-engine/internal/geofence"
)

// Fix is a device location fix. Coordinates are ignored when GPSOK is false.
type Fix struct {
	Lat       float64
	Lng       float64
	AccuracyM float64
	GPSOK     bool
}

// Validate rejects structurally invalid coordinates. A fix without GPS is always valid:
// loss of signal is a classification, not an error.
func (f Fix) Validate() error {
	if !f.GPSOK {
		return nil
	}
	if math.IsNaN(f.Lat) || f.Lat < -90 || f.Lat > 90 {
		return domain.Invalid("lat must be between -90 and 90")
	}
	if math.IsNaN(f.Lng) || f.Lng < -180 || f.Lng > 180 {
		return domain.Invalid("lng must be between -180 and 180")
	}
	if math.IsNaN(f.AccuracyM) || math.IsInf(f.AccuracyM, 0) || f.AccuracyM < 0 {
		return domain.Invalid("accuracy_m must be a non-negative number")
	}
	return nil
}

func (f Fix) sample() geofence.Sample {
	return geofence.Sample{Lat: f.Lat, Lng: f.Lng, AccuracyM: f.AccuracyM, GPSOK: f.GPSOK}
}

// location returns the stored form of the fix; nil without GPS.
func (f Fix) location() *domain.Location {
	if !f.GPSOK {
		return nil
	}
	return &domain.Location{Lat: f.Lat, Lng: f.Lng, AccuracyM: f.AccuracyM}
}

// HeartbeatRequest is one periodic location report for an open session.
type HeartbeatRequest struct {
	SessionID string
	Fix       Fix
	// SampledAt is the device time of the fix. It only orders samples; deadlines use server time.
	// Zero means the server receive time.
	SampledAt time.Time
}

func (r *HeartbeatRequest) Validate() error {
	r.SessionID = strings.TrimSpace(r.SessionID)
	if r.SessionID == "" {
		return domain.Invalid("session_id is required")
	}
	return r.Fix.Validate()
}

// CheckInRequest opens a session at the employee's branch.
type CheckInRequest struct {
	Fix Fix
}

func (r *CheckInRequest) Validate() error {
	return r.Fix.Validate()
}

// CheckOutRequest closes the caller's own open session.
type CheckOutRequest struct {
	SessionID string
	Fix       Fix
}

func (r *CheckOutRequest) Validate() error {
	r.SessionID = strings.TrimSpace(r.SessionID)
	if r.SessionID == "" {
		return domain.Invalid("session_id is required")
	}
	return r.Fix.Validate()
}

// PresenceStatus is the heartbeat and GetPresence response. EndsAt is the absolute server
// deadline of the active countdown; clients never receive a relative duration.
type PresenceStatus struct {
	SessionID string
	Status    domain.PresenceState
	Reason    domain.Reason
	EndsAt    *time.Time
	Action    domain.Action
	// Classification of the sample that produced this status; empty for reads and stale samples.
	Classification geofence.Classification
	DistanceM      float64
	ServerTime     time.Time
}

// CheckInResult is returned by a successful check-in.
type CheckInResult struct {
	SessionID string
	CheckInAt time.Time
	Mode      domain.Mode
}

// CheckOutResult is returned by a successful manual check-out.
type CheckOutResult struct {
	SessionID  string
	CheckOutAt time.Time
}
