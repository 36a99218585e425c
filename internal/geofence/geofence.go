// Package geofence classifies a location sample against a branch's circular geofence.
package geofence

import (
	"math"

	"presence-engine/internal/attendance/domain"
)

// earthRadiusM is the IUGG mean Earth radius.
const earthRadiusM = 6371008.8

// Classification is the presence verdict for a single sample.
type Classification string

const (
	Inside        Classification = "INSIDE"
	OutsideBranch Classification = "OUTSIDE_BRANCH"
	GPSBlocked    Classification = "GPS_BLOCKED"
	Exempt        Classification = "EXEMPT"
)

// Recovers reports whether c counts toward recovery from a violation.
func (c Classification) Recovers() bool {
	return c == Inside || c == Exempt
}

// Reason maps a violating classification to the pending reason; NONE otherwise.
func (c Classification) Reason() domain.Reason {
	switch c {
	case GPSBlocked:
		return domain.ReasonGPSBlocked
	case OutsideBranch:
		return domain.ReasonOutsideBranch
	default:
		return domain.ReasonNone
	}
}

// AccuracyMode decides how the reported accuracy radius takes part in the inside test.
type AccuracyMode string

const (
	// AccuracyGate uses accuracy only to reject imprecise samples; the test uses the plain radius.
	AccuracyGate AccuracyMode = "gate"
	// AccuracyExpand additionally widens the effective radius by the sample's accuracy.
	AccuracyExpand AccuracyMode = "expand"
)

// Options are the per-company evaluation settings.
type Options struct {
	// MaxAccuracyM rejects samples whose accuracy radius is larger. Zero disables the check.
	MaxAccuracyM float64
	Mode         AccuracyMode
}

// Sample is one location reading from a device.
type Sample struct {
	Lat       float64
	Lng       float64
	AccuracyM float64
	GPSOK     bool
}

// Result is the classification plus the measured distance (zero unless it was computed).
type Result struct {
	Classification Classification
	DistanceM      float64
}

// Evaluate classifies s against branch b. It has no side effects and never fails:
// anything it cannot measure is GPS_BLOCKED.
func Evaluate(s Sample, b *domain.Branch, freeTaskActive bool, opts Options) Result {
	if freeTaskActive {
		return Result{Classification: Exempt}
	}
	if !s.GPSOK || !finite(s.Lat, s.Lng, s.AccuracyM) || s.AccuracyM < 0 {
		return Result{Classification: GPSBlocked}
	}
	if opts.MaxAccuracyM > 0 && s.AccuracyM > opts.MaxAccuracyM {
		return Result{Classification: GPSBlocked}
	}
	if b == nil {
		return Result{Classification: GPSBlocked}
	}
	d := Distance(s.Lat, s.Lng, b.Lat, b.Lng)
	radius := b.RadiusM
	if opts.Mode == AccuracyExpand {
		radius += s.AccuracyM
	}
	if d <= radius {
		return Result{Classification: Inside, DistanceM: d}
	}
	return Result{Classification: OutsideBranch, DistanceM: d}
}

// Distance returns the great-circle distance in metres between two WGS84 points (haversine).
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	φ1 := lat1 * math.Pi / 180
	φ2 := lat2 * math.Pi / 180
	dφ := (lat2 - lat1) * math.Pi / 180
	dλ := (lng2 - lng1) * math.Pi / 180
	a := math.Sin(dφ/2)*math.Sin(dφ/2) + math.Cos(φ1)*math.Cos(φ2)*math.Sin(dλ/2)*math.Sin(dλ/2)
	if a > 1 {
		a = 1
	}
	return 2 * earthRadiusM * math.Asin(math.Sqrt(a))
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
