// Package domain holds the per-company presence settings: thresholds, accuracy policy and the check-in policy.
package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"presence-engine/internal/geofence"
	"presence-engine/internal/presence"
)

// Settings is stored as JSON per company. Zero fields mean "use the deployment default".
type Settings struct {
	GraceDuration          string  `json:"grace_duration,omitempty"` // e.g. "5m"
	ConfirmReadings        int     `json:"confirm_readings,omitempty"`
	RecoverReadings        int     `json:"recover_readings,omitempty"`
	EscalateReadings       int     `json:"escalate_readings,omitempty"`
	MaxAccuracyM           float64 `json:"max_accuracy_m,omitempty"`
	AccuracyMode           string  `json:"accuracy_mode,omitempty"` // gate, expand
	AllowCheckInWithoutGPS bool    `json:"allow_check_in_without_gps"`
	// CheckInPolicy is an optional Rego module (package presence.check_in) replacing the default policy.
	CheckInPolicy string `json:"check_in_policy,omitempty"`
}

// Defaults returns the built-in defaults: grace 5m, N=3, M=2, E=5, 50 m accuracy gate.
func Defaults() Settings {
	return Settings{
		GraceDuration:    presence.DefaultGrace.String(),
		ConfirmReadings:  presence.DefaultConfirmReadings,
		RecoverReadings:  presence.DefaultRecoverReadings,
		EscalateReadings: presence.DefaultEscalateReadings,
		MaxAccuracyM:     50,
		AccuracyMode:     string(geofence.AccuracyGate),
	}
}

// MergeWithDefaults returns a copy of s with zero fields replaced by d.
func MergeWithDefaults(s *Settings, d Settings) *Settings {
	if s == nil {
		out := d
		return &out
	}
	out := *s
	if out.GraceDuration == "" {
		out.GraceDuration = d.GraceDuration
	}
	if out.ConfirmReadings == 0 {
		out.ConfirmReadings = d.ConfirmReadings
	}
	if out.RecoverReadings == 0 {
		out.RecoverReadings = d.RecoverReadings
	}
	if out.EscalateReadings == 0 {
		out.EscalateReadings = d.EscalateReadings
	}
	if out.MaxAccuracyM == 0 {
		out.MaxAccuracyM = d.MaxAccuracyM
	}
	if out.AccuracyMode == "" {
		out.AccuracyMode = d.AccuracyMode
	}
	if out.CheckInPolicy == "" {
		out.CheckInPolicy = d.CheckInPolicy
	}
	return &out
}

// Validate checks a merged Settings value.
func (s *Settings) Validate() error {
	grace, err := time.ParseDuration(s.GraceDuration)
	if err != nil {
		return fmt.Errorf("grace_duration: %w", err)
	}
	t := presence.Thresholds{Confirm: s.ConfirmReadings, Recover: s.RecoverReadings, Escalate: s.EscalateReadings, Grace: grace}
	if err := t.Validate(); err != nil {
		return err
	}
	if s.MaxAccuracyM < 0 {
		return errors.New("max_accuracy_m must not be negative")
	}
	switch geofence.AccuracyMode(strings.ToLower(s.AccuracyMode)) {
	case geofence.AccuracyGate, geofence.AccuracyExpand:
	default:
		return fmt.Errorf("accuracy_mode must be gate or expand, got %q", s.AccuracyMode)
	}
	return nil
}

// Thresholds returns the state machine thresholds. Invalid values fall back to the machine defaults.
func (s *Settings) Thresholds() presence.Thresholds {
	grace, err := time.ParseDuration(s.GraceDuration)
	if err != nil {
		grace = 0
	}
	t := presence.Thresholds{Confirm: s.ConfirmReadings, Recover: s.RecoverReadings, Escalate: s.EscalateReadings, Grace: grace}
	if t.Validate() != nil {
		return presence.DefaultThresholds()
	}
	return t
}

// GeofenceOptions returns the evaluator options.
func (s *Settings) GeofenceOptions() geofence.Options {
	mode := geofence.AccuracyMode(strings.ToLower(s.AccuracyMode))
	if mode != geofence.AccuracyExpand {
		mode = geofence.AccuracyGate
	}
	return geofence.Options{MaxAccuracyM: s.MaxAccuracyM, Mode: mode}
}
