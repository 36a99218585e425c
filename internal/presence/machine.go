// Package presence implements the hysteresis state machine that turns a sequence of
// geofence classifications into warnings, grace countdowns and auto-checkouts.
//
// The machine is pure: it takes the persisted Snapshot of a session, one classification
// and the server time, and returns a Decision. Persisting the decision is the caller's job,
// which keeps correctness independent of process restarts.
package presence

import (
	"errors"
	"fmt"
	"time"

	"presence-engine/internal/attendance/domain"
	"presence-engine/internal/geofence"
)

// Default thresholds, used when a company has not configured its own.
const (
	DefaultConfirmReadings  = 3
	DefaultRecoverReadings  = 2
	DefaultEscalateReadings = 5
	DefaultGrace            = 5 * time.Minute
)

// Thresholds configures the machine.
type Thresholds struct {
	// Confirm (N) consecutive OUTSIDE_BRANCH readings move IDLE to WARNING.
	Confirm int
	// Recover (M) consecutive INSIDE/EXEMPT readings leave WARNING or COUNTDOWN.
	Recover int
	// Escalate (E > N) consecutive OUTSIDE_BRANCH readings move WARNING to COUNTDOWN. A recovering
	// reading in WARNING rewinds the run to N.
	Escalate int
	// Grace is the fixed countdown duration.
	Grace time.Duration
}

// DefaultThresholds returns N=3, M=2, E=5, grace=5m.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Confirm:  DefaultConfirmReadings,
		Recover:  DefaultRecoverReadings,
		Escalate: DefaultEscalateReadings,
		Grace:    DefaultGrace,
	}
}

// Validate checks N ≥ 1, M ≥ 1, E > N and a positive grace.
func (t Thresholds) Validate() error {
	if t.Confirm < 1 {
		return errors.New("presence: confirm readings must be at least 1")
	}
	if t.Recover < 1 {
		return errors.New("presence: recover readings must be at least 1")
	}
	if t.Escalate <= t.Confirm {
		return fmt.Errorf("presence: escalate readings (%d) must exceed confirm readings (%d)", t.Escalate, t.Confirm)
	}
	if t.Grace <= 0 {
		return errors.New("presence: grace duration must be positive")
	}
	return nil
}

// Snapshot is the persisted machine state of one session.
type Snapshot struct {
	State         domain.PresenceState
	Reason        domain.Reason
	OutsideStreak int
	RecoverStreak int
	// EndsAt is the active pending deadline; set only in COUNTDOWN.
	EndsAt *time.Time
}

// Idle is the initial snapshot.
func Idle() Snapshot {
	return Snapshot{State: domain.StateIdle, Reason: domain.ReasonNone}
}

// Effect is the side effect the caller must persist for a decision.
type Effect int

const (
	EffectNone Effect = iota
	// EffectOpenCountdown inserts a new PENDING row ending at Next.EndsAt.
	EffectOpenCountdown
	// EffectCancelCountdown marks the active PENDING row CANCELLED/RECOVERED.
	EffectCancelCountdown
	// EffectExpire marks the active PENDING row DONE and auto-closes the session.
	EffectExpire
)

func (e Effect) String() string {
	switch e {
	case EffectOpenCountdown:
		return "open_countdown"
	case EffectCancelCountdown:
		return "cancel_countdown"
	case EffectExpire:
		return "expire"
	default:
		return "none"
	}
}

// Decision is the outcome of one step.
type Decision struct {
	Next   Snapshot
	Effect Effect
	Action domain.Action
	// Path lists the states passed through, e.g. [CANCELLED, IDLE] on recovery. Empty when unchanged.
	Path []domain.PresenceState
}

// Changed reports whether the state (not only counters) changed.
func (d Decision) Changed() bool { return len(d.Path) > 0 }

// Machine applies Thresholds to snapshots.
type Machine struct {
	t Thresholds
}

// New returns a Machine. Invalid thresholds fall back to DefaultThresholds.
func New(t Thresholds) *Machine {
	if t.Validate() != nil {
		t = DefaultThresholds()
	}
	return &Machine{t: t}
}

// Thresholds returns the effective thresholds.
func (m *Machine) Thresholds() Thresholds { return m.t }

// Expire checks only the deadline. It is used when a session is touched without a new sample
// (check-in, check-out, sweeps). ok is false when nothing is due.
func (m *Machine) Expire(cur Snapshot, now time.Time) (Decision, bool) {
	if cur.State != domain.StateCountdown || cur.EndsAt == nil || now.Before(*cur.EndsAt) {
		return Decision{Next: cur, Action: actionFor(cur)}, false
	}
	next := cur
	next.State = domain.StateDone
	next.RecoverStreak = 0
	return Decision{
		Next:   next,
		Effect: EffectExpire,
		Action: domain.ActionAutoCheckoutExecuted,
		Path:   []domain.PresenceState{domain.StateDone},
	}, true
}

// Step applies one classification observed at server time now.
// An expired deadline wins over the new reading: recovery must happen before ends_at.
// Unknown classifications leave the snapshot unchanged.
func (m *Machine) Step(cur Snapshot, c geofence.Classification, now time.Time) Decision {
	if d, due := m.Expire(cur, now); due {
		return d
	}
	switch c {
	case geofence.Inside, geofence.Exempt, geofence.OutsideBranch, geofence.GPSBlocked:
	default:
		return Decision{Next: cur, Action: actionFor(cur)}
	}

	switch cur.State {
	case domain.StateDone:
		return Decision{Next: cur, Action: domain.ActionNone}
	case domain.StateWarning:
		return m.fromWarning(cur, c, now)
	case domain.StateCountdown:
		return m.fromCountdown(cur, c)
	default:
		// IDLE, a leftover CANCELLED, or an empty state from an old row.
		return m.fromIdle(cur, c, now)
	}
}

func (m *Machine) fromIdle(cur Snapshot, c geofence.Classification, now time.Time) Decision {
	switch c {
	case geofence.GPSBlocked:
		return m.open(domain.ReasonGPSBlocked, now)
	case geofence.OutsideBranch:
		streak := cur.OutsideStreak + 1
		if streak >= m.t.Confirm {
			return Decision{
				Next:   Snapshot{State: domain.StateWarning, Reason: domain.ReasonOutsideBranch, OutsideStreak: streak},
				Action: domain.ActionNone,
				Path:   []domain.PresenceState{domain.StateWarning},
			}
		}
		return Decision{Next: Snapshot{State: domain.StateIdle, Reason: domain.ReasonNone, OutsideStreak: streak}, Action: domain.ActionNone}
	default:
		next := Idle()
		var path []domain.PresenceState
		if cur.State != domain.StateIdle {
			path = []domain.PresenceState{domain.StateIdle}
		}
		return Decision{Next: next, Action: domain.ActionNone, Path: path}
	}
}

func (m *Machine) fromWarning(cur Snapshot, c geofence.Classification, now time.Time) Decision {
	switch c {
	case geofence.GPSBlocked:
		return m.open(domain.ReasonGPSBlocked, now)
	case geofence.OutsideBranch:
		streak := cur.OutsideStreak + 1
		if streak >= m.t.Escalate {
			return m.open(domain.ReasonOutsideBranch, now)
		}
		next := cur
		next.OutsideStreak = streak
		next.RecoverStreak = 0
		return Decision{Next: next, Action: domain.ActionNone}
	default:
		recovered := cur.RecoverStreak + 1
		if recovered >= m.t.Recover {
			return Decision{Next: Idle(), Action: domain.ActionNone, Path: []domain.PresenceState{domain.StateIdle}}
		}
		// The violation run is broken: escalation needs Escalate-Confirm fresh consecutive readings.
		next := cur
		next.OutsideStreak = m.t.Confirm
		next.RecoverStreak = recovered
		return Decision{Next: next, Action: domain.ActionNone}
	}
}

func (m *Machine) fromCountdown(cur Snapshot, c geofence.Classification) Decision {
	if c.Recovers() {
		recovered := cur.RecoverStreak + 1
		if recovered >= m.t.Recover {
			return Decision{
				Next:   Idle(),
				Effect: EffectCancelCountdown,
				Action: domain.ActionPendingCancelled,
				Path:   []domain.PresenceState{domain.StateCancelled, domain.StateIdle},
			}
		}
		next := cur
		next.RecoverStreak = recovered
		return Decision{Next: next, Action: domain.ActionPendingActive}
	}
	next := cur
	next.RecoverStreak = 0
	return Decision{Next: next, Action: domain.ActionPendingActive}
}

// open starts a fresh countdown with a full grace period. It never reuses an earlier deadline.
func (m *Machine) open(reason domain.Reason, now time.Time) Decision {
	endsAt := now.Add(m.t.Grace)
	return Decision{
		Next:   Snapshot{State: domain.StateCountdown, Reason: reason, EndsAt: &endsAt},
		Effect: EffectOpenCountdown,
		Action: domain.ActionPendingCreated,
		Path:   []domain.PresenceState{domain.StateCountdown},
	}
}

func actionFor(s Snapshot) domain.Action {
	if s.State == domain.StateCountdown {
		return domain.ActionPendingActive
	}
	return domain.ActionNone
}
