// Package service implements the attendance ledger, the heartbeat gateway and the sweeper.
//
// Every mutation runs inside repository.Store.WithinEmployee, which serializes the
// read-decide-write sequence per employee. Side channels (audit, telemetry, notifications,
// metrics) are collected during the transaction and published only after it commits.
package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"presence-engine/internal/attendance/domain"
	"presence-engine/internal/attendance/repository"
	"presence-engine/internal/audit"
	"presence-engine/internal/clock"
	"presence-engine/internal/geofence"
	"presence-engine/internal/policy/engine"
	"presence-engine/internal/presence"
	settingsdomain "presence-engine/internal/presencesettings/domain"
	telemetrydomain "presence-engine/internal/telemetry/domain"
	"presence-engine/internal/tenant"
)

// SettingsSource returns the effective (default-merged) settings of a company.
type SettingsSource interface {
	Get(ctx context.Context, companyID string) (*settingsdomain.Settings, error)
}

// Ledger owns the attendance session lifecycle: check-in, manual check-out and auto-checkout.
type Ledger struct {
	store    repository.Store
	scope    *tenant.Scope
	settings SettingsSource
	policy   engine.Evaluator
	clock    clock.Clock
	sinks    Sinks
	newID    func() string
}

// NewLedger returns a Ledger. clk defaults to the system clock.
func NewLedger(
	store repository.Store,
	scope *tenant.Scope,
	settings SettingsSource,
	policy engine.Evaluator,
	clk clock.Clock,
	sinks Sinks,
) *Ledger {
	if clk == nil {
		clk = clock.System{}
	}
	return &Ledger{
		store:    store,
		scope:    scope,
		settings: settings,
		policy:   policy,
		clock:    clk,
		sinks:    sinks,
		newID:    func() string { return uuid.New().String() },
	}
}

// CheckIn opens a session for the calling employee. An expired countdown on the current open
// session is settled first, so an employee whose grace ran out can check in again.
func (l *Ledger) CheckIn(ctx context.Context, req CheckInRequest) (*CheckInResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	actor, err := l.scope.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	settings, err := l.settings.Get(ctx, actor.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	machine := machineFor(actor.CompanyID, settings)
	now := l.clock.Now()

	var (
		fx     effects
		result *CheckInResult
		reject error
	)
	err = l.store.WithinEmployee(ctx, actor.CompanyID, actor.EmployeeID, func(q repository.Queries) error {
		open, err := q.GetOpenSession(ctx, actor.CompanyID, actor.EmployeeID)
		if err != nil {
			return err
		}
		if open != nil {
			closed, err := l.settle(ctx, q, machine, open, now, &fx)
			if err != nil {
				return err
			}
			if !closed {
				reject = domain.ErrAlreadyCheckedIn
				return nil
			}
		}

		window, err := q.ActiveFreeTask(ctx, actor.CompanyID, actor.EmployeeID, now)
		if err != nil {
			return err
		}
		mode := domain.ModeNormal
		if window != nil {
			if err := tenant.RequireSameCompany(actor, window.CompanyID); err != nil {
				return err
			}
			mode = domain.ModeFree
		} else {
			deny, err := l.admit(ctx, q, actor, settings, req.Fix, now)
			if err != nil {
				return err
			}
			if deny != nil {
				reject = deny
				return nil
			}
		}

		loc := req.Fix.location()
		if loc == nil {
			loc = &domain.Location{}
		}
		s := &domain.Session{
			ID:         l.newID(),
			EmployeeID: actor.EmployeeID,
			CompanyID:  actor.CompanyID,
			CheckInAt:  now,
			Mode:       mode,
			CheckIn:    *loc,
		}
		if err := q.CreateSession(ctx, s); err != nil {
			return err
		}
		if err := q.SaveTracker(ctx, domain.NewTracker(s, now)); err != nil {
			return err
		}
		result = &CheckInResult{SessionID: s.ID, CheckInAt: now, Mode: mode}
		fx.audit(s.CompanyID, s.EmployeeID, audit.ActionCheckIn, fmt.Sprintf(`{"session_id":%q,"mode":%q}`, s.ID, mode))
		fx.event(telemetrydomain.New(telemetrydomain.EventCheckIn, eventSource, s.CompanyID, s.EmployeeID, s.ID,
			map[string]any{"mode": mode, "gps_ok": req.Fix.GPSOK}, now))
		return nil
	})
	if err != nil {
		return nil, err
	}
	l.sinks.publish(ctx, &fx)
	if reject != nil {
		return nil, reject
	}
	return result, nil
}

// admit runs the geofence and the company's check-in policy. A denial is returned as reject,
// not as err, so the surrounding transaction still commits anything settled before it.
func (l *Ledger) admit(ctx context.Context, q repository.Queries, actor *tenant.Actor, settings *settingsdomain.Settings, fix Fix, now time.Time) (reject error, err error) {
	branch, err := q.GetBranch(ctx, actor.CompanyID, actor.BranchID)
	if err != nil {
		return nil, err
	}
	if branch == nil {
		return nil, domain.ErrTenantMismatch
	}
	if err := tenant.RequireSameCompany(actor, branch.CompanyID); err != nil {
		return nil, err
	}
	res := geofence.Evaluate(fix.sample(), branch, false, settings.GeofenceOptions())
	in := engine.CheckInInput{
		CompanyID:       actor.CompanyID,
		EmployeeID:      actor.EmployeeID,
		BranchID:        branch.ID,
		Classification:  res.Classification,
		DistanceM:       res.DistanceM,
		AccuracyM:       fix.AccuracyM,
		AllowWithoutGPS: settings.AllowCheckInWithoutGPS,
		At:              now,
	}
	decision := engine.DefaultDecision(in)
	if l.policy != nil {
		d, err := l.policy.EvaluateCheckIn(ctx, settings.CheckInPolicy, in)
		if err != nil {
			log.Printf("attendance: check-in policy for company %s failed, using default: %v", actor.CompanyID, err)
		} else {
			decision = d
		}
	}
	if decision.Allow {
		return nil, nil
	}
	return denial(decision.DenyReason), nil
}

func denial(reason string) error {
	switch reason {
	case engine.DenyOutsideBranch:
		return domain.ErrOutsideBranch
	case engine.DenyGPSRequired:
		return domain.ErrGPSRequired
	case "":
		return &domain.Error{Kind: domain.KindConflict, Code: "CHECK_IN_DENIED", Message: "check-in denied by company policy"}
	default:
		return &domain.Error{Kind: domain.KindConflict, Code: reason, Message: "check-in denied by company policy"}
	}
}

// CheckOut closes the caller's open session and cancels its active countdown. When the
// countdown already expired the auto-checkout wins and NO_OPEN_SESSION is returned.
func (l *Ledger) CheckOut(ctx context.Context, req CheckOutRequest) (*CheckOutResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	actor, err := l.scope.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	settings, err := l.settings.Get(ctx, actor.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	machine := machineFor(actor.CompanyID, settings)
	now := l.clock.Now()

	var (
		fx     effects
		result *CheckOutResult
		reject error
	)
	err = l.store.WithinEmployee(ctx, actor.CompanyID, actor.EmployeeID, func(q repository.Queries) error {
		s, err := q.GetSession(ctx, actor.CompanyID, req.SessionID)
		if err != nil {
			return err
		}
		if err := tenant.RequireOwnSession(actor, s); err != nil {
			return err
		}
		if !s.IsOpen() {
			reject = domain.ErrNoOpenSession
			return nil
		}
		closed, err := l.settle(ctx, q, machine, s, now, &fx)
		if err != nil {
			return err
		}
		if closed {
			reject = domain.ErrNoOpenSession
			return nil
		}

		if p, err := q.GetActivePending(ctx, s.CompanyID, s.ID); err != nil {
			return err
		} else if p != nil {
			if _, err := q.ResolvePending(ctx, s.CompanyID, p.ID, domain.PendingCancelled, domain.CancelManualCheckout, now); err != nil {
				return err
			}
		}
		ok, err := q.CloseSession(ctx, s.CompanyID, s.ID, domain.Closure{
			At:       now,
			Type:     domain.CheckoutManual,
			Reason:   domain.ReasonNone,
			Location: req.Fix.location(),
		})
		if err != nil {
			return err
		}
		if !ok {
			reject = domain.ErrNoOpenSession
			return nil
		}
		tr := domain.NewTracker(s, now)
		if err := q.SaveTracker(ctx, tr); err != nil {
			return err
		}
		result = &CheckOutResult{SessionID: s.ID, CheckOutAt: now}
		fx.audit(s.CompanyID, s.EmployeeID, audit.ActionCheckOut, fmt.Sprintf(`{"session_id":%q}`, s.ID))
		fx.event(telemetrydomain.New(telemetrydomain.EventCheckOut, eventSource, s.CompanyID, s.EmployeeID, s.ID,
			map[string]any{"gps_ok": req.Fix.GPSOK}, now))
		return nil
	})
	if err != nil {
		return nil, err
	}
	l.sinks.publish(ctx, &fx)
	if reject != nil {
		return nil, reject
	}
	return result, nil
}

// AutoCheckout settles one due pending found by the sweeper. It reloads everything under the
// employee lock and reports whether this call closed the session; a pending that was cancelled
// or already settled in the meantime is a no-op.
func (l *Ledger) AutoCheckout(ctx context.Context, p *domain.Pending) (bool, error) {
	if p == nil {
		return false, nil
	}
	settings, err := l.settings.Get(ctx, p.CompanyID)
	if err != nil {
		return false, fmt.Errorf("load settings: %w", err)
	}
	machine := machineFor(p.CompanyID, settings)
	now := l.clock.Now()

	var (
		fx     effects
		closed bool
	)
	err = l.store.WithinEmployee(ctx, p.CompanyID, p.EmployeeID, func(q repository.Queries) error {
		s, err := q.GetSession(ctx, p.CompanyID, p.SessionID)
		if err != nil {
			return err
		}
		if !s.IsOpen() || s.EmployeeID != p.EmployeeID {
			return nil
		}
		closed, err = l.settle(ctx, q, machine, s, now, &fx)
		return err
	})
	if err != nil {
		return false, err
	}
	l.sinks.publish(ctx, &fx)
	return closed, nil
}

// state is the persisted machine state of one open session.
type state struct {
	tracker *domain.Tracker
	pending *domain.Pending
}

// snapshot rebuilds the machine input. The active pending row is authoritative for COUNTDOWN:
// a tracker claiming COUNTDOWN without one falls back to IDLE, and a pending without a
// COUNTDOWN tracker is treated as COUNTDOWN.
// machineFor builds the company's presence machine. Settings that fail validation run on the
// built-in thresholds, and the fallback is logged so the company's configuration gets fixed.
func machineFor(companyID string, s *settingsdomain.Settings) *presence.Machine {
	if err := s.Validate(); err != nil {
		log.Printf("attendance: company %s has invalid presence settings, falling back to defaults: %v", companyID, err)
	}
	return presence.New(s.Thresholds())
}

func (st state) snapshot() presence.Snapshot {
	tr := st.tracker
	snap := presence.Snapshot{
		State:         tr.State,
		Reason:        tr.Reason,
		OutsideStreak: tr.OutsideStreak,
		RecoverStreak: tr.RecoverStreak,
	}
	if st.pending != nil {
		endsAt := st.pending.EndsAt
		snap.State = domain.StateCountdown
		snap.Reason = st.pending.Reason
		snap.OutsideStreak = 0
		snap.EndsAt = &endsAt
		return snap
	}
	if snap.State == domain.StateCountdown || snap.State == domain.StateDone || snap.State == "" {
		return presence.Idle()
	}
	return snap
}

func load(ctx context.Context, q repository.Queries, s *domain.Session) (state, error) {
	tr, err := q.GetTracker(ctx, s.CompanyID, s.ID)
	if err != nil {
		return state{}, err
	}
	if tr == nil {
		tr = domain.NewTracker(s, s.CheckInAt)
	}
	p, err := q.GetActivePending(ctx, s.CompanyID, s.ID)
	if err != nil {
		return state{}, err
	}
	return state{tracker: tr, pending: p}, nil
}

// settle applies an expired deadline to an open session without a new sample.
// It reports whether the session was auto-closed.
func (l *Ledger) settle(ctx context.Context, q repository.Queries, m *presence.Machine, s *domain.Session, now time.Time, fx *effects) (bool, error) {
	st, err := load(ctx, q, s)
	if err != nil {
		return false, err
	}
	d, due := m.Expire(st.snapshot(), now)
	if !due {
		return false, nil
	}
	if err := l.apply(ctx, q, s, st, d, now, nil, fx); err != nil {
		return false, err
	}
	return true, nil
}

// apply persists a decision: pending rows, session closure and the tracker.
// loc is the location of the sample that produced d, if any.
func (l *Ledger) apply(ctx context.Context, q repository.Queries, s *domain.Session, st state, d presence.Decision, now time.Time, loc *domain.Location, fx *effects) error {
	switch d.Effect {
	case presence.EffectOpenCountdown:
		p := &domain.Pending{
			ID:         l.newID(),
			SessionID:  s.ID,
			EmployeeID: s.EmployeeID,
			CompanyID:  s.CompanyID,
			Reason:     d.Next.Reason,
			CreatedAt:  now,
			EndsAt:     *d.Next.EndsAt,
			Status:     domain.PendingActive,
		}
		if err := q.CreatePending(ctx, p); err != nil {
			return err
		}
		fx.pendings = append(fx.pendings, p.Reason)
	case presence.EffectCancelCountdown:
		if st.pending != nil {
			if _, err := q.ResolvePending(ctx, s.CompanyID, st.pending.ID, domain.PendingCancelled, domain.CancelRecovered, now); err != nil {
				return err
			}
		}
	case presence.EffectExpire:
		if err := l.expire(ctx, q, s, st.pending, now, loc, fx); err != nil {
			return err
		}
	}

	prev := st.tracker.State
	tr := *st.tracker
	tr.State = d.Next.State
	tr.Reason = d.Next.Reason
	tr.OutsideStreak = d.Next.OutsideStreak
	tr.RecoverStreak = d.Next.RecoverStreak
	tr.UpdatedAt = now
	if err := q.SaveTracker(ctx, &tr); err != nil {
		return err
	}
	*st.tracker = tr
	if d.Changed() {
		fx.event(telemetrydomain.New(telemetrydomain.EventTransition, eventSource, s.CompanyID, s.EmployeeID, s.ID,
			map[string]any{"from": prev, "path": d.Path, "reason": d.Next.Reason, "action": d.Action}, now))
	}
	return nil
}

// expire marks the pending DONE and closes the session as AUTO with the pending's reason.
// check_out_at is the deadline itself, so a late observation does not extend the session.
func (l *Ledger) expire(ctx context.Context, q repository.Queries, s *domain.Session, p *domain.Pending, now time.Time, loc *domain.Location, fx *effects) error {
	if p == nil {
		return fmt.Errorf("expire session %s: no active pending", s.ID)
	}
	ok, err := q.ResolvePending(ctx, s.CompanyID, p.ID, domain.PendingDone, "", now)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrConflict
	}
	closure := domain.Closure{At: p.EndsAt, Type: domain.CheckoutAuto, Reason: p.Reason, Location: loc}
	closed, err := q.CloseSession(ctx, s.CompanyID, s.ID, closure)
	if err != nil {
		return err
	}
	if !closed {
		return domain.ErrConflict
	}
	log.Printf("attendance: auto-checkout session %s employee %s reason %s", s.ID, s.EmployeeID, p.Reason)
	fx.autoCheckout(s, closure, p)
	return nil
}
