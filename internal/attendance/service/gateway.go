package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"presence-engine/internal/attendance/domain"
	"presence-engine/internal/attendance/repository"
	"presence-engine/internal/geofence"
	"presence-engine/internal/presence"
	telemetrydomain "presence-engine/internal/telemetry/domain"
	"presence-engine/internal/tenant"
)

// MaxSampleSkew is how far a device's sampled_at may run ahead of server time. Later stamps
// are replaced by the server time so one skewed clock cannot mark every following sample stale.
const MaxSampleSkew = 5 * time.Second

// Gateway turns device heartbeats into presence decisions. It shares the Ledger's store and
// settlement logic, so an expired countdown is closed by whichever call observes it first.
type Gateway struct {
	*Ledger
}

// NewGateway returns a Gateway over l.
func NewGateway(l *Ledger) *Gateway {
	return &Gateway{Ledger: l}
}

// Heartbeat classifies one sample and advances the session's presence machine.
//
// A sample whose SampledAt is not after the last accepted one is a duplicate or arrived out of
// order: it changes no counters and the current status is returned. An expired deadline is
// still settled, since deadlines only depend on server time. Failures roll back and leave the
// persisted state untouched.
func (g *Gateway) Heartbeat(ctx context.Context, req HeartbeatRequest) (*PresenceStatus, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	actor, err := g.scope.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	settings, err := g.settings.Get(ctx, actor.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	machine := machineFor(actor.CompanyID, settings)
	now := g.clock.Now()
	sampledAt := req.SampledAt.UTC()
	if req.SampledAt.IsZero() {
		sampledAt = now
	} else if sampledAt.After(now.Add(MaxSampleSkew)) {
		log.Printf("attendance: session %s sample stamped %s is ahead of server time %s, using server time",
			req.SessionID, sampledAt.Format(time.RFC3339), now.Format(time.RFC3339))
		sampledAt = now
	}

	var (
		fx     effects
		out    *PresenceStatus
		result geofence.Result
	)
	err = g.store.WithinEmployee(ctx, actor.CompanyID, actor.EmployeeID, func(q repository.Queries) error {
		s, err := q.GetSession(ctx, actor.CompanyID, req.SessionID)
		if err != nil {
			return err
		}
		if err := tenant.RequireOwnSession(actor, s); err != nil {
			return err
		}
		if !s.IsOpen() {
			out = closedStatus(s, now)
			return nil
		}
		st, err := load(ctx, q, s)
		if err != nil {
			return err
		}

		last := st.tracker.LastSampledAt
		if last != nil && last.After(now.Add(MaxSampleSkew)) {
			// A stored stamp beyond the skew is untrusted and would mark every sample stale.
			last = nil
		}
		if last != nil && !sampledAt.After(*last) {
			d, due := machine.Expire(st.snapshot(), now)
			if due {
				if err := g.apply(ctx, q, s, st, d, now, nil, &fx); err != nil {
					return err
				}
			}
			out = statusOf(s.ID, d, now)
			return nil
		}

		branch, err := q.GetBranch(ctx, actor.CompanyID, actor.BranchID)
		if err != nil {
			return err
		}
		if branch == nil {
			return domain.ErrTenantMismatch
		}
		window, err := q.ActiveFreeTask(ctx, actor.CompanyID, actor.EmployeeID, now)
		if err != nil {
			return err
		}
		if window != nil {
			if err := tenant.RequireSameCompany(actor, window.CompanyID); err != nil {
				return err
			}
		}

		result = geofence.Evaluate(req.Fix.sample(), branch, window != nil, settings.GeofenceOptions())
		d := machine.Step(st.snapshot(), result.Classification, now)
		st.tracker.LastSampledAt = &sampledAt
		if err := g.apply(ctx, q, s, st, d, now, req.Fix.location(), &fx); err != nil {
			return err
		}
		out = statusOf(s.ID, d, now)
		out.Classification = result.Classification
		out.DistanceM = result.DistanceM

		fx.event(telemetrydomain.New(telemetrydomain.EventHeartbeat, eventSource, s.CompanyID, s.EmployeeID, s.ID,
			map[string]any{
				"lat":            req.Fix.Lat,
				"lng":            req.Fix.Lng,
				"accuracy_m":     req.Fix.AccuracyM,
				"gps_ok":         req.Fix.GPSOK,
				"classification": result.Classification,
				"distance_m":     result.DistanceM,
				"sampled_at":     sampledAt,
				"state":          d.Next.State,
			}, now))
		return nil
	})
	if err != nil {
		log.Printf("attendance: heartbeat for session %s employee %s failed: %v", req.SessionID, actor.EmployeeID, err)
		return nil, err
	}
	if result.Classification != "" {
		g.sinks.Metrics.Heartbeat(ctx, string(result.Classification))
	}
	g.sinks.publish(ctx, &fx)
	return out, nil
}

// GetPresence returns the current status of sessionID, or of the caller's open session when
// sessionID is empty. It consumes no sample; an expired deadline observed here is settled.
func (g *Gateway) GetPresence(ctx context.Context, sessionID string) (*PresenceStatus, error) {
	actor, err := g.scope.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	settings, err := g.settings.Get(ctx, actor.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	machine := machineFor(actor.CompanyID, settings)
	now := g.clock.Now()

	var (
		fx  effects
		out *PresenceStatus
	)
	err = g.store.WithinEmployee(ctx, actor.CompanyID, actor.EmployeeID, func(q repository.Queries) error {
		var s *domain.Session
		var err error
		if sessionID == "" {
			s, err = q.GetOpenSession(ctx, actor.CompanyID, actor.EmployeeID)
			if err == nil && s == nil {
				return domain.NotFound("open session")
			}
		} else {
			s, err = q.GetSession(ctx, actor.CompanyID, sessionID)
		}
		if err != nil {
			return err
		}
		if err := tenant.RequireOwnSession(actor, s); err != nil {
			return err
		}
		if !s.IsOpen() {
			out = closedStatus(s, now)
			return nil
		}
		st, err := load(ctx, q, s)
		if err != nil {
			return err
		}
		d, due := machine.Expire(st.snapshot(), now)
		if due {
			if err := g.apply(ctx, q, s, st, d, now, nil, &fx); err != nil {
				return err
			}
		}
		out = statusOf(s.ID, d, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	g.sinks.publish(ctx, &fx)
	return out, nil
}

func statusOf(sessionID string, d presence.Decision, now time.Time) *PresenceStatus {
	return &PresenceStatus{
		SessionID:  sessionID,
		Status:     d.Next.State,
		Reason:     d.Next.Reason,
		EndsAt:     d.Next.EndsAt,
		Action:     d.Action,
		ServerTime: now,
	}
}

func closedStatus(s *domain.Session, now time.Time) *PresenceStatus {
	return &PresenceStatus{
		SessionID:  s.ID,
		Status:     domain.StateCheckedOut,
		Reason:     s.CheckoutReason,
		Action:     domain.ActionNone,
		ServerTime: now,
	}
}
