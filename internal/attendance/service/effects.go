package service

import (
	"context"
	"fmt"

	"presence-engine/internal/attendance/domain"
	"presence-engine/internal/audit"
	"presence-engine/internal/notify"
	"presence-engine/internal/telemetry"
	telemetrydomain "presence-engine/internal/telemetry/domain"
	presenceotel "presence-engine/internal/telemetry/otel"
)

// eventSource tags events produced by the engine.
const eventSource = "presence-engine"

// Sinks are the best-effort side channels fed after a transaction commits. Any field may be nil.
type Sinks struct {
	Events   telemetry.EventEmitter
	Notifier notify.Dispatcher
	Audit    audit.AuditLogger
	Metrics  *presenceotel.Metrics
}

type auditEntry struct {
	companyID, employeeID, action, metadata string
}

// effects collects what a transaction wants published. Nothing is published when it rolls back.
type effects struct {
	events   []*telemetrydomain.Event
	audits   []auditEntry
	notices  []notify.Notification
	pendings []domain.Reason
	autos    []domain.Reason
}

func (fx *effects) event(e *telemetrydomain.Event) {
	fx.events = append(fx.events, e)
}

func (fx *effects) audit(companyID, employeeID, action, metadata string) {
	fx.audits = append(fx.audits, auditEntry{companyID: companyID, employeeID: employeeID, action: action, metadata: metadata})
}

// autoCheckout records an engine-initiated checkout for every channel.
func (fx *effects) autoCheckout(s *domain.Session, c domain.Closure, p *domain.Pending) {
	fx.autos = append(fx.autos, c.Reason)
	fx.notices = append(fx.notices, notify.Notification{
		CompanyID:    s.CompanyID,
		EmployeeID:   s.EmployeeID,
		SessionID:    s.ID,
		Reason:       string(c.Reason),
		CheckedOutAt: c.At,
	})
	fx.audit(s.CompanyID, s.EmployeeID, audit.ActionAutoCheckout,
		fmt.Sprintf(`{"session_id":%q,"pending_id":%q,"reason":%q}`, s.ID, p.ID, c.Reason))
	fx.event(telemetrydomain.New(telemetrydomain.EventAutoCheckout, eventSource, s.CompanyID, s.EmployeeID, s.ID,
		map[string]any{"reason": c.Reason, "pending_id": p.ID, "ends_at": p.EndsAt}, c.At))
}

// publish feeds the sinks. Audit rows are written synchronously; the rest is asynchronous.
func (s Sinks) publish(ctx context.Context, fx *effects) {
	for _, e := range fx.events {
		telemetry.EmitAsync(s.Events, ctx, e)
	}
	if s.Audit != nil {
		for _, a := range fx.audits {
			s.Audit.LogEvent(ctx, a.companyID, a.employeeID, a.action, audit.ResourceSession, a.metadata)
		}
	}
	for _, n := range fx.notices {
		notify.DispatchAsync(s.Notifier, n)
	}
	for _, r := range fx.pendings {
		s.Metrics.PendingCreated(ctx, string(r))
	}
	for _, r := range fx.autos {
		s.Metrics.AutoCheckout(ctx, string(r))
	}
}
