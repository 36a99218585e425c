package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"presence-engine/internal/attendance/domain"
	"presence-engine/internal/attendance/repository"
	"presence-engine/internal/db"
	"presence-engine/internal/notify"
	"presence-engine/internal/policy/engine"
	settingsdomain "presence-engine/internal/presencesettings/domain"
	"presence-engine/internal/server/interceptors"
	telemetrydomain "presence-engine/internal/telemetry/domain"
	"presence-engine/internal/tenant"
	"presence-engine/internal/testutil"
)

var t0 = time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

// Branch centre used by every seeded company; radius 100 m.
const (
	branchLat = -6.2
	branchLng = 106.816666
)

var (
	inside  = Fix{Lat: branchLat, Lng: branchLng, AccuracyM: 10, GPSOK: true}
	outside = Fix{Lat: branchLat - 0.01, Lng: branchLng, AccuracyM: 10, GPSOK: true} // ~1.1 km south
	noGPS   = Fix{}
)

type fixedSettings struct {
	s *settingsdomain.Settings
}

func (f fixedSettings) Get(context.Context, string) (*settingsdomain.Settings, error) {
	return f.s, nil
}

type auditRecorder struct {
	mu      sync.Mutex
	actions []string
}

func (r *auditRecorder) LogEvent(_ context.Context, companyID, employeeID, action, resource, metadata string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, companyID+"/"+action)
}

func (r *auditRecorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.actions...)
}

type noticeRecorder struct {
	ch chan notify.Notification
}

func (r *noticeRecorder) AutoCheckout(_ context.Context, n notify.Notification) error {
	r.ch <- n
	return nil
}

type eventRecorder struct {
	ch chan *telemetrydomain.Event
}

func (r *eventRecorder) Emit(_ context.Context, e *telemetrydomain.Event) error {
	r.ch <- e
	return nil
}

type stubPolicy struct {
	decision engine.CheckInDecision
	err      error
}

func (p stubPolicy) EvaluateCheckIn(context.Context, string, engine.CheckInInput) (engine.CheckInDecision, error) {
	return p.decision, p.err
}

type harness struct {
	t        *testing.T
	store    *repository.SQLStore
	clock    *testutil.FakeClock
	settings *settingsdomain.Settings
	ledger   *Ledger
	gw       *Gateway
	audit    *auditRecorder
	notices  *noticeRecorder
	events   *eventRecorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	conn, err := db.OpenSQLite(filepath.Join(t.TempDir(), "presence.db"))
	require.NoError(t, err)
	store := repository.NewSQLiteStore(conn)
	t.Cleanup(func() { _ = store.Close() })

	h := &harness{
		t:        t,
		store:    store,
		clock:    testutil.NewFakeClock(t0),
		settings: settingsdomain.MergeWithDefaults(nil, settingsdomain.Defaults()),
		audit:    &auditRecorder{},
		notices:  &noticeRecorder{ch: make(chan notify.Notification, 32)},
		events:   &eventRecorder{ch: make(chan *telemetrydomain.Event, 256)},
	}
	h.ledger = NewLedger(store, tenant.NewScope(store), fixedSettings{s: h.settings}, nil, h.clock, Sinks{
		Events:   h.events,
		Notifier: h.notices,
		Audit:    h.audit,
	})
	var seq int64
	h.ledger.newID = func() string { return fmt.Sprintf("id-%03d", atomic.AddInt64(&seq, 1)) }
	h.gw = NewGateway(h.ledger)
	return h
}

// seed creates company c-<id> with branch b-<id> and active employee e-<id>.
func (h *harness) seed(id string) *domain.Employee {
	h.t.Helper()
	ctx := context.Background()
	require.NoError(h.t, h.store.CreateCompany(ctx, &domain.Company{ID: "c-" + id, Name: id, CreatedAt: t0}))
	require.NoError(h.t, h.store.CreateBranch(ctx, &domain.Branch{
		ID: "b-" + id, CompanyID: "c-" + id, Name: "HQ", Lat: branchLat, Lng: branchLng, RadiusM: 100, CreatedAt: t0,
	}))
	e := &domain.Employee{ID: "e-" + id, CompanyID: "c-" + id, BranchID: "b-" + id, Name: id, Role: domain.RoleEmployee, Active: true, CreatedAt: t0}
	require.NoError(h.t, h.store.CreateEmployee(ctx, e))
	return e
}

func as(e *domain.Employee) context.Context {
	return interceptors.WithIdentity(context.Background(), e.ID, e.CompanyID, "tok-"+e.ID)
}

func (h *harness) checkIn(e *domain.Employee) string {
	h.t.Helper()
	res, err := h.ledger.CheckIn(as(e), CheckInRequest{Fix: inside})
	require.NoError(h.t, err)
	return res.SessionID
}

// beat advances the clock by 10s and sends fix sampled at the new time.
func (h *harness) beat(e *domain.Employee, sessionID string, fix Fix) *PresenceStatus {
	h.t.Helper()
	now := h.clock.Advance(10 * time.Second)
	st, err := h.gw.Heartbeat(as(e), HeartbeatRequest{SessionID: sessionID, Fix: fix, SampledAt: now})
	require.NoError(h.t, err)
	return st
}

func (h *harness) session(e *domain.Employee, id string) *domain.Session {
	h.t.Helper()
	s, err := h.store.GetSession(context.Background(), e.CompanyID, id)
	require.NoError(h.t, err)
	require.NotNil(h.t, s)
	return s
}

func (h *harness) pendings(e *domain.Employee, sessionID string) []*domain.Pending {
	h.t.Helper()
	ps, err := h.store.ListPendingsBySession(context.Background(), e.CompanyID, sessionID)
	require.NoError(h.t, err)
	return ps
}

func (h *harness) tracker(e *domain.Employee, sessionID string) *domain.Tracker {
	h.t.Helper()
	tr, err := h.store.GetTracker(context.Background(), e.CompanyID, sessionID)
	require.NoError(h.t, err)
	require.NotNil(h.t, tr)
	return tr
}

func (h *harness) waitNotice() notify.Notification {
	h.t.Helper()
	select {
	case n := <-h.notices.ch:
		return n
	case <-time.After(2 * time.Second):
		h.t.Fatal("timed out waiting for auto-checkout notification")
		return notify.Notification{}
	}
}
