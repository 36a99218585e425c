package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"presence-engine/internal/telemetry/domain"
)

// mockEventEmitter implements EventEmitter for tests.
type mockEventEmitter struct {
	mu      sync.Mutex
	events  []*domain.Event
	emitErr error
}

func (m *mockEventEmitter) Emit(ctx context.Context, event *domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return m.emitErr
}

func (m *mockEventEmitter) getEvents() []*domain.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.Event(nil), m.events...)
}

// waitForEvents polls until n events were emitted or a second passed.
func waitForEvents(m *mockEventEmitter, n int) []*domain.Event {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if ev := m.getEvents(); len(ev) >= n {
			return ev
		}
		time.Sleep(5 * time.Millisecond)
	}
	return m.getEvents()
}

func TestEmitAsync_NilEmitter(t *testing.T) {
	// Should not panic
	EmitAsync(nil, context.Background(), &domain.Event{CompanyID: "c-1", EventType: "test"})
}

func TestEmitAsync_NilEvent(t *testing.T) {
	emitter := &mockEventEmitter{}
	EmitAsync(emitter, context.Background(), nil)
	time.Sleep(10 * time.Millisecond)
	if events := emitter.getEvents(); len(events) != 0 {
		t.Errorf("expected 0 events, got %d", len(events))
	}
}

func TestEmitAsync_SuccessfulEmit(t *testing.T) {
	emitter := &mockEventEmitter{}
	EmitAsync(emitter, context.Background(), &domain.Event{
		CompanyID:  "c-1",
		EmployeeID: "e-1",
		EventType:  domain.EventHeartbeat,
		Source:     "test",
	})
	events := waitForEvents(emitter, 1)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].CompanyID != "c-1" {
		t.Errorf("event company_id = %q, want %q", events[0].CompanyID, "c-1")
	}
	if events[0].EmployeeID != "e-1" {
		t.Errorf("event employee_id = %q, want %q", events[0].EmployeeID, "e-1")
	}
}

func TestEmitAsync_UsesBackgroundContext(t *testing.T) {
	emitter := &mockEventEmitter{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	EmitAsync(emitter, ctx, &domain.Event{CompanyID: "c-1", EventType: "test"})
	if events := waitForEvents(emitter, 1); len(events) != 1 {
		t.Errorf("expected 1 event (context.Background used), got %d", len(events))
	}
}

func TestEmitAsync_ErrorIsSwallowed(t *testing.T) {
	emitter := &mockEventEmitter{emitErr: errors.New("kafka down")}
	EmitAsync(emitter, context.Background(), &domain.Event{CompanyID: "c-1", EventType: "test"})
	if events := waitForEvents(emitter, 1); len(events) != 1 {
		t.Errorf("expected 1 attempted event, got %d", len(events))
	}
}

func TestEmitAsync_ConcurrentAccess(t *testing.T) {
	emitter := &mockEventEmitter{}
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			EmitAsync(emitter, context.Background(), &domain.Event{CompanyID: "c-1", EventType: "test"})
		}()
	}
	wg.Wait()
	if events := waitForEvents(emitter, 10); len(events) != 10 {
		t.Errorf("expected 10 events, got %d", len(events))
	}
}

func TestMultiEmitter_FansOutAndJoinsErrors(t *testing.T) {
	ok := &mockEventEmitter{}
	failing := &mockEventEmitter{emitErr: errors.New("boom")}
	m := MultiEmitter{failing, nil, ok}

	err := m.Emit(context.Background(), &domain.Event{CompanyID: "c-1", EventType: "test"})
	if err == nil {
		t.Fatal("expected joined error")
	}
	if len(ok.getEvents()) != 1 || len(failing.getEvents()) != 1 {
		t.Errorf("every emitter should receive the event: ok=%d failing=%d", len(ok.getEvents()), len(failing.getEvents()))
	}
	if err := (MultiEmitter{ok}).Emit(context.Background(), &domain.Event{}); err != nil {
		t.Errorf("Emit without failures: %v", err)
	}
}

func TestNew_MarshalsMetadata(t *testing.T) {
	at := time.Date(2025, 6, 2, 9, 0, 0, 0, time.FixedZone("x", 3600))
	e := domain.New(domain.EventTransition, "gateway", "c-1", "e-1", "s-1", map[string]string{"to": "WARNING"}, at)
	if string(e.Metadata) != `{"to":"WARNING"}` {
		t.Errorf("metadata = %s", e.Metadata)
	}
	if e.CreatedAt.Location() != time.UTC {
		t.Errorf("created_at location = %v, want UTC", e.CreatedAt.Location())
	}
	if bad := domain.New("x", "y", "c", "", "", func() {}, at); bad.Metadata != nil {
		t.Errorf("unmarshalable metadata should be dropped, got %s", bad.Metadata)
	}
}
