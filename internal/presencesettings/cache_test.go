package presencesettings

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"presence-engine/internal/presencesettings/domain"
)

type mockRepo struct {
	mu       sync.Mutex
	settings map[string]*domain.Settings
	calls    int
	err      error
}

func (m *mockRepo) GetByCompanyID(ctx context.Context, companyID string) (*domain.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.settings[companyID], nil
}

func (m *mockRepo) Upsert(ctx context.Context, companyID string, s *domain.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[companyID] = s
	return nil
}

func TestCache_MergesDefaults(t *testing.T) {
	repo := &mockRepo{settings: map[string]*domain.Settings{"c1": {EscalateReadings: 7}}}
	c := NewCache(repo, domain.Defaults(), time.Minute)

	got, err := c.Get(context.Background(), "c1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.EscalateReadings != 7 || got.ConfirmReadings != domain.Defaults().ConfirmReadings {
		t.Errorf("Get = %+v, want merged settings", *got)
	}

	missing, err := c.Get(context.Background(), "c2")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if *missing != domain.Defaults() {
		t.Errorf("Get for unknown company = %+v, want defaults", *missing)
	}
}

func TestCache_HitsUntilExpiry(t *testing.T) {
	repo := &mockRepo{settings: map[string]*domain.Settings{}}
	c := NewCache(repo, domain.Defaults(), time.Minute)
	now := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	c.nowF = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := c.Get(ctx, "c1"); err != nil {
			t.Fatalf("Get: %v", err)
		}
	}
	if repo.calls != 1 {
		t.Errorf("repository calls = %d, want 1", repo.calls)
	}

	now = now.Add(time.Minute)
	if _, err := c.Get(ctx, "c1"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if repo.calls != 2 {
		t.Errorf("repository calls after expiry = %d, want 2", repo.calls)
	}
}

func TestCache_Invalidate(t *testing.T) {
	repo := &mockRepo{settings: map[string]*domain.Settings{}}
	c := NewCache(repo, domain.Defaults(), time.Hour)
	ctx := context.Background()

	if _, err := c.Get(ctx, "c1"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	_ = repo.Upsert(ctx, "c1", &domain.Settings{GraceDuration: "2m"})
	c.Invalidate("c1")

	got, err := c.Get(ctx, "c1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.GraceDuration != "2m" {
		t.Errorf("GraceDuration = %q, want 2m", got.GraceDuration)
	}
}

func TestCache_ErrorsAreNotCached(t *testing.T) {
	repo := &mockRepo{settings: map[string]*domain.Settings{}, err: errors.New("db down")}
	c := NewCache(repo, domain.Defaults(), time.Hour)
	ctx := context.Background()

	if _, err := c.Get(ctx, "c1"); err == nil {
		t.Fatal("Get should return repository error")
	}
	repo.err = nil
	if _, err := c.Get(ctx, "c1"); err != nil {
		t.Fatalf("Get after recovery: %v", err)
	}
	if repo.calls != 2 {
		t.Errorf("repository calls = %d, want 2", repo.calls)
	}
}

func TestCache_ZeroTTLDisablesCaching(t *testing.T) {
	repo := &mockRepo{settings: map[string]*domain.Settings{}}
	c := NewCache(repo, domain.Defaults(), 0)
	ctx := context.Background()
	_, _ = c.Get(ctx, "c1")
	_, _ = c.Get(ctx, "c1")
	if repo.calls != 2 {
		t.Errorf("repository calls = %d, want 2", repo.calls)
	}
}
