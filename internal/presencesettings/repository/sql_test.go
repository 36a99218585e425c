package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"presence-engine/internal/db"
	"presence-engine/internal/presencesettings/domain"
)

func TestSQLRepository_UpsertAndGet(t *testing.T) {
	conn, err := db.OpenSQLite(filepath.Join(t.TempDir(), "presence.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer conn.Close()
	ctx := context.Background()
	if _, err := conn.Exec("INSERT INTO companies (id, name, created_at) VALUES ('c1', 'Acme', ?)", db.DialectSQLite.Time(time.Now())); err != nil {
		t.Fatalf("insert company: %v", err)
	}

	repo := NewSQLRepository(conn, db.DialectSQLite)
	got, err := repo.GetByCompanyID(ctx, "c1")
	if err != nil {
		t.Fatalf("GetByCompanyID: %v", err)
	}
	if got != nil {
		t.Fatalf("GetByCompanyID before upsert = %+v, want nil", got)
	}

	if err := repo.Upsert(ctx, "c1", &domain.Settings{GraceDuration: "7m", AccuracyMode: "expand"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := repo.Upsert(ctx, "c1", &domain.Settings{GraceDuration: "3m", AllowCheckInWithoutGPS: true}); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}
	got, err = repo.GetByCompanyID(ctx, "c1")
	if err != nil {
		t.Fatalf("GetByCompanyID: %v", err)
	}
	if got == nil || got.GraceDuration != "3m" || !got.AllowCheckInWithoutGPS || got.AccuracyMode != "" {
		t.Errorf("GetByCompanyID = %+v, want replaced settings", got)
	}
}

func TestSQLRepository_UnknownCompanyRejected(t *testing.T) {
	conn, err := db.OpenSQLite(filepath.Join(t.TempDir(), "presence.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer conn.Close()
	repo := NewSQLRepository(conn, db.DialectSQLite)
	if err := repo.Upsert(context.Background(), "missing", &domain.Settings{}); err == nil {
		t.Fatal("Upsert for unknown company should fail the foreign key")
	}
}
