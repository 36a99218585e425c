// seed inserts a demo company for local testing: one branch, an owner, two employees, a free-task
// window and company settings. Idempotent: skips inserts if the demo company already exists.
// With JWT_PRIVATE_KEY set it also prints access tokens for the seeded employees.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"presence-engine/internal/app"
	"presence-engine/internal/attendance/domain"
	"presence-engine/internal/attendance/repository"
	"presence-engine/internal/config"
	settingsdomain "presence-engine/internal/presencesettings/domain"
	settingsrepo "presence-engine/internal/presencesettings/repository"
	"presence-engine/internal/security"
)

// demoPolicy denies check-in outside the branch and lets GPS-blocked devices in only during a free task.
const demoPolicy = `package presence.check_in

default deny_reason := ""

deny_reason := "OUTSIDE_BRANCH" if {
	input.classification == "OUTSIDE_BRANCH"
}

deny_reason := "GPS_REQUIRED" if {
	input.classification == "GPS_BLOCKED"
	not input.free_task_active
}
`

const (
	demoCompanyID  = "demo-company"
	demoBranchID   = "demo-branch-hq"
	demoOwnerID    = "demo-owner"
	demoEmployeeID = "demo-employee"
	demoFieldID    = "demo-field-worker"
	demoFreeTaskID = "demo-free-task"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	store, err := repository.Open(cfg.Dialect(), app.DSN(cfg), cfg.DBPool())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	existing, err := store.GetCompany(ctx, demoCompanyID)
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if existing != nil {
		log.Printf("Seed already applied (%s exists). Skipping.", demoCompanyID)
		printTokens(cfg)
		os.Exit(0)
	}

	now := time.Now().UTC()
	if err := store.CreateCompany(ctx, &domain.Company{ID: demoCompanyID, Name: "Acme Demo", CreatedAt: now}); err != nil {
		log.Fatalf("create company: %v", err)
	}
	if err := store.CreateBranch(ctx, &domain.Branch{
		ID:        demoBranchID,
		CompanyID: demoCompanyID,
		Name:      "Jakarta HQ",
		Lat:       -6.2,
		Lng:       106.816666,
		RadiusM:   150,
		CreatedAt: now,
	}); err != nil {
		log.Fatalf("create branch: %v", err)
	}

	employees := []*domain.Employee{
		{ID: demoOwnerID, Name: "Olivia Owner", Role: domain.RoleOwner},
		{ID: demoEmployeeID, Name: "Eko Employee", Role: domain.RoleEmployee},
		{ID: demoFieldID, Name: "Fajar Field", Role: domain.RoleEmployee},
	}
	for _, e := range employees {
		e.CompanyID = demoCompanyID
		e.BranchID = demoBranchID
		e.Active = true
		e.CreatedAt = now
		if err := store.CreateEmployee(ctx, e); err != nil {
			log.Fatalf("create employee %s: %v", e.ID, err)
		}
	}

	if err := store.CreateFreeTask(ctx, &domain.FreeTaskWindow{
		ID:         demoFreeTaskID,
		EmployeeID: demoFieldID,
		CompanyID:  demoCompanyID,
		StartAt:    now,
		EndAt:      now.Add(30 * 24 * time.Hour),
		Note:       "client visits",
	}); err != nil {
		log.Fatalf("create free task: %v", err)
	}

	settings := cfg.SettingsDefaults()
	settings.GraceDuration = (3 * time.Minute).String()
	settings.CheckInPolicy = demoPolicy
	merged := settingsdomain.MergeWithDefaults(&settings, cfg.SettingsDefaults())
	if err := merged.Validate(); err != nil {
		log.Fatalf("demo settings: %v", err)
	}
	if err := settingsrepo.NewSQLRepository(store.DB(), store.Dialect()).Upsert(ctx, demoCompanyID, merged); err != nil {
		log.Fatalf("upsert settings: %v", err)
	}

	log.Println("Seed completed successfully.")
	printTokens(cfg)
}

func printTokens(cfg *config.Config) {
	if cfg.JWTPrivateKey == "" {
		fmt.Println("Set JWT_PRIVATE_KEY to print demo access tokens (or use presencectl token).")
		return
	}
	signer, pub, err := security.LoadKeys(cfg.JWTPrivateKey, cfg.JWTPublicKey)
	if err != nil {
		log.Fatalf("jwt keys: %v", err)
	}
	tokens := security.NewTokenProvider(signer, pub, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL())
	for _, id := range []string{demoOwnerID, demoEmployeeID, demoFieldID} {
		tok, _, exp, err := tokens.IssueAccess(id, demoCompanyID)
		if err != nil {
			log.Fatalf("issue token: %v", err)
		}
		fmt.Printf("%s (expires %s):\n%s\n", id, exp.Format(time.RFC3339), tok)
	}
}
