// Package app assembles the presence engine from configuration: store, settings, policy,
// telemetry sinks, the attendance services and the gRPC server. cmd/server and presencectl share it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"

	"google.golang.org/grpc"

	"presence-engine/internal/attendance/repository"
	"presence-engine/internal/attendance/service"
	"presence-engine/internal/audit"
	auditrepo "presence-engine/internal/audit/repository"
	"presence-engine/internal/clock"
	"presence-engine/internal/config"
	"presence-engine/internal/db"
	"presence-engine/internal/notify"
	"presence-engine/internal/policy/engine"
	"presence-engine/internal/presencesettings"
	settingsrepo "presence-engine/internal/presencesettings/repository"
	"presence-engine/internal/security"
	"presence-engine/internal/server"
	"presence-engine/internal/server/interceptors"
	"presence-engine/internal/telemetry"
	presenceotel "presence-engine/internal/telemetry/otel"
	"presence-engine/internal/telemetry/producer"
	"presence-engine/internal/tenant"
)

// App holds the wired engine. Close releases everything Build opened.
type App struct {
	Config    *config.Config
	Store     *repository.SQLStore
	AuditRepo auditrepo.Repository
	Scope     *tenant.Scope
	Policy    *engine.OPAEvaluator
	Ledger    *service.Ledger
	Gateway   *service.Gateway
	Sweeper   *service.Sweeper
	Events    telemetry.EventEmitter

	providers *presenceotel.Providers
	closers   []func() error
}

// DSN returns the connection string for the configured store driver.
func DSN(cfg *config.Config) string {
	if cfg.Dialect() == db.DialectSQLite {
		return cfg.SQLitePath
	}
	return cfg.DatabaseURL
}

// Build opens the store and wires the services. The caller must call Close.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}
	ok := false
	defer func() {
		if !ok {
			_ = a.Close(context.Background())
		}
	}()

	providers, err := presenceotel.NewProviders(ctx, presenceotel.Config{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: cfg.OTelServiceName,
		Insecure:    cfg.OTLPInsecure,
	})
	if err != nil {
		return nil, fmt.Errorf("otel: %w", err)
	}
	providers.SetGlobal()
	a.providers = providers
	metrics, err := presenceotel.NewMetrics(providers.MeterProvider)
	if err != nil {
		return nil, fmt.Errorf("otel metrics: %w", err)
	}

	store, err := repository.Open(cfg.Dialect(), DSN(cfg), cfg.DBPool())
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	a.Store = store
	a.closers = append(a.closers, store.Close)

	a.Policy, err = engine.NewOPAEvaluator(ctx)
	if err != nil {
		return nil, fmt.Errorf("policy: %w", err)
	}

	emitters := telemetry.MultiEmitter{presenceotel.NewEventEmitter(providers.LoggerProvider)}
	kp, err := producer.NewKafkaProducer(cfg.KafkaBrokersList(), cfg.PresenceEventsTopic)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	if kp != nil {
		emitters = append(emitters, kp)
		a.closers = append(a.closers, kp.Close)
		log.Printf("app: presence events to kafka topic %s", cfg.PresenceEventsTopic)
	}
	a.Events = emitters

	var notifier notify.Dispatcher
	if d := notify.NewKafkaDispatcher(cfg.KafkaBrokersList(), cfg.NotificationsTopic); d != nil {
		notifier = d
		a.closers = append(a.closers, d.Close)
	}

	a.AuditRepo = auditrepo.NewSQLRepository(store.DB(), store.Dialect())
	settings := presencesettings.NewCache(settingsrepo.NewSQLRepository(store.DB(), store.Dialect()), cfg.SettingsDefaults(), cfg.SettingsTTL())
	a.Scope = tenant.NewScope(store)

	a.Ledger = service.NewLedger(store, a.Scope, settings, a.Policy, clock.System{}, service.Sinks{
		Events:   a.Events,
		Notifier: notifier,
		Audit:    audit.NewLogger(a.AuditRepo, interceptors.ClientIP),
		Metrics:  metrics,
	})
	a.Gateway = service.NewGateway(a.Ledger)
	a.Sweeper = service.NewSweeper(a.Ledger, store, cfg.SweepBatchSize)

	ok = true
	return a, nil
}

// GRPCServer returns a gRPC server with every service registered. Access tokens are verified
// with JWT_PUBLIC_KEY (or the key derived from JWT_PRIVATE_KEY).
func (a *App) GRPCServer() (*grpc.Server, error) {
	signer, pub, err := security.LoadKeys(a.Config.JWTPrivateKey, a.Config.JWTPublicKey)
	if err != nil {
		return nil, fmt.Errorf("jwt keys: %w", err)
	}
	tokens := security.NewTokenProvider(signer, pub, a.Config.JWTIssuer, a.Config.JWTAudience, a.Config.AccessTTL())
	s := server.NewGRPCServer(server.Options{Tokens: tokens, AuditRepo: a.AuditRepo, Events: a.Events})
	server.RegisterServices(s, server.Deps{
		Attendance:          a.Gateway,
		Actors:              a.Scope,
		History:             a.Store,
		AuditRepo:           a.AuditRepo,
		HealthPinger:        a.Store,
		HealthPolicyChecker: a.Policy,
	})
	return s, nil
}

// Close flushes telemetry and closes producers and the store, newest first.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if a.providers != nil {
		if err := a.providers.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
		a.providers = nil
	}
	return errors.Join(errs...)
}
