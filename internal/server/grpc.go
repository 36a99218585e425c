package server

import (
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	adminv1 "presence-engine/api/admin/v1"
	attendancev1 "presence-engine/api/attendance/v1"
	attendancehandler "presence-engine/internal/attendance/handler"
	auditrepo "presence-engine/internal/audit/repository"
	healthhandler "presence-engine/internal/health/handler"
	"presence-engine/internal/platform/rbac"
	"presence-engine/internal/server/interceptors"
	"presence-engine/internal/telemetry"
)

// PublicMethods do not require an access token.
var PublicMethods = map[string]bool{
	healthpb.Health_Check_FullMethodName: true,
	healthpb.Health_Watch_FullMethodName: true,
	healthpb.Health_List_FullMethodName:  true,
}

// auditSkip lists RPCs not written to the audit trail by the interceptor. Heartbeats are too
// frequent; the ledger audits the outcomes that matter (check-in, check-out, auto-checkout).
var auditSkip = map[string]bool{
	attendancev1.AttendanceService_Heartbeat_FullMethodName:   true,
	attendancev1.AttendanceService_GetPresence_FullMethodName: true,
	healthpb.Health_Check_FullMethodName:                      true,
	healthpb.Health_Watch_FullMethodName:                      true,
	healthpb.Health_List_FullMethodName:                       true,
}

// Deps holds optional service dependencies for gRPC handlers.
type Deps struct {
	// Attendance serves the device API. If nil, attendance RPCs return Unimplemented.
	Attendance attendancehandler.Attendance
	// Actors resolves the caller for admin RPCs (usually the tenant scope).
	Actors rbac.ActorResolver
	// History is the read side of the attendance store. If nil, admin history RPCs return Unimplemented.
	History attendancehandler.History
	// AuditRepo backs ListAuditLogs and the audit interceptor. If nil, ListAuditLogs returns Unimplemented and no RPCs are audited.
	AuditRepo auditrepo.Repository
	// HealthPinger is used by the health service for readiness (the attendance store). If nil, the DB ping is skipped.
	HealthPinger healthhandler.Pinger
	// HealthPolicyChecker is used by the health service for readiness (OPA evaluator). If nil, the policy check is skipped.
	HealthPolicyChecker healthhandler.PolicyChecker
}

// RegisterServices registers all gRPC services with the given server.
//
// Service → handler mapping:
//   - AttendanceService      → internal/attendance/handler (Server)
//   - AttendanceAdminService → internal/attendance/handler (AdminServer)
//   - grpc.health.v1.Health  → internal/health/handler
func RegisterServices(s grpc.ServiceRegistrar, deps Deps) {
	attendancev1.RegisterAttendanceServiceServer(s, attendancehandler.NewServer(deps.Attendance))
	adminv1.RegisterAttendanceAdminServiceServer(s, attendancehandler.NewAdminServer(deps.Actors, deps.History, deps.AuditRepo))
	healthpb.RegisterHealthServer(s, healthhandler.NewServer(deps.HealthPinger, deps.HealthPolicyChecker))
}

// Options configures the interceptor chain of NewGRPCServer.
type Options struct {
	// Tokens validates bearer tokens. Required.
	Tokens interceptors.AccessValidator
	// AuditRepo enables the audit interceptor when set.
	AuditRepo auditrepo.Repository
	// Events receives a grpc_request event per authenticated RPC when set.
	Events telemetry.EventEmitter
}

// NewGRPCServer returns a server with otelgrpc tracing and the auth, audit and telemetry
// interceptors, in that order.
func NewGRPCServer(opts Options, extra ...grpc.ServerOption) *grpc.Server {
	chain := []grpc.UnaryServerInterceptor{interceptors.AuthUnary(opts.Tokens, PublicMethods)}
	if opts.AuditRepo != nil {
		chain = append(chain, interceptors.AuditUnary(opts.AuditRepo, auditSkip))
	}
	if opts.Events != nil {
		chain = append(chain, interceptors.TelemetryUnary(opts.Events, PublicMethods))
	}
	serverOpts := append([]grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(chain...),
	}, extra...)
	return grpc.NewServer(serverOpts...)
}
