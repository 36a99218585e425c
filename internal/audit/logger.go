package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"presence-engine/internal/audit/domain"
	auditrepo "presence-engine/internal/audit/repository"
)

// Ledger actions recorded by the engine itself.
const (
	ActionCheckIn      = "check_in"
	ActionCheckOut     = "check_out"
	ActionAutoCheckout = "auto_checkout"

	ResourceSession = "attendance_session"
)

// IPExtractor returns the client IP from the request context (e.g. gRPC metadata or peer).
type IPExtractor func(context.Context) string

// AuditLogger writes a single audit event with explicit action/resource.
// LogEvent is best-effort: failures are logged and do not affect the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, companyID, employeeID, action, resource, metadata string)
}

// Logger implements AuditLogger using the audit repository and an optional IP extractor.
type Logger struct {
	repo        auditrepo.Repository
	ipExtractor IPExtractor
	nowF        func() time.Time
}

// NewLogger returns an AuditLogger that persists to repo. ipExtractor may be nil; then IP is
// recorded as "unknown" (sweeper-driven events have no client).
func NewLogger(repo auditrepo.Repository, ipExtractor IPExtractor) *Logger {
	return &Logger{repo: repo, ipExtractor: ipExtractor, nowF: time.Now}
}

// LogEvent writes one audit log entry. Events without a company are dropped: every row is tenant-owned.
func (l *Logger) LogEvent(ctx context.Context, companyID, employeeID, action, resource, metadata string) {
	if l == nil || l.repo == nil {
		return
	}
	if companyID == "" {
		log.Printf("audit: dropping %s/%s without company", action, resource)
		return
	}
	ip := "unknown"
	if l.ipExtractor != nil {
		ip = l.ipExtractor(ctx)
	}
	entry := &domain.AuditLog{
		ID:         uuid.New().String(),
		CompanyID:  companyID,
		EmployeeID: employeeID,
		Action:     action,
		Resource:   resource,
		IP:         ip,
		Metadata:   metadata,
		CreatedAt:  l.nowF().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		log.Printf("audit: failed to log event %s/%s: %v", action, resource, err)
	}
}
