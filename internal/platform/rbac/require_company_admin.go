package rbac

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"presence-engine/internal/attendance/domain"
	"presence-engine/internal/tenant"
)

// ActorResolver resolves the authenticated caller. *tenant.Scope implements it.
type ActorResolver interface {
	Resolve(ctx context.Context) (*tenant.Actor, error)
}

// RequireCompanyAdmin ensures the caller is an active owner or admin of their company.
// Returns the actor on success; returns a gRPC error (Unauthenticated, PermissionDenied or Internal) on failure.
func RequireCompanyAdmin(ctx context.Context, r ActorResolver) (*tenant.Actor, error) {
	a, err := RequireCompanyMember(ctx, r)
	if err != nil {
		return nil, err
	}
	if !a.IsAdmin() {
		return nil, status.Error(codes.PermissionDenied, "company admin or owner required")
	}
	return a, nil
}

// RequireCompanyMember ensures the caller is an active employee of the company its token claims.
func RequireCompanyMember(ctx context.Context, r ActorResolver) (*tenant.Actor, error) {
	a, err := r.Resolve(ctx)
	if err == nil {
		return a, nil
	}
	var de *domain.Error
	if !errors.As(err, &de) {
		return nil, status.Error(codes.Internal, "failed to resolve employee")
	}
	if de.Kind == domain.KindUnauthenticated {
		return nil, status.Error(codes.Unauthenticated, "employee context required")
	}
	return nil, status.Error(codes.PermissionDenied, de.Message)
}
