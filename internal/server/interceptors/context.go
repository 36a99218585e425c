package interceptors

import "context"

type contextKey struct{ name string }

var (
	employeeIDKey = contextKey{"employee_id"}
	companyIDKey  = contextKey{"company_id"}
	tokenIDKey    = contextKey{"token_id"}
)

// WithIdentity returns a context carrying the authenticated employee, the company claimed by
// the token and the token id. The company claim is a hint; tenant.Scope resolves the
// authoritative company from the employee record.
func WithIdentity(ctx context.Context, employeeID, companyID, tokenID string) context.Context {
	ctx = context.WithValue(ctx, employeeIDKey, employeeID)
	ctx = context.WithValue(ctx, companyIDKey, companyID)
	ctx = context.WithValue(ctx, tokenIDKey, tokenID)
	return ctx
}

// GetEmployeeID returns the employee_id from context and true if set; otherwise "", false.
func GetEmployeeID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(employeeIDKey).(string)
	return v, ok
}

// GetCompanyID returns the company_id claim from context and true if set; otherwise "", false.
func GetCompanyID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(companyIDKey).(string)
	return v, ok
}

// GetTokenID returns the token id (jti) from context and true if set; otherwise "", false.
func GetTokenID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(tokenIDKey).(string)
	return v, ok
}
