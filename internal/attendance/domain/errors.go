package domain

// Kind groups errors by how callers must react to them.
type Kind int

const (
	// KindValidation is a malformed request.
	KindValidation Kind = iota + 1
	// KindAuthorization is a tenant mismatch or an inactive employee.
	KindAuthorization
	// KindConflict is a lifecycle conflict such as a duplicate open session.
	KindConflict
	// KindNotFound is a missing row, including rows owned by another company.
	KindNotFound
	// KindUnauthenticated is a call without a usable principal.
	KindUnauthenticated
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Error is a hard error with a stable code the client renders a message for.
// Presence classifications are never reported as errors.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return e.Code + ": " + e.Message
}

// Is matches any *Error with the same code, so wrapped or re-messaged errors still match the sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Sentinel errors; the gRPC handler maps Kind to a status code and Code to ErrorInfo.Reason.
var (
	ErrInvalidArgument  = &Error{Kind: KindValidation, Code: "INVALID_ARGUMENT", Message: "invalid argument"}
	ErrTenantMismatch   = &Error{Kind: KindAuthorization, Code: "TENANT_MISMATCH", Message: "referenced entity belongs to another company"}
	ErrEmployeeInactive = &Error{Kind: KindAuthorization, Code: "EMPLOYEE_INACTIVE", Message: "employee is not active"}
	ErrAlreadyCheckedIn = &Error{Kind: KindConflict, Code: "ALREADY_CHECKED_IN", Message: "an open session already exists"}
	ErrOutsideBranch    = &Error{Kind: KindConflict, Code: "OUTSIDE_BRANCH", Message: "location is outside the branch geofence"}
	ErrGPSRequired      = &Error{Kind: KindConflict, Code: "GPS_REQUIRED", Message: "a precise GPS fix is required to check in"}
	ErrNoOpenSession    = &Error{Kind: KindConflict, Code: "NO_OPEN_SESSION", Message: "session is already closed"}
	ErrNotFound         = &Error{Kind: KindNotFound, Code: "NOT_FOUND", Message: "not found"}
	ErrUnauthenticated  = &Error{Kind: KindUnauthenticated, Code: "UNAUTHENTICATED", Message: "no authenticated employee"}
	// ErrConflict is a storage constraint violation raced past the application checks.
	ErrConflict = &Error{Kind: KindConflict, Code: "CONFLICT", Message: "concurrent update, retry"}
)

// Invalid returns a validation error with a specific message.
func Invalid(msg string) *Error {
	return &Error{Kind: KindValidation, Code: ErrInvalidArgument.Code, Message: msg}
}

// NotFound returns a not-found error naming the missing resource.
func NotFound(resource string) *Error {
	return &Error{Kind: KindNotFound, Code: ErrNotFound.Code, Message: resource + " not found"}
}
