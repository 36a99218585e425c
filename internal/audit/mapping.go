package audit

import "strings"

// ActionResource holds action and resource derived from a gRPC full method name.
type ActionResource struct {
	Action   string
	Resource string
}

// Ledger RPCs are audited with the same action names the engine uses for auto-checkouts.
const (
	attendanceCheckIn  = "/presence.attendance.v1.AttendanceService/CheckIn"
	attendanceCheckOut = "/presence.attendance.v1.AttendanceService/CheckOut"
)

// ParseFullMethod returns action and resource for a gRPC full method
// (e.g. /presence.admin.v1.AttendanceAdminService/ListSessions -> list, attendanceAdmin).
// CheckIn and CheckOut map to check_in and check_out on attendance_session.
func ParseFullMethod(fullMethod string) ActionResource {
	switch fullMethod {
	case attendanceCheckIn:
		return ActionResource{Action: ActionCheckIn, Resource: ResourceSession}
	case attendanceCheckOut:
		return ActionResource{Action: ActionCheckOut, Resource: ResourceSession}
	}
	slash := strings.LastIndex(fullMethod, "/")
	if slash < 0 {
		return ActionResource{Action: "unknown", Resource: "unknown"}
	}
	method := fullMethod[slash+1:]
	beforeSlash := fullMethod[:slash]
	dot := strings.LastIndex(beforeSlash, ".")
	if dot < 0 {
		return ActionResource{Action: strings.ToLower(method), Resource: "unknown"}
	}
	return ActionResource{Action: methodToAction(method), Resource: serviceToResource(beforeSlash[dot+1:])}
}

func serviceToResource(serviceName string) string {
	s := strings.TrimSuffix(serviceName, "Service")
	if s == "" {
		return "unknown"
	}
	return strings.ToLower(s[0:1]) + s[1:]
}

func methodToAction(method string) string {
	switch {
	case strings.HasPrefix(method, "Get") && method != "Get":
		return "get"
	case strings.HasPrefix(method, "List"):
		return "list"
	case strings.HasPrefix(method, "Create"):
		return "create"
	case strings.HasPrefix(method, "Update"):
		return "update"
	case strings.HasPrefix(method, "Delete"):
		return "delete"
	default:
		return strings.ToLower(method)
	}
}
