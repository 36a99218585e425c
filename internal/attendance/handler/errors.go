package handler

import (
	"context"
	"errors"
	"log"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"presence-engine/internal/attendance/domain"
)

// errorDomain is the ErrorInfo domain attached to every mapped error.
const errorDomain = "presence-engine"

// toStatus maps domain errors to gRPC status errors. The domain code travels as
// ErrorInfo.Reason so clients can render a precise message. Unknown errors become Internal
// and are logged; their text is not sent to the client.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if s, ok := status.FromError(err); ok {
		return s.Err()
	}
	var de *domain.Error
	if !errors.As(err, &de) {
		switch {
		case errors.Is(err, context.Canceled):
			return status.Error(codes.Canceled, "request canceled")
		case errors.Is(err, context.DeadlineExceeded):
			return status.Error(codes.DeadlineExceeded, "deadline exceeded")
		}
		log.Printf("attendance: internal error: %v", err)
		return status.Error(codes.Internal, "internal error")
	}
	st := status.New(codeOf(de), de.Message)
	if detailed, derr := st.WithDetails(&errdetails.ErrorInfo{Reason: de.Code, Domain: errorDomain}); derr == nil {
		st = detailed
	}
	return st.Err()
}

func codeOf(de *domain.Error) codes.Code {
	switch de.Kind {
	case domain.KindValidation:
		return codes.InvalidArgument
	case domain.KindAuthorization:
		return codes.PermissionDenied
	case domain.KindNotFound:
		return codes.NotFound
	case domain.KindUnauthenticated:
		return codes.Unauthenticated
	case domain.KindConflict:
		switch de.Code {
		case domain.ErrAlreadyCheckedIn.Code:
			return codes.AlreadyExists
		case domain.ErrConflict.Code:
			return codes.Aborted
		default:
			return codes.FailedPrecondition
		}
	default:
		return codes.Internal
	}
}

// ReasonOf returns the ErrorInfo reason carried by a status error, or "".
func ReasonOf(err error) string {
	s, ok := status.FromError(err)
	if !ok {
		return ""
	}
	for _, d := range s.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok {
			return info.GetReason()
		}
	}
	return ""
}
