package apperror

import "net/http"

type Code string

const (
	CodeUnknown                  Code = "UNKNOWN"
	CodeInvalidArgument          Code = "INVALID_ARGUMENT"
	CodeNotFound                 Code = "NOT_FOUND"
	CodePermissionDenied         Code = "PERMISSION_DENIED"
	CodeUnauthenticated          Code = "UNAUTHENTICATED"
	CodeNotParticipant           Code = "NOT_PARTICIPANT"
	CodeInvalidReply             Code = "INVALID_REPLY"
	CodeMalformedFrame           Code = "MALFORMED_FRAME"
	CodeRateLimited              Code = "RATE_LIMITED"
	CodeTransientDeliveryFailure Code = "TRANSIENT_DELIVERY_FAILURE"
	CodeInternal                 Code = "INTERNAL"
)

var httpStatus = map[Code]int{
	CodeInvalidArgument:          http.StatusBadRequest,
	CodeNotFound:                 http.StatusNotFound,
	CodePermissionDenied:         http.StatusForbidden,
	CodeUnauthenticated:          http.StatusUnauthorized,
	CodeNotParticipant:           http.StatusForbidden,
	CodeInvalidReply:             http.StatusBadRequest,
	CodeMalformedFrame:           http.StatusBadRequest,
	CodeRateLimited:              http.StatusTooManyRequests,
	CodeTransientDeliveryFailure: http.StatusBadGateway,
	CodeInternal:                 http.StatusInternalServerError,
}

// HTTPStatus maps an error to the status code a handler should respond with.
// Errors outside the taxonomy are treated as internal.
func HTTPStatus(err error) int {
	if status, ok := httpStatus[CodeOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}
