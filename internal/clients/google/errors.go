package google

import (
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FailureCause groups provider failures for logging and metrics.
type FailureCause string

const (
	CauseTransport FailureCause = "transport"
	CauseTimeout   FailureCause = "timeout"
	CauseHTTP      FailureCause = "http"
	CauseProvider  FailureCause = "provider"
	CauseMalformed FailureCause = "malformed"
	CauseDisabled  FailureCause = "disabled"
)

// Provider status values returned in the "status" field of web service
// responses.
const (
	StatusOK             = "OK"
	StatusZeroResults    = "ZERO_RESULTS"
	StatusRequestDenied  = "REQUEST_DENIED"
	StatusOverDailyLimit = "OVER_DAILY_LIMIT"
	StatusOverQueryLimit = "OVER_QUERY_LIMIT"
	StatusInvalidRequest = "INVALID_REQUEST"
	StatusNotFound       = "NOT_FOUND"
	StatusUnknownError   = "UNKNOWN_ERROR"
)

// DirectionsError describes why a provider call did not yield a route.
type DirectionsError struct {
	Cause      FailureCause
	Status     string
	HTTPStatus int
	Message    string
	Err        error
}

func (e *DirectionsError) Error() string {
	msg := fmt.Sprintf("google %s failure", e.Cause)
	if e.Status != "" {
		msg += " (" + e.Status + ")"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DirectionsError) Unwrap() error {
	return e.Err
}

// Code maps the failure onto a gRPC status code.
func (e *DirectionsError) Code() codes.Code {
	switch e.Cause {
	case CauseTransport:
		return codes.Unavailable
	case CauseTimeout:
		return codes.DeadlineExceeded
	case CauseMalformed:
		return codes.DataLoss
	case CauseDisabled:
		return codes.FailedPrecondition
	case CauseHTTP:
		if e.HTTPStatus >= 500 {
			return codes.Internal
		}
		return codes.Unknown
	case CauseProvider:
		switch e.Status {
		case StatusRequestDenied:
			return codes.PermissionDenied
		case StatusOverDailyLimit, StatusOverQueryLimit:
			return codes.ResourceExhausted
		case StatusInvalidRequest:
			return codes.InvalidArgument
		case StatusZeroResults, StatusNotFound:
			return codes.NotFound
		default:
			return codes.Internal
		}
	}
	return codes.Unknown
}

// GRPCStatus lets status.Code and status.FromError read the failure.
func (e *DirectionsError) GRPCStatus() *status.Status {
	return status.New(e.Code(), e.Error())
}

// Label is a short stable name for metrics and logs, the provider status
// when there is one.
func (e *DirectionsError) Label() string {
	if e.Cause == CauseProvider && e.Status != "" {
		return e.Status
	}
	return string(e.Cause)
}

func providerError(status, message string) *DirectionsError {
	return &DirectionsError{Cause: CauseProvider, Status: status, Message: message}
}
