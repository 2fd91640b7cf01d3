package analysisapi

import (
	"errors"
	"fmt"

	"surgitrack/internal/services"
)

// StatusError reports a non-2xx reply from the remote service.
type StatusError struct {
	Stage      string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.Stage, e.StatusCode)
}

// Unwrap tags the error with services.ErrRemoteStatus.
func (e *StatusError) Unwrap() error {
	return services.ErrRemoteStatus
}

// StatusCode extracts the HTTP status from err, or 0 when err carries none.
func StatusCode(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}

// Cause returns the short failure description stored in session state.
func Cause(err error) string {
	if err == nil {
		return ""
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Error()
	}
	return services.Details(err).Message
}
