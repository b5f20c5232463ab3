package progressapi

import (
	"errors"
	"fmt"
)

// ErrUnavailable indicates the portal API could not be reached.
var ErrUnavailable = errors.New("portal api unavailable")

// APIError is a non-2xx response from the portal API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("portal api returned status %d: %s", e.Status, e.Message)
}

// StatusCode returns the HTTP status of err when it is an APIError, else 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
