package platform

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnauthorized matches any API error carrying a 401 status. Callers must
// treat it as the bearer credential being invalid: clear the local session
// and force re-authentication.
var ErrUnauthorized = errors.New("unauthorized")

// APIError is a non-2xx response from the platform API. Message is the
// server-provided errorMessage and is surfaced to the user verbatim.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("platform api: status %d", e.Status)
}

// Is lets errors.Is(err, ErrUnauthorized) match 401 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}
