package cloudprint

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrAuthorization is matched by errors.Is for API responses with status 403.
var ErrAuthorization = errors.New("authorization denied")

// ConfigError reports a required configuration field that was left empty.
type ConfigError struct {
	Field string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("missing required parameter: %s", e.Field)
}

// APIError captures a non-2xx response from the Cloud Print or token endpoints.
type APIError struct {
	StatusCode int
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, string(e.Body))
}

// Unwrap lets errors.Is(err, ErrAuthorization) detect a rejected access token.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusForbidden {
		return ErrAuthorization
	}
	return nil
}
