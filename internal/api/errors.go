// Package api provides the catalog API client and its error types.
package api

import (
	"errors"
	"fmt"
	nethttp "net/http"
)

var (
	// ErrEmptyBaseURL is returned by NewClient when no catalog URL is configured.
	ErrEmptyBaseURL = errors.New("API base URL is empty")

	// ErrNotFound indicates the requested folder does not exist.
	ErrNotFound = errors.New("folder not found")

	// ErrUnauthorized indicates the API key was rejected.
	ErrUnauthorized = errors.New("catalog API rejected credentials")
)

// HTTPStatusError is returned for any non-2xx catalog response.
// It unwraps to ErrNotFound or ErrUnauthorized where applicable.
type HTTPStatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("%s %s failed: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// HTTPStatus returns the response status code.
func (e *HTTPStatusError) HTTPStatus() int {
	return e.StatusCode
}

func (e *HTTPStatusError) Unwrap() error {
	switch e.StatusCode {
	case nethttp.StatusNotFound:
		return ErrNotFound
	case nethttp.StatusUnauthorized, nethttp.StatusForbidden:
		return ErrUnauthorized
	default:
		return nil
	}
}

// IsNotFound reports whether err means the folder does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
