// internal/pumpportal/errors.go
package pumpportal

import (
	"errors"
	"fmt"

	"github.com/cenkalti/backoff/v5"
)

var (
	// ErrEmptyResponse is returned when a collaborator answers 2xx with no body.
	ErrEmptyResponse = errors.New("empty response body")
	// ErrMissingMetadataURI is returned when the upload response has no metadataUri.
	ErrMissingMetadataURI = errors.New("upload response has no metadataUri")
)

// StatusError reports a non-2xx answer from a pumpportal endpoint.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// Retryable reports whether the status is worth another attempt.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

func unwrapPermanent(err error) error {
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return perm.Unwrap()
	}
	return err
}
