// Package client implements command-suggestion providers for the autopilot.
//
// Every provider speaks the same contract: it gets the snake head, its
// direction and the food position, and returns an ordered batch of
// {command, repeat} steps. Chat-style providers wrap that contract in a
// prompt and pull the JSON back out of free-form model output.
package client

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/brensch/snekpilot/autopilot"
)

var (
	ErrSerialize      = errors.New("failed to serialize request")
	ErrReadBody       = errors.New("failed to read response body")
	ErrDecodeResponse = errors.New("failed to parse response body")
	ErrDecodeContent  = errors.New("failed to parse commands")
	ErrEmptyResponse  = errors.New("no response from provider")

	// ErrMissingCredentials is returned by hosted providers whose token is
	// empty. It matches autopilot.ErrNoProvider.
	ErrMissingCredentials = fmt.Errorf("%w: missing credentials", autopilot.ErrNoProvider)
)

// StatusError is a non-success HTTP status. A 429 matches
// autopilot.ErrRateLimited; a 401 or 403 matches autopilot.ErrNoProvider.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("request failed with status: %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("request failed with status: %d %s: %s", e.Code, http.StatusText(e.Code), e.Body)
}

func (e *StatusError) Is(target error) bool {
	switch target {
	case autopilot.ErrRateLimited:
		return e.Code == http.StatusTooManyRequests
	case autopilot.ErrNoProvider:
		return e.Code == http.StatusUnauthorized || e.Code == http.StatusForbidden
	}
	return false
}
