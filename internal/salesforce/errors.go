// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package salesforce

import (
	"errors"
	"fmt"
)

// ErrTokenExpired reports that the org rejected a previously issued access
// token mid-pagination. The run does not re-authenticate in place; the
// orchestrator treats this as fatal.
var ErrTokenExpired = errors.New("salesforce: access token rejected")

// AuthError reports a failed credential exchange. No articles are fetched
// and nothing is written when this occurs.
type AuthError struct {
	// StatusCode is the HTTP status of the token response, 0 on transport
	// failure.
	StatusCode int

	// Detail is the error description returned by the org, when present.
	Detail string

	// Err is the underlying transport or decode error, when any.
	Err error
}

func (e *AuthError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("salesforce auth: %v", e.Err)
	case e.Detail != "":
		return fmt.Sprintf("salesforce auth: HTTP %d: %s", e.StatusCode, e.Detail)
	default:
		return fmt.Sprintf("salesforce auth: HTTP %d", e.StatusCode)
	}
}

func (e *AuthError) Unwrap() error { return e.Err }

// FetchError reports a non-recoverable failure while listing articles or
// fetching an article body. Fatal to the run; documents already upserted
// remain in the destination.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("salesforce fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("salesforce fetch %s: HTTP %d", e.URL, e.StatusCode)
}

func (e *FetchError) Unwrap() error { return e.Err }
