package retrieval

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by the client facade.
var (
	// ErrUnknownEndpoint means a requested endpoint name is not configured.
	ErrUnknownEndpoint = errors.New("unknown endpoint")

	// ErrNoUsableEndpoints means no enabled endpoint passed credential
	// classification at construction time.
	ErrNoUsableEndpoints = errors.New("no enabled endpoints with valid credentials")

	// ErrNoWriteEndpoint means a mutating call was made without a
	// configured write endpoint.
	ErrNoWriteEndpoint = errors.New("no write endpoint configured")

	// ErrNoEligibleEndpoints means the site filter excluded every endpoint
	// for one search call.
	ErrNoEligibleEndpoints = errors.New("no eligible endpoints for search")

	// ErrAllBackendsFailed means every dispatched backend query failed.
	ErrAllBackendsFailed = errors.New("all backend searches failed")

	// ErrNotFound is returned by URL lookups that miss everywhere.
	ErrNotFound = errors.New("document not found")

	// ErrSitesUnsupported is returned by backends that cannot enumerate
	// their sites.
	ErrSitesUnsupported = errors.New("site enumeration not supported")
)

// BackendError wraps a failure from one backend with the endpoint it came
// from. Fan-out collects these per endpoint instead of unwinding through the
// aggregation step.
type BackendError struct {
	Endpoint string
	Err      error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("endpoint %s: %v", e.Endpoint, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}
