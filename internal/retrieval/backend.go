package retrieval

import (
	"context"
)

// Backend is the capability contract every backend adapter satisfies.
// Implementations live in internal/backend and are registered with the
// adapter cache through a Factory.
type Backend interface {
	// Search returns results for the query restricted to the given sites,
	// in the backend's own relevance order.
	Search(ctx context.Context, query string, sites []string, limit int) ([]Result, error)

	// SearchAllSites searches without a site restriction.
	SearchAllSites(ctx context.Context, query string, limit int) ([]Result, error)

	// SearchByURL looks up a single document by exact URL. A miss is
	// reported as ErrNotFound.
	SearchByURL(ctx context.Context, url string) (Result, error)

	// UploadDocuments writes documents and returns the number accepted.
	UploadDocuments(ctx context.Context, docs []Document) (int, error)

	// DeleteBySite removes every document for the site and returns the
	// number deleted.
	DeleteBySite(ctx context.Context, site string) (int, error)

	// GetSites enumerates the sites held by the backend. Backends that
	// cannot enumerate return ErrSitesUnsupported.
	GetSites(ctx context.Context) ([]string, error)
}

// Factory constructs a Backend for an endpoint of the kind it is registered
// under.
type Factory func(ep Endpoint) (Backend, error)
