package retrieval

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// siteIndex lazily caches the set of sites each endpoint holds, so searches
// can skip endpoints that provably cannot answer a site filter. An endpoint
// whose backend cannot enumerate sites (or whose enumeration failed) is
// cached as unknown and always assumed to have the site. Entries are never
// refreshed; staleness only costs a wasted query or a wrongly skipped
// endpoint, never a wrong answer.
type siteIndex struct {
	mu      sync.Mutex
	entries map[string]siteEntry
	logger  *zap.Logger
}

type siteEntry struct {
	sites   map[string]struct{}
	unknown bool
}

func newSiteIndex(logger *zap.Logger) *siteIndex {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &siteIndex{
		entries: make(map[string]siteEntry),
		logger:  logger,
	}
}

func (ix *siteIndex) entryFor(ctx context.Context, endpoint string, backend Backend) siteEntry {
	ix.mu.Lock()
	if entry, ok := ix.entries[endpoint]; ok {
		ix.mu.Unlock()
		return entry
	}
	ix.mu.Unlock()

	// Population happens outside the lock; a duplicate fetch during the
	// first-call window is harmless, last writer wins.
	sites, err := backend.GetSites(ctx)
	var entry siteEntry
	if err != nil {
		ix.logger.Debug("endpoint does not support site enumeration or it failed",
			zap.String("endpoint", endpoint),
			zap.Error(err),
		)
		entry = siteEntry{unknown: true}
	} else {
		set := make(map[string]struct{}, len(sites))
		for _, s := range sites {
			set[s] = struct{}{}
		}
		entry = siteEntry{sites: set}
		ix.logger.Info("cached endpoint site list",
			zap.String("endpoint", endpoint),
			zap.Int("sites", len(set)),
		)
	}

	ix.mu.Lock()
	ix.entries[endpoint] = entry
	ix.mu.Unlock()
	return entry
}

// hasSite reports whether the endpoint may hold any of the requested sites.
// The wildcard always matches, regardless of index state.
func (ix *siteIndex) hasSite(ctx context.Context, endpoint string, backend Backend, sites []string, wildcard bool) bool {
	if wildcard {
		return true
	}
	entry := ix.entryFor(ctx, endpoint, backend)
	if entry.unknown {
		return true
	}
	if len(entry.sites) == 0 {
		return false
	}
	for _, s := range sites {
		if _, ok := entry.sites[s]; ok {
			return true
		}
	}
	return false
}
