package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/federated-rag/retrieval-gateway/internal/metrics"
)

// Client is the federation facade. Reads fan out concurrently across every
// eligible endpoint and merge into one relevance-ordered, URL-deduplicated
// list; mutations route exclusively to the configured write endpoint.
//
// Top-level operations on one Client are serialized by a single mutex, so
// concurrency exists only within one call's internal fan-out, not across
// calls on the same instance.
type Client struct {
	mu       sync.Mutex
	registry *Registry
	cache    *AdapterCache
	sites    *siteIndex

	// Process-wide restriction substituted for the wildcard filter.
	siteRestriction []string

	logger *zap.Logger
}

// NewClient builds a Client over the registry and adapter cache.
// siteRestriction, when non-empty, replaces the "all" wildcard in searches.
func NewClient(registry *Registry, cache *AdapterCache, siteRestriction []string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	return &Client{
		registry:        registry,
		cache:           cache,
		sites:           newSiteIndex(logger),
		siteRestriction: siteRestriction,
		logger:          logger,
	}
}

// normalizeSiteFilter canonicalizes the caller's site filter. The wildcard
// expands to the configured restriction when one exists; a comma-bearing
// string (optionally bracketed) splits into a list; whitespace in a bare
// identifier becomes an underscore separator.
func (c *Client) normalizeSiteFilter(site string) (sites []string, wildcard bool) {
	if site == "" || site == AllSites {
		if len(c.siteRestriction) > 0 {
			return c.siteRestriction, false
		}
		return nil, true
	}
	if strings.Contains(site, ",") {
		trimmed := strings.NewReplacer("[", "", "]", "").Replace(site)
		for _, s := range strings.Split(trimmed, ",") {
			if s = strings.TrimSpace(s); s != "" {
				sites = append(sites, s)
			}
		}
		return sites, false
	}
	return []string{strings.ReplaceAll(site, " ", "_")}, false
}

// Search queries every eligible endpoint concurrently and returns the merged
// result list truncated to limit. Individual backend failures are tolerated;
// the call fails only when the filter excluded every endpoint
// (ErrNoEligibleEndpoints) or every dispatched query failed
// (ErrAllBackendsFailed).
func (c *Client) Search(ctx context.Context, query, site string, limit int) ([]Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.searchLocked(ctx, query, site, limit)
}

// SearchAllSites is Search with the wildcard filter.
func (c *Client) SearchAllSites(ctx context.Context, query string, limit int) ([]Result, error) {
	return c.Search(ctx, query, AllSites, limit)
}

func (c *Client) searchLocked(ctx context.Context, query, site string, limit int) ([]Result, error) {
	start := time.Now()
	sites, wildcard := c.normalizeSiteFilter(site)

	// Pinned mode bypasses fan-out entirely.
	if pinned, ok := c.registry.Pinned(); ok {
		results, err := c.searchOne(ctx, pinned, query, sites, wildcard, limit)
		if err != nil {
			metrics.ObserveSearch("error", time.Since(start))
			return nil, err
		}
		metrics.ObserveSearch("ok", time.Since(start))
		return truncate(dedupeByURL(results), limit), nil
	}

	type launched struct {
		name    string
		backend Backend
	}
	var (
		queries  []launched
		skipped  []string
		failures []error
	)
	for _, name := range c.registry.Names() {
		ep, _ := c.registry.Get(name)
		backend, err := c.cache.Get(ep)
		if err != nil {
			// A construction failure counts as a failed query, not a
			// filtered-out endpoint; if nothing else answers, the call
			// must report the outage rather than an empty filter.
			c.logger.Warn("failed to prepare backend for search",
				zap.String("endpoint", name), zap.Error(err))
			failures = append(failures, &BackendError{Endpoint: name, Err: err})
			continue
		}
		if !c.sites.hasSite(ctx, name, backend, sites, wildcard) {
			skipped = append(skipped, name)
			continue
		}
		queries = append(queries, launched{name: name, backend: backend})
	}
	if len(skipped) > 0 {
		c.logger.Debug("skipped endpoints without requested site",
			zap.Strings("endpoints", skipped), zap.Strings("sites", sites))
	}
	if len(queries) == 0 {
		if len(failures) > 0 {
			metrics.ObserveSearch("all_failed", time.Since(start))
			return nil, fmt.Errorf("%w: %w", ErrAllBackendsFailed, errors.Join(failures...))
		}
		metrics.ObserveSearch("no_eligible", time.Since(start))
		return nil, ErrNoEligibleEndpoints
	}

	c.logger.Info("dispatching federated search",
		zap.String("query", firstN(query, 50)),
		zap.Strings("sites", sites),
		zap.Bool("all_sites", wildcard),
		zap.Int("endpoints", len(queries)),
	)

	type outcome struct {
		name    string
		results []Result
		err     error
	}
	outcomes := make(chan outcome, len(queries))
	var wg sync.WaitGroup
	for _, q := range queries {
		wg.Add(1)
		go func(q launched) {
			defer wg.Done()
			qstart := time.Now()
			var (
				results []Result
				err     error
			)
			if wildcard {
				results, err = q.backend.SearchAllSites(ctx, query, limit)
			} else {
				results, err = q.backend.Search(ctx, query, sites, limit)
			}
			if err != nil {
				metrics.ObserveBackendQuery(q.name, "error", time.Since(qstart))
				outcomes <- outcome{name: q.name, err: &BackendError{Endpoint: q.name, Err: err}}
				return
			}
			metrics.ObserveBackendQuery(q.name, "ok", time.Since(qstart))
			outcomes <- outcome{name: q.name, results: results}
		}(q)
	}
	wg.Wait()
	close(outcomes)

	// Collect into a name-keyed map so merge order depends on endpoint
	// iteration order, not completion timing.
	perEndpoint := make(map[string][]Result, len(queries))
	for out := range outcomes {
		if out.err != nil {
			c.logger.Warn("backend search failed", zap.Error(out.err))
			failures = append(failures, out.err)
			continue
		}
		perEndpoint[out.name] = out.results
	}
	if len(perEndpoint) == 0 {
		metrics.ObserveSearch("all_failed", time.Since(start))
		return nil, fmt.Errorf("%w: %w", ErrAllBackendsFailed, errors.Join(failures...))
	}

	order := make([]string, 0, len(queries))
	for _, q := range queries {
		if _, ok := perEndpoint[q.name]; ok {
			order = append(order, q.name)
		}
	}
	merged := truncate(aggregate(order, perEndpoint), limit)

	c.logger.Info("federated search completed",
		zap.Duration("duration", time.Since(start)),
		zap.Int("endpoints_queried", len(queries)),
		zap.Int("endpoints_succeeded", len(perEndpoint)),
		zap.Int("results", len(merged)),
	)
	metrics.ObserveSearch("ok", time.Since(start))
	return merged, nil
}

func (c *Client) searchOne(ctx context.Context, endpoint, query string, sites []string, wildcard bool, limit int) ([]Result, error) {
	ep, ok := c.registry.Get(endpoint)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEndpoint, endpoint)
	}
	backend, err := c.cache.Get(ep)
	if err != nil {
		return nil, err
	}
	qstart := time.Now()
	var results []Result
	if wildcard {
		results, err = backend.SearchAllSites(ctx, query, limit)
	} else {
		results, err = backend.Search(ctx, query, sites, limit)
	}
	if err != nil {
		metrics.ObserveBackendQuery(endpoint, "error", time.Since(qstart))
		return nil, &BackendError{Endpoint: endpoint, Err: err}
	}
	metrics.ObserveBackendQuery(endpoint, "ok", time.Since(qstart))
	return results, nil
}

// SearchByURL retrieves a single document by exact URL. Endpoints are probed
// one at a time in iteration order; the lookup is cheap and the first hit
// short-circuits, so there is no fan-out. Returns ErrNotFound when every
// probe misses or fails.
func (c *Client) SearchByURL(ctx context.Context, url string) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.logger.Debug("retrieving document by url", zap.String("url", url))

	if pinned, ok := c.registry.Pinned(); ok {
		ep, _ := c.registry.Get(pinned)
		backend, err := c.cache.Get(ep)
		if err != nil {
			return Result{}, err
		}
		res, err := backend.SearchByURL(ctx, url)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return Result{}, ErrNotFound
			}
			return Result{}, &BackendError{Endpoint: pinned, Err: err}
		}
		return res, nil
	}

	for _, name := range c.registry.Names() {
		ep, _ := c.registry.Get(name)
		backend, err := c.cache.Get(ep)
		if err != nil {
			c.logger.Warn("failed to prepare backend for url lookup",
				zap.String("endpoint", name), zap.Error(err))
			continue
		}
		res, err := backend.SearchByURL(ctx, url)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				c.logger.Warn("url lookup failed",
					zap.String("endpoint", name), zap.String("url", url), zap.Error(err))
			}
			continue
		}
		if res.URL != "" {
			return res, nil
		}
	}
	return Result{}, ErrNotFound
}

// GetSites aggregates the site lists of all endpoints (or the pinned one).
// An empty result means no endpoint reports support; callers must treat that
// as "no restriction known", not "no sites exist".
func (c *Client) GetSites(ctx context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	union := make(map[string]struct{})
	for _, name := range c.registry.Names() {
		ep, _ := c.registry.Get(name)
		backend, err := c.cache.Get(ep)
		if err != nil {
			c.logger.Warn("failed to prepare backend for site listing",
				zap.String("endpoint", name), zap.Error(err))
			continue
		}
		sites, err := backend.GetSites(ctx)
		if err != nil {
			if !errors.Is(err, ErrSitesUnsupported) {
				c.logger.Warn("site listing failed",
					zap.String("endpoint", name), zap.Error(err))
			}
			continue
		}
		for _, s := range sites {
			union[s] = struct{}{}
		}
	}
	sites := make([]string, 0, len(union))
	for s := range union {
		sites = append(sites, s)
	}
	sort.Strings(sites)
	return sites, nil
}

// UploadDocuments writes documents through the single configured write
// endpoint. Adapter failures propagate unchanged; a write touches exactly
// one backend, so there is no partial-failure tolerance.
func (c *Client) UploadDocuments(ctx context.Context, docs []Document) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ep, err := c.registry.WriteEndpoint()
	if err != nil {
		return 0, err
	}
	backend, err := c.cache.Get(ep)
	if err != nil {
		return 0, err
	}
	c.logger.Info("uploading documents",
		zap.Int("count", len(docs)), zap.String("endpoint", ep.Name))
	count, err := backend.UploadDocuments(ctx, docs)
	if err != nil {
		return 0, fmt.Errorf("upload to endpoint %s: %w", ep.Name, err)
	}
	metrics.ObserveUpload(count)
	return count, nil
}

// DeleteBySite removes every document for a site through the write endpoint.
func (c *Client) DeleteBySite(ctx context.Context, site string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ep, err := c.registry.WriteEndpoint()
	if err != nil {
		return 0, err
	}
	backend, err := c.cache.Get(ep)
	if err != nil {
		return 0, err
	}
	c.logger.Info("deleting documents by site",
		zap.String("site", site), zap.String("endpoint", ep.Name))
	count, err := backend.DeleteBySite(ctx, site)
	if err != nil {
		return 0, fmt.Errorf("delete site %s on endpoint %s: %w", site, ep.Name, err)
	}
	metrics.ObserveDelete(count)
	return count, nil
}

func firstN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
