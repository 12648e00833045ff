// Package memory provides an in-memory backend implementation, useful for
// tests and for running the gateway without any external store.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/federated-rag/retrieval-gateway/internal/retrieval"
)

// Backend stores documents in process memory. Search is a case-insensitive
// substring match over name, content and payload; results come back in
// insertion order, which stands in for relevance.
type Backend struct {
	mu   sync.RWMutex
	urls []string
	docs map[string]retrieval.Document
}

// New creates an empty Backend.
func New() *Backend {
	return &Backend{docs: make(map[string]retrieval.Document)}
}

// Factory adapts New to the adapter cache contract.
func Factory(_ retrieval.Endpoint) (retrieval.Backend, error) {
	return New(), nil
}

// Search returns documents matching the query restricted to sites.
func (b *Backend) Search(_ context.Context, query string, sites []string, limit int) ([]retrieval.Result, error) {
	siteSet := make(map[string]struct{}, len(sites))
	for _, s := range sites {
		siteSet[s] = struct{}{}
	}
	return b.collect(query, limit, func(doc retrieval.Document) bool {
		_, ok := siteSet[doc.Site]
		return ok
	}), nil
}

// SearchAllSites returns documents matching the query from every site.
func (b *Backend) SearchAllSites(_ context.Context, query string, limit int) ([]retrieval.Result, error) {
	return b.collect(query, limit, func(retrieval.Document) bool { return true }), nil
}

// SearchByURL looks up a document by exact URL.
func (b *Backend) SearchByURL(_ context.Context, url string) (retrieval.Result, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	doc, ok := b.docs[url]
	if !ok {
		return retrieval.Result{}, retrieval.ErrNotFound
	}
	return toResult(doc), nil
}

// UploadDocuments inserts or replaces documents keyed by URL.
func (b *Backend) UploadDocuments(_ context.Context, docs []retrieval.Document) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, doc := range docs {
		if doc.URL == "" {
			continue
		}
		if _, exists := b.docs[doc.URL]; !exists {
			b.urls = append(b.urls, doc.URL)
		}
		b.docs[doc.URL] = doc
	}
	return len(docs), nil
}

// DeleteBySite removes every document for the site.
func (b *Backend) DeleteBySite(_ context.Context, site string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	deleted := 0
	kept := b.urls[:0]
	for _, url := range b.urls {
		if b.docs[url].Site == site {
			delete(b.docs, url)
			deleted++
			continue
		}
		kept = append(kept, url)
	}
	b.urls = kept
	return deleted, nil
}

// GetSites enumerates the distinct sites currently stored, sorted.
func (b *Backend) GetSites(_ context.Context) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	set := make(map[string]struct{})
	for _, doc := range b.docs {
		if doc.Site != "" {
			set[doc.Site] = struct{}{}
		}
	}
	sites := make([]string, 0, len(set))
	for s := range set {
		sites = append(sites, s)
	}
	sort.Strings(sites)
	return sites, nil
}

func (b *Backend) collect(query string, limit int, include func(retrieval.Document) bool) []retrieval.Result {
	b.mu.RLock()
	defer b.mu.RUnlock()
	q := strings.ToLower(query)
	var results []retrieval.Result
	for _, url := range b.urls {
		doc := b.docs[url]
		if !include(doc) {
			continue
		}
		if q != "" && !matches(doc, q) {
			continue
		}
		results = append(results, toResult(doc))
		if limit > 0 && len(results) >= limit {
			break
		}
	}
	return results
}

func matches(doc retrieval.Document, q string) bool {
	return strings.Contains(strings.ToLower(doc.Name), q) ||
		strings.Contains(strings.ToLower(doc.Content), q) ||
		strings.Contains(strings.ToLower(doc.Payload), q)
}

func toResult(doc retrieval.Document) retrieval.Result {
	return retrieval.Result{
		URL:     doc.URL,
		Payload: doc.Payload,
		Name:    doc.Name,
		Site:    doc.Site,
	}
}
