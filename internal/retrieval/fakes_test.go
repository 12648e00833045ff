package retrieval

import (
	"context"
	"sync"
)

// fakeBackend is a scriptable in-process Backend for client-level tests.
type fakeBackend struct {
	mu sync.Mutex

	results   []Result
	searchErr error

	sites    []string
	sitesErr error

	byURL    map[string]Result
	byURLErr error

	uploadErr error
	deleteErr error

	searchCalls int
	sitesCalls  int
	byURLCalls  int
	uploaded    []Document
	deletedSite string
}

var _ Backend = (*fakeBackend)(nil)

func (f *fakeBackend) Search(_ context.Context, _ string, _ []string, _ int) ([]Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls++
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.results, nil
}

func (f *fakeBackend) SearchAllSites(ctx context.Context, query string, limit int) ([]Result, error) {
	return f.Search(ctx, query, nil, limit)
}

func (f *fakeBackend) SearchByURL(_ context.Context, url string) (Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byURLCalls++
	if f.byURLErr != nil {
		return Result{}, f.byURLErr
	}
	res, ok := f.byURL[url]
	if !ok {
		return Result{}, ErrNotFound
	}
	return res, nil
}

func (f *fakeBackend) UploadDocuments(_ context.Context, docs []Document) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return 0, f.uploadErr
	}
	f.uploaded = append(f.uploaded, docs...)
	return len(docs), nil
}

func (f *fakeBackend) DeleteBySite(_ context.Context, site string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	f.deletedSite = site
	return 3, nil
}

func (f *fakeBackend) GetSites(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sitesCalls++
	if f.sitesErr != nil {
		return nil, f.sitesErr
	}
	return f.sites, nil
}

func (f *fakeBackend) calls() (search, sites, byURL int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.searchCalls, f.sitesCalls, f.byURLCalls
}

// fakeFactory dispatches construction to per-endpoint-name fakes, so one
// registered kind can serve several scripted backends.
func fakeFactory(fakes map[string]*fakeBackend) Factory {
	return func(ep Endpoint) (Backend, error) {
		b, ok := fakes[ep.Name]
		if !ok {
			return nil, ErrUnknownEndpoint
		}
		return b, nil
	}
}
