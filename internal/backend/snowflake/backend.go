// Package snowflake provides a backend over the Snowflake Cortex Search
// Service REST API. Cortex search services are read-only through this API,
// so mutating operations report ErrReadOnly.
package snowflake

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/federated-rag/retrieval-gateway/internal/retrieval"
)

// ErrReadOnly is returned for upload and delete calls; writes to a cortex
// search service happen through Snowflake itself, not this API.
var ErrReadOnly = errors.New("snowflake cortex search service is read-only")

// Backend queries one Cortex Search Service. The endpoint's index setting
// names the service as <database>.<schema>.<service>; the API key is a
// programmatic access token. The service exposes url, site and schema_json
// columns.
type Backend struct {
	accountURL string
	database   string
	schema     string
	service    string
	token      string
	client     *http.Client
}

// New creates a Cortex Search Backend. serviceName must be of the form
// <database>.<schema>.<service>.
func New(accountURL, token, serviceName string) (*Backend, error) {
	if accountURL == "" || token == "" {
		return nil, fmt.Errorf("snowflake account url and token are required")
	}
	parts := strings.Split(serviceName, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("invalid cortex search service %q, expected <database>.<schema>.<service>", serviceName)
	}
	return &Backend{
		accountURL: strings.TrimRight(accountURL, "/"),
		database:   parts[0],
		schema:     parts[1],
		service:    parts[2],
		token:      token,
		client:     &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// Factory adapts New to the adapter cache contract.
func Factory(ep retrieval.Endpoint) (retrieval.Backend, error) {
	return New(ep.APIEndpoint, ep.APIKey, ep.Index)
}

type queryRequest struct {
	Query   string         `json:"query"`
	Limit   int            `json:"limit"`
	Columns []string       `json:"columns"`
	Filter  map[string]any `json:"filter,omitempty"`
}

type queryResponse struct {
	Results []struct {
		URL        string `json:"url"`
		Site       string `json:"site"`
		SchemaJSON string `json:"schema_json"`
	} `json:"results"`
}

// Search queries the service restricted to the given sites.
func (b *Backend) Search(ctx context.Context, query string, sites []string, limit int) ([]retrieval.Result, error) {
	return b.query(ctx, query, siteFilter(sites), limit)
}

// SearchAllSites queries the service with no filter.
func (b *Backend) SearchAllSites(ctx context.Context, query string, limit int) ([]retrieval.Result, error) {
	return b.query(ctx, query, nil, limit)
}

// SearchByURL looks up a document by exact URL. Cortex search requires a
// non-empty query for ranking, so a single-character query is sent with an
// exact-match filter.
func (b *Backend) SearchByURL(ctx context.Context, url string) (retrieval.Result, error) {
	results, err := b.query(ctx, "a", map[string]any{"@eq": map[string]any{"url": url}}, 1)
	if err != nil {
		return retrieval.Result{}, err
	}
	if len(results) == 0 {
		return retrieval.Result{}, retrieval.ErrNotFound
	}
	return results[0], nil
}

// UploadDocuments is not supported.
func (b *Backend) UploadDocuments(_ context.Context, _ []retrieval.Document) (int, error) {
	return 0, ErrReadOnly
}

// DeleteBySite is not supported.
func (b *Backend) DeleteBySite(_ context.Context, _ string) (int, error) {
	return 0, ErrReadOnly
}

// GetSites reports unsupported; the query API has no site enumeration.
func (b *Backend) GetSites(_ context.Context) ([]string, error) {
	return nil, retrieval.ErrSitesUnsupported
}

func (b *Backend) query(ctx context.Context, query string, filter map[string]any, limit int) ([]retrieval.Result, error) {
	reqBody := queryRequest{
		Query:   query,
		Limit:   clampLimit(limit),
		Columns: []string{"url", "site", "schema_json"},
		Filter:  filter,
	}
	encoded, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("encode cortex query: %w", err)
	}
	endpoint := fmt.Sprintf("%s/api/v2/databases/%s/schemas/%s/cortex-search-services/%s:query",
		b.accountURL, b.database, b.schema, b.service)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+b.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cortex search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("cortex search: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	var decoded queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode cortex search response: %w", err)
	}
	results := make([]retrieval.Result, 0, len(decoded.Results))
	for _, r := range decoded.Results {
		results = append(results, retrieval.Result{
			URL:     r.URL,
			Payload: r.SchemaJSON,
			Name:    nameFromSchemaJSON(r.SchemaJSON),
			Site:    r.Site,
		})
	}
	return results, nil
}

// siteFilter builds the cortex filter expression matching any of the sites.
func siteFilter(sites []string) map[string]any {
	if len(sites) == 0 {
		return nil
	}
	if len(sites) == 1 {
		return map[string]any{"@eq": map[string]any{"site": sites[0]}}
	}
	clauses := make([]any, 0, len(sites))
	for _, s := range sites {
		clauses = append(clauses, map[string]any{"@eq": map[string]any{"site": s}})
	}
	return map[string]any{"@or": clauses}
}

// The service has no display-name column; it is recovered from the payload.
func nameFromSchemaJSON(schemaJSON string) string {
	var doc struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal([]byte(schemaJSON), &doc); err != nil {
		return ""
	}
	return doc.Name
}

func clampLimit(limit int) int {
	if limit < 1 {
		return 1
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}
