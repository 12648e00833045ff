// Package azure provides a backend over the Azure AI Search REST API.
package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/federated-rag/retrieval-gateway/internal/retrieval"
)

const apiVersion = "2024-07-01"

// Backend queries one Azure AI Search index. Index documents carry id, url,
// site, name and schema_json fields; schema_json maps to the result payload.
// Site enumeration is not exposed by the service, so GetSites reports
// unsupported.
type Backend struct {
	baseURL string
	index   string
	apiKey  string
	client  *http.Client
}

// New creates an Azure AI Search Backend.
func New(endpoint, apiKey, index string) (*Backend, error) {
	if endpoint == "" || apiKey == "" {
		return nil, fmt.Errorf("azure search endpoint and api key are required")
	}
	if index == "" {
		index = "documents"
	}
	return &Backend{
		baseURL: strings.TrimRight(endpoint, "/"),
		index:   index,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Factory adapts New to the adapter cache contract.
func Factory(ep retrieval.Endpoint) (retrieval.Backend, error) {
	return New(ep.APIEndpoint, ep.APIKey, ep.Index)
}

type searchDoc struct {
	ID         string `json:"id,omitempty"`
	URL        string `json:"url"`
	Site       string `json:"site"`
	Name       string `json:"name"`
	SchemaJSON string `json:"schema_json"`
}

type searchResponse struct {
	Value []searchDoc `json:"value"`
}

// Search runs a full-text query restricted to the given sites via an OData
// filter.
func (b *Backend) Search(ctx context.Context, query string, sites []string, limit int) ([]retrieval.Result, error) {
	return b.search(ctx, map[string]any{
		"search": query,
		"filter": siteFilter(sites),
		"top":    normalizeLimit(limit),
	})
}

// SearchAllSites runs a full-text query with no site filter.
func (b *Backend) SearchAllSites(ctx context.Context, query string, limit int) ([]retrieval.Result, error) {
	return b.search(ctx, map[string]any{
		"search": query,
		"top":    normalizeLimit(limit),
	})
}

// SearchByURL looks up a document by exact URL.
func (b *Backend) SearchByURL(ctx context.Context, docURL string) (retrieval.Result, error) {
	results, err := b.search(ctx, map[string]any{
		"search": "*",
		"filter": fmt.Sprintf("url eq '%s'", escapeOData(docURL)),
		"top":    1,
	})
	if err != nil {
		return retrieval.Result{}, err
	}
	if len(results) == 0 {
		return retrieval.Result{}, retrieval.ErrNotFound
	}
	return results[0], nil
}

// UploadDocuments merges documents into the index.
func (b *Backend) UploadDocuments(ctx context.Context, docs []retrieval.Document) (int, error) {
	type action struct {
		searchDoc
		Action string `json:"@search.action"`
	}
	actions := make([]action, 0, len(docs))
	for _, doc := range docs {
		if doc.URL == "" {
			continue
		}
		actions = append(actions, action{
			Action: "mergeOrUpload",
			searchDoc: searchDoc{
				ID:         documentKey(doc.URL),
				URL:        doc.URL,
				Site:       doc.Site,
				Name:       doc.Name,
				SchemaJSON: doc.Payload,
			},
		})
	}
	if len(actions) == 0 {
		return 0, nil
	}
	var resp struct {
		Value []struct {
			Status bool `json:"status"`
		} `json:"value"`
	}
	if err := b.post(ctx, "/docs/index", map[string]any{"value": actions}, &resp); err != nil {
		return 0, err
	}
	count := 0
	for _, v := range resp.Value {
		if v.Status {
			count++
		}
	}
	return count, nil
}

// DeleteBySite finds every document key for the site and submits delete
// actions in one batch.
func (b *Backend) DeleteBySite(ctx context.Context, site string) (int, error) {
	var resp searchResponse
	err := b.post(ctx, "/docs/search", map[string]any{
		"search": "*",
		"filter": fmt.Sprintf("site eq '%s'", escapeOData(site)),
		"select": "id",
		"top":    100000,
	}, &resp)
	if err != nil {
		return 0, err
	}
	if len(resp.Value) == 0 {
		return 0, nil
	}
	type deleteAction struct {
		Action string `json:"@search.action"`
		ID     string `json:"id"`
	}
	actions := make([]deleteAction, 0, len(resp.Value))
	for _, doc := range resp.Value {
		actions = append(actions, deleteAction{Action: "delete", ID: doc.ID})
	}
	if err := b.post(ctx, "/docs/index", map[string]any{"value": actions}, nil); err != nil {
		return 0, err
	}
	return len(actions), nil
}

// GetSites reports unsupported; the index does not expose site enumeration.
func (b *Backend) GetSites(_ context.Context) ([]string, error) {
	return nil, retrieval.ErrSitesUnsupported
}

func (b *Backend) search(ctx context.Context, body map[string]any) ([]retrieval.Result, error) {
	var resp searchResponse
	if err := b.post(ctx, "/docs/search", body, &resp); err != nil {
		return nil, err
	}
	results := make([]retrieval.Result, 0, len(resp.Value))
	for _, doc := range resp.Value {
		results = append(results, retrieval.Result{
			URL:     doc.URL,
			Payload: doc.SchemaJSON,
			Name:    doc.Name,
			Site:    doc.Site,
		})
	}
	return results, nil
}

func (b *Backend) post(ctx context.Context, path string, body any, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/indexes/%s%s?api-version=%s",
		b.baseURL, url.PathEscape(b.index), path, apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", b.apiKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("azure search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("azure search %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode azure search response: %w", err)
	}
	return nil
}

// siteFilter builds an OData filter matching any of the sites.
func siteFilter(sites []string) string {
	if len(sites) == 1 {
		return fmt.Sprintf("site eq '%s'", escapeOData(sites[0]))
	}
	escaped := make([]string, 0, len(sites))
	for _, s := range sites {
		escaped = append(escaped, escapeOData(s))
	}
	return fmt.Sprintf("search.in(site, '%s', ',')", strings.Join(escaped, ","))
}

func escapeOData(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	return limit
}

// documentKey derives an index-safe key from a URL. Azure document keys only
// allow letters, digits, underscore, dash and equals.
func documentKey(docURL string) string {
	var sb strings.Builder
	for _, r := range docURL {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-', r == '=':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	return sb.String()
}
