// Package opensearch provides a backend over the OpenSearch REST API.
package opensearch

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/federated-rag/retrieval-gateway/internal/retrieval"
)

// Backend talks to one OpenSearch index. The API key is a "user:password"
// pair sent as basic auth. Documents carry url, site, name, payload and
// content fields; url doubles as the document ID.
type Backend struct {
	baseURL string
	index   string
	auth    string
	client  *http.Client
}

// New creates an OpenSearch Backend for the endpoint and index.
func New(endpoint, apiKey, index string) (*Backend, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("opensearch endpoint is required")
	}
	if index == "" {
		index = "documents"
	}
	return &Backend{
		baseURL: strings.TrimRight(endpoint, "/"),
		index:   index,
		auth:    "Basic " + base64.StdEncoding.EncodeToString([]byte(apiKey)),
		client:  &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Factory adapts New to the adapter cache contract.
func Factory(ep retrieval.Endpoint) (retrieval.Backend, error) {
	return New(ep.APIEndpoint, ep.APIKey, ep.Index)
}

type hit struct {
	Source struct {
		URL     string `json:"url"`
		Site    string `json:"site"`
		Name    string `json:"name"`
		Payload string `json:"payload"`
	} `json:"_source"`
}

type searchResponse struct {
	Hits struct {
		Hits []hit `json:"hits"`
	} `json:"hits"`
	Aggregations struct {
		Sites struct {
			Buckets []struct {
				Key string `json:"key"`
			} `json:"buckets"`
		} `json:"sites"`
	} `json:"aggregations"`
}

// Search runs a multi-match query filtered to the given sites.
func (b *Backend) Search(ctx context.Context, query string, sites []string, limit int) ([]retrieval.Result, error) {
	body := map[string]any{
		"size": normalizeLimit(limit),
		"query": map[string]any{
			"bool": map[string]any{
				"must": map[string]any{
					"multi_match": map[string]any{
						"query":  query,
						"fields": []string{"name", "content"},
					},
				},
				"filter": map[string]any{
					"terms": map[string]any{"site": sites},
				},
			},
		},
	}
	return b.search(ctx, body)
}

// SearchAllSites runs a multi-match query with no site filter.
func (b *Backend) SearchAllSites(ctx context.Context, query string, limit int) ([]retrieval.Result, error) {
	body := map[string]any{
		"size": normalizeLimit(limit),
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  query,
				"fields": []string{"name", "content"},
			},
		},
	}
	return b.search(ctx, body)
}

// SearchByURL looks up a document by exact URL via a term query.
func (b *Backend) SearchByURL(ctx context.Context, docURL string) (retrieval.Result, error) {
	body := map[string]any{
		"size": 1,
		"query": map[string]any{
			"term": map[string]any{"url.keyword": docURL},
		},
	}
	results, err := b.search(ctx, body)
	if err != nil {
		return retrieval.Result{}, err
	}
	if len(results) == 0 {
		return retrieval.Result{}, retrieval.ErrNotFound
	}
	return results[0], nil
}

// UploadDocuments indexes documents through the bulk API.
func (b *Backend) UploadDocuments(ctx context.Context, docs []retrieval.Document) (int, error) {
	var buf bytes.Buffer
	count := 0
	for _, doc := range docs {
		if doc.URL == "" {
			continue
		}
		action := map[string]any{
			"index": map[string]any{"_index": b.index, "_id": doc.URL},
		}
		if err := json.NewEncoder(&buf).Encode(action); err != nil {
			return 0, fmt.Errorf("encode bulk action: %w", err)
		}
		if err := json.NewEncoder(&buf).Encode(doc); err != nil {
			return 0, fmt.Errorf("encode bulk document: %w", err)
		}
		count++
	}
	if count == 0 {
		return 0, nil
	}
	var resp struct {
		Errors bool `json:"errors"`
	}
	if err := b.do(ctx, http.MethodPost, "/_bulk", buf.Bytes(), "application/x-ndjson", &resp); err != nil {
		return 0, err
	}
	if resp.Errors {
		return 0, fmt.Errorf("bulk indexing reported item errors")
	}
	return count, nil
}

// DeleteBySite removes every document for the site via delete-by-query.
func (b *Backend) DeleteBySite(ctx context.Context, site string) (int, error) {
	body, err := json.Marshal(map[string]any{
		"query": map[string]any{
			"term": map[string]any{"site": site},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("encode delete query: %w", err)
	}
	var resp struct {
		Deleted int `json:"deleted"`
	}
	path := fmt.Sprintf("/%s/_delete_by_query", url.PathEscape(b.index))
	if err := b.do(ctx, http.MethodPost, path, body, "application/json", &resp); err != nil {
		return 0, err
	}
	return resp.Deleted, nil
}

// GetSites enumerates sites through a terms aggregation.
func (b *Backend) GetSites(ctx context.Context) ([]string, error) {
	body, err := json.Marshal(map[string]any{
		"size": 0,
		"aggs": map[string]any{
			"sites": map[string]any{
				"terms": map[string]any{"field": "site", "size": 1000},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encode aggregation query: %w", err)
	}
	var resp searchResponse
	path := fmt.Sprintf("/%s/_search", url.PathEscape(b.index))
	if err := b.do(ctx, http.MethodPost, path, body, "application/json", &resp); err != nil {
		return nil, err
	}
	sites := make([]string, 0, len(resp.Aggregations.Sites.Buckets))
	for _, bucket := range resp.Aggregations.Sites.Buckets {
		sites = append(sites, bucket.Key)
	}
	return sites, nil
}

func (b *Backend) search(ctx context.Context, query map[string]any) ([]retrieval.Result, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("encode search query: %w", err)
	}
	var resp searchResponse
	path := fmt.Sprintf("/%s/_search", url.PathEscape(b.index))
	if err := b.do(ctx, http.MethodPost, path, body, "application/json", &resp); err != nil {
		return nil, err
	}
	results := make([]retrieval.Result, 0, len(resp.Hits.Hits))
	for _, h := range resp.Hits.Hits {
		results = append(results, retrieval.Result{
			URL:     h.Source.URL,
			Payload: h.Source.Payload,
			Name:    h.Source.Name,
			Site:    h.Source.Site,
		})
	}
	return results, nil
}

func (b *Backend) do(ctx context.Context, method, path string, body []byte, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", b.auth)

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("opensearch request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("opensearch %s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode opensearch response: %w", err)
	}
	return nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	return limit
}
