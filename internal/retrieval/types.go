// Package retrieval federates search across a set of configured backend
// endpoints and merges their results into a single relevance-ordered list.
package retrieval

// BackendKind identifies the engine an endpoint talks to.
type BackendKind string

// Backend kinds with credential classification rules. Anything else is
// treated as unusable.
const (
	KindAzureAISearch   BackendKind = "azure_ai_search"
	KindSnowflakeCortex BackendKind = "snowflake_cortex_search"
	KindOpenSearch      BackendKind = "opensearch"
	KindQdrant          BackendKind = "qdrant"
	KindMilvus          BackendKind = "milvus"
	KindPostgres        BackendKind = "postgres"
	KindMemory          BackendKind = "memory"
)

// AllSites is the wildcard site filter.
const AllSites = "all"

// Endpoint is the immutable configuration for one backend target.
type Endpoint struct {
	Name         string
	Kind         BackendKind
	Enabled      bool
	APIKey       string
	APIEndpoint  string
	DatabasePath string
	Index        string
}

// Usable reports whether the endpoint carries the credentials its kind
// requires. It is a pure function of the kind and credential fields.
func (e Endpoint) Usable() bool {
	switch e.Kind {
	case KindAzureAISearch, KindSnowflakeCortex:
		return e.APIKey != "" && e.APIEndpoint != ""
	case KindOpenSearch:
		return e.APIEndpoint != "" && e.APIKey != ""
	case KindQdrant:
		// Local file storage or a remote server; the key is optional for
		// the remote case.
		return e.DatabasePath != "" || e.APIEndpoint != ""
	case KindMilvus:
		return e.DatabasePath != ""
	case KindPostgres:
		return e.APIEndpoint != ""
	case KindMemory:
		return true
	default:
		return false
	}
}

// Result is one retrieved document. Payload holds the backend's serialized
// structured data and is opaque to this layer except during merging.
type Result struct {
	URL     string `json:"url"`
	Payload string `json:"payload"`
	Name    string `json:"name"`
	Site    string `json:"site"`
}

// Document is one item submitted for upload to the write endpoint.
type Document struct {
	URL     string `json:"url"`
	Site    string `json:"site"`
	Name    string `json:"name"`
	Payload string `json:"payload"`
	Content string `json:"content,omitempty"`
}
