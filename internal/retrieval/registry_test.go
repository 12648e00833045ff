package retrieval

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEndpointUsable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		ep     Endpoint
		usable bool
	}{
		{"azure with key and endpoint", Endpoint{Kind: KindAzureAISearch, APIKey: "k", APIEndpoint: "https://x"}, true},
		{"azure missing key", Endpoint{Kind: KindAzureAISearch, APIEndpoint: "https://x"}, false},
		{"azure missing endpoint", Endpoint{Kind: KindAzureAISearch, APIKey: "k"}, false},
		{"azure missing both", Endpoint{Kind: KindAzureAISearch}, false},
		{"snowflake with key and endpoint", Endpoint{Kind: KindSnowflakeCortex, APIKey: "k", APIEndpoint: "https://x"}, true},
		{"snowflake missing key", Endpoint{Kind: KindSnowflakeCortex, APIEndpoint: "https://x"}, false},
		{"snowflake missing endpoint", Endpoint{Kind: KindSnowflakeCortex, APIKey: "k"}, false},
		{"opensearch with key and endpoint", Endpoint{Kind: KindOpenSearch, APIKey: "u:p", APIEndpoint: "https://x"}, true},
		{"opensearch missing key", Endpoint{Kind: KindOpenSearch, APIEndpoint: "https://x"}, false},
		{"opensearch missing endpoint", Endpoint{Kind: KindOpenSearch, APIKey: "u:p"}, false},
		{"qdrant local path", Endpoint{Kind: KindQdrant, DatabasePath: "/data/qdrant"}, true},
		{"qdrant remote without key", Endpoint{Kind: KindQdrant, APIEndpoint: "https://x"}, true},
		{"qdrant remote with key", Endpoint{Kind: KindQdrant, APIEndpoint: "https://x", APIKey: "k"}, true},
		{"qdrant nothing", Endpoint{Kind: KindQdrant}, false},
		{"milvus with path", Endpoint{Kind: KindMilvus, DatabasePath: "/data/milvus"}, true},
		{"milvus without path", Endpoint{Kind: KindMilvus, APIEndpoint: "https://x", APIKey: "k"}, false},
		{"postgres with dsn", Endpoint{Kind: KindPostgres, APIEndpoint: "postgres://u@h/db"}, true},
		{"postgres without dsn", Endpoint{Kind: KindPostgres}, false},
		{"memory always", Endpoint{Kind: KindMemory}, true},
		{"unknown kind never", Endpoint{Kind: "elasticsearch", APIKey: "k", APIEndpoint: "https://x", DatabasePath: "/d"}, false},
		{"empty kind never", Endpoint{APIKey: "k", APIEndpoint: "https://x"}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.usable, tc.ep.Usable())
		})
	}
}

func TestNewRegistry_FiltersUnusableEndpoints(t *testing.T) {
	t.Parallel()

	endpoints := map[string]Endpoint{
		"good":     {Name: "good", Kind: KindMemory, Enabled: true},
		"disabled": {Name: "disabled", Kind: KindMemory, Enabled: false},
		"badcreds": {Name: "badcreds", Kind: KindAzureAISearch, Enabled: true},
	}
	reg, err := NewRegistry(endpoints, "", zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, []string{"good"}, reg.Names())

	_, ok := reg.Get("disabled")
	require.False(t, ok)
	_, ok = reg.Get("badcreds")
	require.False(t, ok)
}

func TestNewRegistry_NoUsableEndpoints(t *testing.T) {
	t.Parallel()

	endpoints := map[string]Endpoint{
		"badcreds": {Name: "badcreds", Kind: KindMilvus, Enabled: true},
	}
	_, err := NewRegistry(endpoints, "", zap.NewNop())
	require.ErrorIs(t, err, ErrNoUsableEndpoints)
}

func TestNewRegistry_NamesSorted(t *testing.T) {
	t.Parallel()

	endpoints := map[string]Endpoint{
		"zeta":  {Name: "zeta", Kind: KindMemory, Enabled: true},
		"alpha": {Name: "alpha", Kind: KindMemory, Enabled: true},
		"mid":   {Name: "mid", Kind: KindMemory, Enabled: true},
	}
	reg, err := NewRegistry(endpoints, "", zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, []string{"alpha", "mid", "zeta"}, reg.Names())
}

func TestNewRegistry_WriteEndpointValidation(t *testing.T) {
	t.Parallel()

	endpoints := map[string]Endpoint{
		"reader": {Name: "reader", Kind: KindMemory, Enabled: true},
		"writer": {Name: "writer", Kind: KindPostgres, Enabled: true, APIEndpoint: "postgres://u@h/db"},
		"broken": {Name: "broken", Kind: KindAzureAISearch, Enabled: true},
	}

	reg, err := NewRegistry(endpoints, "writer", zap.NewNop())
	require.NoError(t, err)
	ep, err := reg.WriteEndpoint()
	require.NoError(t, err)
	require.Equal(t, "writer", ep.Name)

	_, err = NewRegistry(endpoints, "missing", zap.NewNop())
	require.ErrorIs(t, err, ErrUnknownEndpoint)

	_, err = NewRegistry(endpoints, "broken", zap.NewNop())
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing required credentials")
}

func TestNewRegistry_NoWriteEndpointNotFatal(t *testing.T) {
	t.Parallel()

	endpoints := map[string]Endpoint{
		"reader": {Name: "reader", Kind: KindMemory, Enabled: true},
	}
	reg, err := NewRegistry(endpoints, "", zap.NewNop())
	require.NoError(t, err)

	_, err = reg.WriteEndpoint()
	require.ErrorIs(t, err, ErrNoWriteEndpoint)
}

func TestNewPinnedRegistry(t *testing.T) {
	t.Parallel()

	endpoints := map[string]Endpoint{
		"one": {Name: "one", Kind: KindMemory, Enabled: true},
		"two": {Name: "two", Kind: KindMemory, Enabled: true},
	}

	reg, err := NewPinnedRegistry(endpoints, "two", "", zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, []string{"two"}, reg.Names())
	pinned, ok := reg.Pinned()
	require.True(t, ok)
	require.Equal(t, "two", pinned)

	_, err = NewPinnedRegistry(endpoints, "absent", "", zap.NewNop())
	require.ErrorIs(t, err, ErrUnknownEndpoint)
}
