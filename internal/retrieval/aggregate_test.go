package retrieval

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func urls(results []Result) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.URL)
	}
	return out
}

func TestAggregate_RoundRobinInterleave(t *testing.T) {
	t.Parallel()

	perEndpoint := map[string][]Result{
		"a": {{URL: "u1"}, {URL: "u2"}, {URL: "u3"}},
		"b": {{URL: "u4"}, {URL: "u5"}},
	}
	merged := aggregate([]string{"a", "b"}, perEndpoint)
	require.Equal(t, []string{"u1", "u4", "u2", "u5", "u3"}, urls(merged))
}

func TestAggregate_SingleEndpointListUnchanged(t *testing.T) {
	t.Parallel()

	list := []Result{
		{URL: "u1", Payload: `{"a":1}`, Name: "n1", Site: "s1"},
		{URL: "u2", Payload: `{"b":2}`, Name: "n2", Site: "s1"},
		{URL: "u3", Payload: "", Name: "n3", Site: "s2"},
	}
	merged := aggregate([]string{"only"}, map[string][]Result{"only": list})
	require.Equal(t, list, merged)
}

func TestAggregate_DuplicateURLEmittedOnce(t *testing.T) {
	t.Parallel()

	perEndpoint := map[string][]Result{
		"a": {{URL: "u1"}, {URL: "shared"}},
		"b": {{URL: "shared"}, {URL: "u2"}},
	}
	merged := aggregate([]string{"a", "b"}, perEndpoint)
	require.Equal(t, []string{"u1", "shared", "u2"}, urls(merged))
}

func TestAggregate_FirstContributorSetsNameAndSite(t *testing.T) {
	t.Parallel()

	perEndpoint := map[string][]Result{
		"a": {{URL: "u", Name: "from-a", Site: "site-a"}},
		"b": {{URL: "u", Name: "from-b", Site: "site-b"}},
	}
	merged := aggregate([]string{"a", "b"}, perEndpoint)
	require.Len(t, merged, 1)
	require.Equal(t, "from-a", merged[0].Name)
	require.Equal(t, "site-a", merged[0].Site)
}

func TestAggregate_SingleContributorKeepsPayloadVerbatim(t *testing.T) {
	t.Parallel()

	// Not canonical JSON. A lone contributor's payload must survive
	// byte-for-byte, never a reserialized copy.
	payload := `{ "b": 2,   "a": 1 }`
	perEndpoint := map[string][]Result{
		"a": {{URL: "u", Payload: payload}},
	}
	merged := aggregate([]string{"a"}, perEndpoint)
	require.Len(t, merged, 1)
	require.Equal(t, payload, merged[0].Payload)
}

func TestAggregate_MultipleContributorsMergePayloads(t *testing.T) {
	t.Parallel()

	perEndpoint := map[string][]Result{
		"a": {{URL: "u", Payload: `{"a":1}`}},
		"b": {{URL: "u", Payload: `{"b":2}`}},
	}
	merged := aggregate([]string{"a", "b"}, perEndpoint)
	require.Len(t, merged, 1)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(merged[0].Payload), &got))
	require.Equal(t, map[string]any{"a": float64(1), "b": float64(2)}, got)
}

func TestAggregate_EmptyURLSkipped(t *testing.T) {
	t.Parallel()

	perEndpoint := map[string][]Result{
		"a": {{URL: ""}, {URL: "u1"}},
	}
	merged := aggregate([]string{"a"}, perEndpoint)
	require.Equal(t, []string{"u1"}, urls(merged))
}

func TestDedupeByURL_LongestPayloadWins(t *testing.T) {
	t.Parallel()

	in := []Result{
		{URL: "u1", Payload: "short"},
		{URL: "u2", Payload: "x"},
		{URL: "u1", Payload: "a much longer payload"},
	}
	out := dedupeByURL(in)
	require.Equal(t, []string{"u1", "u2"}, urls(out))
	require.Equal(t, "a much longer payload", out[0].Payload)
}

func TestDedupeByURL_PreservesInputOrder(t *testing.T) {
	t.Parallel()

	in := []Result{{URL: "c"}, {URL: "a"}, {URL: "b"}, {URL: "a"}}
	out := dedupeByURL(in)
	require.Equal(t, []string{"c", "a", "b"}, urls(out))
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	in := []Result{{URL: "u1"}, {URL: "u2"}, {URL: "u3"}}
	require.Len(t, truncate(in, 2), 2)
	require.Len(t, truncate(in, 3), 3)
	require.Len(t, truncate(in, 10), 3)
	require.Len(t, truncate(in, 0), 3, "zero limit means unlimited")
}
