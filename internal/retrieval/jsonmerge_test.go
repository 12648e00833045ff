package retrieval

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func unmarshalAny(t *testing.T, s string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func TestMergeJSONPayloads(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		payloads []string
		want     string
	}{
		{
			name:     "disjoint objects union",
			payloads: []string{`{"a":1}`, `{"b":2}`},
			want:     `{"a":1,"b":2}`,
		},
		{
			name:     "scalar conflict first wins",
			payloads: []string{`{"name":"first"}`, `{"name":"second"}`},
			want:     `{"name":"first"}`,
		},
		{
			name:     "nested objects merge recursively",
			payloads: []string{`{"meta":{"a":1}}`, `{"meta":{"b":2},"top":true}`},
			want:     `{"meta":{"a":1,"b":2},"top":true}`,
		},
		{
			name:     "arrays union preserving first appearance",
			payloads: []string{`{"tags":["x","y"]}`, `{"tags":["y","z"]}`},
			want:     `{"tags":["x","y","z"]}`,
		},
		{
			name:     "array of objects deduped by deep equality",
			payloads: []string{`{"refs":[{"id":1}]}`, `{"refs":[{"id":1},{"id":2}]}`},
			want:     `{"refs":[{"id":1},{"id":2}]}`,
		},
		{
			name:     "type mismatch keeps first",
			payloads: []string{`{"v":{"a":1}}`, `{"v":[1,2]}`},
			want:     `{"v":{"a":1}}`,
		},
		{
			name:     "unparseable contribution skipped",
			payloads: []string{`{"a":1}`, `not json`, `{"b":2}`},
			want:     `{"a":1,"b":2}`,
		},
		{
			name:     "three way merge",
			payloads: []string{`{"a":1}`, `{"b":2}`, `{"c":3,"a":99}`},
			want:     `{"a":1,"b":2,"c":3}`,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := mergeJSONPayloads(tc.payloads)
			require.Equal(t, unmarshalAny(t, tc.want), unmarshalAny(t, got))
		})
	}
}

func TestMergeJSONPayloads_NothingParses(t *testing.T) {
	t.Parallel()

	got := mergeJSONPayloads([]string{"plain text", "more text"})
	require.Equal(t, "plain text", got)
}

func TestMergeJSONPayloads_Idempotent(t *testing.T) {
	t.Parallel()

	// Merging a document with itself yields the same document.
	payload := `{"a":1,"tags":["x","y"],"meta":{"b":2}}`
	got := mergeJSONPayloads([]string{payload, payload})
	require.Equal(t, unmarshalAny(t, payload), unmarshalAny(t, got))
}
