package retrieval

import (
	"encoding/json"
	"reflect"
)

// mergeJSONPayloads deep-merges the serialized payloads contributed by
// multiple endpoints for the same URL into one combined document. Objects
// merge recursively with the earliest contributor winning scalar conflicts;
// arrays union, preserving order of first appearance. Payloads that fail to
// parse are skipped; if nothing parses, the first payload is returned
// untouched.
func mergeJSONPayloads(payloads []string) string {
	var merged any
	parsed := 0
	for _, p := range payloads {
		var v any
		if err := json.Unmarshal([]byte(p), &v); err != nil {
			continue
		}
		if parsed == 0 {
			merged = v
		} else {
			merged = mergeJSONValues(merged, v)
		}
		parsed++
	}
	if parsed == 0 {
		return payloads[0]
	}
	out, err := json.Marshal(merged)
	if err != nil {
		return payloads[0]
	}
	return string(out)
}

func mergeJSONValues(dst, src any) any {
	switch d := dst.(type) {
	case map[string]any:
		s, ok := src.(map[string]any)
		if !ok {
			return d
		}
		for k, sv := range s {
			if dv, exists := d[k]; exists {
				d[k] = mergeJSONValues(dv, sv)
			} else {
				d[k] = sv
			}
		}
		return d
	case []any:
		s, ok := src.([]any)
		if !ok {
			return d
		}
		for _, sv := range s {
			if !containsJSONValue(d, sv) {
				d = append(d, sv)
			}
		}
		return d
	default:
		// Scalar conflict: the earlier contributor wins.
		return dst
	}
}

func containsJSONValue(list []any, v any) bool {
	for _, item := range list {
		if reflect.DeepEqual(item, v) {
			return true
		}
	}
	return false
}
