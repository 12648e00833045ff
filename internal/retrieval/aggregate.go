package retrieval

// aggregatedRecord accumulates contributions for one URL across endpoints.
type aggregatedRecord struct {
	url      string
	payloads []string
	name     string
	site     string
	count    int
}

// aggregate merges per-endpoint result lists into one URL-deduplicated list.
//
// Pass 1 collects every contribution per URL; the first contributing endpoint
// in iteration order sets the display name and site. Pass 2 produces output
// order by round-robin interleave over the original per-endpoint lists, so
// each backend's internal relevance ordering is preserved and every backend
// gets a fair chance to place its top items early. A URL is emitted the first
// time it is encountered in the interleave; later encounters are suppressed.
// Order depends only on each list's own order plus endpoint iteration order,
// never on completion timing.
func aggregate(order []string, perEndpoint map[string][]Result) []Result {
	records := make(map[string]*aggregatedRecord)
	for _, endpoint := range order {
		for _, res := range perEndpoint[endpoint] {
			rec, ok := records[res.URL]
			if !ok {
				rec = &aggregatedRecord{
					url:  res.URL,
					name: res.Name,
					site: res.Site,
				}
				records[res.URL] = rec
			}
			rec.count++
			if res.Payload != "" {
				rec.payloads = append(rec.payloads, res.Payload)
			}
		}
	}

	// Per-endpoint cursors for the interleave.
	cursors := make(map[string]int, len(order))
	merged := make([]Result, 0, len(records))
	seen := make(map[string]struct{}, len(records))

	for remaining := true; remaining; {
		remaining = false
		for _, endpoint := range order {
			list := perEndpoint[endpoint]
			i := cursors[endpoint]
			if i >= len(list) {
				continue
			}
			cursors[endpoint] = i + 1
			if i+1 < len(list) {
				remaining = true
			}
			url := list[i].URL
			if url == "" {
				continue
			}
			if _, dup := seen[url]; dup {
				continue
			}
			seen[url] = struct{}{}
			rec := records[url]
			merged = append(merged, Result{
				URL:     rec.url,
				Payload: rec.mergedPayload(list[i].Payload),
				Name:    rec.name,
				Site:    rec.site,
			})
		}
	}
	return merged
}

// mergedPayload combines the payloads contributed for one URL. A URL seen by
// exactly one endpoint keeps its payload byte-for-byte; multiple
// contributions are deep-merged.
func (rec *aggregatedRecord) mergedPayload(original string) string {
	if rec.count <= 1 {
		return original
	}
	if len(rec.payloads) == 0 {
		return original
	}
	if len(rec.payloads) == 1 {
		return rec.payloads[0]
	}
	return mergeJSONPayloads(rec.payloads)
}

// dedupeByURL is the simpler single-endpoint cleanup: per URL, keep the one
// entry with the longest payload. Input order is preserved for the entries
// that survive.
func dedupeByURL(results []Result) []Result {
	best := make(map[string]int, len(results))
	order := make([]string, 0, len(results))
	for i, res := range results {
		j, ok := best[res.URL]
		if !ok {
			best[res.URL] = i
			order = append(order, res.URL)
			continue
		}
		if len(res.Payload) > len(results[j].Payload) {
			best[res.URL] = i
		}
	}
	out := make([]Result, 0, len(order))
	for _, url := range order {
		out = append(out, results[best[url]])
	}
	return out
}

func truncate(results []Result, limit int) []Result {
	if limit > 0 && len(results) > limit {
		return results[:limit]
	}
	return results
}
