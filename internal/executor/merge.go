package executor

// MergeInput deep-merges body over query. Nested maps are merged key by key;
// any other body value replaces the query value. Neither input is modified.
func MergeInput(query, body map[string]any) map[string]any {
	out := make(map[string]any, len(query)+len(body))
	for k, v := range query {
		out[k] = v
	}
	for k, v := range body {
		bm, bok := v.(map[string]any)
		qm, qok := out[k].(map[string]any)
		if bok && qok {
			out[k] = MergeInput(qm, bm)
			continue
		}
		out[k] = v
	}
	return out
}
