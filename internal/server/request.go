package server

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/goccy/go-json"

	executor "github.com/hanpama/apiform/internal/executor"
)

// invalidJSONError reports a request body that is not a JSON object.
type invalidJSONError struct {
	details string
}

func (e *invalidJSONError) Error() string { return "invalid JSON body: " + e.details }

var errBodyTooLarge = errors.New("body too large")

// readInput merges query parameters with the JSON body. Body values win.
func readInput(r *http.Request, maxBody int64) (map[string]any, error) {
	query := parseQuery(r.URL.Query())
	body, err := readBody(r, maxBody)
	if err != nil {
		return nil, err
	}
	return executor.MergeInput(query, body), nil
}

func readBody(r *http.Request, maxBody int64) (map[string]any, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}
	defer r.Body.Close()
	reader := io.Reader(r.Body)
	if maxBody > 0 {
		reader = io.LimitReader(r.Body, maxBody+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, &invalidJSONError{details: err.Error()}
	}
	if maxBody > 0 && int64(len(data)) > maxBody {
		return nil, errBodyTooLarge
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, &invalidJSONError{details: err.Error()}
	}
	if dec.More() {
		return nil, &invalidJSONError{details: "unexpected data after the top-level value"}
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, &invalidJSONError{details: "the body must be a JSON object"}
	}
	return m, nil
}

// parseQuery expands bracket notation: a[b]=1 nests, a[]=1 appends.
func parseQuery(values url.Values) map[string]any {
	out := map[string]any{}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		for _, v := range values[key] {
			setQueryValue(out, splitKey(key), v)
		}
	}
	return out
}

// splitKey turns "a[b][]" into ["a", "b", ""].
func splitKey(key string) []string {
	i := strings.IndexByte(key, '[')
	if i <= 0 || !strings.HasSuffix(key, "]") {
		return []string{key}
	}
	parts := []string{key[:i]}
	for _, p := range strings.Split(key[i+1:len(key)-1], "][") {
		parts = append(parts, p)
	}
	return parts
}

func setQueryValue(m map[string]any, parts []string, v string) {
	head := parts[0]
	if len(parts) == 1 {
		m[head] = v
		return
	}
	if parts[1] == "" {
		list, _ := m[head].([]any)
		m[head] = append(list, v)
		return
	}
	child, ok := m[head].(map[string]any)
	if !ok {
		child = map[string]any{}
		m[head] = child
	}
	setQueryValue(child, parts[1:], v)
}

// bearerToken extracts the credential of an "Authorization: Bearer" header.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}
