package executor

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	schema "github.com/hanpama/apiform/internal/schema"
)

// ArgumentSet holds the parsed values of one construction. It is owned by
// the request that built it and is not safe for concurrent Resolve calls.
type ArgumentSet struct {
	def    *schema.ArgumentSet
	values map[string]any
	path   Path
	req    *schema.Request
	lookup lookupCell
}

// Get returns the parsed value for name, or nil when absent.
func (s *ArgumentSet) Get(name string) any {
	return s.values[name]
}

// Has reports whether name was given a value, including an explicit null.
func (s *ArgumentSet) Has(name string) bool {
	_, ok := s.values[name]
	return ok
}

// Dig descends through nested argument sets.
func (s *ArgumentSet) Dig(names ...string) any {
	var cur any = s
	for _, name := range names {
		set, ok := cur.(*ArgumentSet)
		if !ok || set == nil {
			return nil
		}
		cur = set.Get(name)
	}
	return cur
}

func (s *ArgumentSet) Len() int    { return len(s.values) }
func (s *ArgumentSet) Empty() bool { return len(s.values) == 0 }

func (s *ArgumentSet) Definition() *schema.ArgumentSet { return s.def }

// Path is the location of this set within the top-level input.
func (s *ArgumentSet) Path() Path { return s.path }

// ToMap returns the values with nested argument sets flattened into maps.
func (s *ArgumentSet) ToMap() map[string]any {
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = flatten(v)
	}
	return out
}

func flatten(v any) any {
	switch x := v.(type) {
	case *ArgumentSet:
		return x.ToMap()
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = flatten(e)
		}
		return out
	}
	return v
}

// Decode copies the values into out, a pointer to a struct whose fields are
// matched by their `arg` tag or name.
func (s *ArgumentSet) Decode(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "arg",
		Result:  out,
		Squash:  true,
	})
	if err != nil {
		return fmt.Errorf("decode %s: %w", s.def.ID, err)
	}
	if err := dec.Decode(s.ToMap()); err != nil {
		return fmt.Errorf("decode %s: %w", s.def.ID, err)
	}
	return nil
}
