package executor

import (
	"errors"
	"reflect"

	schema "github.com/hanpama/apiform/internal/schema"
)

// missingValue marks an argument with no value from any source. It never
// escapes this package.
type missingValue struct{}

var missing any = missingValue{}

// Construct validates raw input against def and returns the typed argument
// set. raw must be a string-keyed map; nil is treated as an empty map. The
// first failure aborts construction. def must belong to a built registry.
func Construct(raw any, def *schema.ArgumentSet, req *schema.Request) (*ArgumentSet, error) {
	if !def.Built() {
		return nil, unbuiltArgumentSet(def)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return constructArgumentSet(raw, def, req, Path{}, -1)
}

func constructArgumentSet(raw any, def *schema.ArgumentSet, req *schema.Request, path Path, index int) (*ArgumentSet, error) {
	input, ok := newInputMap(raw)
	if !ok {
		return nil, &Error{Kind: KindInvalidArgumentSet, Path: path, Index: index, Value: raw}
	}

	values := make(map[string]any, len(def.Arguments()))
	for _, arg := range def.Arguments() {
		if !arg.Applies(req) {
			continue
		}
		argPath := appendPath(path, arg.Name)

		v := lookupArgumentValue(input, arg, req)
		if arg.Required() && (v == missing || v == nil) {
			return nil, missingArgument(arg, argPath, -1)
		}
		if v == missing {
			continue
		}

		parsed, err := parseArgumentValue(v, arg, arg.Type(), req, argPath)
		if err != nil {
			return nil, err
		}
		if parsed != nil {
			if failed := arg.Validate(parsed); len(failed) > 0 {
				e := invalidArgument(arg, IssueValidationErrors, argPath, -1, v)
				e.Errors = failed
				return nil, e
			}
		}
		values[arg.Name] = parsed
	}

	set := &ArgumentSet{def: def, values: values, path: path, req: req}
	if def.Lookup() {
		if err := set.checkLookup(index); err != nil {
			return nil, err
		}
	}
	return set, nil
}

// lookupArgumentValue finds the raw value for arg: the input map, then the
// route, then the declared default.
func lookupArgumentValue(input inputMap, arg *schema.Argument, req *schema.Request) any {
	if v, ok := input.get(arg.Name); ok {
		return v
	}
	if v, ok := req.RouteValue(arg.Name); ok {
		if ref := arg.Type(); ref.IsArgumentSet() && !ref.Array {
			if args := ref.ArgumentSet().Arguments(); len(args) > 0 {
				return map[string]any{args[0].Name: v}
			}
		}
		return v
	}
	if arg.HasDefault() {
		return arg.Default()
	}
	return missing
}

func parseArgumentValue(v any, arg *schema.Argument, ref *schema.TypeRef, req *schema.Request, path Path) (any, error) {
	if v == nil {
		return nil, nil
	}
	if !ref.Array {
		return parseSingleValue(v, arg, ref, req, path, -1)
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, invalidArgument(arg, IssueArrayExpected, path, -1, v)
	}
	out := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		elem := rv.Index(i).Interface()
		if elem == nil {
			continue
		}
		parsed, err := parseSingleValue(elem, arg, ref, req, appendPath(path, i), i)
		if err != nil {
			return nil, err
		}
		out[i] = parsed
	}
	return out, nil
}

func parseSingleValue(v any, arg *schema.Argument, ref *schema.TypeRef, req *schema.Request, path Path, index int) (any, error) {
	switch {
	case ref.IsScalar():
		parsed, err := ref.Scalar().Parse(v)
		if err != nil {
			e := invalidArgument(arg, IssueParseError, path, index, v)
			var perr *schema.ParseError
			if errors.As(err, &perr) {
				e.Errors = []string{perr.Message}
			} else {
				e.Errors = []string{err.Error()}
			}
			e.Cause = err
			return nil, e
		}
		if !ref.Scalar().Valid(parsed) {
			return nil, invalidArgument(arg, IssueInvalidScalar, path, index, v)
		}
		return parsed, nil

	case ref.IsArgumentSet():
		if _, ok := newInputMap(v); !ok {
			return nil, invalidArgument(arg, IssueObjectExpected, path, index, v)
		}
		return constructArgumentSet(v, ref.ArgumentSet(), req, path, index)

	case ref.IsEnum():
		if !ref.Enum().Has(v) {
			return nil, invalidArgument(arg, IssueInvalidEnumValue, path, index, v)
		}
		return v, nil
	}
	return v, nil
}

// inputMap reads string keys from map[string]any directly and from other
// maps whose key kind is string through reflection.
type inputMap struct {
	direct map[string]any
	rv     reflect.Value
}

func newInputMap(raw any) (inputMap, bool) {
	if m, ok := raw.(map[string]any); ok {
		return inputMap{direct: m}, true
	}
	if raw == nil {
		return inputMap{}, false
	}
	rv := reflect.ValueOf(raw)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return inputMap{}, false
	}
	return inputMap{rv: rv}, true
}

func (m inputMap) get(key string) (any, bool) {
	if m.direct != nil {
		v, ok := m.direct[key]
		return v, ok
	}
	if !m.rv.IsValid() || m.rv.IsNil() {
		return nil, false
	}
	v := m.rv.MapIndex(reflect.ValueOf(key).Convert(m.rv.Type().Key()))
	if !v.IsValid() {
		return nil, false
	}
	return v.Interface(), true
}
