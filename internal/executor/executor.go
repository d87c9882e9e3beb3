package executor

import (
	"errors"
	"reflect"

	schema "github.com/hanpama/apiform/internal/schema"
)

// Serialize emits the fields of fs read from source. prefix is prepended to
// every error path. The first failure aborts serialization.
func Serialize(source any, fs *schema.FieldSet, req *schema.Request, prefix Path) (map[string]any, error) {
	if !fs.Built() {
		return nil, unbuilt("field set")
	}
	s := &serializer{req: req}
	return s.fieldSet(source, fs, prefix, nil)
}

// SerializeObject emits source as obj. The boolean is false when one of the
// object's conditions excludes source.
func SerializeObject(source any, obj *schema.Object, req *schema.Request, prefix Path) (map[string]any, bool, error) {
	if obj == nil {
		return nil, false, unbuilt("nil object")
	}
	if !obj.Fields().Built() {
		return nil, false, unbuilt("object " + obj.ID)
	}
	s := &serializer{req: req}
	return s.object(source, obj, prefix, nil)
}

type serializer struct {
	req *schema.Request
}

func (s *serializer) object(source any, obj *schema.Object, path Path, trail []*schema.Field) (map[string]any, bool, error) {
	if !obj.Include(source, s.req) {
		return nil, false, nil
	}
	out, err := s.fieldSet(source, obj.Fields(), path, trail)
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

func (s *serializer) fieldSet(source any, fs *schema.FieldSet, path Path, trail []*schema.Field) (map[string]any, error) {
	result := make(map[string]any, fs.Len())
	for _, f := range fs.Fields() {
		if !f.Applies(source, s.req) {
			continue
		}
		fieldTrail := make([]*schema.Field, len(trail)+1)
		copy(fieldTrail, trail)
		fieldTrail[len(trail)] = f
		if s.req != nil && s.req.Fields != nil && !s.req.Fields.Allows(s.req, fieldTrail) {
			continue
		}

		fieldPath := appendPath(path, f.Name)
		raw, err := extractField(source, f, s.req)
		if err != nil {
			return nil, backendError(f, fieldPath, err)
		}
		value, include, err := s.fieldValue(raw, f, fieldPath, fieldTrail)
		if err != nil {
			return nil, err
		}
		if !include {
			continue
		}
		result[f.Name] = value
	}
	return result, nil
}

func (s *serializer) fieldValue(v any, f *schema.Field, path Path, trail []*schema.Field) (any, bool, error) {
	if isNullish(v) {
		if f.Nullable() {
			return nil, true, nil
		}
		return nil, false, fieldError(KindNullFieldValue, f, path, -1, v, nil)
	}
	ref := f.Type()
	if !ref.Array {
		return s.single(v, f, ref, path, -1, trail)
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false, fieldError(KindInvalidArrayValue, f, path, -1, v, nil)
	}
	out := make([]any, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		elem := rv.Index(i).Interface()
		elemPath := appendPath(path, i)
		if isNullish(elem) {
			if !f.Nullable() {
				return nil, false, fieldError(KindNullFieldValue, f, elemPath, i, elem, nil)
			}
			out = append(out, nil)
			continue
		}
		value, include, err := s.single(elem, f, ref, elemPath, i, trail)
		if err != nil {
			return nil, false, err
		}
		if include {
			out = append(out, value)
		}
	}
	return out, true, nil
}

func (s *serializer) single(v any, f *schema.Field, ref *schema.TypeRef, path Path, index int, trail []*schema.Field) (any, bool, error) {
	switch {
	case ref.IsScalar():
		out, err := ref.Scalar().Cast(leafValue(v))
		if err != nil {
			return nil, false, fieldError(KindInvalidScalarValue, f, path, index, v, err)
		}
		return out, true, nil

	case ref.IsEnum():
		out, err := ref.Enum().Cast(enumValue(v))
		if err != nil {
			return nil, false, fieldError(KindInvalidEnumOption, f, path, index, v, err)
		}
		return out, true, nil

	case ref.IsObject():
		out, include, err := s.object(v, ref.Object(), path, trail)
		if err != nil || !include {
			return nil, false, err
		}
		return out, true, nil

	case ref.IsPolymorph():
		opt, ok := ref.Polymorph().Resolve(v)
		if !ok {
			return nil, false, fieldError(KindInvalidPolymorphValue, f, path, index, v, nil)
		}
		out, include, err := s.single(v, f, opt.Type(), path, index, trail)
		if err != nil || !include {
			return nil, false, err
		}
		return map[string]any{opt.Name: out}, true, nil
	}
	return nil, false, fieldError(KindInvalidScalarValue, f, path, index, v, errors.New("field type is not emittable"))
}

// leafValue dereferences non-nil pointers so scalars and enums may be held by
// reference.
func leafValue(v any) any {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr && !rv.IsNil() {
		rv = rv.Elem()
	}
	return rv.Interface()
}

// enumValue also converts named string types to string.
func enumValue(v any) any {
	v = leafValue(v)
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.String {
		return rv.String()
	}
	return v
}

func backendError(f *schema.Field, path Path, err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return fieldError(KindBackendError, f, path, -1, nil, err)
}
