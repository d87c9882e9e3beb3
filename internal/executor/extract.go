package executor

import (
	"reflect"
	"strings"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"

	schema "github.com/hanpama/apiform/internal/schema"
)

// extractField obtains the raw value of f from source.
func extractField(source any, f *schema.Field, req *schema.Request) (any, error) {
	if backend := f.Backend(); backend != nil {
		return backend(source, req)
	}
	v, _, err := lookupSourceField(source, f.Key())
	return v, err
}

// lookupSourceField reads key from a map, a FieldGetter, a protobuf message,
// a struct field or a zero-argument method, in that order.
func lookupSourceField(source any, key string) (any, bool, error) {
	if source == nil {
		return nil, false, nil
	}
	if m, ok := source.(map[string]any); ok {
		v, found := m[key]
		return v, found, nil
	}
	if input, ok := newInputMap(source); ok {
		v, found := input.get(key)
		return v, found, nil
	}
	if g, ok := source.(schema.FieldGetter); ok {
		v, found := g.GetField(key)
		return v, found, nil
	}
	if m, ok := source.(proto.Message); ok {
		if v, found := protoField(m.ProtoReflect(), key); found {
			return v, true, nil
		}
		return nil, false, nil
	}

	rv := reflect.ValueOf(source)
	base := rv
	for base.Kind() == reflect.Ptr || base.Kind() == reflect.Interface {
		if base.IsNil() {
			return nil, false, nil
		}
		base = base.Elem()
	}
	if base.Kind() == reflect.Map && base.Type().Key().Kind() == reflect.String {
		v, found := inputMap{rv: base}.get(key)
		return v, found, nil
	}
	if base.Kind() == reflect.Struct {
		if fv, ok := structField(base, key); ok {
			return fv.Interface(), true, nil
		}
	}
	for _, recv := range []reflect.Value{rv, base} {
		if v, found, err := callMethod(recv, key); found {
			return v, true, err
		}
	}
	return nil, false, nil
}

// structField matches the `api` tag, then the `json` tag, then the Go name
// ignoring case and underscores.
func structField(rv reflect.Value, key string) (reflect.Value, bool) {
	t := rv.Type()
	for _, tag := range []string{"api", "json"} {
		for i := 0; i < t.NumField(); i++ {
			sf := t.Field(i)
			if !sf.IsExported() {
				continue
			}
			name, _, _ := strings.Cut(sf.Tag.Get(tag), ",")
			if name == key {
				return rv.Field(i), true
			}
		}
	}
	plain := strings.ReplaceAll(key, "_", "")
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.IsExported() && strings.EqualFold(sf.Name, plain) {
			return rv.Field(i), true
		}
	}
	return reflect.Value{}, false
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// callMethod invokes the zero-argument method named after key, e.g.
// day_of_week calls DayOfWeek. A second error result is honoured.
func callMethod(rv reflect.Value, key string) (any, bool, error) {
	if !rv.IsValid() {
		return nil, false, nil
	}
	m := rv.MethodByName(methodName(key))
	if !m.IsValid() {
		return nil, false, nil
	}
	mt := m.Type()
	if mt.NumIn() != 0 || mt.NumOut() == 0 || mt.NumOut() > 2 {
		return nil, false, nil
	}
	if mt.NumOut() == 2 && !mt.Out(1).Implements(errorType) {
		return nil, false, nil
	}
	out := m.Call(nil)
	if len(out) == 2 && !out[1].IsNil() {
		return nil, true, out[1].Interface().(error)
	}
	return out[0].Interface(), true, nil
}

func methodName(key string) string {
	parts := strings.Split(key, "_")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, "")
}

// protoField reads a populated field by proto name, then JSON name.
func protoField(m protoreflect.Message, key string) (any, bool) {
	fields := m.Descriptor().Fields()
	fd := fields.ByName(protoreflect.Name(key))
	if fd == nil {
		fd = fields.ByJSONName(key)
	}
	if fd == nil {
		return nil, false
	}
	if fd.HasPresence() && !m.Has(fd) {
		return nil, true
	}
	return protoValue(fd, m.Get(fd)), true
}

func protoValue(fd protoreflect.FieldDescriptor, v protoreflect.Value) any {
	switch {
	case fd.IsList():
		list := v.List()
		out := make([]any, list.Len())
		for i := 0; i < list.Len(); i++ {
			out[i] = protoSingular(fd, list.Get(i))
		}
		return out
	case fd.IsMap():
		out := make(map[string]any, v.Map().Len())
		v.Map().Range(func(k protoreflect.MapKey, mv protoreflect.Value) bool {
			out[k.String()] = protoSingular(fd.MapValue(), mv)
			return true
		})
		return out
	}
	return protoSingular(fd, v)
}

func protoSingular(fd protoreflect.FieldDescriptor, v protoreflect.Value) any {
	switch fd.Kind() {
	case protoreflect.EnumKind:
		if ev := fd.Enum().Values().ByNumber(v.Enum()); ev != nil {
			return string(ev.Name())
		}
		return int64(v.Enum())
	case protoreflect.MessageKind, protoreflect.GroupKind:
		msg := v.Message()
		if msg.Descriptor().FullName() == "google.protobuf.Timestamp" {
			return protoTimestamp(msg)
		}
		return msg.Interface()
	}
	return v.Interface()
}

func protoTimestamp(m protoreflect.Message) time.Time {
	fields := m.Descriptor().Fields()
	secs := m.Get(fields.ByName("seconds")).Int()
	nanos := m.Get(fields.ByName("nanos")).Int()
	return time.Unix(secs, nanos).UTC()
}

// isNullish returns true for nil interfaces and typed nils (map, slice, ptr, interface)
func isNullish(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Interface, reflect.Ptr, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
