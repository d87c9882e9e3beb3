package schema

// Backend computes a field's value from its source.
type Backend func(source any, r *Request) (any, error)

// Field declares one output value of a FieldSet or Object.
type Field struct {
	sealable

	Name        string
	Description string

	token      any
	ref        *TypeRef
	nullable   bool
	backend    Backend
	backendKey string
	condition  func(source any, r *Request) bool

	exclude       bool
	includeSpec   string
	includeFilter FieldFilter
	includeWhen   func(*Request) bool
}

// NewField declares a field of the given type token.
func NewField(name string, typ any) *Field {
	return &Field{Name: name, token: typ}
}

func (f *Field) SetDescription(desc string) *Field {
	f.mustBeOpen("field " + f.Name)
	f.Description = desc
	return f
}

func (f *Field) SetNull(nullable bool) *Field {
	f.mustBeOpen("field " + f.Name)
	f.nullable = nullable
	return f
}

// SetBackend computes the value with fn instead of reading it off the source.
func (f *Field) SetBackend(fn Backend) *Field {
	f.mustBeOpen("field " + f.Name)
	f.backend = fn
	return f
}

// SetBackendKey reads the value from the source under key instead of the
// field name.
func (f *Field) SetBackendKey(key string) *Field {
	f.mustBeOpen("field " + f.Name)
	f.backendKey = key
	return f
}

// SetCondition omits the field whenever fn returns false. fn must be a pure
// function of its arguments.
func (f *Field) SetCondition(fn func(source any, r *Request) bool) *Field {
	f.mustBeOpen("field " + f.Name)
	f.condition = fn
	return f
}

// SetInclude controls whether the field is part of the default field spec.
func (f *Field) SetInclude(include bool) *Field {
	f.mustBeOpen("field " + f.Name)
	f.exclude = !include
	return f
}

// SetIncludeSpec selects the nested fields included by default, e.g. "id,name".
func (f *Field) SetIncludeSpec(spec string) *Field {
	f.mustBeOpen("field " + f.Name)
	f.exclude = false
	f.includeSpec = spec
	return f
}

// SetIncludeWhen decides per request whether the field is part of the default
// field spec.
func (f *Field) SetIncludeWhen(fn func(*Request) bool) *Field {
	f.mustBeOpen("field " + f.Name)
	f.includeWhen = fn
	return f
}

// Type returns the resolved type. It is nil until the owning registry is built.
func (f *Field) Type() *TypeRef   { return f.ref }
func (f *Field) TypeToken() any   { return f.token }
func (f *Field) Nullable() bool   { return f.nullable }
func (f *Field) Array() bool      { return f.ref != nil && f.ref.Array }
func (f *Field) Backend() Backend { return f.backend }

// Key is the name under which the value is read from the source.
func (f *Field) Key() string {
	if f.backendKey != "" {
		return f.backendKey
	}
	return f.Name
}

// Applies evaluates the field's condition.
func (f *Field) Applies(source any, r *Request) bool {
	return f.condition == nil || f.condition(source, r)
}

// IncludedByDefault reports whether the field is selected when the client
// does not name it explicitly.
func (f *Field) IncludedByDefault(r *Request) bool {
	if f.exclude {
		return false
	}
	if f.includeWhen != nil {
		return f.includeWhen(r)
	}
	return true
}

// IncludeSpec returns the nested default selection, or "" to select every
// nested field that is itself included by default.
func (f *Field) IncludeSpec() string { return f.includeSpec }

// IncludeFilter returns the include spec as parsed during build, or nil when
// the field has none or its registry was not built.
func (f *Field) IncludeFilter() FieldFilter { return f.includeFilter }

// FieldSet is an ordered collection of fields keyed by name.
type FieldSet struct {
	sealable

	fields []*Field
	index  map[string]*Field
}

func NewFieldSet(fields ...*Field) *FieldSet {
	fs := &FieldSet{index: make(map[string]*Field)}
	for _, f := range fields {
		fs.Add(f)
	}
	return fs
}

// Add appends a field; redeclaring a name replaces it in place.
func (fs *FieldSet) Add(f *Field) *FieldSet {
	fs.mustBeOpen("field set")
	if _, ok := fs.index[f.Name]; ok {
		for i, existing := range fs.fields {
			if existing.Name == f.Name {
				fs.fields[i] = f
			}
		}
	} else {
		fs.fields = append(fs.fields, f)
	}
	fs.index[f.Name] = f
	return fs
}

func (fs *FieldSet) Fields() []*Field {
	if fs == nil {
		return nil
	}
	return fs.fields
}

func (fs *FieldSet) Field(name string) *Field {
	if fs == nil {
		return nil
	}
	return fs.index[name]
}

func (fs *FieldSet) Len() int { return len(fs.Fields()) }

// Built reports whether fs was sealed by a registry build.
func (fs *FieldSet) Built() bool { return fs != nil && fs.sealed() }

func (fs *FieldSet) references() []any {
	refs := make([]any, 0, len(fs.fields))
	for _, f := range fs.fields {
		refs = append(refs, f.token)
	}
	return refs
}

func (fs *FieldSet) seal() {
	fs.sealable.seal()
	for _, f := range fs.fields {
		f.seal()
	}
}
