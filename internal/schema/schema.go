package schema

import (
	"context"
	"sort"
	"strings"
	"sync/atomic"
)

// Schema is the immutable result of Registry.Build. Every definition reachable
// from it is sealed and may be read concurrently without synchronization.
type Schema struct {
	definitions map[string]Definition
	order       []string
}

// Lookup returns the definition registered under id.
func (s *Schema) Lookup(id string) (Definition, bool) {
	d, ok := s.definitions[id]
	return d, ok
}

// Definitions returns all definitions sorted by ID.
func (s *Schema) Definitions() []Definition {
	out := make([]Definition, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.definitions[id])
	}
	return out
}

// Object returns the object registered under id, or nil.
func (s *Schema) Object(id string) *Object {
	o, _ := s.definitions[id].(*Object)
	return o
}

// ArgumentSet returns the argument set registered under id, or nil.
func (s *Schema) ArgumentSet(id string) *ArgumentSet {
	a, _ := s.definitions[id].(*ArgumentSet)
	return a
}

// Enum returns the enum registered under id, or nil.
func (s *Schema) Enum(id string) *Enum {
	e, _ := s.definitions[id].(*Enum)
	return e
}

// Polymorph returns the polymorph registered under id, or nil.
func (s *Schema) Polymorph(id string) *Polymorph {
	p, _ := s.definitions[id].(*Polymorph)
	return p
}

// ErrorType returns the error type registered under id, or nil.
func (s *Schema) ErrorType(id string) *ErrorType {
	e, _ := s.definitions[id].(*ErrorType)
	return e
}

// Authenticator returns the authenticator registered under id, or nil.
func (s *Schema) Authenticator(id string) *Authenticator {
	a, _ := s.definitions[id].(*Authenticator)
	return a
}

func newSchema(defs map[string]Definition) *Schema {
	order := make([]string, 0, len(defs))
	for id := range defs {
		order = append(order, id)
	}
	sort.Strings(order)
	return &Schema{definitions: defs, order: order}
}

// Definition is implemented by every definable construct in this package.
type Definition interface {
	DefinitionID() string
	// references lists type tokens and nested definitions this definition points
	// at, so the registry can collate definitions reachable only by pointer.
	references() []any
	seal()
}

// Kind classifies a resolved type.
type Kind string

const (
	KindScalar      Kind = "scalar"
	KindObject      Kind = "object"
	KindEnum        Kind = "enum"
	KindArgumentSet Kind = "argument_set"
	KindPolymorph   Kind = "polymorph"
)

// TypeRef is the resolved classification of a declared type token.
type TypeRef struct {
	Kind     Kind
	Name     string
	Array    bool
	Nullable bool

	scalar    *Scalar
	object    *Object
	enum      *Enum
	argSet    *ArgumentSet
	polymorph *Polymorph
}

func (t *TypeRef) IsScalar() bool      { return t != nil && t.Kind == KindScalar }
func (t *TypeRef) IsObject() bool      { return t != nil && t.Kind == KindObject }
func (t *TypeRef) IsEnum() bool        { return t != nil && t.Kind == KindEnum }
func (t *TypeRef) IsArgumentSet() bool { return t != nil && t.Kind == KindArgumentSet }
func (t *TypeRef) IsPolymorph() bool   { return t != nil && t.Kind == KindPolymorph }

func (t *TypeRef) Scalar() *Scalar           { return t.scalar }
func (t *TypeRef) Object() *Object           { return t.object }
func (t *TypeRef) Enum() *Enum               { return t.enum }
func (t *TypeRef) ArgumentSet() *ArgumentSet { return t.argSet }
func (t *TypeRef) Polymorph() *Polymorph     { return t.polymorph }

// UsableForArgument reports whether values of this type may be accepted as input.
// Objects and polymorphs are output-only.
func (t *TypeRef) UsableForArgument() bool {
	return t.IsScalar() || t.IsEnum() || t.IsArgumentSet()
}

// UsableForField reports whether values of this type may be emitted as output.
// Argument sets are input-only.
func (t *TypeRef) UsableForField() bool {
	return t.IsScalar() || t.IsEnum() || t.IsObject() || t.IsPolymorph()
}

// String renders the reference the way it would be declared, e.g. "[integer]".
func (t *TypeRef) String() string {
	if t == nil {
		return "<unresolved>"
	}
	if t.Array {
		return "[" + t.Name + "]"
	}
	return t.Name
}

// withModifiers copies a memoized base reference and applies use-site flags.
func (t *TypeRef) withModifiers(array, nullable bool) *TypeRef {
	cp := *t
	cp.Array = array
	cp.Nullable = nullable
	return &cp
}

// Array wraps a type token to declare an array of that type.
type Array struct {
	Of any
}

// ArrayOf declares an array of the given type token.
func ArrayOf(of any) Array { return Array{Of: of} }

// Request carries per-request context consulted by conditions, route lookups,
// sparse field filtering and lookup resolvers. A nil *Request is valid and
// means "no request context".
type Request struct {
	Context  context.Context
	Route    map[string]string
	Fields   FieldFilter
	Identity any
	Scopes   []string
	Values   map[string]any
}

// Ctx returns the request context, falling back to context.Background.
func (r *Request) Ctx() context.Context {
	if r == nil || r.Context == nil {
		return context.Background()
	}
	return r.Context
}

// WithContext returns a shallow copy of r carrying ctx. A nil r yields a
// request holding only ctx.
func (r *Request) WithContext(ctx context.Context) *Request {
	var cp Request
	if r != nil {
		cp = *r
	}
	if ctx != nil {
		cp.Context = ctx
	}
	return &cp
}

// RouteValue returns the route-extracted value for name.
func (r *Request) RouteValue(name string) (string, bool) {
	if r == nil || r.Route == nil {
		return "", false
	}
	v, ok := r.Route[name]
	return v, ok
}

// FieldFilter decides whether a field path is selected for output.
type FieldFilter interface {
	Allows(r *Request, path []*Field) bool
}

var includeSpecParser func(string) (FieldFilter, error)

// RegisterIncludeSpecParser installs the parser that Build applies to every
// field include spec. Registries built before a parser is installed accept
// any include spec. It is meant to be called from an init function.
func RegisterIncludeSpecParser(parse func(string) (FieldFilter, error)) {
	includeSpecParser = parse
}

// FieldGetter lets source values expose fields without reflection.
type FieldGetter interface {
	GetField(name string) (any, bool)
}

type sealable struct {
	done atomic.Bool
}

func (s *sealable) seal()        { s.done.Store(true) }
func (s *sealable) sealed() bool { return s.done.Load() }

func (s *sealable) mustBeOpen(what string) {
	if s.done.Load() {
		panic("schema: " + what + " modified after build")
	}
}

// camelize turns snake_case into CamelCase.
func camelize(s string) string {
	parts := strings.Split(s, "_")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, "")
}
