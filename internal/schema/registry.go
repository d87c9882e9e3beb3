package schema

import (
	"fmt"
	"strings"
	"sync"
)

// Registry collects definitions and builds them into a Schema. Definitions
// referenced by pointer from a registered definition are collated
// automatically; string tokens must name a built-in scalar or a collated ID.
type Registry struct {
	mu        sync.Mutex
	defs      []Definition
	fieldSets []ownedFieldSet

	once   sync.Once
	schema *Schema
	err    error
}

type ownedFieldSet struct {
	owner  string
	fields *FieldSet
}

func NewRegistry(defs ...Definition) *Registry {
	r := &Registry{}
	return r.Add(defs...)
}

// Add registers definitions. It panics once the registry has been built.
func (r *Registry) Add(defs ...Definition) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.schema != nil || r.err != nil {
		panic("schema: registry modified after build")
	}
	r.defs = append(r.defs, defs...)
	return r
}

// AddFieldSet registers a free-standing field set, such as an endpoint's
// response fields, so that its types are resolved and validated on build.
// owner names the set in violations.
func (r *Registry) AddFieldSet(owner string, fs *FieldSet) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.schema != nil || r.err != nil {
		panic("schema: registry modified after build")
	}
	r.fieldSets = append(r.fieldSets, ownedFieldSet{owner: owner, fields: fs})
	return r
}

// Build resolves every type token, validates all definitions and seals them.
// It runs once; later calls return the first result.
func (r *Registry) Build() (*Schema, error) {
	r.once.Do(func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		b := &builder{
			defs: make(map[string]Definition),
			refs: make(map[any]*TypeRef),
		}
		r.schema, r.err = b.build(r.defs, r.fieldSets)
		if r.err != nil {
			r.schema = nil
		}
	})
	return r.schema, r.err
}

// MustBuild is like Build but panics on violations.
func (r *Registry) MustBuild() *Schema {
	s, err := r.Build()
	if err != nil {
		panic(err)
	}
	return s
}

type builder struct {
	defs       map[string]Definition
	refs       map[any]*TypeRef
	violations []*Violation
}

func (b *builder) build(defs []Definition, fieldSets []ownedFieldSet) (*Schema, error) {
	for _, d := range defs {
		b.collate(d)
	}
	for _, fs := range fieldSets {
		for _, ref := range fs.fields.references() {
			b.collateToken(ref)
		}
	}

	s := newSchema(b.defs)
	for _, d := range s.Definitions() {
		b.check(d)
	}
	for _, fs := range fieldSets {
		b.checkFields(fs.owner, fs.fields)
	}
	if len(b.violations) > 0 {
		return nil, &SchemaError{Violations: b.violations}
	}

	for _, d := range b.defs {
		d.seal()
	}
	for _, fs := range fieldSets {
		fs.fields.seal()
	}
	return s, nil
}

func (b *builder) violate(def string, code ViolationCode, format string, args ...any) {
	b.violations = append(b.violations, &Violation{
		Definition: def,
		Code:       code,
		Message:    fmt.Sprintf(format, args...),
	})
}

func (b *builder) collate(d Definition) {
	id := d.DefinitionID()
	if existing, ok := b.defs[id]; ok {
		if existing != d {
			b.violate(id, DuplicateDefinition, "another definition is already registered as %q", id)
		}
		return
	}
	b.defs[id] = d
	for _, ref := range d.references() {
		b.collateToken(ref)
	}
}

func (b *builder) collateToken(token any) {
	switch t := token.(type) {
	case Array:
		b.collateToken(t.Of)
	case Definition:
		b.collate(t)
	}
}

func (b *builder) check(d Definition) {
	switch d := d.(type) {
	case *Object:
		b.checkFields(d.ID, d.fields)

	case *ArgumentSet:
		for _, a := range d.args {
			ref, ok := b.resolve(a.token)
			if !ok {
				b.violate(d.ID, UnresolvableType, "argument %q has unresolvable type %v", a.Name, describeToken(a.token))
				continue
			}
			if !ref.UsableForArgument() {
				b.violate(d.ID, InvalidArgumentType, "argument %q cannot accept %s %q", a.Name, ref.Kind, ref.Name)
				continue
			}
			ref.Nullable = !a.required
			a.ref = ref
		}

	case *Enum:
		if len(d.values) == 0 {
			b.violate(d.ID, EmptyEnum, "enum declares no values")
		}

	case *Polymorph:
		for _, o := range d.options {
			if o.matcher == nil {
				b.violate(d.ID, MissingMatcher, "option %q has no matcher", o.Name)
			}
			ref, ok := b.resolve(o.token)
			if !ok {
				b.violate(d.ID, UnresolvableType, "option %q has unresolvable type %v", o.Name, describeToken(o.token))
				continue
			}
			if !ref.UsableForField() {
				b.violate(d.ID, InvalidFieldType, "option %q cannot emit %s %q", o.Name, ref.Kind, ref.Name)
				continue
			}
			o.ref = ref
		}

	case *Authenticator:
		switch d.Type {
		case AuthenticatorBearer, AuthenticatorAnonymous:
		default:
			b.violate(d.ID, InvalidAuthenticatorType, "type must be %q or %q, got %q", AuthenticatorBearer, AuthenticatorAnonymous, d.Type)
		}
		if d.action == nil {
			b.violate(d.ID, MissingAction, "authenticator has no action")
		}

	case *ErrorType:
		if d.Code == "" {
			b.violate(d.ID, MissingErrorCode, "error has no code")
		}
		if d.HTTPStatus < 100 || d.HTTPStatus > 599 {
			b.violate(d.ID, InvalidHTTPStatus, "HTTP status %d is out of range", d.HTTPStatus)
		}
		b.checkFields(d.ID, d.fields)
	}
}

func (b *builder) checkFields(owner string, fs *FieldSet) {
	for _, f := range fs.fields {
		if f.includeSpec != "" && includeSpecParser != nil {
			filter, err := includeSpecParser(f.includeSpec)
			if err != nil {
				b.violate(owner, InvalidIncludeSpec, "field %q has an invalid include spec: %v", f.Name, err)
			} else {
				f.includeFilter = filter
			}
		}
		ref, ok := b.resolve(f.token)
		if !ok {
			b.violate(owner, UnresolvableType, "field %q has unresolvable type %v", f.Name, describeToken(f.token))
			continue
		}
		if !ref.UsableForField() {
			b.violate(owner, InvalidFieldType, "field %q cannot emit %s %q", f.Name, ref.Kind, ref.Name)
			continue
		}
		ref.Nullable = f.nullable
		f.ref = ref
	}
}

// resolve classifies a token. The returned reference is a fresh copy the
// caller may adjust.
func (b *builder) resolve(token any) (*TypeRef, bool) {
	array := false
	switch t := token.(type) {
	case Array:
		array, token = true, t.Of
	case string:
		if strings.HasPrefix(t, "[") && strings.HasSuffix(t, "]") {
			array, token = true, strings.TrimSpace(t[1:len(t)-1])
		}
	}
	base, ok := b.resolveBase(token)
	if !ok {
		return nil, false
	}
	return base.withModifiers(array, false), true
}

func (b *builder) resolveBase(token any) (*TypeRef, bool) {
	switch token.(type) {
	case string, *Scalar, *Object, *Enum, *ArgumentSet, *Polymorph:
	default:
		return nil, false
	}
	if ref, ok := b.refs[token]; ok {
		return ref, true
	}

	var def any = token
	if id, ok := token.(string); ok {
		if d, ok := b.defs[id]; ok {
			def = d
		} else if s, ok := BuiltinScalar(id); ok {
			def = s
		} else {
			return nil, false
		}
	}

	var ref *TypeRef
	switch d := def.(type) {
	case *Scalar:
		ref = &TypeRef{Kind: KindScalar, Name: d.ID, scalar: d}
	case *Object:
		ref = &TypeRef{Kind: KindObject, Name: d.ID, object: d}
	case *Enum:
		ref = &TypeRef{Kind: KindEnum, Name: d.ID, enum: d}
	case *ArgumentSet:
		ref = &TypeRef{Kind: KindArgumentSet, Name: d.ID, argSet: d}
	case *Polymorph:
		ref = &TypeRef{Kind: KindPolymorph, Name: d.ID, polymorph: d}
	default:
		return nil, false
	}
	b.refs[token] = ref
	return ref, true
}

func describeToken(token any) string {
	switch t := token.(type) {
	case string:
		return fmt.Sprintf("%q", t)
	case Array:
		return "[" + describeToken(t.Of) + "]"
	case Definition:
		return fmt.Sprintf("%T(%s)", t, t.DefinitionID())
	case nil:
		return "<nil>"
	}
	return fmt.Sprintf("%T", token)
}
