// Package sdl declares schema definitions in GraphQL schema definition
// language.
//
// The mapping is:
//
//	type X { ... }                         -> *schema.Object
//	type X @error(code: "c", status: 404)  -> *schema.ErrorType
//	input X { ... }                        -> *schema.ArgumentSet
//	input X @lookup { ... }                -> lookup *schema.ArgumentSet
//	enum X { ... }                         -> *schema.Enum
//	union X = A | B                        -> *schema.Polymorph
//	scalar X                               -> *schema.Scalar (identity)
//
// A trailing ! marks fields non-null and arguments required, [T] declares an
// array and = v declares an argument default. Field directives @key(name:),
// @hidden and @select(spec:) map to the field's backend key and default
// selection.
//
// Definitions are returned unbuilt so that Go code can attach backends,
// resolvers and matchers before the registry is built.
package sdl

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"

	schema "github.com/hanpama/apiform/internal/schema"
)

// builtinNames maps SDL scalar names to built-in scalar IDs.
var builtinNames = map[string]string{
	"String":   "string",
	"ID":       "string",
	"Int":      "integer",
	"Float":    "decimal",
	"Boolean":  "boolean",
	"Date":     "date",
	"UnixTime": "unix_time",
}

// Document holds the definitions declared by one or more SDL sources.
type Document struct {
	defs  map[string]schema.Definition
	order []string
}

// Parse parses a single SDL source.
func Parse(name, source string) (*Document, error) {
	return ParseSources(&ast.Source{Name: name, Input: source})
}

// ParseFiles reads and parses SDL files as one document.
func ParseFiles(paths ...string) (*Document, error) {
	sources := make([]*ast.Source, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("sdl: %w", err)
		}
		sources = append(sources, &ast.Source{Name: path, Input: string(data)})
	}
	return ParseSources(sources...)
}

// ParseSources parses SDL sources as one document.
func ParseSources(sources ...*ast.Source) (*Document, error) {
	doc, err := parser.ParseSchemas(sources...)
	if err != nil {
		return nil, fmt.Errorf("sdl: %w", err)
	}
	if len(doc.Extensions) > 0 {
		return nil, errorAt(doc.Extensions[0].Position, "type extensions are not supported")
	}
	if len(doc.Schema) > 0 {
		return nil, errorAt(doc.Schema[0].Position, "schema definitions are not supported")
	}

	l := &loader{doc: &Document{defs: make(map[string]schema.Definition)}}
	for _, def := range doc.Definitions {
		if err := l.declare(def); err != nil {
			return nil, err
		}
	}
	for _, def := range doc.Definitions {
		if err := l.fill(def); err != nil {
			return nil, err
		}
	}
	return l.doc, nil
}

// Definitions returns the declared definitions in declaration order.
func (d *Document) Definitions() []schema.Definition {
	out := make([]schema.Definition, 0, len(d.order))
	for _, name := range d.order {
		out = append(out, d.defs[name])
	}
	return out
}

// Registry returns a new registry holding every declared definition.
func (d *Document) Registry() *schema.Registry {
	return schema.NewRegistry(d.Definitions()...)
}

// Lookup returns the definition declared under name.
func (d *Document) Lookup(name string) (schema.Definition, bool) {
	def, ok := d.defs[name]
	return def, ok
}

func (d *Document) Object(name string) *schema.Object {
	o, _ := d.defs[name].(*schema.Object)
	return o
}

func (d *Document) ArgumentSet(name string) *schema.ArgumentSet {
	a, _ := d.defs[name].(*schema.ArgumentSet)
	return a
}

func (d *Document) Enum(name string) *schema.Enum {
	e, _ := d.defs[name].(*schema.Enum)
	return e
}

func (d *Document) Polymorph(name string) *schema.Polymorph {
	p, _ := d.defs[name].(*schema.Polymorph)
	return p
}

func (d *Document) ErrorType(name string) *schema.ErrorType {
	e, _ := d.defs[name].(*schema.ErrorType)
	return e
}

func (d *Document) Scalar(name string) *schema.Scalar {
	s, _ := d.defs[name].(*schema.Scalar)
	return s
}

type loader struct {
	doc *Document
}

// declare creates an empty definition so that fill can refer to it by
// pointer regardless of declaration order.
func (l *loader) declare(def *ast.Definition) error {
	if _, ok := l.doc.defs[def.Name]; ok {
		return errorAt(def.Position, "%s is declared more than once", def.Name)
	}
	if _, ok := builtinNames[def.Name]; ok {
		return errorAt(def.Position, "%s is a built-in scalar", def.Name)
	}

	var d schema.Definition
	switch def.Kind {
	case ast.Object:
		if dir := def.Directives.ForName("error"); dir != nil {
			d = schema.NewErrorType(def.Name).SetDescription(def.Description)
		} else {
			d = schema.NewObject(def.Name).SetDescription(def.Description)
		}
	case ast.InputObject:
		if def.Directives.ForName("lookup") != nil {
			d = schema.NewLookupArgumentSet(def.Name).SetDescription(def.Description)
		} else {
			d = schema.NewArgumentSet(def.Name).SetDescription(def.Description)
		}
	case ast.Enum:
		d = schema.NewEnum(def.Name).SetDescription(def.Description)
	case ast.Union:
		d = schema.NewPolymorph(def.Name).SetDescription(def.Description)
	case ast.Scalar:
		d = schema.NewScalar(def.Name).SetDescription(def.Description)
	default:
		return errorAt(def.Position, "%s: %s definitions are not supported", def.Name, strings.ToLower(string(def.Kind)))
	}
	l.doc.defs[def.Name] = d
	l.doc.order = append(l.doc.order, def.Name)
	return nil
}

func (l *loader) fill(def *ast.Definition) error {
	switch d := l.doc.defs[def.Name].(type) {
	case *schema.Object:
		for _, fd := range def.Fields {
			f, err := l.field(fd)
			if err != nil {
				return err
			}
			d.AddField(f)
		}
	case *schema.ErrorType:
		if err := l.errorType(d, def); err != nil {
			return err
		}
		for _, fd := range def.Fields {
			f, err := l.field(fd)
			if err != nil {
				return err
			}
			d.AddField(f)
		}
	case *schema.ArgumentSet:
		for _, fd := range def.Fields {
			a, err := l.argument(fd)
			if err != nil {
				return err
			}
			d.AddArgument(a)
		}
	case *schema.Enum:
		for _, v := range def.EnumValues {
			d.AddValue(v.Name, v.Description)
		}
	case *schema.Polymorph:
		for _, member := range def.Types {
			d.AddOption(optionName(member), l.token(member), MatchTypeName(member))
		}
	}
	return nil
}

func (l *loader) errorType(d *schema.ErrorType, def *ast.Definition) error {
	dir := def.Directives.ForName("error")
	code, err := directiveArg(dir, "code")
	if err != nil {
		return errorAt(dir.Position, "%s: %v", def.Name, err)
	}
	if s, ok := code.(string); ok {
		d.SetCode(s)
	}
	if arg := dir.Arguments.ForName("status"); arg != nil {
		status, err := arg.Value.Value(nil)
		if err != nil {
			return errorAt(arg.Position, "%s: %v", def.Name, err)
		}
		n, ok := status.(int64)
		if !ok {
			return errorAt(arg.Position, "%s: status must be an integer", def.Name)
		}
		d.SetHTTPStatus(int(n))
	}
	return nil
}

func (l *loader) field(fd *ast.FieldDefinition) (*schema.Field, error) {
	if len(fd.Arguments) > 0 {
		return nil, errorAt(fd.Position, "field %s: field arguments are not supported", fd.Name)
	}
	token, err := l.typeToken(fd.Type)
	if err != nil {
		return nil, err
	}
	f := schema.NewField(fd.Name, token).
		SetDescription(fd.Description).
		SetNull(!fd.Type.NonNull)

	if dir := fd.Directives.ForName("key"); dir != nil {
		name, err := directiveArg(dir, "name")
		if err != nil {
			return nil, errorAt(dir.Position, "field %s: %v", fd.Name, err)
		}
		if s, ok := name.(string); ok {
			f.SetBackendKey(s)
		}
	}
	if dir := fd.Directives.ForName("select"); dir != nil {
		spec, err := directiveArg(dir, "spec")
		if err != nil {
			return nil, errorAt(dir.Position, "field %s: %v", fd.Name, err)
		}
		if s, ok := spec.(string); ok {
			f.SetIncludeSpec(s)
		}
	}
	if fd.Directives.ForName("hidden") != nil {
		f.SetInclude(false)
	}
	return f, nil
}

func (l *loader) argument(fd *ast.FieldDefinition) (*schema.Argument, error) {
	token, err := l.typeToken(fd.Type)
	if err != nil {
		return nil, err
	}
	a := schema.NewArgument(fd.Name, token).
		SetDescription(fd.Description).
		SetRequired(fd.Type.NonNull)
	if fd.DefaultValue != nil {
		v, err := fd.DefaultValue.Value(nil)
		if err != nil {
			return nil, errorAt(fd.DefaultValue.Position, "argument %s: %v", fd.Name, err)
		}
		a.SetDefault(v)
	}
	return a, nil
}

// typeToken converts an SDL type into a schema type token.
func (l *loader) typeToken(t *ast.Type) (any, error) {
	if t.Elem == nil {
		return l.token(t.NamedType), nil
	}
	if t.Elem.Elem != nil {
		return nil, errorAt(t.Position, "nested list type %s is not supported", t.String())
	}
	return schema.ArrayOf(l.token(t.Elem.NamedType)), nil
}

// token prefers definitions from this document, then built-in scalars. Any
// other name is left for the registry to resolve.
func (l *loader) token(name string) any {
	if d, ok := l.doc.defs[name]; ok {
		return d
	}
	if id, ok := builtinNames[name]; ok {
		return id
	}
	return name
}

func directiveArg(dir *ast.Directive, name string) (any, error) {
	arg := dir.Arguments.ForName(name)
	if arg == nil {
		return nil, fmt.Errorf("@%s requires argument %q", dir.Name, name)
	}
	return arg.Value.Value(nil)
}

// optionName is the polymorph output tag for a union member.
func optionName(member string) string {
	r, size := utf8.DecodeRuneInString(member)
	return string(unicode.ToLower(r)) + member[size:]
}

// MatchTypeName returns a matcher accepting values that identify themselves
// as name: maps with a "__typename" or "type" entry, values with a
// TypeName() string method, or values of a Go type called name.
func MatchTypeName(name string) func(any) bool {
	return func(v any) bool {
		switch tv := v.(type) {
		case nil:
			return false
		case interface{ TypeName() string }:
			return tv.TypeName() == name
		case map[string]any:
			for _, key := range []string{"__typename", "type"} {
				if s, ok := tv[key].(string); ok {
					return s == name
				}
			}
			return false
		}
		t := reflect.TypeOf(v)
		for t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		return t.Name() == name
	}
}

func errorAt(pos *ast.Position, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if pos == nil || pos.Src == nil {
		return fmt.Errorf("sdl: %s", msg)
	}
	return fmt.Errorf("sdl: %s:%d: %s", pos.Src.Name, pos.Line, msg)
}
