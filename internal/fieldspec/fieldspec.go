// Package fieldspec parses client-supplied sparse field selections such as
//
//	id,name,address[city,zip],*,-secret
//
// A bare name selects a field, name[...] selects it with a nested selection,
// -name excludes it and * selects every field that is included by default.
// A list holding only exclusions implies *.
// A selected object or polymorph field without a nested selection uses its
// own default selection.
package fieldspec

import (
	"fmt"
	"strings"

	schema "github.com/hanpama/apiform/internal/schema"
)

// Spec is a parsed selection for one level of fields.
type Spec struct {
	all      bool
	include  map[string]*Spec
	exclude  map[string]bool
	explicit []string
}

// Default selects every field included by default, at every depth.
var Default = &Spec{all: true}

// SyntaxError reports malformed input.
type SyntaxError struct {
	Input string
	Pos   int
	Msg   string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid field spec %q at %d: %s", e.Input, e.Pos, e.Msg)
}

// Parse parses a selection. An empty string yields Default.
func Parse(input string) (*Spec, error) {
	if strings.TrimSpace(input) == "" {
		return Default, nil
	}
	p := &parser{input: input}
	spec, err := p.list()
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.input) {
		return nil, p.errorf("unexpected %q", p.input[p.pos])
	}
	return spec, nil
}

// MustParse is like Parse but panics on malformed input.
func MustParse(input string) *Spec {
	s, err := Parse(input)
	if err != nil {
		panic(err)
	}
	return s
}

// Allows reports whether the field at the end of path is selected. path runs
// from the top-level field to the field in question.
func (s *Spec) Allows(r *schema.Request, path []*schema.Field) bool {
	cur := s
	for _, f := range path {
		next, ok := cur.child(r, f)
		if !ok {
			return false
		}
		cur = next
	}
	return true
}

// child decides f at this level and returns the selection for f's own fields.
func (s *Spec) child(r *schema.Request, f *schema.Field) (*Spec, bool) {
	if s.exclude[f.Name] {
		return nil, false
	}
	if sub, ok := s.include[f.Name]; ok {
		if sub == nil {
			return defaultFor(f), true
		}
		return sub, true
	}
	if s.all && f.IncludedByDefault(r) {
		return defaultFor(f), true
	}
	return nil, false
}

func init() {
	schema.RegisterIncludeSpecParser(func(input string) (schema.FieldFilter, error) {
		return Parse(input)
	})
}

// defaultFor is the nested selection applied when f is selected without one.
// Built fields carry their include spec already parsed; a spec that fails to
// parse is a build violation and never reaches this point.
func defaultFor(f *schema.Field) *Spec {
	if spec, ok := f.IncludeFilter().(*Spec); ok {
		return spec
	}
	if inc := f.IncludeSpec(); inc != "" {
		if spec, err := Parse(inc); err == nil {
			return spec
		}
	}
	return Default
}

// String renders the spec back into its textual form.
func (s *Spec) String() string {
	var parts []string
	if s.all {
		parts = append(parts, "*")
	}
	for _, name := range s.explicit {
		switch sub, ok := s.include[name]; {
		case !ok:
			parts = append(parts, "-"+name)
		case sub == nil:
			parts = append(parts, name)
		default:
			parts = append(parts, name+"["+sub.String()+"]")
		}
	}
	return strings.Join(parts, ",")
}

type parser struct {
	input string
	pos   int
}

func (p *parser) errorf(format string, args ...any) error {
	return &SyntaxError{Input: p.input, Pos: p.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) skipSpace() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}

// list parses a comma-separated selection up to the end of input or a
// closing bracket.
func (p *parser) list() (*Spec, error) {
	spec := &Spec{include: map[string]*Spec{}, exclude: map[string]bool{}}
	afterComma := false
	for {
		p.skipSpace()
		if p.pos >= len(p.input) || p.input[p.pos] == ']' {
			if afterComma {
				return nil, p.errorf("expected field name")
			}
			if len(spec.explicit) == 0 && !spec.all {
				return nil, p.errorf("empty selection")
			}
			// A list made only of exclusions subtracts from the default.
			if len(spec.include) == 0 {
				spec.all = true
			}
			return spec, nil
		}

		switch c := p.input[p.pos]; {
		case c == '*':
			p.pos++
			spec.all = true
		case c == '-':
			p.pos++
			name, err := p.name()
			if err != nil {
				return nil, err
			}
			delete(spec.include, name)
			spec.exclude[name] = true
			spec.remember(name)
		default:
			name, err := p.name()
			if err != nil {
				return nil, err
			}
			var sub *Spec
			p.skipSpace()
			if p.pos < len(p.input) && p.input[p.pos] == '[' {
				p.pos++
				if sub, err = p.list(); err != nil {
					return nil, err
				}
				if p.pos >= len(p.input) {
					return nil, p.errorf("missing ]")
				}
				p.pos++
			}
			delete(spec.exclude, name)
			spec.include[name] = sub
			spec.remember(name)
		}

		p.skipSpace()
		if p.pos < len(p.input) && p.input[p.pos] == ',' {
			p.pos++
			afterComma = true
			continue
		}
		afterComma = false
		if p.pos < len(p.input) && p.input[p.pos] != ']' {
			return nil, p.errorf("expected , or ] but found %q", p.input[p.pos])
		}
	}
}

func (p *parser) name() (string, error) {
	start := p.pos
	for p.pos < len(p.input) && isNameByte(p.input[p.pos]) {
		p.pos++
	}
	if start == p.pos {
		if p.pos >= len(p.input) {
			return "", p.errorf("expected field name")
		}
		return "", p.errorf("expected field name but found %q", p.input[p.pos])
	}
	return p.input[start:p.pos], nil
}

func (s *Spec) remember(name string) {
	for _, n := range s.explicit {
		if n == name {
			return
		}
	}
	s.explicit = append(s.explicit, name)
}

func isNameByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
