package schema

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// sdlScalarNames maps built-in scalar IDs to the names used in SDL.
var sdlScalarNames = map[string]string{
	"string":    "String",
	"integer":   "Int",
	"decimal":   "Float",
	"boolean":   "Boolean",
	"date":      "Date",
	"unix_time": "UnixTime",
}

// Render produces SDL from the Schema.
// Deterministic ordering: definitions sorted by ID.
func Render(s *Schema) string {
	if s == nil {
		return ""
	}
	var b strings.Builder

	for _, def := range s.Definitions() {
		switch d := def.(type) {
		case *Scalar:
			if _, builtin := builtinScalars[d.ID]; builtin {
				continue
			}
			renderScalar(&b, d)
		case *Enum:
			renderEnum(&b, d)
		case *ArgumentSet:
			renderArgumentSet(&b, d)
		case *Object:
			renderDescription(&b, d.Description)
			b.WriteString("type ")
			b.WriteString(d.Name)
			renderFieldSet(&b, d.fields)
		case *ErrorType:
			renderDescription(&b, d.Description)
			b.WriteString("type ")
			b.WriteString(d.ID)
			fmt.Fprintf(&b, " @error(code: %s, status: %d)", strconv.Quote(d.Code), d.HTTPStatus)
			renderFieldSet(&b, d.fields)
		case *Polymorph:
			renderPolymorph(&b, d)
		}
	}

	out := strings.TrimRight(b.String(), "\n") + "\n"
	return out
}

// ----- render helpers -----

func renderDescription(b *strings.Builder, desc string) {
	if desc == "" {
		return
	}
	b.WriteString("\"\"\"\n")
	// Escape quotes in description
	escaped := strings.ReplaceAll(desc, "\"", "\\\"")
	b.WriteString(escaped)
	b.WriteString("\n\"\"\"\n")
}

func renderScalar(b *strings.Builder, s *Scalar) {
	renderDescription(b, s.Description)
	b.WriteString("scalar ")
	b.WriteString(s.Name)
	b.WriteString("\n\n")
}

func renderEnum(b *strings.Builder, e *Enum) {
	renderDescription(b, e.Description)
	b.WriteString("enum ")
	b.WriteString(e.Name)
	b.WriteString(" {\n")
	for _, val := range e.values {
		renderDescription(b, val.Description)
		b.WriteString("  ")
		b.WriteString(val.Name)
		b.WriteString("\n")
	}
	b.WriteString("}\n\n")
}

func renderArgumentSet(b *strings.Builder, s *ArgumentSet) {
	renderDescription(b, s.Description)
	b.WriteString("input ")
	b.WriteString(s.Name)
	if s.lookup {
		b.WriteString(" @lookup")
	}
	b.WriteString(" {\n")
	for _, arg := range s.args {
		renderDescription(b, arg.Description)
		b.WriteString("  ")
		b.WriteString(arg.Name)
		b.WriteString(": ")
		b.WriteString(renderTypeRef(arg.ref, !arg.required))
		if arg.hasDefault {
			b.WriteString(" = ")
			b.WriteString(renderValue(arg.def))
		}
		b.WriteString("\n")
	}
	b.WriteString("}\n\n")
}

func renderFieldSet(b *strings.Builder, fs *FieldSet) {
	b.WriteString(" {\n")
	for _, field := range fs.fields {
		renderDescription(b, field.Description)
		b.WriteString("  ")
		b.WriteString(field.Name)
		b.WriteString(": ")
		b.WriteString(renderTypeRef(field.ref, field.nullable))
		b.WriteString("\n")
	}
	b.WriteString("}\n\n")
}

func renderPolymorph(b *strings.Builder, p *Polymorph) {
	renderDescription(b, p.Description)
	b.WriteString("union ")
	b.WriteString(p.Name)
	b.WriteString(" = ")
	for i, o := range p.options {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString(refName(o.ref))
	}
	b.WriteString("\n\n")
}

func renderTypeRef(ref *TypeRef, nullable bool) string {
	if ref == nil {
		return ""
	}
	out := refName(ref)
	if ref.Array {
		if nullable {
			return "[" + out + "]"
		}
		return "[" + out + "!]!"
	}
	if !nullable {
		out += "!"
	}
	return out
}

func refName(ref *TypeRef) string {
	if ref == nil {
		return ""
	}
	switch ref.Kind {
	case KindScalar:
		if name, ok := sdlScalarNames[ref.scalar.ID]; ok && ref.scalar == builtinScalars[ref.scalar.ID] {
			return name
		}
		return ref.scalar.Name
	case KindObject:
		return ref.object.Name
	case KindEnum:
		return ref.enum.Name
	case KindArgumentSet:
		return ref.argSet.Name
	case KindPolymorph:
		return ref.polymorph.Name
	}
	return ref.Name
}

// renderValue renders a default value.
func renderValue(value any) string {
	if value == nil {
		return "null"
	}

	switch v := value.(type) {
	case string:
		return strconv.Quote(v)
	case int:
		return strconv.Itoa(v)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case []any:
		var parts []string
		for _, item := range v {
			parts = append(parts, renderValue(item))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var parts []string
		for _, k := range keys {
			parts = append(parts, k+": "+renderValue(v[k]))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return fmt.Sprint(v)
	}
}
