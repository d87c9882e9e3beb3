package schema

// EnumValue is one member of an enum's closed value set.
type EnumValue struct {
	Name        string
	Description string
}

// Enum is a closed set of string values with an optional output transform.
type Enum struct {
	sealable

	ID          string
	Name        string
	Description string

	values []*EnumValue
	index  map[string]*EnumValue
	cast   func(any) any
}

func NewEnum(id string) *Enum {
	return &Enum{ID: id, Name: id, index: make(map[string]*EnumValue)}
}

func (e *Enum) SetName(name string) *Enum {
	e.mustBeOpen("enum " + e.ID)
	e.Name = name
	return e
}

func (e *Enum) SetDescription(desc string) *Enum {
	e.mustBeOpen("enum " + e.ID)
	e.Description = desc
	return e
}

// AddValue adds a member. Adding the same name twice replaces its description.
func (e *Enum) AddValue(name, description string) *Enum {
	e.mustBeOpen("enum " + e.ID)
	if v, ok := e.index[name]; ok {
		v.Description = description
		return e
	}
	v := &EnumValue{Name: name, Description: description}
	e.values = append(e.values, v)
	e.index[name] = v
	return e
}

// SetCast configures a transform applied before the membership check on output.
func (e *Enum) SetCast(fn func(any) any) *Enum {
	e.mustBeOpen("enum " + e.ID)
	e.cast = fn
	return e
}

// Values returns members in declaration order.
func (e *Enum) Values() []*EnumValue { return e.values }

// Has reports whether v is a member. Only strings can be members.
func (e *Enum) Has(v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	_, ok = e.index[s]
	return ok
}

// Cast applies the transform, if any, and checks membership of the result.
func (e *Enum) Cast(v any) (any, error) {
	out := v
	if e.cast != nil {
		out = e.cast(v)
	}
	if !e.Has(out) {
		return nil, &InvalidEnumOptionError{Enum: e, Value: v}
	}
	return out, nil
}

func (e *Enum) DefinitionID() string { return e.ID }
func (e *Enum) references() []any    { return nil }
