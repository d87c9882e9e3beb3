package schema

// Scalar is a leaf type. Parse converts raw external input into the canonical
// internal value, Validate guards both directions and Cast converts an
// internal value into a JSON-safe output primitive.
type Scalar struct {
	sealable

	ID          string
	Name        string
	Description string

	cast     func(any) any
	parse    func(any) (any, error)
	validate func(any) bool
}

// NewScalar creates a scalar whose cast and parse are the identity and whose
// validator accepts anything until configured otherwise.
func NewScalar(id string) *Scalar {
	return &Scalar{ID: id, Name: id}
}

func (s *Scalar) SetName(name string) *Scalar {
	s.mustBeOpen("scalar " + s.ID)
	s.Name = name
	return s
}

func (s *Scalar) SetDescription(desc string) *Scalar {
	s.mustBeOpen("scalar " + s.ID)
	s.Description = desc
	return s
}

// SetCast configures the output conversion. It only runs on values that pass
// the validator.
func (s *Scalar) SetCast(fn func(any) any) *Scalar {
	s.mustBeOpen("scalar " + s.ID)
	s.cast = fn
	return s
}

// SetParse configures the input conversion. fn should return a *ParseError
// for malformed input.
func (s *Scalar) SetParse(fn func(any) (any, error)) *Scalar {
	s.mustBeOpen("scalar " + s.ID)
	s.parse = fn
	return s
}

func (s *Scalar) SetValidator(fn func(any) bool) *Scalar {
	s.mustBeOpen("scalar " + s.ID)
	s.validate = fn
	return s
}

// Parse converts a raw input value.
func (s *Scalar) Parse(v any) (any, error) {
	if s.parse == nil {
		return v, nil
	}
	return s.parse(v)
}

// Valid reports whether v is an acceptable internal value.
func (s *Scalar) Valid(v any) bool {
	if s.validate == nil {
		return true
	}
	return s.validate(v)
}

// Cast converts an internal value for output. Values failing the validator
// are rejected with *InvalidScalarValueError rather than coerced.
func (s *Scalar) Cast(v any) (any, error) {
	if !s.Valid(v) {
		return nil, &InvalidScalarValueError{Scalar: s, Value: v}
	}
	if s.cast == nil {
		return v, nil
	}
	return s.cast(v), nil
}

func (s *Scalar) DefinitionID() string { return s.ID }
func (s *Scalar) references() []any    { return nil }
