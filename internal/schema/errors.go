package schema

import "fmt"

// ParseError is returned by a scalar's parse function for malformed input.
type ParseError struct {
	Scalar  string
	Message string
}

func (e *ParseError) Error() string {
	return e.Message
}

// InvalidScalarValueError reports a value that cannot be emitted by a scalar.
// It always indicates a server-side defect: the backend produced a value of
// the wrong runtime type.
type InvalidScalarValueError struct {
	Scalar *Scalar
	Value  any
}

func (e *InvalidScalarValueError) Error() string {
	return fmt.Sprintf("invalid value for scalar `%s` (got: %#v (%T))", e.Scalar.ID, e.Value, e.Value)
}

// InvalidEnumOptionError reports a value outside an enum's closed value set.
type InvalidEnumOptionError struct {
	Enum  *Enum
	Value any
}

func (e *InvalidEnumOptionError) Error() string {
	name := e.Enum.Name
	if name == "" {
		name = "AnonymousEnum"
	}
	return fmt.Sprintf("Invalid option for `%s` (got: %#v (%T))", name, e.Value, e.Value)
}
