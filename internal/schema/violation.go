package schema

import "fmt"

// ViolationCode classifies a schema build failure.
type ViolationCode string

const (
	UnresolvableType         ViolationCode = "UnresolvableType"
	InvalidFieldType         ViolationCode = "InvalidFieldType"
	InvalidArgumentType      ViolationCode = "InvalidArgumentType"
	DuplicateDefinition      ViolationCode = "DuplicateDefinition"
	MissingMatcher           ViolationCode = "MissingMatcher"
	EmptyEnum                ViolationCode = "EmptyEnum"
	MissingAction            ViolationCode = "MissingAction"
	InvalidAuthenticatorType ViolationCode = "InvalidAuthenticatorType"
	MissingErrorCode         ViolationCode = "MissingErrorCode"
	InvalidHTTPStatus        ViolationCode = "InvalidHTTPStatus"
	InvalidIncludeSpec       ViolationCode = "InvalidIncludeSpec"
)

type Violation struct {
	Definition string        `json:"definition"`
	Code       ViolationCode `json:"code"`
	Message    string        `json:"message"`
}

func (v *Violation) String() string {
	return fmt.Sprintf("%s (%s): %s", v.Definition, v.Code, v.Message)
}

// SchemaError aggregates every violation found while building a registry.
type SchemaError struct {
	Violations []*Violation
}

func (e *SchemaError) Error() string {
	msg := "violations found:\n"
	for _, v := range e.Violations {
		msg += "- " + v.String() + "\n"
	}
	return msg
}

// Has reports whether any violation carries code.
func (e *SchemaError) Has(code ViolationCode) bool {
	for _, v := range e.Violations {
		if v.Code == code {
			return true
		}
	}
	return false
}
