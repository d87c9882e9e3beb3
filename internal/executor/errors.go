package executor

import (
	"fmt"
	"strings"

	schema "github.com/hanpama/apiform/internal/schema"
)

// Kind classifies a request-time failure.
type Kind string

const (
	KindMissingArgument       Kind = "missing_argument"
	KindInvalidArgument       Kind = "invalid_argument"
	KindInvalidArgumentSet    Kind = "invalid_argument_set"
	KindNullFieldValue        Kind = "null_field_value"
	KindInvalidScalarValue    Kind = "invalid_scalar_value"
	KindInvalidEnumOption     Kind = "invalid_enum_option"
	KindInvalidArrayValue     Kind = "invalid_array_value"
	KindInvalidPolymorphValue Kind = "invalid_polymorph_value"
	KindBackendError          Kind = "backend_error"
	KindUnbuiltDefinition     Kind = "unbuilt_definition"
)

// Issue details why an argument was rejected.
type Issue string

const (
	IssueParseError            Issue = "parse_error"
	IssueInvalidScalar         Issue = "invalid_scalar"
	IssueArrayExpected         Issue = "array_expected"
	IssueObjectExpected        Issue = "object_expected"
	IssueInvalidEnumValue      Issue = "invalid_enum_value"
	IssueValidationErrors      Issue = "validation_errors"
	IssueMissingLookupValue    Issue = "missing_lookup_value"
	IssueAmbiguousLookupValues Issue = "ambiguous_lookup_values"
)

// Error is returned by Construct and Serialize. Index is -1 unless the
// failure concerns an array element.
type Error struct {
	Kind     Kind
	Issue    Issue
	Path     Path
	Argument *schema.Argument
	Field    *schema.Field
	Index    int
	Errors   []string
	Value    any
	Cause    error
}

func (e *Error) Error() string {
	var b strings.Builder
	switch e.Kind {
	case KindMissingArgument:
		fmt.Fprintf(&b, "missing value for argument `%s`", e.Path)
	case KindInvalidArgument:
		if len(e.Path) == 0 {
			fmt.Fprintf(&b, "invalid arguments (%s)", e.Issue)
		} else {
			fmt.Fprintf(&b, "invalid value for argument `%s` (%s)", e.Path, e.Issue)
		}
	case KindInvalidArgumentSet:
		fmt.Fprintf(&b, "expected an object for `%s`, got %T", e.Path, e.Value)
	case KindNullFieldValue:
		fmt.Fprintf(&b, "value for `%s` is null but the field is not nullable", e.Path)
	case KindInvalidArrayValue:
		fmt.Fprintf(&b, "value for `%s` must be an array, got %T", e.Path, e.Value)
	case KindInvalidPolymorphValue:
		fmt.Fprintf(&b, "no polymorph option matched the value for `%s` (got %T)", e.Path, e.Value)
	case KindUnbuiltDefinition:
		fmt.Fprintf(&b, "%s was used before its registry was built", e.Value)
	default:
		fmt.Fprintf(&b, "%s at `%s`", e.Kind, e.Path)
	}
	if len(e.Errors) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Errors, ", "))
	} else if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// ClientError reports whether the failure was caused by the request input
// rather than by the server's own data or code.
func (e *Error) ClientError() bool {
	switch e.Kind {
	case KindMissingArgument, KindInvalidArgument, KindInvalidArgumentSet:
		return true
	}
	return false
}

func missingArgument(arg *schema.Argument, path Path, index int) *Error {
	return &Error{Kind: KindMissingArgument, Path: path, Argument: arg, Index: index}
}

func invalidArgument(arg *schema.Argument, issue Issue, path Path, index int, v any) *Error {
	return &Error{Kind: KindInvalidArgument, Issue: issue, Path: path, Argument: arg, Index: index, Value: v}
}

func fieldError(kind Kind, f *schema.Field, path Path, index int, v any, cause error) *Error {
	return &Error{Kind: kind, Path: path, Field: f, Index: index, Value: v, Cause: cause}
}

// unbuilt reports a definition whose types were never resolved.
func unbuilt(what string) *Error {
	return &Error{Kind: KindUnbuiltDefinition, Path: Path{}, Index: -1, Value: what}
}

func unbuiltArgumentSet(def *schema.ArgumentSet) *Error {
	if def == nil {
		return unbuilt("nil argument set")
	}
	return unbuilt("argument set " + def.ID)
}
