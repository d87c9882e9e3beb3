package schema

import (
	"fmt"
	"net/http"
)

// ErrorType declares an API error an action or authenticator may raise.
type ErrorType struct {
	sealable

	ID          string
	Code        string
	HTTPStatus  int
	Description string

	fields *FieldSet
}

// NewErrorType declares an error type answering with HTTP 500 until
// configured otherwise.
func NewErrorType(id string) *ErrorType {
	return &ErrorType{ID: id, HTTPStatus: http.StatusInternalServerError, fields: NewFieldSet()}
}

func (e *ErrorType) SetCode(code string) *ErrorType {
	e.mustBeOpen("error " + e.ID)
	e.Code = code
	return e
}

func (e *ErrorType) SetHTTPStatus(status int) *ErrorType {
	e.mustBeOpen("error " + e.ID)
	e.HTTPStatus = status
	return e
}

func (e *ErrorType) SetDescription(desc string) *ErrorType {
	e.mustBeOpen("error " + e.ID)
	e.Description = desc
	return e
}

// AddField declares a detail field emitted alongside the error code.
func (e *ErrorType) AddField(f *Field) *ErrorType {
	e.mustBeOpen("error " + e.ID)
	e.fields.Add(f)
	return e
}

func (e *ErrorType) Fields() *FieldSet { return e.fields }

// Raise returns an error carrying detail, serialized through the error's
// fields when it reaches the client.
func (e *ErrorType) Raise(detail any) *RaisedError {
	return &RaisedError{Type: e, Detail: detail}
}

func (e *ErrorType) DefinitionID() string { return e.ID }
func (e *ErrorType) references() []any    { return e.fields.references() }

func (e *ErrorType) seal() {
	e.sealable.seal()
	e.fields.seal()
}

// RaisedError is an ErrorType instance returned from application code.
type RaisedError struct {
	Type   *ErrorType
	Detail any
}

func (e *RaisedError) Error() string {
	if e.Type.Description != "" {
		return fmt.Sprintf("%s: %s", e.Type.Code, e.Type.Description)
	}
	return e.Type.Code
}
