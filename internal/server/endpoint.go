package server

import (
	"context"
	"fmt"
	"net/http"

	executor "github.com/hanpama/apiform/internal/executor"
	schema "github.com/hanpama/apiform/internal/schema"
)

// Action handles a request whose arguments have been constructed. The value
// it returns is serialized through the endpoint's fields.
type Action func(ctx context.Context, call *Call) (any, error)

// Endpoint binds an HTTP route to an argument set, a field set and an action.
type Endpoint struct {
	Method      string
	Path        string
	Name        string
	Description string

	// Arguments declares the accepted input. Nil accepts nothing.
	Arguments *schema.ArgumentSet
	// Fields declares the response body.
	Fields *schema.FieldSet
	// Authenticator runs before arguments are constructed. Nil skips it.
	Authenticator *schema.Authenticator
	// Errors lists the error types the action may raise.
	Errors []*schema.ErrorType
	// HTTPStatus answers successful requests. Zero means 200.
	HTTPStatus int
	// Scopes must all be held by the authenticated request.
	Scopes []string

	Action Action
}

// Call is the per-request state handed to an Action.
type Call struct {
	Endpoint  *Endpoint
	Request   *schema.Request
	Arguments *executor.ArgumentSet
	HTTP      *http.Request

	exec   *executor.Executor
	header http.Header
}

// Lookup resolves the lookup argument set held by argument name.
func (c *Call) Lookup(ctx context.Context, name string) (any, error) {
	set, ok := c.Arguments.Get(name).(*executor.ArgumentSet)
	if !ok || set == nil {
		return nil, nil
	}
	return c.exec.Resolve(ctx, set)
}

// SetHeader sets a response header.
func (c *Call) SetHeader(name, value string) { c.header.Set(name, value) }

// Raise returns an error of type e carrying detail. Raising an error the
// endpoint does not declare is a defect answered with internal_error.
func (c *Call) Raise(e *schema.ErrorType, detail any) error {
	if !c.Endpoint.declares(e) {
		return fmt.Errorf("server: error %s is not declared by endpoint %s", e.ID, c.Endpoint.Name)
	}
	return e.Raise(detail)
}

func (ep *Endpoint) declares(e *schema.ErrorType) bool {
	for _, d := range ep.potentialErrors() {
		if d == e {
			return true
		}
	}
	return false
}

func (ep *Endpoint) potentialErrors() []*schema.ErrorType {
	out := append([]*schema.ErrorType(nil), ep.Errors...)
	if ep.Authenticator != nil {
		out = append(out, ep.Authenticator.PotentialErrors()...)
	}
	if ep.Arguments != nil {
		out = append(out, ep.Arguments.PotentialErrors()...)
		for _, arg := range ep.Arguments.Arguments() {
			if ref := arg.Type(); ref.IsArgumentSet() {
				out = append(out, ref.ArgumentSet().PotentialErrors()...)
			}
		}
	}
	return out
}

func (ep *Endpoint) status() int {
	if ep.HTTPStatus == 0 {
		return http.StatusOK
	}
	return ep.HTTPStatus
}
